// Package session defines the launch context stored per user session after a
// completed SMART app launch.
package session

import "time"

// Data is the launch context carried by one authenticated session. It is
// created by the SMART launch callback (or the demo launch) and read by every
// FHIR-facing handler.
type Data struct {
	// FHIRBaseURL is the EHR FHIR endpoint all requests for this session go to.
	FHIRBaseURL string
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Scope       string
	// PatientID is the patient in context for this launch.
	PatientID string
	// EncounterID is set when the launch happened inside an encounter.
	EncounterID string
	// FHIRUser is the launching practitioner's FHIR reference, when disclosed.
	FHIRUser     string
	RefreshToken string
	// Demo marks sessions created by the demo launch, which talk to a
	// sandbox server without a real authorization.
	Demo bool
}

// Authenticated reports whether the session can make FHIR requests.
func (d Data) Authenticated() bool {
	return d.FHIRBaseURL != "" && (d.AccessToken != "" || d.Demo)
}
