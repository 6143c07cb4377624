// Package cdshooks serves the CDS Hooks discovery document and the
// patient-view hook that reminds clinicians about overdue SDOH screenings
// and open referrals.
package cdshooks

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	sourceLabel = "SDOH Bridge"

	indicatorInfo     = "info"
	indicatorWarning  = "warning"
	indicatorCritical = "critical"
)

// Request is a CDS Hooks invocation as sent by the EHR.
type Request struct {
	Hook              string                     `json:"hook"`
	HookInstance      string                     `json:"hookInstance"`
	Context           Context                    `json:"context"`
	FHIRServer        string                     `json:"fhirServer,omitempty"`
	FHIRAuthorization *Authorization             `json:"fhirAuthorization,omitempty"`
	Prefetch          map[string]json.RawMessage `json:"prefetch,omitempty"`
}

type Context struct {
	UserID      string `json:"userId"`
	PatientID   string `json:"patientId"`
	EncounterID string `json:"encounterId,omitempty"`
}

type Authorization struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Card is one CDS Hooks card returned to the EHR.
type Card struct {
	UUID      string `json:"uuid,omitempty"`
	Summary   string `json:"summary"`
	Detail    string `json:"detail,omitempty"`
	Indicator string `json:"indicator"`
	Source    Source `json:"source"`
	Links     []Link `json:"links,omitempty"`
}

type Source struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Response is the card list for one hook invocation.
type Response struct {
	Cards []Card `json:"cards"`
}

// PatientViewCards evaluates the patient-view reminders: a warning card when
// the last screening is more than twelve months old (or absent), and an info
// card when the patient has open SDOH referrals. The response always carries
// a non-nil card list.
func PatientViewCards(appBaseURL string, lastScreening *time.Time, activeReferralCount int, now time.Time) Response {
	cards := []Card{}

	if lastScreening == nil || monthsBetween(*lastScreening, now) > 12 {
		detail := "No SDOH screening on record. Initial screening recommended."
		if lastScreening != nil {
			detail = fmt.Sprintf("Last SDOH screening was %d months ago. Annual screening recommended per Joint Commission standards.", monthsBetween(*lastScreening, now))
		}
		cards = append(cards, Card{
			Summary:   "SDOH Screening Overdue",
			Detail:    detail,
			Indicator: indicatorWarning,
			Source:    Source{Label: sourceLabel, URL: appBaseURL},
			Links: []Link{{
				Label: "Launch SDOH Bridge Screening",
				URL:   appBaseURL + "/launch",
				Type:  "smart",
			}},
		})
	}

	if activeReferralCount > 0 {
		plural := ""
		if activeReferralCount > 1 {
			plural = "s"
		}
		cards = append(cards, Card{
			Summary:   fmt.Sprintf("%d Active SDOH Referral%s", activeReferralCount, plural),
			Detail:    "This patient has open SDOH referrals. Review status and follow up during this visit.",
			Indicator: indicatorInfo,
			Source:    Source{Label: sourceLabel},
			Links: []Link{{
				Label: "View Referral Status",
				URL:   appBaseURL + "/launch?view=referrals",
				Type:  "smart",
			}},
		})
	}

	return Response{Cards: cards}
}

// monthsBetween counts calendar months from a to b: twelve per year boundary
// plus the month difference, ignoring the day of month.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
