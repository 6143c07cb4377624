package fhirmap

import (
	"time"

	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/lib/to"
	"github.com/sdoh-bridge/fhirbridge/terminology"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// serviceRequestStatus folds the application's referral lifecycle onto the
// four FHIR request statuses. Unknown statuses map to active.
var serviceRequestStatus = map[domain.ReferralStatus]fhir.RequestStatus{
	domain.ReferralPending:    fhir.RequestStatusDraft,
	domain.ReferralSent:       fhir.RequestStatusActive,
	domain.ReferralAccepted:   fhir.RequestStatusActive,
	domain.ReferralInProgress: fhir.RequestStatusActive,
	domain.ReferralResolved:   fhir.RequestStatusCompleted,
	domain.ReferralClosed:     fhir.RequestStatusCompleted,
	domain.ReferralDeclined:   fhir.RequestStatusRevoked,
}

// ServiceRequestFromReferral maps a referral to an SDOHCC ServiceRequest.
// organizationID must be a resolved directory id, not a display name.
func ServiceRequestFromReferral(referral domain.Referral, conditionID string, practitionerID string, organizationID string) fhir.ServiceRequest {
	status, ok := serviceRequestStatus[referral.Status]
	if !ok {
		status = fhir.RequestStatusActive
	}

	domainCategory := fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.SDOHCategory)}}
	if gravity, ok := terminology.GravityCodeForDomain(referral.Domain); ok {
		domainCategory = fhir.CodeableConcept{Coding: []fhir.Coding{*coding(gravity)}}
	}

	var notes []fhir.Annotation
	for _, note := range referral.Notes {
		notes = append(notes, fhir.Annotation{Text: note})
	}

	return fhir.ServiceRequest{
		Meta:   &fhir.Meta{Profile: []string{terminology.ProfileServiceRequest}},
		Status: status,
		Intent: fhir.RequestIntentOrder,
		Category: []fhir.CodeableConcept{
			{Coding: []fhir.Coding{*coding(terminology.SDOHCategory)}},
			domainCategory,
		},
		Code:            &fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.SocialServiceProcedure)}},
		Subject:         *patientReference(referral.PatientID),
		Requester:       &fhir.Reference{Reference: to.Ptr("Practitioner/" + practitionerID)},
		Performer:       []fhir.Reference{{Reference: to.Ptr("Organization/" + organizationID)}},
		ReasonReference: []fhir.Reference{{Reference: to.Ptr("Condition/" + conditionID)}},
		AuthoredOn:      to.Ptr(referral.CreatedDate.Format(time.RFC3339)),
		Note:            notes,
	}
}

// ProcedureFromClosedReferral maps a closed referral to the SDOHCC Procedure
// that closes the referral loop. performedDateTime is the referral's close
// date, or now when the close date was never stamped.
func ProcedureFromClosedReferral(referral domain.Referral, serviceRequestID string, patientID string, now time.Time) fhir.Procedure {
	performed := now
	if referral.ClosedDate != nil {
		performed = *referral.ClosedDate
	}
	return fhir.Procedure{
		Meta:              &fhir.Meta{Profile: []string{terminology.ProfileProcedure}},
		Status:            fhir.EventStatusCompleted,
		Category:          &fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.SDOHCategory)}},
		Code:              &fhir.CodeableConcept{Coding: []fhir.Coding{*coding(terminology.SocialServiceProcedure)}},
		Subject:           *patientReference(patientID),
		PerformedDateTime: to.Ptr(performed.Format(time.RFC3339)),
		BasedOn:           []fhir.Reference{{Reference: to.Ptr("ServiceRequest/" + serviceRequestID)}},
	}
}
