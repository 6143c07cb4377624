package careloop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/coolfhir"
	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/fhirmap"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

type createReferralRequest struct {
	Referral       domain.Referral `json:"referral"`
	ConditionID    string          `json:"conditionId"`
	PractitionerID string          `json:"practitionerId"`
}

type createReferralResponse struct {
	ServiceRequestID string `json:"serviceRequestId"`
}

func (s *Service) handleCreateReferral(response http.ResponseWriter, request *http.Request, sessionData *session.Data, client FHIRClient) {
	var body createReferralRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		coolfhir.WriteOperationOutcomeFromError(coolfhir.BadRequestError(err), "create referral", response)
		return
	}
	body.Referral.PatientID = sessionData.PatientID
	serviceRequestID, err := s.CreateReferral(request.Context(), client, body.Referral, body.ConditionID, practitionerID(body.PractitionerID, sessionData))
	if err != nil {
		coolfhir.WriteOperationOutcomeFromError(err, "create referral", response)
		return
	}
	coolfhir.SendResponse(response, http.StatusCreated, createReferralResponse{ServiceRequestID: serviceRequestID})
}

// CreateReferral resolves the referral's organization against the server's
// Organization directory and writes the ServiceRequest. A referral naming an
// organization the directory does not know is rejected.
func (s *Service) CreateReferral(ctx context.Context, client FHIRClient, referral domain.Referral, conditionID string, practitionerID string) (string, error) {
	organizationID, err := s.resolveOrganization(ctx, client, referral.Organization)
	if err != nil {
		return "", err
	}

	serviceRequest := fhirmap.ServiceRequestFromReferral(referral, conditionID, practitionerID, organizationID)
	var created fhir.ServiceRequest
	if err := client.CreateWithContext(ctx, serviceRequest, &created); err != nil {
		return "", fmt.Errorf("create ServiceRequest: %w", err)
	}
	if created.Id == nil {
		return "", fmt.Errorf("create ServiceRequest: server returned no id")
	}
	log.Info().Msgf("Referral created (patient=%s, domain=%s, serviceRequest=%s)", referral.PatientID, referral.Domain, *created.Id)
	return *created.Id, nil
}

// resolveOrganization looks the organization up by name and returns the id of
// the first match.
func (s *Service) resolveOrganization(ctx context.Context, client FHIRClient, name string) (string, error) {
	if name == "" {
		return "", coolfhir.BadRequest("referral organization is required")
	}
	var bundle fhir.Bundle
	if err := client.SearchWithContext(ctx, "Organization", url.Values{"name": {name}}, &bundle); err != nil {
		return "", fmt.Errorf("search Organization: %w", err)
	}
	organizations, err := coolfhir.UnmarshalBundleEntries[fhir.Organization](bundle)
	if err != nil {
		return "", err
	}
	for _, organization := range organizations {
		if organization.Id != nil {
			return *organization.Id, nil
		}
	}
	return "", coolfhir.BadRequest("organization %q not found in directory", name)
}
