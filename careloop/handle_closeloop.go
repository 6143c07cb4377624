package careloop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/coolfhir"
	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/fhirmap"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

type closeReferralRequest struct {
	Referral         domain.Referral `json:"referral"`
	ServiceRequestID string          `json:"serviceRequestId"`
	ConditionID      string          `json:"conditionId"`
}

func (s *Service) handleCloseReferralLoop(response http.ResponseWriter, request *http.Request, sessionData *session.Data, client FHIRClient) {
	var body closeReferralRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		coolfhir.WriteOperationOutcomeFromError(coolfhir.BadRequestError(err), "close referral loop", response)
		return
	}
	closure, err := s.CloseReferralLoop(request.Context(), client, body.Referral, body.ServiceRequestID, body.ConditionID, sessionData.PatientID)
	if err != nil {
		coolfhir.WriteOperationOutcomeFromError(err, "close referral loop", response)
		return
	}
	coolfhir.SendResponse(response, http.StatusOK, closure)
}

// CloseReferralLoop records a completed referral in the EHR: the
// ServiceRequest is patched to completed, a Procedure documenting the
// delivered service is created, and the Condition is patched to resolved.
// The three writes run in that order and a failure stops the sequence.
func (s *Service) CloseReferralLoop(ctx context.Context, client FHIRClient, referral domain.Referral, serviceRequestID string, conditionID string, patientID string) (*LoopClosure, error) {
	err := client.PatchWithContext(ctx, "ServiceRequest/"+serviceRequestID, []coolfhir.PatchOperation{
		{Op: "replace", Path: "/status", Value: "completed"},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("complete ServiceRequest: %w", err)
	}

	procedure := fhirmap.ProcedureFromClosedReferral(referral, serviceRequestID, patientID, s.now())
	var created fhir.Procedure
	if err := client.CreateWithContext(ctx, procedure, &created); err != nil {
		return nil, fmt.Errorf("create Procedure: %w", err)
	}
	if created.Id == nil {
		return nil, fmt.Errorf("create Procedure: server returned no id")
	}

	err = client.PatchWithContext(ctx, "Condition/"+conditionID, []coolfhir.PatchOperation{
		{Op: "replace", Path: "/clinicalStatus/coding/0/code", Value: "resolved"},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve Condition: %w", err)
	}

	log.Info().Msgf("Referral loop closed (patient=%s, serviceRequest=%s, procedure=%s)", patientID, serviceRequestID, *created.Id)
	return &LoopClosure{ProcedureID: *created.Id}, nil
}
