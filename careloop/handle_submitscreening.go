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

type submitScreeningRequest struct {
	Screening domain.ScreeningRecord `json:"screening"`
}

func (s *Service) handleSubmitScreening(response http.ResponseWriter, request *http.Request, sessionData *session.Data, client FHIRClient) {
	var body submitScreeningRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		coolfhir.WriteOperationOutcomeFromError(coolfhir.BadRequestError(err), "submit screening", response)
		return
	}
	submission, err := s.SubmitScreening(request.Context(), client, body.Screening, sessionData.PatientID, sessionData.EncounterID)
	if err != nil {
		coolfhir.WriteOperationOutcomeFromError(err, "submit screening", response)
		return
	}
	coolfhir.SendResponse(response, http.StatusCreated, submission)
}

// SubmitScreening writes the screening to the EHR as a strictly ordered
// pipeline: the QuestionnaireResponse first, then one Observation per flagged
// answer, then one Condition per flagged domain citing that domain's
// observations as evidence. A failure stops the pipeline where it happened;
// resources already written are not rolled back.
func (s *Service) SubmitScreening(ctx context.Context, client FHIRClient, screening domain.ScreeningRecord, patientID string, encounterID string) (*ScreeningSubmission, error) {
	questionnaireResponse := fhirmap.QuestionnaireResponseFromScreening(screening, patientID, encounterID)
	var createdQR fhir.QuestionnaireResponse
	if err := client.CreateWithContext(ctx, questionnaireResponse, &createdQR); err != nil {
		return nil, fmt.Errorf("create QuestionnaireResponse: %w", err)
	}
	if createdQR.Id == nil {
		return nil, fmt.Errorf("create QuestionnaireResponse: server returned no id")
	}
	submission := &ScreeningSubmission{QuestionnaireResponseID: *createdQR.Id}

	for _, domainResult := range screening.Domains {
		observations := fhirmap.ObservationsForDomain(domainResult, screening.Date, patientID, submission.QuestionnaireResponseID)
		domainObservationIDs := make([]string, 0, len(observations))
		for _, observation := range observations {
			var created fhir.Observation
			if err := client.CreateWithContext(ctx, observation, &created); err != nil {
				return submission, fmt.Errorf("create Observation (domain=%s): %w", domainResult.Domain, err)
			}
			if created.Id == nil {
				return submission, fmt.Errorf("create Observation (domain=%s): server returned no id", domainResult.Domain)
			}
			domainObservationIDs = append(domainObservationIDs, *created.Id)
			submission.ObservationIDs = append(submission.ObservationIDs, *created.Id)
		}

		if domainResult.FlaggedCount() == 0 {
			continue
		}
		condition := fhirmap.ConditionFromDomain(domainResult.Domain, patientID, domainObservationIDs, s.now())
		var createdCondition fhir.Condition
		if err := client.CreateWithContext(ctx, condition, &createdCondition); err != nil {
			return submission, fmt.Errorf("create Condition (domain=%s): %w", domainResult.Domain, err)
		}
		if createdCondition.Id == nil {
			return submission, fmt.Errorf("create Condition (domain=%s): server returned no id", domainResult.Domain)
		}
		submission.ConditionIDs = append(submission.ConditionIDs, *createdCondition.Id)
	}

	log.Info().Msgf("Screening submitted (patient=%s, qr=%s, observations=%d, conditions=%d)",
		patientID, submission.QuestionnaireResponseID, len(submission.ObservationIDs), len(submission.ConditionIDs))
	return submission, nil
}
