package careloop

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/coolfhir"
	"github.com/sdoh-bridge/fhirbridge/fhirmap"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"golang.org/x/sync/errgroup"
)

func (s *Service) handlePatientContext(response http.ResponseWriter, request *http.Request, sessionData *session.Data, client FHIRClient) {
	patientContext, err := s.LoadPatientContext(request.Context(), client, sessionData.PatientID)
	if err != nil {
		coolfhir.WriteOperationOutcomeFromError(err, "load patient context", response)
		return
	}
	coolfhir.SendResponse(response, http.StatusOK, patientContext)
}

// LoadPatientContext performs the four context reads in parallel: the Patient
// resource, prior SDOH screening observations, active SDOH conditions and
// open SDOH referrals. Any failed read fails the whole load.
func (s *Service) LoadPatientContext(ctx context.Context, client FHIRClient, patientID string) (*PatientContext, error) {
	var (
		patient         fhir.Patient
		screeningBundle fhir.Bundle
		conditionBundle fhir.Bundle
		referralBundle  fhir.Bundle
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return client.ReadWithContext(groupCtx, "Patient/"+patientID, &patient)
	})
	group.Go(func() error {
		return client.SearchWithContext(groupCtx, "Observation", url.Values{
			"patient":  {patientID},
			"category": {"sdoh"},
			"_sort":    {"-date"},
			"_count":   {"50"},
		}, &screeningBundle)
	})
	group.Go(func() error {
		return client.SearchWithContext(groupCtx, "Condition", url.Values{
			"patient":  {patientID},
			"category": {"health-concern", "sdoh"},
		}, &conditionBundle)
	})
	group.Go(func() error {
		return client.SearchWithContext(groupCtx, "ServiceRequest", url.Values{
			"patient":  {patientID},
			"category": {"sdoh"},
			"status":   {"active,draft"},
		}, &referralBundle)
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	screenings, err := coolfhir.UnmarshalBundleEntries[fhir.Observation](screeningBundle)
	if err != nil {
		return nil, err
	}
	conditions, err := coolfhir.UnmarshalBundleEntries[fhir.Condition](conditionBundle)
	if err != nil {
		return nil, err
	}
	referrals, err := coolfhir.UnmarshalBundleEntries[fhir.ServiceRequest](referralBundle)
	if err != nil {
		return nil, err
	}

	return &PatientContext{
		Patient:          fhirmap.PatientFromFHIR(patient, s.now()),
		PriorScreenings:  screenings,
		ActiveConditions: conditions,
		ActiveReferrals:  referrals,
	}, nil
}
