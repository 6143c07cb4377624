package cdshooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/coolfhir"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"golang.org/x/oauth2"
)

const patientViewServiceID = "sdoh-patient-view"

type Config struct {
	// AppBaseURL is the public URL of this application, used in card links.
	AppBaseURL string `koanf:"appbaseurl"`
}

type Service struct {
	config Config
	now    func() time.Time
}

func New(config Config) *Service {
	return &Service{
		config: config,
		now:    time.Now,
	}
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /cds-services", s.handleDiscovery)
	mux.HandleFunc("POST /cds-services/"+patientViewServiceID, s.handlePatientView)
}

type serviceDescriptor struct {
	Hook        string            `json:"hook"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ID          string            `json:"id"`
	Prefetch    map[string]string `json:"prefetch,omitempty"`
}

// handleDiscovery serves the CDS Hooks discovery document. The prefetch
// templates ask the EHR to send the SDOH screening observations and open
// referrals along with the hook call, so most invocations need no FHIR
// round trip.
func (s *Service) handleDiscovery(response http.ResponseWriter, _ *http.Request) {
	doc := struct {
		Services []serviceDescriptor `json:"services"`
	}{
		Services: []serviceDescriptor{
			{
				Hook:        "patient-view",
				Title:       "SDOH Screening Reminders",
				Description: "Reminds clinicians when SDOH screening is overdue and surfaces open SDOH referrals.",
				ID:          patientViewServiceID,
				Prefetch: map[string]string{
					"screenings": "Observation?patient={{context.patientId}}&category=sdoh&_sort=-date&_count=50",
					"referrals":  "ServiceRequest?patient={{context.patientId}}&category=sdoh&status=active,draft",
				},
			},
		},
	}
	response.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(response).Encode(doc)
}

func (s *Service) handlePatientView(response http.ResponseWriter, request *http.Request) {
	var hookRequest Request
	if err := json.NewDecoder(request.Body).Decode(&hookRequest); err != nil {
		http.Error(response, "invalid hook request", http.StatusBadRequest)
		return
	}
	if hookRequest.Context.PatientID == "" {
		http.Error(response, "missing patientId in hook context", http.StatusBadRequest)
		return
	}

	screenings, err := s.screeningObservations(request, &hookRequest)
	if err != nil {
		log.Error().Err(err).Msgf("CDS hook: loading screenings failed (patient=%s)", hookRequest.Context.PatientID)
		http.Error(response, "failed to load screening history", hookErrorStatus(err))
		return
	}
	referralCount, err := s.activeReferralCount(request, &hookRequest)
	if err != nil {
		log.Error().Err(err).Msgf("CDS hook: loading referrals failed (patient=%s)", hookRequest.Context.PatientID)
		http.Error(response, "failed to load referrals", hookErrorStatus(err))
		return
	}

	cards := PatientViewCards(s.config.AppBaseURL, latestScreeningDate(screenings), referralCount, s.now())
	response.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(response).Encode(cards)
}

// screeningObservations uses the prefetched bundle when present, and falls
// back to querying the EHR with the hook's authorization otherwise.
func (s *Service) screeningObservations(request *http.Request, hookRequest *Request) ([]fhir.Observation, error) {
	if raw, ok := hookRequest.Prefetch["screenings"]; ok {
		var bundle fhir.Bundle
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return nil, err
		}
		return coolfhir.UnmarshalBundleEntries[fhir.Observation](bundle)
	}
	client, err := s.fhirClient(request.Context(), hookRequest)
	if err != nil {
		return nil, err
	}
	var bundle fhir.Bundle
	err = client.SearchWithContext(request.Context(), "Observation", url.Values{
		"patient":  {hookRequest.Context.PatientID},
		"category": {"sdoh"},
		"_sort":    {"-date"},
		"_count":   {"50"},
	}, &bundle)
	if err != nil {
		return nil, err
	}
	return coolfhir.UnmarshalBundleEntries[fhir.Observation](bundle)
}

func (s *Service) activeReferralCount(request *http.Request, hookRequest *Request) (int, error) {
	var bundle fhir.Bundle
	if raw, ok := hookRequest.Prefetch["referrals"]; ok {
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return 0, err
		}
	} else {
		client, err := s.fhirClient(request.Context(), hookRequest)
		if err != nil {
			return 0, err
		}
		err = client.SearchWithContext(request.Context(), "ServiceRequest", url.Values{
			"patient":  {hookRequest.Context.PatientID},
			"category": {"sdoh"},
			"status":   {"active,draft"},
		}, &bundle)
		if err != nil {
			return 0, err
		}
	}
	referrals, err := coolfhir.UnmarshalBundleEntries[fhir.ServiceRequest](bundle)
	if err != nil {
		return 0, err
	}
	return len(referrals), nil
}

func (s *Service) fhirClient(ctx context.Context, hookRequest *Request) (fhirclient.Client, error) {
	if hookRequest.FHIRServer == "" || hookRequest.FHIRAuthorization == nil {
		return nil, coolfhir.BadRequest("hook request has neither prefetch nor FHIR authorization")
	}
	baseURL, err := url.Parse(hookRequest.FHIRServer)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: hookRequest.FHIRAuthorization.AccessToken,
		TokenType:   hookRequest.FHIRAuthorization.TokenType,
	}))
	return fhirclient.New(baseURL, httpClient, coolfhir.Config()), nil
}

// hookErrorStatus distinguishes malformed hook requests from upstream FHIR
// failures: errors carrying their own status code keep it, anything else is
// a bad gateway.
func hookErrorStatus(err error) int {
	var errorWithCode *coolfhir.ErrorWithCode
	if errors.As(err, &errorWithCode) && errorWithCode.StatusCode > 0 {
		return errorWithCode.StatusCode
	}
	return http.StatusBadGateway
}

// latestScreeningDate picks the newest effective date among the screening
// observations. The search sorts by -date, but prefetched bundles are not
// guaranteed to.
func latestScreeningDate(observations []fhir.Observation) *time.Time {
	var latest *time.Time
	for _, observation := range observations {
		if observation.EffectiveDateTime == nil {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, *observation.EffectiveDateTime)
		if err != nil {
			continue
		}
		if latest == nil || parsed.After(*latest) {
			latest = &parsed
		}
	}
	return latest
}
