// Package careloop orchestrates the SDOH care loop against the EHR FHIR
// server: loading patient context at launch, submitting completed screenings,
// creating referrals and closing the referral loop.
package careloop

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/coolfhir"
	"github.com/sdoh-bridge/fhirbridge/domain"
	"github.com/sdoh-bridge/fhirbridge/user"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// FHIRClient is the part of the FHIR transport this service uses.
type FHIRClient interface {
	ReadWithContext(ctx context.Context, path string, target any, opts ...fhirclient.Option) error
	SearchWithContext(ctx context.Context, resourceType string, query url.Values, target any, opts ...fhirclient.Option) error
	CreateWithContext(ctx context.Context, resource any, result any, opts ...fhirclient.Option) error
	PatchWithContext(ctx context.Context, path string, operations []coolfhir.PatchOperation, result any) error
}

// PatientContext is everything loaded from the EHR when the app opens.
type PatientContext struct {
	Patient          domain.Patient        `json:"patient"`
	PriorScreenings  []fhir.Observation    `json:"priorScreenings"`
	ActiveConditions []fhir.Condition      `json:"activeConditions"`
	ActiveReferrals  []fhir.ServiceRequest `json:"activeReferrals"`
}

// ScreeningSubmission reports the resources written for one screening.
type ScreeningSubmission struct {
	QuestionnaireResponseID string   `json:"questionnaireResponseId"`
	ObservationIDs          []string `json:"observationIds"`
	ConditionIDs            []string `json:"conditionIds"`
}

// LoopClosure reports the Procedure written when a referral loop closes.
type LoopClosure struct {
	ProcedureID string `json:"procedureId"`
}

type Service struct {
	sessionManager *user.SessionManager[session.Data]
	now            func() time.Time
	// clientFactory builds the FHIR client for a session. Swapped in tests.
	clientFactory func(ctx context.Context, sessionData *session.Data) (FHIRClient, error)
}

func New(sessionManager *user.SessionManager[session.Data]) *Service {
	return &Service{
		sessionManager: sessionManager,
		now:            time.Now,
		clientFactory: func(ctx context.Context, sessionData *session.Data) (FHIRClient, error) {
			return coolfhir.NewAuthenticatedClient(ctx, sessionData)
		},
	}
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /patient-context", s.withSession(s.handlePatientContext))
	mux.HandleFunc("POST /screenings", s.withSession(s.handleSubmitScreening))
	mux.HandleFunc("POST /referrals", s.withSession(s.handleCreateReferral))
	mux.HandleFunc("POST /referrals/close", s.withSession(s.handleCloseReferralLoop))
}

type sessionHandler func(response http.ResponseWriter, request *http.Request, sessionData *session.Data, client FHIRClient)

// withSession rejects unauthenticated requests and hands authenticated ones a
// FHIR client bound to the session's launch context.
func (s *Service) withSession(handler sessionHandler) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		sessionData := s.sessionManager.Get(request)
		if sessionData == nil || !sessionData.Authenticated() {
			coolfhir.WriteOperationOutcomeFromError(&coolfhir.ErrorWithCode{
				Message:    coolfhir.ErrNotAuthenticated.Error(),
				StatusCode: http.StatusUnauthorized,
			}, request.URL.Path, response)
			return
		}
		client, err := s.clientFactory(request.Context(), sessionData)
		if err != nil {
			coolfhir.WriteOperationOutcomeFromError(err, request.URL.Path, response)
			return
		}
		handler(response, request, sessionData, client)
	}
}

// practitionerID resolves the requesting practitioner, preferring an explicit
// value over the launch token's fhirUser claim.
func practitionerID(explicit string, sessionData *session.Data) string {
	if explicit != "" {
		return explicit
	}
	return strings.TrimPrefix(sessionData.FHIRUser, "Practitioner/")
}
