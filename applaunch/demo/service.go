// Package demo implements an unauthenticated app launch against a sandbox
// FHIR server, for demos and local development. It must be explicitly enabled.
package demo

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/user"
	"github.com/sdoh-bridge/fhirbridge/util"
)

type Config struct {
	Enabled     bool   `koanf:"enabled"`
	FHIRBaseURL string `koanf:"fhirbaseurl"`
}

func New(config Config, sessionManager *user.SessionManager[session.Data], landingURL *url.URL) *Service {
	return &Service{
		config:         config,
		sessionManager: sessionManager,
		landingURL:     landingURL,
	}
}

type Service struct {
	config         Config
	sessionManager *user.SessionManager[session.Data]
	landingURL     *url.URL
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /demo-app-launch", func(response http.ResponseWriter, request *http.Request) {
		values, ok := util.GetQueryParams(response, request, "patient")
		if !ok {
			return
		}
		s.sessionManager.Create(response, session.Data{
			FHIRBaseURL: s.config.FHIRBaseURL,
			PatientID:   values["patient"],
			EncounterID: request.URL.Query().Get("encounter"),
			Demo:        true,
		})
		log.Info().Msgf("Demo app launch (patient=%s)", values["patient"])
		http.Redirect(response, request, s.landingURL.String(), http.StatusFound)
	})
}
