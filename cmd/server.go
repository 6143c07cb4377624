package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sdoh-bridge/fhirbridge/applaunch/demo"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/applaunch/smartonfhir"
	"github.com/sdoh-bridge/fhirbridge/careloop"
	"github.com/sdoh-bridge/fhirbridge/cdshooks"
	"github.com/sdoh-bridge/fhirbridge/healthcheck"
	"github.com/sdoh-bridge/fhirbridge/user"
)

const sessionLifetime = time.Hour

func Start(config Config) error {
	// Set up dependencies
	httpHandler := http.NewServeMux()
	sessionManager := user.NewSessionManager[session.Data](sessionLifetime)
	baseURL, err := url.Parse(config.Public.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid public base URL: %w", err)
	}
	landingURL := baseURL.JoinPath("app")
	if config.CDSHooks.AppBaseURL == "" {
		config.CDSHooks.AppBaseURL = config.Public.BaseURL
	}

	// Register services
	services := []Service{
		smartonfhir.New(config.AppLaunch.SmartOnFHIR, sessionManager, landingURL),
		careloop.New(sessionManager),
		cdshooks.New(config.CDSHooks),
		healthcheck.New(),
	}
	if config.AppLaunch.Demo.Enabled {
		services = append(services, demo.New(config.AppLaunch.Demo, sessionManager, landingURL))
	}

	for _, service := range services {
		service.RegisterHandlers(httpHandler)
	}

	// Start HTTP server
	err = http.ListenAndServe(config.Public.Address, httpHandler)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

type Service interface {
	RegisterHandlers(mux *http.ServeMux)
}
