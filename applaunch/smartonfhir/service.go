// Package smartonfhir implements the SMART App Launch (EHR launch) flow:
// SMART configuration discovery, the authorization redirect, and the
// authorization-code exchange that establishes the user session.
package smartonfhir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"github.com/sdoh-bridge/fhirbridge/user"
	"golang.org/x/oauth2"
)

const (
	launchAttemptTTL = 10 * time.Minute
	httpTimeout      = 10 * time.Second
	// launchCookieName correlates the browser with its in-flight launch
	// attempt so the status endpoint can report progress and errors.
	launchCookieName = "launch"
)

// Status tracks where a launch attempt is in the authorization flow.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusAuthorizing  Status = "authorizing"
	StatusExchanging   Status = "exchanging"
	StatusReady        Status = "ready"
	StatusStandalone   Status = "standalone"
	StatusError        Status = "error"
)

// launchAttempt is the server-side state of one in-flight launch, keyed by the
// OAuth2 state token. Keeping it server-side makes the state parameter a
// single-use CSRF token: callbacks with an unknown state fail before any
// token-endpoint traffic.
type launchAttempt struct {
	Iss    string
	Launch string
	Status Status
	Error  string
}

type smartConfiguration struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

type Service struct {
	config         Config
	sessionManager *user.SessionManager[session.Data]
	landingURL     *url.URL
	attempts       *ttlcache.Cache[string, *launchAttempt]
	httpClient     *http.Client
	now            func() time.Time
}

func New(config Config, sessionManager *user.SessionManager[session.Data], landingURL *url.URL) *Service {
	return &Service{
		config:         config,
		sessionManager: sessionManager,
		landingURL:     landingURL,
		attempts:       ttlcache.New[string, *launchAttempt](ttlcache.WithTTL[string, *launchAttempt](launchAttemptTTL)),
		httpClient:     &http.Client{Timeout: httpTimeout},
		now:            time.Now,
	}
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /smart-app-launch", s.handleLaunch)
	mux.HandleFunc("GET /smart-app-launch/callback", s.handleCallback)
	mux.HandleFunc("GET /smart-app-launch/status", s.handleStatus)
	mux.HandleFunc("POST /logout", s.handleLogout)
}

// handleLaunch starts the EHR launch: it discovers the issuer's OAuth2
// endpoints and redirects the browser to the authorization endpoint with the
// launch context and a fresh state token.
func (s *Service) handleLaunch(response http.ResponseWriter, request *http.Request) {
	iss := request.URL.Query().Get("iss")
	launch := request.URL.Query().Get("launch")
	if iss == "" || launch == "" {
		http.Error(response, "Missing iss or launch parameters", http.StatusBadRequest)
		return
	}

	smartConfig, err := s.discover(request.Context(), iss)
	if err != nil {
		log.Error().Err(err).Msgf("SMART configuration discovery failed (iss=%s)", iss)
		http.Error(response, "SMART configuration discovery failed", http.StatusBadGateway)
		return
	}

	state := uuid.NewString()
	s.attempts.Set(state, &launchAttempt{Iss: iss, Launch: launch, Status: StatusAuthorizing}, ttlcache.DefaultTTL)
	http.SetCookie(response, &http.Cookie{
		Name:     launchCookieName,
		Value:    state,
		HttpOnly: true,
		MaxAge:   int(launchAttemptTTL.Seconds()),
	})

	authURL := s.oauth2Config(smartConfig).AuthCodeURL(state,
		oauth2.SetAuthURLParam("launch", launch),
		oauth2.SetAuthURLParam("aud", iss),
	)
	log.Info().Msgf("SMART app launch started (iss=%s)", iss)
	http.Redirect(response, request, authURL, http.StatusFound)
}

// handleCallback finishes the launch: it validates state and code, exchanges
// the code at the issuer's token endpoint and stores the launch context in a
// new session.
func (s *Service) handleCallback(response http.ResponseWriter, request *http.Request) {
	state := request.URL.Query().Get("state")
	code := request.URL.Query().Get("code")

	item := s.attempts.Get(state)
	if code == "" || item == nil {
		http.Error(response, "Authorization failed: state mismatch or missing code", http.StatusBadRequest)
		return
	}
	attempt := item.Value()
	attempt.Status = StatusExchanging

	smartConfig, err := s.discover(request.Context(), attempt.Iss)
	if err != nil {
		s.failAttempt(attempt, response, fmt.Errorf("SMART configuration discovery failed: %w", err))
		return
	}

	ctx := context.WithValue(request.Context(), oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth2Config(smartConfig).Exchange(ctx, code)
	if err != nil {
		s.failAttempt(attempt, response, fmt.Errorf("token exchange failed: %w", err))
		return
	}
	s.attempts.Delete(state)

	sessionData := session.Data{
		FHIRBaseURL:  attempt.Iss,
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		RefreshToken: token.RefreshToken,
		PatientID:    extraString(token, "patient"),
		EncounterID:  extraString(token, "encounter"),
		FHIRUser:     extraString(token, "fhirUser"),
		Scope:        extraString(token, "scope"),
	}
	// Some EHRs point the app at a different FHIR endpoint than the launch iss.
	if serviceURL := extraString(token, "serviceUrl"); serviceURL != "" {
		sessionData.FHIRBaseURL = serviceURL
	}
	s.sessionManager.Create(response, sessionData)
	http.SetCookie(response, &http.Cookie{Name: launchCookieName, Value: "", HttpOnly: true, MaxAge: -1})
	log.Info().Msgf("SMART app launch succeeded (patient=%s)", sessionData.PatientID)
	http.Redirect(response, request, s.landingURL.String(), http.StatusFound)
}

// handleStatus reports where the caller's launch stands. A completed launch
// is read from the session; an in-flight or failed one from the launch
// attempt the browser's launch cookie points at. The browser frontend polls
// this during and after the redirect dance.
func (s *Service) handleStatus(response http.ResponseWriter, request *http.Request) {
	status := struct {
		Status    Status `json:"status"`
		PatientID string `json:"patientId,omitempty"`
		Error     string `json:"error,omitempty"`
	}{Status: StatusInitializing}

	if sessionData := s.sessionManager.Get(request); sessionData != nil && sessionData.Authenticated() {
		status.Status = StatusReady
		if sessionData.Demo {
			status.Status = StatusStandalone
		}
		status.PatientID = sessionData.PatientID
	} else if cookie, err := request.Cookie(launchCookieName); err == nil {
		if item := s.attempts.Get(cookie.Value); item != nil {
			attempt := item.Value()
			status.Status = attempt.Status
			status.Error = attempt.Error
		}
	}
	response.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(response).Encode(status)
}

func (s *Service) handleLogout(response http.ResponseWriter, request *http.Request) {
	s.sessionManager.Destroy(response, request)
	response.WriteHeader(http.StatusNoContent)
}

func (s *Service) failAttempt(attempt *launchAttempt, response http.ResponseWriter, err error) {
	attempt.Status = StatusError
	attempt.Error = err.Error()
	log.Error().Err(err).Msg("SMART app launch failed")
	http.Error(response, "SMART app launch failed", http.StatusBadGateway)
}

// discover fetches the issuer's SMART configuration document.
func (s *Service) discover(ctx context.Context, iss string) (*smartConfiguration, error) {
	configURL := iss + "/.well-known/smart-configuration"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", configURL, response.StatusCode)
	}
	var config smartConfiguration
	if err := json.NewDecoder(response.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode SMART configuration: %w", err)
	}
	if config.AuthorizationEndpoint == "" || config.TokenEndpoint == "" {
		return nil, errors.New("SMART configuration lacks authorization or token endpoint")
	}
	return &config, nil
}

func (s *Service) oauth2Config(smartConfig *smartConfiguration) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    s.config.ClientID,
		RedirectURL: s.config.RedirectURI,
		Scopes:      []string{s.config.Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  smartConfig.AuthorizationEndpoint,
			TokenURL: smartConfig.TokenEndpoint,
			// public client: client_id goes in the form body, not basic auth
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func extraString(token *oauth2.Token, key string) string {
	value, _ := token.Extra(key).(string)
	return value
}
