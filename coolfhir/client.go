// Package coolfhir wraps the FHIR REST transport: an authenticated client
// derived from the SMART launch session, default request configuration, and
// the JSON-Patch support the underlying library lacks.
package coolfhir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/rs/zerolog/log"
	"github.com/sdoh-bridge/fhirbridge/applaunch/session"
	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned when a FHIR operation is attempted without
// a completed SMART launch in the session.
var ErrNotAuthenticated = errors.New("not authenticated: complete SMART launch first")

// Config returns the client configuration used for all FHIR servers this
// application talks to.
func Config() *fhirclient.Config {
	config := fhirclient.DefaultConfig()
	// searches go out as GET with query parameters, not POST to /_search
	config.UsePostSearch = false
	config.Non2xxStatusHandler = func(response *http.Response, responseBody []byte) {
		log.Debug().Msgf("Non-2xx status code from FHIR server (%s %s, status=%d), content: %s", response.Request.Method, response.Request.URL, response.StatusCode, string(responseBody))
	}
	return &config
}

// Client is a bearer-authenticated FHIR REST client. Reads, searches and
// creates delegate to the wrapped library client; Patch is implemented here.
type Client struct {
	fhirclient.Client

	baseURL    *url.URL
	httpClient *http.Client
}

// NewAuthenticatedClient builds a Client from the launch session. The access
// token is injected on every request through the HTTP transport, so callers
// never handle Authorization headers themselves.
func NewAuthenticatedClient(ctx context.Context, sessionData *session.Data) (*Client, error) {
	if sessionData == nil || !sessionData.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	baseURL, err := url.Parse(sessionData.FHIRBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid FHIR base URL: %w", err)
	}
	// Demo sessions against an open sandbox have no token to inject.
	httpClient := &http.Client{}
	if sessionData.AccessToken != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: sessionData.AccessToken,
			TokenType:   sessionData.TokenType,
		}))
	}
	httpClient.Timeout = 30 * time.Second
	return &Client{
		Client:     fhirclient.New(baseURL, httpClient, Config()),
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// PatchOperation is a single RFC 6902 JSON-Patch operation.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// PatchWithContext applies a JSON-Patch to the resource at path (e.g.
// "ServiceRequest/123") and unmarshals the server's response into result when
// result is non-nil. Non-2xx responses surface as an error carrying the
// status code and the raw response body.
func (c *Client) PatchWithContext(ctx context.Context, path string, operations []PatchOperation, result any) error {
	body, err := json.Marshal(operations)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	requestURL := c.baseURL.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, requestURL.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json-patch+json")
	request.Header.Set("Accept", fhirclient.FhirJsonMediaType)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("PATCH %s: %w", path, err)
	}
	defer response.Body.Close()
	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("PATCH %s: read response: %w", path, err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("FHIR %d: %s", response.StatusCode, string(responseBody))
	}
	if result != nil {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("PATCH %s: unmarshal response: %w", path, err)
		}
	}
	return nil
}
