package cdshooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sdoh-bridge/fhirbridge/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func newTestMux() (*http.ServeMux, *Service) {
	service := New(Config{AppBaseURL: appBaseURL})
	service.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	return mux, service
}

func TestHandleDiscovery(t *testing.T) {
	mux, _ := newTestMux()
	response := httptest.NewRecorder()
	mux.ServeHTTP(response, httptest.NewRequest("GET", "/cds-services", nil))

	require.Equal(t, http.StatusOK, response.Code)
	var doc struct {
		Services []serviceDescriptor `json:"services"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &doc))
	require.Len(t, doc.Services, 1)
	assert.Equal(t, "patient-view", doc.Services[0].Hook)
	assert.Equal(t, "sdoh-patient-view", doc.Services[0].ID)
	assert.Contains(t, doc.Services[0].Prefetch["screenings"], "category=sdoh")
	assert.Contains(t, doc.Services[0].Prefetch["referrals"], "status=active,draft")
}

func prefetchBundle(t *testing.T, resources ...any) json.RawMessage {
	var entries []fhir.BundleEntry
	for _, resource := range resources {
		raw, err := json.Marshal(resource)
		require.NoError(t, err)
		entries = append(entries, fhir.BundleEntry{Resource: raw})
	}
	raw, err := json.Marshal(fhir.Bundle{Type: fhir.BundleTypeSearchset, Entry: entries})
	require.NoError(t, err)
	return raw
}

func invokeHook(t *testing.T, mux *http.ServeMux, hookRequest Request) *httptest.ResponseRecorder {
	body, err := json.Marshal(hookRequest)
	require.NoError(t, err)
	response := httptest.NewRecorder()
	mux.ServeHTTP(response, httptest.NewRequest("POST", "/cds-services/sdoh-patient-view", bytes.NewReader(body)))
	return response
}

func TestHandlePatientView(t *testing.T) {
	observation := fhir.Observation{
		Id:                to.Ptr("obs-1"),
		Status:            fhir.ObservationStatusFinal,
		EffectiveDateTime: to.Ptr("2025-01-20T09:00:00Z"),
	}
	referral := fhir.ServiceRequest{
		Id:      to.Ptr("sr-1"),
		Status:  fhir.RequestStatusActive,
		Intent:  fhir.RequestIntentOrder,
		Subject: fhir.Reference{Reference: to.Ptr("Patient/P001")},
	}

	t.Run("overdue screening and open referral from prefetch", func(t *testing.T) {
		mux, _ := newTestMux()
		response := invokeHook(t, mux, Request{
			Hook:    "patient-view",
			Context: Context{UserID: "Practitioner/dr-lee", PatientID: "P001"},
			Prefetch: map[string]json.RawMessage{
				"screenings": prefetchBundle(t, observation),
				"referrals":  prefetchBundle(t, referral),
			},
		})

		require.Equal(t, http.StatusOK, response.Code)
		var cards Response
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &cards))
		require.Len(t, cards.Cards, 2)
		// screening was 2025-01-20, now is 2026-03-15: 14 months
		assert.Equal(t, "SDOH Screening Overdue", cards.Cards[0].Summary)
		assert.Contains(t, cards.Cards[0].Detail, "14 months ago")
		assert.Equal(t, "1 Active SDOH Referral", cards.Cards[1].Summary)
	})

	t.Run("recent screening and no referrals yields empty card list", func(t *testing.T) {
		mux, _ := newTestMux()
		recent := observation
		recent.EffectiveDateTime = to.Ptr("2026-01-05T09:00:00Z")
		response := invokeHook(t, mux, Request{
			Hook:    "patient-view",
			Context: Context{PatientID: "P001"},
			Prefetch: map[string]json.RawMessage{
				"screenings": prefetchBundle(t, recent),
				"referrals":  prefetchBundle(t),
			},
		})

		require.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"cards":[]}`, response.Body.String())
	})

	t.Run("prefetch with multiple screenings uses the newest", func(t *testing.T) {
		mux, _ := newTestMux()
		older := observation
		newer := observation
		newer.EffectiveDateTime = to.Ptr("2026-02-01T09:00:00Z")
		response := invokeHook(t, mux, Request{
			Hook:    "patient-view",
			Context: Context{PatientID: "P001"},
			Prefetch: map[string]json.RawMessage{
				"screenings": prefetchBundle(t, older, newer),
				"referrals":  prefetchBundle(t),
			},
		})
		require.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"cards":[]}`, response.Body.String())
	})

	t.Run("missing patientId", func(t *testing.T) {
		mux, _ := newTestMux()
		response := invokeHook(t, mux, Request{Hook: "patient-view"})
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("no prefetch queries the FHIR server", func(t *testing.T) {
		var observationQuery, referralQuery string
		fhirServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/fhir+json")
			switch r.URL.Path {
			case "/Observation":
				observationQuery = r.URL.RawQuery
				_ = json.NewEncoder(w).Encode(fhir.Bundle{Type: fhir.BundleTypeSearchset})
			case "/ServiceRequest":
				referralQuery = r.URL.RawQuery
				raw, _ := json.Marshal(referral)
				_ = json.NewEncoder(w).Encode(fhir.Bundle{Type: fhir.BundleTypeSearchset, Entry: []fhir.BundleEntry{{Resource: raw}}})
			default:
				http.NotFound(w, r)
			}
		}))
		defer fhirServer.Close()

		mux, _ := newTestMux()
		response := invokeHook(t, mux, Request{
			Hook:              "patient-view",
			Context:           Context{PatientID: "P001"},
			FHIRServer:        fhirServer.URL,
			FHIRAuthorization: &Authorization{AccessToken: "t", TokenType: "Bearer"},
		})

		require.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, observationQuery, "category=sdoh")
		assert.Contains(t, referralQuery, "status=active%2Cdraft")

		var cards Response
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &cards))
		require.Len(t, cards.Cards, 2)
		assert.Equal(t, "SDOH Screening Overdue", cards.Cards[0].Summary)
		assert.Equal(t, "1 Active SDOH Referral", cards.Cards[1].Summary)
	})

	t.Run("no prefetch and no authorization is a client error", func(t *testing.T) {
		mux, _ := newTestMux()
		response := invokeHook(t, mux, Request{
			Hook:    "patient-view",
			Context: Context{PatientID: "P001"},
		})
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("unreachable FHIR server is a bad gateway", func(t *testing.T) {
		mux, _ := newTestMux()
		response := invokeHook(t, mux, Request{
			Hook:              "patient-view",
			Context:           Context{PatientID: "P001"},
			FHIRServer:        "http://127.0.0.1:1",
			FHIRAuthorization: &Authorization{AccessToken: "t", TokenType: "Bearer"},
		})
		assert.Equal(t, http.StatusBadGateway, response.Code)
	})
}
