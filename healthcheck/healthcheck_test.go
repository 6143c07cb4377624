package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleHealthCheck(t *testing.T) {
	service := New()
	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var response map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, map[string]string{"status": "up"}, response)
}
