package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		shutdown   bool
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "liveness", path: "/healthz", wantStatus: http.StatusOK, wantBody: healthStatusOK},
		{name: "liveness while shutting down", path: "/healthz", shutdown: true, wantStatus: http.StatusOK, wantBody: healthStatusOK},
		{name: "not ready yet", path: "/readyz", wantStatus: http.StatusServiceUnavailable, wantBody: healthStatusNotReady},
		{name: "ready", path: "/readyz", ready: true, wantStatus: http.StatusOK, wantBody: healthStatusOK},
		{name: "shutting down", path: "/readyz", ready: true, shutdown: true, wantStatus: http.StatusServiceUnavailable, wantBody: healthStatusNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), nil, nil)
			h := NewHealthChecker(sc)
			h.SetReady(tt.ready)
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			srv, err := NewHTTPServer(HTTPConfig{Events: http.NotFoundHandler(), Health: h})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
		})
	}
}
