package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingerFunc(func(context.Context) error { return nil })
	down = pingerFunc(func(context.Context) error { return errors.New("unreachable") })
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		local      Pinger
		remote     Pinger
		wantCode   int
		wantStatus string
		wantRemote string
	}{
		{name: "local only", local: up, wantCode: http.StatusOK, wantStatus: "healthy", wantRemote: "disabled"},
		{name: "both up", local: up, remote: up, wantCode: http.StatusOK, wantStatus: "healthy", wantRemote: "up"},
		{name: "remote down", local: up, remote: down, wantCode: http.StatusOK, wantStatus: "degraded", wantRemote: "down"},
		{name: "local down", local: down, remote: up, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy", wantRemote: "up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler("playground-sync", "test", tt.local, tt.remote).RegisterRoutes(r)

			for _, path := range []string{"/health", "/healthz"} {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				require.Equal(t, tt.wantCode, w.Code)

				var resp HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantStatus, resp.Status)
				assert.Equal(t, tt.wantRemote, resp.Remote)
				assert.Equal(t, "playground-sync", resp.Service)
			}
		})
	}
}
