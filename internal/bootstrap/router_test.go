package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GoSim-25-26J-441/playground-sync/config"
	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/service"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/kv"
)

func newTestRouter(t *testing.T, rps int) *gin.Engine {
	t.Helper()
	SetGinMode("test")

	backend := kv.NewMemoryBackend()
	session := auth.NewSession(nil, nil)
	reg := prometheus.NewRegistry()
	m := metrics.NewSyncMetrics(reg)
	coord := service.NewCoordinator(repository.NewLocalRepository(backend), nil, session, service.Options{Metrics: m})
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Close(context.Background()) })

	return BuildRouter(RouterDeps{
		ServiceName:    "playground-sync",
		Version:        "test",
		Logger:         zaptest.NewLogger(t),
		AllowedOrigins: []string{"http://localhost:5173"},
		RateLimitRPS:   rps,
		RateLimitBurst: 1,
		Coordinator:    coord,
		Session:        session,
		Local:          backend,
		Gatherer:       reg,
	})
}

func TestBuildRouter_Routes(t *testing.T) {
	r := newTestRouter(t, 0)

	for _, path := range []string{"/health", "/api/v1/session", "/api/v1/workspace", "/api/v1/projects"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"), path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "playground_local_writes_total"))
}

func TestBuildRouter_CORS(t *testing.T) {
	r := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/workspace", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_RateLimitsAPI(t *testing.T) {
	r := newTestRouter(t, 1)

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}

func TestOpenLocalBackend(t *testing.T) {
	ctx := context.Background()

	b, err := OpenLocalBackend(ctx, config.LocalConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &kv.MemoryBackend{}, b)

	b, err = OpenLocalBackend(ctx, config.LocalConfig{Backend: "sqlite", SQLitePath: t.TempDir() + "/p.db"})
	require.NoError(t, err)
	assert.NoError(t, b.Ping(ctx))
	assert.NoError(t, b.Close())

	_, err = OpenLocalBackend(ctx, config.LocalConfig{Backend: "floppy"})
	assert.Error(t, err)
}

func TestOpenRemote_None(t *testing.T) {
	remote, err := OpenRemote(context.Background(), &config.RemoteConfig{Provider: "none"}, auth.NewSession(nil, nil), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, remote.Store)
	assert.NoError(t, remote.Close())

	_, err = OpenRemote(context.Background(), &config.RemoteConfig{Provider: "dynamo"}, auth.NewSession(nil, nil), zaptest.NewLogger(t))
	assert.Error(t, err)
}
