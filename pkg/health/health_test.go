package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, handler http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestLiveEndpoint(t *testing.T) {
	h := New()

	code, resp := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_readiness")
}

func TestReadyEndpoint_Ready(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("database", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", resp.Checks["database"])
}

func TestReadyEndpoint_PassingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("database", time.Second, func(context.Context) error {
		return nil
	})

	code, _ := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint_DrainOnShutdown(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, _ := probe(t, h.ReadyEndpoint)
	require.Equal(t, http.StatusOK, code)

	h.SetReady(false)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
