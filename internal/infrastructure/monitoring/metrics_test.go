package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndependentRegistries(t *testing.T) {
	// Two collectors must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()

	a.InvocationStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.InvocationsActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.InvocationsActive))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()

	timer := NewTimer(m, "install-node")
	assert.Equal(t, int64(1), m.Snapshot().ActiveInvocations)
	timer.Stop("failure")

	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.ActiveInvocations)
	assert.Equal(t, int64(1), snap.TotalInvocations)
	assert.Equal(t, int64(1), snap.FailedInvocations)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("install-node", "failure")))
}

func TestShellState(t *testing.T) {
	m := NewMetrics()
	states := []string{"uninitialized", "ready", "closing", "terminated"}

	m.SetShellState("ready", states)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShellState.WithLabelValues("ready")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ShellState.WithLabelValues("closing")))

	m.SetShellState("closing", states)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ShellState.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShellState.WithLabelValues("closing")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "oneclick_http_requests_total")
	assert.Contains(t, w.Body.String(), "oneclick_uptime_seconds")
}
