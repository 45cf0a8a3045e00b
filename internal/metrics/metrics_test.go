package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", 204, 10*time.Millisecond)
	m.ObserveRequest("POST", 401, 10*time.Millisecond)
	m.ObserveRequest("POST", 0, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "error")))
}

func TestObserveCache(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveCache("tags", true)
	m.ObserveCache("tags", true)
	m.ObserveCache("tags", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("tags")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("tags")))
}

func TestObserveGuardAndNavigation(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveGuard("auth", "redirect")
	m.ObserveNavigation("Invoices", "redirected")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("auth", "redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Navigations.WithLabelValues("Invoices", "redirected")))
}

func TestObserveErrorIgnoresEmptyCode(t *testing.T) {
	reg, m := NewRegistry()

	m.ObserveError("", "apiclient")
	m.ObserveError("AUTH-003", "apiclient")

	count, err := testutil.GatherAndCount(reg, "finpilot_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", 200, time.Second)
		m.ObserveUnauthorized("session", "cleared")
		m.ObserveToken(false)
		m.ObserveNavigation("Home", "allowed")
		m.ObserveGuard("auth", "allow")
		m.ObserveCache("tags", true)
		m.ObserveOnboarding("home")
		m.ObserveConfirmAttempt("claim", false)
		m.ObserveCommand("auth login", true, time.Second)
		m.ObserveError("AUTH-001", "cmd")
	})
}

func TestDefaultRegistry(t *testing.T) {
	Reset()
	defer Reset()

	first := GetDefault()
	second := GetDefault()
	assert.Same(t, first, second)
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveCommand("invoices list", true, 20*time.Millisecond)

	path := filepath.Join(t.TempDir(), "finpilot.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `finpilot_command_executions_total{command="invoices list",success="true"} 1`))
}
