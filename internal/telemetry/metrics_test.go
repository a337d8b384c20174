package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestMetrics_ServesOTelCounters(t *testing.T) {
	m, err := NewMetrics("mavi-api-test", "test")
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown(context.Background()) }) //nolint:errcheck

	counter, err := otel.Meter("telemetry-test").Int64Counter("print_jobs_enqueued_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "print_jobs_enqueued_total")
	assert.Contains(t, string(body), `service_name="mavi-api-test"`)
	assert.NotContains(t, string(body), "otel_scope_info")
}
