package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doud-FR/Wiki/internal/authz"
)

func TestObserveDecision(t *testing.T) {
	m := New()
	m.ObserveDecision(authz.Result{Decision: authz.Allow, Reason: authz.ReasonAdmin})
	m.ObserveDecision(authz.Result{Decision: authz.Deny, Reason: authz.ReasonDirectDeny})
	m.ObserveDecision(authz.Result{Decision: authz.Deny, Reason: authz.ReasonDirectDeny})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("allow", "admin")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("deny", "direct deny")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveDecision(authz.Result{Decision: authz.Deny, Reason: authz.ReasonNoMatch})
	m.ObserveRequest("/api/health", http.MethodGet, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wiki_authz_decisions_total{decision="deny",reason="no matching permission"} 1`)
	assert.Contains(t, string(body), `wiki_http_request_duration_seconds_count{code="200",method="GET",route="/api/health"} 1`)
}
