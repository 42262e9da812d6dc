package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/members", "200", 15*time.Millisecond)
	m.ObserveUpsert("created")
	m.ObserveUpsert("updated")
	m.ObserveUpsert("updated")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/members", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.upserts.WithLabelValues("updated")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contributions_month_upserts_total{outcome="created"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Second)
	m.InflightInc()
	m.InflightDec()
	m.ObserveUpsert("error")
	m.ObserveDelete("ok")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
