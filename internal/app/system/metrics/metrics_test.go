package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.GroupCreated()
	m.Joined("new_user")
	m.OTPSent(false)
	m.Marked(3)
	m.Conflict()
	m.SetTotal("users", 4)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/private/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private/payment/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := testutil.ToFloat64(m.RequestCount.WithLabelValues(http.MethodGet, "/private/payment/{id}", "404"))
	assert.Equal(t, float64(2), got)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.GroupCreated()
	m.Joined("existing")
	m.Joined("existing")
	m.OTPSent(true)
	m.OTPSent(false)
	m.Marked(0)
	m.Marked(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GroupsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Joins.WithLabelValues("existing")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OTPMail.WithLabelValues("failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PaymentsMarked))

	m.SetTotal("groups", 7)
	m.SetTotal("groups", 5)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.Totals.WithLabelValues("groups")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.GroupCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "grouphub_membership_groups_created_total 1")
}
