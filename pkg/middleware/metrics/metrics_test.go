package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollect_UsesNormalizedURIAndSkips(t *testing.T) {
	SetPathNormalizer(func(r *http.Request) string { return "/accounts/{id}" })
	defer SetPathNormalizer(func(r *http.Request) string { return r.URL.Path })
	AddMetricsSkipPaths(" /ping ", "")

	h := Collect()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	uri := totalHttpRequestsToUri.WithLabelValues("418", "/accounts/{id}", http.MethodGet)
	before := testutil.ToFloat64(uri)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/accounts/a-1", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(uri))

	all := testutil.ToFloat64(totalHttpRequests.WithLabelValues("418", http.MethodGet))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, all, testutil.ToFloat64(totalHttpRequests.WithLabelValues("418", http.MethodGet)))
}

func TestCollect_UnroutedLabelAndRole(t *testing.T) {
	SetPathNormalizer(func(*http.Request) string { return "" })
	defer SetPathNormalizer(func(r *http.Request) string { return r.URL.Path })

	h := Collect()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	uri := totalHttpRequestsToUri.WithLabelValues("404", UnroutedLabel, http.MethodGet)
	role := totalHttpRequestsFromRole.WithLabelValues("operator")
	beforeURI, beforeRole := testutil.ToFloat64(uri), testutil.ToFloat64(role)

	req := httptest.NewRequest(http.MethodGet, "/wp-login.php", nil)
	req = req.WithContext(auth.WithUser(req.Context(), auth.User{Username: "alice", Role: auth.Role{Name: "operator"}}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, beforeURI+1, testutil.ToFloat64(uri))
	assert.Equal(t, beforeRole+1, testutil.ToFloat64(role))
}

func TestCountDispatchAndObserveBackend(t *testing.T) {
	c := dispatchTotal.WithLabelValues("/pay", "POST", "VALIDATION_ERROR")
	before := testutil.ToFloat64(c)
	CountDispatch("/pay", "POST", "VALIDATION_ERROR")
	assert.Equal(t, before+1, testutil.ToFloat64(c))

	b := backendCalls.WithLabelValues("createPayment", "write", "ok")
	before = testutil.ToFloat64(b)
	ObserveBackend("createPayment", "write", "ok", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(b))
}
