package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObservabilityAssignsRequestID(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{ServiceName: "farm-test", MetricsPrefix: "farm_test_http"}, nil)
	var seen string
	handler := obs.Middleware("jsonrpc")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusTeapot, res.Code)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, res.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, "fixed-id", seen)

	metrics := httptest.NewRecorder()
	obs.MetricsHandler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metrics.Body.String()
	require.True(t, strings.Contains(body, `farm_test_http_requests_total{method="POST",route="jsonrpc",status="418"} 2`), body)
}
