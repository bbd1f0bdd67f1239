package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"rpc": {RatePerSecond: 1, Burst: 1}}, nil)
	handler := limiter.Middleware("rpc")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
}

func TestRateLimiterSeparatesClientsAndRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"rpc": {RatePerSecond: 1, Burst: 1},
		"ws":  {RatePerSecond: 1, Burst: 1},
	}, nil)
	rpc := limiter.Middleware("rpc")(okHandler())
	ws := limiter.Middleware("ws")(okHandler())

	tenantA := httptest.NewRequest(http.MethodPost, "/", nil)
	tenantA.Header.Set("X-API-Key", "tenant-A")
	tenantB := httptest.NewRequest(http.MethodPost, "/", nil)
	tenantB.Header.Set("X-API-Key", "tenant-B")

	for _, tc := range []struct {
		handler http.Handler
		req     *http.Request
	}{{rpc, tenantA}, {rpc, tenantB}, {ws, tenantA}} {
		res := httptest.NewRecorder()
		tc.handler.ServeHTTP(res, tc.req)
		require.Equal(t, http.StatusOK, res.Code)
	}
}

func TestRateLimiterUnknownKeyPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, nil)
	handler := limiter.Middleware("missing")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, res.Code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"rpc": {RatePerSecond: 1, Burst: 1}}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	limiter.obtainLimiter("a", RateLimit{RatePerSecond: 1, Burst: 1})
	require.Len(t, limiter.visitors, 1)
	now = now.Add(10 * time.Minute)
	limiter.obtainLimiter("b", RateLimit{RatePerSecond: 1, Burst: 1})
	require.Len(t, limiter.visitors, 1)
	_, ok := limiter.visitors["b"]
	require.True(t, ok)
}
