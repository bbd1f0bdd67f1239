package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func TestBuySendsParamsAndToken(t *testing.T) {
	var seen capturedRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"account":"0x01","paid":"100","fee":"5","unitsBought":"42"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithToken("tok"))
	require.NoError(t, err)
	res, err := c.Buy(context.Background(), "0x02", big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, "5", res.Fee)
	require.Equal(t, "Bearer tok", auth)
	require.Equal(t, "farm_buy", seen.Method)
	require.Len(t, seen.Params, 1)
	var params map[string]string
	require.NoError(t, json.Unmarshal(seen.Params[0], &params))
	require.Equal(t, "100", params["value"])
	require.Equal(t, "0x02", params["referrer"])
}

func TestRPCErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"sell failed","data":"no units"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Sell(context.Background())
	require.Error(t, err)
	require.True(t, IsCode(err, -32602))
	require.Equal(t, int32(1), calls.Load())
}

func TestRetryableStatusIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"busy"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"amount":"123"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithMaxTries(3))
	require.NoError(t, err)
	balance, err := c.BalanceOf(context.Background(), "0x01")
	require.NoError(t, err)
	require.Equal(t, int64(123), balance.Int64())
	require.Equal(t, int32(2), calls.Load())
}
