package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"unitfarm/gateway/middleware"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	account := "0x00000000000000000000000000000000000000a1"
	out, err := runCLI(t, "token", account, "--secret", "s3cret", "--issuer", "farm-test")
	require.NoError(t, err)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{HMACSecret: "s3cret", Issuer: "farm-test"}, nil)
	caller, err := auth.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, byte(0xa1), caller[19])
}

func TestBuySendsMintedToken(t *testing.T) {
	var method, bearer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		method = req.Method
		bearer = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"fee":"5","paid":"100"}}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--rpc", srv.URL, "--as", "0x00000000000000000000000000000000000000a1", "--secret", "s3cret", "buy", "100")
	require.NoError(t, err)
	require.Equal(t, "farm_buy", method)
	require.True(t, strings.HasPrefix(bearer, "Bearer "))
	require.Contains(t, out, `"fee": "5"`)
}

func TestBuyRejectsBadAmount(t *testing.T) {
	_, err := runCLI(t, "--rpc", "http://127.0.0.1:1", "buy", "ten")
	require.Error(t, err)
}
