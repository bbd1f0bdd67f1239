package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthenticatorResolvesCaller(t *testing.T) {
	var caller [20]byte
	caller[19] = 0x42
	auth := NewAuthenticator(AuthConfig{HMACSecret: "secret", Issuer: "farm", Audience: []string{"rpc"}}, nil)
	token, err := SignToken("secret", "farm", []string{"rpc"}, caller, time.Minute)
	require.NoError(t, err)

	var seen [20]byte
	var authenticated bool
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, authenticated = Caller(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, authenticated)
	require.Equal(t, caller, seen)

	authenticated = false
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.False(t, authenticated)
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	var caller [20]byte
	caller[19] = 1
	auth := NewAuthenticator(AuthConfig{HMACSecret: "secret", Issuer: "farm"}, nil)

	wrongSecret, err := SignToken("other", "farm", nil, caller, time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(wrongSecret)
	require.Error(t, err)

	wrongIssuer, err := SignToken("secret", "elsewhere", nil, caller, time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(wrongIssuer)
	require.Error(t, err)

	zeroSubject, err := SignToken("secret", "farm", nil, [20]byte{}, time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(zeroSubject)
	require.Error(t, err)

	handler := auth.Middleware(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wrongSecret)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
