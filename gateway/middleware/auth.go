package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"unitfarm/native/common"
)

type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   []string
	ClockSkew  time.Duration
}

type contextKey string

const (
	ContextKeyToken  contextKey = "farm.token"
	ContextKeyCaller contextKey = "farm.caller"
)

// ErrNoCaller is returned when a call needs an authenticated caller.
var ErrNoCaller = errors.New("auth: bearer token required")

// Authenticator verifies HMAC-signed bearer tokens and resolves the caller
// identity from the subject claim.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, logger: logger, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Middleware attaches the caller to the request context when a bearer token
// is present. Anonymous requests pass through; a token that fails
// verification is rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := a.Verify(tokenString)
		if err != nil {
			a.logger.Warn("auth: token rejected", "error", err, "path", r.URL.Path)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyToken, tokenString)
		ctx = context.WithValue(ctx, ContextKeyCaller, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verify parses the token and returns the caller named by its subject.
func (a *Authenticator) Verify(tokenString string) ([20]byte, error) {
	if len(a.secret) == 0 {
		return [20]byte{}, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return [20]byte{}, err
	}
	if !token.Valid {
		return [20]byte{}, errors.New("token invalid")
	}
	if err := validateAudience(claims.Audience, a.cfg.Audience); err != nil {
		return [20]byte{}, err
	}
	caller, err := common.ParseAddress(claims.Subject)
	if err != nil || caller == ([20]byte{}) {
		return [20]byte{}, errors.New("subject is not an account address")
	}
	return caller, nil
}

// Caller returns the authenticated caller carried by ctx.
func Caller(ctx context.Context) ([20]byte, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).([20]byte)
	return caller, ok
}

// RequireCaller returns the authenticated caller or ErrNoCaller.
func RequireCaller(ctx context.Context) ([20]byte, error) {
	caller, ok := Caller(ctx)
	if !ok {
		return [20]byte{}, ErrNoCaller
	}
	return caller, nil
}

// SignToken issues an HS256 token naming caller as its subject.
func SignToken(secret, issuer string, audience []string, caller [20]byte, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  common.FormatAddress(caller),
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func validateAudience(got jwt.ClaimStrings, want []string) error {
	if len(want) == 0 {
		return nil
	}
	for _, aud := range got {
		for _, expected := range want {
			if aud == expected {
				return nil
			}
		}
	}
	return errors.New("audience mismatch")
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
