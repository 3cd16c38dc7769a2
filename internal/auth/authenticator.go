// Package auth validates the bearer token presented at WebSocket upgrade.
// The Authenticator is stateless and safe for concurrent use.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
)

// Options configures token verification.
type Options struct {
	Secret []byte
	Alg    string // HS256 (default), HS384, HS512
}

// Authenticator extracts and verifies the bearer token at upgrade time.
// opts is held behind an atomic.Pointer rather than a plain field so a
// secret rotation (config.Watcher's hot-reload) can swap it without a
// lock shared with every in-flight Authenticate call.
type Authenticator struct {
	opts atomic.Pointer[Options]
}

// New creates an Authenticator. Alg defaults to HS256 when empty.
func New(opts Options) *Authenticator {
	if opts.Alg == "" {
		opts.Alg = "HS256"
	}
	a := &Authenticator{}
	a.opts.Store(&opts)
	return a
}

// Reconfigure atomically swaps the verification material, taking effect
// for every Authenticate call starting immediately after. Alg defaults to
// HS256 when empty.
func (a *Authenticator) Reconfigure(opts Options) {
	if opts.Alg == "" {
		opts.Alg = "HS256"
	}
	a.opts.Store(&opts)
}

// Authenticate extracts the token by precedence (query "token", then
// Authorization: Bearer, then Cookie "token"), verifies its signature and
// expiry, and returns the required non-empty "user_id" claim.
func (a *Authenticator) Authenticate(r *http.Request) (userID string, err error) {
	token, ok := extractToken(r)
	if !ok {
		return "", ErrMissingToken
	}

	opts := a.opts.Load()
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != method.Alg() {
			return nil, ErrMalformedToken
		}
		return opts.Secret, nil
	}, jwt.WithValidMethods([]string{method.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrBadSignature
		default:
			return "", ErrMalformedToken
		}
	}
	if !parsed.Valid {
		return "", ErrBadSignature
	}

	uid, ok := claims["user_id"].(string)
	if !ok || uid == "" {
		return "", ErrMissingClaim
	}
	return uid, nil
}

func extractToken(r *http.Request) (string, bool) {
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t, true
		}
	}
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, ErrMalformedToken
	}
}
