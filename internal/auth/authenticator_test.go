package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func validClaims(userID string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthenticateQueryParam(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := signToken(t, validClaims("u1"))

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	uid, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestAuthenticateBearerHeader(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := signToken(t, validClaims("u2"))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	uid, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "u2", uid)
}

func TestAuthenticateCookie(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := signToken(t, validClaims("u3"))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: tok})
	uid, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "u3", uid)
}

func TestPrecedenceQueryWinsOverHeader(t *testing.T) {
	a := New(Options{Secret: testSecret})
	qTok := signToken(t, validClaims("query-user"))
	hTok := signToken(t, validClaims("header-user"))

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+qTok, nil)
	r.Header.Set("Authorization", "Bearer "+hTok)

	uid, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "query-user", uid)
}

func TestMissingToken(t *testing.T) {
	a := New(Options{Secret: testSecret})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	_, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestExpiredToken(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := signToken(t, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	_, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestBadSignature(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("u1"))
	signed, err := tok.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+signed, nil)
	_, err = a.Authenticate(r)
	assert.Error(t, err)
}

func TestMissingClaim(t *testing.T) {
	a := New(Options{Secret: testSecret})
	tok := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	_, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestMalformedToken(t *testing.T) {
	a := New(Options{Secret: testSecret})
	r := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)
	_, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestReconfigureRotatesSecretForSubsequentCalls(t *testing.T) {
	a := New(Options{Secret: testSecret})
	rotated := []byte("rotated-secret")

	oldTok := signToken(t, validClaims("u1"))

	a.Reconfigure(Options{Secret: rotated})

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("u1"))
	signed, err := tok.SignedString(rotated)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+signed, nil)
	uid, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	r2 := httptest.NewRequest(http.MethodGet, "/ws?token="+oldTok, nil)
	_, err = a.Authenticate(r2)
	assert.Error(t, err, "a token signed with the pre-rotation secret must no longer verify")
}
