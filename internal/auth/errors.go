package auth

import "errors"

// Errors returned by Authenticator.Authenticate.
var (
	ErrMissingToken   = errors.New("auth: missing token")
	ErrMalformedToken = errors.New("auth: malformed token")
	ErrBadSignature   = errors.New("auth: bad signature")
	ErrExpired        = errors.New("auth: token expired")
	ErrMissingClaim   = errors.New("auth: missing or empty user_id claim")
)
