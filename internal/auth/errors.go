package auth

import "errors"

// Sentinel errors for token validation. Callers branch on these: an expired
// access token sends the client to the refresh flow, everything else is a
// hard reject.
var (
	ErrBadSigningKey    = errors.New("signing key missing or too short")
	ErrMalformedToken   = errors.New("malformed token")
	ErrBadSignature     = errors.New("token signature mismatch")
	ErrTokenExpired     = errors.New("token expired")
	ErrCategoryMismatch = errors.New("token category mismatch")
)
