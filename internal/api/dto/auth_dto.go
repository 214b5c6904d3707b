package dto

import "time"

// RegisterRequest payload for new members.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccessTokenResponse carries the access token; the refresh token travels
// only as an HttpOnly cookie and never appears in a body.
type AccessTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PrincipalResponse describes the authenticated caller.
type PrincipalResponse struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}
