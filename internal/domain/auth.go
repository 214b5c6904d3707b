package domain

import "time"

// TokenCategory distinguishes access tokens from refresh tokens.
type TokenCategory string

const (
	TokenCategoryAccess  TokenCategory = "access"
	TokenCategoryRefresh TokenCategory = "refresh"
)

// Principal represents the authenticated caller, rebuilt per request from a
// validated token and never persisted.
type Principal struct {
	SubjectID string
	Role      Role
	Category  TokenCategory
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Token carries metadata about an issued token.
type Token struct {
	ID        string
	SubjectID string
	Role      Role
	Category  TokenCategory
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshRecord is the single live refresh entry for a subject.
type RefreshRecord struct {
	SubjectID  string
	TokenValue string
	ExpiresAt  time.Time
}

// RevocationEntry blacklists an access token until its natural expiry.
type RevocationEntry struct {
	TokenValue string
	Reason     string
	ExpiresAt  time.Time
}
