package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// TokenService issues access and refresh tokens through the Signer. It never
// verifies signatures itself; callers confirm authenticity before asking for
// a reissue.
type TokenService struct {
	signer     *Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService builds the service with configured lifetimes.
func NewTokenService(signer *Signer, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}
	return &TokenService{
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccessToken signs a short-lived access token for the subject.
func (ts *TokenService) IssueAccessToken(subjectID string, role domain.Role) (string, time.Time, error) {
	return ts.issue(subjectID, role, domain.TokenCategoryAccess, ts.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the subject.
func (ts *TokenService) IssueRefreshToken(subjectID string, role domain.Role) (string, time.Time, error) {
	return ts.issue(subjectID, role, domain.TokenCategoryRefresh, ts.refreshTTL)
}

// ReissueAccessToken mints a fresh access token carrying the subject and role
// of already-verified claims. The caller is responsible for having verified
// the source token.
func (ts *TokenService) ReissueAccessToken(claims *Claims) (string, time.Time, error) {
	return ts.issue(claims.Subject, claims.Role, domain.TokenCategoryAccess, ts.accessTTL)
}

// RefreshTTL exposes the refresh lifetime for store expiry bookkeeping.
func (ts *TokenService) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenService) issue(subjectID string, role domain.Role, category domain.TokenCategory, ttl time.Duration) (string, time.Time, error) {
	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		Category: category,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := ts.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
