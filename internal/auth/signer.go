package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// Signing keys shorter than this are rejected at startup.
const minSecretBytes = 32

// Claims describes the JWT payload shared by access and refresh tokens.
type Claims struct {
	Category domain.TokenCategory `json:"category"`
	Role     domain.Role          `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject the token was issued for.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Signer signs and verifies token claims with an HMAC secret. It performs no
// I/O and is safe for concurrent use.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner validates the signing key once at startup and fails fast on a
// missing or weak secret.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrBadSigningKey, minSecretBytes)
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign encodes and signs the claims.
func (s *Signer) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify parses and validates a token value. It returns ErrMalformedToken,
// ErrBadSignature or ErrTokenExpired so callers can react differently to
// each. On ErrTokenExpired the decoded claims are still returned, since an
// expired-but-authentic access token identifies who should refresh.
func (s *Signer) Verify(tokenValue string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenValue, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			if parsed == nil {
				return nil, ErrTokenExpired
			}
			if claims, ok := parsed.Claims.(*Claims); ok {
				return claims, ErrTokenExpired
			}
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Category != domain.TokenCategoryAccess && claims.Category != domain.TokenCategoryRefresh {
		return nil, ErrMalformedToken
	}
	if !claims.Role.Valid() {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
