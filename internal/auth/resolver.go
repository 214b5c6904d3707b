package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Cookie names the service reads credentials from.
const (
	CookieAccessToken          = "accessToken"
	CookieRefreshAuthorization = "refreshAuthorization"
	// CookieRefreshToken is the legacy refresh cookie name still accepted
	// from older clients.
	CookieRefreshToken = "refreshToken"
)

// FromHeader extracts a bearer token from the Authorization header. Absence
// or a malformed header is a normal empty result, not an error.
func FromHeader(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// FromCookie extracts the named cookie value.
func FromCookie(c *fiber.Ctx, name string) (string, bool) {
	value := c.Cookies(name)
	if value == "" {
		return "", false
	}
	return value, true
}

// ResolveAccessToken finds the candidate access token for a request. The
// header wins over the cookie: API clients send the header deliberately,
// while the cookie serves browser flows. Social-login flows rely on this
// exact precedence.
func ResolveAccessToken(c *fiber.Ctx) (string, bool) {
	if token, ok := FromHeader(c); ok {
		return token, true
	}
	return FromCookie(c, CookieAccessToken)
}

// ResolveRefreshToken finds the candidate refresh token. Refresh tokens
// travel only in HttpOnly cookies, never in headers or bodies.
func ResolveRefreshToken(c *fiber.Ctx) (string, bool) {
	if token, ok := FromCookie(c, CookieRefreshAuthorization); ok {
		return token, true
	}
	return FromCookie(c, CookieRefreshToken)
}
