package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	members  *service.MemberService
	cfg      config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService, members *service.MemberService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{sessions: sessions, members: members, cfg: cfg}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	member, err := h.members.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewMemberResponse(member),
	})
}

// Login handles POST /auth/login. The access token is returned in the body
// for API clients; browser flows pass ?cookie=true to also receive it as an
// HttpOnly cookie. The refresh token is always cookie-only.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	member, pair, err := h.sessions.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	if c.Query("cookie") == "true" {
		h.setAccessCookie(c, pair.AccessToken, pair.AccessExpiresAt)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"member": dto.NewMemberResponse(member),
			"auth": dto.AccessTokenResponse{
				AccessToken: pair.AccessToken,
				TokenType:   "Bearer",
				ExpiresAt:   pair.AccessExpiresAt,
			},
		},
	})
}

// Refresh handles POST /auth/refresh. The rotated refresh token replaces the
// cookie; a rejected refresh clears both cookies so the client re-logs in.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshValue, ok := auth.ResolveRefreshToken(c)
	if !ok {
		h.clearSessionCookies(c)
		return apperrors.NewSessionExpired()
	}

	pair, err := h.sessions.Refresh(c.UserContext(), refreshValue)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "SESSION_EXPIRED" {
			h.clearSessionCookies(c)
		}
		return err
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	if c.Query("cookie") == "true" {
		h.setAccessCookie(c, pair.AccessToken, pair.AccessExpiresAt)
	}

	return c.JSON(fiber.Map{
		"data": dto.AccessTokenResponse{
			AccessToken: pair.AccessToken,
			TokenType:   "Bearer",
			ExpiresAt:   pair.AccessExpiresAt,
		},
	})
}

// Logout handles POST /auth/logout (protected).
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	tokenValue, ok := auth.ResolveAccessToken(c)
	if !ok {
		return apperrors.NewUnauthenticated("missing credential")
	}

	if err := h.sessions.Logout(c.UserContext(), tokenValue); err != nil {
		return err
	}

	h.clearSessionCookies(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Me handles GET /auth/me (protected).
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": dto.PrincipalResponse{
			SubjectID: principal.SubjectID,
			Role:      string(principal.Role),
		},
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieRefreshAuthorization,
		Value:    value,
		Expires:  expires,
		Path:     "/auth",
		Domain:   h.cfg.CookieDomain,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) setAccessCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieAccessToken,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	for _, cookie := range []struct {
		name string
		path string
	}{
		{auth.CookieRefreshAuthorization, "/auth"},
		{auth.CookieRefreshToken, "/auth"},
		{auth.CookieAccessToken, "/"},
	} {
		c.Cookie(&fiber.Cookie{
			Name:     cookie.name,
			Value:    "",
			Expires:  expired,
			Path:     cookie.path,
			Domain:   h.cfg.CookieDomain,
			HTTPOnly: true,
			Secure:   h.cfg.CookieSecure,
		})
	}
}
