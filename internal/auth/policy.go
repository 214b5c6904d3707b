package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// CheckRole is a pure predicate over already-authenticated state; it never
// touches the token stores.
func CheckRole(principal *domain.Principal, allowed ...domain.Role) error {
	if principal == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if principal.Role == role {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// CheckSelfOrAdmin allows acting on a resource only for its owner or an
// admin, so one authenticated member cannot touch another's data.
func CheckSelfOrAdmin(principal *domain.Principal, resourceOwnerID string) error {
	if principal == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if principal.SubjectID == resourceOwnerID || principal.IsAdmin() {
		return nil
	}
	return apperrors.NewForbidden("not the resource owner")
}

// RequireRole wraps a protected route; the handler body never runs when the
// check fails.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := CheckRole(principal, allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated only demands a principal, regardless of role.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}

// RequireSelfOrAdmin guards self-scoped routes; ownerParam names the route
// parameter carrying the resource owner's id.
func RequireSelfOrAdmin(ownerParam string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := CheckSelfOrAdmin(principal, c.Params(ownerParam)); err != nil {
			return err
		}
		return c.Next()
	}
}
