package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/service"
)

// MembersHandler exposes member lookups behind the authorization policy.
type MembersHandler struct {
	members *service.MemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(members *service.MemberService) *MembersHandler {
	return &MembersHandler{members: members}
}

// Get handles GET /members/:id; the route is guarded by the self-or-admin
// policy, so the handler only fetches.
func (h *MembersHandler) Get(c *fiber.Ctx) error {
	member, err := h.members.GetMember(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// List handles GET /admin/members (admin only).
func (h *MembersHandler) List(c *fiber.Ctx) error {
	members, err := h.members.ListMembers(c.UserContext(), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	out := make([]dto.MemberResponse, 0, len(members))
	for _, member := range members {
		out = append(out, dto.NewMemberResponse(member))
	}
	return c.JSON(fiber.Map{"data": out})
}
