package dto

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// MemberResponse is the public view of a member account.
type MemberResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMemberResponse maps the domain model, dropping the password hash.
func NewMemberResponse(member *domain.Member) MemberResponse {
	return MemberResponse{
		ID:        member.ID,
		Name:      member.Name,
		Email:     member.Email,
		Role:      string(member.Role),
		Status:    string(member.Status),
		CreatedAt: member.CreatedAt,
	}
}
