package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// MemberService covers account creation and lookups for the self-scoped and
// admin endpoints.
type MemberService struct {
	members    repository.MemberRepository
	bcryptCost int
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewMemberService builds the service.
func NewMemberService(members repository.MemberRepository, bcryptCost int, dispatcher events.Dispatcher, logger *zap.Logger) *MemberService {
	return &MemberService{members: members, bcryptCost: bcryptCost, dispatcher: dispatcher, logger: logger}
}

// Register creates a new member account with the USER role.
func (s *MemberService) Register(ctx context.Context, name, email, password string) (*domain.Member, error) {
	if _, err := s.members.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	member := &domain.Member{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.MemberStatusActive,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMemberRegistered,
			SubjectID: member.ID,
			Role:      member.Role,
			Timestamp: time.Now(),
		})
	}
	return member, nil
}

// GetMember looks up one member by id.
func (s *MemberService) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"id": id})
		}
		return nil, err
	}
	return member, nil
}

// ListMembers returns a page of members, newest first.
func (s *MemberService) ListMembers(ctx context.Context, limit, offset int) ([]*domain.Member, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.members.List(ctx, limit, offset)
}
