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

// TokenPair bundles the two credentials handed to the transport layer after
// login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionService orchestrates login, refresh and logout over the token
// stores. Token values themselves are immutable; "rotation" swaps the stored
// record, never the token.
type SessionService struct {
	members    repository.MemberRepository
	tokens     *auth.TokenService
	signer     *auth.Signer
	refresh    repository.RefreshRepository
	revoked    repository.RevocationRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SessionDependencies encapsulates collaborator requirements.
type SessionDependencies struct {
	MemberRepo     repository.MemberRepository
	TokenService   *auth.TokenService
	Signer         *auth.Signer
	RefreshRepo    repository.RefreshRepository
	RevocationRepo repository.RevocationRepository
	Dispatcher     events.Dispatcher
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies, logger *zap.Logger) *SessionService {
	return &SessionService{
		members:    deps.MemberRepo,
		tokens:     deps.TokenService,
		signer:     deps.Signer,
		refresh:    deps.RefreshRepo,
		revoked:    deps.RevocationRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Login verifies the credential and issues a fresh token pair. The upsert
// replaces any prior refresh record, so a subject holds at most one live
// refresh token. Failures never reveal whether the account exists.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.Member, *TokenPair, error) {
	member, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, nil, err
	}
	if member.Status != domain.MemberStatusActive {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(member.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}

	pair, err := s.issuePair(member.ID, member.Role)
	if err != nil {
		return nil, nil, err
	}

	if err := s.refresh.Upsert(ctx, member.ID, pair.RefreshToken, time.Until(pair.RefreshExpiresAt)); err != nil {
		return nil, nil, s.mapStoreErr(err)
	}

	s.publish(ctx, events.EventSessionStarted, member.ID, member.Role, events.SessionStartedPayload{
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
	return member, pair, nil
}

// Refresh validates a presented refresh token, rotates the stored record and
// issues a new pair. Any validation or rotation failure collapses into
// SessionExpired: the client must fully re-authenticate. Rotation is atomic;
// of two concurrent calls with the same token, exactly one wins.
func (s *SessionService) Refresh(ctx context.Context, refreshValue string) (*TokenPair, error) {
	claims, err := s.signer.Verify(refreshValue)
	if err != nil {
		return nil, apperrors.NewSessionExpired()
	}
	if claims.Category != domain.TokenCategoryRefresh {
		return nil, apperrors.NewSessionExpired()
	}

	subjectID := claims.Subject

	nextRefresh, nextRefreshExp, err := s.tokens.IssueRefreshToken(subjectID, claims.Role)
	if err != nil {
		return nil, err
	}

	err = s.refresh.Rotate(ctx, subjectID, refreshValue, nextRefresh, time.Until(nextRefreshExp))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrRefreshNotFound), errors.Is(err, repository.ErrRefreshMismatch):
		s.logger.Warn("refresh rejected", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, apperrors.NewSessionExpired()
	default:
		return nil, s.mapStoreErr(err)
	}

	accessToken, accessExp, err := s.tokens.ReissueAccessToken(claims)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventSessionRefreshed, subjectID, claims.Role, events.SessionRefreshedPayload{
		Rotated:         true,
		AccessExpiresAt: accessExp,
	})
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     nextRefresh,
		RefreshExpiresAt: nextRefreshExp,
	}, nil
}

// Logout blacklists the caller's access token until its natural expiry and
// deletes the subject's refresh record. The two steps are independent: if
// one store fails the other is still attempted and the failure surfaced.
func (s *SessionService) Logout(ctx context.Context, accessValue string) error {
	claims, err := s.signer.Verify(accessValue)
	if err != nil && !errors.Is(err, auth.ErrTokenExpired) {
		return apperrors.NewUnauthenticated("invalid token")
	}
	if claims == nil || claims.Category != domain.TokenCategoryAccess {
		return apperrors.NewUnauthenticated("invalid token")
	}

	subjectID := claims.Subject
	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = claims.ExpiresAt.Time.Sub(s.now())
	}

	revokeErr := s.revoked.Revoke(ctx, accessValue, "logout", remaining)
	deleteErr := s.refresh.Delete(ctx, subjectID)

	if revokeErr == nil {
		s.publish(ctx, events.EventTokenRevoked, subjectID, claims.Role, nil)
	}
	if joined := errors.Join(revokeErr, deleteErr); joined != nil {
		return s.mapStoreErr(joined)
	}

	s.publish(ctx, events.EventSessionEnded, subjectID, claims.Role, events.SessionEndedPayload{Reason: "logout"})
	return nil
}

func (s *SessionService) issuePair(subjectID string, role domain.Role) (*TokenPair, error) {
	accessToken, accessExp, err := s.tokens.IssueAccessToken(subjectID, role)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokens.IssueRefreshToken(subjectID, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *SessionService) mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, subjectID string, role domain.Role, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Role:      role,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
