package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
)

type stubMemberRepo struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]*domain.Member
	byEmail map[string]*domain.Member
}

func newStubMemberRepo() *stubMemberRepo {
	return &stubMemberRepo{
		nextID:  1,
		byID:    make(map[string]*domain.Member),
		byEmail: make(map[string]*domain.Member),
	}
}

func (s *stubMemberRepo) Create(_ context.Context, member *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID == "" {
		member.ID = strconv.Itoa(s.nextID)
		s.nextID++
	}
	member.CreatedAt = time.Now()
	member.UpdatedAt = member.CreatedAt
	s.byID[member.ID] = member
	s.byEmail[member.Email] = member
	return nil
}

func (s *stubMemberRepo) GetByID(_ context.Context, id string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member, ok := s.byID[id]; ok {
		return member, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubMemberRepo) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member, ok := s.byEmail[email]; ok {
		return member, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubMemberRepo) List(_ context.Context, _, _ int) ([]*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Member, 0, len(s.byID))
	for _, member := range s.byID {
		out = append(out, member)
	}
	return out, nil
}

func newAuthApp(t *testing.T) *fiber.App {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	signer, err := auth.NewSigner("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	tokens := auth.NewTokenService(signer, 15*time.Minute, 24*time.Hour)

	members := newStubMemberRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, members.Create(context.Background(), &domain.Member{
		Name:         "Existing Member",
		Email:        "member@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.MemberStatusActive,
	}))

	refreshRepo := repository.NewRefreshRepository(client, time.Second)
	revocationRepo := repository.NewRevocationRepository(client, time.Second)
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	sessions := service.NewSessionService(service.SessionDependencies{
		MemberRepo:     members,
		TokenService:   tokens,
		Signer:         signer,
		RefreshRepo:    refreshRepo,
		RevocationRepo: revocationRepo,
		Dispatcher:     dispatcher,
	}, logger)
	memberService := service.NewMemberService(members, bcrypt.MinCost, dispatcher, logger)

	authCfg := config.AuthConfig{CookieSecure: true}
	metrics := observability.NewMetrics()
	gate := auth.NewGate(signer, revocationRepo, metrics, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler("auth-service", "test", nil, nil),
		Auth:    handlers.NewAuthHandler(sessions, memberService, authCfg),
		Members: handlers.NewMembersHandler(memberService),
		Gate:    gate,
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any, mutate func(*http.Request)) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(raw, &envelope))
	data, _ := envelope["data"].(map[string]any)
	return data
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func login(t *testing.T, app *fiber.App) (accessToken string, refreshCookie *http.Cookie) {
	t.Helper()

	resp := postJSON(t, app, "/auth/login", map[string]string{
		"email":    "member@example.com",
		"password": "secret",
	}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	authData, _ := data["auth"].(map[string]any)
	accessToken, _ = authData["access_token"].(string)
	require.NotEmpty(t, accessToken)

	refreshCookie = cookieByName(resp, auth.CookieRefreshAuthorization)
	require.NotNil(t, refreshCookie, "login must set the refresh cookie")
	return accessToken, refreshCookie
}

func TestRegister(t *testing.T) {
	app := newAuthApp(t)

	resp := postJSON(t, app, "/auth/register", map[string]string{
		"name":     "New Member",
		"email":    "new@example.com",
		"password": "secret",
	}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, "USER", data["role"])
	assert.NotContains(t, data, "password_hash")
}

func TestLoginSetsRefreshCookieOnly(t *testing.T) {
	app := newAuthApp(t)

	_, refreshCookie := login(t, app)
	assert.True(t, refreshCookie.HttpOnly)
	assert.True(t, refreshCookie.Secure)
	assert.Equal(t, "/auth", refreshCookie.Path)

	resp := postJSON(t, app, "/auth/login", map[string]string{
		"email":    "member@example.com",
		"password": "secret",
	}, nil)
	defer resp.Body.Close()
	assert.Nil(t, cookieByName(resp, auth.CookieAccessToken),
		"API login leaves the access token out of cookies")
}

func TestBrowserLoginAlsoSetsAccessCookie(t *testing.T) {
	app := newAuthApp(t)

	resp := postJSON(t, app, "/auth/login?cookie=true", map[string]string{
		"email":    "member@example.com",
		"password": "secret",
	}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessCookie := cookieByName(resp, auth.CookieAccessToken)
	require.NotNil(t, accessCookie)
	assert.True(t, accessCookie.HttpOnly)
}

func TestRefreshRotatesCookie(t *testing.T) {
	app := newAuthApp(t)

	_, refreshCookie := login(t, app)

	resp := postJSON(t, app, "/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(refreshCookie)
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	assert.NotEmpty(t, data["access_token"])

	rotated := cookieByName(resp, auth.CookieRefreshAuthorization)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refreshCookie.Value, rotated.Value, "refresh rotates the cookie value")

	// The old cookie is a replay now.
	resp = postJSON(t, app, "/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(refreshCookie)
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshWithoutCookie(t *testing.T) {
	app := newAuthApp(t)

	resp := postJSON(t, app, "/auth/refresh", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newAuthApp(t)

	accessToken, _ := login(t, app)

	resp := postJSON(t, app, "/auth/logout", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	meResp, err := app.Test(req)
	require.NoError(t, err)
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
}

func TestMeReturnsPrincipal(t *testing.T) {
	app := newAuthApp(t)

	accessToken, _ := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, "1", data["subject_id"])
	assert.Equal(t, "USER", data["role"])
}
