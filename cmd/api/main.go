package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Bad signing key is a startup failure, never a per-request one.
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatal("invalid signing key", zap.Error(err))
	}
	tokenService := auth.NewTokenService(signer, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	memberRepo := repository.NewMemberRepository(pg.PoolHandle())
	refreshRepo := repository.NewRefreshRepository(redis.Client, cfg.Auth.StoreTimeout())
	revocationRepo := repository.NewRevocationRepository(redis.Client, cfg.Auth.StoreTimeout())

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	sessionService := service.NewSessionService(service.SessionDependencies{
		MemberRepo:     memberRepo,
		TokenService:   tokenService,
		Signer:         signer,
		RefreshRepo:    refreshRepo,
		RevocationRepo: revocationRepo,
		Dispatcher:     dispatcher,
	}, logger)
	memberService := service.NewMemberService(memberRepo, cfg.Auth.BcryptCost, dispatcher, logger)

	metrics := observability.NewMetrics()
	gate := auth.NewGate(signer, revocationRepo, metrics, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(sessionService, memberService, cfg.Auth),
		Members: handlers.NewMembersHandler(memberService),
		Gate:    gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
