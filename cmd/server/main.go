package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/Finger-Auth/internal/api/controller"
	"ctchen222/Finger-Auth/internal/api/repository"
	"ctchen222/Finger-Auth/internal/api/service"
	"ctchen222/Finger-Auth/internal/challenge"
	"ctchen222/Finger-Auth/internal/config"
	"ctchen222/Finger-Auth/internal/db"
	"ctchen222/Finger-Auth/internal/events"
	"ctchen222/Finger-Auth/internal/landmark"
	"ctchen222/Finger-Auth/internal/logger"
	"ctchen222/Finger-Auth/internal/server"
	"ctchen222/Finger-Auth/internal/session"
	"ctchen222/Finger-Auth/internal/telemetry"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.Load()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.OtelEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()
	logger.Init(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// Initialize SQLite DB; a store that fails its integrity check aborts startup.
	userDB, err := db.Connect(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer userDB.Close()

	checks := map[string]server.HealthCheck{
		"sqlite": func(ctx context.Context) error { return userDB.PingContext(ctx) },
	}

	var (
		sessions  session.Store
		publisher events.Publisher = events.Discard{}
	)
	switch cfg.SessionStore {
	case "memory":
		slog.Warn("Using in-memory sessions; they will not survive a restart")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	default:
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		publisher = events.NewRedisPublisher(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	codec, err := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	if err != nil {
		return err
	}

	// Create repositories
	userRepo := repository.NewUserRepository(userDB)

	// Create the challenge engine
	detector := landmark.NewRemoteDetector(cfg.DetectorURL, landmark.DefaultConfig(), nil)
	engine := challenge.NewEngine(detector,
		challenge.WithDetectTimeout(cfg.DetectTimeout),
		challenge.WithTTL(cfg.ChallengeTTL),
		challenge.WithRequireTarget(cfg.RequireGeneratedTarget),
	)

	// Create services
	userService := service.NewUserService(userRepo, sessions,
		service.WithPublisher(publisher),
		service.WithRequireVerifiedChallenge(cfg.RequireVerifiedChallenge),
	)
	challengeService := service.NewChallengeService(engine, sessions)

	srv := server.NewServer(server.Deps{
		Codec:               codec,
		Sessions:            sessions,
		UserController:      controller.NewUserController(userService, codec),
		ChallengeController: controller.NewChallengeController(challengeService),
		Challenges:          challengeService,
		HealthChecks:        checks,
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server exiting")
	return nil
}
