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

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/kirillfoster544-cpu/telegram/internal/auth"
	"github.com/kirillfoster544-cpu/telegram/internal/bot"
	"github.com/kirillfoster544-cpu/telegram/internal/cache"
	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	"github.com/kirillfoster544-cpu/telegram/internal/config"
	"github.com/kirillfoster544-cpu/telegram/internal/db"
	httphandler "github.com/kirillfoster544-cpu/telegram/internal/http"
	"github.com/kirillfoster544-cpu/telegram/internal/http/handlers"
	"github.com/kirillfoster544-cpu/telegram/internal/relay"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

func main() {
	envFiles := pflag.StringSlice("env-file", []string{".env"}, "dotenv files to load (environment variables override)")
	migrateOnly := pflag.Bool("migrate-only", false, "apply migrations and exit")
	pollTimeout := pflag.Int("poll-timeout", 60, "long-poll timeout in seconds")
	pflag.Parse()

	for _, f := range *envFiles {
		_ = godotenv.Load(f)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		fatal(logger, "failed to open database", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		fatal(logger, "failed to run migrations", err)
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return
	}

	var codeCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		defer rc.Close()
		codeCache = rc
		logger.Info("invitation code cache enabled")
	}

	// Initialize repositories
	profileRepo := repo.NewProfileRepo(database)
	pendingRepo := repo.NewPendingRepo(database)
	usageRepo := repo.NewUsageRepo(database)
	auditRepo := repo.NewAuditRepo(database)

	// Initialize relay services
	clk := clock.Real()
	engine := relay.NewEngine(
		relay.NewRegistry(profileRepo, codeCache, cfg.CodeLength, logger),
		relay.NewTracker(pendingRepo, clk, cfg.ConversationTTL),
		relay.NewCounters(usageRepo, clk),
		relay.NewAuditLog(auditRepo, clk),
		relay.EngineConfig{AdminID: cfg.AdminID, ReportLimit: cfg.AuditReportLimit},
		logger,
	)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		fatal(logger, "failed to connect to telegram", err)
	}
	api.Debug = cfg.DevMode
	adapter := bot.New(engine, bot.NewThrottledSender(api, cfg.SendRate), api.Self.UserName, logger)

	// Operator API
	limiter := httphandler.NewOperatorLimiter()
	go limiter.RunCleanup(ctx, 5*time.Minute)
	router := httphandler.NewRouter(httphandler.RouterDeps{
		Health:      handlers.NewHealthHandler(database),
		Operator:    handlers.NewOperatorHandler(engine, logger),
		JWTService:  auth.NewJWTService(cfg.OperatorJWTSecret),
		AdminID:     cfg.AdminID,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("operator API starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("operator API failed", "error", err)
			stop()
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = *pollTimeout
	updates := api.GetUpdatesChan(u)

	if err := adapter.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", "error", err)
	}
	api.StopReceivingUpdates()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("operator API forced to shutdown", "error", err)
	}

	logger.Info("relay exited")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
