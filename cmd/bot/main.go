package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/handler"
	"github.com/set-night/vitrine/internal/middleware"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/set-night/vitrine/internal/scheduler"
	"github.com/set-night/vitrine/internal/service"
	"github.com/set-night/vitrine/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the state document
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open state backend", "error", err, "backend", cfg.StateBackend)
		os.Exit(1)
	}
	defer closeBackend()

	store := repository.NewStateStore(backend, nil)
	state := store.Load(ctx)
	slog.Info("state loaded",
		"backend", cfg.StateBackend,
		"users", len(state.Metrics.Users),
		"pending_payments", len(state.PendingPayments),
	)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(service.NewRateLimiter(config.UpdateRateLimit, config.UpdateRateWindow, nil), cfg.IsAdmin),
			middleware.Interaction(store, cfg),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	// Initialize telegram logger and delivery
	tgLogger := telegram.NewTelegramLogger(b, cfg)
	sender := telegram.NewSender(b)
	dispatcher := service.NewDispatcher(sender)

	// Initialize services
	gateway := service.NewAsaasClient(cfg.GatewayBaseURL(), cfg.AsaasAPIKey, nil)
	limiter := service.NewRateLimiter(config.ChargeRateLimit, config.ChargeRateWindow, nil)
	broadcastService := service.NewBroadcastService(store, dispatcher)
	promoService := service.NewPromoService(store, broadcastService, tgLogger, nil)
	reconciler := service.NewReconciler(store, gateway, dispatcher, tgLogger, nil, cfg.AdminIDs, cfg.AccessURL)
	checkoutService := service.NewCheckoutService(store, gateway, limiter, reconciler, tgLogger)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Store:       store,
		Catalog:     service.DefaultCatalog(cfg.AccessURL),
		Checkout:    checkoutService,
		Reconciler:  reconciler,
		Promo:       promoService,
		Referral:    service.NewReferralService(store, dispatcher, cfg.AccessURL),
		Broadcast:   broadcastService,
		Purge:       service.NewPurgeService(store, gateway, checkoutService),
		Sessions:    service.NewSessionService(nil),
		Users:       service.NewUserService(store, nil),
		Sender:      sender,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})

	// Register all handlers
	h.Register()

	// Start background jobs
	jobs := scheduler.New(
		scheduler.Job{
			Name:     "reconcile payments",
			Interval: config.ReconcileInterval,
			Run: func(ctx context.Context) error {
				report := reconciler.Tick(ctx)
				if report.Errors > 0 {
					return fmt.Errorf("%d pending payments could not be reconciled", report.Errors)
				}
				return nil
			},
		},
		scheduler.Job{
			Name:     "sweep promotions",
			Interval: config.PromotionSweepInterval,
			Run:      promoService.Sweep,
		},
	)
	jobs.Start(ctx)

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID, "admins", cfg.AdminIDsString())
	b.Start(ctx)

	// Graceful shutdown
	jobs.Stop()
	slog.Info("bot stopped gracefully")
}

// openBackend returns the configured state backend and a func releasing its
// connections.
func openBackend(ctx context.Context, cfg *config.Config) (repository.Backend, func(), error) {
	switch cfg.StateBackend {
	case config.BackendPostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		migrationsFS, err := fs.Sub(vitrine.MigrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresBackend(pool), pool.Close, nil

	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisBackend(client, cfg.RedisPrefix), func() { client.Close() }, nil

	default:
		return repository.NewFileBackend(cfg.StateFile), func() {}, nil
	}
}
