package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/zapikart/shopify-mpwa/docs"
	"github.com/zapikart/shopify-mpwa/internal/config"
	"github.com/zapikart/shopify-mpwa/internal/handlers"
	"github.com/zapikart/shopify-mpwa/internal/metrics"
	"github.com/zapikart/shopify-mpwa/internal/middleware"
	"github.com/zapikart/shopify-mpwa/internal/repositories"
	"github.com/zapikart/shopify-mpwa/internal/routes"
	"github.com/zapikart/shopify-mpwa/internal/services"
	"github.com/zapikart/shopify-mpwa/internal/utils"
)

func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting cod relay",
		"port", cfg.Server.Port,
		"session_backend", cfg.Session.Backend,
		"log_level", cfg.LogLevel,
	)

	var workers sync.WaitGroup
	defer workers.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Session store ===
	var sessions repositories.OtpSessionRepository
	switch strings.ToLower(cfg.Session.Backend) {
	case "redis":
		store := repositories.NewRedisOtpSessionRepository(
			cfg.Session.Redis.Addr,
			cfg.Session.Redis.Password,
			cfg.Session.Redis.DB,
		)
		// claims must outlive the slowest create-order call made under them
		store.SetLockTTL(2 * cfg.Shopify.Timeout)
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("redis close failed", "error", err)
			}
		}()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Session.Redis.Addr, err)
		}
		sessions = store
	default:
		store := repositories.NewMemoryOtpSessionRepository()
		log.Warn("memory session backend: OTP sessions are lost on restart and not shared between instances")
		workers.Add(1)
		go func() {
			defer workers.Done()
			runJanitor(ctx, store, cfg.Session.SweepInterval)
		}()
		sessions = store
	}

	// === Services ===
	m := metrics.New()

	mpwa := utils.NewMPWAClientWithOptions(
		cfg.MPWA.APIKey,
		cfg.MPWA.Sender,
		cfg.MPWA.Footer,
		cfg.MPWA.Endpoint,
		cfg.MPWA.Timeout,
		cfg.MPWA.DryRun,
	)
	notifier := services.NewNotificationService(mpwa, cfg.MPWA.Timeout*2, m)

	shopify := services.NewShopifyClient(
		cfg.Shopify.StoreDomain,
		cfg.Shopify.AccessToken,
		cfg.Shopify.APIVersion,
		cfg.Shopify.Timeout,
	)

	alerts, err := services.NewTelegramAlerts(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		// алерты не обязательны для оформления заказа
		log.Warn("telegram alerts disabled", "error", err)
		alerts = nil
	}

	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	checkoutService := services.NewCheckoutService(
		sessions,
		services.NewOrderBuilder(cfg.Shopify.Country),
		shopify,
		notifier,
		alerts,
		m,
		services.CheckoutOptions{
			OTPTTL:      cfg.Session.OTPTTL,
			MaxAttempts: cfg.Session.MaxAttempts,
		},
	)
	eventsService := services.NewOrderEventsService(notifier, emailService)

	// === Handlers ===
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(eventsService)

	// === Gin ===
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log, m))
	routes.SetupRoutes(router, checkoutHandler, webhookHandler, m.Handler())

	// === Run ===
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.KeepAlive.Interval > 0 {
		target := cfg.KeepAlive.URL
		if target == "" {
			target = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			runKeepAlive(ctx, target, cfg.KeepAlive.Interval)
		}()
	}

	select {
	case err := <-serveErr:
		stop()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// недоставленные сообщения и алерты дописываем до выхода
	checkoutService.Wait()
	eventsService.Wait()
	notifier.Wait()

	log.Info("server stopped gracefully")
	return nil
}
