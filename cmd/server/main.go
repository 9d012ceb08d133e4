package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/verdantmarket/verdant/internal"
	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/cookie"
	"github.com/verdantmarket/verdant/internal/email"
	"github.com/verdantmarket/verdant/internal/handler/admin"
	"github.com/verdantmarket/verdant/internal/handler/storefront"
	"github.com/verdantmarket/verdant/internal/handler/webhook"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/notify"
	"github.com/verdantmarket/verdant/internal/postgres"
	"github.com/verdantmarket/verdant/internal/router"
	"github.com/verdantmarket/verdant/internal/routes"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
	"github.com/verdantmarket/verdant/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	// Business metrics
	telemetry.InitBusinessMetrics("verdant")

	// Event bus. The service degrades to a no-op publisher when NATS is
	// not configured; order flow never depends on the bus being up.
	var events service.EventPublisher = service.NopPublisher{}
	var bus *notify.Publisher
	if cfg.NATSUrl != "" {
		bus, err = notify.Connect(cfg.NATSUrl)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer bus.Close()
		events = bus
		logger.Info("Connected to NATS", "url", cfg.NATSUrl)
	} else {
		logger.Warn("NATS_URL not set, order events disabled")
	}

	// Payment providers
	providers := make(map[string]billing.Provider)
	if cfg.Stripe.SecretKey != "" {
		stripeProvider, err := billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		if err != nil {
			return fmt.Errorf("failed to initialize stripe provider: %w", err)
		}
		providers[stripeProvider.Name()] = stripeProvider
		logger.Info("Stripe provider initialized")
	}
	if cfg.Razorpay.KeyID != "" {
		razorpayProvider, err := billing.NewRazorpayProvider(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)
		if err != nil {
			return fmt.Errorf("failed to initialize razorpay provider: %w", err)
		}
		providers[razorpayProvider.Name()] = razorpayProvider
		logger.Info("Razorpay provider initialized")
	}
	if len(providers) == 0 {
		logger.Warn("No payment providers configured, online payments disabled")
	}

	// Guest cart cookies
	codec, err := cookie.NewCodec(cfg.GuestCartSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize cookie codec: %w", err)
	}
	cookieCfg := &cookie.Config{Secure: cfg.Env == "prod"}

	// Services
	cartService := service.NewCartService(store, logger)
	checkoutService := service.NewCheckoutService(store, events, logger)
	orderService := service.NewOrderService(store, events, logger)
	paymentService := service.NewPaymentService(store, events, logger)

	// Email worker
	if bus != nil && cfg.Email.Host != "" {
		sender := email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, logger)
		w := worker.NewWorker(bus.Conn(), store, sender, worker.Config{}, logger)
		go func() {
			if err := w.Start(ctx); err != nil {
				logger.Error("email worker stopped", "error", err)
			}
		}()
	}

	// Route dependencies
	storefrontDeps := routes.StorefrontDeps{
		CartHandler:      storefront.NewCartHandler(cartService),
		GuestCartHandler: storefront.NewGuestCartHandler(cartService, codec, cookieCfg),
		CheckoutHandler:  storefront.NewCheckoutHandler(checkoutService),
		OrderHandler:     storefront.NewOrderHandler(orderService),
		PaymentHandler:   storefront.NewPaymentHandler(paymentService, providers),
	}
	adminDeps := routes.AdminDeps{
		AdminKey:     cfg.AdminAPIKey,
		OrderHandler: admin.NewOrderHandler(orderService),
	}
	// Only configured providers get a webhook route; an unregistered path
	// 404s instead of panicking on a nil provider.
	var webhookDeps routes.WebhookDeps
	if p, ok := providers["stripe"]; ok {
		webhookDeps.StripeHandler = webhook.NewStripeHandler(p, paymentService)
	}
	if p, ok := providers["razorpay"]; ok {
		webhookDeps.RazorpayHandler = webhook.NewRazorpayHandler(p, paymentService)
	}

	// Router
	metrics := middleware.NewMetrics("verdant")
	r := router.New(
		router.Recovery(logger),
		router.CORS(cfg.AllowedOrigins),
		middleware.RequestID,
		metrics.Middleware,
		middleware.WithUser,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	// Preflight requests match no method-specific route; the CORS
	// middleware intercepts them on this catch-all.
	r.Handle(http.MethodOptions, "/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterAdminRoutes(r, adminDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)

	// Serve
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Server stopped")

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
