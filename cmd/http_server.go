package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/conference-payments/api"
	"github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/core/events"
	"github.com/frahmantamala/conference-payments/internal/notification"
	"github.com/frahmantamala/conference-payments/internal/payment"
	paymentPostgres "github.com/frahmantamala/conference-payments/internal/payment/postgres"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/pricing"
	pricingPostgres "github.com/frahmantamala/conference-payments/internal/pricing/postgres"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/transport/middleware"
	"github.com/frahmantamala/conference-payments/internal/transport/rest"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server handling checkout requests and provider webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is the object graph shared by the server and the operator commands.
type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Logger     *slog.Logger
	EventBus   *events.EventBus
	Pricing    *pricing.Service
	Stores     *payment.Stores
	Checkouts  *paymentPostgres.CheckoutRepository
	Gateway    *paymentgateway.StripeGateway
	Reconciler *payment.Reconciler
	Resolver   *payment.Resolver
}

func (d *Dependencies) Close() {
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		lg.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
		if err := deps.EventBus.Wait(shutdownCtx); err != nil {
			lg.Warn("event handlers still running at shutdown", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	lg.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	if _, err := api.Load(ctx); err != nil {
		return nil, err
	}

	adminKey, err := cfg.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("admin public key: %w", err)
	}
	if adminKey == nil {
		deps.Logger.Warn("no admin public key configured; admin routes will refuse every request")
	}

	paymentService := payment.NewService(payment.Dependencies{
		Pricing:       deps.Pricing,
		Gateway:       deps.Gateway,
		Stores:        deps.Stores,
		Writer:        deps.Checkouts,
		Registrations: deps.Checkouts,
		Reconciler:    deps.Reconciler,
		Redirects:     redirectURLs(cfg),
	}, deps.Logger)

	verifier := paymentgateway.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.DiscountWebhookSecret)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		Health:         rest.NewHealthHandler(deps.DB),
		Payment:        payment.NewHandler(base, paymentService),
		Webhooks:       payment.NewWebhookHandler(base, verifier, deps.Resolver),
		Pricing:        pricing.NewHandler(base, deps.Pricing),
		Admin:          middleware.NewAdminAuthenticator(base, adminKey, cfg.Security.AdminRole),
		Domains:        vertical.NewDomainRouter(cfg.DomainMap()),
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPI:        api.Document(),
	}, deps.Logger)

	return router, nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	eventBus := events.NewEventBus(lg)
	payment.NewEventHandler(lg).RegisterEventHandlers(eventBus)

	if config.Notifications.SQS.Enabled {
		client, err := notification.NewSQSClient(ctx, config.Notifications.SQS)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize sqs: %w", err)
		}
		notification.NewForwarder(client, config.Notifications.SQS.QueueURL, lg).RegisterEventHandlers(eventBus)
		lg.Info("forwarding payment events to sqs", "queue_url", config.Notifications.SQS.QueueURL)
	}

	stores := payment.NewStores(paymentPostgres.NewRecordRepositories(gdb)...)
	reconciler := payment.NewReconciler(eventBus, lg)

	return &Dependencies{
		Config:    config,
		DB:        db,
		Gorm:      gdb,
		Logger:    lg,
		EventBus:  eventBus,
		Pricing:   pricing.NewService(pricingPostgres.NewPricingRepositories(gdb), lg),
		Stores:    stores,
		Checkouts: paymentPostgres.NewCheckoutRepository(gdb),
		Gateway: paymentgateway.NewStripeGateway(paymentgateway.Config{
			SecretKey:      config.Stripe.SecretKey,
			RequestTimeout: config.Stripe.RequestTimeout,
			APIBaseURL:     config.Stripe.APIBaseURL,
		}, lg),
		Reconciler: reconciler,
		Resolver:   payment.NewResolver(stores, reconciler, lg),
	}, nil
}

func redirectURLs(cfg *internal.Config) map[vertical.Vertical]payment.RedirectURLs {
	out := make(map[vertical.Vertical]payment.RedirectURLs, len(cfg.Verticals))
	for _, v := range vertical.All() {
		vc, ok := cfg.Vertical(v)
		if !ok {
			continue
		}
		out[v] = payment.RedirectURLs{SuccessURL: vc.SuccessURL, CancelURL: vc.CancelURL}
	}
	return out
}
