package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/notification"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	jwtauth "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/mailer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/razorpay"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/realtime"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := zaplogger.Wrap(logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID))

	// Money renders as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	oteltrace.InstallPropagator()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), zaplogger.Wrap(baseLogger), prometrics.New("", "", reg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, health, closeStore := openStore(ctx, cfg, systemLogger)
	defer closeStore()

	bus := outbox.NewBus(systemLogger, outbox.Options{})
	bus.Start(ctx)

	hub := realtime.NewHub(systemLogger)

	var invoices notification.InvoiceSender = mailer.NewLogSender(systemLogger)
	if cfg.SMTP.Host != "" {
		invoices = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	notifier := notification.NewWorker(httppresentation.NewNotificationSink(hub), invoices, tel)
	workerpresentation.Subscribe(bus, tel, "notification", notifier.Handlers())

	if !cfg.RazorpayEnabled() {
		systemLogger.Warn("razorpay_not_configured")
	}
	gateway := razorpay.New(razorpay.Config{
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		BaseURL:       cfg.Razorpay.BaseURL,
	})

	ids := id.NewUUIDGenerator()
	handler := httppresentation.NewHandler(httppresentation.Deps{
		PlaceOrder: apporder.NewPlaceOrderUseCase(store, ids, bus, cfg.Currency, tel),
		Orders:     apporder.NewQueryUseCases(store, bus, tel),
		Carts:      appcart.NewUseCases(store, ids, tel),
		Payments: apppayment.NewUseCases(store, gateway, bus, apppayment.Options{
			KeyID:                   cfg.Razorpay.KeyID,
			RequireWebhookSignature: cfg.Razorpay.WebhookSecret != "",
		}, tel),
		Variants: inventory.NewVariantUseCases(store, ids, bus, tel),
		Auth:     jwtauth.NewJWT(cfg.JWTSecret),
		Realtime: hub,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:   health,
	}, tel)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("durable_store", cfg.UsesDatabase()),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
}

// openStore picks Postgres when a DSN is configured and the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger observability.Logger) (application.Store, func(context.Context) error, func()) {
	if !cfg.UsesDatabase() {
		mem := memory.NewStore()
		if cfg.Env == "dev" {
			mem.SeedProducts(&product.Product{
				ID:     "demo-product",
				Title:  "Demo Tee",
				Brand:  "minishop",
				Price:  decimal.NewFromInt(499),
				Status: product.StatusActive,
			})
		}
		logger.Info("store_selected", observability.F("store", "memory"))
		return mem, nil, func() {}
	}

	pg, err := postgres.Open(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("store_open_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DBAutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("store_migrate_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
	}
	logger.Info("store_selected", observability.F("store", "postgres"))
	return pg, pg.Ping, func() {
		if err := pg.Close(); err != nil {
			logger.Warn("store_close_failed", observability.F("error", err.Error()))
		}
	}
}
