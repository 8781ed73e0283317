package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/tradelink-backend/api/routes"
	"github.com/angelmondragon/tradelink-backend/internal/bootstrap"
	"github.com/angelmondragon/tradelink-backend/internal/inventory"
	"github.com/angelmondragon/tradelink-backend/internal/invoices"
	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/internal/orders"
	"github.com/angelmondragon/tradelink-backend/internal/payments"
	"github.com/angelmondragon/tradelink-backend/internal/reports"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/razorpay"
	"github.com/angelmondragon/tradelink-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	mintToken := flag.Bool("mint-token", false, "print a signed access token and exit (non-prod only)")
	tokenUser := flag.String("user", "", "user id for -mint-token (random when empty)")
	tokenRole := flag.String("role", string(enums.RoleRetailer), "role for -mint-token: retailer|wholesaler")
	flag.Parse()

	proc := bootstrap.Must("api")
	defer proc.Close()
	ctx, stop := proc.Context()
	defer stop()
	cfg, logg := proc.Config, proc.Logger

	if *mintToken {
		if err := printToken(cfg, *tokenUser, *tokenRole); err != nil {
			proc.Fatal(ctx, "failed to mint token", err)
		}
		return
	}

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap database", err)
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap redis", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		proc.Fatal(ctx, "failed to wire services", err)
	}

	// PORT is set by the hosting platform and wins over config.
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(*deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			proc.Fatal(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry *prometheus.Registry) (*routes.Dependencies, error) {
	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	products, err := inventory.NewService(inventory.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("products service: %w", err)
	}
	ledger := inventory.NewLedger(metrics.NewInventoryMetrics(registry))

	orderService, err := orders.NewService(dbClient, orders.NewRepository(conn), ledger, events, logg)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	invoiceService, err := invoices.NewService(dbClient, invoices.NewRepository(conn), events, invoices.NewInvoiceNumber, logg)
	if err != nil {
		return nil, fmt.Errorf("invoices service: %w", err)
	}

	provider, err := razorpay.NewClient(context.Background(), cfg.Payments, nil, logg)
	if err != nil {
		return nil, fmt.Errorf("payment provider: %w", err)
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Config: payments.Config{
			SigningSecret:   provider.SigningSecret(),
			IntentTTL:       cfg.Payments.IntentTTL,
			ProviderTimeout: cfg.Payments.ProviderTimeout,
		},
		Tx:         dbClient,
		Repository: payments.NewRepository(conn),
		Provider:   provider,
		Outbox:     events,
		Metrics:    metrics.NewPaymentMetrics(registry),
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}

	currency, err := enums.ParseCurrency(cfg.Payments.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("default currency: %w", err)
	}
	reportService, err := reports.NewService(reports.NewRepository(conn), currency)
	if err != nil {
		return nil, fmt.Errorf("reports service: %w", err)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	return &routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Metrics:       registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		Orders:        orderService,
		Invoices:      invoiceService,
		Payments:      paymentService,
		Products:      products,
		Reports:       reportService,
		Notifications: notificationService,
	}, nil
}

func printToken(cfg *config.Config, rawUser, rawRole string) error {
	if cfg.App.IsProd() {
		return errors.New("token minting is disabled in production")
	}
	role, err := enums.ParseRole(rawRole)
	if err != nil {
		return err
	}
	userID := uuid.New()
	if rawUser != "" {
		if userID, err = uuid.Parse(rawUser); err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
	}
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.Principal{UserID: userID, Role: role})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "user_id=%s role=%s\n%s\n", userID, role, token)
	return nil
}
