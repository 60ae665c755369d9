package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/amaliareyes/seamline-backend/api/routes"
	"github.com/amaliareyes/seamline-backend/internal/catalog"
	checkoutsvc "github.com/amaliareyes/seamline-backend/internal/checkout"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/internal/payouts"
	"github.com/amaliareyes/seamline-backend/internal/refunds"
	"github.com/amaliareyes/seamline-backend/internal/users"
	stripewebhook "github.com/amaliareyes/seamline-backend/internal/webhooks/stripe"
	"github.com/amaliareyes/seamline-backend/pkg/config"
	"github.com/amaliareyes/seamline-backend/pkg/db"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
	"github.com/amaliareyes/seamline-backend/pkg/metrics"
	"github.com/amaliareyes/seamline-backend/pkg/migrate"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	"github.com/amaliareyes/seamline-backend/pkg/outbox/idempotency"
	"github.com/amaliareyes/seamline-backend/pkg/redis"
	pkgstripe "github.com/amaliareyes/seamline-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	zlog := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	tailorRate, err := cfg.Payout.TailorRate()
	if err != nil {
		logg.Error(context.Background(), "invalid payout rate", err)
		os.Exit(1)
	}
	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout currency", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	payoutsRepo := payouts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	payoutsService, err := payouts.NewService(payoutsRepo, dbClient, outboxService, tailorRate, cfg.Payout.RunnerFeeCents, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, catalogRepo, payoutsService, orders.Pricing{
		DeliveryFeeCents: cfg.Checkout.DeliveryFeeCents,
		Currency:         currency,
	}, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(paymentsRepo, ordersRepo, ordersService, dbClient, outboxService, stripeClient, cfg.Stripe.CallTimeout, cfg.Checkout.SessionTTL, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(paymentsRepo, ordersService, dbClient, outboxService, stripeClient, cfg.Stripe.CallTimeout, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(ordersService, paymentsService, zlog)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(paymentsService, zlog)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookManager, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dedup manager", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(webhookManager)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Stripe:      stripeClient,
			Catalog:     catalogRepo,
			Users:       usersRepo,
			Orders:      ordersService,
			Payments:    paymentsService,
			Refunds:     refundsService,
			Payouts:     payoutsService,
			Checkout:    checkoutService,
			Webhooks:    webhookService,
			WebhookIdem: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
