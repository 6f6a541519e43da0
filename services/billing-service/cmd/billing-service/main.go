package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/covergrid/covergrid/libs/config"
	"github.com/covergrid/covergrid/libs/consume"
	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/deadletter"
	"github.com/covergrid/covergrid/libs/httpx"
	"github.com/covergrid/covergrid/libs/kafkax"
	otelx "github.com/covergrid/covergrid/libs/otel"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/libs/runtime"
	"github.com/covergrid/covergrid/services/billing-service/internal/handlers"
	"github.com/covergrid/covergrid/services/billing-service/internal/invoices"
	"github.com/covergrid/covergrid/services/billing-service/internal/migrations"
	"github.com/covergrid/covergrid/services/billing-service/internal/payouts"
	billingpolicy "github.com/covergrid/covergrid/services/billing-service/internal/policy"
	"github.com/covergrid/covergrid/services/billing-service/internal/storage"

	billingevents "github.com/covergrid/covergrid/services/billing-service/internal/events"
)

func main() {
	service := config.String("SERVICE_NAME", "billing-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	if err := db.Migrate(dbURL, migrations.Files); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	ledger := consume.NewLedger()
	dlqRepo := deadletter.NewRepository(pool)

	relay := outbox.NewRelay(pool, outboxRepo, logger, outbox.RelayConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go relay.Run(ctx)

	registry := billingevents.Registry()
	policy := billingpolicy.New(repo, outboxRepo, logger, billingpolicy.Config{
		FirstInvoiceDue:   config.Duration("FIRST_INVOICE_DUE", 30*24*time.Hour),
		PayoutMaxAttempts: config.Int("PAYOUT_MAX_ATTEMPTS", 5),
	})
	applier := consume.NewApplier(pool, ledger, registry, policy, logger,
		config.Duration("EVENT_BUDGET", 30*time.Second))

	consumer := consume.New(applier, dlqRepo, logger, consume.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", service),
		Topics:  policy.Topics(),
		Retry: consume.RetryPolicy{
			MaxAttempts: config.Int("CONSUME_MAX_ATTEMPTS", 5),
			BaseBackoff: config.Duration("CONSUME_BASE_BACKOFF", 500*time.Millisecond),
		},
	})
	go consumer.Run(ctx)

	var provider payouts.Provider = payouts.LocalProvider{}
	if key := config.String("STRIPE_SECRET_KEY", ""); key != "" {
		provider = payouts.NewStripeProvider(key)
	}
	payoutWorker := payouts.NewWorker(pool, repo, outboxRepo, provider, logger, payouts.WorkerConfig{
		Interval:  config.Duration("PAYOUT_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("PAYOUT_BATCH_SIZE", 20),
		Currency:  config.String("PAYOUT_CURRENCY", "usd"),
	})
	go payoutWorker.Run(ctx)

	overdueScanner := invoices.NewScanner(pool, repo, outboxRepo, logger,
		config.Duration("OVERDUE_SCAN_INTERVAL", time.Minute),
		config.Int("OVERDUE_BATCH_SIZE", 50))
	go overdueScanner.Run(ctx)

	replayer := deadletter.NewReplayer(dlqRepo, applier, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.New(pool, repo, outboxRepo, logger).Mount(mux)
	deadletter.NewAdmin(dlqRepo, replayer, logger).Mount(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "billing")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
