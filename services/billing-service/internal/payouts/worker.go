// Package payouts executes pending payouts asynchronously. The transfer and
// its outcome event commit in the same transaction as the payout row update,
// so claims always learns the result exactly once per payout.
package payouts

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	otelx "github.com/covergrid/covergrid/libs/otel"
	"github.com/covergrid/covergrid/services/billing-service/internal/domain"
	"github.com/covergrid/covergrid/services/billing-service/internal/events"
	"github.com/covergrid/covergrid/services/billing-service/internal/storage"
)

type Worker struct {
	pool       *db.Pool
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	provider   Provider
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	backoff    outbox.Backoff
	currency   string
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   outbox.Backoff
	Currency  string
}

func NewWorker(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, provider Provider, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Worker{
		pool:       pool,
		repo:       repo,
		outboxRepo: outboxRepo,
		provider:   provider,
		logger:     logger,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		backoff:    cfg.Backoff,
		currency:   cfg.Currency,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("payout batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	payouts, err := w.repo.FetchDuePayouts(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	for _, p := range payouts {
		if err := w.execute(ctx, tx, p); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (w *Worker) execute(ctx context.Context, tx pgx.Tx, p storage.Payout) error {
	ctx = otelx.ContextWithTraceContext(ctx, p.Traceparent, p.Tracestate)

	account, err := w.repo.GetAccountForUpdate(ctx, tx, p.AccountID)
	if err != nil {
		return err
	}

	if !account.AcceptsPayout() {
		// The compensation trigger: claims reacts by reopening the claim.
		w.logger.Warn("payout refused", "payout_id", p.ID, "claim_id", p.ClaimID, "account_status", account.Status)
		if err := w.repo.MarkPayoutFailed(ctx, tx, p.ID, "account "+string(account.Status)); err != nil {
			return err
		}
		return w.emitOutcome(ctx, tx, account, p, events.PayoutFailed, "account "+string(account.Status))
	}

	ref, err := w.provider.Transfer(ctx, p.ID, p.Amount, w.currency)
	if err != nil {
		attempts := p.Attempts + 1
		if attempts >= p.MaxAttempts {
			w.logger.Error("payout exhausted retries", "payout_id", p.ID, "claim_id", p.ClaimID, "err", err)
			if err := w.repo.MarkPayoutFailed(ctx, tx, p.ID, err.Error()); err != nil {
				return err
			}
			return w.emitOutcome(ctx, tx, account, p, events.PayoutFailed, err.Error())
		}
		nextAt := time.Now().UTC().Add(w.backoff.Next(attempts))
		w.logger.Warn("payout transfer failed, deferring", "payout_id", p.ID, "attempts", attempts, "next_attempt_at", nextAt, "err", err)
		return w.repo.DeferPayout(ctx, tx, p.ID, attempts, nextAt, err.Error())
	}

	if err := w.repo.MarkPayoutIssued(ctx, tx, p.ID, ref); err != nil {
		return err
	}
	return w.emitOutcome(ctx, tx, account, p, events.PayoutIssued, "")
}

func (w *Worker) emitOutcome(ctx context.Context, tx pgx.Tx, account *domain.Account, p storage.Payout, eventType, reason string) error {
	version := account.RecordEvent()
	if err := w.repo.UpdateAccount(ctx, tx, account); err != nil {
		return err
	}
	env, err := event.New(events.AggregateBillingAccount, account.ID, eventType, version, events.PayoutPayload{
		AccountID: account.ID,
		ClaimID:   p.ClaimID,
		PolicyID:  p.PolicyID,
		Amount:    p.Amount.String(),
		Reason:    reason,
	})
	if err != nil {
		return err
	}
	return w.outboxRepo.Insert(ctx, tx, env)
}
