// Package invoices scans for premium invoices past their due date and emits
// InvoiceOverdue, which the policy context turns into a lapse.
package invoices

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/billing-service/internal/events"
	"github.com/covergrid/covergrid/services/billing-service/internal/storage"
)

type Scanner struct {
	pool       *db.Pool
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
}

func NewScanner(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, interval time.Duration, batchSize int) *Scanner {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Scanner{pool: pool, repo: repo, outboxRepo: outboxRepo, logger: logger, interval: interval, batchSize: batchSize}
}

func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.scan(ctx); err != nil {
				s.logger.Error("overdue scan failed", "err", err)
			}
		}
	}
}

func (s *Scanner) scan(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	overdue, err := s.repo.FetchOverdueInvoices(ctx, tx, s.batchSize)
	if err != nil {
		return err
	}
	for _, inv := range overdue {
		if err := s.flag(ctx, tx, inv); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Scanner) flag(ctx context.Context, tx pgx.Tx, inv storage.Invoice) error {
	account, err := s.repo.GetAccountForUpdate(ctx, tx, inv.AccountID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkInvoiceOverdue(ctx, tx, inv.ID); err != nil {
		return err
	}

	s.logger.Info("invoice overdue", "invoice_id", inv.ID, "policy_id", inv.PolicyID, "due_at", inv.DueAt)

	version := account.RecordEvent()
	if err := s.repo.UpdateAccount(ctx, tx, account); err != nil {
		return err
	}
	env, err := event.New(events.AggregateBillingAccount, account.ID, events.InvoiceOverdue, version, events.InvoicePayload{
		AccountID: account.ID,
		InvoiceID: inv.ID,
		PolicyID:  inv.PolicyID,
		Amount:    inv.Amount.String(),
		DueAt:     inv.DueAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, env)
}
