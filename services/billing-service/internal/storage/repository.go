package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/services/billing-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertAccount(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO billing_accounts (id, policy_id, customer_id, status, version, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.PolicyID, a.CustomerID, a.Status, a.Version, a.OpenedAt, a.UpdatedAt)
	return err
}

func (r *Repository) UpdateAccount(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	tag, err := tx.Exec(ctx, `
		UPDATE billing_accounts
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1
	`, a.ID, a.Status, a.Version, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const accountSelect = `
	SELECT id, policy_id, customer_id, status, version, opened_at, updated_at
	FROM billing_accounts`

func (r *Repository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, accountSelect+` WHERE id = $1`, id))
}

func (r *Repository) GetAccountForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	return scanAccount(tx.QueryRow(ctx, accountSelect+` WHERE id = $1 FOR UPDATE`, id))
}

// GetAccountByPolicyForUpdate resolves the account from a policy id; payouts
// arrive keyed by claim and carry only the policy reference.
func (r *Repository) GetAccountByPolicyForUpdate(ctx context.Context, tx pgx.Tx, policyID string) (*domain.Account, error) {
	return scanAccount(tx.QueryRow(ctx, accountSelect+` WHERE policy_id = $1 FOR UPDATE`, policyID))
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var status string
	err := row.Scan(&a.ID, &a.PolicyID, &a.CustomerID, &status, &a.Version, &a.OpenedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = domain.Status(status)
	return &a, nil
}

// Payout is the pending transfer created when a ClaimApproved event maps to
// IssuePayout. Execution happens asynchronously in the payout worker.
type Payout struct {
	ID            string
	ClaimID       string
	PolicyID      string
	AccountID     string
	Amount        decimal.Decimal
	Status        string // pending | issued | failed
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	Reason        string
	Traceparent   string
	Tracestate    string
}

// InsertPayout is idempotent on claim_id: a redelivered ClaimApproved that
// slipped past the ledger still cannot create a second transfer.
func (r *Repository) InsertPayout(ctx context.Context, tx pgx.Tx, p Payout) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payouts (id, claim_id, policy_id, account_id, amount, max_attempts, next_attempt_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7, $8)
		ON CONFLICT (claim_id) DO NOTHING
	`, p.ID, p.ClaimID, p.PolicyID, p.AccountID, p.Amount.String(), p.MaxAttempts, p.Traceparent, p.Tracestate)
	return err
}

func (r *Repository) FetchDuePayouts(ctx context.Context, tx pgx.Tx, limit int) ([]Payout, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, claim_id, policy_id, account_id, amount::text, status, attempts, max_attempts, next_attempt_at, COALESCE(reason, ''), traceparent, tracestate
		FROM payouts
		WHERE status = 'pending' AND next_attempt_at <= now()
		ORDER BY next_attempt_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []Payout
	for rows.Next() {
		var p Payout
		var amount string
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.PolicyID, &p.AccountID, &amount, &p.Status, &p.Attempts, &p.MaxAttempts, &p.NextAttemptAt, &p.Reason, &p.Traceparent, &p.Tracestate); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		p.Amount = d
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

func (r *Repository) MarkPayoutIssued(ctx context.Context, tx pgx.Tx, id, providerRef string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts
		SET status = 'issued', provider_ref = $2, updated_at = now()
		WHERE id = $1
	`, id, providerRef)
	return err
}

func (r *Repository) MarkPayoutFailed(ctx context.Context, tx pgx.Tx, id, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts
		SET status = 'failed', reason = $2, updated_at = now()
		WHERE id = $1
	`, id, reason)
	return err
}

func (r *Repository) DeferPayout(ctx context.Context, tx pgx.Tx, id string, attempts int, nextAttemptAt time.Time, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts
		SET attempts = $2, next_attempt_at = $3, reason = $4, updated_at = now()
		WHERE id = $1
	`, id, attempts, nextAttemptAt, reason)
	return err
}

// Invoice rows drive the overdue scanner; the premium schedule itself is a
// billing-internal concern and never leaves this database.
type Invoice struct {
	ID        string
	AccountID string
	PolicyID  string
	Amount    decimal.Decimal
	DueAt     time.Time
	Status    string // pending | paid | overdue
}

func (r *Repository) InsertInvoice(ctx context.Context, tx pgx.Tx, inv Invoice) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO invoices (id, account_id, policy_id, amount, due_at)
		VALUES ($1, $2, $3, $4, $5)
	`, inv.ID, inv.AccountID, inv.PolicyID, inv.Amount.String(), inv.DueAt)
	return err
}

func (r *Repository) FetchOverdueInvoices(ctx context.Context, tx pgx.Tx, limit int) ([]Invoice, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, account_id, policy_id, amount::text, due_at, status
		FROM invoices
		WHERE status = 'pending' AND due_at < now()
		ORDER BY due_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		var amount string
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.PolicyID, &amount, &inv.DueAt, &inv.Status); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		inv.Amount = d
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) MarkInvoiceOverdue(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices SET status = 'overdue', updated_at = now() WHERE id = $1
	`, id)
	return err
}

func (r *Repository) MarkInvoicePaid(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET status = 'paid', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'overdue')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
