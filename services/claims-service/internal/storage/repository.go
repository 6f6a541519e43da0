package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/services/claims-service/internal/domain"
)

var ErrNotFound = errors.New("claim not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, c *domain.Claim) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO claims (id, policy_id, customer_id, amount, status, version, filed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.PolicyID, c.CustomerID, c.Amount.String(), c.Status, c.Version, c.FiledAt, c.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, c *domain.Claim) error {
	tag, err := tx.Exec(ctx, `
		UPDATE claims
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1
	`, c.ID, c.Status, c.Version, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Claim, error) {
	return r.scanOne(r.pool.QueryRow(ctx, claimSelect+` WHERE id = $1`, id))
}

// GetForUpdate locks the claim row for the duration of the transaction so a
// command and its version bump are serialized per aggregate.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Claim, error) {
	return r.scanOne(tx.QueryRow(ctx, claimSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, claimSelect+` WHERE customer_id = $1 ORDER BY filed_at DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

const claimSelect = `
	SELECT id, policy_id, customer_id, amount::text, status, version, filed_at, updated_at
	FROM claims`

func (r *Repository) scanOne(row pgx.Row) (*domain.Claim, error) {
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *Repository) scanRow(rows pgx.Rows) (*domain.Claim, error) {
	return scanClaim(rows)
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var c domain.Claim
	var amount string
	var status string
	if err := row.Scan(&c.ID, &c.PolicyID, &c.CustomerID, &amount, &status, &c.Version, &c.FiledAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	c.Amount = d
	c.Status = domain.Status(status)
	return &c, nil
}
