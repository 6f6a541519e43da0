package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/services/policy-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, p *domain.Policy) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO policies (id, customer_id, product, coverage, premium, status, version, drafted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.CustomerID, p.Product, p.Coverage.String(), p.Premium.String(), p.Status, p.Version, p.DraftedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, p *domain.Policy) error {
	tag, err := tx.Exec(ctx, `
		UPDATE policies
		SET premium = $2, status = $3, version = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Premium.String(), p.Status, p.Version, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const policySelect = `
	SELECT id, customer_id, product, coverage::text, premium::text, status, version, drafted_at, updated_at
	FROM policies`

func (r *Repository) Get(ctx context.Context, id string) (*domain.Policy, error) {
	return scanPolicy(r.pool.QueryRow(ctx, policySelect+` WHERE id = $1`, id))
}

func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Policy, error) {
	return scanPolicy(tx.QueryRow(ctx, policySelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Policy, error) {
	rows, err := r.pool.Query(ctx, policySelect+`
		WHERE customer_id = $1
		ORDER BY drafted_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	var p domain.Policy
	var status, coverage, premium string
	err := row.Scan(&p.ID, &p.CustomerID, &p.Product, &coverage, &premium, &status, &p.Version, &p.DraftedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Coverage, err = decimal.NewFromString(coverage); err != nil {
		return nil, err
	}
	if p.Premium, err = decimal.NewFromString(premium); err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	return &p, nil
}
