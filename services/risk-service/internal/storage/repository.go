package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/services/risk-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert is idempotent on customer_id: a profile exists at most once per
// customer and is never deleted.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, p *domain.Profile) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO risk_profiles (id, customer_id, score, filed_claims, approved_claims, lapses, version, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (customer_id) DO NOTHING
	`, p.ID, p.CustomerID, p.Score, p.FiledClaims, p.ApprovedClaims, p.Lapses, p.Version, p.OpenedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, p *domain.Profile) error {
	tag, err := tx.Exec(ctx, `
		UPDATE risk_profiles
		SET score = $2, filed_claims = $3, approved_claims = $4, lapses = $5, version = $6, updated_at = $7
		WHERE id = $1
	`, p.ID, p.Score, p.FiledClaims, p.ApprovedClaims, p.Lapses, p.Version, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const profileSelect = `
	SELECT id, customer_id, score, filed_claims, approved_claims, lapses, version, opened_at, updated_at
	FROM risk_profiles`

func (r *Repository) GetByCustomer(ctx context.Context, customerID string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE customer_id = $1`, customerID))
}

func (r *Repository) GetByCustomerForUpdate(ctx context.Context, tx pgx.Tx, customerID string) (*domain.Profile, error) {
	return scanProfile(tx.QueryRow(ctx, profileSelect+` WHERE customer_id = $1 FOR UPDATE`, customerID))
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.CustomerID, &p.Score, &p.FiledClaims, &p.ApprovedClaims, &p.Lapses, &p.Version, &p.OpenedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
