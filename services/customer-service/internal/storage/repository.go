package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/services/customer-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customers (id, email, name, password_hash, status, version, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Email, c.Name, c.PasswordHash, c.Status, c.Version, c.RegisteredAt, c.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	tag, err := tx.Exec(ctx, `
		UPDATE customers
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

const customerSelect = `
	SELECT id, email, name, password_hash, status, version, registered_at, updated_at
	FROM customers`

func (r *Repository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, customerSelect+` WHERE id = $1`, id))
}

func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Customer, error) {
	return scanCustomer(tx.QueryRow(ctx, customerSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var status string
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &status, &c.Version, &c.RegisteredAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Status = domain.Status(status)
	return &c, nil
}

// PolicyRef is the read model row kept from PolicyIssued events so the portal
// can list a customer's policies without a cross-service query.
type PolicyRef struct {
	PolicyID string
	Product  string
	Premium  string
	IssuedAt time.Time
}

func (r *Repository) RecordPolicy(ctx context.Context, tx pgx.Tx, customerID string, ref PolicyRef) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customer_policies (customer_id, policy_id, product, premium, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (policy_id) DO NOTHING
	`, customerID, ref.PolicyID, ref.Product, ref.Premium, ref.IssuedAt)
	return err
}

func (r *Repository) ListPolicies(ctx context.Context, customerID string) ([]PolicyRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT policy_id, product, premium::text, issued_at
		FROM customer_policies
		WHERE customer_id = $1
		ORDER BY issued_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []PolicyRef
	for rows.Next() {
		var ref PolicyRef
		if err := rows.Scan(&ref.PolicyID, &ref.Product, &ref.Premium, &ref.IssuedAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
