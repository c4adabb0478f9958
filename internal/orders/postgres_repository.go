package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores orders in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const orderColumns = `id, tenant_id, customer_id, summary, customer_name, customer_address,
	customer_email, proof_ref, proof_summary, payment_method, order_state, created_at, completed_at`

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (id, tenant_id, customer_id, summary, customer_name, customer_address,
			customer_email, proof_ref, proof_summary, payment_method, order_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.TenantID, o.CustomerID, o.Summary, o.CustomerName, o.CustomerAddress,
		o.CustomerEmail, o.ProofRef, o.ProofSummary, o.PaymentMethod, string(o.State), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("orders: create: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, o *Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET summary = $2, customer_name = $3, customer_address = $4,
			customer_email = $5, proof_ref = $6, proof_summary = $7, payment_method = $8,
			order_state = $9, completed_at = $10
		WHERE id = $1`,
		o.ID, o.Summary, o.CustomerName, o.CustomerAddress, o.CustomerEmail,
		o.ProofRef, o.ProofSummary, o.PaymentMethod, string(o.State), o.CompletedAt)
	if err != nil {
		return fmt.Errorf("orders: update %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, tenantID, customerID string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE tenant_id = $1 AND customer_id = $2
		  AND order_state IN ('awaiting_confirmation', 'awaiting_payment', 'awaiting_info')
		ORDER BY created_at DESC
		LIMIT 1`, tenantID, customerID)

	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("orders: get active: %w", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var state string
	err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.Summary, &o.CustomerName,
		&o.CustomerAddress, &o.CustomerEmail, &o.ProofRef, &o.ProofSummary,
		&o.PaymentMethod, &state, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	o.State = State(state)
	return &o, nil
}
