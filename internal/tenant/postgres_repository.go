package tenant

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

// PostgresRepository stores tenants in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("tenant: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest) (*Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseBotMode(req.BotMode)

	id := uuid.New()
	query := `
		INSERT INTO tenants (id, name, contact_email, owner_outward_id, bank_ref, bot_mode, business_data, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Name,
		req.ContactEmail,
		req.OwnerJID,
		req.BankRef,
		string(mode),
		req.BusinessData,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("tenant: insert failed: %w", err)
	}

	return &Tenant{
		ID:           id.String(),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		OwnerJID:     req.OwnerJID,
		BankRef:      req.BankRef,
		Mode:         mode,
		BusinessData: req.BusinessData,
		Active:       true,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// GetByID fetches a tenant row.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	query := `
		SELECT id, name, contact_email, owner_outward_id, bank_ref, bot_mode, business_data, active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	t, err := scanTenant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: get failed: %w", err)
	}
	return t, nil
}

// Update applies the non-nil fields of req and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateRequest) (*Tenant, error) {
	if req.BotMode != nil {
		if _, err := ParseBotMode(*req.BotMode); err != nil {
			return nil, err
		}
	}
	query := `
		UPDATE tenants SET
			name = COALESCE($2, name),
			contact_email = COALESCE($3, contact_email),
			owner_outward_id = COALESCE($4, owner_outward_id),
			bank_ref = COALESCE($5, bank_ref),
			bot_mode = COALESCE($6, bot_mode),
			business_data = COALESCE($7, business_data),
			active = COALESCE($8, active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, contact_email, owner_outward_id, bank_ref, bot_mode, business_data, active, created_at, updated_at
	`
	t, err := scanTenant(r.pool.QueryRow(ctx, query,
		id,
		req.Name,
		req.ContactEmail,
		req.OwnerJID,
		req.BankRef,
		req.BotMode,
		req.BusinessData,
		req.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: update failed: %w", err)
	}
	return t, nil
}

// List returns all tenants, active first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Tenant, error) {
	query := `
		SELECT id, name, contact_email, owner_outward_id, bank_ref, bot_mode, business_data, active, created_at, updated_at
		FROM tenants
		ORDER BY active DESC, created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tenant: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("tenant: scan failed: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	var mode string
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.ContactEmail,
		&t.OwnerJID,
		&t.BankRef,
		&mode,
		&t.BusinessData,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Mode = BotMode(mode)
	return &t, nil
}
