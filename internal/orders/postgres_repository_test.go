package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepositoryCreateAndUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &PostgresRepository{pool: mock}
	ctx := context.Background()

	o := &Order{
		TenantID:   "t1",
		CustomerID: "c1",
		Summary:    "sac en cuir",
		State:      StateAwaitingConfirmation,
	}
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), "t1", "c1", "sac en cuir", "", "", "", "", "", "",
			string(StateAwaitingConfirmation), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == "" || o.CreatedAt.IsZero() {
		t.Fatal("create must assign id and timestamp")
	}

	o.State = StateAwaitingPayment
	mock.ExpectExec("UPDATE orders SET").
		WithArgs(o.ID, "sac en cuir", "", "", "", "", "", "",
			string(StateAwaitingPayment), nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.Update(ctx, o); err != nil {
		t.Fatalf("update: %v", err)
	}

	mock.ExpectExec("UPDATE orders SET").
		WithArgs("missing", "", "", "", "", "", "", "", string(StateNone), nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.Update(ctx, &Order{ID: "missing", State: StateNone}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresRepositoryGetActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &PostgresRepository{pool: mock}
	ctx := context.Background()
	created := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs("t1", "c1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "customer_id", "summary", "customer_name", "customer_address",
			"customer_email", "proof_ref", "proof_summary", "payment_method", "order_state",
			"created_at", "completed_at",
		}).AddRow("o1", "t1", "c1", "sac", "", "", "", "", "", "",
			string(StateAwaitingPayment), created, (*time.Time)(nil)))

	o, err := repo.GetActive(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if o.ID != "o1" || o.State != StateAwaitingPayment {
		t.Fatalf("unexpected order %+v", o)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
