package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
)

// Exercises the order status transition and stock deduction against a real
// database. Runs only when BARBEARIA_TEST_DATABASE_URL points at a disposable
// schema that already has the application tables.
func TestOrderTransitionAndStockDeductionIntegration(t *testing.T) {
	databaseURL := os.Getenv("BARBEARIA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BARBEARIA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = 'itest-order'`)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = 'itest-order'`)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_sessions WHERE id = 'itest-cash'`)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = 'itest-prod'`)
		_ = s.Close()
	})

	openedAt := time.Now().UTC().Truncate(time.Second)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price_cents, is_stock_tracked, stock_quantity,
			min_stock_quantity, commission_cents, active, created_at, updated_at)
		VALUES ('itest-prod', 'Integration Pomade', 3000, TRUE, 3, 1, 0, TRUE, $1, now())
	`, openedAt)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	session, err := s.CreateCashSession(ctx, domain.CashSession{
		ID:                "itest-cash",
		OpenedBy:          "integration",
		OpeningFloatCents: 1000,
		OpenedAt:          openedAt,
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	order, err := s.CreateOrder(ctx, domain.Order{
		ID:              "itest-order",
		CashSessionID:   session.ID,
		TotalValueCents: 6000,
		PaymentMethod:   "cash",
		Status:          domain.OrderStatusPending,
		CreatedAt:       openedAt,
		Items: []domain.OrderItem{
			{ProductID: "itest-prod", Quantity: 2, UnitPriceCents: 3000},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	completed, err := s.TransitionOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCompleted, time.Now().UTC())
	if err != nil {
		t.Fatalf("transition pending->completed: %v", err)
	}
	if completed.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if completed.DeliveredAt == nil {
		t.Fatalf("expected delivered_at to be stamped on completion")
	}

	if _, err := s.TransitionOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCompleted, time.Now().UTC()); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on repeated transition, got %v", err)
	}

	remaining, err := s.DeductProductStock(ctx, "itest-prod", 2)
	if err != nil {
		t.Fatalf("deduct stock: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 unit remaining, got %d", remaining)
	}

	remaining, err = s.DeductProductStock(ctx, "itest-prod", 10)
	if err != nil {
		t.Fatalf("deduct stock past zero: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected stock clamped at 0, got %d", remaining)
	}

	if _, err := s.CreateCashSession(ctx, domain.CashSession{
		OpenedBy:          "integration-second",
		OpeningFloatCents: 500,
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict opening a second active session, got %v", err)
	}
}
