package report

import (
	"context"
	"testing"
	"time"

	"barbearia/backend/internal/domain"
)

func TestSummarizeCountsNonCancelledRevenue(t *testing.T) {
	engine := NewEngine(nil, time.Minute)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		{Status: domain.OrderStatusCompleted, PaymentMethod: "cash", TotalValueCents: 4500},
		{Status: domain.OrderStatusCompleted, PaymentMethod: "card", TotalValueCents: 3500},
		{Status: domain.OrderStatusRefunded, PaymentMethod: "cash", TotalValueCents: 7000},
		{Status: domain.OrderStatusPending, PaymentMethod: "cash", TotalValueCents: 2000},
		{Status: domain.OrderStatusCancelled, PaymentMethod: "cash", TotalValueCents: 8888},
	}
	expenses := []domain.Expense{
		{Type: domain.ExpenseTypeBusiness, Category: "refund", AmountCents: 7000},
		{Type: domain.ExpenseTypeCommission, AmountCents: 1500},
	}
	incomes := []domain.Income{
		{AmountCents: 2000},
	}

	summary := engine.Summarize(context.Background(), from, to, orders, expenses, incomes)

	if summary.TotalRevenueCents != 17000 {
		t.Fatalf("expected revenue 17000 (pending counted, cancelled not), got %d", summary.TotalRevenueCents)
	}
	if summary.RevenueByMethod["cash"] != 13500 {
		t.Fatalf("expected cash revenue 13500, got %d", summary.RevenueByMethod["cash"])
	}
	if summary.TotalExpensesCents != 8500 {
		t.Fatalf("expected expenses 8500, got %d", summary.TotalExpensesCents)
	}
	if summary.ExpensesByCategory["refund"] != 7000 {
		t.Fatalf("expected refund category 7000, got %d", summary.ExpensesByCategory["refund"])
	}
	if summary.ExpensesByCategory[domain.ExpenseTypeCommission] != 1500 {
		t.Fatalf("expected uncategorised expense under its type, got %v", summary.ExpensesByCategory)
	}
	if summary.ProfitCents != 17000+2000-8500 {
		t.Fatalf("expected profit %d, got %d", 17000+2000-8500, summary.ProfitCents)
	}
}

func TestDashboardBuildsThirtyDaySeries(t *testing.T) {
	engine := NewEngine(nil, time.Minute)
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		{Status: domain.OrderStatusCompleted, TotalValueCents: 4500, CreatedAt: now},
		{Status: domain.OrderStatusPending, TotalValueCents: 2000, CreatedAt: now},
		{Status: domain.OrderStatusCompleted, TotalValueCents: 3500, CreatedAt: now.AddDate(0, 0, -10)},
		{Status: domain.OrderStatusCompleted, TotalValueCents: 1000, CreatedAt: now.AddDate(0, 0, -40)},
		{Status: domain.OrderStatusCancelled, TotalValueCents: 9999, CreatedAt: now},
	}

	data := engine.Dashboard(now, orders)

	if len(data.Series) != 30 {
		t.Fatalf("expected 30 series points, got %d", len(data.Series))
	}
	if data.Series[29].Date != "2026-08-30" {
		t.Fatalf("expected series to end today, got %s", data.Series[29].Date)
	}
	if data.TodayCents != 6500 {
		t.Fatalf("expected today 6500 (pending counted, cancelled not), got %d", data.TodayCents)
	}
	if data.Delta30Percent != 900 {
		t.Fatalf("expected 900%% delta (10000 vs 1000), got %v", data.Delta30Percent)
	}
}

func TestPercentDelta(t *testing.T) {
	if got := percentDelta(0, 0); got != 0 {
		t.Fatalf("expected 0 for no activity, got %v", got)
	}
	if got := percentDelta(500, 0); got != 100 {
		t.Fatalf("expected 100 when previous is zero, got %v", got)
	}
	if got := percentDelta(150, 100); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
	if got := percentDelta(50, 100); got != -50 {
		t.Fatalf("expected -50, got %v", got)
	}
}
