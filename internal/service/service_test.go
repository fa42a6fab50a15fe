package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil, nil)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "ana", Role: "cashier"})
}

func openSession(t *testing.T, svc *Service, floatCents int64) domain.CashSession {
	t.Helper()
	resp, err := svc.OpenCashSession(adminCtx(), domain.CashSessionOpenRequest{OpeningFloatCents: floatCents})
	if err != nil {
		t.Fatalf("open cash session failed: %v", err)
	}
	return resp.Session
}

func TestOrderCreationRequiresOpenCashSession(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateOrder(cashierCtx(), domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure without open session, got %v", err)
	}
}

func TestSecondOpenCashSessionConflicts(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)

	_, err := svc.OpenCashSession(adminCtx(), domain.CashSessionOpenRequest{OpeningFloatCents: 5000})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for second open session, got %v", err)
	}
}

func TestCloseCashSessionWithoutOpenFails(t *testing.T) {
	svc := newTestService()

	_, err := svc.CloseCashSession(adminCtx(), domain.CashSessionCloseRequest{CountedCents: 1000})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found without open session, got %v", err)
	}
}

func TestCreateOrderRequiresCustomer(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)

	_, err := svc.CreateOrder(cashierCtx(), domain.OrderCreateRequest{
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error without customer, got %v", err)
	}
	found := false
	for _, violation := range validationErr.Violations {
		if violation == "customer is required" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected customer violation, got %v", validationErr.Violations)
	}
}

func TestCreateOrderAggregatesViolations(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)

	_, err := svc.CreateOrder(cashierCtx(), domain.OrderCreateRequest{
		Items: []domain.OrderDraftItem{
			{ProductID: "prod-missing", Quantity: 0},
		},
		PaymentMethod:     "bitcoin",
		DeliveryCostCents: -5,
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validationErr.Violations) < 3 {
		t.Fatalf("expected all violations reported at once, got %v", validationErr.Violations)
	}
}

func TestCompleteOrderDeductsStockExactlyOnce(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-pomada", Quantity: 3}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	first, err := svc.CompleteOrder(ctx, created.Order.ID, "cash")
	if err != nil {
		t.Fatalf("complete order failed: %v", err)
	}
	if first.Order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed status, got %s", first.Order.Status)
	}
	if first.Order.DeliveredAt == nil {
		t.Fatalf("expected delivered timestamp set on completion")
	}

	second, err := svc.CompleteOrder(ctx, created.Order.ID, "cash")
	if err != nil {
		t.Fatalf("repeat completion should be a no-op, got %v", err)
	}
	if second.Order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed status on repeat, got %s", second.Order.Status)
	}

	product, err := svc.GetProduct(ctx, "prod-pomada")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 21 {
		t.Fatalf("expected stock deducted once (24-3=21), got %d", product.StockQuantity)
	}
}

func TestCompletionClampsStockAtZero(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-refri", Quantity: 100}},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "card"); err != nil {
		t.Fatalf("oversell completion must not error: %v", err)
	}

	product, err := svc.GetProduct(ctx, "prod-refri")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 0 {
		t.Fatalf("expected stock clamped at zero, got %d", product.StockQuantity)
	}
}

func TestCompletionConsumesRecipeIngredients(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-barba", Quantity: 2}},
		PaymentMethod: "pix",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "pix"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	ingredients, err := svc.ListIngredients(ctx)
	if err != nil {
		t.Fatalf("list ingredients failed: %v", err)
	}
	byID := make(map[string]domain.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID] = ing
	}
	if byID["ing-navalha"].Quantity != 78 {
		t.Fatalf("expected 2 blades consumed (80-2=78), got %g", byID["ing-navalha"].Quantity)
	}
	if byID["ing-espuma"].Quantity != 1940 {
		t.Fatalf("expected 60ml foam consumed (2000-60=1940), got %g", byID["ing-espuma"].Quantity)
	}
}

func TestCommissionAccruesForBarberServices(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		EmployeeID:    "emp-carlos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 2}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	balance, err := svc.CommissionBalance(ctx, "emp-carlos")
	if err != nil {
		t.Fatalf("commission balance failed: %v", err)
	}
	if balance.EarnedCents != 3000 {
		t.Fatalf("expected 2x1500 commission, got %d", balance.EarnedCents)
	}
	if balance.OutstandingCents != 3000 {
		t.Fatalf("expected outstanding 3000, got %d", balance.OutstandingCents)
	}
}

func TestCommissionSkipsStockTrackedItems(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		EmployeeID:    "emp-rafael",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-cerveja", Quantity: 4}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	balance, err := svc.CommissionBalance(ctx, "emp-rafael")
	if err != nil {
		t.Fatalf("commission balance failed: %v", err)
	}
	if balance.EarnedCents != 0 {
		t.Fatalf("expected no commission on retail items, got %d", balance.EarnedCents)
	}
}

func TestInternalConsumptionCompletesAtZeroTotal(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:          "cust-joao",
		EmployeeID:          "emp-carlos",
		Items:               []domain.OrderDraftItem{{ProductID: "prod-cerveja", Quantity: 2}},
		PaymentMethod:       "cash",
		InternalConsumption: true,
	})
	if err != nil {
		t.Fatalf("create internal order failed: %v", err)
	}

	order := created.Order
	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected immediate completion, got %s", order.Status)
	}
	if order.TotalValueCents != 0 {
		t.Fatalf("expected zero total, got %d", order.TotalValueCents)
	}
	if order.CustomerID != "" {
		t.Fatalf("expected customer cleared on internal consumption")
	}
	if order.PaymentMethod != "" {
		t.Fatalf("expected payment method cleared on internal consumption, got %q", order.PaymentMethod)
	}

	product, err := svc.GetProduct(ctx, "prod-cerveja")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 46 {
		t.Fatalf("expected stock deducted (48-2=46), got %d", product.StockQuantity)
	}

	balance, err := svc.CommissionBalance(ctx, "emp-carlos")
	if err != nil {
		t.Fatalf("commission balance failed: %v", err)
	}
	if balance.EarnedCents != 0 {
		t.Fatalf("internal consumption must not accrue commission, got %d", balance.EarnedCents)
	}
}

func TestCancelOrderReasonOptionalAndPendingOnly(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	first, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, first.Order.ID, "  ")
	if err != nil {
		t.Fatalf("cancel without reason failed: %v", err)
	}
	if cancelled.Order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Order.Status)
	}
	if cancelled.Order.CancellationReason != "" {
		t.Fatalf("expected empty reason, got %q", cancelled.Order.CancellationReason)
	}

	second, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-marcos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-barba", Quantity: 1}},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	cancelled, err = svc.CancelOrder(ctx, second.Order.ID, "customer left")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Order.CancellationReason != "customer left" {
		t.Fatalf("expected reason persisted, got %q", cancelled.Order.CancellationReason)
	}

	_, err = svc.CompleteOrder(ctx, first.Order.ID, "cash")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state completing a cancelled order, got %v", err)
	}
}

func TestRefundBooksExpenseWithoutRestoringStock(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-pomada", Quantity: 2}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	refunded, err := svc.RefundOrder(adminCtx(), created.Order.ID, "damaged product")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Order.Status != domain.OrderStatusRefunded {
		t.Fatalf("expected refunded status, got %s", refunded.Order.Status)
	}

	product, err := svc.GetProduct(ctx, "prod-pomada")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 22 {
		t.Fatalf("refund must not restore stock, want 22 got %d", product.StockQuantity)
	}

	expenses, err := svc.ListExpenses(adminCtx(), time.Time{}, time.Now().UTC().Add(time.Hour), domain.ExpenseTypeBusiness, 100)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	found := false
	for _, expense := range expenses {
		if expense.OrderID == created.Order.ID && expense.System && expense.AmountCents == refunded.Order.TotalValueCents {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected system refund expense for order %s", created.Order.ID)
	}

	again, err := svc.RefundOrder(adminCtx(), created.Order.ID, "again")
	if err != nil {
		t.Fatalf("repeat refund should be a no-op, got %v", err)
	}
	if again.Order.Status != domain.OrderStatusRefunded {
		t.Fatalf("expected refunded status on repeat, got %s", again.Order.Status)
	}
}

func TestRefundRejectsPendingOrder(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	_, err = svc.RefundOrder(adminCtx(), created.Order.ID, "wrong")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state refunding a pending order, got %v", err)
	}
}

func TestPayBarberRejectsOverdraw(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		EmployeeID:    "emp-carlos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-barba", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	_, err = svc.PayBarber(adminCtx(), domain.BarberPaymentRequest{EmployeeID: "emp-carlos", AmountCents: 5000})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for overdraw, got %v", err)
	}

	payment, err := svc.PayBarber(adminCtx(), domain.BarberPaymentRequest{EmployeeID: "emp-carlos", AmountCents: 1000})
	if err != nil {
		t.Fatalf("valid payment failed: %v", err)
	}
	if payment.Type != domain.ExpenseTypeBarberPayment || !payment.System {
		t.Fatalf("expected system barber payment expense, got %+v", payment)
	}

	balance, err := svc.CommissionBalance(ctx, "emp-carlos")
	if err != nil {
		t.Fatalf("commission balance failed: %v", err)
	}
	if balance.OutstandingCents != 200 {
		t.Fatalf("expected outstanding 1200-1000=200, got %d", balance.OutstandingCents)
	}
}

func TestPayBarberRejectsNonBarber(t *testing.T) {
	svc := newTestService()

	_, err := svc.PayBarber(adminCtx(), domain.BarberPaymentRequest{EmployeeID: "emp-ana", AmountCents: 100})
	if !errors.Is(err, store.ErrInvalidEntity) {
		t.Fatalf("expected invalid entity for cashier payment, got %v", err)
	}
}

func TestSystemExpensesAreImmutable(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		EmployeeID:    "emp-carlos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	expenses, err := svc.ListExpenses(adminCtx(), time.Time{}, time.Now().UTC().Add(time.Hour), domain.ExpenseTypeCommission, 10)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected one commission expense, got %d", len(expenses))
	}

	newAmount := int64(1)
	_, err = svc.UpdateExpense(adminCtx(), expenses[0].ID, domain.ExpenseUpdateRequest{AmountCents: &newAmount})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state editing system expense, got %v", err)
	}
	if err := svc.DeleteExpense(adminCtx(), expenses[0].ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state deleting system expense, got %v", err)
	}
}

func TestExpenseCreateRejectsSystemTypes(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateExpense(adminCtx(), domain.ExpenseCreateRequest{
		Type:        domain.ExpenseTypeCommission,
		AmountCents: 500,
		Description: "manual commission",
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for system expense type, got %v", err)
	}
}

func TestSessionStatsExcludeCancelledOrders(t *testing.T) {
	svc := newTestService()
	session := openSession(t, svc, 5000)
	ctx := cashierCtx()

	paid, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, paid.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	card, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-marcos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-barba", Quantity: 1}},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, card.Order.ID, "card"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	doomed, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 3}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, doomed.Order.ID, "walked out"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stats, err := svc.CashSessionStats(ctx, session.ID)
	if err != nil {
		t.Fatalf("session stats failed: %v", err)
	}
	if stats.TotalOrders != 2 {
		t.Fatalf("expected 2 counted orders, got %d", stats.TotalOrders)
	}
	if stats.CashCents != 4500 {
		t.Fatalf("expected cash total 4500, got %d", stats.CashCents)
	}
	if stats.CardCents != 3500 {
		t.Fatalf("expected card total 3500, got %d", stats.CardCents)
	}
	if stats.ExpectedCashCents != 9500 {
		t.Fatalf("expected 5000+4500=9500 in drawer, got %d", stats.ExpectedCashCents)
	}
}

func TestCloseCashSessionSnapshotsExpectedCash(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 2000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-sobrancelha", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	closed, err := svc.CloseCashSession(adminCtx(), domain.CashSessionCloseRequest{CountedCents: 3400})
	if err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	if closed.Session.ClosedAt == nil {
		t.Fatalf("expected closed timestamp")
	}
	if closed.Session.ClosingCountedCents == nil || *closed.Session.ClosingCountedCents != 3400 {
		t.Fatalf("expected counted 3400 persisted")
	}
	if closed.Session.CashTotalAtCloseCents == nil || *closed.Session.CashTotalAtCloseCents != 3500 {
		t.Fatalf("expected snapshot 2000+1500=3500, got %v", closed.Session.CashTotalAtCloseCents)
	}
}

func TestDeleteIngredientInRecipeConflicts(t *testing.T) {
	svc := newTestService()

	err := svc.DeleteIngredient(adminCtx(), "ing-navalha")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting ingredient in use, got %v", err)
	}
}

func TestUpdateOrderRejectsNonPending(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, created.Order.ID, "cash"); err != nil {
		t.Fatalf("complete order failed: %v", err)
	}

	notes := "late edit"
	_, err = svc.UpdateOrder(ctx, created.Order.ID, domain.OrderUpdateRequest{Notes: &notes})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state editing completed order, got %v", err)
	}
}

func TestUpdateOrderItemsRecomputeTotal(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if created.Order.TotalValueCents != 4500 {
		t.Fatalf("expected initial total 4500, got %d", created.Order.TotalValueCents)
	}

	updated, err := svc.UpdateOrder(ctx, created.Order.ID, domain.OrderUpdateRequest{
		Items: []domain.OrderDraftItem{{ProductID: "prod-combo", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("update order failed: %v", err)
	}
	if updated.Order.TotalValueCents != 7000 {
		t.Fatalf("expected recomputed total 7000, got %d", updated.Order.TotalValueCents)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "supersecretadmin")
	svc := New(memory.NewSeeded(), nil, nil)

	if _, err := svc.Authenticate(context.Background(), "admin", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}

	actor, err := svc.Authenticate(context.Background(), "admin", "supersecretadmin")
	if err != nil {
		t.Fatalf("expected login to succeed: %v", err)
	}
	if actor.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", actor.Role)
	}
}

func TestStaffCreationRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateStaffUser(cashierCtx(), domain.StaffCreateRequest{
		Username: "novo",
		Password: "longenough",
		Role:     domain.RoleCashier,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for cashier, got %v", err)
	}

	user, err := svc.CreateStaffUser(adminCtx(), domain.StaffCreateRequest{
		Username: "Novo",
		Password: "longenough",
		Role:     domain.RoleCashier,
	})
	if err != nil {
		t.Fatalf("staff creation failed: %v", err)
	}
	if user.Username != "novo" {
		t.Fatalf("expected lowercased username, got %q", user.Username)
	}
}

func TestMarkDeliveredCompletesAndRecordsMotoboy(t *testing.T) {
	svc := newTestService()
	openSession(t, svc, 10000)
	ctx := cashierCtx()

	created, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-pomada", Quantity: 1}},
		PaymentMethod: "cash",
		IsDelivery:    true,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	delivered, err := svc.MarkDelivered(ctx, created.Order.ID, "moto-leo")
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if delivered.Order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed status, got %s", delivered.Order.Status)
	}
	if delivered.Order.MotoboyID != "moto-leo" {
		t.Fatalf("expected motoboy recorded, got %q", delivered.Order.MotoboyID)
	}
	if delivered.Order.DeliveredAt == nil {
		t.Fatalf("expected delivered timestamp")
	}
}

func TestLowStockIngredientsUsesThreshold(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	low, err := svc.LowStockIngredients(ctx, 0)
	if err != nil {
		t.Fatalf("low stock lookup failed: %v", err)
	}
	if len(low) != 0 {
		t.Fatalf("expected no low ingredients in fresh seed, got %d", len(low))
	}

	low, err = svc.LowStockIngredients(ctx, 100)
	if err != nil {
		t.Fatalf("low stock lookup failed: %v", err)
	}
	if len(low) != 1 || low[0].ID != "ing-navalha" {
		t.Fatalf("expected only ing-navalha under threshold 100, got %v", low)
	}
}

func TestProductRecipeCostRollsUpIngredients(t *testing.T) {
	svc := newTestService()

	cost, err := svc.ProductRecipeCost(cashierCtx(), "prod-barba")
	if err != nil {
		t.Fatalf("recipe cost failed: %v", err)
	}
	if cost != 270 {
		t.Fatalf("expected unit cost 270, got %d", cost)
	}
}
