package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"barbearia/backend/internal/bus"
	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

// CreateOrder validates the draft as a whole and reports every violation at
// once. Orders always belong to the currently open cash session; internal
// consumption completes immediately at total zero.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderResponse, error) {
	session, err := s.repo.GetActiveCashSession(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrderResponse{}, fmt.Errorf("%w: no open cash session", ErrPreconditionFailed)
		}
		return domain.OrderResponse{}, s.wrapStoreErr("load active cash session", err)
	}

	violations := make([]string, 0, 4)

	paymentMethod, ok := normalizePaymentMethod(req.PaymentMethod)
	if !ok {
		violations = append(violations, fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}
	if len(req.Items) == 0 {
		violations = append(violations, "order needs at least one item")
	}
	if req.DeliveryCostCents < 0 {
		violations = append(violations, "delivery cost must not be negative")
	}
	if req.DeliveryCostCents > 0 && !req.IsDelivery {
		violations = append(violations, "delivery cost requires a delivery order")
	}
	if req.CustomerID == "" && !req.InternalConsumption {
		violations = append(violations, "customer is required")
	}

	productIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			violations = append(violations, fmt.Sprintf("item %s: quantity must be at least 1", item.ProductID))
		}
		if item.UnitPriceCents < 0 {
			violations = append(violations, fmt.Sprintf("item %s: unit price must not be negative", item.ProductID))
		}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.OrderResponse{}, s.wrapStoreErr("load products", err)
	}
	for _, id := range productIDs {
		product, found := products[id]
		if !found {
			violations = append(violations, fmt.Sprintf("product %s not found", id))
			continue
		}
		if !product.Active {
			violations = append(violations, fmt.Sprintf("product %s is inactive", id))
		}
	}

	if req.CustomerID != "" && !req.InternalConsumption {
		if _, err := s.repo.GetCustomerByID(ctx, req.CustomerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				violations = append(violations, fmt.Sprintf("customer %s not found", req.CustomerID))
			} else {
				return domain.OrderResponse{}, s.wrapStoreErr("load customer", err)
			}
		}
	}
	if req.EmployeeID != "" {
		if _, err := s.repo.GetEmployeeByID(ctx, req.EmployeeID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				violations = append(violations, fmt.Sprintf("employee %s not found", req.EmployeeID))
			} else {
				return domain.OrderResponse{}, s.wrapStoreErr("load employee", err)
			}
		}
	}

	if len(violations) > 0 {
		return domain.OrderResponse{}, newValidationError(violations)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:                  xid.New("order"),
		CustomerID:          req.CustomerID,
		EmployeeID:          req.EmployeeID,
		MotoboyID:           req.MotoboyID,
		CashSessionID:       session.ID,
		Items:               buildOrderItems(req.Items, products),
		PaymentMethod:       paymentMethod,
		Status:              domain.OrderStatusPending,
		IsDelivery:          req.IsDelivery,
		DeliveryCostCents:   req.DeliveryCostCents,
		InternalConsumption: req.InternalConsumption,
		Notes:               strings.TrimSpace(req.Notes),
		CreatedAt:           now,
	}
	order.TotalValueCents = orderTotal(order)

	if order.InternalConsumption {
		order.CustomerID = ""
		order.PaymentMethod = ""
		order.Status = domain.OrderStatusCompleted
		order.DeliveredAt = &now
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResponse{}, s.wrapStoreErr("create order", err)
	}

	if created.Status == domain.OrderStatusCompleted {
		s.applyCompletionSideEffects(ctx, created)
	}

	s.logAudit(ctx, "order_create", "order", created.ID,
		fmt.Sprintf("total=%d,items=%d,internal=%t", created.TotalValueCents, len(created.Items), created.InternalConsumption))
	s.events.Publish(bus.TopicOrderCreated, *created)
	return domain.OrderResponse{Order: *created}, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, s.wrapStoreErr("load order", err)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, filter domain.OrderListFilter) ([]domain.Order, error) {
	if filter.Status != "" && !validOrderStatus(filter.Status) {
		return nil, newValidationError([]string{fmt.Sprintf("unknown status %q", filter.Status)})
	}
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) OrderStats(ctx context.Context, from time.Time, to time.Time) (domain.OrderStats, error) {
	orders, err := s.repo.ListOrders(ctx, domain.OrderListFilter{From: from, To: to, Limit: 100000})
	if err != nil {
		return domain.OrderStats{}, s.wrapStoreErr("list orders", err)
	}

	var stats domain.OrderStats
	for _, order := range orders {
		stats.Total++
		switch order.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusCompleted:
			stats.Completed++
			stats.RevenueCents += order.TotalValueCents
		case domain.OrderStatusCancelled:
			stats.Cancelled++
		case domain.OrderStatusRefunded:
			stats.Refunded++
			stats.RevenueCents += order.TotalValueCents
		}
	}
	return stats, nil
}

// UpdateOrder patches a pending order. A status field routes to the matching
// lifecycle transition instead of a raw write.
func (s *Service) UpdateOrder(ctx context.Context, orderID string, req domain.OrderUpdateRequest) (domain.OrderResponse, error) {
	if req.Status != nil {
		switch *req.Status {
		case domain.OrderStatusCompleted:
			method := ""
			if req.PaymentMethod != nil {
				method = *req.PaymentMethod
			}
			return s.CompleteOrder(ctx, orderID, method)
		case domain.OrderStatusCancelled:
			reason := ""
			if req.CancellationReason != nil {
				reason = *req.CancellationReason
			}
			return s.CancelOrder(ctx, orderID, reason)
		case domain.OrderStatusRefunded:
			reason := ""
			if req.CancellationReason != nil {
				reason = *req.CancellationReason
			}
			return s.RefundOrder(ctx, orderID, reason)
		default:
			return domain.OrderResponse{}, newValidationError([]string{fmt.Sprintf("unknown status %q", *req.Status)})
		}
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.OrderResponse{}, s.wrapStoreErr("load order", err)
	}
	if order.Status != domain.OrderStatusPending {
		return domain.OrderResponse{}, fmt.Errorf("%w: only pending orders can be edited (status=%s)", ErrInvalidState, order.Status)
	}

	violations := make([]string, 0, 2)
	if req.CustomerID != nil {
		order.CustomerID = *req.CustomerID
	}
	if req.MotoboyID != nil {
		order.MotoboyID = *req.MotoboyID
	}
	if req.PaymentMethod != nil {
		method, ok := normalizePaymentMethod(*req.PaymentMethod)
		if !ok {
			violations = append(violations, fmt.Sprintf("unknown payment method %q", *req.PaymentMethod))
		} else {
			order.PaymentMethod = method
		}
	}
	if req.IsDelivery != nil {
		order.IsDelivery = *req.IsDelivery
	}
	if req.DeliveryCost != nil {
		if *req.DeliveryCost < 0 {
			violations = append(violations, "delivery cost must not be negative")
		} else {
			order.DeliveryCostCents = *req.DeliveryCost
		}
	}
	if req.Notes != nil {
		order.Notes = strings.TrimSpace(*req.Notes)
	}

	replaceItems := false
	if len(req.Items) > 0 {
		productIDs := make([]string, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity < 1 {
				violations = append(violations, fmt.Sprintf("item %s: quantity must be at least 1", item.ProductID))
			}
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := s.repo.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return domain.OrderResponse{}, s.wrapStoreErr("load products", err)
		}
		for _, id := range productIDs {
			if _, found := products[id]; !found {
				violations = append(violations, fmt.Sprintf("product %s not found", id))
			}
		}
		if len(violations) == 0 {
			order.Items = buildOrderItems(req.Items, products)
			replaceItems = true
		}
	}
	if len(violations) > 0 {
		return domain.OrderResponse{}, newValidationError(violations)
	}

	order.TotalValueCents = orderTotal(*order)

	updated, err := s.repo.UpdateOrder(ctx, *order, replaceItems)
	if err != nil {
		return domain.OrderResponse{}, s.wrapStoreErr("update order", err)
	}

	s.logAudit(ctx, "order_update", "order", updated.ID, fmt.Sprintf("total=%d", updated.TotalValueCents))
	s.events.Publish(bus.TopicOrderUpdated, *updated)
	return domain.OrderResponse{Order: *updated}, nil
}

// CompleteOrder swaps pending for completed exactly once; the side effects
// (stock deduction, commission accrual) ride on the swap winning. Completing
// an already completed order is a no-op.
func (s *Service) CompleteOrder(ctx context.Context, orderID string, paymentMethod string) (domain.OrderResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.OrderResponse{}, s.wrapStoreErr("load order", err)
	}

	method := order.PaymentMethod
	if paymentMethod != "" {
		normalized, ok := normalizePaymentMethod(paymentMethod)
		if !ok {
			return domain.OrderResponse{}, newValidationError([]string{fmt.Sprintf("unknown payment method %q", paymentMethod)})
		}
		method = normalized
	}
	if method == "" && !order.InternalConsumption {
		return domain.OrderResponse{}, newValidationError([]string{"payment method is required to complete an order"})
	}

	if method != order.PaymentMethod {
		order.PaymentMethod = method
		if _, err := s.repo.UpdateOrder(ctx, *order, false); err != nil {
			return domain.OrderResponse{}, s.wrapStoreErr("set payment method", err)
		}
	}

	completed, err := s.repo.TransitionOrderStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCompleted, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			current, loadErr := s.repo.GetOrderByID(ctx, orderID)
			if loadErr != nil {
				return domain.OrderResponse{}, s.wrapStoreErr("load order", loadErr)
			}
			if current.Status == domain.OrderStatusCompleted {
				return domain.OrderResponse{Order: *current}, nil
			}
			return domain.OrderResponse{}, fmt.Errorf("%w: cannot complete order in status %s", ErrInvalidState, current.Status)
		}
		return domain.OrderResponse{}, s.wrapStoreErr("complete order", err)
	}

	s.applyCompletionSideEffects(ctx, completed)

	s.logAudit(ctx, "order_complete", "order", completed.ID,
		fmt.Sprintf("total=%d,payment=%s", completed.TotalValueCents, completed.PaymentMethod))
	s.events.Publish(bus.TopicOrderUpdated, *completed)
	return domain.OrderResponse{Order: *completed}, nil
}

// MarkDelivered records the courier (when given) and completes the order with
// its stored payment method.
func (s *Service) MarkDelivered(ctx context.Context, orderID string, motoboyID string) (domain.OrderResponse, error) {
	if motoboyID != "" {
		order, err := s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return domain.OrderResponse{}, s.wrapStoreErr("load order", err)
		}
		if order.Status == domain.OrderStatusPending && order.MotoboyID != motoboyID {
			order.MotoboyID = motoboyID
			if _, err := s.repo.UpdateOrder(ctx, *order, false); err != nil {
				return domain.OrderResponse{}, s.wrapStoreErr("set motoboy", err)
			}
		}
	}
	return s.CompleteOrder(ctx, orderID, "")
}

// CancelOrder is allowed for pending orders only and never touches stock,
// because nothing was deducted yet. The reason is optional and stored when
// present.
func (s *Service) CancelOrder(ctx context.Context, orderID string, reason string) (domain.OrderResponse, error) {
	reason = strings.TrimSpace(reason)

	cancelled, err := s.repo.TransitionOrderStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCancelled, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			current, loadErr := s.repo.GetOrderByID(ctx, orderID)
			if loadErr != nil {
				return domain.OrderResponse{}, s.wrapStoreErr("load order", loadErr)
			}
			if current.Status == domain.OrderStatusCancelled {
				return domain.OrderResponse{Order: *current}, nil
			}
			return domain.OrderResponse{}, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidState, current.Status)
		}
		return domain.OrderResponse{}, s.wrapStoreErr("cancel order", err)
	}

	saved := cancelled
	if reason != "" {
		cancelled.CancellationReason = reason
		saved, err = s.repo.UpdateOrder(ctx, *cancelled, false)
		if err != nil {
			log.Printf("[service] WARN: failed to persist cancellation reason order=%s: %v", cancelled.ID, err)
			saved = cancelled
		}
	}

	s.logAudit(ctx, "order_cancel", "order", saved.ID, reason)
	s.events.Publish(bus.TopicOrderCancelled, *saved)
	return domain.OrderResponse{Order: *saved}, nil
}

// RefundOrder moves a completed order to refunded and books a system expense
// for the full order value. Deducted stock stays deducted.
func (s *Service) RefundOrder(ctx context.Context, orderID string, reason string) (domain.OrderResponse, error) {
	refunded, err := s.repo.TransitionOrderStatus(ctx, orderID, domain.OrderStatusCompleted, domain.OrderStatusRefunded, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			current, loadErr := s.repo.GetOrderByID(ctx, orderID)
			if loadErr != nil {
				return domain.OrderResponse{}, s.wrapStoreErr("load order", loadErr)
			}
			if current.Status == domain.OrderStatusRefunded {
				return domain.OrderResponse{Order: *current}, nil
			}
			return domain.OrderResponse{}, fmt.Errorf("%w: only completed orders can be refunded (status=%s)", ErrInvalidState, current.Status)
		}
		return domain.OrderResponse{}, s.wrapStoreErr("refund order", err)
	}

	if refunded.TotalValueCents > 0 {
		description := "order refund"
		if reason = strings.TrimSpace(reason); reason != "" {
			description = "order refund: " + reason
		}
		if _, err := s.repo.CreateExpense(ctx, domain.Expense{
			ID:          xid.New("exp"),
			Type:        domain.ExpenseTypeBusiness,
			Category:    "refund",
			OrderID:     refunded.ID,
			AmountCents: refunded.TotalValueCents,
			Date:        time.Now().UTC(),
			Description: description,
			System:      true,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			log.Printf("[service] WARN: failed to book refund expense order=%s: %v", refunded.ID, err)
		}
	}

	s.logAudit(ctx, "order_refund", "order", refunded.ID, fmt.Sprintf("amount=%d", refunded.TotalValueCents))
	s.events.Publish(bus.TopicOrderRefunded, *refunded)
	return domain.OrderResponse{Order: *refunded}, nil
}

// applyCompletionSideEffects runs stock deduction and commission accrual for
// an order that just won the pending to completed swap. Deductions clamp at
// zero and are best effort: a failed leg is logged, never rolled back.
func (s *Service) applyCompletionSideEffects(ctx context.Context, order *domain.Order) {
	productIDs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		log.Printf("[service] WARN: completion side effects: load products order=%s: %v", order.ID, err)
		return
	}

	for _, item := range order.Items {
		product, found := products[item.ProductID]
		if !found {
			log.Printf("[service] WARN: completion side effects: product %s missing order=%s", item.ProductID, order.ID)
			continue
		}

		if product.IsStockTracked {
			if item.Quantity > product.StockQuantity {
				log.Printf("[service] WARN: oversell product=%s requested=%d available=%d order=%s",
					product.ID, item.Quantity, product.StockQuantity, order.ID)
			}
			remaining, err := s.repo.DeductProductStock(ctx, product.ID, item.Quantity)
			if err != nil {
				log.Printf("[service] WARN: failed to deduct stock product=%s order=%s: %v", product.ID, order.ID, err)
				continue
			}
			change := bus.StockChange{ProductID: product.ID, Remaining: remaining, Minimum: product.MinStockQuantity}
			s.events.Publish(bus.TopicProductStockUpdated, change)
			if remaining <= product.MinStockQuantity {
				s.events.Publish(bus.TopicProductLowStock, change)
			}
		}

		s.consumeIngredients(ctx, order.ID, product.ID, item.Quantity)
	}

	s.accrueCommission(ctx, order, products)
}

func (s *Service) consumeIngredients(ctx context.Context, orderID string, productID string, quantity int) {
	rows, err := s.repo.ListProductIngredients(ctx, productID)
	if err != nil {
		log.Printf("[service] WARN: failed to load recipe product=%s order=%s: %v", productID, orderID, err)
		return
	}

	for _, row := range rows {
		amount := row.QuantityPerUnit * float64(quantity)
		remaining, err := s.repo.DeductIngredientStock(ctx, row.IngredientID, amount)
		if err != nil {
			log.Printf("[service] WARN: failed to deduct ingredient=%s order=%s: %v", row.IngredientID, orderID, err)
			continue
		}

		minimum := 0.0
		if ingredient, err := s.repo.GetIngredientByID(ctx, row.IngredientID); err == nil {
			minimum = ingredient.MinQuantity
		}
		change := bus.IngredientChange{IngredientID: row.IngredientID, Remaining: remaining, Minimum: minimum}
		s.events.Publish(bus.TopicIngredientStockUpdated, change)
		if remaining <= minimum {
			s.events.Publish(bus.TopicIngredientLowStock, change)
		}
	}
}

// accrueCommission books one system expense per completed order for the
// barber who performed it: commission value times quantity over the service
// items. Internal consumption never pays commission.
func (s *Service) accrueCommission(ctx context.Context, order *domain.Order, products map[string]domain.Product) {
	if order.InternalConsumption || order.EmployeeID == "" {
		return
	}

	employee, err := s.repo.GetEmployeeByID(ctx, order.EmployeeID)
	if err != nil {
		log.Printf("[service] WARN: failed to load employee=%s for commission order=%s: %v", order.EmployeeID, order.ID, err)
		return
	}
	if employee.Role != domain.RoleBarber {
		return
	}

	total := int64(0)
	for _, item := range order.Items {
		product, found := products[item.ProductID]
		if !found || product.IsStockTracked || product.CommissionCents <= 0 {
			continue
		}
		total += product.CommissionCents * int64(item.Quantity)
	}
	if total <= 0 {
		return
	}

	if _, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Type:        domain.ExpenseTypeCommission,
		Category:    "commission",
		EmployeeID:  employee.ID,
		OrderID:     order.ID,
		AmountCents: total,
		Date:        time.Now().UTC(),
		Description: fmt.Sprintf("commission for %s", employee.Name),
		System:      true,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to book commission employee=%s order=%s: %v", employee.ID, order.ID, err)
	}
}

func buildOrderItems(draft []domain.OrderDraftItem, products map[string]domain.Product) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(draft))
	for _, item := range draft {
		unitPrice := item.UnitPriceCents
		if unitPrice == 0 {
			unitPrice = products[item.ProductID].PriceCents
		}
		items = append(items, domain.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: unitPrice,
		})
	}
	return items
}

func orderTotal(order domain.Order) int64 {
	if order.InternalConsumption {
		return 0
	}
	total := order.DeliveryCostCents
	for _, item := range order.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

func validOrderStatus(status string) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusCompleted, domain.OrderStatusCancelled, domain.OrderStatusRefunded:
		return true
	}
	return false
}
