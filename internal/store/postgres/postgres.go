package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateCashSession relies on the partial unique index over open sessions
// (closed_at IS NULL); a concurrent open surfaces as a unique violation.
func (s *Store) CreateCashSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error) {
	if session.OpenedBy == "" || session.OpeningFloatCents < 0 {
		return nil, store.ErrInvalidEntity
	}
	if session.ID == "" {
		session.ID = xid.New("cash")
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_sessions (id, opened_by, opening_float_cents, opened_at)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM cash_sessions WHERE closed_at IS NULL)
	`, session.ID, session.OpenedBy, session.OpeningFloatCents, session.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrConflict
	}

	created := session
	return &created, nil
}

func (s *Store) CloseCashSession(ctx context.Context, sessionID string, countedCents int64, cashTotalCents int64, closedAt time.Time) (*domain.CashSession, error) {
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	var session domain.CashSession
	var counted, cashTotal sql.NullInt64
	var closed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE cash_sessions
		SET closing_counted_cents = $2, cash_total_at_close_cents = $3, closed_at = $4
		WHERE id = $1 AND closed_at IS NULL
		RETURNING id, opened_by, opening_float_cents, closing_counted_cents, cash_total_at_close_cents, opened_at, closed_at
	`, sessionID, countedCents, cashTotalCents, closedAt).Scan(
		&session.ID,
		&session.OpenedBy,
		&session.OpeningFloatCents,
		&counted,
		&cashTotal,
		&session.OpenedAt,
		&closed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, lookupErr := s.GetCashSessionByID(ctx, sessionID); lookupErr == nil {
				return nil, store.ErrConflict
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	applySessionNulls(&session, counted, cashTotal, closed)
	return &session, nil
}

func (s *Store) GetActiveCashSession(ctx context.Context) (*domain.CashSession, error) {
	return s.querySession(ctx, `
		SELECT id, opened_by, opening_float_cents, closing_counted_cents, cash_total_at_close_cents, opened_at, closed_at
		FROM cash_sessions
		WHERE closed_at IS NULL
		ORDER BY opened_at DESC
		LIMIT 1
	`)
}

func (s *Store) GetCashSessionByID(ctx context.Context, sessionID string) (*domain.CashSession, error) {
	return s.querySession(ctx, `
		SELECT id, opened_by, opening_float_cents, closing_counted_cents, cash_total_at_close_cents, opened_at, closed_at
		FROM cash_sessions
		WHERE id = $1
	`, sessionID)
}

func (s *Store) querySession(ctx context.Context, query string, args ...any) (*domain.CashSession, error) {
	var session domain.CashSession
	var counted, cashTotal sql.NullInt64
	var closed sql.NullTime
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID,
		&session.OpenedBy,
		&session.OpeningFloatCents,
		&counted,
		&cashTotal,
		&session.OpenedAt,
		&closed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	applySessionNulls(&session, counted, cashTotal, closed)
	return &session, nil
}

func (s *Store) ListCashSessions(ctx context.Context, limit int) ([]domain.CashSession, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, opened_by, opening_float_cents, closing_counted_cents, cash_total_at_close_cents, opened_at, closed_at
		FROM cash_sessions
		ORDER BY opened_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.CashSession, 0, limit)
	for rows.Next() {
		var session domain.CashSession
		var counted, cashTotal sql.NullInt64
		var closed sql.NullTime
		if err := rows.Scan(&session.ID, &session.OpenedBy, &session.OpeningFloatCents, &counted, &cashTotal, &session.OpenedAt, &closed); err != nil {
			return nil, err
		}
		applySessionNulls(&session, counted, cashTotal, closed)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidEntity
	}
	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, employee_id, motoboy_id, cash_session_id,
			total_value_cents, payment_method, status, is_delivery, delivery_cost_cents,
			internal_consumption, notes, cancellation_reason,
			created_at, delivered_at, cancelled_at, refunded_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, order.ID, nullIfEmpty(order.CustomerID), nullIfEmpty(order.EmployeeID), nullIfEmpty(order.MotoboyID),
		nullIfEmpty(order.CashSessionID), order.TotalValueCents, nullIfEmpty(order.PaymentMethod), order.Status,
		order.IsDelivery, order.DeliveryCostCents, order.InternalConsumption, order.Notes, order.CancellationReason,
		order.CreatedAt, nullTime(order.DeliveredAt), nullTime(order.CancelledAt), nullTime(order.RefundedAt))
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4)
		`, order.ID, item.ProductID, item.Quantity, item.UnitPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.scanOrderRow(s.db.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	items, err := s.loadOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.Order, replaceItems bool) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = $2, employee_id = $3, motoboy_id = $4,
			total_value_cents = $5, payment_method = $6, status = $7,
			is_delivery = $8, delivery_cost_cents = $9, notes = $10,
			cancellation_reason = $11,
			delivered_at = $12, cancelled_at = $13, refunded_at = $14
		WHERE id = $1
	`, order.ID, nullIfEmpty(order.CustomerID), nullIfEmpty(order.EmployeeID), nullIfEmpty(order.MotoboyID),
		order.TotalValueCents, nullIfEmpty(order.PaymentMethod), order.Status,
		order.IsDelivery, order.DeliveryCostCents, order.Notes, order.CancellationReason,
		nullTime(order.DeliveredAt), nullTime(order.CancelledAt), nullTime(order.RefundedAt))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	if replaceItems {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
			return nil, err
		}
		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
				VALUES ($1,$2,$3,$4)
			`, order.ID, item.ProductID, item.Quantity, item.UnitPriceCents)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, order.ID)
}

// TransitionOrderStatus is a conditional UPDATE guarded by the expected
// current status; zero rows affected means the order moved concurrently.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID string, fromStatus string, toStatus string, at time.Time) (*domain.Order, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	order, err := s.scanOrderRow(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $3,
			delivered_at = CASE WHEN $3 = 'completed' THEN $4 ELSE delivered_at END,
			cancelled_at = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END,
			refunded_at  = CASE WHEN $3 = 'refunded'  THEN $4 ELSE refunded_at END
		WHERE id = $1 AND status = $2
		RETURNING id, COALESCE(customer_id,''), COALESCE(employee_id,''), COALESCE(motoboy_id,''),
			COALESCE(cash_session_id,''), total_value_cents, COALESCE(payment_method,''), status,
			is_delivery, delivery_cost_cents, internal_consumption, notes, cancellation_reason,
			created_at, delivered_at, cancelled_at, refunded_at
	`, orderID, fromStatus, toStatus, at))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			var exists bool
			if checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); checkErr == nil && exists {
				return nil, store.ErrConflict
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderListFilter) ([]domain.Order, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}

	from := filter.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, orderSelect+`
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR customer_id = $2)
			AND ($3 = '' OR cash_session_id = $3)
			AND created_at >= $4
			AND created_at < $5
		ORDER BY created_at DESC
		LIMIT $6
	`, filter.Status, filter.CustomerID, filter.CashSessionID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	orderIndex := make(map[string]int, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderIndex[order.ID] = len(orders)
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		if idx, ok := orderIndex[item.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const orderSelect = `
	SELECT id, COALESCE(customer_id,''), COALESCE(employee_id,''), COALESCE(motoboy_id,''),
		COALESCE(cash_session_id,''), total_value_cents, COALESCE(payment_method,''), status,
		is_delivery, delivery_cost_cents, internal_consumption, notes, cancellation_reason,
		created_at, delivered_at, cancelled_at, refunded_at
	FROM orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var deliveredAt, cancelledAt, refundedAt sql.NullTime
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.EmployeeID,
		&order.MotoboyID,
		&order.CashSessionID,
		&order.TotalValueCents,
		&order.PaymentMethod,
		&order.Status,
		&order.IsDelivery,
		&order.DeliveryCostCents,
		&order.InternalConsumption,
		&order.Notes,
		&order.CancellationReason,
		&order.CreatedAt,
		&deliveredAt,
		&cancelledAt,
		&refundedAt,
	)
	if err != nil {
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	if deliveredAt.Valid {
		at := deliveredAt.Time.UTC()
		order.DeliveredAt = &at
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		order.CancelledAt = &at
	}
	if refundedAt.Valid {
		at := refundedAt.Time.UTC()
		order.RefundedAt = &at
	}
	return &order, nil
}

func (s *Store) scanOrderRow(row *sql.Row) (*domain.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) loadOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 0 {
		return nil, store.ErrInvalidEntity
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, price_cents, is_stock_tracked, stock_quantity,
			min_stock_quantity, commission_cents, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
	`, product.ID, product.Name, product.PriceCents, product.IsStockTracked, product.StockQuantity,
		product.MinStockQuantity, product.CommissionCents, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, is_stock_tracked, stock_quantity, min_stock_quantity, commission_cents, active, created_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsStockTracked, &p.StockQuantity, &p.MinStockQuantity, &p.CommissionCents, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, is_stock_tracked, stock_quantity, min_stock_quantity, commission_cents, active, created_at
		FROM products
		WHERE id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsStockTracked, &p.StockQuantity, &p.MinStockQuantity, &p.CommissionCents, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 0 {
		return nil, store.ErrInvalidEntity
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price_cents = $3, is_stock_tracked = $4, stock_quantity = $5,
			min_stock_quantity = $6, commission_cents = $7, active = $8, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.PriceCents, product.IsStockTracked, product.StockQuantity,
		product.MinStockQuantity, product.CommissionCents, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, is_stock_tracked, stock_quantity, min_stock_quantity, commission_cents, active, created_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsStockTracked, &p.StockQuantity, &p.MinStockQuantity, &p.CommissionCents, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// DeductProductStock clamps at zero; a shortage never fails the sale.
func (s *Store) DeductProductStock(ctx context.Context, productID string, quantity int) (int, error) {
	var remaining int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = GREATEST(0, stock_quantity - $2), updated_at = now()
		WHERE id = $1
		RETURNING stock_quantity
	`, productID, quantity).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return remaining, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.Unit == "" {
		return nil, store.ErrInvalidEntity
	}
	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, unit, quantity, min_quantity, cost_per_unit_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.Quantity, ingredient.MinQuantity, ingredient.CostPerUnitCents, ingredient.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := ingredient
	return &created, nil
}

func (s *Store) GetIngredientByID(ctx context.Context, ingredientID string) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit, quantity, min_quantity, cost_per_unit_cents, created_at
		FROM ingredients
		WHERE id = $1
	`, ingredientID).Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Quantity, &ing.MinQuantity, &ing.CostPerUnitCents, &ing.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	ing.CreatedAt = ing.CreatedAt.UTC()
	return &ing, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.Unit == "" {
		return nil, store.ErrInvalidEntity
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $2, unit = $3, quantity = $4, min_quantity = $5, cost_per_unit_cents = $6, updated_at = now()
		WHERE id = $1
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.Quantity, ingredient.MinQuantity, ingredient.CostPerUnitCents)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(ctx context.Context, ingredientID string) error {
	inUse, err := s.IngredientInUse(ctx, ingredientID)
	if err != nil {
		return err
	}
	if inUse {
		return store.ErrConflict
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, ingredientID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, quantity, min_quantity, cost_per_unit_cents, created_at
		FROM ingredients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 32)
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Quantity, &ing.MinQuantity, &ing.CostPerUnitCents, &ing.CreatedAt); err != nil {
			return nil, err
		}
		ing.CreatedAt = ing.CreatedAt.UTC()
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *Store) DeductIngredientStock(ctx context.Context, ingredientID string, amount float64) (float64, error) {
	var remaining float64
	err := s.db.QueryRowContext(ctx, `
		UPDATE ingredients
		SET quantity = GREATEST(0, quantity - $2), updated_at = now()
		WHERE id = $1
		RETURNING quantity
	`, ingredientID, amount).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return remaining, nil
}

func (s *Store) AddProductIngredient(ctx context.Context, row domain.ProductIngredient) (*domain.ProductIngredient, error) {
	if row.ProductID == "" || row.IngredientID == "" || row.QuantityPerUnit <= 0 {
		return nil, store.ErrInvalidEntity
	}
	if row.ID == "" {
		row.ID = xid.New("pi")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_ingredients (id, product_id, ingredient_id, quantity_per_unit)
		VALUES ($1,$2,$3,$4)
	`, row.ID, row.ProductID, row.IngredientID, row.QuantityPerUnit)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := row
	return &created, nil
}

func (s *Store) RemoveProductIngredient(ctx context.Context, rowID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM product_ingredients WHERE id = $1`, rowID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateProductIngredientQuantity(ctx context.Context, rowID string, quantityPerUnit float64) (*domain.ProductIngredient, error) {
	if quantityPerUnit <= 0 {
		return nil, store.ErrInvalidEntity
	}

	var row domain.ProductIngredient
	err := s.db.QueryRowContext(ctx, `
		UPDATE product_ingredients
		SET quantity_per_unit = $2
		WHERE id = $1
		RETURNING id, product_id, ingredient_id, quantity_per_unit
	`, rowID, quantityPerUnit).Scan(&row.ID, &row.ProductID, &row.IngredientID, &row.QuantityPerUnit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Store) ListProductIngredients(ctx context.Context, productID string) ([]domain.ProductIngredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, ingredient_id, quantity_per_unit
		FROM product_ingredients
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ProductIngredient, 0, 16)
	for rows.Next() {
		var row domain.ProductIngredient
		if err := rows.Scan(&row.ID, &row.ProductID, &row.IngredientID, &row.QuantityPerUnit); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) IngredientInUse(ctx context.Context, ingredientID string) (bool, error) {
	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM product_ingredients WHERE ingredient_id = $1)
	`, ingredientID).Scan(&inUse)
	if err != nil {
		return false, err
	}
	return inUse, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if expense.Date.IsZero() {
		expense.Date = expense.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, type, category, employee_id, order_id, amount_cents, date, description, is_system, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, expense.ID, expense.Type, expense.Category, nullIfEmpty(expense.EmployeeID), nullIfEmpty(expense.OrderID),
		expense.AmountCents, expense.Date, expense.Description, expense.System, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) GetExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	var e domain.Expense
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, category, COALESCE(employee_id,''), COALESCE(order_id,''), amount_cents, date, description, is_system, created_at
		FROM expenses
		WHERE id = $1
	`, expenseID).Scan(&e.ID, &e.Type, &e.Category, &e.EmployeeID, &e.OrderID, &e.AmountCents, &e.Date, &e.Description, &e.System, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET category = $2, amount_cents = $3, date = $4, description = $5
		WHERE id = $1
	`, expense.ID, expense.Category, expense.AmountCents, expense.Date, expense.Description)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := expense
	return &updated, nil
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, expenseType string, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 200
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, category, COALESCE(employee_id,''), COALESCE(order_id,''), amount_cents, date, description, is_system, created_at
		FROM expenses
		WHERE ($1 = '' OR type = $1)
			AND date >= $2
			AND date < $3
		ORDER BY date DESC
		LIMIT $4
	`, expenseType, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Type, &e.Category, &e.EmployeeID, &e.OrderID, &e.AmountCents, &e.Date, &e.Description, &e.System, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) SumExpensesByType(ctx context.Context, employeeID string, expenseType string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE type = $1
			AND ($2 = '' OR employee_id = $2)
	`, expenseType, employeeID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error) {
	if income.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}
	if income.ID == "" {
		income.ID = xid.New("inc")
	}
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now().UTC()
	}
	if income.Date.IsZero() {
		income.Date = income.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, amount_cents, date, description, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, income.ID, income.AmountCents, income.Date, income.Description, income.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := income
	return &created, nil
}

func (s *Store) DeleteIncome(ctx context.Context, incomeID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = $1`, incomeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListIncomes(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error) {
	if limit < 1 {
		limit = 200
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount_cents, date, description, created_at
		FROM incomes
		WHERE date >= $1 AND date < $2
		ORDER BY date DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]domain.Income, 0, limit)
	for rows.Next() {
		var inc domain.Income
		if err := rows.Scan(&inc.ID, &inc.AmountCents, &inc.Date, &inc.Description, &inc.CreatedAt); err != nil {
			return nil, err
		}
		inc.Date = inc.Date.UTC()
		inc.CreatedAt = inc.CreatedAt.UTC()
		incomes = append(incomes, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return incomes, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.Name == "" || employee.Role == "" {
		return nil, store.ErrInvalidEntity
	}
	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, role, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, employee.ID, employee.Name, employee.Role, nullIfEmpty(employee.UserID), employee.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := employee
	return &created, nil
}

func (s *Store) GetEmployeeByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	var e domain.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, COALESCE(user_id,''), created_at
		FROM employees
		WHERE id = $1
	`, employeeID).Scan(&e.ID, &e.Name, &e.Role, &e.UserID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, COALESCE(user_id,''), created_at
		FROM employees
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidEntity
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, customer.ID, customer.Name, customer.Phone, customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone,''), created_at
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateMotoboy(ctx context.Context, motoboy domain.Motoboy) (*domain.Motoboy, error) {
	if motoboy.Name == "" {
		return nil, store.ErrInvalidEntity
	}
	if motoboy.ID == "" {
		motoboy.ID = xid.New("moto")
	}
	if motoboy.CreatedAt.IsZero() {
		motoboy.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO motoboys (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, motoboy.ID, motoboy.Name, motoboy.Phone, motoboy.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := motoboy
	return &created, nil
}

func (s *Store) ListMotoboys(ctx context.Context) ([]domain.Motoboy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), created_at
		FROM motoboys
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	motoboys := make([]domain.Motoboy, 0, 8)
	for rows.Next() {
		var m domain.Motoboy
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		motoboys = append(motoboys, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return motoboys, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidEntity
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidEntity
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func applySessionNulls(session *domain.CashSession, counted sql.NullInt64, cashTotal sql.NullInt64, closed sql.NullTime) {
	session.OpenedAt = session.OpenedAt.UTC()
	if counted.Valid {
		val := counted.Int64
		session.ClosingCountedCents = &val
	}
	if cashTotal.Valid {
		val := cashTotal.Int64
		session.CashTotalAtCloseCents = &val
	}
	if closed.Valid {
		at := closed.Time.UTC()
		session.ClosedAt = &at
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
