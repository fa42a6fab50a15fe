package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

type Store struct {
	mu                   sync.RWMutex
	sessionsByID         map[string]domain.CashSession
	activeSessionID      string
	ordersByID           map[string]*domain.Order
	productsByID         map[string]domain.Product
	ingredientsByID      map[string]domain.Ingredient
	productIngredients   map[string]domain.ProductIngredient
	expensesByID         map[string]domain.Expense
	incomesByID          map[string]domain.Income
	employeesByID        map[string]domain.Employee
	customersByID        map[string]domain.Customer
	motoboysByID         map[string]domain.Motoboy
	auditLogs            []domain.AuditLog
	usersByUsername      map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; when
// unset, hardcoded dev defaults are used with a warning. The memory store is
// never selected in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		sessionsByID:       make(map[string]domain.CashSession),
		ordersByID:         make(map[string]*domain.Order),
		productsByID:       make(map[string]domain.Product),
		ingredientsByID:    make(map[string]domain.Ingredient),
		productIngredients: make(map[string]domain.ProductIngredient),
		expensesByID:       make(map[string]domain.Expense),
		incomesByID:        make(map[string]domain.Income),
		employeesByID:      make(map[string]domain.Employee),
		customersByID:      make(map[string]domain.Customer),
		motoboysByID:       make(map[string]domain.Motoboy),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "prod-corte", Name: "Corte Masculino", PriceCents: 4500, CommissionCents: 1500, Active: true, CreatedAt: now},
		{ID: "prod-barba", Name: "Barba Completa", PriceCents: 3500, CommissionCents: 1200, Active: true, CreatedAt: now},
		{ID: "prod-combo", Name: "Corte + Barba", PriceCents: 7000, CommissionCents: 2400, Active: true, CreatedAt: now},
		{ID: "prod-sobrancelha", Name: "Sobrancelha", PriceCents: 1500, CommissionCents: 500, Active: true, CreatedAt: now},
		{ID: "prod-pomada", Name: "Pomada Modeladora", PriceCents: 4900, IsStockTracked: true, StockQuantity: 24, MinStockQuantity: 5, Active: true, CreatedAt: now},
		{ID: "prod-cerveja", Name: "Cerveja Long Neck", PriceCents: 1200, IsStockTracked: true, StockQuantity: 48, MinStockQuantity: 12, Active: true, CreatedAt: now},
		{ID: "prod-refri", Name: "Refrigerante Lata", PriceCents: 700, IsStockTracked: true, StockQuantity: 36, MinStockQuantity: 10, Active: true, CreatedAt: now},
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
	}

	ingredients := []domain.Ingredient{
		{ID: "ing-navalha", Name: "Lâmina de Navalha", Unit: "un", Quantity: 80, MinQuantity: 20, CostPerUnitCents: 150, CreatedAt: now},
		{ID: "ing-espuma", Name: "Espuma de Barbear", Unit: "ml", Quantity: 2000, MinQuantity: 400, CostPerUnitCents: 4, CreatedAt: now},
		{ID: "ing-toalha", Name: "Toalha Descartável", Unit: "un", Quantity: 150, MinQuantity: 30, CostPerUnitCents: 90, CreatedAt: now},
	}
	for _, ing := range ingredients {
		s.ingredientsByID[ing.ID] = ing
	}

	boms := []domain.ProductIngredient{
		{ID: "pi-barba-navalha", ProductID: "prod-barba", IngredientID: "ing-navalha", QuantityPerUnit: 1},
		{ID: "pi-barba-espuma", ProductID: "prod-barba", IngredientID: "ing-espuma", QuantityPerUnit: 30},
		{ID: "pi-combo-navalha", ProductID: "prod-combo", IngredientID: "ing-navalha", QuantityPerUnit: 1},
		{ID: "pi-combo-espuma", ProductID: "prod-combo", IngredientID: "ing-espuma", QuantityPerUnit: 30},
		{ID: "pi-combo-toalha", ProductID: "prod-combo", IngredientID: "ing-toalha", QuantityPerUnit: 1},
	}
	for _, row := range boms {
		s.productIngredients[row.ID] = row
	}

	employees := []domain.Employee{
		{ID: "emp-carlos", Name: "Carlos Silva", Role: domain.RoleBarber, CreatedAt: now},
		{ID: "emp-rafael", Name: "Rafael Souza", Role: domain.RoleBarber, CreatedAt: now},
		{ID: "emp-ana", Name: "Ana Lima", Role: domain.RoleCashier, CreatedAt: now},
	}
	for _, e := range employees {
		s.employeesByID[e.ID] = e
	}

	customers := []domain.Customer{
		{ID: "cust-joao", Name: "João Pereira", Phone: "+55 11 98888-0001", CreatedAt: now},
		{ID: "cust-marcos", Name: "Marcos Oliveira", Phone: "+55 11 98888-0002", CreatedAt: now},
	}
	for _, c := range customers {
		s.customersByID[c.ID] = c
	}

	s.motoboysByID["moto-leo"] = domain.Motoboy{ID: "moto-leo", Name: "Leonardo Costa", Phone: "+55 11 97777-0001", CreatedAt: now}

	return s
}

func (s *Store) CreateCashSession(_ context.Context, session domain.CashSession) (*domain.CashSession, error) {
	if session.OpenedBy == "" || session.OpeningFloatCents < 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeSessionID != "" {
		return nil, store.ErrConflict
	}
	if session.ID == "" {
		session.ID = xid.New("cash")
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}
	session.ClosedAt = nil
	session.ClosingCountedCents = nil
	session.CashTotalAtCloseCents = nil

	s.sessionsByID[session.ID] = session
	s.activeSessionID = session.ID
	created := session
	return &created, nil
}

func (s *Store) CloseCashSession(_ context.Context, sessionID string, countedCents int64, cashTotalCents int64, closedAt time.Time) (*domain.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessionsByID[sessionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if session.ClosedAt != nil {
		return nil, store.ErrConflict
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	session.ClosingCountedCents = &countedCents
	session.CashTotalAtCloseCents = &cashTotalCents
	session.ClosedAt = &closedAt

	s.sessionsByID[sessionID] = session
	if s.activeSessionID == sessionID {
		s.activeSessionID = ""
	}
	closed := cloneSession(session)
	return &closed, nil
}

func (s *Store) GetActiveCashSession(_ context.Context) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeSessionID == "" {
		return nil, store.ErrNotFound
	}
	session, exists := s.sessionsByID[s.activeSessionID]
	if !exists || session.ClosedAt != nil {
		return nil, store.ErrNotFound
	}
	active := cloneSession(session)
	return &active, nil
}

func (s *Store) GetCashSessionByID(_ context.Context, sessionID string) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessionsByID[sessionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneSession(session)
	return &found, nil
}

func (s *Store) ListCashSessions(_ context.Context, limit int) ([]domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashSession, 0, len(s.sessionsByID))
	for _, session := range s.sessionsByID {
		result = append(result, cloneSession(session))
	}
	slices.SortFunc(result, func(a, b domain.CashSession) int {
		if a.OpenedAt.Equal(b.OpenedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.OpenedAt.After(b.OpenedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	s.ordersByID[order.ID] = cloneOrder(&order)
	created := cloneOrder(s.ordersByID[order.ID])
	return created, nil
}

func (s *Store) GetOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[orderID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.Order, replaceItems bool) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ordersByID[order.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !replaceItems {
		order.Items = existing.Items
	} else {
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
	}

	s.ordersByID[order.ID] = cloneOrder(&order)
	updated := cloneOrder(s.ordersByID[order.ID])
	return updated, nil
}

// TransitionOrderStatus is a compare-and-swap on the status column. The swap
// succeeds at most once per (from, to) pair, which is what makes completion
// side effects exactly-once.
func (s *Store) TransitionOrderStatus(_ context.Context, orderID string, fromStatus string, toStatus string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[orderID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if order.Status != fromStatus {
		return nil, store.ErrConflict
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	order.Status = toStatus
	switch toStatus {
	case domain.OrderStatusCompleted:
		order.DeliveredAt = &at
	case domain.OrderStatusCancelled:
		order.CancelledAt = &at
	case domain.OrderStatusRefunded:
		order.RefundedAt = &at
	}

	return cloneOrder(order), nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderListFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.CashSessionID != "" && order.CashSessionID != filter.CashSessionID {
			continue
		}
		if !filter.From.IsZero() && order.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !order.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, *cloneOrder(order))
	}

	slices.SortFunc(result, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrConflict
	}
	product.Active = true

	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s.productsByID[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

// DeductProductStock clamps at zero and never fails on shortage; overselling
// a tracked product leaves stock at 0 and the caller decides whether to warn.
func (s *Store) DeductProductStock(_ context.Context, productID string, quantity int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists {
		return 0, store.ErrNotFound
	}
	product.StockQuantity -= quantity
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}
	s.productsByID[productID] = product
	return product.StockQuantity, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if strings.TrimSpace(ingredient.Name) == "" || strings.TrimSpace(ingredient.Unit) == "" {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	created := ingredient
	return &created, nil
}

func (s *Store) GetIngredientByID(_ context.Context, ingredientID string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredient, exists := s.ingredientsByID[ingredientID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := ingredient
	return &found, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if strings.TrimSpace(ingredient.Name) == "" || strings.TrimSpace(ingredient.Unit) == "" {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[ingredient.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(_ context.Context, ingredientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[ingredientID]; !exists {
		return store.ErrNotFound
	}
	for _, row := range s.productIngredients {
		if row.IngredientID == ingredientID {
			return store.ErrConflict
		}
	}
	delete(s.ingredientsByID, ingredientID)
	return nil
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredientsByID))
	for _, ing := range s.ingredientsByID {
		ingredients = append(ingredients, ing)
	}
	slices.SortFunc(ingredients, func(a, b domain.Ingredient) int {
		return cmpString(a.Name, b.Name)
	})
	return ingredients, nil
}

func (s *Store) DeductIngredientStock(_ context.Context, ingredientID string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ingredient, exists := s.ingredientsByID[ingredientID]
	if !exists {
		return 0, store.ErrNotFound
	}
	ingredient.Quantity -= amount
	if ingredient.Quantity < 0 {
		ingredient.Quantity = 0
	}
	s.ingredientsByID[ingredientID] = ingredient
	return ingredient.Quantity, nil
}

func (s *Store) AddProductIngredient(_ context.Context, row domain.ProductIngredient) (*domain.ProductIngredient, error) {
	if row.ProductID == "" || row.IngredientID == "" || row.QuantityPerUnit <= 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[row.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.ingredientsByID[row.IngredientID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.productIngredients {
		if existing.ProductID == row.ProductID && existing.IngredientID == row.IngredientID {
			return nil, store.ErrConflict
		}
	}
	if row.ID == "" {
		row.ID = xid.New("pi")
	}
	s.productIngredients[row.ID] = row
	created := row
	return &created, nil
}

func (s *Store) RemoveProductIngredient(_ context.Context, rowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productIngredients[rowID]; !exists {
		return store.ErrNotFound
	}
	delete(s.productIngredients, rowID)
	return nil
}

func (s *Store) UpdateProductIngredientQuantity(_ context.Context, rowID string, quantityPerUnit float64) (*domain.ProductIngredient, error) {
	if quantityPerUnit <= 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.productIngredients[rowID]
	if !exists {
		return nil, store.ErrNotFound
	}
	row.QuantityPerUnit = quantityPerUnit
	s.productIngredients[rowID] = row
	updated := row
	return &updated, nil
}

func (s *Store) ListProductIngredients(_ context.Context, productID string) ([]domain.ProductIngredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ProductIngredient, 0, 8)
	for _, row := range s.productIngredients {
		if productID != "" && row.ProductID != productID {
			continue
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.ProductIngredient) int {
		return cmpString(a.ID, b.ID)
	})
	return rows, nil
}

func (s *Store) IngredientInUse(_ context.Context, ingredientID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.productIngredients {
		if row.IngredientID == ingredientID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if expense.Date.IsZero() {
		expense.Date = expense.CreatedAt
	}
	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) GetExpenseByID(_ context.Context, expenseID string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, exists := s.expensesByID[expenseID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := expense
	return &found, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[expense.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.expensesByID[expense.ID] = expense
	updated := expense
	return &updated, nil
}

func (s *Store) DeleteExpense(_ context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[expenseID]; !exists {
		return store.ErrNotFound
	}
	delete(s.expensesByID, expenseID)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time, expenseType string, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expensesByID))
	for _, expense := range s.expensesByID {
		if expenseType != "" && expense.Type != expenseType {
			continue
		}
		if !from.IsZero() && expense.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !expense.Date.Before(to) {
			continue
		}
		result = append(result, expense)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SumExpensesByType(_ context.Context, employeeID string, expenseType string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(0)
	for _, expense := range s.expensesByID {
		if expense.Type != expenseType {
			continue
		}
		if employeeID != "" && expense.EmployeeID != employeeID {
			continue
		}
		total += expense.AmountCents
	}
	return total, nil
}

func (s *Store) CreateIncome(_ context.Context, income domain.Income) (*domain.Income, error) {
	if income.AmountCents <= 0 {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if income.ID == "" {
		income.ID = xid.New("inc")
	}
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now().UTC()
	}
	if income.Date.IsZero() {
		income.Date = income.CreatedAt
	}
	s.incomesByID[income.ID] = income
	created := income
	return &created, nil
}

func (s *Store) DeleteIncome(_ context.Context, incomeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.incomesByID[incomeID]; !exists {
		return store.ErrNotFound
	}
	delete(s.incomesByID, incomeID)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Income, 0, len(s.incomesByID))
	for _, income := range s.incomesByID {
		if !from.IsZero() && income.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !income.Date.Before(to) {
			continue
		}
		result = append(result, income)
	}
	slices.SortFunc(result, func(a, b domain.Income) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	if strings.TrimSpace(employee.Name) == "" || employee.Role == "" {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now().UTC()
	}
	s.employeesByID[employee.ID] = employee
	created := employee
	return &created, nil
}

func (s *Store) GetEmployeeByID(_ context.Context, employeeID string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, exists := s.employeesByID[employeeID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := employee
	return &found, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]domain.Employee, 0, len(s.employeesByID))
	for _, e := range s.employeesByID {
		employees = append(employees, e)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return cmpString(a.Name, b.Name)
	})
	return employees, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) CreateMotoboy(_ context.Context, motoboy domain.Motoboy) (*domain.Motoboy, error) {
	if strings.TrimSpace(motoboy.Name) == "" {
		return nil, store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if motoboy.ID == "" {
		motoboy.ID = xid.New("moto")
	}
	if motoboy.CreatedAt.IsZero() {
		motoboy.CreatedAt = time.Now().UTC()
	}
	s.motoboysByID[motoboy.ID] = motoboy
	created := motoboy
	return &created, nil
}

func (s *Store) ListMotoboys(_ context.Context) ([]domain.Motoboy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	motoboys := make([]domain.Motoboy, 0, len(s.motoboysByID))
	for _, m := range s.motoboysByID {
		motoboys = append(motoboys, m)
	}
	slices.SortFunc(motoboys, func(a, b domain.Motoboy) int {
		return cmpString(a.Name, b.Name)
	})
	return motoboys, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidEntity
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidEntity
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSession(src domain.CashSession) domain.CashSession {
	dup := src
	if src.ClosingCountedCents != nil {
		counted := *src.ClosingCountedCents
		dup.ClosingCountedCents = &counted
	}
	if src.CashTotalAtCloseCents != nil {
		cashTotal := *src.CashTotalAtCloseCents
		dup.CashTotalAtCloseCents = &cashTotal
	}
	if src.ClosedAt != nil {
		closedAt := *src.ClosedAt
		dup.ClosedAt = &closedAt
	}
	return dup
}

func cloneOrder(src *domain.Order) *domain.Order {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.OrderItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	if src.DeliveredAt != nil {
		deliveredAt := *src.DeliveredAt
		dup.DeliveredAt = &deliveredAt
	}
	if src.CancelledAt != nil {
		cancelledAt := *src.CancelledAt
		dup.CancelledAt = &cancelledAt
	}
	if src.RefundedAt != nil {
		refundedAt := *src.RefundedAt
		dup.RefundedAt = &refundedAt
	}
	return &dup
}
