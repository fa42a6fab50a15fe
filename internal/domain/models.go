package domain

import "time"

// Order lifecycle states. Completed is the only state that triggers
// inventory deduction and commission accrual, and it does so exactly once.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodPix  = "pix"
)

// Expense types. Commission and barber payment rows are system-generated
// ledger entries and are never editable through the expense CRUD.
const (
	ExpenseTypeBusiness      = "business"
	ExpenseTypePersonal      = "personal"
	ExpenseTypeCommission    = "commission"
	ExpenseTypeBarberPayment = "barber_payment"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	RoleBarber  = "barber"
)

type CashSession struct {
	ID                    string     `json:"id"`
	OpenedBy              string     `json:"opened_by"`
	OpeningFloatCents     int64      `json:"opening_float_cents"`
	ClosingCountedCents   *int64     `json:"closing_counted_cents,omitempty"`
	CashTotalAtCloseCents *int64     `json:"cash_total_at_close_cents,omitempty"`
	OpenedAt              time.Time  `json:"opened_at"`
	ClosedAt              *time.Time `json:"closed_at,omitempty"`
}

type CashSessionOpenRequest struct {
	OpeningFloatCents int64 `json:"opening_float_cents"`
}

type CashSessionCloseRequest struct {
	CountedCents int64 `json:"counted_cents"`
}

type CashSessionResponse struct {
	Session CashSession `json:"session"`
}

// CashSessionStats mirrors the drawer reconciliation view: totals per payment
// method for the session's non-cancelled orders plus the expected cash amount.
type CashSessionStats struct {
	SessionID         string `json:"session_id"`
	TotalOrders       int    `json:"total_orders"`
	CashCents         int64  `json:"cash_cents"`
	CardCents         int64  `json:"card_cents"`
	PixCents          int64  `json:"pix_cents"`
	OpeningFloatCents int64  `json:"opening_float_cents"`
	ExpectedCashCents int64  `json:"expected_cash_cents"`
}

type OrderItem struct {
	OrderID        string `json:"order_id,omitempty"`
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID                  string      `json:"id"`
	CustomerID          string      `json:"customer_id,omitempty"`
	EmployeeID          string      `json:"employee_id,omitempty"`
	MotoboyID           string      `json:"motoboy_id,omitempty"`
	CashSessionID       string      `json:"cash_session_id"`
	Items               []OrderItem `json:"items"`
	TotalValueCents     int64       `json:"total_value_cents"`
	PaymentMethod       string      `json:"payment_method,omitempty"`
	Status              string      `json:"status"`
	IsDelivery          bool        `json:"is_delivery"`
	DeliveryCostCents   int64       `json:"delivery_cost_cents"`
	InternalConsumption bool        `json:"internal_consumption"`
	Notes               string      `json:"notes,omitempty"`
	CancellationReason  string      `json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	DeliveredAt         *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	RefundedAt          *time.Time  `json:"refunded_at,omitempty"`
}

type OrderDraftItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type OrderCreateRequest struct {
	CustomerID          string           `json:"customer_id,omitempty"`
	EmployeeID          string           `json:"employee_id,omitempty"`
	MotoboyID           string           `json:"motoboy_id,omitempty"`
	Items               []OrderDraftItem `json:"items"`
	PaymentMethod       string           `json:"payment_method,omitempty"`
	IsDelivery          bool             `json:"is_delivery"`
	DeliveryCostCents   int64            `json:"delivery_cost_cents"`
	InternalConsumption bool             `json:"internal_consumption"`
	Notes               string           `json:"notes,omitempty"`
}

// OrderUpdateRequest is a partial patch. Items, when present, replace the
// existing rows wholesale and force a total recompute.
type OrderUpdateRequest struct {
	CustomerID         *string          `json:"customer_id,omitempty"`
	MotoboyID          *string          `json:"motoboy_id,omitempty"`
	Items              []OrderDraftItem `json:"items,omitempty"`
	PaymentMethod      *string          `json:"payment_method,omitempty"`
	Status             *string          `json:"status,omitempty"`
	IsDelivery         *bool            `json:"is_delivery,omitempty"`
	DeliveryCost       *int64           `json:"delivery_cost_cents,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type OrderListFilter struct {
	Status        string
	CustomerID    string
	CashSessionID string
	From          time.Time
	To            time.Time
	Limit         int
}

type OrderStats struct {
	Total        int   `json:"total"`
	Pending      int   `json:"pending"`
	Completed    int   `json:"completed"`
	Cancelled    int   `json:"cancelled"`
	Refunded     int   `json:"refunded"`
	RevenueCents int64 `json:"revenue_cents"`
}

type Product struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PriceCents       int64     `json:"price_cents"`
	IsStockTracked   bool      `json:"is_stock_tracked"`
	StockQuantity    int       `json:"stock_quantity"`
	MinStockQuantity int       `json:"min_stock_quantity"`
	CommissionCents  int64     `json:"commission_cents"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name             string `json:"name"`
	PriceCents       int64  `json:"price_cents"`
	IsStockTracked   bool   `json:"is_stock_tracked"`
	StockQuantity    int    `json:"stock_quantity"`
	MinStockQuantity int    `json:"min_stock_quantity"`
	CommissionCents  int64  `json:"commission_cents"`
}

type ProductUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	PriceCents       *int64  `json:"price_cents,omitempty"`
	IsStockTracked   *bool   `json:"is_stock_tracked,omitempty"`
	StockQuantity    *int    `json:"stock_quantity,omitempty"`
	MinStockQuantity *int    `json:"min_stock_quantity,omitempty"`
	CommissionCents  *int64  `json:"commission_cents,omitempty"`
	Active           *bool   `json:"active,omitempty"`
}

type Ingredient struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Unit             string    `json:"unit"`
	Quantity         float64   `json:"quantity"`
	MinQuantity      float64   `json:"min_quantity"`
	CostPerUnitCents int64     `json:"cost_per_unit_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

type IngredientCreateRequest struct {
	Name             string  `json:"name"`
	Unit             string  `json:"unit"`
	Quantity         float64 `json:"quantity"`
	MinQuantity      float64 `json:"min_quantity"`
	CostPerUnitCents int64   `json:"cost_per_unit_cents"`
}

type IngredientUpdateRequest struct {
	Name             *string  `json:"name,omitempty"`
	Unit             *string  `json:"unit,omitempty"`
	Quantity         *float64 `json:"quantity,omitempty"`
	MinQuantity      *float64 `json:"min_quantity,omitempty"`
	CostPerUnitCents *int64   `json:"cost_per_unit_cents,omitempty"`
}

// ProductIngredient is one bill-of-materials row: selling one unit of the
// product consumes QuantityPerUnit of the ingredient.
type ProductIngredient struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	IngredientID    string  `json:"ingredient_id"`
	QuantityPerUnit float64 `json:"quantity_per_unit"`
}

type ProductIngredientRequest struct {
	IngredientID    string  `json:"ingredient_id"`
	QuantityPerUnit float64 `json:"quantity_per_unit"`
}

type Expense struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category,omitempty"`
	EmployeeID  string    `json:"employee_id,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	System      bool      `json:"system"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
}

type ExpenseUpdateRequest struct {
	Category    *string `json:"category,omitempty"`
	AmountCents *int64  `json:"amount_cents,omitempty"`
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Income struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type IncomeCreateRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
}

type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EmployeeCreateRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	UserID string `json:"user_id,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type Motoboy struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MotoboyCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type BarberPaymentRequest struct {
	EmployeeID  string `json:"employee_id"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type CommissionBalance struct {
	EmployeeID       string `json:"employee_id"`
	EarnedCents      int64  `json:"earned_cents"`
	PaidCents        int64  `json:"paid_cents"`
	OutstandingCents int64  `json:"outstanding_cents"`
}

// FinancialSummary is the period-bounded read-side projection over orders,
// expenses and incomes. Cancelled orders are excluded from revenue.
type FinancialSummary struct {
	From               string           `json:"from,omitempty"`
	To                 string           `json:"to,omitempty"`
	TotalRevenueCents  int64            `json:"total_revenue_cents"`
	RevenueByMethod    map[string]int64 `json:"revenue_by_method"`
	TotalExpensesCents int64            `json:"total_expenses_cents"`
	ExpensesByCategory map[string]int64 `json:"expenses_by_category"`
	TotalIncomeCents   int64            `json:"total_income_cents"`
	ProfitCents        int64            `json:"profit_cents"`
	GeneratedAt        string           `json:"generated_at"`
}

type DailyRevenuePoint struct {
	Date         string `json:"date"`
	RevenueCents int64  `json:"revenue_cents"`
}

type DashboardData struct {
	Series           []DailyRevenuePoint `json:"series"`
	TodayCents       int64               `json:"today_cents"`
	Delta30Percent   float64             `json:"delta_30_percent"`
	DeltaMonthStart  float64             `json:"delta_month_start_percent"`
	DeltaYearPercent float64             `json:"delta_year_percent"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated identity attached to every core call. The core
// treats it as opaque input and never sources credentials itself.
type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
