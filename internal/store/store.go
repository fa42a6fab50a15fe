package store

import (
	"context"
	"errors"
	"time"

	"barbearia/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidEntity = errors.New("invalid entity")
)

// Repository is the row-level persistence contract the core depends on.
// Implementations must not assume multi-statement transactions; the service
// layer compensates with conditional writes and best-effort side effects.
type Repository interface {
	CreateCashSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error)
	CloseCashSession(ctx context.Context, sessionID string, countedCents int64, cashTotalCents int64, closedAt time.Time) (*domain.CashSession, error)
	GetActiveCashSession(ctx context.Context) (*domain.CashSession, error)
	GetCashSessionByID(ctx context.Context, sessionID string) (*domain.CashSession, error)
	ListCashSessions(ctx context.Context, limit int) ([]domain.CashSession, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order, replaceItems bool) (*domain.Order, error)
	TransitionOrderStatus(ctx context.Context, orderID string, fromStatus string, toStatus string, at time.Time) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderListFilter) ([]domain.Order, error)

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, productID string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	DeductProductStock(ctx context.Context, productID string, quantity int) (int, error)

	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	GetIngredientByID(ctx context.Context, ingredientID string) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, ingredientID string) error
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	DeductIngredientStock(ctx context.Context, ingredientID string, amount float64) (float64, error)

	AddProductIngredient(ctx context.Context, row domain.ProductIngredient) (*domain.ProductIngredient, error)
	RemoveProductIngredient(ctx context.Context, rowID string) error
	UpdateProductIngredientQuantity(ctx context.Context, rowID string, quantityPerUnit float64) (*domain.ProductIngredient, error)
	ListProductIngredients(ctx context.Context, productID string) ([]domain.ProductIngredient, error)
	IngredientInUse(ctx context.Context, ingredientID string) (bool, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	GetExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, expenseID string) error
	ListExpenses(ctx context.Context, from time.Time, to time.Time, expenseType string, limit int) ([]domain.Expense, error)
	SumExpensesByType(ctx context.Context, employeeID string, expenseType string) (int64, error)

	CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error)
	DeleteIncome(ctx context.Context, incomeID string) error
	ListIncomes(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error)

	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	GetEmployeeByID(ctx context.Context, employeeID string) (*domain.Employee, error)
	ListEmployees(ctx context.Context) ([]domain.Employee, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	CreateMotoboy(ctx context.Context, motoboy domain.Motoboy) (*domain.Motoboy, error)
	ListMotoboys(ctx context.Context) ([]domain.Motoboy, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
