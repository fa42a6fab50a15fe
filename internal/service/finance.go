package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barbearia/backend/internal/bus"
	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

// CreateExpense records a manual expense. Only business and personal types
// are accepted here; commission and payment rows are written by the core
// itself and carry the system flag.
func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	violations := make([]string, 0, 3)

	switch req.Type {
	case domain.ExpenseTypeBusiness, domain.ExpenseTypePersonal:
	default:
		violations = append(violations, "type must be business or personal")
	}
	if req.AmountCents <= 0 {
		violations = append(violations, "amount must be positive")
	}
	if strings.TrimSpace(req.Description) == "" {
		violations = append(violations, "description is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return domain.Expense{}, newValidationError(violations)
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		AmountCents: req.AmountCents,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Expense{}, s.wrapStoreErr("create expense", err)
	}

	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("type=%s,amount=%d", created.Type, created.AmountCents))
	s.events.Publish(bus.TopicExpenseRecorded, *created)
	return *created, nil
}

func (s *Service) UpdateExpense(ctx context.Context, expenseID string, req domain.ExpenseUpdateRequest) (domain.Expense, error) {
	expense, err := s.repo.GetExpenseByID(ctx, expenseID)
	if err != nil {
		return domain.Expense{}, s.wrapStoreErr("load expense", err)
	}
	if expense.System {
		return domain.Expense{}, fmt.Errorf("%w: system expenses cannot be edited", ErrInvalidState)
	}

	violations := make([]string, 0, 2)
	if req.Category != nil {
		expense.Category = strings.TrimSpace(*req.Category)
	}
	if req.AmountCents != nil {
		if *req.AmountCents <= 0 {
			violations = append(violations, "amount must be positive")
		} else {
			expense.AmountCents = *req.AmountCents
		}
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			violations = append(violations, err.Error())
		} else {
			expense.Date = date
		}
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			violations = append(violations, "description is required")
		} else {
			expense.Description = strings.TrimSpace(*req.Description)
		}
	}
	if len(violations) > 0 {
		return domain.Expense{}, newValidationError(violations)
	}

	updated, err := s.repo.UpdateExpense(ctx, *expense)
	if err != nil {
		return domain.Expense{}, s.wrapStoreErr("update expense", err)
	}

	s.logAudit(ctx, "expense_update", "expense", updated.ID, fmt.Sprintf("amount=%d", updated.AmountCents))
	s.events.Publish(bus.TopicExpenseRecorded, *updated)
	return *updated, nil
}

func (s *Service) DeleteExpense(ctx context.Context, expenseID string) error {
	expense, err := s.repo.GetExpenseByID(ctx, expenseID)
	if err != nil {
		return s.wrapStoreErr("load expense", err)
	}
	if expense.System {
		return fmt.Errorf("%w: system expenses cannot be deleted", ErrInvalidState)
	}

	if err := s.repo.DeleteExpense(ctx, expenseID); err != nil {
		return s.wrapStoreErr("delete expense", err)
	}

	s.logAudit(ctx, "expense_delete", "expense", expenseID, "")
	s.events.Publish(bus.TopicExpenseRecorded, *expense)
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, from time.Time, to time.Time, expenseType string, limit int) ([]domain.Expense, error) {
	if expenseType != "" {
		switch expenseType {
		case domain.ExpenseTypeBusiness, domain.ExpenseTypePersonal, domain.ExpenseTypeCommission, domain.ExpenseTypeBarberPayment:
		default:
			return nil, newValidationError([]string{fmt.Sprintf("unknown expense type %q", expenseType)})
		}
	}
	return s.repo.ListExpenses(ctx, from, to, expenseType, limit)
}

func (s *Service) CreateIncome(ctx context.Context, req domain.IncomeCreateRequest) (domain.Income, error) {
	violations := make([]string, 0, 2)
	if req.AmountCents <= 0 {
		violations = append(violations, "amount must be positive")
	}
	if strings.TrimSpace(req.Description) == "" {
		violations = append(violations, "description is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return domain.Income{}, newValidationError(violations)
	}

	created, err := s.repo.CreateIncome(ctx, domain.Income{
		ID:          xid.New("inc"),
		AmountCents: req.AmountCents,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Income{}, s.wrapStoreErr("create income", err)
	}

	s.logAudit(ctx, "income_create", "income", created.ID, fmt.Sprintf("amount=%d", created.AmountCents))
	s.events.Publish(bus.TopicIncomeRecorded, *created)
	return *created, nil
}

func (s *Service) DeleteIncome(ctx context.Context, incomeID string) error {
	if err := s.repo.DeleteIncome(ctx, incomeID); err != nil {
		return s.wrapStoreErr("delete income", err)
	}

	s.logAudit(ctx, "income_delete", "income", incomeID, "")
	s.events.Publish(bus.TopicIncomeRecorded, domain.Income{ID: incomeID})
	return nil
}

func (s *Service) ListIncomes(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error) {
	return s.repo.ListIncomes(ctx, from, to, limit)
}

// CommissionBalance nets everything a barber earned against everything
// already paid out. Both sides live in the expense ledger as system rows.
func (s *Service) CommissionBalance(ctx context.Context, employeeID string) (domain.CommissionBalance, error) {
	employee, err := s.repo.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		return domain.CommissionBalance{}, s.wrapStoreErr("load employee", err)
	}

	earned, err := s.repo.SumExpensesByType(ctx, employee.ID, domain.ExpenseTypeCommission)
	if err != nil {
		return domain.CommissionBalance{}, s.wrapStoreErr("sum commissions", err)
	}
	paid, err := s.repo.SumExpensesByType(ctx, employee.ID, domain.ExpenseTypeBarberPayment)
	if err != nil {
		return domain.CommissionBalance{}, s.wrapStoreErr("sum payments", err)
	}

	return domain.CommissionBalance{
		EmployeeID:       employee.ID,
		EarnedCents:      earned,
		PaidCents:        paid,
		OutstandingCents: earned - paid,
	}, nil
}

// PayBarber settles part or all of a barber's outstanding commission. A
// payment above the outstanding balance is refused outright.
func (s *Service) PayBarber(ctx context.Context, req domain.BarberPaymentRequest) (domain.Expense, error) {
	violations := make([]string, 0, 2)
	if req.AmountCents <= 0 {
		violations = append(violations, "amount must be positive")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return domain.Expense{}, newValidationError(violations)
	}

	employee, err := s.repo.GetEmployeeByID(ctx, req.EmployeeID)
	if err != nil {
		return domain.Expense{}, s.wrapStoreErr("load employee", err)
	}
	if employee.Role != domain.RoleBarber {
		return domain.Expense{}, fmt.Errorf("%w: employee %s is not a barber", store.ErrInvalidEntity, employee.ID)
	}

	balance, err := s.CommissionBalance(ctx, employee.ID)
	if err != nil {
		return domain.Expense{}, err
	}
	if req.AmountCents > balance.OutstandingCents {
		return domain.Expense{}, newValidationError([]string{fmt.Sprintf(
			"payment of %d exceeds outstanding commission of %d", req.AmountCents, balance.OutstandingCents)})
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("commission payment to %s", employee.Name)
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Type:        domain.ExpenseTypeBarberPayment,
		Category:    "barber_payment",
		EmployeeID:  employee.ID,
		AmountCents: req.AmountCents,
		Date:        date,
		Description: description,
		System:      true,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Expense{}, s.wrapStoreErr("create payment expense", err)
	}

	s.logAudit(ctx, "barber_payment", "expense", created.ID,
		fmt.Sprintf("employee=%s,amount=%d,outstanding=%d", employee.ID, req.AmountCents, balance.OutstandingCents-req.AmountCents))
	s.events.Publish(bus.TopicExpenseRecorded, *created)
	return *created, nil
}

// FinancialSummary aggregates revenue, expenses and income over a period.
func (s *Service) FinancialSummary(ctx context.Context, from time.Time, to time.Time) (domain.FinancialSummary, error) {
	orders, err := s.repo.ListOrders(ctx, domain.OrderListFilter{From: from, To: to, Limit: 100000})
	if err != nil {
		return domain.FinancialSummary{}, s.wrapStoreErr("list orders", err)
	}
	expenses, err := s.repo.ListExpenses(ctx, from, to, "", 100000)
	if err != nil {
		return domain.FinancialSummary{}, s.wrapStoreErr("list expenses", err)
	}
	incomes, err := s.repo.ListIncomes(ctx, from, to, 100000)
	if err != nil {
		return domain.FinancialSummary{}, s.wrapStoreErr("list incomes", err)
	}

	return s.reports.Summarize(ctx, from, to, orders, expenses, incomes), nil
}

// Dashboard builds the revenue chart. Orders back to the start of the
// previous year feed the year-over-year delta.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardData, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)

	orders, err := s.repo.ListOrders(ctx, domain.OrderListFilter{From: from, To: now, Limit: 1000000})
	if err != nil {
		return domain.DashboardData{}, s.wrapStoreErr("list orders", err)
	}

	return s.reports.Dashboard(now, orders), nil
}
