package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barbearia/backend/internal/bus"
	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/report"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	events  *bus.Bus
	reports *report.Engine
}

func New(repo store.Repository, events *bus.Bus, reports *report.Engine) *Service {
	if events == nil {
		events = bus.New()
	}
	if reports == nil {
		reports = report.NewEngine(nil, 0)
	}

	return &Service{
		repo:    repo,
		events:  events,
		reports: reports,
	}
}

// Events exposes the notification bus so read-side consumers (caches,
// dashboards) can subscribe. Publishing is the service's job only.
func (s *Service) Events() *bus.Bus {
	return s.events
}

// Authenticate checks a username/password pair against the stored bcrypt
// hash. Wrong password and unknown user return the same error.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.Actor, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return domain.Actor{}, ErrUnauthorized
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrUnauthorized
		}
		return domain.Actor{}, s.wrapStoreErr("load user", err)
	}
	if !user.Active {
		return domain.Actor{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.Actor{}, ErrUnauthorized
	}
	return domain.Actor{Username: user.Username, Role: user.Role}, nil
}

// ChangePassword lets an authenticated user rotate their own credential.
func (s *Service) ChangePassword(ctx context.Context, currentPassword string, newPassword string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if len(newPassword) < 8 {
		return newValidationError([]string{"password must have at least 8 characters"})
	}

	if _, err := s.Authenticate(ctx, actor.Username, currentPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, actor.Username, string(hash)); err != nil {
		return s.wrapStoreErr("update password", err)
	}

	s.logAudit(ctx, "password_change", "user", actor.Username, "")
	return nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx)
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	violations := make([]string, 0, 2)
	if strings.TrimSpace(req.Name) == "" {
		violations = append(violations, "name is required")
	}
	switch req.Role {
	case domain.RoleAdmin, domain.RoleCashier, domain.RoleBarber:
	default:
		violations = append(violations, "role must be admin, cashier or barber")
	}
	if len(violations) > 0 {
		return domain.Employee{}, newValidationError(violations)
	}

	created, err := s.repo.CreateEmployee(ctx, domain.Employee{
		ID:        xid.New("emp"),
		Name:      strings.TrimSpace(req.Name),
		Role:      req.Role,
		UserID:    req.UserID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Employee{}, s.wrapStoreErr("create employee", err)
	}

	s.logAudit(ctx, "employee_create", "employee", created.ID, fmt.Sprintf("name=%s,role=%s", created.Name, created.Role))
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Customer{}, newValidationError([]string{"name is required"})
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cust"),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, s.wrapStoreErr("create customer", err)
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListMotoboys(ctx context.Context) ([]domain.Motoboy, error) {
	return s.repo.ListMotoboys(ctx)
}

func (s *Service) CreateMotoboy(ctx context.Context, req domain.MotoboyCreateRequest) (domain.Motoboy, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Motoboy{}, newValidationError([]string{"name is required"})
	}

	created, err := s.repo.CreateMotoboy(ctx, domain.Motoboy{
		ID:        xid.New("moto"),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Motoboy{}, s.wrapStoreErr("create motoboy", err)
	}

	s.logAudit(ctx, "motoboy_create", "motoboy", created.ID, created.Name)
	return *created, nil
}

func (s *Service) CreateStaffUser(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.StaffUser{}, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}

	violations := make([]string, 0, 3)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		violations = append(violations, "username is required")
	}
	if len(req.Password) < 8 {
		violations = append(violations, "password must have at least 8 characters")
	}
	switch req.Role {
	case domain.RoleAdmin, domain.RoleCashier, domain.RoleBarber:
	default:
		violations = append(violations, "role must be admin, cashier or barber")
	}
	if len(violations) > 0 {
		return domain.StaffUser{}, newValidationError(violations)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      req.Role,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.StaffUser{}, s.wrapStoreErr("create user", err)
	}

	s.logAudit(ctx, "staff_create", "user", username, "role="+req.Role)
	return domain.StaffUser{Username: username, Role: req.Role, Active: true, CreatedAt: now}, nil
}

func (s *Service) ListStaffUsers(ctx context.Context) ([]domain.StaffUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, s.wrapStoreErr("list users", err)
	}

	staff := make([]domain.StaffUser, 0, len(users))
	for _, user := range users {
		staff = append(staff, domain.StaffUser{
			Username:  user.Username,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return staff, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}

// wrapStoreErr keeps domain sentinels intact and tags everything else as an
// upstream failure.
func (s *Service) wrapStoreErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrInvalidEntity) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

// normalizePaymentMethod folds the spellings the front desk actually types
// into the canonical set.
func normalizePaymentMethod(method string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "cash", "dinheiro":
		return domain.PaymentMethodCash, true
	case "card", "cartao", "cartão", "credit", "debit":
		return domain.PaymentMethodCard, true
	case "pix":
		return domain.PaymentMethodPix, true
	case "":
		return "", true
	default:
		return "", false
	}
}

// parseDate accepts YYYY-MM-DD or RFC 3339; empty means now.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return parsed.UTC(), nil
}
