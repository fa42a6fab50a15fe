package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barbearia/backend/internal/bus"
	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

// OpenCashSession opens the single cash drawer for the day. The store layer
// guarantees at most one open session; a second open attempt conflicts.
func (s *Service) OpenCashSession(ctx context.Context, req domain.CashSessionOpenRequest) (domain.CashSessionResponse, error) {
	if req.OpeningFloatCents < 0 {
		return domain.CashSessionResponse{}, newValidationError([]string{"opening float must not be negative"})
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CashSessionResponse{}, fmt.Errorf("%w: authenticated actor required", ErrUnauthorized)
	}

	created, err := s.repo.CreateCashSession(ctx, domain.CashSession{
		ID:                xid.New("cash"),
		OpenedBy:          actor.Username,
		OpeningFloatCents: req.OpeningFloatCents,
		OpenedAt:          time.Now().UTC(),
	})
	if err != nil {
		return domain.CashSessionResponse{}, s.wrapStoreErr("open cash session", err)
	}

	s.logAudit(ctx, "cash_session_open", "cash_session", created.ID, fmt.Sprintf("opening_float=%d", created.OpeningFloatCents))
	s.events.Publish(bus.TopicCashSessionOpened, *created)
	return domain.CashSessionResponse{Session: *created}, nil
}

// CloseCashSession snapshots the expected cash total next to the counted
// amount; the divergence stays visible forever on the closed session row.
func (s *Service) CloseCashSession(ctx context.Context, req domain.CashSessionCloseRequest) (domain.CashSessionResponse, error) {
	if req.CountedCents < 0 {
		return domain.CashSessionResponse{}, newValidationError([]string{"counted amount must not be negative"})
	}

	active, err := s.repo.GetActiveCashSession(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CashSessionResponse{}, fmt.Errorf("%w: no open cash session", store.ErrNotFound)
		}
		return domain.CashSessionResponse{}, s.wrapStoreErr("load active cash session", err)
	}

	stats, err := s.sessionStats(ctx, *active)
	if err != nil {
		return domain.CashSessionResponse{}, err
	}

	closed, err := s.repo.CloseCashSession(ctx, active.ID, req.CountedCents, stats.ExpectedCashCents, time.Now().UTC())
	if err != nil {
		return domain.CashSessionResponse{}, s.wrapStoreErr("close cash session", err)
	}

	s.logAudit(ctx, "cash_session_close", "cash_session", closed.ID,
		fmt.Sprintf("counted=%d,expected=%d", req.CountedCents, stats.ExpectedCashCents))
	s.events.Publish(bus.TopicCashSessionClosed, *closed)
	return domain.CashSessionResponse{Session: *closed}, nil
}

func (s *Service) ActiveCashSession(ctx context.Context) (*domain.CashSession, error) {
	session, err := s.repo.GetActiveCashSession(ctx)
	if err != nil {
		return nil, s.wrapStoreErr("load active cash session", err)
	}
	return session, nil
}

func (s *Service) GetCashSession(ctx context.Context, sessionID string) (*domain.CashSession, error) {
	session, err := s.repo.GetCashSessionByID(ctx, sessionID)
	if err != nil {
		return nil, s.wrapStoreErr("load cash session", err)
	}
	return session, nil
}

func (s *Service) ListCashSessions(ctx context.Context, limit int) ([]domain.CashSession, error) {
	return s.repo.ListCashSessions(ctx, limit)
}

// CashSessionStats reconciles the drawer: per-method totals over the
// session's non-cancelled orders plus the expected cash amount.
func (s *Service) CashSessionStats(ctx context.Context, sessionID string) (domain.CashSessionStats, error) {
	session, err := s.repo.GetCashSessionByID(ctx, sessionID)
	if err != nil {
		return domain.CashSessionStats{}, s.wrapStoreErr("load cash session", err)
	}
	return s.sessionStats(ctx, *session)
}

func (s *Service) sessionStats(ctx context.Context, session domain.CashSession) (domain.CashSessionStats, error) {
	orders, err := s.repo.ListOrders(ctx, domain.OrderListFilter{CashSessionID: session.ID, Limit: 10000})
	if err != nil {
		return domain.CashSessionStats{}, s.wrapStoreErr("list session orders", err)
	}

	stats := domain.CashSessionStats{
		SessionID:         session.ID,
		OpeningFloatCents: session.OpeningFloatCents,
	}
	for _, order := range orders {
		if order.Status == domain.OrderStatusCancelled {
			continue
		}
		stats.TotalOrders++
		switch order.PaymentMethod {
		case domain.PaymentMethodCash:
			stats.CashCents += order.TotalValueCents
		case domain.PaymentMethodCard:
			stats.CardCents += order.TotalValueCents
		case domain.PaymentMethodPix:
			stats.PixCents += order.TotalValueCents
		}
	}
	stats.ExpectedCashCents = stats.OpeningFloatCents + stats.CashCents
	return stats, nil
}
