package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"barbearia/backend/internal/cache"
	"barbearia/backend/internal/domain"
)

// Engine builds period-bounded financial projections from raw rows. The
// caller fetches the rows; the engine only aggregates and caches. A revenue
// row is any non-cancelled order: pending sales are already rung up, and a
// refund keeps its revenue because the matching refund expense nets it out.
type Engine struct {
	cache    cache.SummaryCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.SummaryCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSummaryCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

func (e *Engine) Summarize(
	ctx context.Context,
	from time.Time,
	to time.Time,
	orders []domain.Order,
	expenses []domain.Expense,
	incomes []domain.Income,
) domain.FinancialSummary {
	cacheKey := buildCacheKey(from, to)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached
	}

	summary := domain.FinancialSummary{
		From:               from.Format("2006-01-02"),
		To:                 to.Format("2006-01-02"),
		RevenueByMethod:    make(map[string]int64),
		ExpensesByCategory: make(map[string]int64),
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
	}

	for _, order := range orders {
		if !countsAsRevenue(order) {
			continue
		}
		summary.TotalRevenueCents += order.TotalValueCents
		if order.PaymentMethod != "" {
			summary.RevenueByMethod[order.PaymentMethod] += order.TotalValueCents
		}
	}

	for _, expense := range expenses {
		summary.TotalExpensesCents += expense.AmountCents
		category := expense.Category
		if category == "" {
			category = expense.Type
		}
		summary.ExpensesByCategory[category] += expense.AmountCents
	}

	for _, income := range incomes {
		summary.TotalIncomeCents += income.AmountCents
	}

	summary.ProfitCents = summary.TotalRevenueCents + summary.TotalIncomeCents - summary.TotalExpensesCents

	if err := e.cache.Set(ctx, cacheKey, &summary, e.cacheTTL); err != nil {
		log.Printf("[report] WARN: failed to cache summary: %v", err)
	}
	return summary
}

// Dashboard turns up to a year of orders into the front-desk chart: a 30-day
// daily revenue series plus trend deltas against the previous 30-day window,
// the previous month-to-date and the previous year-to-date.
func (e *Engine) Dashboard(now time.Time, orders []domain.Order) domain.DashboardData {
	now = now.UTC()
	today := dayKey(now)
	seriesStart := now.AddDate(0, 0, -29)

	byDay := make(map[string]int64)
	var last30, prev30, monthToDate, prevMonthToDate, yearToDate, prevYearToDate int64

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	prevMonthCursor := prevMonthStart.AddDate(0, 0, now.Day()-1).Add(24 * time.Hour)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	prevYearStart := yearStart.AddDate(-1, 0, 0)
	prevYearCursor := prevYearStart.AddDate(0, int(now.Month())-1, now.Day()-1).Add(24 * time.Hour)

	for _, order := range orders {
		if !countsAsRevenue(order) {
			continue
		}
		at := order.CreatedAt.UTC()
		amount := order.TotalValueCents

		if !at.Before(seriesStart.Truncate(24 * time.Hour)) {
			byDay[dayKey(at)] += amount
			last30 += amount
		} else if !at.Before(seriesStart.AddDate(0, 0, -30).Truncate(24 * time.Hour)) {
			prev30 += amount
		}

		if !at.Before(monthStart) {
			monthToDate += amount
		} else if !at.Before(prevMonthStart) && at.Before(prevMonthCursor) {
			prevMonthToDate += amount
		}

		if !at.Before(yearStart) {
			yearToDate += amount
		} else if !at.Before(prevYearStart) && at.Before(prevYearCursor) {
			prevYearToDate += amount
		}
	}

	series := make([]domain.DailyRevenuePoint, 0, 30)
	for i := 0; i < 30; i++ {
		key := dayKey(seriesStart.AddDate(0, 0, i))
		series = append(series, domain.DailyRevenuePoint{Date: key, RevenueCents: byDay[key]})
	}

	return domain.DashboardData{
		Series:           series,
		TodayCents:       byDay[today],
		Delta30Percent:   percentDelta(last30, prev30),
		DeltaMonthStart:  percentDelta(monthToDate, prevMonthToDate),
		DeltaYearPercent: percentDelta(yearToDate, prevYearToDate),
	}
}

// Invalidate drops every cached summary. Wired to the order, expense and
// income bus topics.
func (e *Engine) Invalidate(ctx context.Context) {
	if err := e.cache.Purge(ctx); err != nil {
		log.Printf("[report] WARN: failed to purge summary cache: %v", err)
	}
}

func countsAsRevenue(order domain.Order) bool {
	return order.Status != domain.OrderStatusCancelled
}

func percentDelta(current int64, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (float64(current-previous) / float64(previous)) * 100
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func buildCacheKey(from time.Time, to time.Time) string {
	parts := []string{from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return cache.SummaryKeyPrefix + hex.EncodeToString(hash[:])
}
