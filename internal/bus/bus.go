package bus

import (
	"log"
	"sync"
)

// Topics published by the core. The bus is strictly a read-side notification
// channel: ledgers coordinate through direct calls, subscribers here are
// caches, alert sinks and UI-facing projections.
const (
	TopicCashSessionOpened = "cash.session.opened"
	TopicCashSessionClosed = "cash.session.closed"

	TopicOrderCreated   = "order.created"
	TopicOrderUpdated   = "order.updated"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderRefunded  = "order.refunded"

	TopicExpenseRecorded = "expense.recorded"
	TopicIncomeRecorded  = "income.recorded"

	TopicProductStockUpdated    = "product.stock-updated"
	TopicProductLowStock        = "product.low-stock"
	TopicIngredientStockUpdated = "ingredient.stock-updated"
	TopicIngredientLowStock     = "ingredient.low-stock"
)

// StockChange is the payload for product stock topics.
type StockChange struct {
	ProductID string
	Remaining int
	Minimum   int
}

// IngredientChange is the payload for ingredient stock topics.
type IngredientChange struct {
	IngredientID string
	Remaining    float64
	Minimum      float64
}

type Handler func(payload any)

// Bus is a synchronous in-process publish/subscribe channel. Publish fans out
// to handlers in subscription order on the caller's goroutine; a panicking
// handler is recovered and logged, never propagated to the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic and returns a function that
// removes it again.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	index := len(b.handlers[topic]) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.handlers[topic]
		if index < len(handlers) && handlers[index] != nil {
			handlers[index] = nil
		}
	}
}

func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		b.dispatch(topic, handler, payload)
	}
}

func (b *Bus) dispatch(topic string, handler Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bus] WARN: handler panic on topic %s: %v", topic, r)
		}
	}()
	handler(payload)
}

func (b *Bus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, handler := range b.handlers[topic] {
		if handler != nil {
			count++
		}
	}
	return count
}
