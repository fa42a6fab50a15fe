package bus

import "testing"

func TestPublishFansOutInSubscriptionOrder(t *testing.T) {
	b := New()
	var got []string

	b.Subscribe(TopicOrderCreated, func(payload any) {
		got = append(got, "first")
	})
	b.Subscribe(TopicOrderCreated, func(payload any) {
		got = append(got, "second")
	})

	b.Publish(TopicOrderCreated, nil)

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("expected handlers in subscription order, got %v", got)
	}
}

func TestPublishDeliversPayload(t *testing.T) {
	b := New()
	var seen StockChange

	b.Subscribe(TopicProductLowStock, func(payload any) {
		change, ok := payload.(StockChange)
		if !ok {
			t.Fatalf("expected StockChange payload, got %T", payload)
		}
		seen = change
	})

	b.Publish(TopicProductLowStock, StockChange{ProductID: "prod-pomada", Remaining: 3, Minimum: 5})

	if seen.ProductID != "prod-pomada" || seen.Remaining != 3 {
		t.Fatalf("unexpected payload %+v", seen)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0

	cancel := b.Subscribe(TopicOrderUpdated, func(payload any) {
		calls++
	})

	b.Publish(TopicOrderUpdated, nil)
	cancel()
	b.Publish(TopicOrderUpdated, nil)

	if calls != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", calls)
	}
	if b.ListenerCount(TopicOrderUpdated) != 0 {
		t.Fatalf("expected 0 listeners after unsubscribe, got %d", b.ListenerCount(TopicOrderUpdated))
	}
}

func TestHandlerPanicDoesNotStopOtherHandlers(t *testing.T) {
	b := New()
	delivered := false

	b.Subscribe(TopicOrderRefunded, func(payload any) {
		panic("boom")
	})
	b.Subscribe(TopicOrderRefunded, func(payload any) {
		delivered = true
	})

	b.Publish(TopicOrderRefunded, nil)

	if !delivered {
		t.Fatalf("expected second handler to run after first panicked")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New()
	b.Publish(TopicIncomeRecorded, nil)

	if b.ListenerCount(TopicIncomeRecorded) != 0 {
		t.Fatalf("expected no listeners, got %d", b.ListenerCount(TopicIncomeRecorded))
	}
}
