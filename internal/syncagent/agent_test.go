package syncagent

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/logger"
)

type fakeFetcher struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*OrderSnapshot
	orderCalls  int
	activeCalls int
	active      []OrderSnapshot
}

func (f *fakeFetcher) FetchOrder(ctx context.Context, orderID uuid.UUID) (*OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	return f.orders[orderID], nil
}

func (f *fakeFetcher) FetchActive(ctx context.Context) ([]OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeCalls++
	return f.active, nil
}

func (f *fakeFetcher) stats() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderCalls, f.activeCalls
}

func newTestAgent(t *testing.T, fetcher *fakeFetcher, store *MemoryStore, conn *ConnState) *Agent {
	t.Helper()
	agent, err := NewAgent(config.SyncConfig{
		RefetchDebounce: 30 * time.Millisecond,
		PollInterval:    40 * time.Millisecond,
	}, store, fetcher, conn, nil, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return agent
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRemovalEventDropsLocallyWithoutFetch(t *testing.T) {
	orderID := uuid.New()
	store := NewMemoryStore()
	store.Upsert(OrderSnapshot{ID: orderID, Version: 3, Status: enums.OrderStatusSent})
	fetcher := &fakeFetcher{}
	agent := newTestAgent(t, fetcher, store, NewConnState())

	agent.HandleEvent(context.Background(), Event{Type: enums.EventPaymentProcessed, OrderID: orderID})

	if _, ok := store.Get(orderID); ok {
		t.Fatal("payment_processed should remove the order locally")
	}
	time.Sleep(60 * time.Millisecond)
	if calls, _ := fetcher.stats(); calls != 0 {
		t.Fatalf("removal events must not trigger a fetch, got %d calls", calls)
	}
}

func TestBurstOfEventsCollapsesToOneFetch(t *testing.T) {
	orderID := uuid.New()
	fetcher := &fakeFetcher{orders: map[uuid.UUID]*OrderSnapshot{
		orderID: {ID: orderID, Version: 7, Status: enums.OrderStatusInProgress},
	}}
	store := NewMemoryStore()
	agent := newTestAgent(t, fetcher, store, NewConnState())

	for i := 0; i < 5; i++ {
		agent.HandleEvent(context.Background(), Event{Type: enums.EventOrderTotalsUpdated, OrderID: orderID})
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool {
		calls, _ := fetcher.stats()
		return calls == 1
	})
	time.Sleep(60 * time.Millisecond)
	if calls, _ := fetcher.stats(); calls != 1 {
		t.Fatalf("burst should collapse to one fetch, got %d", calls)
	}
	if cached, ok := store.Get(orderID); !ok || cached.Version != 7 {
		t.Fatalf("expected cached version 7, got %+v", cached)
	}
}

func TestRefetchOfMissingOrderRemovesIt(t *testing.T) {
	orderID := uuid.New()
	store := NewMemoryStore()
	store.Upsert(OrderSnapshot{ID: orderID, Version: 1})
	fetcher := &fakeFetcher{orders: map[uuid.UUID]*OrderSnapshot{}}
	agent := newTestAgent(t, fetcher, store, NewConnState())

	agent.HandleEvent(context.Background(), Event{Type: enums.EventOrderTotalsUpdated, OrderID: orderID})
	waitFor(t, time.Second, func() bool {
		_, ok := store.Get(orderID)
		return !ok
	})
}

func TestPollFallbackOnlyWhileDisconnected(t *testing.T) {
	fetcher := &fakeFetcher{active: []OrderSnapshot{{ID: uuid.New(), Version: 1}}}
	store := NewMemoryStore()
	conn := NewConnState()
	agent := newTestAgent(t, fetcher, store, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = agent.Run(ctx) }()

	// Disconnected from the start: polling kicks in.
	waitFor(t, time.Second, func() bool {
		_, active := fetcher.stats()
		return active >= 2
	})
	if store.Len() != 1 {
		t.Fatalf("poll should populate the cache, got %d entries", store.Len())
	}

	// Connected: polling stops (the reconnect refresh may add one).
	conn.Set(true)
	time.Sleep(60 * time.Millisecond)
	_, afterConnect := fetcher.stats()
	time.Sleep(120 * time.Millisecond)
	if _, now := fetcher.stats(); now > afterConnect {
		t.Fatalf("polling must pause while connected: %d -> %d", afterConnect, now)
	}
}

func TestReconnectTriggersFullRefresh(t *testing.T) {
	fetcher := &fakeFetcher{active: []OrderSnapshot{
		{ID: uuid.New(), Version: 2},
		{ID: uuid.New(), Version: 5},
	}}
	store := NewMemoryStore()
	store.Upsert(OrderSnapshot{ID: uuid.New(), Version: 1})
	conn := NewConnState()
	agent := newTestAgent(t, fetcher, store, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = agent.Run(ctx) }()

	conn.Set(true)
	waitFor(t, time.Second, func() bool {
		_, active := fetcher.stats()
		return active >= 1
	})
	waitFor(t, time.Second, func() bool { return store.Len() == 2 })
}
