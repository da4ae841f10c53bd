package syncagent

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/logger"
)

type fakeRecoveryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (f *fakeRecoveryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = []byte(fmt.Sprint(value))
	return nil
}

func (f *fakeRecoveryStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRecoveryStore) RecoveryKey(terminalID, orderID string) string {
	return "tl:recovery:" + terminalID + ":" + orderID
}

func newTestQueue(t *testing.T, maxEntries int, replay ReplayFunc) (*RecoveryQueue, *fakeRecoveryStore) {
	t.Helper()
	store := &fakeRecoveryStore{}
	if replay == nil {
		replay = func(ctx context.Context, entry RecoveryEntry) error { return nil }
	}
	queue, err := NewRecoveryQueue(config.SyncConfig{
		RecoveryMaxEntries: maxEntries,
		RecoveryTTL:        time.Hour,
	}, uuid.New(), store, replay, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewRecoveryQueue: %v", err)
	}
	return queue, store
}

func TestRecoveryQueueCeiling(t *testing.T) {
	queue, _ := newTestQueue(t, 2, nil)
	ctx := context.Background()

	first := uuid.New()
	if !queue.Push(ctx, RecoveryEntry{OrderID: first, Operation: "add_items", BaseVersion: 1}) {
		t.Fatal("first push should be accepted")
	}
	if !queue.Push(ctx, RecoveryEntry{OrderID: uuid.New(), Operation: "add_items", BaseVersion: 1}) {
		t.Fatal("second push should be accepted")
	}
	if queue.Push(ctx, RecoveryEntry{OrderID: uuid.New(), Operation: "add_items", BaseVersion: 1}) {
		t.Fatal("push past the ceiling should be discarded")
	}
	if queue.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", queue.Dropped())
	}

	// Same order merges in place, even at the ceiling.
	if !queue.Push(ctx, RecoveryEntry{OrderID: first, Operation: "send", BaseVersion: 2}) {
		t.Fatal("merge for a buffered order should be accepted")
	}
	if queue.Len() != 2 {
		t.Fatalf("expected 2 buffered orders, got %d", queue.Len())
	}
}

func TestRecoverReplaysApplicableAndDropsStale(t *testing.T) {
	var replayed []RecoveryEntry
	queue, store := newTestQueue(t, 10, func(ctx context.Context, entry RecoveryEntry) error {
		replayed = append(replayed, entry)
		return nil
	})
	ctx := context.Background()

	current := uuid.New()
	stale := uuid.New()
	gone := uuid.New()
	queue.Push(ctx, RecoveryEntry{OrderID: current, Operation: "add_items", BaseVersion: 4})
	queue.Push(ctx, RecoveryEntry{OrderID: stale, Operation: "add_items", BaseVersion: 2})
	queue.Push(ctx, RecoveryEntry{OrderID: gone, Operation: "send", BaseVersion: 1})

	fetcher := &fakeFetcher{orders: map[uuid.UUID]*OrderSnapshot{
		current: {ID: current, Version: 4},
		stale:   {ID: stale, Version: 6},
	}}

	count, err := queue.Recover(ctx, fetcher)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 replayed, got %d", count)
	}
	if len(replayed) != 1 || replayed[0].OrderID != current {
		t.Fatalf("expected only the current-version entry replayed, got %+v", replayed)
	}
	if queue.Len() != 0 {
		t.Fatalf("queue should drain after recover, got %d", queue.Len())
	}
	store.mu.Lock()
	remaining := len(store.data)
	store.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("persisted entries should be cleared, %d left", remaining)
	}
}

func TestRecoverKeepsFailedReplayForRetry(t *testing.T) {
	queue, _ := newTestQueue(t, 10, func(ctx context.Context, entry RecoveryEntry) error {
		return fmt.Errorf("server unavailable")
	})
	ctx := context.Background()

	orderID := uuid.New()
	queue.Push(ctx, RecoveryEntry{OrderID: orderID, Operation: "add_items", BaseVersion: 3})
	fetcher := &fakeFetcher{orders: map[uuid.UUID]*OrderSnapshot{
		orderID: {ID: orderID, Version: 3},
	}}

	count, err := queue.Recover(ctx, fetcher)
	if err == nil {
		t.Fatal("expected replay error surfaced")
	}
	if count != 0 {
		t.Fatalf("expected 0 replayed, got %d", count)
	}
	if queue.Len() != 1 {
		t.Fatal("failed replay should stay queued for the next attempt")
	}
}
