package syncagent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/logger"
)

// RecoveryEntry is one locally queued mutation awaiting replay. Entries
// merge per order: the newest pending state for an order replaces any
// older one.
type RecoveryEntry struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Operation   string          `json:"operation"`
	BaseVersion int             `json:"base_version"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	QueuedAt    time.Time       `json:"queued_at"`
}

type recoveryStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	RecoveryKey(terminalID, orderID string) string
}

// ReplayFunc applies one recovered mutation against the server.
type ReplayFunc func(ctx context.Context, entry RecoveryEntry) error

// RecoveryQueue buffers mutations made while the terminal was offline.
// The buffer is bounded: past the ceiling new entries are discarded and
// counted rather than growing without limit. On reconnect the queue is
// merged against authoritative state so stale work is dropped instead
// of clobbering newer server-side versions.
type RecoveryQueue struct {
	terminalID uuid.UUID
	store      recoveryStore
	replay     ReplayFunc
	logg       *logger.Logger
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]RecoveryEntry
	dropped int
}

// NewRecoveryQueue builds the queue for one terminal.
func NewRecoveryQueue(cfg config.SyncConfig, terminalID uuid.UUID, store recoveryStore, replay ReplayFunc, logg *logger.Logger) (*RecoveryQueue, error) {
	if terminalID == uuid.Nil {
		return nil, fmt.Errorf("terminal id required")
	}
	if store == nil {
		return nil, fmt.Errorf("recovery store required")
	}
	if replay == nil {
		return nil, fmt.Errorf("replay func required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxEntries := cfg.RecoveryMaxEntries
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &RecoveryQueue{
		terminalID: terminalID,
		store:      store,
		replay:     replay,
		logg:       logg,
		maxEntries: maxEntries,
		ttl:        cfg.RecoveryTTL,
		entries:    make(map[uuid.UUID]RecoveryEntry),
	}, nil
}

// Push queues a mutation. An entry for an order already in the buffer
// merges in place and never counts against the ceiling.
func (q *RecoveryQueue) Push(ctx context.Context, entry RecoveryEntry) bool {
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	_, merging := q.entries[entry.OrderID]
	if !merging && len(q.entries) >= q.maxEntries {
		q.dropped++
		dropped := q.dropped
		q.mu.Unlock()
		logCtx := q.logg.WithFields(ctx, map[string]any{
			"order_id":      entry.OrderID.String(),
			"dropped_total": dropped,
		})
		q.logg.Warn(logCtx, "recovery buffer full; mutation discarded")
		return false
	}
	q.entries[entry.OrderID] = entry
	q.mu.Unlock()

	key := q.store.RecoveryKey(q.terminalID.String(), entry.OrderID.String())
	raw, err := json.Marshal(entry)
	if err != nil {
		q.logg.Error(ctx, "encode recovery entry", err)
		return true
	}
	if err := q.store.Set(ctx, key, raw, q.ttl); err != nil {
		// The in-memory copy still replays; only durability is lost.
		q.logg.Error(ctx, "persist recovery entry", err)
	}
	return true
}

// Len reports how many orders have queued work.
func (q *RecoveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped reports how many mutations the ceiling discarded.
func (q *RecoveryQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Recover merges the buffer against authoritative state and replays
// what is still applicable. An entry whose order has moved past the
// version it was queued against is stale and dropped; so is one whose
// order no longer exists. Returns the number of entries replayed.
func (q *RecoveryQueue) Recover(ctx context.Context, fetcher Fetcher) (int, error) {
	q.mu.Lock()
	batch := make([]RecoveryEntry, 0, len(q.entries))
	for _, entry := range q.entries {
		batch = append(batch, entry)
	}
	q.mu.Unlock()

	replayed := 0
	var errs error
	for _, entry := range batch {
		authoritative, err := fetcher.FetchOrder(ctx, entry.OrderID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fetch %s: %w", entry.OrderID, err))
			continue
		}
		stale := authoritative == nil || authoritative.Version > entry.BaseVersion
		if !stale {
			if err := q.replay(ctx, entry); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("replay %s: %w", entry.OrderID, err))
				continue
			}
			replayed++
		} else {
			logCtx := q.logg.WithField(ctx, "order_id", entry.OrderID.String())
			q.logg.Info(logCtx, "recovery entry superseded by server state; dropped")
		}
		q.remove(ctx, entry.OrderID)
	}
	return replayed, errs
}

func (q *RecoveryQueue) remove(ctx context.Context, orderID uuid.UUID) {
	q.mu.Lock()
	delete(q.entries, orderID)
	q.mu.Unlock()
	key := q.store.RecoveryKey(q.terminalID.String(), orderID.String())
	if err := q.store.Del(ctx, key); err != nil {
		q.logg.Error(ctx, "delete recovery entry", err)
	}
}
