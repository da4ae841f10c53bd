package syncagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/logger"
)

// OrderSnapshot is the terminal-local view of one order.
type OrderSnapshot struct {
	ID       uuid.UUID         `json:"id"`
	Version  int               `json:"version"`
	Status   enums.OrderStatus `json:"status"`
	TableRef *string           `json:"table_ref,omitempty"`
}

// Store is the terminal's local order cache.
type Store interface {
	Upsert(order OrderSnapshot)
	Remove(orderID uuid.UUID)
	ReplaceAll(orders []OrderSnapshot)
}

// Fetcher pulls authoritative state from the order service.
type Fetcher interface {
	FetchOrder(ctx context.Context, orderID uuid.UUID) (*OrderSnapshot, error)
	FetchActive(ctx context.Context) ([]OrderSnapshot, error)
}

// Event is one realtime notification as seen by the agent.
type Event struct {
	Type    enums.OutboxEventType
	OrderID uuid.UUID
}

// Agent keeps a terminal's local cache converged with the server.
// Removal-class events drop the order locally with zero extra calls;
// everything else schedules a debounced refetch of just that order.
// While the feed is down the agent falls back to slow polling, and a
// reconnect always triggers a full refresh.
type Agent struct {
	store    Store
	fetcher  Fetcher
	conn     *ConnState
	recovery *RecoveryQueue
	logg     *logger.Logger

	debounce time.Duration
	poll     time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]*time.Timer
}

// NewAgent builds the agent from config.
func NewAgent(cfg config.SyncConfig, store Store, fetcher Fetcher, conn *ConnState, recovery *RecoveryQueue, logg *logger.Logger) (*Agent, error) {
	if store == nil {
		return nil, fmt.Errorf("local store required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher required")
	}
	if conn == nil {
		return nil, fmt.Errorf("connection state required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	debounce := cfg.RefetchDebounce
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}
	return &Agent{
		store:    store,
		fetcher:  fetcher,
		conn:     conn,
		recovery: recovery,
		logg:     logg,
		debounce: debounce,
		poll:     poll,
		pending:  make(map[uuid.UUID]*time.Timer),
	}, nil
}

// HandleEvent applies one realtime notification.
func (a *Agent) HandleEvent(ctx context.Context, event Event) {
	if event.OrderID == uuid.Nil {
		return
	}
	if event.Type.IsRemovalEvent() {
		a.cancelPending(event.OrderID)
		a.store.Remove(event.OrderID)
		return
	}
	a.scheduleRefetch(ctx, event.OrderID)
}

// scheduleRefetch arms (or re-arms) the per-order debounce timer. A
// burst of events inside the window collapses into one fetch.
func (a *Agent) scheduleRefetch(ctx context.Context, orderID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if timer, ok := a.pending[orderID]; ok {
		timer.Reset(a.debounce)
		return
	}
	a.pending[orderID] = time.AfterFunc(a.debounce, func() {
		a.mu.Lock()
		delete(a.pending, orderID)
		a.mu.Unlock()
		a.refetch(ctx, orderID)
	})
}

func (a *Agent) cancelPending(orderID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if timer, ok := a.pending[orderID]; ok {
		timer.Stop()
		delete(a.pending, orderID)
	}
}

func (a *Agent) refetch(ctx context.Context, orderID uuid.UUID) {
	snapshot, err := a.fetcher.FetchOrder(ctx, orderID)
	if err != nil {
		logCtx := a.logg.WithField(ctx, "order_id", orderID.String())
		a.logg.Error(logCtx, "order refetch failed", err)
		return
	}
	if snapshot == nil {
		a.store.Remove(orderID)
		return
	}
	a.store.Upsert(*snapshot)
}

// Refresh replaces the whole local cache from the server.
func (a *Agent) Refresh(ctx context.Context) error {
	active, err := a.fetcher.FetchActive(ctx)
	if err != nil {
		return fmt.Errorf("fetch active orders: %w", err)
	}
	a.store.ReplaceAll(active)
	return nil
}

// Run drives the poll fallback and reconnect refresh until the context
// is canceled. Polling only runs while the feed is down.
func (a *Agent) Run(ctx context.Context) error {
	transitions := a.conn.Watch()
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case connected := <-transitions:
			if !connected {
				continue
			}
			// Reconnect: anything could have been missed, so the
			// cache is rebuilt unconditionally, then queued local
			// work is reconciled.
			if err := a.Refresh(ctx); err != nil {
				a.logg.Error(ctx, "reconnect refresh failed", err)
				continue
			}
			if a.recovery != nil {
				if _, err := a.recovery.Recover(ctx, a.fetcher); err != nil {
					a.logg.Error(ctx, "recovery replay failed", err)
				}
			}
		case <-ticker.C:
			if a.conn.Connected() {
				continue
			}
			if err := a.Refresh(ctx); err != nil {
				a.logg.Error(ctx, "poll refresh failed", err)
			}
		}
	}
}
