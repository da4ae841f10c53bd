package syncagent

import (
	"context"
	"fmt"
	"sync"

	"github.com/tapline/tapline-backend/pkg/logger"
)

// feedRunner is the long-lived stream behind a lease. *Consumer
// satisfies it.
type feedRunner interface {
	Run(ctx context.Context) error
}

// ConnManager shares one order feed across every surface on the
// terminal. The first Acquire starts the consumer; later acquires
// reuse it. The stream stops only when the last lease is released.
type ConnManager struct {
	runner feedRunner
	conn   *ConnState
	logg   *logger.Logger

	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConnManager builds the shared feed manager.
func NewConnManager(runner feedRunner, conn *ConnState, logg *logger.Logger) (*ConnManager, error) {
	if runner == nil {
		return nil, fmt.Errorf("feed runner required")
	}
	if conn == nil {
		return nil, fmt.Errorf("connection state required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ConnManager{
		runner: runner,
		conn:   conn,
		logg:   logg,
	}, nil
}

// Lease is one caller's hold on the shared feed. Release is
// idempotent.
type Lease struct {
	manager *ConnManager
	once    sync.Once
}

// Release drops the hold; the feed stops once every lease is gone.
func (l *Lease) Release() {
	if l == nil || l.manager == nil {
		return
	}
	l.once.Do(l.manager.release)
}

// Acquire takes a lease on the shared feed, starting it on the first
// call. The feed's lifetime is bound to the leases, not to ctx; ctx
// only scopes the startup.
func (m *ConnManager) Acquire(ctx context.Context) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs++
	if m.refs == 1 {
		runCtx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.done = make(chan struct{})
		go m.run(runCtx, m.done)
		m.logg.Info(ctx, "order feed started")
	}

	return &Lease{manager: m}, nil
}

// Refs reports the number of live leases.
func (m *ConnManager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

func (m *ConnManager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if err := m.runner.Run(ctx); err != nil && ctx.Err() == nil {
		m.logg.Error(ctx, "order feed stopped", err)
	}
	m.conn.Set(false)
}

func (m *ConnManager) release() {
	m.mu.Lock()
	if m.refs == 0 {
		m.mu.Unlock()
		return
	}
	m.refs--
	if m.refs > 0 {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
