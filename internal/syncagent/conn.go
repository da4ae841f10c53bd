package syncagent

import "sync"

// ConnState tracks whether the realtime feed is up. Transitions are
// fanned out to watchers so the agent can switch between push and poll.
type ConnState struct {
	mu        sync.Mutex
	connected bool
	watchers  []chan bool
}

// NewConnState starts in the disconnected state; the first successful
// subscribe flips it.
func NewConnState() *ConnState {
	return &ConnState{}
}

// Connected reports the current state.
func (c *ConnState) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Set records a transition. No-op when the state is unchanged.
func (c *ConnState) Set(connected bool) {
	c.mu.Lock()
	if c.connected == connected {
		c.mu.Unlock()
		return
	}
	c.connected = connected
	watchers := make([]chan bool, len(c.watchers))
	copy(watchers, c.watchers)
	c.mu.Unlock()

	for _, ch := range watchers {
		// Drop a stale unread value so the watcher always sees the
		// latest state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- connected:
		default:
		}
	}
}

// Watch returns a channel that receives state transitions. The channel
// is buffered; a slow watcher misses intermediate flips, not the final
// state.
func (c *ConnState) Watch() <-chan bool {
	ch := make(chan bool, 1)
	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()
	return ch
}
