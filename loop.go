package hostresolver

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loop is the Go-native stand-in for an event loop a Host can be scheduled
// on (§4's Schedule pair, §5's "a single host may be scheduled on multiple
// event loops simultaneously, each driven by its own thread"). Unlike a
// true run loop, a Loop does not multiplex file descriptors itself;
// scheduled work is a plain function value, queued per Mode and drained by
// whatever goroutine pumps the loop with Run or RunOnce. See loop_unix.go
// for the optional real-descriptor readiness primitive a Driver that owns
// raw sockets can layer on top via RegisterFD.
type Loop struct {
	mu      sync.Mutex
	pending map[Mode][]*scheduledFunc
	wake    chan struct{}
}

// NewLoop returns a new, unstarted Loop.
func NewLoop() *Loop {
	return &Loop{
		pending: map[Mode][]*scheduledFunc{},
		wake:    make(chan struct{}, 1),
	}
}

type scheduledFunc struct {
	fn        func()
	cancelled int32
}

func (s *scheduledFunc) run() {
	if atomic.LoadInt32(&s.cancelled) == 0 {
		s.fn()
	}
}

func (s *scheduledFunc) cancel() {
	atomic.StoreInt32(&s.cancelled, 1)
}

// Schedule arranges for fn to run on this Loop the next time it is pumped
// in mode, and returns a function that prevents fn from running if called
// before that happens. Safe to call from any goroutine.
func (l *Loop) Schedule(mode Mode, fn func()) (cancel func()) {
	sf := &scheduledFunc{fn: fn}

	l.mu.Lock()
	l.pending[mode] = append(l.pending[mode], sf)
	l.mu.Unlock()

	l.notify()
	return sf.cancel
}

// Wake unblocks any goroutine currently parked in WaitForWake, RunOnce, or
// Run for this Loop, so it re-checks whatever condition it is waiting on.
// Used by a Host's finalizers (host.go) to nudge the Synchronous Bridge
// after a lookup completes by a path that never called Schedule.
func (l *Loop) Wake() {
	l.notify()
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) drain(mode Mode) []*scheduledFunc {
	l.mu.Lock()
	defer l.mu.Unlock()
	work := l.pending[mode]
	l.pending[mode] = nil
	return work
}

func (l *Loop) modes() []Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	modes := make([]Mode, 0, len(l.pending))
	for m := range l.pending {
		modes = append(modes, m)
	}
	return modes
}

// WaitForWake blocks until Wake or Schedule has been called on this Loop at
// least once since the last wait returned, or until ctx is done. It runs no
// scheduled work itself; callers that also have scheduled work to drain
// want RunOnce or Run instead.
func (l *Loop) WaitForWake(ctx context.Context) {
	select {
	case <-l.wake:
	case <-ctx.Done():
	}
}

// RunOnce pumps mode until at least one scheduled item has run, or ctx is
// done.
func (l *Loop) RunOnce(ctx context.Context, mode Mode) {
	for {
		work := l.drain(mode)
		if len(work) > 0 {
			for _, sf := range work {
				sf.run()
			}
			return
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return
		}
	}
}

// Run pumps every mode with pending work, continuously, until ctx is done.
// Intended to run in its own goroutine, one per Loop, matching §5's "each
// [scheduled loop] driven by its own thread".
func (l *Loop) Run(ctx context.Context) {
	for {
		ranAny := false
		for _, m := range l.modes() {
			work := l.drain(m)
			if len(work) == 0 {
				continue
			}
			ranAny = true
			for _, sf := range work {
				sf.run()
			}
		}
		if ranAny {
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return
		}
	}
}
