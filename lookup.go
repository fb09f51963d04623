package hostresolver

import "sync"

// Mode names an event-loop dispatch mode, the Go analogue of a run-loop
// mode string: work a Host's lookups schedule on a Loop in one mode runs
// only while that Loop is pumped in that mode. A signalled lookup also
// fires from its own fallback goroutine (see signalLookup.trigger), so its
// delivery does not depend on any Loop being pumped.
type Mode string

// ModeSyncBridge is the private mode the Synchronous Bridge (sync.go)
// schedules a host on while it waits. Callers never schedule a host on it
// directly.
const ModeSyncBridge Mode = "hostresolver.sync"

type mountKey struct {
	loop *Loop
	mode Mode
}

// lookup is the tagged-variant capability every in-flight or signalled
// resolution value offers (§9 Design Note 2): a live driver request
// (driver.go) or a self-signalled wake source (this file), each mountable
// on and unmountable from an event loop, and eventually invalidated. The
// source's fourth variant, a "null lookup handle" for completions that
// race ahead of any socket registration, has no counterpart here — see
// DESIGN.md for why the Go translation does not need one.
type lookup interface {
	// mount arranges for loop to be notified, in mode, once this lookup
	// has something to report. Called under the owning Host's lock.
	mount(loop *Loop, mode Mode)
	// unmount reverses mount. Called under the owning Host's lock.
	unmount(loop *Loop, mode Mode)
	// invalidate releases everything the lookup holds. Never mounted
	// again afterward.
	invalidate()
}

// signalLookup is a manually triggered, self-signalled wake source: the
// Primary-Lookup Registry's waiter-side source (§4.4), a cache-hit
// completion, and a cancellation completion (both §4.5) are all instances
// of it. trigger may be called before or after mount; fire runs exactly
// once, on whichever gets there first: a mounted loop pumped in its mode,
// or the fallback goroutine trigger starts.
type signalLookup struct {
	mu        sync.Mutex
	once      sync.Once
	fire      func()
	triggered bool
	mounts    map[mountKey]func()
}

func newSignalLookup(fire func()) *signalLookup {
	return &signalLookup{fire: fire, mounts: map[mountKey]func(){}}
}

func (s *signalLookup) mount(loop *Loop, mode Mode) {
	s.mu.Lock()
	triggered := s.triggered
	var cancel func()
	if !triggered {
		cancel = loop.Schedule(mode, func() { s.once.Do(s.fire) })
		s.mounts[mountKey{loop, mode}] = cancel
	}
	s.mu.Unlock()

	if triggered {
		loop.Schedule(mode, func() { s.once.Do(s.fire) })
	}
}

func (s *signalLookup) unmount(loop *Loop, mode Mode) {
	key := mountKey{loop, mode}
	s.mu.Lock()
	cancel := s.mounts[key]
	delete(s.mounts, key)
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// trigger marks the signal ready to fire. Loops it is already mounted on
// are scheduled immediately, and a loop mounted afterward schedules itself
// as soon as it mounts; either way fire runs exactly once (sync.Once).
//
// trigger also always kicks off one unconditional, async fallback
// dispatch of its own. A Host used purely through a client callback, with
// no ScheduleOn call ever made, has nothing mounted here — the forward and
// reverse driver paths don't need mounting to complete because they
// dispatch straight from their own I/O goroutine, but a signalLookup (the
// cache-hit, cancellation, and registry-waiter completions) has no
// goroutine of its own to do that, so it provides one. This runs via `go`,
// never inline, so a caller invoking trigger while still holding its own
// Host's lock (the cache-hit and cancellation paths in host.go) never
// risks fire (which re-locks that Host) reentering synchronously.
func (s *signalLookup) trigger() {
	s.mu.Lock()
	if s.triggered {
		s.mu.Unlock()
		return
	}
	s.triggered = true
	mounts := s.mounts
	s.mounts = map[mountKey]func(){}
	s.mu.Unlock()

	for key := range mounts {
		key.loop.Schedule(key.mode, func() { s.once.Do(s.fire) })
	}
	go s.once.Do(s.fire)
}

func (s *signalLookup) invalidate() {
	s.mu.Lock()
	mounts := s.mounts
	s.mounts = nil
	s.mu.Unlock()
	for _, cancel := range mounts {
		cancel()
	}
}
