package hostresolver

import (
	"context"
	"sync"
	"sync/atomic"
)

// ClientCallback is the completion notification a caller installs with
// SetClient (§6). kind identifies which resolution finished; err is nil on
// success. userData is returned to the caller unmodified, the Go analogue
// of the source's opaque client-info pointer.
type ClientCallback func(host *Host, kind InfoKind, err *StreamError, userData interface{})

// Host is the reference-counted resolvable unit of §3: a name or address
// the caller wants to resolve, the in-flight or completed InfoKind values
// attached to it, and the set of event loops it is currently scheduled on.
//
// A Host's own mutex sits below the Primary-Lookup Registry's mutex in the
// lock order (§5): code holding h.mu must never call into the registry
// while still holding it. startAddressesResolution and teardownLookupLocked
// are the two places that matters; see DESIGN.md.
type Host struct {
	engine *Engine

	mu            sync.Mutex
	refs          int32
	names         []string
	addresses     [][]byte
	info          Info
	lookup        lookup
	resolvingKind InfoKind
	lookupGen     int64
	err           *StreamError
	schedules     *scheduleSet
	client        ClientCallback
	userData      interface{}

	// internalCallback, when set, is invoked by the forward/reverse
	// finalizers instead of client — used only by the registry's primary
	// host (§4.4), which has no external caller of its own.
	internalCallback func(addrs []Address, err *StreamError)

	// registryName/registrySignal record the waiter this Host joined in
	// the Primary-Lookup Registry, so a cancellation or teardown can
	// detach it (§4.4).
	registryName   string
	registrySignal *signalLookup
}

func newHost(e *Engine) *Host {
	return &Host{engine: e, refs: 1, schedules: newScheduleSet()}
}

// CreateWithName returns a new Host, retained once, that resolves name.
func (e *Engine) CreateWithName(name string) *Host {
	h := newHost(e)
	h.names = []string{name}
	return h
}

// CreateWithAddress returns a new Host, retained once, that reverse-resolves
// the address sockAddr encodes. sockAddr must be shaped as address.go's
// encodeSockAddr produces: 16 bytes for AF_INET, 28 for AF_INET6.
func (e *Engine) CreateWithAddress(sockAddr []byte) (*Host, error) {
	if _, _, err := DecodeSockAddr(sockAddr); err != nil {
		return nil, err
	}
	h := newHost(e)
	h.addresses = [][]byte{append([]byte(nil), sockAddr...)}
	return h, nil
}

// CreateCopy returns a new Host, retained once, carrying a deep copy of
// src's names, addresses, and resolved info, but no lookup in progress, no
// schedules, and no client callback — matching the source's host_create_copy
// (§6), which copies data but never in-flight state.
func (src *Host) CreateCopy() *Host {
	src.mu.Lock()
	defer src.mu.Unlock()

	h := newHost(src.engine)
	h.names = append([]string(nil), src.names...)
	h.addresses = make([][]byte, len(src.addresses))
	for i, a := range src.addresses {
		h.addresses[i] = append([]byte(nil), a...)
	}
	h.info = src.info.clone()
	return h
}

// Retain increments h's reference count and returns h, for chaining.
func (h *Host) Retain() *Host {
	atomic.AddInt32(&h.refs, 1)
	return h
}

// Release decrements h's reference count, tearing down any in-flight
// lookup and schedule once it reaches zero.
func (h *Host) Release() {
	if atomic.AddInt32(&h.refs, -1) == 0 {
		h.destroy()
	}
}

func (h *Host) destroy() {
	h.mu.Lock()
	h.teardownLookupLocked()
	h.schedules = newScheduleSet()
	h.client = nil
	h.mu.Unlock()
}

// ScheduleOn adds (loop, mode) to the set of event loops h delivers
// completions on, mounting any lookup currently in flight. Idempotent
// (§8's "schedule_on twice leaves one entry").
func (h *Host) ScheduleOn(loop *Loop, mode Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.schedules.add(loop, mode) && h.lookup != nil {
		h.lookup.mount(loop, mode)
	}
}

// UnscheduleFrom reverses ScheduleOn.
func (h *Host) UnscheduleFrom(loop *Loop, mode Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.schedules.remove(loop, mode) && h.lookup != nil {
		h.lookup.unmount(loop, mode)
	}
}

// SetClient installs cb as h's completion callback. Installing nil while a
// resolution is in flight cancels it with no further notification, per
// §6's "uninstalling the client callback is equivalent to cancellation
// without delivering a result".
func (h *Host) SetClient(cb ClientCallback, userData interface{}) bool {
	h.mu.Lock()
	h.client = cb
	h.userData = userData
	hadLookup := cb == nil && h.lookup != nil
	h.mu.Unlock()

	if hadLookup {
		h.teardownOnly()
	}
	return true
}

// teardownOnly tears down any in-flight lookup without delivering a
// callback, used by SetClient(nil, ...).
func (h *Host) teardownOnly() {
	h.mu.Lock()
	h.teardownLookupLocked()
	h.mu.Unlock()
}

// GetInfo returns a deep copy of h's full resolved Info, and whether kind
// specifically has ever been written by a finalizer.
func (h *Host) GetInfo(kind InfoKind) (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resolved := false
	if v, ok := h.info.getAddressValue(kind); ok {
		resolved = v.Resolved()
	} else if kind == Names {
		resolved = h.info.Names.Resolved()
	} else if kind == Reachability {
		resolved = h.info.Reachability.Resolved()
	}
	return h.info.clone(), resolved
}

// GetAddresses returns the resolved Addresses value and whether it has ever
// been written.
func (h *Host) GetAddresses() (AddressValue, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info.Addresses.clone(), h.info.Addresses.Resolved()
}

// GetNames returns the resolved Names value and whether it has ever been
// written.
func (h *Host) GetNames() (NameValue, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info.Names.clone(), h.info.Names.Resolved()
}

// StartInfoResolution begins resolving kind (§4 and §6). If a client
// callback is installed, it returns (true, nil) immediately and the
// callback fires later; with none installed, it blocks on the Synchronous
// Bridge (sync.go) and returns the final result directly.
func (h *Host) StartInfoResolution(kind InfoKind) (bool, *StreamError) {
	if kind == Reachability {
		// No reachability driver is in scope for this engine (§9 Open
		// Question): always fails synchronously, matching a kind the
		// platform does not support.
		return false, ErrNotSupported
	}
	if kind == Addresses {
		return h.startAddressesResolution()
	}
	return h.startDirectResolution(kind)
}

// startDirectResolution handles every InfoKind that talks to the driver
// directly, bypassing the Primary-Lookup Registry: Names, the
// family-restricted address kinds, and BypassPrimaryAddresses.
func (h *Host) startDirectResolution(kind InfoKind) (bool, *StreamError) {
	h.mu.Lock()
	if h.lookup != nil {
		h.mu.Unlock()
		return false, NetDBErr(NetDBFail)
	}

	gen := h.nextGenLocked()
	l, err := h.buildDirectLookupLocked(kind, gen)
	if err != nil {
		h.mu.Unlock()
		return false, err
	}
	h.installLookupLocked(kind, l)
	hasClient := h.client != nil
	h.mu.Unlock()

	if hasClient {
		return true, nil
	}
	ok, serr := h.runSyncBridge(kind)
	return ok, serr
}

// startAddressesResolution implements §4.4's cache-then-registry path for
// the default Addresses kind.
func (h *Host) startAddressesResolution() (bool, *StreamError) {
	h.mu.Lock()
	if h.lookup != nil {
		h.mu.Unlock()
		return false, NetDBErr(NetDBFail)
	}
	if len(h.names) == 0 {
		h.mu.Unlock()
		return false, NetDBErr(NetDBNoName)
	}
	name := h.names[0]

	if cached, _, ok := h.engine.cache.Get(name); ok {
		gen := h.nextGenLocked()
		addrs := CloneList(cached)
		sig := newSignalLookup(func() { h.finalizeForward(gen, Addresses, statusSuccess, addrs, true) })
		h.installLookupLocked(Addresses, sig)
		sig.trigger()
		hasClient := h.client != nil
		h.mu.Unlock()

		if hasClient {
			return true, nil
		}
		return h.runSyncBridge(Addresses)
	}

	gen := h.nextGenLocked()
	h.mu.Unlock()

	// obtainOrJoin must run with no Host lock held — the registry mutex
	// sits above every Host's mutex in the lock order (§5).
	sig, err := h.engine.registry.obtainOrJoin(name, func(addrs []Address, rerr *StreamError) {
		if rerr != nil {
			h.finalizeForwardErr(gen, Addresses, rerr)
			return
		}
		h.finalizeForward(gen, Addresses, statusSuccess, addrs, false)
	})
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	if h.lookup != nil || h.lookupGen != gen {
		// Raced with a cancellation or a second StartInfoResolution call
		// while the registry mutex was held without ours; back out.
		h.mu.Unlock()
		h.engine.registry.removeWaiter(name, sig)
		return false, NetDBErr(NetDBFail)
	}
	h.installLookupLocked(Addresses, sig)
	h.registryName = name
	h.registrySignal = sig
	hasClient := h.client != nil
	h.mu.Unlock()

	if hasClient {
		return true, nil
	}
	return h.runSyncBridge(Addresses)
}

// startPrimaryAddressesLocked is the registry's private entry point for its
// primary host (§4.4 Design Note): it shares startDirectResolution's
// driver-issuing core (buildDirectLookupLocked) but is called with h.mu
// already held by the caller
// (primaryLookupRegistry.obtainOrJoin), and never touches the registry or
// the cache itself.
func (h *Host) startPrimaryAddressesLocked() *StreamError {
	gen := h.nextGenLocked()
	l, err := h.buildDirectLookupLocked(PrimaryAddresses, gen)
	if err != nil {
		return err
	}
	h.installLookupLocked(PrimaryAddresses, l)
	return nil
}

// buildDirectLookupLocked issues the driver call for kind and returns the
// lookup it hands back. Called with h.mu held.
func (h *Host) buildDirectLookupLocked(kind InfoKind, gen int64) (lookup, *StreamError) {
	switch kind {
	case Names:
		if len(h.addresses) == 0 {
			return nil, NetDBErr(NetDBNoName)
		}
		addr := h.addresses[0]
		l := h.engine.driver.Reverse(context.Background(), addr, func(status driverStatus, names []string) {
			h.finalizeReverse(gen, Names, status, names)
		})
		return l, nil

	case IPv4OnlyAddresses, IPv6OnlyAddresses, PrimaryAddresses, BypassPrimaryAddresses:
		if len(h.names) == 0 {
			return nil, NetDBErr(NetDBNoName)
		}
		filter := filterUnspecified
		if kind == IPv4OnlyAddresses {
			filter = filterIPv4Only
		} else if kind == IPv6OnlyAddresses {
			filter = filterIPv6Only
		}
		l := h.engine.driver.Forward(context.Background(), h.names[0], filter, func(status driverStatus, addrs []Address) {
			h.finalizeForward(gen, kind, status, addrs, false)
		})
		return l, nil

	default:
		// Every other InfoKind the source's generic "unhandled, fall
		// through to forward-then-reverse" row would reach is already
		// enumerated above or is Addresses/Reachability, handled by
		// StartInfoResolution before this is ever called. See DESIGN.md.
		return nil, ErrNotSupported
	}
}

// installLookupLocked records l as h's in-flight lookup for kind and mounts
// it on every loop h is currently scheduled on. Called with h.mu held.
func (h *Host) installLookupLocked(kind InfoKind, l lookup) {
	h.lookup = l
	h.resolvingKind = kind
	h.err = nil
	h.schedules.each(func(loop *Loop, mode Mode) { l.mount(loop, mode) })
}

// nextGenLocked bumps and returns h's lookup generation. Called with h.mu
// held, before any goroutine capturing the result is started, so no
// finalizer ever closes over a variable another goroutine concurrently
// writes (§5's closure-capture hazard).
func (h *Host) nextGenLocked() int64 {
	h.lookupGen++
	return h.lookupGen
}

// CancelInfoResolution cancels kind's in-flight lookup, if it is the one
// currently resolving, delivering ErrCancelled to any installed client
// callback (§4, §5, §8).
func (h *Host) CancelInfoResolution(kind InfoKind) {
	h.mu.Lock()
	if h.lookup == nil || h.resolvingKind != kind {
		h.mu.Unlock()
		return
	}

	prior := h.lookup
	gen := h.nextGenLocked()

	cancelled := newSignalLookup(func() { h.finalizeCancelled(gen, kind) })
	h.lookup = cancelled
	h.schedules.each(func(loop *Loop, mode Mode) { cancelled.mount(loop, mode) })
	cancelled.trigger()
	h.mu.Unlock()

	// invalidate outside the lock: for a driverRequest this just cancels
	// a context; for a signalLookup (a registry waiter or a pending cache
	// hit) it cancels its own scheduled firings. Neither re-enters h.
	prior.invalidate()
}

// finalizeForward is the forward-resolution finalizer (§4.5) for every
// address-shaped kind. alreadyResolved marks a cache-hit completion, which
// carries no driver status to map.
func (h *Host) finalizeForward(gen int64, kind InfoKind, status driverStatus, addrs []Address, alreadyResolved bool) {
	h.mu.Lock()
	if h.lookup == nil || h.lookupGen != gen {
		h.mu.Unlock()
		return
	}

	h.info.clearKind(kind)

	var serr *StreamError
	if alreadyResolved {
		h.info.setAddresses(kind, addrs)
	} else {
		serr = mapStatus(status, 0)
		if serr == nil {
			families := filterFamiliesForKind(kind, addrs)
			h.info.setAddresses(kind, families)
		} else {
			h.info.setAddresses(kind, nil)
		}
	}
	h.err = serr

	cb, internal, userData := h.client, h.internalCallback, h.userData
	h.teardownLookupLocked()
	h.mu.Unlock()

	if internal != nil {
		internal(addrs, serr)
		return
	}
	if cb != nil {
		cb(h, kind, serr, userData)
	}
}

// finalizeForwardErr is finalizeForward's direct-error path, used when the
// registry's primary resolution itself failed (no driverStatus to map).
func (h *Host) finalizeForwardErr(gen int64, kind InfoKind, serr *StreamError) {
	h.mu.Lock()
	if h.lookup == nil || h.lookupGen != gen {
		h.mu.Unlock()
		return
	}

	h.info.clearKind(kind)
	h.info.setAddresses(kind, nil)
	h.err = serr

	cb, internal, userData := h.client, h.internalCallback, h.userData
	h.teardownLookupLocked()
	h.mu.Unlock()

	if internal != nil {
		internal(nil, serr)
		return
	}
	if cb != nil {
		cb(h, kind, serr, userData)
	}
}

// finalizeReverse is the reverse-resolution finalizer for Names.
func (h *Host) finalizeReverse(gen int64, kind InfoKind, status driverStatus, names []string) {
	h.mu.Lock()
	if h.lookup == nil || h.lookupGen != gen {
		h.mu.Unlock()
		return
	}

	h.info.clearKind(kind)
	serr := mapStatus(status, 0)
	if serr == nil {
		h.info.setNames(names)
	} else {
		h.info.setNames(nil)
	}
	h.err = serr

	cb, userData := h.client, h.userData
	h.teardownLookupLocked()
	h.mu.Unlock()

	if cb != nil {
		cb(h, kind, serr, userData)
	}
}

// finalizeCancelled delivers ErrCancelled for a lookup CancelInfoResolution
// replaced.
func (h *Host) finalizeCancelled(gen int64, kind InfoKind) {
	h.mu.Lock()
	if h.lookup == nil || h.lookupGen != gen {
		h.mu.Unlock()
		return
	}

	h.info.clearKind(kind)
	h.err = ErrCancelled

	cb, userData := h.client, h.userData
	h.teardownLookupLocked()
	h.mu.Unlock()

	if cb != nil {
		cb(h, kind, ErrCancelled, userData)
	}
}

// teardownLookupLocked clears h's in-flight lookup and wakes every loop it
// was mounted on, so a Synchronous Bridge blocked in WaitForWake re-checks
// immediately even though this completion never called Loop.Schedule
// itself. Called with h.mu held.
func (h *Host) teardownLookupLocked() {
	if h.lookup == nil {
		return
	}
	l := h.lookup
	h.schedules.each(func(loop *Loop, mode Mode) {
		l.unmount(loop, mode)
		loop.Wake()
	})
	l.invalidate()
	h.lookup = nil
	h.resolvingKind = 0

	if h.registrySignal != nil {
		name, sig := h.registryName, h.registrySignal
		h.registryName, h.registrySignal = "", nil
		// Deferred via goroutine: the registry mutex sits above h.mu in
		// the lock order, so removeWaiter cannot run while h.mu is held.
		go h.engine.registry.removeWaiter(name, sig)
	}
}

// filterFamiliesForKind keeps only the address families kind permits,
// dropping anything a resolver answered with outside that scope.
func filterFamiliesForKind(kind InfoKind, addrs []Address) []Address {
	var want AddressFamily
	switch kind {
	case IPv4OnlyAddresses:
		want = FamilyIPv4
	case IPv6OnlyAddresses:
		want = FamilyIPv6
	default:
		return addrs
	}
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if a.Family == want {
			out = append(out, a)
		}
	}
	return out
}
