package hostresolver

import "sync"

// registryWaiter is one caller joined to a shared primary resolution
// (§4.4): its self-signalled source, and the result the fan-out deposits
// into it just before firing that source.
type registryWaiter struct {
	signal      *signalLookup
	resultAddrs []Address
	resultErr   *StreamError
}

// registryEntry is one in-flight primary lookup: the internal Host doing
// the actual resolution, and every waiter currently joined to it.
type registryEntry struct {
	primary *Host
	waiters []*registryWaiter
}

// primaryLookupRegistry is the Primary-Lookup Registry of §4.4: it ensures
// two callers resolving the same name at overlapping times share a single
// resolver-driver forward query. Its mutex sits above every Host's own
// mutex in the lock order (§5): nothing here ever blocks while holding a
// Host's lock, and every caller into obtainOrJoin/removeWaiter must not be
// holding its own Host's lock either (see host.go's startAddressesResolution
// and teardownLookupLocked for how that is arranged).
//
// The source keeps cache and registry behind one mutex; this engine gives
// the cache (cache/cache.go) its own, since nothing under the cache's lock
// ever re-enters a Host or the registry — a true leaf lock needs no
// ordering rule of its own. See DESIGN.md.
type primaryLookupRegistry struct {
	engine *Engine

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func newPrimaryLookupRegistry(e *Engine) *primaryLookupRegistry {
	return &primaryLookupRegistry{engine: e, entries: map[string]*registryEntry{}}
}

// obtainOrJoin implements §4.4's obtain_or_join plus the immediately
// following waiter-side append, as one atomic registry-mutex critical
// section: it finds or creates name's entry, and always adds a fresh
// waiter for the caller to mount. deliver is invoked at most once, when the
// shared resolution completes, with a deep copy of the resolved addresses
// or the error.
//
// Callers must not be holding any Host's mutex.
func (r *primaryLookupRegistry) obtainOrJoin(name string, deliver func(addrs []Address, err *StreamError)) (*signalLookup, *StreamError) {
	r.mu.Lock()

	entry, ok := r.entries[name]
	if !ok {
		primary := newHost(r.engine)
		primary.names = []string{name}

		primary.mu.Lock()
		primary.internalCallback = func(addrs []Address, err *StreamError) {
			r.finishPrimary(name, addrs, err)
		}
		startErr := primary.startPrimaryAddressesLocked()
		primary.mu.Unlock()

		if startErr != nil {
			r.mu.Unlock()
			return nil, startErr
		}

		entry = &registryEntry{primary: primary}
		r.entries[name] = entry
	}

	w := &registryWaiter{}
	w.signal = newSignalLookup(func() { deliver(w.resultAddrs, w.resultErr) })
	entry.waiters = append(entry.waiters, w)

	r.mu.Unlock()
	return w.signal, nil
}

// finishPrimary is the internal fan-out callback (§4.4) the primary host's
// own forward finalizer invokes on completion.
func (r *primaryLookupRegistry) finishPrimary(name string, addrs []Address, err *StreamError) {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	if err == nil {
		r.publish(name, addrs)
	}

	for _, w := range entry.waiters {
		w.resultAddrs = CloneList(addrs)
		w.resultErr = err
		w.signal.trigger()
	}
}

// publish copies addrs into the process-wide cache under every name the
// primary's resolution reported, plus the original lookup key (§4.4 step
// 2). Cache writes happen before any waiter source is triggered.
func (r *primaryLookupRegistry) publish(name string, addrs []Address) {
	keys := map[string]bool{name: true}
	for _, n := range canonicalNames(addrs) {
		keys[n] = true
	}
	for key := range keys {
		ttl := r.engine.cachePolicy([]string{key})
		r.engine.cache.Insert(key, CloneList(addrs), ttl)
	}
}

// removeWaiter drops the waiter identified by signal from name's registry
// entry (§4.4 cancellation). If that was the last remaining waiter, the
// primary's own resolution is cancelled too and the entry is dropped.
//
// Callers must not be holding any Host's mutex.
func (r *primaryLookupRegistry) removeWaiter(name string, signal *signalLookup) {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return
	}

	for i, w := range entry.waiters {
		if w.signal == signal {
			entry.waiters = append(entry.waiters[:i], entry.waiters[i+1:]...)
			break
		}
	}

	var primary *Host
	if len(entry.waiters) == 0 {
		delete(r.entries, name)
		primary = entry.primary
	}
	r.mu.Unlock()

	if primary == nil {
		return
	}
	primary.mu.Lock()
	primary.internalCallback = nil
	primary.mu.Unlock()
	primary.CancelInfoResolution(PrimaryAddresses)
}
