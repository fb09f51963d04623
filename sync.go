package hostresolver

import "context"

// runSyncBridge implements §4.5's Synchronous Bridge: when a caller starts
// a resolution on a host with no client callback installed,
// StartInfoResolution blocks until it completes rather than returning
// immediately. It does this by mounting h on a private Loop reserved for
// this one call and waiting on that Loop's wake signal (WaitForWake) until
// h's lookup clears. It runs none of the work scheduled on the Loop; the
// finalizer wakes the Loop when it tears the lookup down.
func (h *Host) runSyncBridge(kind InfoKind) (bool, *StreamError) {
	loop := NewLoop()
	ctx := context.Background()

	h.ScheduleOn(loop, ModeSyncBridge)
	defer h.UnscheduleFrom(loop, ModeSyncBridge)

	for {
		h.mu.Lock()
		current := h.lookup
		resolvingKind := h.resolvingKind
		err := h.err
		h.mu.Unlock()

		if current == nil || resolvingKind != kind {
			return err.IsZero(), err
		}

		loop.WaitForWake(ctx)
	}
}
