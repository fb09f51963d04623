package hostresolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitClosed(t *testing.T, ch chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatal("fire never ran")
	}
}

func TestSignalLookup_TriggerBeforeMount(t *testing.T) {
	fired := make(chan struct{})
	sig := newSignalLookup(func() { close(fired) })

	sig.trigger()

	loop := NewLoop()
	sig.mount(loop, "m")

	waitClosed(t, fired, time.Second)
}

func TestSignalLookup_MountBeforeTrigger(t *testing.T) {
	fired := make(chan struct{})
	sig := newSignalLookup(func() { close(fired) })

	loop := NewLoop()
	sig.mount(loop, "m")
	sig.trigger()

	waitClosed(t, fired, time.Second)
}

func TestSignalLookup_FiresExactlyOnce(t *testing.T) {
	var count int32
	fired := make(chan struct{})
	sig := newSignalLookup(func() {
		count++
		close(fired)
	})

	loop := NewLoop()
	sig.mount(loop, "m")
	sig.mount(loop, "m2")
	sig.trigger()
	sig.trigger() // second trigger is a no-op

	waitClosed(t, fired, time.Second)
	time.Sleep(20 * time.Millisecond) // let any would-be duplicate fire land

	assert.EqualValues(t, 1, count)
}

// A signal with nothing ever mounted on a Loop still fires, via its own
// async fallback (lookup.go) — required for a Host resolved purely through
// a client callback, which never calls ScheduleOn.
func TestSignalLookup_FiresWithoutEverBeingMounted(t *testing.T) {
	fired := make(chan struct{})
	sig := newSignalLookup(func() { close(fired) })
	sig.trigger()
	waitClosed(t, fired, time.Second)
}

// unmount/invalidate stop a specific Loop from being notified of a fire,
// but do not themselves prevent the fire from eventually running through
// the fallback dispatch — host.go's generation counter (lookupGen), not
// mount bookkeeping, is what makes a stale completion a no-op.
func TestSignalLookup_UnmountStopsThatLoopButNotTheFire(t *testing.T) {
	loopFired := false
	fired := make(chan struct{})
	sig := newSignalLookup(func() {
		loopFired = true
		close(fired)
	})

	loop := NewLoop()
	sig.mount(loop, "m")
	sig.unmount(loop, "m")
	sig.trigger()

	waitClosed(t, fired, time.Second)
	assert.True(t, loopFired)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	loop.RunOnce(ctx, "m") // drains only the entry unmount cancelled; it runs nothing
}
