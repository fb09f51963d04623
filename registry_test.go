package hostresolver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipv4Address(t *testing.T, canonicalName string) Address {
	t.Helper()
	sa, ok := encodeSockAddr(FamilyIPv4, []byte{192, 0, 2, 1})
	require.True(t, ok)
	return Address{Family: FamilyIPv4, SockAddr: sa, CanonicalName: canonicalName}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting")
	}
}

func TestRegistry_ObtainOrJoin_FansOutToAllWaiters(t *testing.T) {
	driver := newStubDriver().withForward("example.com", statusSuccess, []Address{ipv4Address(t, "example.com")})
	e := NewEngine(WithDriver(driver), WithCacheCapacity(16))

	const waiters = 5
	var wg sync.WaitGroup
	results := make([][]Address, waiters)
	errs := make([]*StreamError, waiters)

	for i := 0; i < waiters; i++ {
		i := i
		wg.Add(1)
		sig, err := e.registry.obtainOrJoin("example.com", func(addrs []Address, rerr *StreamError) {
			results[i] = addrs
			errs[i] = rerr
			wg.Done()
		})
		require.NoError(t, err)
		require.NotNil(t, sig)

		loop := NewLoop()
		sig.mount(loop, "m")
		go loop.RunOnce(context.Background(), "m")
	}

	waitWithTimeout(t, &wg, time.Second)

	for i := 0; i < waiters; i++ {
		assert.Nil(t, errs[i])
		assert.Len(t, results[i], 1)
	}

	e.registry.mu.Lock()
	_, stillPresent := e.registry.entries["example.com"]
	e.registry.mu.Unlock()
	assert.False(t, stillPresent)

	cached, _, ok := e.cache.Get("example.com")
	require.True(t, ok)
	assert.Len(t, cached, 1)
}

// countingDriver wraps stubDriver to count Forward calls, proving
// obtainOrJoin issues exactly one resolver-driver call no matter how many
// callers join the same name concurrently (§4.4).
type countingDriver struct {
	*stubDriver
	forwardCalls int32
}

func (d *countingDriver) Forward(ctx context.Context, name string, filter familyFilter, onComplete func(driverStatus, []Address)) lookup {
	atomic.AddInt32(&d.forwardCalls, 1)
	return d.stubDriver.Forward(ctx, name, filter, onComplete)
}

func TestRegistry_ObtainOrJoin_OnlyOneForwardCallPerName(t *testing.T) {
	driver := &countingDriver{stubDriver: newStubDriver().withForward("shared.test", statusSuccess, []Address{ipv4Address(t, "shared.test")})}
	e := NewEngine(WithDriver(driver), WithCacheCapacity(16))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		sig, err := e.registry.obtainOrJoin("shared.test", func([]Address, *StreamError) { wg.Done() })
		require.NoError(t, err)
		loop := NewLoop()
		sig.mount(loop, "m")
		go loop.RunOnce(context.Background(), "m")
	}
	waitWithTimeout(t, &wg, time.Second)

	assert.EqualValues(t, 1, atomic.LoadInt32(&driver.forwardCalls))
}

func TestRegistry_RemoveWaiter_LastWaiterCancelsPrimary(t *testing.T) {
	block := make(chan struct{})
	driver := &blockingDriver{unblock: block}
	e := NewEngine(WithDriver(driver), WithCacheCapacity(16))
	defer close(block)

	sig, err := e.registry.obtainOrJoin("blocked.test", func([]Address, *StreamError) {
		t.Fatal("deliver must not run once the only waiter was removed")
	})
	require.NoError(t, err)

	e.registry.mu.Lock()
	_, present := e.registry.entries["blocked.test"]
	e.registry.mu.Unlock()
	require.True(t, present)

	e.registry.removeWaiter("blocked.test", sig)

	e.registry.mu.Lock()
	_, stillPresent := e.registry.entries["blocked.test"]
	e.registry.mu.Unlock()
	assert.False(t, stillPresent)
}

// blockingDriver never completes until unblock is closed, letting tests
// observe registry state while a primary resolution is still in flight.
type blockingDriver struct {
	unblock chan struct{}
}

func (d *blockingDriver) Forward(ctx context.Context, name string, filter familyFilter, onComplete func(driverStatus, []Address)) lookup {
	req, reqCtx := newDriverRequest(ctx)
	go func() {
		select {
		case <-d.unblock:
			onComplete(statusSuccess, nil)
		case <-reqCtx.Done():
		}
	}()
	return req
}

func (d *blockingDriver) Reverse(ctx context.Context, sockAddr []byte, onComplete func(driverStatus, []string)) lookup {
	req, _ := newDriverRequest(ctx)
	return req
}
