package hostresolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLookupError_Cancelled(t *testing.T) {
	assert.Equal(t, statusCancelled, classifyLookupError(context.Canceled))
}

func TestRcodeToStatus(t *testing.T) {
	assert.Equal(t, statusSuccess, rcodeToStatus(0))
	assert.Equal(t, statusHostNotFound, rcodeToStatus(3)) // NXDOMAIN
}

// stubLookup is a no-op lookup used by stubDriver, since its completions
// are always delivered from a goroutine with nothing further to mount.
type stubLookup struct{}

func (stubLookup) mount(*Loop, Mode)   {}
func (stubLookup) unmount(*Loop, Mode) {}
func (stubLookup) invalidate()         {}

// stubDriver is a fully in-memory Driver for tests that must not touch the
// network: it answers every Forward/Reverse call from a table keyed by the
// queried name or address, delivered asynchronously to match the real
// Driver's contract that onComplete never fires synchronously.
type stubDriver struct {
	forward map[string]struct {
		status driverStatus
		addrs  []Address
	}
	reverse map[string]struct {
		status driverStatus
		names  []string
	}
}

func newStubDriver() *stubDriver {
	return &stubDriver{
		forward: map[string]struct {
			status driverStatus
			addrs  []Address
		}{},
		reverse: map[string]struct {
			status driverStatus
			names  []string
		}{},
	}
}

func (d *stubDriver) withForward(name string, status driverStatus, addrs []Address) *stubDriver {
	d.forward[name] = struct {
		status driverStatus
		addrs  []Address
	}{status, addrs}
	return d
}

func (d *stubDriver) withReverse(key string, status driverStatus, names []string) *stubDriver {
	d.reverse[key] = struct {
		status driverStatus
		names  []string
	}{status, names}
	return d
}

func (d *stubDriver) Forward(ctx context.Context, name string, filter familyFilter, onComplete func(driverStatus, []Address)) lookup {
	res, ok := d.forward[name]
	go func() {
		if !ok {
			onComplete(statusHostNotFound, nil)
			return
		}
		onComplete(res.status, CloneList(res.addrs))
	}()
	return stubLookup{}
}

func (d *stubDriver) Reverse(ctx context.Context, sockAddr []byte, onComplete func(driverStatus, []string)) lookup {
	ip, _, err := DecodeSockAddr(sockAddr)
	key := ""
	if err == nil {
		key = ip.String()
	}
	res, ok := d.reverse[key]
	go func() {
		if !ok {
			onComplete(statusHostNotFound, nil)
			return
		}
		onComplete(res.status, append([]string(nil), res.names...))
	}()
	return stubLookup{}
}
