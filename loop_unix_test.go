//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package hostresolver

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The default Driver never registers a raw file descriptor — every
// exchange completes from a goroutine regardless of platform (driver.go)
// — so RegisterFD's readiness path is exercised directly here instead.
func TestRegisterFD_FiresOnReadability(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	loop := NewLoop()
	done := make(chan struct{})

	loop.RegisterFD(int(r.Fd()), true, false, "poll-test", func(readable, writable bool) {
		assert.True(t, readable)
		close(done)
	})

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	loop.RunOnce(ctx, "poll-test")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onReady never fired")
	}
}

func TestRegisterFD_UnregisterPreventsFire(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	loop := NewLoop()
	fired := make(chan struct{}, 1)

	unregister := loop.RegisterFD(int(r.Fd()), true, false, "poll-test", func(bool, bool) {
		fired <- struct{}{}
	})
	unregister()

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	loop.RunOnce(ctx, "poll-test")

	select {
	case <-fired:
		t.Fatal("onReady fired after unregister")
	default:
	}
}
