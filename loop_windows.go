//go:build windows

package hostresolver

// fdPollingSupported is false on this build: RegisterFD never fires. Any
// Driver on this platform must complete requests from a goroutine instead,
// as the default Driver (driver.go) always does regardless of platform.
const fdPollingSupported = false

// RegisterFD has no readiness primitive to back it on this platform and
// never calls onReady; the returned unregister function is a no-op.
func (l *Loop) RegisterFD(fd int, read, write bool, mode Mode, onReady func(readable, writable bool)) func() {
	return func() {}
}
