//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package hostresolver

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// fdPollingSupported reports whether this build can back Loop.RegisterFD
// with a real readiness poll. The default Driver (driver.go) does not
// depend on it — every exchange completes from a goroutine regardless of
// platform — but a Driver that owns its own sockets can use RegisterFD to
// learn readiness without spinning a goroutine per connection, the same
// socket-state-notification shape §4.3 describes.
const fdPollingSupported = true

type fdRegistration struct {
	fd      int
	read    bool
	write   bool
	loop    *Loop
	mode    Mode
	onReady func(readable, writable bool)
}

type fdPoller struct {
	mu      sync.Mutex
	regs    map[int]*fdRegistration
	running bool
}

var globalFDPoller = &fdPoller{regs: map[int]*fdRegistration{}}

// RegisterFD arranges for onReady to be scheduled on loop, in mode, the
// next time fd becomes ready for the requested interest — §4.3's "register
// both one-shot read and write callbacks gated by events". It fires at
// most once; register again for further readiness. The returned function
// unregisters fd if it has not fired yet.
func (l *Loop) RegisterFD(fd int, read, write bool, mode Mode, onReady func(readable, writable bool)) func() {
	return globalFDPoller.register(&fdRegistration{fd: fd, read: read, write: write, loop: l, mode: mode, onReady: onReady})
}

func (p *fdPoller) register(r *fdRegistration) func() {
	p.mu.Lock()
	p.regs[r.fd] = r
	if !p.running {
		p.running = true
		go p.run()
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		if p.regs[r.fd] == r {
			delete(p.regs, r.fd)
		}
		p.mu.Unlock()
	}
}

func (p *fdPoller) run() {
	for {
		p.mu.Lock()
		if len(p.regs) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		fds := make([]unix.PollFd, 0, len(p.regs))
		regs := make([]*fdRegistration, 0, len(p.regs))
		for _, r := range p.regs {
			var events int16
			if r.read {
				events |= unix.POLLIN
			}
			if r.write {
				events |= unix.POLLOUT
			}
			fds = append(fds, unix.PollFd{Fd: int32(r.fd), Events: events})
			regs = append(regs, r)
		}
		p.mu.Unlock()

		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n <= 0 {
			continue
		}

		for i, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			r := regs[i]

			p.mu.Lock()
			stillRegistered := p.regs[r.fd] == r
			if stillRegistered {
				delete(p.regs, r.fd) // one-shot
			}
			p.mu.Unlock()
			if !stillRegistered {
				continue
			}

			readable := pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
			writable := pfd.Revents&unix.POLLOUT != 0
			r.loop.Schedule(r.mode, func() { r.onReady(readable, writable) })
		}
	}
}
