package hostresolver

import (
	"fmt"
	"syscall"
)

// ErrorDomain distinguishes the namespace a StreamError's Code belongs to.
type ErrorDomain int

const (
	// DomainNetDB holds resolver-level errors, named after the classic
	// getaddrinfo/gethostbyname error constants.
	DomainNetDB ErrorDomain = iota + 1
	// DomainPosix holds an errno from the host platform's errno namespace.
	DomainPosix
)

func (d ErrorDomain) String() string {
	switch d {
	case DomainNetDB:
		return "NetDB"
	case DomainPosix:
		return "Posix"
	default:
		return "Unknown"
	}
}

// NetDBCode is a resolver-level error code, surfaced under DomainNetDB.
// Values carry no semantics beyond distinguishability and matching
// getaddrinfo-style names; do not depend on their numeric values.
type NetDBCode int

const (
	NetDBHostNotFound NetDBCode = iota + 1
	NetDBNoData
	NetDBMemory
	NetDBCancelled
	NetDBNoName
	NetDBBadFlags
	NetDBAddrFamilyUnsupported
	NetDBInternal
	NetDBFail // catch-all
)

func (c NetDBCode) String() string {
	switch c {
	case NetDBHostNotFound:
		return "HostNotFound"
	case NetDBNoData:
		return "NoData"
	case NetDBMemory:
		return "Memory"
	case NetDBCancelled:
		return "Cancelled"
	case NetDBNoName:
		return "NoName"
	case NetDBBadFlags:
		return "BadFlags"
	case NetDBAddrFamilyUnsupported:
		return "AddrFamilyUnsupported"
	case NetDBInternal:
		return "Internal"
	case NetDBFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// StreamError is the two-field {domain, code} error delivered to clients,
// exactly as described in §4.1 and §7 of the specification. Code is either a
// NetDBCode or a syscall.Errno, depending on Domain.
type StreamError struct {
	Domain ErrorDomain
	Code   int
}

func (e *StreamError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Domain {
	case DomainNetDB:
		return fmt.Sprintf("netdb: %s", NetDBCode(e.Code))
	case DomainPosix:
		return fmt.Sprintf("posix: %s", syscall.Errno(e.Code))
	default:
		return fmt.Sprintf("unknown error domain %d code %d", e.Domain, e.Code)
	}
}

// IsZero reports whether e represents "no error", i.e. a nil pointer or a
// zero-value StreamError. §7 treats out_error.code == 0 as success.
func (e *StreamError) IsZero() bool {
	return e == nil || (e.Domain == 0 && e.Code == 0)
}

// Is supports errors.Is(err, NetDBErr(NetDBHostNotFound)) style comparisons.
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Code == t.Code
}

// NetDBErr builds a StreamError in DomainNetDB.
func NetDBErr(code NetDBCode) *StreamError {
	return &StreamError{Domain: DomainNetDB, Code: int(code)}
}

// PosixErr builds a StreamError in DomainPosix from a syscall.Errno.
func PosixErr(errno syscall.Errno) *StreamError {
	return &StreamError{Domain: DomainPosix, Code: int(errno)}
}

// Well-known sentinel errors, checked with errors.Is per §7.
var (
	// ErrHostNotFound means the name contained bytes that could not be
	// encoded for the resolver, or the resolver affirmed no such name.
	ErrHostNotFound = NetDBErr(NetDBHostNotFound)
	// ErrCancelled is delivered on the cancellation path (§5).
	ErrCancelled = NetDBErr(NetDBCancelled)
	// ErrAddrFamilyUnsupported means the request asked for a family the
	// engine does not support.
	ErrAddrFamilyUnsupported = NetDBErr(NetDBAddrFamilyUnsupported)
	// ErrNotSupported surfaces under DomainPosix for operations the engine
	// does not implement on this platform (e.g. Reachability, §9).
	ErrNotSupported = PosixErr(syscall.ENOTSUP)
	// ErrNoMem is the DomainPosix error for allocation-shaped failures,
	// defined for parity with the source's taxonomy. No finalizer in this
	// package returns it.
	ErrNoMem = PosixErr(syscall.ENOMEM)
)

// mapStatus translates a driver-reported status (see driver.go) into the
// public two-field taxonomy. The mapping is total: every status value
// reaches exactly one {domain, code} pair. errnoHint is consulted only for
// statusUnknown, which "intuits" a Posix error the way §4.1 describes:
// nonzero errno surfaces as DomainPosix, otherwise NetDBInternal.
func mapStatus(status driverStatus, errnoHint syscall.Errno) *StreamError {
	switch status {
	case statusSuccess:
		return nil
	case statusHostNotFound:
		return NetDBErr(NetDBHostNotFound)
	case statusNoData:
		return NetDBErr(NetDBNoData)
	case statusNoMemory:
		return NetDBErr(NetDBMemory)
	case statusCancelled:
		return NetDBErr(NetDBCancelled)
	case statusNoName:
		return NetDBErr(NetDBNoName)
	case statusBadFlags:
		return NetDBErr(NetDBBadFlags)
	case statusAddrFamilyUnsupported:
		return NetDBErr(NetDBAddrFamilyUnsupported)
	case statusInternal:
		return NetDBErr(NetDBInternal)
	case statusUnknown:
		if errnoHint != 0 {
			return PosixErr(errnoHint)
		}
		return NetDBErr(NetDBInternal)
	default:
		return NetDBErr(NetDBFail)
	}
}
