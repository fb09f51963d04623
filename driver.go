package hostresolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// driverStatus is the resolver-native status a sub-query completion reports
// (§4.3), before mapStatus (errors.go) translates it into the public
// two-field taxonomy. Values carry no meaning beyond distinguishability.
type driverStatus int

const (
	statusSuccess driverStatus = iota
	statusHostNotFound
	statusNoData
	statusNoMemory
	statusCancelled
	statusNoName
	statusBadFlags
	statusAddrFamilyUnsupported
	statusInternal
	statusFail
	statusUnknown
)

// familyFilter narrows a forward lookup to one address family, or leaves it
// unspecified for Happy Eyeballs dual-stack issuance (§4.3 step 2).
type familyFilter int

const (
	filterUnspecified familyFilter = iota
	filterIPv4Only
	filterIPv6Only
)

// Driver is the resolver-driver contract the engine consumes (§6): an
// opaque transport that performs the actual forward/reverse DNS work. The
// host state machine (host.go) never talks to the network directly, only
// to a Driver.
//
// Forward and Reverse must return promptly; the onComplete callback always
// runs later, from whatever goroutine observes completion, and is invoked
// at most once. This engine's host state machine never assumes onComplete
// fires synchronously, which sidesteps the reentrant-locking concern the
// source's "fallthrough without socket" path (§4.3, §5) exists to handle —
// see DESIGN.md.
type Driver interface {
	Forward(ctx context.Context, name string, filter familyFilter, onComplete func(status driverStatus, addrs []Address)) lookup
	Reverse(ctx context.Context, sockAddr []byte, onComplete func(status driverStatus, names []string)) lookup
}

// driverRequest is the lookup (§9 Design Note's tagged variant) a Driver
// hands back for an in-flight request. It has nothing to mount on a Loop —
// completion is always delivered from the goroutine that performed the
// I/O — so mount/unmount are bookkeeping no-ops; invalidate cancels the
// request's context, a best-effort signal the underlying exchange honors
// if it hasn't already returned.
type driverRequest struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (r *driverRequest) mount(*Loop, Mode)   {}
func (r *driverRequest) unmount(*Loop, Mode) {}

func (r *driverRequest) invalidate() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func newDriverRequest(parent context.Context) (*driverRequest, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &driverRequest{cancel: cancel}, ctx
}

// DriverOption configures a Driver built with NewDriver.
type DriverOption func(*defaultDriver)

// WithServers pins the driver to an explicit set of "ip:port" upstream name
// servers, bypassing both system-server discovery (discover_unix.go,
// discover_windows.go) and the operating system's own resolver.
func WithServers(servers []string) DriverOption {
	return func(d *defaultDriver) { d.servers = append([]string(nil), servers...) }
}

// WithTimeoutPolicy overrides DefaultTimeoutPolicy for exchanges issued
// against explicit or discovered servers. Has no effect when the driver
// falls back to the operating system's resolver.
func WithTimeoutPolicy(p TimeoutPolicy) DriverOption {
	return func(d *defaultDriver) { d.timeoutPolicy = p }
}

// WithLogger attaches a structured logger for per-exchange diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *defaultDriver) { d.logger = l }
}

// NewDriver returns the engine's default Driver. It issues raw queries with
// github.com/miekg/dns against the WithServers list when one is given, and
// otherwise against the system name servers found by
// discoverSystemServers (run once, on first use). Only when no server list
// is available at all (discovery failed or found none) does it defer to the
// operating system's own resolver (net.DefaultResolver), which resolves
// platform-special names like "localhost" against /etc/hosts or
// nsswitch.conf.
func NewDriver(opts ...DriverOption) Driver {
	d := &defaultDriver{
		timeoutPolicy: DefaultTimeoutPolicy(),
		logger:        slog.Default(),
		client:        &dns.Client{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// defaultDriver is the engine's shipped Driver. Ported in spirit from the
// teacher's Resolver (originally resolver.go): the sync.Once-gated
// system-server discovery and the TimeoutPolicy-per-server pattern survive;
// the iterative NS-delegation walking (queryIteratively/doQuery/isDelegation)
// does not, since this engine's driver contract expects single-shot
// exchanges against an opaque upstream, not root-to-zone recursion.
type defaultDriver struct {
	servers       []string
	timeoutPolicy TimeoutPolicy
	logger        *slog.Logger
	client        *dns.Client

	discoverOnce sync.Once
	discovered   []string
	discoverErr  error
}

func (d *defaultDriver) resolveServers() ([]string, error) {
	if len(d.servers) > 0 {
		return d.servers, nil
	}
	d.discoverOnce.Do(func() {
		d.discovered, d.discoverErr = discoverSystemServers()
	})
	return d.discovered, d.discoverErr
}

func (d *defaultDriver) Forward(ctx context.Context, name string, filter familyFilter, onComplete func(driverStatus, []Address)) lookup {
	req, reqCtx := newDriverRequest(ctx)

	servers, err := d.resolveServers()
	if err != nil || len(servers) == 0 {
		go d.forwardStdlib(reqCtx, name, filter, onComplete)
		return req
	}
	go d.forwardUDP(reqCtx, servers, name, filter, onComplete)
	return req
}

func (d *defaultDriver) Reverse(ctx context.Context, sockAddr []byte, onComplete func(driverStatus, []string)) lookup {
	req, reqCtx := newDriverRequest(ctx)

	ip, _, err := DecodeSockAddr(sockAddr)
	if err != nil {
		go onComplete(statusBadFlags, nil)
		return req
	}

	servers, serr := d.resolveServers()
	if serr != nil || len(servers) == 0 {
		go d.reverseStdlib(reqCtx, ip, onComplete)
		return req
	}
	go d.reverseUDP(reqCtx, servers, ip, onComplete)
	return req
}

func (d *defaultDriver) forwardStdlib(ctx context.Context, name string, filter familyFilter, onComplete func(driverStatus, []Address)) {
	network := "ip"
	switch filter {
	case filterIPv4Only:
		network = "ip4"
	case filterIPv6Only:
		network = "ip6"
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, network, name)
	if err != nil {
		onComplete(classifyLookupError(err), nil)
		return
	}

	var addrs []Address
	for _, ip := range ips {
		addrs = buildAddressList(hostEntryForIP(ip, name), addrs)
	}
	onComplete(statusSuccess, addrs)
}

func (d *defaultDriver) reverseStdlib(ctx context.Context, ip net.IP, onComplete func(driverStatus, []string)) {
	names, err := net.DefaultResolver.LookupAddr(ctx, ip.String())
	if err != nil {
		onComplete(classifyLookupError(err), nil)
		return
	}
	for i, n := range names {
		names[i] = strings.TrimSuffix(n, ".")
	}
	onComplete(statusSuccess, names)
}

func hostEntryForIP(ip net.IP, canonicalName string) hostEntry {
	if v4 := ip.To4(); v4 != nil {
		return hostEntry{family: FamilyIPv4, canonicalName: canonicalName, rawAddrs: [][]byte{v4}}
	}
	return hostEntry{family: FamilyIPv6, canonicalName: canonicalName, rawAddrs: [][]byte{ip.To16()}}
}

func classifyLookupError(err error) driverStatus {
	if errors.Is(err, context.Canceled) {
		return statusCancelled
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return statusHostNotFound
	}
	return statusFail
}

type addressSubResult struct {
	status driverStatus
	addrs  []Address
}

// forwardUDP issues the Happy Eyeballs A/AAAA pair (or a single query for a
// family-filtered request) against servers, in parallel, joined with
// errgroup the way the rest of this dependency pack uses it for fan-out
// joins rather than fail-fast cancellation: every goroutine always returns
// nil so a failure on one leg never aborts the sibling still in flight.
func (d *defaultDriver) forwardUDP(ctx context.Context, servers []string, name string, filter familyFilter, onComplete func(driverStatus, []Address)) {
	fqdn := dns.Fqdn(name)

	var qtypes []uint16
	switch filter {
	case filterIPv4Only:
		qtypes = []uint16{dns.TypeA}
	case filterIPv6Only:
		qtypes = []uint16{dns.TypeAAAA}
	default:
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	}

	results := make([]addressSubResult, len(qtypes))
	g, _ := errgroup.WithContext(ctx)
	for i, qtype := range qtypes {
		i, qtype := i, qtype
		g.Go(func() error {
			results[i] = d.exchangeAddressQuery(ctx, servers, fqdn, qtype)
			return nil
		})
	}
	_ = g.Wait()

	// Merge newest-first (§4.2): the leg issued last (AAAA, when both are
	// in flight) is treated as the newest accumulation.
	var merged []Address
	for i := len(results) - 1; i >= 0; i-- {
		merged = append(merged, results[i].addrs...)
	}

	final := results[len(results)-1].status
	for _, r := range results {
		if r.status == statusSuccess {
			final = statusSuccess
			break
		}
	}
	onComplete(final, merged)
}

func (d *defaultDriver) exchangeAddressQuery(ctx context.Context, servers []string, fqdn string, qtype uint16) addressSubResult {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	resp, _, err := d.exchangeAny(ctx, servers, msg)
	if err != nil {
		return addressSubResult{status: statusFail}
	}

	status := rcodeToStatus(resp.Rcode)
	if status != statusSuccess {
		return addressSubResult{status: status}
	}

	var addrs []Address
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			addrs = buildAddressList(hostEntry{family: FamilyIPv4, canonicalName: rec.Hdr.Name, rawAddrs: [][]byte{rec.A.To4()}}, addrs)
		case *dns.AAAA:
			addrs = buildAddressList(hostEntry{family: FamilyIPv6, canonicalName: rec.Hdr.Name, rawAddrs: [][]byte{rec.AAAA.To16()}}, addrs)
		}
	}
	if len(addrs) == 0 {
		return addressSubResult{status: statusNoData}
	}
	return addressSubResult{status: statusSuccess, addrs: addrs}
}

func (d *defaultDriver) reverseUDP(ctx context.Context, servers []string, ip net.IP, onComplete func(driverStatus, []string)) {
	msg := new(dns.Msg)
	msg.SetQuestion(arpaName(ip), dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := d.exchangeAny(ctx, servers, msg)
	if err != nil {
		onComplete(statusFail, nil)
		return
	}

	status := rcodeToStatus(resp.Rcode)
	if status != statusSuccess {
		onComplete(status, nil)
		return
	}

	var names []string
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
		}
	}
	if len(names) == 0 {
		onComplete(statusNoData, nil)
		return
	}
	onComplete(statusSuccess, names)
}

// exchangeAny tries each server in order, honoring d.timeoutPolicy per
// server, and returns the first successful exchange. Ported from the
// teacher's per-server ExchangeContext call in doQuery (resolver.go),
// dropped into a flat retry loop now that there is no NS delegation chain
// to walk.
func (d *defaultDriver) exchangeAny(ctx context.Context, servers []string, msg *dns.Msg) (*dns.Msg, string, error) {
	var lastErr error
	for _, server := range servers {
		qctx := ctx
		var cancel context.CancelFunc
		if timeout := d.timeoutPolicy(server); timeout > 0 {
			qctx, cancel = context.WithTimeout(ctx, timeout)
		}
		resp, rtt, err := d.client.ExchangeContext(qctx, msg, server)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			d.logger.Debug("hostresolver: exchange failed", "server", server, "question", msg.Question, "err", err)
			continue
		}
		d.logger.Debug("hostresolver: exchange ok", "server", server, "question", msg.Question, "rtt", rtt, "rcode", dns.RcodeToString[resp.Rcode])
		return resp, server, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("hostresolver: no upstream servers configured")
	}
	return nil, "", lastErr
}

func rcodeToStatus(rcode int) driverStatus {
	switch rcode {
	case dns.RcodeSuccess:
		return statusSuccess
	case dns.RcodeNameError:
		return statusHostNotFound
	case dns.RcodeServerFailure:
		return statusInternal
	default:
		return statusFail
	}
}
