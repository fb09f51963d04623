package hostresolver

import (
	"net"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// TimeoutPolicy determines the round-trip timeout for a single exchange with
// one upstream name server. serverAddress is an "ip:port" pair. Timeouts are
// not modeled by the engine itself (§5); this is consulted only by the
// default Driver (driver.go) before every dns.Client.ExchangeContext call.
//
// Any non-positive duration is understood as an infinite timeout.
type TimeoutPolicy func(serverAddress string) time.Duration

// DefaultTimeoutPolicy assumes low latency to addresses in PrivateNets and
// causes exchanges with such addresses to time out after 100 milliseconds
// and all other exchanges after 1 second. Ported from the teacher's
// defaultTimeoutPolicy (policy.go), generalized to not need a record/domain
// name, since the default Driver issues single-shot queries rather than
// following NS delegations.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return defaultTimeoutPolicy
}

func defaultTimeoutPolicy(serverAddress string) time.Duration {
	ipStr, _, err := net.SplitHostPort(serverAddress)
	if err != nil {
		ipStr = serverAddress
	}
	ip := net.ParseIP(ipStr)

	for _, n := range PrivateNets {
		if n.Contains(ip) {
			return 100 * time.Millisecond
		}
	}

	return 1 * time.Second
}

// PrivateNets is used by DefaultTimeoutPolicy to return a low timeout for
// destination addresses in one of these subnets.
var PrivateNets = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.0.0.0/24"),
	mustParseCIDR("192.0.2.0/24"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("198.18.0.0/15"),
	mustParseCIDR("198.51.100.0/24"),
	mustParseCIDR("203.0.113.0/24"),
	mustParseCIDR("233.252.0.0/24"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("2001:db8::/32"),
	mustParseCIDR("fd00::/8"),
	mustParseCIDR("fe80::/10"),
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}

	return n
}

// CachePolicy determines how long a successful forward resolution remains
// fresh in the process-wide Positive Cache (§3, §4.4). names is every name
// the lookup reported (the queried name plus any canonical names the
// response carried).
type CachePolicy func(names []string) time.Duration

// DefaultCachePolicy returns a CachePolicy that always answers ttl,
// matching §3's "Expiry is a fixed CacheTtl since insertion".
func DefaultCachePolicy(ttl time.Duration) CachePolicy {
	return func([]string) time.Duration { return ttl }
}

// PublicSuffixCachePolicy returns normalTTL for ordinary leaf hostnames, but
// a shorter publicSuffixTTL when one of the resolved names is itself a
// registered public suffix (e.g. "co.uk", "com") — such an answer usually
// comes from a shared, heavily-delegated zone, so the engine holds onto it
// for less time. Ported from the teacher's isPublicSuffix-gated
// DefaultCachePolicy (policy.go).
func PublicSuffixCachePolicy(normalTTL, publicSuffixTTL time.Duration) CachePolicy {
	return func(names []string) time.Duration {
		for _, name := range names {
			if isPublicSuffix(name) {
				return publicSuffixTTL
			}
		}
		return normalTTL
	}
}

func isPublicSuffix(fqdn string) bool {
	name := strings.TrimSuffix(fqdn, ".")
	s, _ := publicsuffix.PublicSuffix(name)
	return s == name
}
