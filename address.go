package hostresolver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// AddressFamily mirrors AF_INET/AF_INET6. Unknown families are silently
// dropped when building an InfoValue for Addresses, per §3.
type AddressFamily int

const (
	FamilyUnknown AddressFamily = iota
	FamilyIPv4
	FamilyIPv6
)

func (f AddressFamily) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	default:
		return "Unknown"
	}
}

// Address is the Go-native replacement for the source's hand-allocated,
// contiguous addrinfo-shaped node (§4.2): a family tag, the raw
// socket-address bytes (16 bytes for AF_INET, 28 for AF_INET6, matching
// sockaddr_in/sockaddr_in6), and the canonical name the record carried, if
// any.
type Address struct {
	Family        AddressFamily
	SockAddr      []byte
	CanonicalName string
}

func cloneAddressList(addrs []Address) []Address {
	if addrs == nil {
		return nil
	}
	out := make([]Address, len(addrs))
	for i, a := range addrs {
		out[i] = Address{
			Family:        a.Family,
			SockAddr:      append([]byte(nil), a.SockAddr...),
			CanonicalName: a.CanonicalName,
		}
	}
	return out
}

// CloneList returns a deep copy of addrs, independent of the source slice
// and every Address's backing byte slice. §9's Open Question on address-list
// ownership is resolved by always publishing a value built with CloneList to
// anything the lookup does not itself own — the cache and every registry
// waiter.
func CloneList(addrs []Address) []Address { return cloneAddressList(addrs) }

// hostEntry is the Go shape of the resolver's "host entry" record: one
// family's worth of raw address bytes plus the canonical name the response
// carried for them (§4.2 input).
type hostEntry struct {
	family        AddressFamily
	canonicalName string
	rawAddrs      [][]byte // 4 bytes per entry for IPv4, 16 for IPv6
}

// buildAddressList is the Address-list Builder (§4.2). It is called once per
// resolver sub-query completion and its result is prepended onto whatever
// has already been accumulated for the request, so that merging the A and
// AAAA legs of a Happy Eyeballs lookup leaves the newest entries first, as
// the source does.
func buildAddressList(entry hostEntry, accumulated []Address) []Address {
	var fresh []Address

	for _, raw := range entry.rawAddrs {
		sa, ok := encodeSockAddr(entry.family, raw)
		if !ok {
			continue // unsupported family: silently dropped per §3
		}
		fresh = append(fresh, Address{
			Family:        entry.family,
			SockAddr:      sa,
			CanonicalName: entry.canonicalName,
		})
	}

	if len(fresh) == 0 {
		return accumulated
	}
	return append(fresh, accumulated...)
}

// encodeSockAddr packs raw (4 or 16 address bytes) into the sockaddr-shaped
// byte vector described in §6: 16 bytes for AF_INET, 28 for AF_INET6. Port
// is always zero; the engine only ever resolves names to addresses, never to
// addresses-with-a-service.
func encodeSockAddr(family AddressFamily, raw []byte) ([]byte, bool) {
	switch family {
	case FamilyIPv4:
		if len(raw) != 4 {
			return nil, false
		}
		b := make([]byte, 16)
		b[0] = 2 // AF_INET, for parity with the platform's sa_family_t
		copy(b[4:8], raw)
		return b, true
	case FamilyIPv6:
		if len(raw) != 16 {
			return nil, false
		}
		b := make([]byte, 28)
		b[0] = 10 // AF_INET6
		copy(b[8:24], raw)
		return b, true
	default:
		return nil, false
	}
}

// DecodeSockAddr is the inverse of encodeSockAddr: it recovers the IP
// address and family CreateWithAddress was given a raw socket-address byte
// vector for.
func DecodeSockAddr(b []byte) (net.IP, AddressFamily, error) {
	switch len(b) {
	case 16:
		return net.IP(append([]byte(nil), b[4:8]...)), FamilyIPv4, nil
	case 28:
		return net.IP(append([]byte(nil), b[8:24]...)), FamilyIPv6, nil
	default:
		return nil, FamilyUnknown, fmt.Errorf("hostresolver: socket address has unexpected length %d (want 16 or 28)", len(b))
	}
}

// arpaName builds the reverse-DNS query name for ip: an in-addr.arpa name
// for IPv4, an ip6.arpa name for IPv6. Ported from the teacher's
// arpaName4/arpaName6 (dns.go), which implement RFC 1035 §3.5 and RFC 3596
// §2.5 respectively.
func arpaName(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return arpaName4(v4)
	}
	return arpaName6(ip.To16())
}

func arpaName4(ip net.IP) string {
	if len(ip) != 4 {
		panic("arpaName4: not four bytes")
	}

	labels := make([]string, 5)
	for i := 0; i < 4; i++ {
		labels[i] = strconv.FormatUint(uint64(ip[3-i]), 10)
	}
	labels[4] = "in-addr.arpa."

	return strings.Join(labels, ".")
}

func arpaName6(ip net.IP) string {
	if len(ip) != 16 {
		panic("arpaName6: not sixteen bytes: " + strconv.Itoa(len(ip)))
	}

	labels := make([]string, 33)

	for i := 0; i < 16; i++ {
		labels[i*2+0] = strconv.FormatUint(uint64(ip[15-i])&0xF, 16)
		labels[i*2+1] = strconv.FormatUint(uint64(ip[15-i])>>4, 16)
	}

	labels[32] = "ip6.arpa."

	return strings.Join(labels, ".")
}

// canonicalNames returns the distinct, non-empty canonical names carried by
// addrs, in first-seen order. Used by the registry's fan-out (§4.4 step 2)
// to key the Positive Cache by every name the lookup reported, not just the
// name the caller originally asked for.
func canonicalNames(addrs []Address) []string {
	seen := map[string]bool{}
	var names []string
	for _, a := range addrs {
		name := strings.TrimSuffix(a.CanonicalName, ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
