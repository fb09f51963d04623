package hostresolver

// InfoKind identifies one of the resolvable facets of a Host, per §3.
type InfoKind int

const (
	// Addresses is the default forward-DNS lookup: name -> addresses,
	// joining the process-wide Primary-Lookup Registry for duplicate
	// suppression.
	Addresses InfoKind = iota + 1
	// Names is the reverse-DNS lookup: address -> names.
	Names
	// Reachability reports whether the host is presently reachable. No
	// reachability driver is in scope for this engine; see host.go.
	Reachability
	// IPv4OnlyAddresses is a forward lookup restricted to the A family,
	// issued directly against the driver without registry interaction.
	IPv4OnlyAddresses
	// IPv6OnlyAddresses is a forward lookup restricted to the AAAA family,
	// issued directly against the driver without registry interaction.
	IPv6OnlyAddresses
	// PrimaryAddresses is how a Primary-Lookup Registry entry's primary
	// host performs its own shared forward resolution.
	PrimaryAddresses
	// BypassPrimaryAddresses is a forward lookup that deliberately routes
	// around the registry and the Positive Cache, for diagnostic callers
	// that must observe a fresh network round trip.
	BypassPrimaryAddresses
)

func (k InfoKind) String() string {
	switch k {
	case Addresses:
		return "Addresses"
	case Names:
		return "Names"
	case Reachability:
		return "Reachability"
	case IPv4OnlyAddresses:
		return "IPv4OnlyAddresses"
	case IPv6OnlyAddresses:
		return "IPv6OnlyAddresses"
	case PrimaryAddresses:
		return "PrimaryAddresses"
	case BypassPrimaryAddresses:
		return "BypassPrimaryAddresses"
	default:
		return "Unknown"
	}
}

// isAddressKind reports whether kind resolves to an address list (as opposed
// to Names or Reachability), i.e. whether it is handled by the forward
// finalizer.
func (k InfoKind) isAddressKind() bool {
	switch k {
	case Addresses, IPv4OnlyAddresses, IPv6OnlyAddresses, PrimaryAddresses, BypassPrimaryAddresses:
		return true
	default:
		return false
	}
}

// resolveState replaces the source's Absent/ResolvedEmpty/ResolvedWithData
// three-way distinction (§3, Design Note 1). Absent means never attempted;
// the Absent/ResolvedEmpty split is load-bearing for the Resolved
// out-parameter of Host.GetInfo, which is true for both ResolvedEmpty and
// ResolvedData.
type resolveState int

const (
	stateAbsent resolveState = iota
	stateResolvedEmpty
	stateResolvedData
)

// AddressValue is the Absent|ResolvedEmpty|Resolved(addrs) value behind the
// five address-shaped InfoKinds.
type AddressValue struct {
	state resolveState
	addrs []Address
}

// Resolved reports whether a finalizer has ever written this value, empty or
// not — the out-parameter §6's get_info/get_addresses call "hasBeenResolved".
func (v AddressValue) Resolved() bool { return v.state != stateAbsent }

// Addresses returns the resolved address list, or nil if Absent or empty.
func (v AddressValue) Addresses() []Address { return v.addrs }

func (v AddressValue) clone() AddressValue {
	return AddressValue{state: v.state, addrs: cloneAddressList(v.addrs)}
}

// NameValue is the Absent|ResolvedEmpty|Resolved(names) value behind Names.
type NameValue struct {
	state resolveState
	names []string
}

func (v NameValue) Resolved() bool { return v.state != stateAbsent }
func (v NameValue) Names() []string {
	if v.names == nil {
		return nil
	}
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

func (v NameValue) clone() NameValue {
	return NameValue{state: v.state, names: append([]string(nil), v.names...)}
}

// ReachabilityValue is the Absent|ResolvedEmpty|Resolved(bool) value behind
// Reachability. No reachability driver is in scope (§9); this engine always
// fails synchronously with ErrNotSupported, so Resolved() is always false in
// practice, but the type exists to keep Info's shape uniform and to let a
// future driver populate it without an API break.
type ReachabilityValue struct {
	state     resolveState
	reachable bool
}

func (v ReachabilityValue) Resolved() bool  { return v.state != stateAbsent }
func (v ReachabilityValue) Reachable() bool { return v.reachable }

// Info replaces the source's heterogeneous dictionary keyed by an integer
// tag (Design Note 1 in §9) with an explicit struct of typed fields, one per
// InfoKind.
type Info struct {
	Addresses              AddressValue
	Names                  NameValue
	Reachability           ReachabilityValue
	IPv4OnlyAddresses      AddressValue
	IPv6OnlyAddresses      AddressValue
	PrimaryAddresses       AddressValue
	BypassPrimaryAddresses AddressValue
}

// clone returns a deep copy of info, used by CreateCopy and GetInfo so no
// two Hosts, and no caller and its Host, ever share backing Address/name
// slices.
func (info Info) clone() Info {
	return Info{
		Addresses:              info.Addresses.clone(),
		Names:                  info.Names.clone(),
		Reachability:           info.Reachability,
		IPv4OnlyAddresses:      info.IPv4OnlyAddresses.clone(),
		IPv6OnlyAddresses:      info.IPv6OnlyAddresses.clone(),
		PrimaryAddresses:       info.PrimaryAddresses.clone(),
		BypassPrimaryAddresses: info.BypassPrimaryAddresses.clone(),
	}
}

// getAddressValue returns the AddressValue field selected by kind, or the
// zero value (and false) if kind is not address-shaped.
func (info *Info) getAddressValue(kind InfoKind) (*AddressValue, bool) {
	switch kind {
	case Addresses:
		return &info.Addresses, true
	case IPv4OnlyAddresses:
		return &info.IPv4OnlyAddresses, true
	case IPv6OnlyAddresses:
		return &info.IPv6OnlyAddresses, true
	case PrimaryAddresses:
		return &info.PrimaryAddresses, true
	case BypassPrimaryAddresses:
		return &info.BypassPrimaryAddresses, true
	default:
		return nil, false
	}
}

// setAddresses stores addrs (may be empty, never nil on success) under kind,
// replacing whatever was there before, per §4.5 finalizer step 3/5.
func (info *Info) setAddresses(kind InfoKind, addrs []Address) {
	v, ok := info.getAddressValue(kind)
	if !ok {
		return
	}
	if len(addrs) == 0 {
		*v = AddressValue{state: stateResolvedEmpty}
		return
	}
	*v = AddressValue{state: stateResolvedData, addrs: addrs}
}

// clearKind resets kind back to Absent, discarding whatever was previously
// resolved (§4.5 step 3). Every forward/reverse finalizer calls this first,
// then re-writes kind via setAddresses/setNames to record the terminal
// outcome — ResolvedData on success, ResolvedEmpty on error — so Resolved()
// reports true once the finalizer has run. The one exception is
// finalizeCancelled, which calls clearKind and deliberately stops there: a
// cancellation must not claim a resolution ever occurred, so kind is left
// Absent.
func (info *Info) clearKind(kind InfoKind) {
	if v, ok := info.getAddressValue(kind); ok {
		*v = AddressValue{}
		return
	}
	if kind == Names {
		info.Names = NameValue{}
	}
}

// setNames stores names under the Names kind.
func (info *Info) setNames(names []string) {
	if len(names) == 0 {
		info.Names = NameValue{state: stateResolvedEmpty}
		return
	}
	info.Names = NameValue{state: stateResolvedData, names: names}
}
