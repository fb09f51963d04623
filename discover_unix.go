//go:build !windows
// +build !windows

package hostresolver

import (
	"fmt"

	"github.com/miekg/dns"
)

// discoverSystemServers reads /etc/resolv.conf to find the name servers the
// operating system has been configured to use. The default Driver calls
// this once, lazily, the first time it needs to issue a query and no
// explicit server list has been configured (§6: the driver is the concrete
// DNS transport, external to the engine's hard core, but this engine still
// ships a usable default). Ported from the teacher's
// discoverRootServers (root_nix.go), trimmed to the single
// dns.ClientConfigFromFile call it actually needed; the root-server
// discovery exchange that followed belonged to the teacher's iterative
// recursive resolver and has no equivalent here, since this engine's driver
// contract (§6) expects an opaque resolver channel that performs whatever
// recursion it needs internally.
func discoverSystemServers() ([]string, error) {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("hostresolver: cannot determine system name servers: %w", err)
	}
	if len(config.Servers) == 0 {
		return nil, fmt.Errorf("hostresolver: /etc/resolv.conf lists no name servers")
	}

	port := config.Port
	if port == "" {
		port = "53"
	}

	addrs := make([]string, len(config.Servers))
	for i, srv := range config.Servers {
		addrs[i] = srv + ":" + port
	}
	return addrs, nil
}
