package hostresolver

import "errors"

// discoverSystemServers has no portable equivalent of /etc/resolv.conf on
// Windows. Ported from the teacher's root_windows.go TODO; callers that need
// an explicit server list on this platform should configure one with the
// WithServers driver option, or rely on Driver falling back to the platform
// resolver via net.DefaultResolver (see driver.go), which does not need this
// function to succeed.
//
// TODO: wire up GetAdaptersAddresses/DnsQueryConfig for native discovery;
// see https://github.com/miekg/dns/issues/334.
func discoverSystemServers() ([]string, error) {
	return nil, errors.New("hostresolver: system name server discovery is not implemented on windows")
}
