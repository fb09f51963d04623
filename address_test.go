package hostresolver

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSockAddr_RoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		family AddressFamily
		ip     net.IP
	}{
		{"ipv4", FamilyIPv4, net.ParseIP("192.0.2.1").To4()},
		{"ipv6", FamilyIPv6, net.ParseIP("2001:db8::1").To16()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sa, ok := encodeSockAddr(tc.family, tc.ip)
			require.True(t, ok)

			ip, fam, err := DecodeSockAddr(sa)
			require.NoError(t, err)
			assert.Equal(t, tc.family, fam)
			assert.True(t, tc.ip.Equal(ip))
		})
	}
}

func TestDecodeSockAddr_BadLength(t *testing.T) {
	_, _, err := DecodeSockAddr([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestBuildAddressList_NewestFirst(t *testing.T) {
	older := buildAddressList(hostEntry{family: FamilyIPv4, rawAddrs: [][]byte{{192, 0, 2, 1}}}, nil)
	merged := buildAddressList(hostEntry{family: FamilyIPv4, rawAddrs: [][]byte{{192, 0, 2, 2}}}, older)

	require.Len(t, merged, 2)
	ip, _, err := DecodeSockAddr(merged[0].SockAddr)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.2", ip.String())
}

func TestBuildAddressList_DropsUnsupportedFamily(t *testing.T) {
	got := buildAddressList(hostEntry{family: FamilyUnknown, rawAddrs: [][]byte{{1}}}, nil)
	assert.Nil(t, got)
}

func TestArpaName(t *testing.T) {
	assert.Equal(t, "1.2.0.192.in-addr.arpa.", arpaName(net.ParseIP("192.0.2.1")))
}

func TestCanonicalNames_DedupesAndTrimsTrailingDot(t *testing.T) {
	addrs := []Address{
		{CanonicalName: "example.com."},
		{CanonicalName: "example.com."},
		{CanonicalName: "www.example.com."},
		{CanonicalName: ""},
	}
	assert.Equal(t, []string{"example.com", "www.example.com"}, canonicalNames(addrs))
}

func TestCloneList_Independent(t *testing.T) {
	orig := []Address{{Family: FamilyIPv4, SockAddr: []byte{1, 2, 3, 4}}}
	clone := CloneList(orig)
	clone[0].SockAddr[0] = 9
	assert.Equal(t, byte(1), orig[0].SockAddr[0])
}
