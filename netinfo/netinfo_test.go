package netinfo

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContains(t *testing.T) {
	ifi := Interface{
		Name: "eth0",
		Prefixes: []netip.Prefix{
			netip.MustParsePrefix("192.168.1.42/24"),
			netip.MustParsePrefix("10.0.0.5/8"),
		},
	}

	assert.True(t, ifi.Contains(netip.MustParseAddr("192.168.1.99")))
	assert.True(t, ifi.Contains(netip.MustParseAddr("10.200.0.1")))
	assert.False(t, ifi.Contains(netip.MustParseAddr("8.8.8.8")))
	assert.False(t, ifi.Contains(netip.MustParseAddr("192.168.2.1")))
}

func TestHasAddr(t *testing.T) {
	ifi := Interface{
		Prefixes: []netip.Prefix{netip.MustParsePrefix("192.168.1.42/24")},
	}

	assert.True(t, ifi.HasAddr(netip.MustParseAddr("192.168.1.42")))
	// Mapped form of the same address matches too.
	assert.True(t, ifi.HasAddr(netip.MustParseAddr("::ffff:192.168.1.42")))
	// Same subnet but not the bound address.
	assert.False(t, ifi.HasAddr(netip.MustParseAddr("192.168.1.43")))
}

func TestPrefixFromIPNet(t *testing.T) {
	_, ipNet, err := net.ParseCIDR("172.16.4.0/22")
	require.NoError(t, err)

	p, ok := prefixFromIPNet(ipNet)
	require.True(t, ok)
	assert.Equal(t, 22, p.Bits())
	assert.Equal(t, netip.MustParseAddr("172.16.4.0"), p.Addr())
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("definitely-no-such-iface0")
	require.Error(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestInterfacesEnumerates(t *testing.T) {
	ifaces, err := Interfaces()
	require.NoError(t, err)
	// Every host has at least a loopback.
	require.NotEmpty(t, ifaces)

	for _, ifi := range ifaces {
		assert.NotEmpty(t, ifi.Name)
	}
}
