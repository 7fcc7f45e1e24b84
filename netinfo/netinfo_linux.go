//go:build linux

package netinfo

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

var (
	linkByIndex = netlink.LinkByIndex
	addrList    = netlink.AddrList
)

// interfacePrefixes asks the kernel directly via netlink. This sees addresses
// in all families including ones net.Interface.Addrs misreports on hosts with
// policy routing (e.g. WireGuard setups).
func interfacePrefixes(ifi net.Interface) ([]netip.Prefix, error) {
	link, err := linkByIndex(ifi.Index)
	if err != nil {
		return nil, fmt.Errorf("netlink failed to fetch link %d: %w", ifi.Index, err)
	}

	addrs, err := addrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("netlink addr list failed for %s: %w", ifi.Name, err)
	}

	var prefixes []netip.Prefix
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		if p, ok := prefixFromIPNet(a.IPNet); ok {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes, nil
}
