//go:build !linux

package netinfo

import (
	"net"
	"net/netip"
)

func interfacePrefixes(ifi net.Interface) ([]netip.Prefix, error) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}

	var prefixes []netip.Prefix
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if p, ok := prefixFromIPNet(ipNet); ok {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes, nil
}
