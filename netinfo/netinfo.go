// Package netinfo enumerates local network interfaces with their bound
// address/prefix pairs. The probe and capture engines are parameterized by
// interface name only; everything they need to know about the interface is
// resolved here, synchronously, before any worker is spawned.
package netinfo

import (
	"fmt"
	"net"
	"net/netip"
)

// Interface is a local network interface and its bound prefixes.
type Interface struct {
	Name     string
	Index    int
	Up       bool
	Prefixes []netip.Prefix
}

// NotFoundError reports a lookup of an interface name that does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("interface %q not found", e.Name)
}

// Interfaces returns all local interfaces with their bound prefixes.
func Interfaces() ([]Interface, error) {
	raw, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate interfaces: %w", err)
	}

	ifaces := make([]Interface, 0, len(raw))
	for _, ifi := range raw {
		prefixes, err := interfacePrefixes(ifi)
		if err != nil {
			// An interface we cannot inspect is skipped, not fatal.
			continue
		}
		ifaces = append(ifaces, Interface{
			Name:     ifi.Name,
			Index:    ifi.Index,
			Up:       ifi.Flags&net.FlagUp != 0,
			Prefixes: prefixes,
		})
	}
	return ifaces, nil
}

// ByName resolves a single interface by name. Unknown names come back as a
// NotFoundError so callers can refuse to start a capture session instead of
// aborting a worker mid-flight.
func ByName(name string) (Interface, error) {
	ifaces, err := Interfaces()
	if err != nil {
		return Interface{}, err
	}
	for _, ifi := range ifaces {
		if ifi.Name == name {
			return ifi, nil
		}
	}
	return Interface{}, &NotFoundError{Name: name}
}

// Contains reports whether addr falls inside any of the interface's bound
// prefixes, i.e. whether the address is on one of the interface's subnets.
func (i Interface) Contains(addr netip.Addr) bool {
	for _, p := range i.Prefixes {
		if p.Masked().Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// HasAddr reports whether addr is one of the interface's own addresses.
func (i Interface) HasAddr(addr netip.Addr) bool {
	u := addr.Unmap()
	for _, p := range i.Prefixes {
		if p.Addr().Unmap() == u {
			return true
		}
	}
	return false
}

func prefixFromIPNet(ipNet *net.IPNet) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(ipNet.IP)
	if !ok {
		return netip.Prefix{}, false
	}
	ones, _ := ipNet.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), ones), true
}
