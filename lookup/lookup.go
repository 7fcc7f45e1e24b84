// Package lookup performs one-shot DNS resolution for the dashboard: a
// forward lookup of a user-entered name plus reverse lookups of the
// resulting addresses, delivered once on a single-slot channel.
package lookup

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/netscope/netscope/cache"
	"github.com/netscope/netscope/log"
)

const lookupTimeout = 5 * time.Second

// Function pointers are variables to ease testing.
var (
	lookupIPFn   = net.DefaultResolver.LookupIP
	lookupAddrFn = net.DefaultResolver.LookupAddr
)

// Result is the outcome of one lookup request. Names holds the reverse
// names of the first resolved address, trailing dots stripped.
type Result struct {
	Host  string
	Addrs []netip.Addr
	Names []string
	Err   error
}

// Forward resolves host to its addresses.
func Forward(host string) ([]netip.Addr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	ips, err := lookupIPFn(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}

	addrs := make([]netip.Addr, 0, len(ips))
	for _, ip := range ips {
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}

// Reverse returns the reverse DNS names for addr, cached so that hop and
// connection rows resolving the same address do not repeat the query.
func Reverse(addr netip.Addr) ([]string, error) {
	return cache.Get("rdns:"+addr.String(), func() ([]string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()

		rawNames, err := lookupAddrFn(ctx, addr.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get reverse dns: %w", err)
		}

		names := []string{}
		for _, name := range rawNames {
			names = append(names, strings.TrimRight(name, "."))
		}
		return names, nil
	})
}

// Run performs the forward lookup for host, reverse-resolves the first
// address, and delivers exactly one Result on the returned channel. The
// channel is buffered, the caller may collect it at any time.
func Run(host string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		res := Result{Host: host}
		res.Addrs, res.Err = Forward(host)
		if res.Err == nil && len(res.Addrs) > 0 {
			names, err := Reverse(res.Addrs[0])
			if err != nil {
				log.Debugf("reverse lookup of %s failed: %s", res.Addrs[0], err)
			} else {
				res.Names = names
			}
		}
		out <- res
	}()
	return out
}
