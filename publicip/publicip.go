// Package publicip discovers the WAN-facing address of this host by asking
// a consensus of external IP services. The answer is fetched once per
// session in the background and cached, the dashboard shows a placeholder
// until delivery.
package publicip

import (
	"fmt"
	"net/netip"
	"time"

	externalip "github.com/glendc/go-external-ip"

	"github.com/netscope/netscope/cache"
	"github.com/netscope/netscope/log"
)

const cacheExpiration = 2 * time.Hour

// Result is the one-shot outcome of public IP discovery.
type Result struct {
	Addr netip.Addr
	Err  error
}

// fetchPublicIP is swappable for tests.
var fetchPublicIP = func(wantV6 bool) (netip.Addr, error) {
	consensus := externalip.DefaultConsensus(nil, nil)
	proto := uint(4)
	if wantV6 {
		proto = 6
	}
	if err := consensus.UseIPProtocol(proto); err != nil {
		return netip.Addr{}, fmt.Errorf("configuring ip protocol: %w", err)
	}

	ip, err := consensus.ExternalIP()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("querying external ip services: %w", err)
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, fmt.Errorf("invalid external ip %q", ip)
	}
	return addr.Unmap(), nil
}

// Get returns the cached public address, fetching it when absent.
func Get(wantV6 bool) (netip.Addr, error) {
	key := "public_ip:v4"
	if wantV6 {
		key = "public_ip:v6"
	}
	return cache.GetWithExpiration(key, func() (netip.Addr, error) {
		return fetchPublicIP(wantV6)
	}, cacheExpiration)
}

// Fetch starts discovery in the background and delivers exactly one Result
// on the returned channel. The channel is buffered, the caller may collect
// it whenever convenient.
func Fetch(wantV6 bool) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		addr, err := Get(wantV6)
		if err != nil {
			log.Debugf("public ip discovery failed: %s", err)
		}
		out <- Result{Addr: addr, Err: err}
	}()
	return out
}
