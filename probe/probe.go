// Package probe implements a hop-by-hop ICMP latency prober. It walks TTL
// values from 1 to the configured maximum, sending one echo request per hop
// over a fresh raw socket, and reports one Result per attempt to a single
// consumer. A companion Aggregator folds the result stream into per-hop
// running statistics.
package probe

import (
	"fmt"
	"net"
	"net/netip"
	"time"
)

const (
	// DefaultMaxHops is the default TTL sweep limit.
	DefaultMaxHops = 30
	// DefaultInterval is the default pause between full TTL sweeps.
	DefaultInterval = 1 * time.Second
	// DefaultReadTimeout bounds the wait for a reply to a single probe.
	DefaultReadTimeout = 1 * time.Second
	// probePace spaces successive TTL attempts so a burst of probes does not
	// overwhelm local or intermediate routers.
	probePace = 100 * time.Millisecond

	// resultChanSize is sized so a full sweep never blocks the worker even if
	// the consumer skips a few drain ticks.
	resultChanSize = 256
)

// Result is a single ICMP round-trip attempt. It is immutable after creation
// and consumed exactly once.
type Result struct {
	// TTL is the hop limit the probe was sent with, 1..MaxHops.
	TTL uint8
	// Responder is the address that answered. Invalid when no reply arrived.
	Responder netip.Addr
	// RTT is the measured round-trip time. Zero when no reply arrived.
	RTT time.Duration
	// Succeeded reports whether any reply arrived before the read timeout.
	Succeeded bool
	// IsTarget reports whether the responder is the traced destination.
	IsTarget bool
}

// Config holds the tunables for a trace session.
type Config struct {
	// Interval is the pause between full TTL sweeps.
	Interval time.Duration
	// MaxHops is the largest TTL attempted per sweep.
	MaxHops int
	// Cycles limits the number of sweeps; 0 means run until stopped.
	Cycles int
	// ReadTimeout bounds the blocking receive for each probe.
	ReadTimeout time.Duration
	// WantV6 selects an IPv6 address when the target resolves to both families.
	WantV6 bool
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxHops <= 0 {
		c.MaxHops = DefaultMaxHops
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
}

// DNSError wraps a target resolution failure so callers can classify it.
type DNSError struct {
	Host string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("failed to resolve host %q: %s", e.Host, e.Err)
}

func (e *DNSError) Unwrap() error {
	return e.Err
}

// ResolveTarget accepts a literal IP address or a hostname. Hostnames are
// resolved once; the first address of the wanted family wins.
func ResolveTarget(host string, wantV6 bool) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap(), nil
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return netip.Addr{}, &DNSError{Host: host, Err: err}
	}
	for _, ip := range ips {
		if wantV6 {
			if ip.To4() == nil {
				addr, _ := netip.AddrFromSlice(ip)
				return addr.Unmap(), nil
			}
		} else {
			if ip.To4() != nil {
				addr, _ := netip.AddrFromSlice(ip)
				return addr.Unmap(), nil
			}
		}
	}
	return netip.Addr{}, &DNSError{Host: host, Err: fmt.Errorf("no %s address", family(wantV6))}
}

func family(wantV6 bool) string {
	if wantV6 {
		return "IPv6"
	}
	return "IPv4"
}
