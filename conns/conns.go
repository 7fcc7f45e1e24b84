// Package conns periodically snapshots the system connection table and
// defines the ASN enrichment contract used when snapshots are folded into
// dashboard state. The table itself comes from the system netstat utility;
// this package only owns launching it and parsing its text output.
package conns

import (
	"net/netip"
	"strings"
)

// Connection is one row of a connection-table snapshot.
type Connection struct {
	Protocol   string
	LocalAddr  string
	RemoteAddr string
	State      string
}

// Snapshot is the full connection table at one point in time. Each snapshot
// fully replaces the previous one in the consumer.
type Snapshot []Connection

// RemoteIP extracts the remote host address from the netstat column, which
// joins host and port with the last separator ("1.2.3.4.443" on BSD,
// "1.2.3.4:443" elsewhere).
func (c Connection) RemoteIP() (netip.Addr, bool) {
	normalized := strings.ReplaceAll(c.RemoteAddr, ":", ".")
	idx := strings.LastIndex(normalized, ".")
	if idx <= 0 {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(normalized[:idx])
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// AsnInfo is the enrichment attached to a remote address.
type AsnInfo struct {
	Number uint32
	Org    string
	// Lat/Lon are an approximate location, valid only when Located is set.
	Lat, Lon float64
	Located  bool
}

// AsnResolver resolves a remote address to its ASN info. Implementations
// wrap a GeoIP/ASN database; resolution is expected to be looked up at most
// once per address per snapshot cycle, the consumer carries results forward
// between snapshots.
type AsnResolver interface {
	Lookup(addr netip.Addr) (AsnInfo, bool)
}
