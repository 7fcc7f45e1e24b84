package capture

import "sync/atomic"

// Counters is the set of cumulative counters owned by a capture session.
// Every field is monotonically non-decreasing for the lifetime of one
// session. The capture goroutine is the only writer; consumers read
// snapshots and derive per-tick rates with saturating subtraction, so the
// relaxed-ordering guarantees of atomic loads are all that is needed.
type Counters struct {
	TotalPackets    atomic.Uint64
	InboundPackets  atomic.Uint64
	OutboundPackets atomic.Uint64

	WANInBytes  atomic.Uint64
	WANOutBytes atomic.Uint64
	LANInBytes  atomic.Uint64
	LANOutBytes atomic.Uint64

	TCPPackets atomic.Uint64
	UDPPackets atomic.Uint64
}

// CountersSnapshot is a point-in-time copy of all counters.
type CountersSnapshot struct {
	TotalPackets    uint64
	InboundPackets  uint64
	OutboundPackets uint64

	WANInBytes  uint64
	WANOutBytes uint64
	LANInBytes  uint64
	LANOutBytes uint64

	TCPPackets uint64
	UDPPackets uint64
}

// Snapshot copies the current counter values. Values from a single snapshot
// are not guaranteed to be mutually consistent; that is acceptable for
// approximate rate display.
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		TotalPackets:    c.TotalPackets.Load(),
		InboundPackets:  c.InboundPackets.Load(),
		OutboundPackets: c.OutboundPackets.Load(),
		WANInBytes:      c.WANInBytes.Load(),
		WANOutBytes:     c.WANOutBytes.Load(),
		LANInBytes:      c.LANInBytes.Load(),
		LANOutBytes:     c.LANOutBytes.Load(),
		TCPPackets:      c.TCPPackets.Load(),
		UDPPackets:      c.UDPPackets.Load(),
	}
}
