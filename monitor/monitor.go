// Package monitor folds the streams produced by the probe, capture,
// connection, ping, and lookup workers into a single bounded dashboard
// state. A fixed-rate tick drains every channel without blocking, so a
// stalled or finished producer can never freeze the state refresh.
package monitor

import (
	"context"
	"encoding/base64"
	"math"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netscope/netscope/capture"
	"github.com/netscope/netscope/conns"
	"github.com/netscope/netscope/lookup"
	"github.com/netscope/netscope/pingmon"
	"github.com/netscope/netscope/probe"
	"github.com/netscope/netscope/publicip"
)

const (
	// TickInterval is the state refresh period.
	TickInterval = 50 * time.Millisecond

	packetHistorySize = 1000
	chartHistorySize  = 100
	pingLogSize       = 50

	rotationStep = 0.05
)

// encode UUID with base64 for a shorter session id
func newBase64UUID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Config wires the producer channels into a Monitor. Any nil channel is
// simply never drained.
type Config struct {
	Probe    <-chan probe.Result
	Capture  <-chan capture.Summary
	Counters *capture.Counters
	Conns    <-chan conns.Snapshot
	Ping     <-chan pingmon.Result
	Lookup   <-chan lookup.Result
	PublicIP <-chan publicip.Result
	Resolver conns.AsnResolver
}

// ConnectionInfo is a connection row with its carried-forward enrichment.
type ConnectionInfo struct {
	conns.Connection
	Asn *conns.AsnInfo
}

// Snapshot is a point-in-time copy of the dashboard state. All slices are
// freshly allocated, readers may hold them indefinitely.
type Snapshot struct {
	SessionID string
	StartedAt time.Time

	Hops     []probe.HopStats
	Packets  []capture.Summary
	Counters capture.CountersSnapshot

	PingRTT    []float64
	PingJitter []float64
	PingLog    []pingmon.Result

	TotalPacketRate []uint64
	RxPacketRate    []uint64
	TxPacketRate    []uint64
	WanRxMbps       []float64
	WanTxMbps       []float64
	LanRxMbps       []float64
	LanTxMbps       []float64

	ConnCounts  []int
	Connections []ConnectionInfo

	PublicIP netip.Addr
	DNS      *lookup.Result

	Rotation float64

	ProbeDone   bool
	CaptureDone bool
}

// Monitor owns the aggregated state. Tick mutates it, Snapshot copies it,
// both are safe for concurrent use.
type Monitor struct {
	mu sync.Mutex

	sessionID string
	startedAt time.Time

	cfg Config

	hops    *probe.Aggregator
	packets *Ring[capture.Summary]

	pingRTT    *Ring[float64]
	pingJitter *Ring[float64]
	pingLog    *Ring[pingmon.Result]
	prevRTT    float64

	totalPacketRate *Ring[uint64]
	rxPacketRate    *Ring[uint64]
	txPacketRate    *Ring[uint64]
	wanRxMbps       *Ring[float64]
	wanTxMbps       *Ring[float64]
	lanRxMbps       *Ring[float64]
	lanTxMbps       *Ring[float64]

	lastCounters capture.CountersSnapshot
	lastSample   time.Time

	connCounts  *Ring[int]
	connections []ConnectionInfo
	asnByAddr   map[netip.Addr]conns.AsnInfo

	publicIP netip.Addr
	dns      *lookup.Result

	rotation float64

	probeDone   bool
	captureDone bool
}

// New returns a Monitor for the given producers.
func New(cfg Config) *Monitor {
	return &Monitor{
		sessionID:       newBase64UUID(),
		startedAt:       time.Now(),
		cfg:             cfg,
		hops:            probe.NewAggregator(),
		packets:         NewRing[capture.Summary](packetHistorySize),
		pingRTT:         NewRing[float64](chartHistorySize),
		pingJitter:      NewRing[float64](chartHistorySize),
		pingLog:         NewRing[pingmon.Result](pingLogSize),
		totalPacketRate: NewRing[uint64](chartHistorySize),
		rxPacketRate:    NewRing[uint64](chartHistorySize),
		txPacketRate:    NewRing[uint64](chartHistorySize),
		wanRxMbps:       NewRing[float64](chartHistorySize),
		wanTxMbps:       NewRing[float64](chartHistorySize),
		lanRxMbps:       NewRing[float64](chartHistorySize),
		lanTxMbps:       NewRing[float64](chartHistorySize),
		connCounts:      NewRing[int](chartHistorySize),
		asnByAddr:       make(map[netip.Addr]conns.AsnInfo),
	}
}

// SessionID returns the per-run identifier stamped on exported state.
func (m *Monitor) SessionID() string {
	return m.sessionID
}

// Run ticks the monitor until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Tick drains every producer channel without blocking and refreshes the
// derived state. A closed channel is observed once, its producer is marked
// finished and the channel is never selected again.
func (m *Monitor) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drainProbe()
	m.drainCapture()
	m.drainConns()
	m.drainPing()
	m.collectOneShots()
	m.sampleRates(now)

	m.rotation += rotationStep
	if m.rotation >= 2*math.Pi {
		m.rotation -= 2 * math.Pi
	}
}

func (m *Monitor) drainProbe() {
	for m.cfg.Probe != nil {
		select {
		case res, ok := <-m.cfg.Probe:
			if !ok {
				m.cfg.Probe = nil
				m.probeDone = true
				return
			}
			m.hops.Record(res)
		default:
			return
		}
	}
}

func (m *Monitor) drainCapture() {
	for m.cfg.Capture != nil {
		select {
		case sum, ok := <-m.cfg.Capture:
			if !ok {
				m.cfg.Capture = nil
				m.captureDone = true
				return
			}
			m.packets.Push(sum)
		default:
			return
		}
	}
}

func (m *Monitor) drainConns() {
	var latest conns.Snapshot
	var have bool
	for m.cfg.Conns != nil {
		select {
		case snap, ok := <-m.cfg.Conns:
			if !ok {
				m.cfg.Conns = nil
			} else {
				latest, have = snap, true
				continue
			}
		default:
		}
		break
	}
	if !have {
		return
	}

	// The enrichment map is rebuilt from the addresses of this snapshot
	// only, so departed remotes are forgotten and a returning address is
	// resolved afresh.
	next := make(map[netip.Addr]conns.AsnInfo, len(latest))
	remotes := make(map[netip.Addr]struct{})
	rows := make([]ConnectionInfo, 0, len(latest))
	for _, c := range latest {
		row := ConnectionInfo{Connection: c}
		if addr, ok := c.RemoteIP(); ok {
			if info, known := m.asnByAddr[addr]; known {
				next[addr] = info
				row.Asn = &info
			} else if info, known := next[addr]; known {
				row.Asn = &info
			} else if m.cfg.Resolver != nil {
				if info, found := m.cfg.Resolver.Lookup(addr); found {
					next[addr] = info
					row.Asn = &info
				}
			}
			if !addr.IsLoopback() && !addr.IsUnspecified() {
				remotes[addr] = struct{}{}
			}
		}
		rows = append(rows, row)
	}
	m.asnByAddr = next
	m.connections = rows
	m.connCounts.Push(len(remotes))
}

func (m *Monitor) drainPing() {
	for m.cfg.Ping != nil {
		select {
		case res, ok := <-m.cfg.Ping:
			if !ok {
				m.cfg.Ping = nil
				return
			}
			m.pingLog.Push(res)
			if res.Alive {
				rtt := float64(res.RTT.Microseconds()) / 1000.0
				m.pingRTT.Push(rtt)
				// the first sample jitters against zero
				m.pingJitter.Push(math.Abs(rtt - m.prevRTT))
				m.prevRTT = rtt
			}
		default:
			return
		}
	}
}

// collectOneShots picks up the single delivery of the lookup and public IP
// workers, then forgets their channels.
func (m *Monitor) collectOneShots() {
	if m.cfg.Lookup != nil {
		select {
		case res, ok := <-m.cfg.Lookup:
			if ok {
				m.dns = &res
			}
			m.cfg.Lookup = nil
		default:
		}
	}
	if m.cfg.PublicIP != nil {
		select {
		case res, ok := <-m.cfg.PublicIP:
			if ok && res.Err == nil {
				m.publicIP = res.Addr
			}
			m.cfg.PublicIP = nil
		default:
		}
	}
}

// sampleRates derives the traffic series from the cumulative counters.
// Packet series hold the raw per-tick delta, bandwidth series hold Mbps
// over the elapsed interval, split by WAN and LAN attribution. Counter
// regressions clamp to zero instead of producing garbage spikes.
func (m *Monitor) sampleRates(now time.Time) {
	if m.cfg.Counters == nil {
		return
	}
	snap := m.cfg.Counters.Snapshot()
	if m.lastSample.IsZero() {
		m.lastCounters = snap
		m.lastSample = now
		return
	}
	elapsed := now.Sub(m.lastSample).Seconds()
	if elapsed <= 0 {
		return
	}

	m.totalPacketRate.Push(saturatingSub(snap.TotalPackets, m.lastCounters.TotalPackets))
	m.rxPacketRate.Push(saturatingSub(snap.InboundPackets, m.lastCounters.InboundPackets))
	m.txPacketRate.Push(saturatingSub(snap.OutboundPackets, m.lastCounters.OutboundPackets))

	mbps := func(cur, prev uint64) float64 {
		return float64(saturatingSub(cur, prev)) * 8 / 1e6 / elapsed
	}
	m.wanRxMbps.Push(mbps(snap.WANInBytes, m.lastCounters.WANInBytes))
	m.wanTxMbps.Push(mbps(snap.WANOutBytes, m.lastCounters.WANOutBytes))
	m.lanRxMbps.Push(mbps(snap.LANInBytes, m.lastCounters.LANInBytes))
	m.lanTxMbps.Push(mbps(snap.LANOutBytes, m.lastCounters.LANOutBytes))

	m.lastCounters = snap
	m.lastSample = now
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	hopPtrs := m.hops.Hops()
	hops := make([]probe.HopStats, len(hopPtrs))
	for i, h := range hopPtrs {
		hops[i] = *h
		hops[i].History = append([]int64(nil), h.History...)
	}

	snap := Snapshot{
		SessionID:       m.sessionID,
		StartedAt:       m.startedAt,
		Hops:            hops,
		Packets:         m.packets.Values(),
		PingRTT:         m.pingRTT.Values(),
		PingJitter:      m.pingJitter.Values(),
		PingLog:         m.pingLog.Values(),
		TotalPacketRate: m.totalPacketRate.Values(),
		RxPacketRate:    m.rxPacketRate.Values(),
		TxPacketRate:    m.txPacketRate.Values(),
		WanRxMbps:       m.wanRxMbps.Values(),
		WanTxMbps:       m.wanTxMbps.Values(),
		LanRxMbps:       m.lanRxMbps.Values(),
		LanTxMbps:       m.lanTxMbps.Values(),
		ConnCounts:      m.connCounts.Values(),
		Connections:     append([]ConnectionInfo(nil), m.connections...),
		PublicIP:        m.publicIP,
		DNS:             m.dns,
		Rotation:        m.rotation,
		ProbeDone:       m.probeDone,
		CaptureDone:     m.captureDone,
	}
	if m.cfg.Counters != nil {
		snap.Counters = m.cfg.Counters.Snapshot()
	}
	return snap
}
