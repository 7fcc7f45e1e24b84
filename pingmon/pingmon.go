// Package pingmon runs a fixed-interval ICMP echo loop against a single
// reference host and streams per-cycle results. It tracks reachability of a
// known-good target independently of the hop-by-hop prober, so the dashboard
// can tell "the path changed" apart from "the network is down".
package pingmon

import (
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgkaleda/go-multiping"
	"github.com/drgkaleda/go-multiping/pingdata"

	"github.com/netscope/netscope/log"
	"github.com/netscope/netscope/probe"
)

const (
	// DefaultInterval is the pause between echo cycles.
	DefaultInterval = 1 * time.Second

	resultChanSize = 64
)

// Result is the outcome of one echo cycle.
type Result struct {
	Seq    uint64
	Target netip.Addr
	RTT    time.Duration
	Alive  bool
}

// pingFunc performs one echo cycle and reports the round-trip time.
type pingFunc func() (time.Duration, bool)

// Monitor owns the echo loop for one target.
type Monitor struct {
	interval time.Duration
	target   netip.Addr

	pingFn pingFunc

	stop     atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor returns a Monitor pinging every interval, using DefaultInterval
// when interval is zero or negative.
func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start resolves host, opens the ICMP sockets, and spawns the echo loop.
// Resolution and socket failures are reported here, before any goroutine
// starts. The returned channel is closed when the monitor stops.
func (m *Monitor) Start(host string, wantV6 bool) (<-chan Result, error) {
	target, err := probe.ResolveTarget(host, wantV6)
	if err != nil {
		return nil, err
	}
	m.target = target

	if m.pingFn == nil {
		fn, err := newMultipingFunc(target)
		if err != nil {
			return nil, fmt.Errorf("opening ping sockets: %w", err)
		}
		m.pingFn = fn
	}

	out := make(chan Result, resultChanSize)
	go m.run(out)
	return out, nil
}

// Stop terminates the echo loop. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.stop.Store(true)
		close(m.done)
	})
}

func (m *Monitor) run(out chan<- Result) {
	defer close(out)

	var seq uint64
	for !m.stop.Load() {
		rtt, alive := m.pingFn()
		seq++
		res := Result{Seq: seq, Target: m.target, RTT: rtt, Alive: alive}
		if !alive {
			log.Debugf("ping to %s seq %d lost", m.target, seq)
		}

		select {
		case out <- res:
		case <-m.done:
			return
		}

		select {
		case <-time.After(m.interval):
		case <-m.done:
			return
		}
	}
}

// newMultipingFunc builds the production pingFunc around a privileged
// multiping session. The session and its ping data are reused across cycles.
func newMultipingFunc(target netip.Addr) (pingFunc, error) {
	mp, err := multiping.New(true)
	if err != nil {
		return nil, err
	}
	data := pingdata.NewPingData()
	data.Add(target)

	return func() (time.Duration, bool) {
		mp.Ping(data)

		var rtt time.Duration
		var alive bool
		data.Iterate(func(ip netip.Addr, stats *pingdata.PingStats) {
			if ip == target && stats.Valid() {
				rtt = stats.Rtt()
				alive = true
			}
		})
		return rtt, alive
	}, nil
}
