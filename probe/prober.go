package probe

import (
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netscope/netscope/log"
)

// probeFunc issues one probe at the given TTL and reports the outcome.
// It is a field so tests can run the prober without raw sockets.
type probeFunc func(target netip.Addr, ttl uint8, seq uint16, timeout time.Duration) Result

// Prober runs trace cycles against a single target until stopped or the
// configured cycle limit is reached.
type Prober struct {
	cfg Config

	stop     atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	probeFn   probeFunc
	preflight func(netip.Addr) error
}

// NewProber returns a Prober for the given config.
func NewProber(cfg Config) *Prober {
	cfg.setDefaults()
	return &Prober{
		cfg:       cfg,
		probeFn:   sendProbe,
		preflight: checkRawSocket,
	}
}

// Start resolves the target, verifies a raw ICMP socket can be opened, and
// spawns the probe worker. Both checks happen synchronously so a session
// whose resources cannot exist is never started; failures come back as a
// classifiable error instead of a silently dead channel.
//
// The returned channel is closed by the worker when it exits.
func (p *Prober) Start(target string) (<-chan Result, error) {
	addr, err := ResolveTarget(target, p.cfg.WantV6)
	if err != nil {
		return nil, err
	}

	if err := p.preflight(addr); err != nil {
		return nil, fmt.Errorf("probe socket preflight failed: %w", err)
	}

	out := make(chan Result, resultChanSize)
	p.stop.Store(false)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}

	log.Debugf("starting trace to %s (max hops %d)", addr, p.cfg.MaxHops)
	go p.run(addr, out)
	return out, nil
}

// Stop requests a cooperative shutdown. The worker exits at the next loop
// boundary; an in-flight blocking receive is bounded by the read timeout, so
// worst-case latency is one timeout interval.
func (p *Prober) Stop() {
	p.stop.Store(true)
	p.stopOnce.Do(func() {
		if p.done != nil {
			close(p.done)
		}
	})
}

func (p *Prober) run(target netip.Addr, out chan<- Result) {
	defer close(out)

	var seq uint16
	cycles := 0
	for !p.stop.Load() {
		if p.cfg.Cycles > 0 && cycles >= p.cfg.Cycles {
			return
		}
		cycles++

		for ttl := 1; ttl <= p.cfg.MaxHops; ttl++ {
			if p.stop.Load() {
				return
			}
			seq++
			res := p.probeFn(target, uint8(ttl), seq, p.cfg.ReadTimeout)

			select {
			case out <- res:
			case <-p.done:
				return
			}

			if res.IsTarget {
				break
			}
			time.Sleep(probePace)
		}

		select {
		case <-time.After(p.cfg.Interval):
		case <-p.done:
			return
		}
	}
}
