package probe

// hopHistorySize bounds the per-hop RTT history used for sparkline charts.
const hopHistorySize = 100

// hopBestSentinel is the initial "best" RTT in milliseconds, treated as
// infinity until the first reply lands.
const hopBestSentinel = 9999

// hostPlaceholder is shown for hops that have never answered.
const hostPlaceholder = "???"

// HopStats is the running per-TTL statistics for one hop of a trace.
// All latency fields are integer milliseconds.
type HopStats struct {
	TTL      uint8
	Host     string
	Sent     uint64
	Received uint64
	Last     int64
	Best     int64
	Worst    int64
	Avg      int64
	Loss     float64
	Jitter   int64
	History  []int64
}

func newHopStats(ttl uint8) *HopStats {
	return &HopStats{
		TTL:  ttl,
		Host: hostPlaceholder,
		Best: hopBestSentinel,
	}
}

// Aggregator folds a stream of probe Results into per-hop statistics.
// It is a pure fold: no I/O, no blocking, owned by a single goroutine.
type Aggregator struct {
	hops []*HopStats
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record folds one result into the stats entry at index ttl-1, growing the
// backing slice when a never-seen TTL arrives.
func (a *Aggregator) Record(res Result) {
	if res.TTL == 0 {
		return
	}
	for len(a.hops) < int(res.TTL) {
		a.hops = append(a.hops, newHopStats(uint8(len(a.hops)+1)))
	}

	hop := a.hops[res.TTL-1]
	hop.Sent++
	if res.Succeeded {
		hop.Received++
		if res.Responder.IsValid() {
			hop.Host = res.Responder.String()
		}
		rtt := res.RTT.Milliseconds()

		// Jitter is a running average of absolute successive deltas; the
		// first sample's delta is measured against zero.
		delta := rtt - hop.Last
		if delta < 0 {
			delta = -delta
		}
		if hop.Received > 1 {
			hop.Jitter = ((hop.Jitter * int64(hop.Received-1)) + delta) / int64(hop.Received)
		} else {
			hop.Jitter = delta
		}

		hop.Last = rtt
		if rtt < hop.Best {
			hop.Best = rtt
		}
		if rtt > hop.Worst {
			hop.Worst = rtt
		}
		// Integer truncating division, same as the historical implementation.
		hop.Avg = ((hop.Avg * int64(hop.Received-1)) + rtt) / int64(hop.Received)

		hop.History = append(hop.History, rtt)
		if len(hop.History) > hopHistorySize {
			hop.History = hop.History[1:]
		}
	}
	hop.Loss = float64(hop.Sent-hop.Received) / float64(hop.Sent) * 100.0
}

// Hops returns the per-hop stats discovered so far, indexed by ttl-1.
// The slice never shrinks within a trace session.
func (a *Aggregator) Hops() []*HopStats {
	return a.hops
}

// Reset clears all hop state; called when a new trace is started.
func (a *Aggregator) Reset() {
	a.hops = nil
}
