// Package capture implements a live link-layer packet capture and
// classification pipeline. A single goroutine owns the capture socket, folds
// every frame into shared atomic counters, and streams filtered
// human-readable summaries to one consumer.
package capture

import (
	"errors"
	"net/netip"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netscope/netscope/log"
	"github.com/netscope/netscope/netinfo"
)

// summaryChanSize keeps a busy interface from blocking the capture loop
// between consumer drain ticks.
const summaryChanSize = 2048

// Summary is one classified captured frame, immutable once produced.
type Summary struct {
	Timestamp   time.Time
	Source      string
	Destination string
	Protocol    string
	Length      int
	Info        string
}

// Protocol labels used in summaries. ProtocolError marks the synthetic
// summary emitted when the capture channel cannot be opened.
const (
	ProtocolTCP     = "TCP"
	ProtocolUDP     = "UDP"
	ProtocolICMP    = "ICMP"
	ProtocolICMPv6  = "ICMPv6"
	ProtocolIPv4    = "IPv4"
	ProtocolIPv6    = "IPv6"
	ProtocolUnknown = "unknown"
	ProtocolError   = "ERR"
)

// Config parameterizes a capture session.
type Config struct {
	// Interface is the name of the interface to capture on.
	Interface string
	// Filter is a case-insensitive substring applied to emitted summaries.
	// Counters are updated for every frame regardless of the filter.
	Filter string
}

// Engine captures frames on one interface until stopped.
type Engine struct {
	cfg      Config
	counters Counters

	stop     atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	open func(netinfo.Interface) (FrameSource, error)
}

// NewEngine returns an Engine for the given config.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:  cfg,
		open: openSource,
	}
}

// lookupInterface is a variable to ease testing.
var lookupInterface = netinfo.ByName

// Counters exposes the session's cumulative counters for polling.
func (e *Engine) Counters() *Counters {
	return &e.counters
}

// Start validates the interface name synchronously, then spawns the capture
// goroutine. An unknown interface is a startup error, never a dead worker.
// Failures opening the capture channel itself (typically missing privileges)
// are reported as a single synthetic error summary on the returned channel.
//
// The channel is closed by the worker when it exits.
func (e *Engine) Start() (<-chan Summary, error) {
	ifi, err := lookupInterface(e.cfg.Interface)
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(strings.TrimSpace(e.cfg.Filter))
	out := make(chan Summary, summaryChanSize)
	e.stop.Store(false)
	e.done = make(chan struct{})
	e.stopOnce = sync.Once{}

	log.Debugf("starting capture on %s (filter=%q)", ifi.Name, filter)
	go e.run(ifi, filter, out)
	return out, nil
}

// Stop requests a cooperative shutdown. The capture goroutine polls the flag
// once per frame; an in-flight blocking read is bounded by the frame read
// timeout.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.stopOnce.Do(func() {
		if e.done != nil {
			close(e.done)
		}
	})
}

func (e *Engine) run(ifi netinfo.Interface, filter string, out chan<- Summary) {
	defer close(out)

	src, err := e.open(ifi)
	if err != nil {
		// One diagnostic line in the packet log instead of a fatal abort.
		e.emit(out, Summary{
			Timestamp:   time.Now(),
			Source:      "-",
			Destination: "-",
			Protocol:    ProtocolError,
			Info:        "failed to open capture channel: " + err.Error(),
		})
		return
	}
	defer src.Close()

	parser := NewFrameParser()
	buf := make([]byte, snapLen)
	for !e.stop.Load() {
		if err := src.SetReadDeadline(time.Now().Add(frameReadTimeout)); err != nil {
			log.Tracef("capture set deadline failed: %s", err)
		}
		n, err := src.ReadFrame(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			// Transient read errors show up as gaps in captured traffic.
			log.Tracef("capture read error: %s", err)
			continue
		}
		e.processFrame(ifi, parser, buf[:n], filter, out)
	}
}

// processFrame updates counters for every frame and emits a summary for IP
// frames passing the filter.
func (e *Engine) processFrame(ifi netinfo.Interface, parser *FrameParser, frame []byte, filter string, out chan<- Summary) {
	e.counters.TotalPackets.Add(1)
	length := uint64(len(frame))

	if err := parser.Decode(frame); err != nil {
		// Unparseable frame: counted above, classified as outbound WAN below.
		log.Tracef("capture decode error: %s", err)
	}

	inbound, lan := e.classify(ifi, parser)

	if inbound {
		e.counters.InboundPackets.Add(1)
		if lan {
			e.counters.LANInBytes.Add(length)
		} else {
			e.counters.WANInBytes.Add(length)
		}
	} else {
		e.counters.OutboundPackets.Add(1)
		if lan {
			e.counters.LANOutBytes.Add(length)
		} else {
			e.counters.WANOutBytes.Add(length)
		}
	}

	switch parser.TransportLayer() {
	case layersTCP:
		e.counters.TCPPackets.Add(1)
	case layersUDP:
		e.counters.UDPPackets.Add(1)
	}

	summary, ok := buildSummary(parser, len(frame))
	if !ok {
		return
	}
	if !matchesFilter(summary, filter) {
		return
	}
	e.emit(out, summary)
}

// classify determines direction and LAN/WAN placement for the frame held in
// the parser. The non-local endpoint of the flow decides LAN vs WAN: it is
// LAN when it falls inside any prefix bound to the capturing interface.
// IPv6 gets direction detection only and defaults to WAN.
func (e *Engine) classify(ifi netinfo.Interface, parser *FrameParser) (inbound, lan bool) {
	src, dst, ok := parser.AddrPair()
	if !ok {
		return false, false
	}

	if parser.IsIPv6() {
		return ifi.HasAddr(dst), false
	}

	switch {
	case ifi.HasAddr(dst):
		return true, ifi.Contains(src)
	case ifi.HasAddr(src):
		return false, ifi.Contains(dst)
	default:
		// Indeterminate direction: counted as outbound WAN.
		return false, false
	}
}

// matchesFilter reports whether the summary survives the case-folded
// substring filter. An empty filter matches everything.
func matchesFilter(s Summary, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Source), filter) ||
		strings.Contains(strings.ToLower(s.Destination), filter) ||
		strings.Contains(strings.ToLower(s.Protocol), filter) ||
		strings.Contains(strings.ToLower(s.Info), filter)
}

func (e *Engine) emit(out chan<- Summary, s Summary) {
	select {
	case out <- s:
	case <-e.done:
	}
}

func toAddrString(a netip.Addr) string {
	if !a.IsValid() {
		return "-"
	}
	return a.String()
}
