package conns

import (
	"bufio"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/netscope/netscope/log"
)

const (
	// DefaultPollInterval is how often the connection table is snapshotted.
	DefaultPollInterval = 2 * time.Second

	snapshotChanSize = 16
)

// runNetstat is swappable for tests.
var runNetstat = func() ([]byte, error) {
	out, err := exec.Command("netstat", "-n", "-p", "tcp").Output()
	if err != nil {
		return nil, errors.Wrap(err, "running netstat")
	}
	return out, nil
}

// Poller periodically snapshots the connection table and publishes each
// snapshot to its output channel. Snapshots that find no consumer slot are
// dropped so a stalled reader cannot back-pressure the poll loop.
type Poller struct {
	interval time.Duration

	stop     atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller returns a Poller, using DefaultPollInterval when interval is
// zero or negative.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start spawns the poll loop and returns the snapshot channel. The channel
// is closed when the poller stops.
func (p *Poller) Start() <-chan Snapshot {
	out := make(chan Snapshot, snapshotChanSize)
	go p.run(out)
	return out
}

// Stop terminates the poll loop. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stop.Store(true)
		close(p.done)
	})
}

func (p *Poller) run(out chan<- Snapshot) {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for !p.stop.Load() {
		raw, err := runNetstat()
		if err != nil {
			log.Debugf("connection table poll failed: %s", err)
		} else {
			select {
			case out <- parseNetstat(raw):
			case <-p.done:
				return
			default:
				// consumer behind, drop this snapshot
			}
		}

		select {
		case <-ticker.C:
		case <-p.done:
			return
		}
	}
}

// parseNetstat extracts connection rows from netstat output. The first two
// lines are headers; rows with fewer than five columns are skipped, and the
// state column defaults to UNKNOWN when absent (UDP rows).
func parseNetstat(raw []byte) Snapshot {
	var snap Snapshot
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	line := 0
	for scanner.Scan() {
		line++
		if line <= 2 {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		state := "UNKNOWN"
		if len(fields) >= 6 {
			state = fields[5]
		}
		snap = append(snap, Connection{
			Protocol:   fields[0],
			LocalAddr:  fields[3],
			RemoteAddr: fields[4],
			State:      state,
		})
	}
	return snap
}
