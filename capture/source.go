package capture

import (
	"time"

	"github.com/netscope/netscope/netinfo"
)

// FrameSource is a blocking link-layer frame reader. Reads are bounded by the
// deadline so the capture goroutine can poll its stop flag between frames.
type FrameSource interface {
	// ReadFrame reads the next frame into buf and returns its length.
	// A deadline expiry comes back as os.ErrDeadlineExceeded.
	ReadFrame(buf []byte) (int, error)
	// SetReadDeadline bounds the next ReadFrame call.
	SetReadDeadline(t time.Time) error
	Close() error
}

const (
	// frameReadTimeout bounds each blocking read so a stopped engine exits
	// within one interval.
	frameReadTimeout = 1 * time.Second
	// minReadTimeout avoids issuing a poll that is doomed to expire
	// immediately.
	minReadTimeout = 100 * time.Millisecond

	snapLen = 65536
)

func readTimeoutFrom(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return frameReadTimeout
	}
	timeout := time.Until(deadline)
	if timeout < minReadTimeout {
		return minReadTimeout
	}
	return timeout
}

// openSource returns the platform's FrameSource for the given interface.
var openSource = func(ifi netinfo.Interface) (FrameSource, error) {
	return newPlatformSource(ifi)
}
