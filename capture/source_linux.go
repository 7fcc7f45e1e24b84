//go:build linux

package capture

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/netscope/netscope/netinfo"
)

// afpacketSource reads raw Ethernet frames from an AF_PACKET socket bound to
// a single interface. The socket is non-blocking; reads poll with a timeout
// derived from the deadline.
type afpacketSource struct {
	fd int

	mu       sync.Mutex
	deadline time.Time
}

var _ FrameSource = &afpacketSource{}

func newPlatformSource(ifi netinfo.Interface) (FrameSource, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create AF_PACKET socket: %w", err)
	}

	sll := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind capture socket to %s: %w", ifi.Name, err)
	}

	return &afpacketSource{fd: fd}, nil
}

func (s *afpacketSource) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	return nil
}

func (s *afpacketSource) ReadFrame(buf []byte) (int, error) {
	s.mu.Lock()
	deadline := s.deadline
	s.mu.Unlock()
	timeout := readTimeoutFrom(deadline)

	for {
		pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfds, int(timeout.Milliseconds()))
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("capture poll failed: %w", err)
		}
		if n == 0 {
			return 0, os.ErrDeadlineExceeded
		}
		break
	}

	for {
		n, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err == syscall.EINTR {
			continue
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			// Raced with another reader; treat like an expired poll.
			return 0, os.ErrDeadlineExceeded
		}
		if err != nil {
			return 0, fmt.Errorf("capture read failed: %w", err)
		}
		return n, nil
	}
}

func (s *afpacketSource) Close() error {
	return unix.Close(s.fd)
}

// htons converts to the big-endian representation AF_PACKET expects.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}
