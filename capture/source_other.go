//go:build !linux

package capture

import (
	"errors"

	"github.com/netscope/netscope/netinfo"
)

// ErrUnsupportedPlatform is returned where link-layer capture is not
// implemented.
var ErrUnsupportedPlatform = errors.New("link-layer capture is not supported on this platform")

func newPlatformSource(_ netinfo.Interface) (FrameSource, error) {
	return nil, ErrUnsupportedPlatform
}
