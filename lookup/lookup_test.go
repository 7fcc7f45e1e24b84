package lookup

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netscope/netscope/cache"
)

func TestForward(t *testing.T) {
	origLookup := lookupIPFn
	t.Cleanup(func() { lookupIPFn = origLookup })
	lookupIPFn = func(_ context.Context, _, host string) ([]net.IP, error) {
		assert.Equal(t, "example.com", host)
		return []net.IP{
			net.ParseIP("93.184.216.34"),
			net.ParseIP("2606:2800:220:1:248:1893:25c8:1946"),
		}, nil
	}

	addrs, err := Forward("example.com")
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "93.184.216.34", addrs[0].String())
	assert.True(t, addrs[1].Is6())
}

func TestForwardError(t *testing.T) {
	origLookup := lookupIPFn
	t.Cleanup(func() { lookupIPFn = origLookup })
	lookupIPFn = func(context.Context, string, string) ([]net.IP, error) {
		return nil, errors.New("no such host")
	}

	_, err := Forward("nope.invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.invalid")
}

func TestReverseStripsTrailingDotAndCaches(t *testing.T) {
	cache.Flush()
	origLookup := lookupAddrFn
	t.Cleanup(func() { lookupAddrFn = origLookup })

	var calls int
	lookupAddrFn = func(_ context.Context, addr string) ([]string, error) {
		calls++
		assert.Equal(t, "8.8.8.8", addr)
		return []string{"dns.google."}, nil
	}

	addr := netip.MustParseAddr("8.8.8.8")
	for i := 0; i < 3; i++ {
		names, err := Reverse(addr)
		require.NoError(t, err)
		assert.Equal(t, []string{"dns.google"}, names)
	}
	assert.Equal(t, 1, calls, "repeat lookups should hit the cache")
}

func TestReverseDoesNotCacheErrors(t *testing.T) {
	cache.Flush()
	origLookup := lookupAddrFn
	t.Cleanup(func() { lookupAddrFn = origLookup })

	var calls int
	lookupAddrFn = func(context.Context, string) ([]string, error) {
		calls++
		return nil, errors.New("nxdomain")
	}

	addr := netip.MustParseAddr("192.0.2.1")
	for i := 0; i < 2; i++ {
		_, err := Reverse(addr)
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestRunDeliversOneResult(t *testing.T) {
	cache.Flush()
	origIP, origAddr := lookupIPFn, lookupAddrFn
	t.Cleanup(func() {
		lookupIPFn, lookupAddrFn = origIP, origAddr
	})
	lookupIPFn = func(context.Context, string, string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("1.1.1.1")}, nil
	}
	lookupAddrFn = func(context.Context, string) ([]string, error) {
		return []string{"one.one.one.one."}, nil
	}

	select {
	case res := <-Run("one.one.one.one"):
		require.NoError(t, res.Err)
		assert.Equal(t, "one.one.one.one", res.Host)
		require.Len(t, res.Addrs, 1)
		assert.Equal(t, "1.1.1.1", res.Addrs[0].String())
		assert.Equal(t, []string{"one.one.one.one"}, res.Names)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestRunReportsForwardError(t *testing.T) {
	cache.Flush()
	origIP := lookupIPFn
	t.Cleanup(func() { lookupIPFn = origIP })
	lookupIPFn = func(context.Context, string, string) ([]net.IP, error) {
		return nil, errors.New("no such host")
	}

	res := <-Run("nope.invalid")
	require.Error(t, res.Err)
	assert.Empty(t, res.Addrs)
}
