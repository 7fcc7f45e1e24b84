package conns

import (
	"net/netip"

	"github.com/pkg/errors"

	"github.com/netscope/netscope/cache"
)

// ErrNoAsnRecord is returned through the cache callback when the underlying
// resolver has no record for an address, so the miss is not cached and a
// later database update can still answer.
var ErrNoAsnRecord = errors.New("no ASN record for address")

// CachedResolver wraps an AsnResolver with the shared expiring cache so a
// remote address is resolved at most once per cache window, no matter how
// many snapshots it appears in.
type CachedResolver struct {
	inner AsnResolver
}

// NewCachedResolver wraps inner with the cache.
func NewCachedResolver(inner AsnResolver) *CachedResolver {
	return &CachedResolver{inner: inner}
}

// Lookup implements AsnResolver.
func (r *CachedResolver) Lookup(addr netip.Addr) (AsnInfo, bool) {
	info, err := cache.Get("asn:"+addr.String(), func() (AsnInfo, error) {
		info, ok := r.inner.Lookup(addr)
		if !ok {
			return AsnInfo{}, ErrNoAsnRecord
		}
		return info, nil
	})
	if err != nil {
		return AsnInfo{}, false
	}
	return info, true
}
