// Package cache is a typed read-through wrapper around an in-memory expiring
// store. It keeps repeated ASN and reverse-DNS lookups from hammering
// external resolvers while the dashboard refreshes every couple of seconds.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpire = 10 * time.Minute
	purgeInterval = 1 * time.Minute
)

var store = gocache.New(defaultExpire, purgeInterval)

// Get returns the cached value for key, or calls cb to produce one. Values
// produced without error are cached with the default expiration. Errors are
// never cached.
func Get[T any](key string, cb func() (T, error)) (T, error) {
	return GetWithExpiration(key, cb, defaultExpire)
}

// GetWithExpiration is Get with an explicit expiration for the produced
// value. Use gocache.NoExpiration to pin an entry.
func GetWithExpiration[T any](key string, cb func() (T, error), expire time.Duration) (T, error) {
	if x, found := store.Get(key); found {
		return x.(T), nil
	}

	res, err := cb()
	if err == nil {
		store.Set(key, res, expire)
	}
	return res, err
}

// Flush drops every cached entry.
func Flush() {
	store.Flush()
}
