// Package dnscache wraps a dial function with an LRU cache of resolved
// remote addresses, so a crawl that repeatedly fetches from the same host
// does not pay for DNS resolution on every request.
package dnscache

import (
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// ttl bounds how long a cached resolution is trusted before a fresh dial is
// forced to re-resolve.
const ttl = 5 * time.Minute

// Dial wraps wrappedDial with caching of resolved remote addresses. If
// wrappedDial is nil, net.Dial is used.
func Dial(wrappedDial func(network, addr string) (net.Conn, error), maxEntries int) (func(network, addr string) (net.Conn, error), error) {
	if wrappedDial == nil {
		wrappedDial = net.Dial
	}
	cache, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	c := &dnsCache{
		wrappedDial: wrappedDial,
		cache:       cache,
	}
	return c.cachingDial, nil
}

type dnsCache struct {
	wrappedDial func(network, address string) (net.Conn, error)
	cache       *lru.Cache
	mu          sync.RWMutex
}

type hostrecord struct {
	resolved  string
	failed    bool
	err       error
	lastQuery time.Time
}

func (c *dnsCache) cachingDial(network, addr string) (net.Conn, error) {
	key := network + addr
	c.mu.RLock()
	entry, ok := c.cache.Get(key)
	c.mu.RUnlock()
	if !ok {
		return c.resolve(network, addr)
	}

	record := entry.(hostrecord)
	if time.Since(record.lastQuery) > ttl {
		return c.resolve(network, addr)
	}
	if record.failed {
		return nil, record.err
	}
	return c.wrappedDial(network, record.resolved)
}

// resolve dials addr directly, caching either the resulting remote address
// or the failure, and overwriting any stale entry for this key.
func (c *dnsCache) resolve(network, addr string) (net.Conn, error) {
	key := network + addr
	conn, err := c.wrappedDial(network, addr)
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.cache.Add(key, hostrecord{failed: true, err: err, lastQuery: now})
		return nil, err
	}
	c.cache.Add(key, hostrecord{resolved: conn.RemoteAddr().String(), lastQuery: now})
	return conn, nil
}
