// Package auth verifies signed requests from wallet clients. It is the
// consuming side of the scheme pkg/sigclient produces: an EIP-191 signature
// over the body hash, timestamp and a single-use nonce.
package auth

import (
	"sync"
	"time"
)

// NonceCache tracks used nonces to prevent replay. Entries expire after ttl
// and are swept by a background goroutine.
type NonceCache struct {
	mu      sync.RWMutex
	nonces  map[string]time.Time
	ttl     time.Duration
	cleanup time.Duration
}

func NewNonceCache(ttl, cleanup time.Duration) *NonceCache {
	cache := &NonceCache{
		nonces:  make(map[string]time.Time),
		ttl:     ttl,
		cleanup: cleanup,
	}
	go cache.startCleanup()
	return cache
}

func (c *NonceCache) startCleanup() {
	ticker := time.NewTicker(c.cleanup)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		for nonce, timestamp := range c.nonces {
			if time.Since(timestamp) > c.ttl {
				delete(c.nonces, nonce)
			}
		}
		c.mu.Unlock()
	}
}

func (c *NonceCache) IsUsed(nonce string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	timestamp, ok := c.nonces[nonce]
	return ok && time.Since(timestamp) <= c.ttl
}

func (c *NonceCache) Use(nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces[nonce] = time.Now()
}
