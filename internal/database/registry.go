package database

import (
	"context"
	"sync"

	"example.com/backstage/services/events/config"
)

var (
	sharedMu sync.Mutex
	shared   *Cache
)

// Shared returns the process-wide cache, creating it on first use. Options and
// configuration passed after the first call are ignored.
func Shared(cfg config.MongoConfig, opts ...Option) *Cache {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = NewCache(cfg, opts...)
	}
	return shared
}

// CloseShared disconnects and forgets the process-wide cache
func CloseShared(ctx context.Context) error {
	sharedMu.Lock()
	c := shared
	shared = nil
	sharedMu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close(ctx)
}
