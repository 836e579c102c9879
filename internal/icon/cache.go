package icon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Resolver is the dispatch seam the cache sits in front of.
type Resolver interface {
	Resolve(ctx context.Context, entry PathEntry) IconResult
}

type cacheEntry struct {
	fingerprint Fingerprint
	result      IconResult
	lastAccess  time.Time
}

// ResultCache memoizes resolved icons keyed by canonical path.
// An entry is valid for exactly the fingerprint it was computed under;
// a lookup whose fresh fingerprint differs is a miss and replaces the
// entry in place. The cache's lifetime is one directory-listing
// session; Clear wipes it wholesale on reload.
type ResultCache struct {
	fsys     FileSystem
	resolver Resolver
	log      zerolog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func NewResultCache(fsys FileSystem, resolver Resolver, logger zerolog.Logger) *ResultCache {
	return &ResultCache{
		fsys:     fsys,
		resolver: resolver,
		log:      logger,
		entries:  make(map[string]*cacheEntry, 256),
	}
}

// GetOrResolve returns the icon for path, resolving through the
// dispatcher only when the cache has no entry for the current
// fingerprint. force bypasses the fingerprint check unconditionally.
//
// Paths that fail to classify (missing, unreadable) resolve to a
// degraded fallback and are never cached, so a file that appears later
// is picked up.
func (c *ResultCache) GetOrResolve(ctx context.Context, path string, force bool) IconResult {
	entry, err := Classify(c.fsys, path)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("Classification failed, resolving as missing")
		return c.resolver.Resolve(ctx, MissingEntry(path))
	}

	fp := entry.Fingerprint()
	now := time.Now()

	if !force {
		c.mu.Lock()
		if e, ok := c.entries[entry.Path]; ok && e.fingerprint.Equal(fp) {
			e.lastAccess = now
			res := e.result
			c.mu.Unlock()
			return res
		}
		c.mu.Unlock()
	}

	res := c.resolver.Resolve(ctx, entry)

	c.mu.Lock()
	c.entries[entry.Path] = &cacheEntry{
		fingerprint: fp,
		result:      res,
		lastAccess:  now,
	}
	c.mu.Unlock()

	return res
}

// Clear wipes the cache wholesale; called when the directory listing
// backing it is reloaded.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry, 256)
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
