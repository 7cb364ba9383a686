package didprism

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingClient wraps a Client with an in-memory cache of resolution
// results. Entries are keyed by DID and ledger. Errors are cached too,
// with their own (typically shorter) TTL, so a flapping resolver
// doesn't get hammered.
//
// Per-call ResolutionOptions bypass the cache: a versioned lookup is
// asking for a specific historical state, and caching those alongside
// latest-version entries would serve stale answers.
type CachingClient struct {
	Inner  *Client
	ErrTTL time.Duration

	resultCache *expirable.LRU[cacheKey, resultEntry]
	lookupChans sync.Map
}

type cacheKey struct {
	DID    string
	Ledger string
}

type resultEntry struct {
	Updated time.Time
	Result  *ResolutionResult
	Err     error
}

// NewCachingClient wraps inner with a cache. Capacity of zero means
// unlimited size; hitTTL of zero means entries never expire.
func NewCachingClient(inner *Client, capacity int, hitTTL, errTTL time.Duration) *CachingClient {
	return &CachingClient{
		Inner:       inner,
		ErrTTL:      errTTL,
		resultCache: expirable.NewLRU[cacheKey, resultEntry](capacity, nil, hitTTL),
	}
}

func (c *CachingClient) isStale(e *resultEntry) bool {
	return e.Err != nil && time.Since(e.Updated) > c.ErrTTL
}

func (c *CachingClient) update(ctx context.Context, key cacheKey) resultEntry {
	res, err := c.Inner.ResolveResult(ctx, key.DID, nil, key.Ledger)
	entry := resultEntry{
		Updated: time.Now(),
		Result:  res,
		Err:     err,
	}
	// don't cache cancellation; it says nothing about the DID
	if ctx.Err() == nil {
		c.resultCache.Add(key, entry)
	}
	return entry
}

// ResolveResult resolves the latest version of a DID through the cache.
// Options are not supported here; use the inner Client directly for
// versioned lookups.
func (c *CachingClient) ResolveResult(ctx context.Context, did string, ledger string) (*ResolutionResult, error) {
	if did == "" {
		return nil, ErrEmptyDID
	}
	key := cacheKey{DID: did, Ledger: c.Inner.ledgerFor(ledger)}

	entry, ok := c.resultCache.Get(key)
	if ok && !c.isStale(&entry) {
		resolutionCacheHits.Inc()
		return entry.Result, entry.Err
	}
	resolutionCacheMisses.Inc()

	// Coalesce concurrent lookups for the same DID+ledger
	res := make(chan struct{})
	val, loaded := c.lookupChans.LoadOrStore(key, res)
	if loaded {
		resolutionsCoalesced.Inc()
		select {
		case <-val.(chan struct{}):
			entry, ok := c.resultCache.Get(key)
			if ok && !c.isStale(&entry) {
				return entry.Result, entry.Err
			}
			return nil, fmt.Errorf("resolution not found in cache after coalesce returned")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	newEntry := c.update(ctx, key)

	c.lookupChans.Delete(key)
	close(res)

	return newEntry.Result, newEntry.Err
}

// Purge drops any cached entry for the given DID and ledger.
func (c *CachingClient) Purge(did string, ledger string) {
	c.resultCache.Remove(cacheKey{DID: did, Ledger: c.Inner.ledgerFor(ledger)})
}
