package engine

import (
	"hash/fnv"
	"strconv"
	"time"
)

// cachedResult is a memoized evaluation result with an absolute
// expiry time.
type cachedResult struct {
	result    *EvaluationResult
	expiresAt time.Time
}

// resultCache memoizes evaluation results for identical (subject id,
// resource id, action name) triples within a TTL window.
//
// Expiry is lazy: a lookup uses an entry only while its expiry lies
// strictly in the future and otherwise treats it as absent. Expired
// entries linger until overwritten, cleared, or purged by the
// optional janitor; none of that affects lookup correctness.
type resultCache struct {
	entries *shardedMap[cachedResult]
	ttl     time.Duration
	now     func() time.Time
}

func newResultCache(ttlSeconds int) *resultCache {
	return &resultCache{
		entries: newShardedMap[cachedResult](),
		ttl:     time.Duration(ttlSeconds) * time.Second,
		now:     time.Now,
	}
}

// key derives the cache key from the identifying triple. Resource
// attributes, request metadata, and event payloads are deliberately
// excluded: contexts whose decision depends on them must not be
// cached, or must be invalidated by the caller.
func (c *resultCache) key(subjectID, resourceID, actionName string) string {
	h := fnv.New64a()
	h.Write([]byte(subjectID))
	h.Write([]byte{0})
	h.Write([]byte(resourceID))
	h.Write([]byte{0})
	h.Write([]byte(actionName))
	return strconv.FormatUint(h.Sum64(), 16)
}

// get returns the live entry for key, if any.
func (c *resultCache) get(key string) (*EvaluationResult, bool) {
	entry, ok := c.entries.Get(key)
	if !ok || !entry.expiresAt.After(c.now()) {
		return nil, false
	}
	return entry.result, true
}

// put stores a result under key with expiry now+TTL. A zero TTL
// disables caching entirely.
func (c *resultCache) put(key string, result *EvaluationResult) {
	if c.ttl <= 0 {
		return
	}
	c.entries.Set(key, cachedResult{
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	})
}

// clear drops every entry. Called on any policy load or unload.
func (c *resultCache) clear() {
	c.entries.Clear()
}

// invalidateDomain is the domain-scoped invalidation hook. The cache
// key does not carry the domain, so a narrower clear would need a
// reverse index from domain to keys; until that exists this clears
// everything, and callers may depend on the conservative behavior.
func (c *resultCache) invalidateDomain(domain string) {
	_ = domain
	c.clear()
}

// purgeExpired removes entries whose expiry has passed and returns
// how many were removed.
func (c *resultCache) purgeExpired() int {
	now := c.now()
	var expired []string
	c.entries.Range(func(key string, entry cachedResult) bool {
		if !entry.expiresAt.After(now) {
			expired = append(expired, key)
		}
		return true
	})
	removed := 0
	for _, key := range expired {
		// Re-check under the shard lock; the entry may have been
		// replaced with a live one since the scan.
		c.entries.Update(key, func(entry cachedResult, exists bool) (cachedResult, bool) {
			if exists && !entry.expiresAt.After(now) {
				removed++
				return cachedResult{}, false
			}
			return entry, exists
		})
	}
	return removed
}

// len returns the number of entries, live or expired.
func (c *resultCache) len() int {
	return c.entries.Len()
}
