// Package cache implements a single-process, in-memory expiring map.
//
// Goals for this package:
//   - Keep the core data structures explicit (map index + insertion-ordered list)
//   - One fixed TTL per cache, applied when an entry is written
//   - Bounded size with insertion-order (not LRU) eviction
//   - Lazy expiration only: stale entries are swept by the next mutation
//   - Concurrency-safe (RWMutex): readers share the lock, writers exclude everyone
//
// Reads never mutate. An entry that has expired stays physically present
// until a Put, PutIfAbsent or Remove sweeps it, so Len and ContainsKey may
// still count it while Get already reports a miss.
package cache
