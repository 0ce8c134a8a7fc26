package cache

// EvictReason tells why cleanup dropped an entry.
type EvictReason int

const (
	// EvictExpired means the entry outlived its TTL.
	EvictExpired EvictReason = iota
	// EvictCapacity means the entry was the oldest one while the cache was full.
	EvictCapacity
)

func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Metrics receives cache instrumentation events.
// Implementations must be safe for concurrent use; Hit and Miss are
// called while only the shared lock is held.
type Metrics interface {
	// Hit records a Get that returned a value.
	Hit()
	// Miss records a Get that found nothing, an expired entry or a reclaimed value.
	Miss()
	// Evicted records one entry removed by cleanup.
	Evicted(reason EvictReason)
	// Size reports the physical entry count after a mutation.
	Size(n int)
}

type nopMetrics struct{}

func (nopMetrics) Hit()                {}
func (nopMetrics) Miss()               {}
func (nopMetrics) Evicted(EvictReason) {}
func (nopMetrics) Size(int)            {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
