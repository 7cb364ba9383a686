package didprism

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolutionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "didprism_resolution_cache_hits",
	Help: "Number of prism DID resolutions served from cache",
})

var resolutionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "didprism_resolution_cache_misses",
	Help: "Number of prism DID resolutions not found in cache",
})

var resolutionsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "didprism_resolutions_coalesced",
	Help: "Number of prism DID resolutions coalesced onto an in-flight request",
})
