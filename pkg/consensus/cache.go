package consensus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"sync"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Cache stores validated detector outputs between runs. Implementations must
// be safe for concurrent use and must return outputs equal to what was stored.
type Cache interface {
	Get(key string) (detectors.Output, bool)
	Put(key string, out detectors.Output)
}

// CacheKey identifies the output of detector name on ds under cfg.
func CacheKey(ds *dataset.Dataset, name string, cfg detectors.Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "%v", cfg)
	return ds.Fingerprint() + "/" + name + "/" + hex.EncodeToString(h.Sum(nil))[:16]
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]detectors.Output
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]detectors.Output)}
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) (detectors.Output, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.entries[key]
	if !ok {
		return detectors.Output{}, false
	}
	return copyOutput(out), true
}

// Put implements Cache.
func (c *MemoryCache) Put(key string, out detectors.Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = copyOutput(out)
}

// Len returns the number of cached outputs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyOutput(out detectors.Output) detectors.Output {
	return detectors.Output{
		Anomalies:  append([]int{}, out.Anomalies...),
		Confidence: maps.Clone(out.Confidence),
	}
}
