// Package memo caches stress results in a bounded LRU keyed by the clamped
// model inputs. Sensor pushes repeat the same room snapshot for many phone
// pushes, so identical inputs are common.
package memo

import (
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// key holds the exact bits of the clamped inputs, so only identical inputs
// share an entry.
type key [4]uint64

// Stats reports cache effectiveness.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// Calculator wraps a stress.Model with an LRU. It is safe for concurrent use.
// With size 0 it is a plain pass-through.
type Calculator struct {
	model *stress.Model
	cache *lru.Cache

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a Calculator holding up to size results.
func New(model *stress.Model, size int) (*Calculator, error) {
	c := &Calculator{model: model}
	if size <= 0 {
		return c, nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Compute returns the model result for in, serving repeated inputs from the
// cache. Returned results are deep copies and may be modified by the caller.
func (c *Calculator) Compute(in stress.Inputs) stress.Result {
	if c.cache == nil {
		return c.model.Compute(in)
	}

	k := keyOf(c.model.Clamp(in))
	if v, ok := c.cache.Get(k); ok {
		c.hits.Add(1)
		return v.(stress.Result).Clone()
	}

	c.misses.Add(1)
	res := c.model.Compute(in)
	c.cache.Add(k, res.Clone())
	return res
}

// Model returns the wrapped model.
func (c *Calculator) Model() *stress.Model { return c.model }

// Stats returns hit/miss counters and the current size.
func (c *Calculator) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if c.cache != nil {
		s.Size = c.cache.Len()
	}
	return s
}

// Purge drops every cached result.
func (c *Calculator) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func keyOf(in stress.Inputs) key {
	return key{
		math.Float64bits(in.ScreenTimeHours),
		math.Float64bits(in.Temperature),
		math.Float64bits(in.Humidity),
		math.Float64bits(in.AirQuality),
	}
}
