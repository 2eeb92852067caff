// Package linecache provides the tiered cache for line membership arrays and
// an in-process cache for derived geometry products.
//
// The line/line_index arrays are resolved through an ordered list of tiers;
// a hit at a later tier is written back to every earlier tier, and a full
// miss computes from the authoritative source and populates all tiers.
package linecache

import (
	"fmt"
	"log"
)

// Tier is one level of the line-array cache. TryGet returns (nil, false, nil)
// on a miss; a non-nil error means the tier is unreadable (e.g. a corrupt
// side file) and resolution must abort rather than silently recompute.
type Tier interface {
	Name() string
	TryGet(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// Resolver composes cache tiers in retrieval-priority order.
type Resolver struct {
	tiers []Tier
}

// NewResolver creates a resolver over the given tiers, ordered from fastest
// to most authoritative.
func NewResolver(tiers ...Tier) *Resolver {
	return &Resolver{tiers: tiers}
}

// Resolve returns the cached value for key, trying tiers in order. On a hit
// at tier i the value is promoted into tiers 0..i-1. On a full miss, compute
// is invoked and its result stored into every tier. Write-back failures are
// logged, not fatal; the returned value is correct either way.
func (r *Resolver) Resolve(key string, compute func() ([]byte, error)) ([]byte, error) {
	for i, tier := range r.tiers {
		data, ok, err := tier.TryGet(key)
		if err != nil {
			return nil, fmt.Errorf("cache tier %s: %w", tier.Name(), err)
		}
		if ok {
			r.writeBack(key, data, i)
			return data, nil
		}
	}

	data, err := compute()
	if err != nil {
		return nil, err
	}
	r.writeBack(key, data, len(r.tiers))
	return data, nil
}

func (r *Resolver) writeBack(key string, data []byte, upto int) {
	for _, tier := range r.tiers[:upto] {
		if err := tier.Put(key, data); err != nil {
			log.Printf("cache tier %s: failed to store %s: %v", tier.Name(), key, err)
		}
	}
}
