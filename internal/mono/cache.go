package mono

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"trans/internal/emit"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/types"
)

// Instance is one monomorphized entity. It is created once per Key and
// never mutated after the create callback returns.
type Instance struct {
	Key    Key
	Symbol string
	Def    *tir.FnDef
	// TypeArgs and Caps are concrete.
	TypeArgs []types.TypeID
	Caps     []tir.Cap
	// Ty is the subject type of glue and vtable instances.
	Ty types.TypeID
	// Fn is the declared symbol (a global for vtables).
	Fn  emit.Value
	Sig emit.Signature
}

// Subst returns the substitution for the instance body.
func (i *Instance) Subst() types.Subst {
	return types.Subst{Types: i.TypeArgs}
}

// UseSite records a location where an instantiation occurs.
type UseSite struct {
	Span   source.Span
	Caller string
}

type entry struct {
	inst  *Instance
	sites []UseSite
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache deduplicates instances across concurrently lowered functions. The
// first caller for a key runs create; concurrent callers for the same key
// wait for it and share the result.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Resolve returns the instance for key, calling create at most once per
// key. create must not call Resolve with the same key.
func (c *Cache) Resolve(key Key, create func() (*Instance, error)) (*Instance, error) {
	if inst, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return inst, nil
	}
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if inst, ok := c.lookup(key); ok {
			return inst, nil
		}
		inst, err := create()
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, fmt.Errorf("mono: create returned no instance for %s", key)
		}
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			// first writer wins
			inst = e.inst
		} else {
			c.entries[key] = &entry{inst: inst}
			c.misses.Add(1)
		}
		c.mu.Unlock()
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

func (c *Cache) lookup(key Key) (*Instance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.inst, true
}

// Record registers a use site of an existing instance.
func (c *Cache) Record(key Key, site UseSite) {
	if site.Span.IsDummy() && site.Caller == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	for _, existing := range e.sites {
		if existing == site {
			return
		}
	}
	e.sites = append(e.sites, site)
}

// Sites returns the recorded use sites of key.
func (c *Cache) Sites(key Key) []UseSite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return append([]UseSite(nil), e.sites...)
	}
	return nil
}

// Instances returns every instance sorted by symbol.
func (c *Cache) Instances() []*Instance {
	c.mu.RLock()
	out := make([]*Instance, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.inst)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}
