package cache

import "sort"

// Cache holds entities keyed by identity in insertion order. It is not safe for
// concurrent use; the owning store serializes access.
type Cache[K comparable, E any] struct {
	key   func(E) K
	order []K
	items map[K]E
}

func New[K comparable, E any](key func(E) K) *Cache[K, E] {
	return &Cache[K, E]{key: key, items: make(map[K]E)}
}

// Snapshot returns a copy of the contents in insertion order.
func (c *Cache[K, E]) Snapshot() []E {
	out := make([]E, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// ReplaceAll discards prior contents. A key repeated in items keeps its first
// position and its last value.
func (c *Cache[K, E]) ReplaceAll(items []E) {
	c.order = make([]K, 0, len(items))
	c.items = make(map[K]E, len(items))
	for _, it := range items {
		k := c.key(it)
		if _, ok := c.items[k]; !ok {
			c.order = append(c.order, k)
		}
		c.items[k] = it
	}
}

// UpsertAppend replaces a present entry in place or appends a new one.
func (c *Cache[K, E]) UpsertAppend(item E) {
	k := c.key(item)
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = item
}

// UpsertPrepend replaces a present entry in place or inserts a new one first.
func (c *Cache[K, E]) UpsertPrepend(item E) {
	k := c.key(item)
	if _, ok := c.items[k]; !ok {
		c.order = append([]K{k}, c.order...)
	}
	c.items[k] = item
}

// UpsertInPlace replaces the entry with the same key. Absent keys are ignored.
func (c *Cache[K, E]) UpsertInPlace(item E) bool {
	k := c.key(item)
	if _, ok := c.items[k]; !ok {
		return false
	}
	c.items[k] = item
	return true
}

// Remove deletes the entry for k. Absent keys are ignored.
func (c *Cache[K, E]) Remove(k K) bool {
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	for i, existing := range c.order {
		if existing == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Cache[K, E]) Get(k K) (E, bool) {
	it, ok := c.items[k]
	return it, ok
}

func (c *Cache[K, E]) Len() int { return len(c.order) }

// Clear empties the cache.
func (c *Cache[K, E]) Clear() {
	c.order = nil
	c.items = make(map[K]E)
}

// Filter returns the items matching keep, preserving order.
func Filter[E any](items []E, keep func(E) bool) []E {
	out := make([]E, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Count returns how many items match keep.
func Count[E any](items []E, keep func(E) bool) int {
	n := 0
	for _, it := range items {
		if keep(it) {
			n++
		}
	}
	return n
}

// TopN returns at most n items sorted by descending key. Ties keep snapshot order.
// A negative n returns every item.
func TopN[E any](items []E, n int, less func(a, b E) bool) []E {
	sorted := append([]E(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[j], sorted[i]) })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
