package kernel

import (
	"unsafe"
)

// minCacheSlots keeps two columns resident so that fetching column j can
// never evict the column i fetched just before it.
const minCacheSlots = 2

// CacheStats counts cache traffic since construction.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Slots     int
}

// Cache is a least-recently-used store of full kernel columns in front of a
// Source. Columns live in one contiguous arena; the recency list is kept in
// index arrays rather than pointers. A Cache is not safe for concurrent use.
type Cache[F Float] struct {
	src   Source[F]
	n     int
	slots int
	arena []F

	slotOf []int // sample -> slot, -1 when not resident
	owner  []int // slot -> sample
	prev   []int
	next   []int
	head   int // most recently used slot
	tail   int // least recently used slot
	used   int

	stats CacheStats
}

// NewCache sizes the arena from a budget in megabytes. The number of slots is
// clamped to [2, Len()].
func NewCache[F Float](src Source[F], sizeMB float64) *Cache[F] {
	n := src.Len()
	var zero F
	colBytes := float64(n) * float64(unsafe.Sizeof(zero))
	// the float comparison also catches NaN and +Inf before the int conversion
	slots := n
	if fit := sizeMB * 1024 * 1024 / colBytes; fit < float64(n) {
		slots = max(int(fit), minCacheSlots)
	}
	slots = min(slots, n)
	return newCacheWithSlots(src, slots)
}

func newCacheWithSlots[F Float](src Source[F], slots int) *Cache[F] {
	n := src.Len()
	c := &Cache[F]{
		src:    src,
		n:      n,
		slots:  slots,
		arena:  make([]F, slots*n),
		slotOf: make([]int, n),
		owner:  make([]int, slots),
		prev:   make([]int, slots),
		next:   make([]int, slots),
		head:   -1,
		tail:   -1,
	}
	for i := range c.slotOf {
		c.slotOf[i] = -1
	}
	c.stats.Slots = slots
	return c
}

// Get returns the full column for sample i. The slice is owned by the cache
// and stays valid until at least one other column has been requested.
func (c *Cache[F]) Get(i int) []F {
	if s := c.slotOf[i]; s >= 0 {
		c.stats.Hits++
		c.moveToFront(s)
		return c.column(s)
	}
	c.stats.Misses++

	var s int
	if c.used < c.slots {
		s = c.used
		c.used++
	} else {
		s = c.tail
		c.slotOf[c.owner[s]] = -1
		c.unlink(s)
		c.stats.Evictions++
	}
	c.owner[s] = i
	c.slotOf[i] = s
	c.pushFront(s)

	col := c.column(s)
	c.src.Column(i, col)
	return col
}

// Contains reports whether column i is resident.
func (c *Cache[F]) Contains(i int) bool { return c.slotOf[i] >= 0 }

// Stats returns a snapshot of the counters.
func (c *Cache[F]) Stats() CacheStats { return c.stats }

func (c *Cache[F]) column(s int) []F { return c.arena[s*c.n : (s+1)*c.n] }

func (c *Cache[F]) moveToFront(s int) {
	if c.head == s {
		return
	}
	c.unlink(s)
	c.pushFront(s)
}

func (c *Cache[F]) pushFront(s int) {
	c.prev[s] = -1
	c.next[s] = c.head
	if c.head >= 0 {
		c.prev[c.head] = s
	}
	c.head = s
	if c.tail < 0 {
		c.tail = s
	}
}

func (c *Cache[F]) unlink(s int) {
	p, nx := c.prev[s], c.next[s]
	if p >= 0 {
		c.next[p] = nx
	} else {
		c.head = nx
	}
	if nx >= 0 {
		c.prev[nx] = p
	} else {
		c.tail = p
	}
	c.prev[s], c.next[s] = -1, -1
}
