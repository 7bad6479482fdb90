// Package cache implements the pickle cache: an LRU ring of
// resident persistent objects bounded by a target size, with incremental,
// full, and "minimize" garbage collection passes that ghostify victims.
//
// PickleCache.data always holds a live Go pointer (Go's GC does not need
// convincing to keep an object alive), and ring membership alone decides
// who is an eviction candidate. See DESIGN.md for the corresponding Open
// Question resolution.
package cache

import (
	"time"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/internal/xlog"
	"github.com/lunfardo314/btrees/persist"
	"github.com/sasha-s/go-deadlock"
)

var log = xlog.New("cache")

// PickleCache is a single jar's oid -> object registry plus LRU ring.
type PickleCache struct {
	mu deadlock.Mutex

	data       map[common.OID]persist.Persistent
	klassMap   map[common.OID]persist.Persistent
	lastAccess map[common.OID]time.Time

	ringHome      persist.RingNode
	nonGhostCount int

	targetSize      int
	drainResistance int
	gcRunning       bool

	nowFunc func() time.Time
}

// New creates an empty cache with the given target resident (non-ghost)
// count. With a targetSize of 0 a GC pass (IncrGC/FullSweep/Minimize)
// ghostifies every UpToDate object; nothing is evicted outside those passes.
func New(targetSize int) *PickleCache {
	c := &PickleCache{
		data:       make(map[common.OID]persist.Persistent),
		klassMap:   make(map[common.OID]persist.Persistent),
		lastAccess: make(map[common.OID]time.Time),
		targetSize: targetSize,
		nowFunc:    time.Now,
	}
	c.ringHome.SetNext(&c.ringHome)
	c.ringHome.SetPrev(&c.ringHome)
	return c
}

func (c *PickleCache) now() time.Time { return c.nowFunc() }

// CacheSize returns the configured target non-ghost count.
func (c *PickleCache) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetSize
}

func (c *PickleCache) SetCacheSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetSize = n
}

func (c *PickleCache) DrainResistance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainResistance
}

func (c *PickleCache) SetDrainResistance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainResistance = n
}

func (c *PickleCache) NonGhostCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonGhostCount
}

func (c *PickleCache) KlassCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.klassMap)
}

// Data returns a snapshot copy of the oid -> object map.
func (c *PickleCache) Data() map[common.OID]persist.Persistent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[common.OID]persist.Persistent, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Insert registers obj under its own oid. The target must not already
// belong to a different cache, and its oid must be set.
func (c *PickleCache) Insert(obj persist.Persistent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	oid := obj.POID()
	if oid.IsNil() {
		return ErrForeignObject
	}
	if existingCache := obj.PCache(); existingCache != nil && existingCache != persist.CacheNotifier(c) {
		return ErrForeignObject
	}
	if cur, ok := c.data[oid]; ok && cur != obj {
		return common.ErrOIDMismatch
	}

	c.data[oid] = obj
	obj.SetCache(c)
	if obj.PState().Resident() {
		ringAdd(&c.ringHome, obj.RingNode())
		c.nonGhostCount++
	}
	c.lastAccess[oid] = c.now()
	return nil
}

// InsertKlass registers a persistent "class" object: never ring-linked,
// never ghostified, counted separately.
func (c *PickleCache) InsertKlass(cls persist.Persistent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.klassMap[cls.POID()] = cls
}

func (c *PickleCache) KlassItems() []persist.Persistent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]persist.Persistent, 0, len(c.klassMap))
	for _, v := range c.klassMap {
		out = append(out, v)
	}
	return out
}

// Delete removes obj from the cache.
func (c *PickleCache) Delete(obj persist.Persistent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(obj)
}

func (c *PickleCache) deleteLocked(obj persist.Persistent) {
	oid := obj.POID()
	cur, ok := c.data[oid]
	if !ok || cur != obj {
		return
	}
	if obj.PState().Resident() && obj.RingNode().Linked() {
		ringDel(obj.RingNode())
		c.nonGhostCount--
	}
	delete(c.data, oid)
	delete(c.lastAccess, oid)
	obj.SetCache(nil)
}

// Accessed implements persist.CacheNotifier: every attribute read on a
// non-ghost moves it to the most-recently-used ring slot.
func (c *PickleCache) Accessed(obj persist.Persistent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !obj.PState().Resident() {
		return
	}
	if obj.RingNode().Linked() {
		ringMoveToHead(&c.ringHome, obj.RingNode())
	} else {
		ringAdd(&c.ringHome, obj.RingNode())
		c.nonGhostCount++
	}
	c.lastAccess[obj.POID()] = c.now()
}

// Get returns the resident-or-ghost object registered for oid, if any.
func (c *PickleCache) Get(oid common.OID) (persist.Persistent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.data[oid]
	return obj, ok
}

// LRUItems lists the ring from least- to most-recently-used. Returns
// ErrReentrantGC if called while an incremental GC pass is in flight on this
// cache.
func (c *PickleCache) LRUItems() ([]persist.Persistent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gcRunning {
		return nil, ErrReentrantGC
	}
	items := make([]persist.Persistent, 0, c.nonGhostCount)
	for cur := c.ringHome.Next(); cur != &c.ringHome; cur = cur.Next() {
		items = append(items, cur.Owner())
	}
	return items, nil
}

// ghostify deactivates a resident node and unlinks it from the ring. Caller
// must hold c.mu and must have already confirmed the node is UpToDate (never
// ghostify a Sticky or Changed node — "incremental GC").
func (c *PickleCache) ghostify(obj persist.Persistent) {
	ringDel(obj.RingNode())
	c.nonGhostCount--
	obj.Deactivate()
	log.Debug("ghostified", "oid", obj.POID().String())
}

// gcPass walks at most one full lap of the ring, ghostifying UpToDate nodes
// until nonGhostCount <= target or the lap completes. minAge, when nonzero,
// skips nodes accessed more recently than that.
func (c *PickleCache) gcPass(target int, minAge time.Duration) error {
	if c.gcRunning {
		return ErrReentrantGC
	}
	c.gcRunning = true
	defer func() { c.gcRunning = false }()

	lapBound := c.nonGhostCount
	cur := c.ringHome.Next()
	now := c.now()

	for i := 0; i < lapBound && cur != &c.ringHome; i++ {
		if c.nonGhostCount <= target {
			break
		}
		owner := cur.Owner()
		if owner == nil {
			return ErrRingCorrupted
		}
		if owner.PState() != persist.UpToDate {
			cur = cur.Next()
			continue
		}
		if minAge > 0 {
			if last, ok := c.lastAccess[owner.POID()]; ok && now.Sub(last) < minAge {
				cur = cur.Next()
				continue
			}
		}

		next := cur.Next()
		var placeholder persist.RingNode
		placeholder.SetPrev(cur)
		placeholder.SetNext(next)
		cur.SetNext(&placeholder)
		next.SetPrev(&placeholder)

		c.ghostify(owner)

		cur = placeholder.Next()
		ringDel(&placeholder)
	}
	return nil
}

// IncrGC performs n (default 1) incremental GC passes, each targeting the
// configured cache size reduced by nonGhostCount/drainResistance when drain
// resistance is configured.
func (c *PickleCache) IncrGC(n ...int) error {
	reps := 1
	if len(n) > 0 {
		reps = n[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for ; reps > 0; reps-- {
		target := c.targetSize
		if c.drainResistance >= 1 {
			target -= c.nonGhostCount / c.drainResistance
			if target < 0 {
				target = 0
			}
		}
		if err := c.gcPass(target, 0); err != nil {
			return err
		}
	}
	return nil
}

// FullSweep runs a single GC pass with target 0.
// age, if given, is the minimum idle time before a node is eligible.
func (c *PickleCache) FullSweep(age ...time.Duration) error {
	var a time.Duration
	if len(age) > 0 {
		a = age[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gcPass(0, a)
}

// Minimize iterates FullSweep until the resident count stops decreasing
//.
func (c *PickleCache) Minimize(age ...time.Duration) error {
	var a time.Duration
	if len(age) > 0 {
		a = age[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		before := c.nonGhostCount
		if err := c.gcPass(0, a); err != nil {
			return err
		}
		if c.nonGhostCount >= before {
			return nil
		}
	}
}

// Invalidate ghostifies the given oids unconditionally, or every resident
// object when oids is empty.
func (c *PickleCache) Invalidate(oids ...common.OID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(oids) == 0 {
		for _, cls := range c.klassMap {
			c.invalidateKlass(cls)
		}
		for _, obj := range c.data {
			c.invalidateOne(obj)
		}
		return
	}
	for _, oid := range oids {
		if cls, ok := c.klassMap[oid]; ok {
			c.invalidateKlass(cls)
			continue
		}
		if obj, ok := c.data[oid]; ok {
			c.invalidateOne(obj)
		}
	}
}

func (c *PickleCache) invalidateKlass(cls persist.Persistent) {
	if jar := cls.PJar(); jar != nil {
		if err := jar.SetKlassState(cls); err != nil {
			log.Warn("setklassstate failed", "oid", cls.POID().String(), "err", err)
		}
	}
}

func (c *PickleCache) invalidateOne(obj persist.Persistent) {
	wasResident := obj.PState().Resident() && obj.RingNode().Linked()
	obj.Invalidate()
	if wasResident {
		ringDel(obj.RingNode())
		c.nonGhostCount--
	}
}

// CheckInvariants validates ring and bookkeeping consistency. Intended for
// tests, not the hot path.
func (c *PickleCache) CheckInvariants() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := ringCount(&c.ringHome)
	if n != c.nonGhostCount {
		return ErrRingCorrupted
	}
	for cur := c.ringHome.Next(); cur != &c.ringHome; cur = cur.Next() {
		if cur.Next().Prev() != cur || cur.Prev().Next() != cur {
			return ErrRingCorrupted
		}
		if !cur.Owner().PState().Resident() {
			return ErrRingCorrupted
		}
	}
	return nil
}
