package cache

import (
	"io"
	"testing"
	"time"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/persist"
	"github.com/stretchr/testify/require"
)

// fakePersistent is a minimal persist.Persistent for exercising the cache's
// ring/GC bookkeeping without pulling in the btree node types.
type fakePersistent struct {
	persist.Header
}

func newFakePersistent(oid common.OID) *fakePersistent {
	n := &fakePersistent{}
	n.Header.Init(n)
	n.Header.AttachJar(nil, oid)
	return n
}

func (n *fakePersistent) GetState(w io.Writer) error { return nil }
func (n *fakePersistent) SetState(r io.Reader) error { return nil }
func (n *fakePersistent) OnGhostify()                {}

func TestCacheInsertLinksResidentIntoRing(t *testing.T) {
	c := New(10)
	obj := newFakePersistent(common.OIDFromUint64(1))

	require.NoError(t, c.Insert(obj))
	require.Equal(t, 1, c.NonGhostCount())

	got, ok := c.Get(common.OIDFromUint64(1))
	require.True(t, ok)
	require.Same(t, obj, got)
}

func TestCacheInsertRejectsNilOID(t *testing.T) {
	c := New(10)
	obj := &fakePersistent{}
	obj.Header.Init(obj)

	require.ErrorIs(t, c.Insert(obj), ErrForeignObject)
}

func TestCacheInsertRejectsForeignCache(t *testing.T) {
	c1 := New(10)
	c2 := New(10)
	obj := newFakePersistent(common.OIDFromUint64(1))

	require.NoError(t, c1.Insert(obj))
	require.ErrorIs(t, c2.Insert(obj), ErrForeignObject)
}

func TestCacheDeleteUnlinksAndClearsBackref(t *testing.T) {
	c := New(10)
	obj := newFakePersistent(common.OIDFromUint64(1))
	require.NoError(t, c.Insert(obj))

	c.Delete(obj)
	require.Equal(t, 0, c.NonGhostCount())
	_, ok := c.Get(common.OIDFromUint64(1))
	require.False(t, ok)
	require.Nil(t, obj.PCache())
}

func TestCacheAccessedMovesToMostRecentlyUsed(t *testing.T) {
	c := New(10)
	a := newFakePersistent(common.OIDFromUint64(1))
	b := newFakePersistent(common.OIDFromUint64(2))
	require.NoError(t, c.Insert(a))
	require.NoError(t, c.Insert(b))

	c.Accessed(a)

	items, err := c.LRUItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Same(t, b, items[0])
	require.Same(t, a, items[1])
}

func TestCacheIncrGCGhostifiesDownToTarget(t *testing.T) {
	c := New(1)
	a := newFakePersistent(common.OIDFromUint64(1))
	b := newFakePersistent(common.OIDFromUint64(2))
	require.NoError(t, c.Insert(a))
	require.NoError(t, c.Insert(b))
	require.Equal(t, 2, c.NonGhostCount())

	require.NoError(t, c.IncrGC())
	require.Equal(t, 1, c.NonGhostCount())
	require.Equal(t, persist.Ghost, a.PState())
	require.Equal(t, persist.UpToDate, b.PState())
}

func TestCacheIncrGCNeverGhostifiesChangedOrSticky(t *testing.T) {
	c := New(0)
	obj := newFakePersistent(common.OIDFromUint64(1))
	require.NoError(t, c.Insert(obj))
	require.NoError(t, obj.ChangeNotify())

	require.NoError(t, c.IncrGC())
	require.Equal(t, persist.Changed, obj.PState())
	require.Equal(t, 1, c.NonGhostCount())
}

func TestCacheFullSweepGhostifiesEverything(t *testing.T) {
	c := New(10)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, c.Insert(newFakePersistent(common.OIDFromUint64(i))))
	}
	require.NoError(t, c.FullSweep())
	require.Equal(t, 0, c.NonGhostCount())
}

func TestCacheMinimizeDrainsUntilStable(t *testing.T) {
	c := New(10)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, c.Insert(newFakePersistent(common.OIDFromUint64(i))))
	}
	require.NoError(t, c.Minimize())
	require.Equal(t, 0, c.NonGhostCount())
	require.NoError(t, c.CheckInvariants())
}

func TestCacheInvalidateAllGhostifiesResidentObjects(t *testing.T) {
	c := New(10)
	a := newFakePersistent(common.OIDFromUint64(1))
	require.NoError(t, c.Insert(a))
	require.NoError(t, a.ChangeNotify())

	c.Invalidate()
	require.Equal(t, persist.Ghost, a.PState())
	require.Equal(t, 0, c.NonGhostCount())
}

func TestCacheInvalidateSpecificOID(t *testing.T) {
	c := New(10)
	a := newFakePersistent(common.OIDFromUint64(1))
	b := newFakePersistent(common.OIDFromUint64(2))
	require.NoError(t, c.Insert(a))
	require.NoError(t, c.Insert(b))

	c.Invalidate(common.OIDFromUint64(1))
	require.Equal(t, persist.Ghost, a.PState())
	require.Equal(t, persist.UpToDate, b.PState())
}

func TestCacheLRUItemsRejectsReentrantGC(t *testing.T) {
	c := New(10)
	c.gcRunning = true
	_, err := c.LRUItems()
	require.ErrorIs(t, err, ErrReentrantGC)
}

func TestCacheDrainResistanceSoftensTarget(t *testing.T) {
	c := New(4)
	c.SetDrainResistance(2)
	for i := uint64(1); i <= 8; i++ {
		require.NoError(t, c.Insert(newFakePersistent(common.OIDFromUint64(i))))
	}

	// target = 4 - 8/2 = 0, so a single pass drains to 0 rather than 4.
	require.NoError(t, c.IncrGC())
	require.Equal(t, 0, c.NonGhostCount())
}

func TestCacheGCPassSkipsRecentlyAccessedUnderMinAge(t *testing.T) {
	c := New(0)
	frozen := time.Unix(1000, 0)
	c.nowFunc = func() time.Time { return frozen }
	obj := newFakePersistent(common.OIDFromUint64(1))
	require.NoError(t, c.Insert(obj))

	require.NoError(t, c.FullSweep(time.Hour))
	require.Equal(t, persist.UpToDate, obj.PState())

	c.nowFunc = func() time.Time { return frozen.Add(2 * time.Hour) }
	require.NoError(t, c.FullSweep(time.Hour))
	require.Equal(t, persist.Ghost, obj.PState())
}

func TestCacheInsertKlassIsNeverRingLinked(t *testing.T) {
	c := New(10)
	cls := newFakePersistent(common.OIDFromUint64(1))
	c.InsertKlass(cls)

	require.Equal(t, 1, c.KlassCount())
	require.Equal(t, 0, c.NonGhostCount())
	items := c.KlassItems()
	require.Len(t, items, 1)
	require.Same(t, cls, items[0])
}
