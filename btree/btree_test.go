package btree

import (
	"bytes"
	"testing"

	"github.com/lunfardo314/btrees/common"
	"github.com/stretchr/testify/require"
)

func TestBTreeEmptyGetMiss(t *testing.T) {
	bt := NewBTree[int, string](common.IntOps, common.StringOps, 4, 4)
	_, ok, err := bt.Get(1)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, bt.Remove(1), ErrKeyNotFound)
}

func TestBTreeInsertGetManyKeys(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	const n = 200
	for i := 0; i < n; i++ {
		grew, err := bt.Insert(i, i*2)
		require.NoError(t, err)
		require.True(t, grew)
	}

	for i := 0; i < n; i++ {
		v, ok, err := bt.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*2, v)
	}

	length, err := bt.Len()
	require.NoError(t, err)
	require.Equal(t, n, length)
}

func TestBTreeInsertTriggersGrowAndClone(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for i := 0; i < 100; i++ {
		_, err := bt.Insert(i, i)
		require.NoError(t, err)
	}
	// With small thresholds, this population forces at least one
	// height-growing clone, so the root is no longer leaf-direct.
	require.False(t, bt.childIsLeaf)
}

func TestBTreeDepthMissReturnsZeroFalse(t *testing.T) {
	bt := NewBTree[int, string](common.IntOps, common.StringOps, 4, 4)
	_, err := bt.Insert(1, "one")
	require.NoError(t, err)

	depth, ok, err := bt.Depth(99)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, depth)
}

func TestBTreeDepthCountsInteriorLevelsCrossed(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for i := 0; i < 100; i++ {
		_, err := bt.Insert(i, i)
		require.NoError(t, err)
	}
	// Same population as TestBTreeInsertTriggersGrowAndClone: small
	// thresholds force a root whose children are interior BTrees, so a hit
	// must cross at least one interior level before the terminal bucket.
	require.False(t, bt.childIsLeaf)

	depth, ok, err := bt.Depth(50)
	require.NoError(t, err)
	require.True(t, ok)
	require.GreaterOrEqual(t, depth, 2)
}

func TestBTreeDepthOnFlatTreeIsOne(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 16, 16)
	_, err := bt.Insert(1, 1)
	require.NoError(t, err)
	require.True(t, bt.childIsLeaf)

	depth, ok, err := bt.Depth(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, depth)
}

func TestBTreeOverwriteDoesNotGrow(t *testing.T) {
	bt := NewBTree[int, string](common.IntOps, common.StringOps, 4, 4)
	_, err := bt.Insert(1, "one")
	require.NoError(t, err)

	grew, err := bt.Set(1, "uno", true, false)
	require.NoError(t, err)
	require.False(t, grew)

	v, ok, err := bt.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "uno", v)
}

func TestBTreeUniqueSetRejectsDuplicate(t *testing.T) {
	bt := NewBTree[int, string](common.IntOps, common.StringOps, 4, 4)
	inserted, err := bt.Insert(1, "one")
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = bt.Insert(1, "uno")
	require.NoError(t, err)
	require.False(t, inserted)

	v, _, err := bt.Get(1)
	require.NoError(t, err)
	require.Equal(t, "one", v)
}

func TestBTreeRemoveShrinksAndReclaimsEmptyChild(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	const n = 60
	for i := 0; i < n; i++ {
		_, err := bt.Insert(i, i)
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, bt.Remove(i))
	}
	length, err := bt.Len()
	require.NoError(t, err)
	require.Equal(t, 0, length)

	_, ok, err := bt.Get(0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBTreeFirstLastBucket(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for _, k := range []int{5, 1, 9, 3, 7} {
		_, err := bt.Insert(k, k)
		require.NoError(t, err)
	}

	first, err := bt.FirstBucket()
	require.NoError(t, err)
	require.Contains(t, first.keys, 1)

	last, err := bt.LastBucket()
	require.NoError(t, err)
	require.Contains(t, last.keys, 9)
}

func TestBTreeMinMaxKey(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for _, k := range []int{30, 10, 20, 40} {
		_, err := bt.Insert(k, k)
		require.NoError(t, err)
	}

	min, err := bt.MinKey(nil)
	require.NoError(t, err)
	require.Equal(t, 10, min)

	max, err := bt.MaxKey(nil)
	require.NoError(t, err)
	require.Equal(t, 40, max)

	lo := 15
	min, err = bt.MinKey(&lo)
	require.NoError(t, err)
	require.Equal(t, 20, min)
}

func TestBTreeMinKeyOnEmptyTreeErrors(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	_, err := bt.MinKey(nil)
	require.ErrorIs(t, err, ErrEmptyTree)
}

func TestBTreeStateRoundTrip(t *testing.T) {
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for i := 0; i < 40; i++ {
		_, err := bt.Insert(i, i*3)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, bt.GetState(&buf))

	restored := newBareBTree(common.IntOps, common.IntOps, false, 4, 4, bt.bucketResolver, bt.treeResolver)
	require.NoError(t, restored.SetState(bytes.NewReader(buf.Bytes())))
	require.Equal(t, len(bt.data), len(restored.data))
	require.Equal(t, bt.childIsLeaf, restored.childIsLeaf)
}

func TestBTreeActivateGhostWithNoJarErrors(t *testing.T) {
	br := GhostBucketResolver[int, int]{KeyOps: common.IntOps, ValOps: common.IntOps}
	tr := GhostBTreeResolver[int, int]{KeyOps: common.IntOps, ValOps: common.IntOps, MaxBucketSize: 4, MaxBTreeSize: 4, BucketResolver: br}
	ghost, err := tr.ResolveBTree(nil, common.OIDFromUint64(42))
	require.NoError(t, err)

	common.RequireErrorWith(t, ghost.Activate(), "cannot activate a ghost")
}
