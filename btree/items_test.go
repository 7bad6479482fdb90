package btree

import (
	"testing"

	"github.com/lunfardo314/btrees/common"
	"github.com/stretchr/testify/require"
)

func buildTestTree(t *testing.T, n int) *BTree[int, int] {
	t.Helper()
	bt := NewBTree[int, int](common.IntOps, common.IntOps, 4, 4)
	for i := 0; i < n; i++ {
		_, err := bt.Insert(i, i*10)
		require.NoError(t, err)
	}
	return bt
}

func TestItemsFullRange(t *testing.T) {
	bt := buildTestTree(t, 50)
	items, err := bt.Items(nil, nil, false, false)
	require.NoError(t, err)

	keys, err := items.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 50)
	for i, k := range keys {
		require.Equal(t, i, k)
	}

	values, err := items.Values()
	require.NoError(t, err)
	require.Equal(t, 0, values[0])
	require.Equal(t, 490, values[49])
}

func TestItemsBoundedRange(t *testing.T) {
	bt := buildTestTree(t, 50)
	lo, hi := 10, 20
	items, err := bt.Items(&lo, &hi, false, false)
	require.NoError(t, err)

	keys, err := items.Keys()
	require.NoError(t, err)
	require.Equal(t, 10, keys[0])
	require.Equal(t, 20, keys[len(keys)-1])
	require.Len(t, keys, 11)
}

func TestItemsExclusiveBounds(t *testing.T) {
	bt := buildTestTree(t, 50)
	lo, hi := 10, 20
	items, err := bt.Items(&lo, &hi, true, true)
	require.NoError(t, err)

	keys, err := items.Keys()
	require.NoError(t, err)
	require.Equal(t, 11, keys[0])
	require.Equal(t, 19, keys[len(keys)-1])
}

func TestItemsEmptyRangeIsEmpty(t *testing.T) {
	bt := buildTestTree(t, 50)
	lo, hi := 1000, 2000
	items, err := bt.Items(&lo, &hi, false, false)
	require.NoError(t, err)
	require.False(t, items.NonEmpty())

	length, err := items.Length()
	require.NoError(t, err)
	require.Equal(t, 0, length)
}

func TestItemsSeekAndItem(t *testing.T) {
	bt := buildTestTree(t, 30)
	items, err := bt.Items(nil, nil, false, false)
	require.NoError(t, err)

	k, v, hasV, err := items.Item(5, 'i')
	require.NoError(t, err)
	require.Equal(t, 5, k)
	require.Equal(t, 50, v)
	require.True(t, hasV)

	k, _, _, err = items.Item(-1, 'k')
	require.NoError(t, err)
	require.Equal(t, 29, k)

	require.ErrorIs(t, items.Seek(1000), ErrIndexOutOfRange)
}

func TestItemsSliceIsSubrange(t *testing.T) {
	bt := buildTestTree(t, 30)
	items, err := bt.Items(nil, nil, false, false)
	require.NoError(t, err)

	sub, err := items.Slice(5, 10)
	require.NoError(t, err)

	keys, err := sub.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{5, 6, 7, 8, 9, 10}, keys)
}

func TestItemsLength(t *testing.T) {
	bt := buildTestTree(t, 123)
	items, err := bt.Items(nil, nil, false, false)
	require.NoError(t, err)

	length, err := items.Length()
	require.NoError(t, err)
	require.Equal(t, 123, length)
}

func TestItemsSetIteratorRejectsValue(t *testing.T) {
	ts := NewTreeSet[int](common.IntOps, 4, 4)
	_, err := ts.Insert(1, struct{}{})
	require.NoError(t, err)

	items, err := ts.Items(nil, nil, false, false)
	require.NoError(t, err)

	_, _, _, err = items.Item(0, 'v')
	require.ErrorIs(t, err, ErrValueMismatch)
}
