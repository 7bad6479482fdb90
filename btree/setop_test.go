package btree

import (
	"testing"

	"github.com/lunfardo314/btrees/common"
	"github.com/stretchr/testify/require"
)

func bucketOf(t *testing.T, pairs map[int]string) *Bucket[int, string] {
	t.Helper()
	b := NewBucket[int, string](common.IntOps, common.StringOps)
	for k, v := range pairs {
		_, err := b.Insert(k, v)
		require.NoError(t, err)
	}
	return b
}

func setBucketOf(t *testing.T, keys ...int) *Bucket[int, struct{}] {
	t.Helper()
	b := NewSetBucket[int](common.IntOps)
	for _, k := range keys {
		_, err := b.Insert(k, struct{}{})
		require.NoError(t, err)
	}
	return b
}

func TestUnionOfSets(t *testing.T) {
	a := setBucketOf(t, 1, 2, 3)
	b := setBucketOf(t, 2, 3, 4)

	u, err := Union[int, struct{}](common.IntOps, nil, a, b)
	require.NoError(t, err)

	keys, err := u.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, keys)
}

func TestIntersectionOfSets(t *testing.T) {
	a := setBucketOf(t, 1, 2, 3)
	b := setBucketOf(t, 2, 3, 4)

	i, err := Intersection[int, struct{}](common.IntOps, nil, a, b)
	require.NoError(t, err)

	keys, err := i.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, keys)
}

func TestDifferenceOfSets(t *testing.T) {
	a := setBucketOf(t, 1, 2, 3)
	b := setBucketOf(t, 2, 3, 4)

	d, err := Difference[int, struct{}](common.IntOps, nil, a, b)
	require.NoError(t, err)

	keys, err := d.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{1}, keys)
}

func TestDifferenceWithNilRightIsIdentity(t *testing.T) {
	a := setBucketOf(t, 1, 2, 3)

	d, err := Difference[int, struct{}](common.IntOps, nil, a, nil)
	require.NoError(t, err)

	keys, err := d.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, keys)
}

func TestUnionOfMappingsPrefersLeftValueOnOverlap(t *testing.T) {
	a := bucketOf(t, map[int]string{1: "a-one", 2: "a-two"})
	b := bucketOf(t, map[int]string{2: "b-two", 3: "b-three"})

	u, err := Union[int, string](common.IntOps, common.StringOps, a, b)
	require.NoError(t, err)

	v, ok, err := u.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a-two", v)
}

func TestSetOperationRejectsValueShapeMismatch(t *testing.T) {
	withValues := bucketOf(t, map[int]string{1: "one"})
	noValues := &Bucket[int, string]{keyOps: common.IntOps, valOps: common.StringOps, noval: true}
	noValues.Header.Init(noValues)
	_, err := noValues.Insert(2, "")
	require.NoError(t, err)

	_, err = Union[int, string](common.IntOps, common.StringOps, withValues, noValues)
	require.ErrorIs(t, err, ErrValueMismatch)
}

func TestWeightedUnionAddsOverlappingValues(t *testing.T) {
	a := NewBucket[int, int](common.IntOps, common.IntOps)
	_, err := a.Insert(1, 10)
	require.NoError(t, err)
	b := NewBucket[int, int](common.IntOps, common.IntOps)
	_, err = b.Insert(1, 100)
	require.NoError(t, err)

	weight, result, err := WeightedUnion[int, int](common.IntOps, common.IntOps, a, b, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 1, weight)

	v, ok, err := result.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 10*2+100*3, v)
}

func TestWeightedIntersectionOnlyKeepsOverlap(t *testing.T) {
	a := NewBucket[int, int](common.IntOps, common.IntOps)
	_, err := a.Insert(1, 10)
	require.NoError(t, err)
	_, err = a.Insert(2, 20)
	require.NoError(t, err)
	b := NewBucket[int, int](common.IntOps, common.IntOps)
	_, err = b.Insert(2, 200)
	require.NoError(t, err)

	_, result, err := WeightedIntersection[int, int](common.IntOps, common.IntOps, a, b, 1, 1)
	require.NoError(t, err)

	keys, err := result.Keys()
	require.NoError(t, err)
	require.Equal(t, []int{2}, keys)
}
