package btree

import "github.com/lunfardo314/btrees/common"

// Sequence is the uniform source a set operation sweeps over. *Bucket, *BTreeItems, and *BTree all implement it by
// materializing their (sorted) key/value run; a nil Sequence is the empty
// set.
type Sequence[K, V any] interface {
	pairs() (keys []K, values []V, hasValues bool, err error)
}

func (b *Bucket[K, V]) pairs() ([]K, []V, bool, error) {
	if b == nil {
		return nil, nil, false, nil
	}
	var keys []K
	var values []V
	cur := b
	for cur != nil {
		if err := cur.Activate(); err != nil {
			return nil, nil, false, err
		}
		keys = append(keys, cur.keys...)
		if !cur.noval {
			values = append(values, cur.values...)
		}
		nxt, err := cur.NextBucket()
		if err != nil {
			return nil, nil, false, err
		}
		cur = nxt
	}
	return keys, values, !b.noval, nil
}

func (it *BTreeItems[K, V]) pairs() ([]K, []V, bool, error) {
	if it == nil {
		return nil, nil, false, nil
	}
	keys, err := it.Keys()
	if err != nil {
		return nil, nil, false, err
	}
	if it.noval {
		return keys, nil, false, nil
	}
	values, err := it.Values()
	if err != nil {
		return nil, nil, false, err
	}
	return keys, values, true, nil
}

func (t *BTree[K, V]) pairs() ([]K, []V, bool, error) {
	if t == nil {
		return nil, nil, false, nil
	}
	items, err := t.Items(nil, nil, false, false)
	if err != nil {
		return nil, nil, false, err
	}
	return items.pairs()
}

func seqPairs[K, V any](s Sequence[K, V]) ([]K, []V, bool, error) {
	if s == nil {
		return nil, nil, false, nil
	}
	return s.pairs()
}

// setOperation is the merging sweep described in for matching
// keys it takes v1 unmodified (no weighting); weighted variants are in
// weightedSetOperation below. c1/c12/c2 select which of the three key
// relationships (k1<k2, k1==k2, k1>k2) contribute to the result.
func setOperation[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], s1, s2 Sequence[K, V], c1, c12, c2 bool) (*Bucket[K, V], error) {
	k1, v1, hasV1, err := seqPairs(s1)
	if err != nil {
		return nil, err
	}
	k2, v2, hasV2, err := seqPairs(s2)
	if err != nil {
		return nil, err
	}
	if hasV1 != hasV2 && len(k1) > 0 && len(k2) > 0 {
		return nil, ErrValueMismatch
	}
	withValues := hasV1 || hasV2

	var result *Bucket[K, V]
	if withValues {
		result = NewBucket[K, V](keyOps, valOps)
	} else {
		result = &Bucket[K, V]{keyOps: keyOps, valOps: valOps, noval: true}
		result.resolver = GhostBucketResolver[K, V]{KeyOps: keyOps, ValOps: valOps, NoVal: true}
		result.Header.Init(result)
	}

	emit := func(k K, v V) {
		result.keys = append(result.keys, k)
		if withValues {
			result.values = append(result.values, v)
		}
	}

	i1, i2 := 0, 0
	for i1 < len(k1) && i2 < len(k2) {
		cmp := keyOps.Compare(k1[i1], k2[i2])
		switch {
		case cmp < 0:
			if c1 {
				var v V
				if withValues && hasV1 {
					v = v1[i1]
				}
				emit(k1[i1], v)
			}
			i1++
		case cmp == 0:
			if c12 {
				var v V
				if withValues && hasV1 {
					v = v1[i1]
				}
				emit(k1[i1], v)
			}
			i1++
			i2++
		default:
			if c2 {
				var v V
				if withValues && hasV2 {
					v = v2[i2]
				}
				emit(k2[i2], v)
			}
			i2++
		}
	}
	if c1 {
		for ; i1 < len(k1); i1++ {
			var v V
			if withValues && hasV1 {
				v = v1[i1]
			}
			emit(k1[i1], v)
		}
	}
	if c2 {
		for ; i2 < len(k2); i2++ {
			var v V
			if withValues && hasV2 {
				v = v2[i2]
			}
			emit(k2[i2], v)
		}
	}
	return result, nil
}

// weightedSetOperation is setOperation with per-side scaling and value
// addition on the intersection column.
func weightedSetOperation[K, V any](keyOps common.KeyOps[K], valOps common.WeighableValueOps[V], s1, s2 Sequence[K, V], w1, w2 int, c1, c12, c2 bool) (*Bucket[K, V], error) {
	k1, v1, _, err := seqPairs(s1)
	if err != nil {
		return nil, err
	}
	k2, v2, _, err := seqPairs(s2)
	if err != nil {
		return nil, err
	}

	result := NewBucket[K, V](keyOps, valOps)

	i1, i2 := 0, 0
	for i1 < len(k1) && i2 < len(k2) {
		cmp := keyOps.Compare(k1[i1], k2[i2])
		switch {
		case cmp < 0:
			if c1 {
				result.keys = append(result.keys, k1[i1])
				result.values = append(result.values, valOps.Scale(v1[i1], w1))
			}
			i1++
		case cmp == 0:
			if c12 {
				result.keys = append(result.keys, k1[i1])
				result.values = append(result.values, valOps.Add(valOps.Scale(v1[i1], w1), valOps.Scale(v2[i2], w2)))
			}
			i1++
			i2++
		default:
			if c2 {
				result.keys = append(result.keys, k2[i2])
				result.values = append(result.values, valOps.Scale(v2[i2], w2))
			}
			i2++
		}
	}
	if c1 {
		for ; i1 < len(k1); i1++ {
			result.keys = append(result.keys, k1[i1])
			result.values = append(result.values, valOps.Scale(v1[i1], w1))
		}
	}
	if c2 {
		for ; i2 < len(k2); i2++ {
			result.keys = append(result.keys, k2[i2])
			result.values = append(result.values, valOps.Scale(v2[i2], w2))
		}
	}
	return result, nil
}

// Union, Intersection, and Difference are setOperation with the fixed
// column flags for each.
func Union[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b Sequence[K, V]) (*Bucket[K, V], error) {
	return setOperation(keyOps, valOps, a, b, true, true, true)
}

func Intersection[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b Sequence[K, V]) (*Bucket[K, V], error) {
	return setOperation(keyOps, valOps, a, b, false, true, false)
}

// Difference treats a nil b as identity.
func Difference[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b Sequence[K, V]) (*Bucket[K, V], error) {
	return setOperation(keyOps, valOps, a, b, true, false, false)
}

// WeightedUnion and WeightedIntersection return (weight, result); weight is
// always 1 here since combined-weight bookkeeping only matters when folding
// more than two operands, which this surface does not expose.
func WeightedUnion[K, V any](keyOps common.KeyOps[K], valOps common.WeighableValueOps[V], a, b Sequence[K, V], w1, w2 int) (int, *Bucket[K, V], error) {
	r, err := weightedSetOperation(keyOps, valOps, a, b, w1, w2, true, true, true)
	return 1, r, err
}

func WeightedIntersection[K, V any](keyOps common.KeyOps[K], valOps common.WeighableValueOps[V], a, b Sequence[K, V], w1, w2 int) (int, *Bucket[K, V], error) {
	r, err := weightedSetOperation(keyOps, valOps, a, b, w1, w2, false, true, false)
	return 1, r, err
}
