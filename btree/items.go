package btree

import "github.com/lunfardo314/btrees/common"

// Pair is a materialized (key, value) entry, returned by BTreeItems.Pairs
// and by items() on a mapping.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// BTreeItems is the ordered iterator over a bucket-chain range.
// A nil firstbucket denotes an empty range.
type BTreeItems[K, V any] struct {
	keyOps common.KeyOps[K]
	valOps common.ValueOps[V]
	noval  bool

	firstbucket *Bucket[K, V]
	first       int
	lastbucket  *Bucket[K, V]
	last        int

	currentbucket *Bucket[K, V]
	currentoffset int
	pseudoindex   int
}

func newBTreeItems[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], noval bool, firstB *Bucket[K, V], firstOff int, lastB *Bucket[K, V], lastOff int) (*BTreeItems[K, V], error) {
	return &BTreeItems[K, V]{
		keyOps:        keyOps,
		valOps:        valOps,
		noval:         noval,
		firstbucket:   firstB,
		first:         firstOff,
		lastbucket:    lastB,
		last:          lastOff,
		currentbucket: firstB,
		currentoffset: firstOff,
	}, nil
}

func newEmptyItems[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], noval bool) *BTreeItems[K, V] {
	return &BTreeItems[K, V]{keyOps: keyOps, valOps: valOps, noval: noval}
}

// NonEmpty reports whether the range holds at least one entry.
func (it *BTreeItems[K, V]) NonEmpty() bool { return it.firstbucket != nil }

func (it *BTreeItems[K, V]) previousBucket(target *Bucket[K, V]) (*Bucket[K, V], error) {
	cur := it.firstbucket
	for cur != nil {
		nxt, err := cur.NextBucket()
		if err != nil {
			return nil, err
		}
		if nxt == target {
			return cur, nil
		}
		cur = nxt
	}
	return nil, nil
}

// Seek repositions the cursor to logical index i, re-anchoring at either end
// when i and the current pseudoindex have opposite signs, then walking the
// delta. i == -1 addresses the last element.
func (it *BTreeItems[K, V]) Seek(i int) error {
	if it.firstbucket == nil {
		return ErrIndexOutOfRange
	}
	if i >= 0 && it.pseudoindex < 0 {
		it.currentbucket = it.firstbucket
		it.currentoffset = it.first
		it.pseudoindex = 0
	} else if i < 0 && it.pseudoindex >= 0 {
		it.currentbucket = it.lastbucket
		it.currentoffset = it.last
		it.pseudoindex = -1
	}

	delta := i - it.pseudoindex
	for delta > 0 {
		if it.currentbucket == it.lastbucket && it.currentoffset >= it.last {
			return ErrIndexOutOfRange
		}
		if it.currentoffset+1 < len(it.currentbucket.keys) {
			it.currentoffset++
		} else {
			nxt, err := it.currentbucket.NextBucket()
			if err != nil {
				return err
			}
			if nxt == nil {
				return ErrIndexOutOfRange
			}
			if err := nxt.Activate(); err != nil {
				return err
			}
			it.currentbucket = nxt
			it.currentoffset = 0
		}
		it.pseudoindex++
		delta--
	}
	for delta < 0 {
		if it.currentbucket == it.firstbucket && it.currentoffset <= it.first {
			return ErrIndexOutOfRange
		}
		if it.currentoffset > 0 {
			it.currentoffset--
		} else {
			prev, err := it.previousBucket(it.currentbucket)
			if err != nil {
				return err
			}
			if prev == nil {
				return ErrIndexOutOfRange
			}
			if err := prev.Activate(); err != nil {
				return err
			}
			it.currentbucket = prev
			it.currentoffset = len(prev.keys) - 1
		}
		it.pseudoindex--
		delta++
	}
	return nil
}

// Item seeks to i and returns the key, value, or both depending on kind
// ('k', 'v', 'i'); hasValue is true only for 'i' (for 'v' the value is in v
// while hasValue is false). A set iterator (noval) rejects 'v' and 'i'.
func (it *BTreeItems[K, V]) Item(i int, kind byte) (k K, v V, hasValue bool, err error) {
	if err = it.Seek(i); err != nil {
		return k, v, false, err
	}
	k = it.currentbucket.keys[it.currentoffset]
	if kind == 'k' {
		return k, v, false, nil
	}
	if it.noval {
		return k, v, false, ErrValueMismatch
	}
	v = it.currentbucket.values[it.currentoffset]
	return k, v, kind == 'i', nil
}

// Slice returns a new iterator over [ilow, ihigh], sharing bucket ownership
// with the parent.
func (it *BTreeItems[K, V]) Slice(ilow, ihigh int) (*BTreeItems[K, V], error) {
	low := *it
	if err := low.Seek(ilow); err != nil {
		return nil, err
	}
	high := *it
	if err := high.Seek(ihigh); err != nil {
		return nil, err
	}
	return &BTreeItems[K, V]{
		keyOps:        it.keyOps,
		valOps:        it.valOps,
		noval:         it.noval,
		firstbucket:   low.currentbucket,
		first:         low.currentoffset,
		lastbucket:    high.currentbucket,
		last:          high.currentoffset,
		currentbucket: low.currentbucket,
		currentoffset: low.currentoffset,
	}, nil
}

// Length walks the bucket chain summing lengths within range.
func (it *BTreeItems[K, V]) Length() (int, error) {
	if it.firstbucket == nil {
		return 0, nil
	}
	if it.firstbucket == it.lastbucket {
		return it.last - it.first + 1, nil
	}
	total := len(it.firstbucket.keys) - it.first
	cur, err := it.firstbucket.NextBucket()
	if err != nil {
		return 0, err
	}
	for cur != nil && cur != it.lastbucket {
		if err := cur.Activate(); err != nil {
			return 0, err
		}
		total += len(cur.keys)
		if cur, err = cur.NextBucket(); err != nil {
			return 0, err
		}
	}
	if cur == it.lastbucket && cur != nil {
		if err := cur.Activate(); err != nil {
			return 0, err
		}
		total += it.last + 1
	}
	return total, nil
}

func (it *BTreeItems[K, V]) forEach(fn func(K, V) error) error {
	if it.firstbucket == nil {
		return nil
	}
	cur := it.firstbucket
	startIdx := it.first
	for cur != nil {
		if err := cur.Activate(); err != nil {
			return err
		}
		endIdx := len(cur.keys) - 1
		if cur == it.lastbucket {
			endIdx = it.last
		}
		for i := startIdx; i <= endIdx && i < len(cur.keys); i++ {
			var v V
			if !it.noval {
				v = cur.values[i]
			}
			if err := fn(cur.keys[i], v); err != nil {
				return err
			}
		}
		if cur == it.lastbucket {
			break
		}
		nxt, err := cur.NextBucket()
		if err != nil {
			return err
		}
		cur = nxt
		startIdx = 0
	}
	return nil
}

// Keys, Values, and Pairs materialize the range.
func (it *BTreeItems[K, V]) Keys() ([]K, error) {
	var out []K
	err := it.forEach(func(k K, _ V) error {
		out = append(out, k)
		return nil
	})
	return out, err
}

func (it *BTreeItems[K, V]) Values() ([]V, error) {
	if it.noval {
		return nil, ErrValueMismatch
	}
	var out []V
	err := it.forEach(func(_ K, v V) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func (it *BTreeItems[K, V]) Pairs() ([]Pair[K, V], error) {
	if it.noval {
		return nil, ErrValueMismatch
	}
	var out []Pair[K, V]
	err := it.forEach(func(k K, v V) error {
		out = append(out, Pair[K, V]{Key: k, Value: v})
		return nil
	})
	return out, err
}
