package btree

import (
	"sort"

	"github.com/lunfardo314/btrees/common"
)

// Mapping wraps a *BTree with the ergonomic surface from subscript
// semantics (Get/Set/Delete), range-keyword iteration, and the
// insert/update/clear helpers. BTree itself stays at the lower, recursive
// level (Get/Set/HasKey/growAt/...); Mapping is the thing application code
// is expected to hold.
type Mapping[K, V any] struct {
	t *BTree[K, V]
}

// NewMapping wraps an existing tree, or one freshly built with NewBTree.
func NewMapping[K, V any](t *BTree[K, V]) *Mapping[K, V] {
	return &Mapping[K, V]{t: t}
}

// Tree returns the underlying BTree, for callers that need direct access
// (serialization, cache registration, merge).
func (m *Mapping[K, V]) Tree() *BTree[K, V] { return m.t }

// Get returns ErrKeyNotFound on a miss, matching subscript (`m[k]`) and
// `del m[k]` semantics.
func (m *Mapping[K, V]) Get(key K) (V, error) {
	v, ok, err := m.t.Get(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return v, nil
}

// GetWithDefault is `m.get(k, d)`: never raises on miss.
func (m *Mapping[K, V]) GetWithDefault(key K, def V) (V, error) {
	v, ok, err := m.t.Get(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Set is `m[k] = v`.
func (m *Mapping[K, V]) Set(key K, value V) error {
	_, err := m.t.Set(key, value, true, false)
	return err
}

// Delete is `del m[k]`: raises ErrKeyNotFound on miss.
func (m *Mapping[K, V]) Delete(key K) error {
	return m.t.Remove(key)
}

// Has is `k in m`: never raises on miss.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	return m.t.HasKey(key)
}

// HasKey is the integer-returning alias of Has.
func (m *Mapping[K, V]) HasKey(key K) (int, error) {
	ok, err := m.t.HasKey(key)
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// Depth reports how many interior levels were crossed to reach key, with a
// hit in the top tree's own child bucket counting as depth 1.
func (m *Mapping[K, V]) Depth(key K) (int, bool, error) {
	return m.t.Depth(key)
}

// Len activates the bucket chain to count keys.
func (m *Mapping[K, V]) Len() (int, error) {
	return m.t.Len()
}

// Insert is set-if-absent; returns true if a new key was added, false if
// key was already present (value unchanged).
func (m *Mapping[K, V]) Insert(key K, value V) (bool, error) {
	return m.t.Insert(key, value)
}

// Update bulk-inserts pairs, overwriting any key already present.
func (m *Mapping[K, V]) Update(pairs []Pair[K, V]) error {
	for _, p := range pairs {
		if err := m.Set(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clear empties the mapping by discarding the current tree's root and
// rebuilding a fresh one with the same parameters.
func (m *Mapping[K, V]) Clear() {
	m.t = newBareBTree(m.t.keyOps, m.t.valOps, m.t.noval, m.t.maxBucketSize, m.t.maxBTreeSize, m.t.bucketResolver, m.t.treeResolver)
	m.t.Header.Init(m.t)
}

// RangeOpts carries the min/max/excludemin/excludemax keyword options
// common to keys/values/items.
type RangeOpts[K any] struct {
	Min, Max             *K
	ExcludeMin, ExcludeMax bool
}

func (m *Mapping[K, V]) items(opt RangeOpts[K]) (*BTreeItems[K, V], error) {
	return m.t.Items(opt.Min, opt.Max, opt.ExcludeMin, opt.ExcludeMax)
}

// Keys returns the ordered keys in the given range.
func (m *Mapping[K, V]) Keys(opt RangeOpts[K]) ([]K, error) {
	it, err := m.items(opt)
	if err != nil {
		return nil, err
	}
	return it.Keys()
}

// Values returns the ordered values in the given range.
func (m *Mapping[K, V]) Values(opt RangeOpts[K]) ([]V, error) {
	it, err := m.items(opt)
	if err != nil {
		return nil, err
	}
	return it.Values()
}

// Items returns the ordered (key, value) pairs in the given range.
func (m *Mapping[K, V]) Items(opt RangeOpts[K]) ([]Pair[K, V], error) {
	it, err := m.items(opt)
	if err != nil {
		return nil, err
	}
	return it.Pairs()
}

// IterKeys, IterValues, and IterItems return the lazy cursor directly
// instead of a materialized slice; advancing the cursor activates buckets on demand.
func (m *Mapping[K, V]) IterKeys(opt RangeOpts[K]) (*BTreeItems[K, V], error) {
	return m.items(opt)
}
func (m *Mapping[K, V]) IterValues(opt RangeOpts[K]) (*BTreeItems[K, V], error) {
	return m.items(opt)
}
func (m *Mapping[K, V]) IterItems(opt RangeOpts[K]) (*BTreeItems[K, V], error) {
	return m.items(opt)
}

// MinKey and MaxKey delegate to the tree's boundary lookup, optionally
// bounded below/above.
func (m *Mapping[K, V]) MinKey(lo *K) (K, error) { return m.t.MinKey(lo) }
func (m *Mapping[K, V]) MaxKey(hi *K) (K, error) { return m.t.MaxKey(hi) }

// ByValue returns (value, key) pairs with value >= threshold, sorted
// descending by value. This necessarily scans the whole mapping since
// values carry no separate index.
func (m *Mapping[K, V]) ByValue(threshold V, less func(a, b V) bool) ([]Pair[V, K], error) {
	items, err := m.t.Items(nil, nil, false, false)
	if err != nil {
		return nil, err
	}
	pairs, err := items.Pairs()
	if err != nil {
		return nil, err
	}
	var out []Pair[V, K]
	for _, p := range pairs {
		if !less(p.Value, threshold) {
			out = append(out, Pair[V, K]{Key: p.Value, Value: p.Key})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[j].Key, out[i].Key)
	})
	return out, nil
}

// MappingUnion, MappingIntersection, and MappingDifference wrap the
// module-level set algebra to operate directly on Mappings, returning a
// fresh bucket built from the merged result.
func MappingUnion[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b *Mapping[K, V]) (*Bucket[K, V], error) {
	return Union[K, V](keyOps, valOps, seqOf(a), seqOf(b))
}

func MappingIntersection[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b *Mapping[K, V]) (*Bucket[K, V], error) {
	return Intersection[K, V](keyOps, valOps, seqOf(a), seqOf(b))
}

func MappingDifference[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], a, b *Mapping[K, V]) (*Bucket[K, V], error) {
	return Difference[K, V](keyOps, valOps, seqOf(a), seqOf(b))
}

func seqOf[K, V any](m *Mapping[K, V]) Sequence[K, V] {
	if m == nil {
		return nil
	}
	return m.t
}

// SetCollection is the Set/TreeSet surface: the same Mapping underneath,
// instantiated with V = struct{} and noval set, with the value parameter
// dropped from every operation.
type SetCollection[K any] struct {
	m *Mapping[K, struct{}]
}

// NewSetCollection wraps a *BTree[K, struct{}] built with NewTreeSet.
func NewSetCollection[K any](t *BTree[K, struct{}]) *SetCollection[K] {
	return &SetCollection[K]{m: NewMapping(t)}
}

func (s *SetCollection[K]) Tree() *BTree[K, struct{}] { return s.m.t }

func (s *SetCollection[K]) Has(key K) (bool, error) { return s.m.Has(key) }

func (s *SetCollection[K]) Len() (int, error) { return s.m.Len() }

// Insert adds key, returning true if it was not already present.
func (s *SetCollection[K]) Insert(key K) (bool, error) {
	return s.m.Insert(key, struct{}{})
}

// Remove deletes key, raising ErrKeyNotFound on miss.
func (s *SetCollection[K]) Remove(key K) error {
	return s.m.Delete(key)
}

func (s *SetCollection[K]) Keys(opt RangeOpts[K]) ([]K, error) {
	return s.m.Keys(opt)
}

func (s *SetCollection[K]) MinKey(lo *K) (K, error) { return s.m.MinKey(lo) }
func (s *SetCollection[K]) MaxKey(hi *K) (K, error) { return s.m.MaxKey(hi) }

func (s *SetCollection[K]) Clear() { s.m.Clear() }
