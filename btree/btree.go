package btree

import (
	"io"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/persist"
	"golang.org/x/xerrors"
)

// DefaultMaxBucketSize and DefaultMaxBTreeSize are the thresholds a BTree
// built with NewBTree/NewTreeSet uses unless overridden.
const (
	DefaultMaxBucketSize = 60
	DefaultMaxBTreeSize  = 500
)

// child is implemented by *Bucket[K,V] and *BTree[K,V]; a BTree's data
// slots hold one or the other, never a mix.
type child[K, V any] interface {
	persist.Persistent
	length() int
	firstBucket() (*Bucket[K, V], error)
	lastBucket() (*Bucket[K, V], error)
}

type btEntry[K, V any] struct {
	key      K // data[0].key is unused; routing relies only on the child pointer
	child    child[K, V]
	childOID common.OID
}

// BTreeResolver lazily materializes a ghost interior child from its oid,
// mirroring BucketResolver at the interior-node level.
type BTreeResolver[K, V any] interface {
	ResolveBTree(jar persist.Jar, oid common.OID) (*BTree[K, V], error)
}

// GhostBTreeResolver is the default BTreeResolver.
type GhostBTreeResolver[K, V any] struct {
	KeyOps         common.KeyOps[K]
	ValOps         common.ValueOps[V]
	NoVal          bool
	MaxBucketSize  int
	MaxBTreeSize   int
	BucketResolver BucketResolver[K, V]
}

func (r GhostBTreeResolver[K, V]) ResolveBTree(jar persist.Jar, oid common.OID) (*BTree[K, V], error) {
	t := newBareBTree(r.KeyOps, r.ValOps, r.NoVal, r.MaxBucketSize, r.MaxBTreeSize, r.BucketResolver, r)
	t.Header.InitGhost(t, jar, oid)
	return t, nil
}

// BTree is an interior node routing to Bucket or BTree children via a sorted
// separator array, caching a pointer to the subtree's leftmost bucket.
type BTree[K, V any] struct {
	persist.Header

	keyOps common.KeyOps[K]
	valOps common.ValueOps[V]
	noval  bool

	maxBucketSize int
	maxBTreeSize  int

	data        []btEntry[K, V]
	childIsLeaf bool

	firstbucket    *Bucket[K, V]
	firstbucketOID common.OID

	bucketResolver BucketResolver[K, V]
	treeResolver   BTreeResolver[K, V]
}

func newBareBTree[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], noval bool, maxBucketSize, maxBTreeSize int, br BucketResolver[K, V], tr BTreeResolver[K, V]) *BTree[K, V] {
	return &BTree[K, V]{
		keyOps:         keyOps,
		valOps:         valOps,
		noval:          noval,
		maxBucketSize:  maxBucketSize,
		maxBTreeSize:   maxBTreeSize,
		bucketResolver: br,
		treeResolver:   tr,
	}
}

// NewBTree creates a transient, empty mapping BTree. maxBucketSize/
// maxBTreeSize of 0 select the defaults.
func NewBTree[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], maxBucketSize, maxBTreeSize int) *BTree[K, V] {
	if maxBucketSize <= 0 {
		maxBucketSize = DefaultMaxBucketSize
	}
	if maxBTreeSize <= 0 {
		maxBTreeSize = DefaultMaxBTreeSize
	}
	br := GhostBucketResolver[K, V]{KeyOps: keyOps, ValOps: valOps}
	tr := GhostBTreeResolver[K, V]{KeyOps: keyOps, ValOps: valOps, MaxBucketSize: maxBucketSize, MaxBTreeSize: maxBTreeSize, BucketResolver: br}
	t := newBareBTree(keyOps, valOps, false, maxBucketSize, maxBTreeSize, br, tr)
	t.Header.Init(t)
	return t
}

// NewTreeSet creates a transient, empty value-less BTree.
func NewTreeSet[K any](keyOps common.KeyOps[K], maxBucketSize, maxBTreeSize int) *BTree[K, struct{}] {
	if maxBucketSize <= 0 {
		maxBucketSize = DefaultMaxBucketSize
	}
	if maxBTreeSize <= 0 {
		maxBTreeSize = DefaultMaxBTreeSize
	}
	br := GhostBucketResolver[K, struct{}]{KeyOps: keyOps, NoVal: true}
	tr := GhostBTreeResolver[K, struct{}]{KeyOps: keyOps, NoVal: true, MaxBucketSize: maxBucketSize, MaxBTreeSize: maxBTreeSize, BucketResolver: br}
	t := newBareBTree(keyOps, nil, true, maxBucketSize, maxBTreeSize, br, tr)
	t.Header.Init(t)
	return t
}

func (t *BTree[K, V]) length() int { return len(t.data) }

func (t *BTree[K, V]) Len() (int, error) {
	if err := t.Activate(); err != nil {
		return 0, err
	}
	items, err := t.Items(nil, nil, false, false)
	if err != nil {
		return 0, err
	}
	return items.Length()
}

func (t *BTree[K, V]) newSibling() *BTree[K, V] {
	s := newBareBTree(t.keyOps, t.valOps, t.noval, t.maxBucketSize, t.maxBTreeSize, t.bucketResolver, t.treeResolver)
	s.Header.Init(s)
	return s
}

func (t *BTree[K, V]) newChildBucket() *Bucket[K, V] {
	b := &Bucket[K, V]{keyOps: t.keyOps, valOps: t.valOps, noval: t.noval, resolver: t.bucketResolver}
	b.Header.Init(b)
	return b
}

// OnGhostify drops all resident children. firstbucketOID is retained so a subsequent activate can
// re-resolve it without walking the tree.
func (t *BTree[K, V]) OnGhostify() {
	t.data = nil
	t.childIsLeaf = false
	t.firstbucket = nil
}

// PersistentChildren reports every currently-resident child and the cached
// firstbucket, so a jar's commit walk can discover not-yet-persisted nodes
// reachable from this one (persist.ChildrenLister). A child equal to
// firstbucket is harmless to list twice: the second visit finds it already
// oid-assigned and is a no-op.
func (t *BTree[K, V]) PersistentChildren() []persist.Persistent {
	out := make([]persist.Persistent, 0, len(t.data)+1)
	for _, e := range t.data {
		if e.child != nil {
			out = append(out, e.child)
		}
	}
	if t.firstbucket != nil {
		out = append(out, t.firstbucket)
	}
	return out
}

func (t *BTree[K, V]) getChild(i int) (child[K, V], error) {
	e := &t.data[i]
	if e.child != nil {
		return e.child, nil
	}
	if e.childOID.IsNil() {
		return nil, ErrNoResolver
	}
	jar := t.PJar()
	if t.childIsLeaf {
		b, err := t.bucketResolver.ResolveBucket(jar, e.childOID)
		if err != nil {
			return nil, err
		}
		e.child = b
		return b, nil
	}
	sub, err := t.treeResolver.ResolveBTree(jar, e.childOID)
	if err != nil {
		return nil, err
	}
	e.child = sub
	return sub, nil
}

// search returns the largest index i such that data[i] is the correct
// routing slot for key: data[0] catches anything
// strictly less than data[1].key. Returns -1 for an empty tree.
func (t *BTree[K, V]) search(key K) int {
	if len(t.data) == 0 {
		return -1
	}
	lo, hi := 1, len(t.data)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.keyOps.Compare(t.data[mid].key, key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

func (t *BTree[K, V]) computeFirstBucket() (*Bucket[K, V], error) {
	if len(t.data) == 0 {
		return nil, nil
	}
	c, err := t.getChild(0)
	if err != nil {
		return nil, err
	}
	return c.firstBucket()
}

func (t *BTree[K, V]) firstBucket() (*Bucket[K, V], error) {
	if t.firstbucket != nil {
		return t.firstbucket, nil
	}
	if !t.firstbucketOID.IsNil() {
		b, err := t.bucketResolver.ResolveBucket(t.PJar(), t.firstbucketOID)
		if err != nil {
			return nil, err
		}
		t.firstbucket = b
		return b, nil
	}
	return t.computeFirstBucket()
}

func (t *BTree[K, V]) lastBucket() (*Bucket[K, V], error) {
	if len(t.data) == 0 {
		return nil, nil
	}
	c, err := t.getChild(len(t.data) - 1)
	if err != nil {
		return nil, err
	}
	return c.lastBucket()
}

// FirstBucket and LastBucket activate the tree and return the leftmost /
// rightmost leaf.
func (t *BTree[K, V]) FirstBucket() (*Bucket[K, V], error) {
	if err := t.Activate(); err != nil {
		return nil, err
	}
	return t.firstBucket()
}

func (t *BTree[K, V]) LastBucket() (*Bucket[K, V], error) {
	if err := t.Activate(); err != nil {
		return nil, err
	}
	return t.lastBucket()
}

// Get returns the value stored at key.
func (t *BTree[K, V]) Get(key K) (V, bool, error) {
	var zero V
	if err := t.Activate(); err != nil {
		return zero, false, err
	}
	i := t.search(key)
	if i < 0 {
		return zero, false, nil
	}
	c, err := t.getChild(i)
	if err != nil {
		return zero, false, err
	}
	switch node := c.(type) {
	case *Bucket[K, V]:
		return node.Get(key)
	case *BTree[K, V]:
		return node.Get(key)
	}
	return zero, false, xerrors.New("btree: unknown child type")
}

func (t *BTree[K, V]) HasKey(key K) (bool, error) {
	if err := t.Activate(); err != nil {
		return false, err
	}
	i := t.search(key)
	if i < 0 {
		return false, nil
	}
	c, err := t.getChild(i)
	if err != nil {
		return false, err
	}
	switch node := c.(type) {
	case *Bucket[K, V]:
		return node.HasKey(key)
	case *BTree[K, V]:
		return node.HasKey(key)
	}
	return false, xerrors.New("btree: unknown child type")
}

// Depth reports how many interior levels were crossed to find key, with the
// leaf bucket counting as depth 1. A caller that only needs presence should
// use HasKey; Depth exists for diagnostics that want to distinguish a
// shallow hit from one buried deep in an unbalanced subtree.
func (t *BTree[K, V]) Depth(key K) (int, bool, error) {
	if err := t.Activate(); err != nil {
		return 0, false, err
	}
	i := t.search(key)
	if i < 0 {
		return 0, false, nil
	}
	c, err := t.getChild(i)
	if err != nil {
		return 0, false, err
	}
	switch node := c.(type) {
	case *Bucket[K, V]:
		ok, err := node.HasKey(key)
		if err != nil || !ok {
			return 0, false, err
		}
		return 1, true, nil
	case *BTree[K, V]:
		depth, ok, err := node.Depth(key)
		if err != nil || !ok {
			return 0, false, err
		}
		return depth + 1, true, nil
	}
	return 0, false, xerrors.New("btree: unknown child type")
}

func (t *BTree[K, V]) maxChildSize() int {
	if t.childIsLeaf {
		return t.maxBucketSize
	}
	return t.maxBTreeSize
}

// Set inserts, replaces, or deletes key depending on hasValue/unique, with
// recursive grow/clone rebalancing.
func (t *BTree[K, V]) Set(key K, value V, hasValue, unique bool) (bool, error) {
	if err := t.Activate(); err != nil {
		return false, err
	}

	if len(t.data) == 0 {
		if !hasValue {
			return false, ErrKeyNotFound
		}
		if err := t.ChangeNotify(); err != nil {
			return false, err
		}
		b := t.newChildBucket()
		if _, err := b.Set(key, value, true, unique); err != nil {
			return false, err
		}
		t.data = []btEntry[K, V]{{child: b}}
		t.childIsLeaf = true
		t.firstbucket = b
		t.firstbucketOID = common.NilOID
		return true, nil
	}

	i := t.search(key)
	c, err := t.getChild(i)
	if err != nil {
		return false, err
	}

	var grew bool
	var emptied bool
	switch node := c.(type) {
	case *Bucket[K, V]:
		grew, err = node.Set(key, value, hasValue, unique)
		if err != nil {
			return false, err
		}
		if !hasValue && node.length() == 0 {
			emptied = true
		}
	case *BTree[K, V]:
		grew, err = node.Set(key, value, hasValue, unique)
		if err != nil {
			return false, err
		}
		// emptied interior subtrees are left in place rather than spliced
		// out of the tree; only leaf buckets get unlinked on removal.
	default:
		return false, xerrors.New("btree: unknown child type")
	}

	if grew {
		if err := t.ChangeNotify(); err != nil {
			return false, err
		}
		if c.length() > t.maxChildSize() {
			if err := t.growAt(i); err != nil {
				return false, err
			}
		}
		if len(t.data) >= 2*t.maxBTreeSize {
			if err := t.clone(); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	if emptied {
		if err := t.ChangeNotify(); err != nil {
			return false, err
		}
		if err := t.reclaimEmptyChild(i); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func (t *BTree[K, V]) Insert(key K, value V) (bool, error) {
	return t.Set(key, value, true, true)
}

func (t *BTree[K, V]) Remove(key K) error {
	var zero V
	ok, err := t.Set(key, zero, false, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}
	return nil
}

// growAt splits the child at index i and inserts the new right sibling
// immediately after it.
func (t *BTree[K, V]) growAt(i int) error {
	c, err := t.getChild(i)
	if err != nil {
		return err
	}
	switch node := c.(type) {
	case *Bucket[K, V]:
		right, err := node.Split(0)
		if err != nil {
			return err
		}
		sep := right.keys[0]
		return t.insertChildAt(i+1, sep, right)
	case *BTree[K, V]:
		right, sep, err := node.splitSelf()
		if err != nil {
			return err
		}
		return t.insertChildAt(i+1, sep, right)
	}
	return xerrors.New("btree: unknown child type")
}

func (t *BTree[K, V]) insertChildAt(pos int, sep K, c child[K, V]) error {
	entry := btEntry[K, V]{key: sep, child: c, childOID: c.POID()}
	t.data = append(t.data, btEntry[K, V]{})
	copy(t.data[pos+1:], t.data[pos:])
	t.data[pos] = entry
	return nil
}

// splitSelf splits an overfull interior node into self (left half) and a new
// right sibling, returning the separator key for the caller to install in
// its own parent.
func (t *BTree[K, V]) splitSelf() (*BTree[K, V], K, error) {
	var zero K
	if err := t.ChangeNotify(); err != nil {
		return nil, zero, err
	}
	mid := len(t.data) / 2
	right := t.newSibling()
	right.data = append([]btEntry[K, V](nil), t.data[mid:]...)
	right.childIsLeaf = t.childIsLeaf
	t.data = t.data[:mid:mid]

	rightFirst, err := right.computeFirstBucket()
	if err != nil {
		return nil, zero, err
	}
	right.firstbucket = rightFirst
	if rightFirst == nil || len(rightFirst.keys) == 0 {
		return nil, zero, xerrors.New("btree: cannot split with an empty right sibling")
	}
	return right, rightFirst.keys[0], nil
}

// clone rebalances height by pushing self's children down into two new
// subtrees n1, n2, replacing self.data with a 2-slot array pointing at them
//.
func (t *BTree[K, V]) clone() error {
	if err := t.ChangeNotify(); err != nil {
		return err
	}
	mid := len(t.data) / 2
	n1 := t.newSibling()
	n2 := t.newSibling()
	n1.data = append([]btEntry[K, V](nil), t.data[:mid]...)
	n1.childIsLeaf = t.childIsLeaf
	n2.data = append([]btEntry[K, V](nil), t.data[mid:]...)
	n2.childIsLeaf = t.childIsLeaf

	fb1, err := n1.computeFirstBucket()
	if err != nil {
		return err
	}
	n1.firstbucket = fb1
	fb2, err := n2.computeFirstBucket()
	if err != nil {
		return err
	}
	n2.firstbucket = fb2
	if fb2 == nil || len(fb2.keys) == 0 {
		return xerrors.New("btree: cannot clone with an empty right half")
	}

	t.data = []btEntry[K, V]{
		{child: n1},
		{key: fb2.keys[0], child: n2},
	}
	t.childIsLeaf = false
	return nil
}

// reclaimEmptyChild removes a bucket child that Set just emptied, splicing
// it out of the linked list.
func (t *BTree[K, V]) reclaimEmptyChild(i int) error {
	if len(t.data) == 1 {
		t.data = nil
		t.childIsLeaf = false
		t.firstbucket = nil
		t.firstbucketOID = common.NilOID
		return nil
	}
	if i == 0 {
		t.data = t.data[1:]
		fb, err := t.computeFirstBucket()
		if err != nil {
			return err
		}
		t.firstbucket = fb
		t.firstbucketOID = common.NilOID
		return nil
	}
	predC, err := t.getChild(i - 1)
	if err != nil {
		return err
	}
	pred, ok := predC.(*Bucket[K, V])
	if ok {
		if err := pred.DeleteNextBucket(); err != nil {
			return err
		}
	}
	t.data = append(t.data[:i], t.data[i+1:]...)
	return nil
}

// Items builds the iterator spanning [min, max]. Since each
// Bucket.RangeSearch already collapses to an empty (0,-1) result when the
// bound falls outside that bucket's own keys, sweeping the bucket chain once
// and keeping the first/last bucket that produced a non-empty range finds
// the same boundaries as descending the tree twice, without duplicating the
// descent logic at both levels.
func (t *BTree[K, V]) Items(min, max *K, exclMin, exclMax bool) (*BTreeItems[K, V], error) {
	if err := t.Activate(); err != nil {
		return nil, err
	}
	fb, err := t.firstBucket()
	if err != nil {
		return nil, err
	}
	if fb == nil {
		return newEmptyItems(t.keyOps, t.valOps, t.noval), nil
	}

	var firstB, lastB *Bucket[K, V]
	var firstOff, lastOff int
	found := false

	cur := fb
	for cur != nil {
		if err := cur.Activate(); err != nil {
			return nil, err
		}
		lo, hi := cur.RangeSearch(min, max, exclMin, exclMax)
		if hi >= lo {
			if !found {
				firstB, firstOff = cur, lo
				found = true
			}
			lastB, lastOff = cur, hi
		}
		nxt, err := cur.NextBucket()
		if err != nil {
			return nil, err
		}
		cur = nxt
	}
	if !found {
		return newEmptyItems(t.keyOps, t.valOps, t.noval), nil
	}
	return newBTreeItems(t.keyOps, t.valOps, t.noval, firstB, firstOff, lastB, lastOff)
}

// MinKey and MaxKey return boundary keys. Empty
// tree, or no key satisfying the bound, raises ErrEmptyTree.
func (t *BTree[K, V]) MinKey(lo *K) (K, error) {
	var zero K
	items, err := t.Items(lo, nil, false, false)
	if err != nil {
		return zero, err
	}
	k, _, _, err := items.Item(0, 'k')
	if err != nil {
		return zero, ErrEmptyTree
	}
	return k, nil
}

func (t *BTree[K, V]) MaxKey(hi *K) (K, error) {
	var zero K
	items, err := t.Items(nil, hi, false, false)
	if err != nil {
		return zero, err
	}
	k, _, _, err := items.Item(-1, 'k')
	if err != nil {
		return zero, ErrEmptyTree
	}
	return k, nil
}

// GetState serializes the child/key tuple data plus the firstbucket oid.
func (t *BTree[K, V]) GetState(w io.Writer) error {
	kc, ok := t.keyOps.(common.KeyCodec[K])
	if !ok {
		return xerrors.New("btree: key type has no KeyCodec")
	}
	flag := byte(0)
	if t.noval {
		flag = 1
	}
	if t.childIsLeaf {
		flag |= 2
	}
	if err := common.WriteByte(w, flag); err != nil {
		return err
	}
	if err := common.WriteUint32(w, uint32(len(t.data))); err != nil {
		return err
	}
	for i, e := range t.data {
		oid := e.childOID
		if e.child != nil {
			oid = e.child.POID()
		}
		if i == 0 {
			if err := common.WriteByte(w, 0); err != nil {
				return err
			}
		} else {
			if err := common.WriteByte(w, 1); err != nil {
				return err
			}
			if err := kc.EncodeKey(w, e.key); err != nil {
				return err
			}
		}
		if _, err := w.Write(oid.Bytes()); err != nil {
			return err
		}
	}
	fb, err := t.firstBucket()
	if err != nil {
		return err
	}
	hasFB := byte(0)
	if fb != nil {
		hasFB = 1
	}
	if err := common.WriteByte(w, hasFB); err != nil {
		return err
	}
	if hasFB == 1 {
		if _, err := w.Write(fb.POID().Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// SetState deserializes what GetState wrote.
func (t *BTree[K, V]) SetState(r io.Reader) error {
	kc, ok := t.keyOps.(common.KeyCodec[K])
	if !ok {
		return xerrors.New("btree: key type has no KeyCodec")
	}
	flag, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	noval := flag&1 != 0
	childIsLeaf := flag&2 != 0

	var n uint32
	if err := common.ReadUint32(r, &n); err != nil {
		return err
	}
	data := make([]btEntry[K, V], n)
	for i := uint32(0); i < n; i++ {
		hasKey, err := common.ReadByte(r)
		if err != nil {
			return err
		}
		var key K
		if hasKey == 1 {
			key, err = kc.DecodeKey(r)
			if err != nil {
				return err
			}
		}
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		data[i] = btEntry[K, V]{key: key, childOID: common.OIDFromBytes(buf)}
	}
	hasFB, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	var fbOID common.OID
	if hasFB == 1 {
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		fbOID = common.OIDFromBytes(buf)
	}

	t.noval = noval
	t.childIsLeaf = childIsLeaf
	t.data = data
	t.firstbucket = nil
	t.firstbucketOID = fbOID
	t.Header.MarkResident()
	return nil
}
