package btree

import (
	"io"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/persist"
	"golang.org/x/xerrors"
)

// MinBucketAlloc is the initial backing capacity for a freshly grown empty
// bucket.
const MinBucketAlloc = 16

// BucketResolver lazily materializes the successor bucket referenced only by
// oid in a bucket's persisted state, as a fresh ghost.
type BucketResolver[K, V any] interface {
	ResolveBucket(jar persist.Jar, oid common.OID) (*Bucket[K, V], error)
}

// GhostBucketResolver is the default BucketResolver: it builds an inert
// ghost bound to the given jar/oid, leaving the jar's ordinary
// activate-on-first-touch path (persist.Header.Activate) to fill it in.
type GhostBucketResolver[K, V any] struct {
	KeyOps common.KeyOps[K]
	ValOps common.ValueOps[V]
	NoVal  bool
}

func (r GhostBucketResolver[K, V]) ResolveBucket(jar persist.Jar, oid common.OID) (*Bucket[K, V], error) {
	b := &Bucket[K, V]{keyOps: r.KeyOps, valOps: r.ValOps, noval: r.NoVal, resolver: r}
	b.Header.InitGhost(b, jar, oid)
	return b, nil
}

// Bucket is a leaf node: a sorted run of keys, and (unless noval) a parallel
// run of values, singly linked to its in-order successor.
type Bucket[K, V any] struct {
	persist.Header

	keyOps common.KeyOps[K]
	valOps common.ValueOps[V]
	noval  bool

	keys   []K
	values []V

	next     *Bucket[K, V]
	nextOID  common.OID
	resolver BucketResolver[K, V]
}

// NewBucket creates a transient mapping bucket.
func NewBucket[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V]) *Bucket[K, V] {
	b := &Bucket[K, V]{keyOps: keyOps, valOps: valOps}
	b.resolver = GhostBucketResolver[K, V]{KeyOps: keyOps, ValOps: valOps}
	b.Header.Init(b)
	return b
}

// NewSetBucket creates a transient value-less (set) bucket.
func NewSetBucket[K any](keyOps common.KeyOps[K]) *Bucket[K, struct{}] {
	b := &Bucket[K, struct{}]{keyOps: keyOps, noval: true}
	b.resolver = GhostBucketResolver[K, struct{}]{KeyOps: keyOps, NoVal: true}
	b.Header.Init(b)
	return b
}

func (b *Bucket[K, V]) SetResolver(r BucketResolver[K, V]) { b.resolver = r }

func (b *Bucket[K, V]) IsSet() bool { return b.noval }

func (b *Bucket[K, V]) length() int { return len(b.keys) }

func (b *Bucket[K, V]) firstBucket() (*Bucket[K, V], error) { return b, nil }
func (b *Bucket[K, V]) lastBucket() (*Bucket[K, V], error)  { return b, nil }

// PersistentChildren reports the successor bucket, if any, so a jar's
// commit walk can discover and assign it an oid (persist.ChildrenLister).
func (b *Bucket[K, V]) PersistentChildren() []persist.Persistent {
	if b.next == nil {
		return nil
	}
	return []persist.Persistent{b.next}
}

// OnGhostify drops resident payload"deactivate ... clearing
// keys/values/children". next is a persistent reference managed by its own
// header, so it survives this bucket's ghostification.
func (b *Bucket[K, V]) OnGhostify() {
	b.keys = nil
	b.values = nil
}

// NextBucket returns the successor bucket, materializing it as a ghost on
// first reference if only its oid is known.
func (b *Bucket[K, V]) NextBucket() (*Bucket[K, V], error) {
	if b.next != nil {
		return b.next, nil
	}
	if b.nextOID.IsNil() {
		return nil, nil
	}
	if b.resolver == nil {
		return nil, ErrNoResolver
	}
	jar := b.PJar()
	n, err := b.resolver.ResolveBucket(jar, b.nextOID)
	if err != nil {
		return nil, err
	}
	b.next = n
	return n, nil
}

// SetNextBucket links self to n, marking self changed (used by split and by
// callers rebuilding a chain).
func (b *Bucket[K, V]) SetNextBucket(n *Bucket[K, V]) error {
	if err := b.ChangeNotify(); err != nil {
		return err
	}
	b.next = n
	if n != nil {
		b.nextOID = n.POID()
	} else {
		b.nextOID = common.NilOID
	}
	return nil
}

// search performs the binary search described in returns the
// index of an exact match plus true, or the insertion point plus false.
func (b *Bucket[K, V]) search(key K) (int, bool) {
	lo, hi := 0, len(b.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.keyOps.Compare(b.keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(b.keys) && b.keyOps.Compare(b.keys[lo], key) == 0 {
		return lo, true
	}
	return lo, false
}

// Get activates the bucket and returns the value at key.
func (b *Bucket[K, V]) Get(key K) (V, bool, error) {
	var zero V
	if err := b.Activate(); err != nil {
		return zero, false, err
	}
	idx, ok := b.search(key)
	if !ok {
		return zero, false, nil
	}
	if b.noval {
		return zero, true, nil
	}
	return b.values[idx], true, nil
}

// HasKey returns the fixed truth value a BTree uses to encode search depth
//.
func (b *Bucket[K, V]) HasKey(key K) (bool, error) {
	if err := b.Activate(); err != nil {
		return false, err
	}
	_, ok := b.search(key)
	return ok, nil
}

// Set implements the mutation surface from "Set": hasValue=false
// requests a delete; unique forbids overwrite on hit. Returns whether the
// bucket's length changed (growth or shrinkage) as opposed to an in-place
// replacement.
func (b *Bucket[K, V]) Set(key K, value V, hasValue, unique bool) (grew bool, err error) {
	if err = b.Activate(); err != nil {
		return false, err
	}
	idx, present := b.search(key)

	if !hasValue {
		if !present {
			return false, ErrKeyNotFound
		}
		if err = b.ChangeNotify(); err != nil {
			return false, err
		}
		b.removeAt(idx)
		return true, nil
	}

	if present {
		if unique {
			return false, nil
		}
		if err = b.ChangeNotify(); err != nil {
			return false, err
		}
		if !b.noval {
			b.values[idx] = b.valOps.Copy(value)
		}
		return false, nil
	}

	if err = b.ChangeNotify(); err != nil {
		return false, err
	}
	b.insertAt(idx, key, value)
	return true, nil
}

// Insert is the set-if-absent convenience used by Mapping.Insert and the
// Set-bucket's insert(k).
func (b *Bucket[K, V]) Insert(key K, value V) (inserted bool, err error) {
	return b.Set(key, value, true, true)
}

// Remove deletes key, raising ErrKeyNotFound on a miss.
func (b *Bucket[K, V]) Remove(key K) error {
	var zero V
	_, err := b.Set(key, zero, false, false)
	return err
}

func (b *Bucket[K, V]) insertAt(i int, key K, value V) {
	if b.keys == nil {
		b.keys = make([]K, 0, MinBucketAlloc)
	}
	b.keys = append(b.keys, key)
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = b.keyOps.Copy(key)

	if !b.noval {
		if b.values == nil {
			b.values = make([]V, 0, MinBucketAlloc)
		}
		b.values = append(b.values, value)
		copy(b.values[i+1:], b.values[i:])
		b.values[i] = b.valOps.Copy(value)
	}
}

func (b *Bucket[K, V]) removeAt(i int) {
	copy(b.keys[i:], b.keys[i+1:])
	b.keys = b.keys[:len(b.keys)-1]
	if !b.noval {
		copy(b.values[i:], b.values[i+1:])
		b.values = b.values[:len(b.values)-1]
	}
}

// Split splits self at index i (or the midpoint if i <= 0 or i >= len),
// linking the new successor between self and self.next.
func (b *Bucket[K, V]) Split(i int) (*Bucket[K, V], error) {
	if err := b.Activate(); err != nil {
		return nil, err
	}
	if i <= 0 || i >= len(b.keys) {
		i = len(b.keys) / 2
	}
	if err := b.ChangeNotify(); err != nil {
		return nil, err
	}

	var right *Bucket[K, V]
	if b.noval {
		right = &Bucket[K, V]{keyOps: b.keyOps, valOps: b.valOps, noval: true, resolver: b.resolver}
	} else {
		right = &Bucket[K, V]{keyOps: b.keyOps, valOps: b.valOps, resolver: b.resolver}
	}
	right.Header.Init(right)

	right.keys = append([]K(nil), b.keys[i:]...)
	b.keys = b.keys[:i:i]
	if !b.noval {
		right.values = append([]V(nil), b.values[i:]...)
		b.values = b.values[:i:i]
	}

	next, err := b.NextBucket()
	if err != nil {
		return nil, err
	}
	if err := right.SetNextBucket(next); err != nil {
		return nil, err
	}
	if err := b.SetNextBucket(right); err != nil {
		return nil, err
	}
	return right, nil
}

// RangeSearch returns the inclusive [lo, hi] offset range into keys that
// satisfies the (optional) low/high bounds. An
// empty result is signaled as lo=0, hi=-1.
func (b *Bucket[K, V]) RangeSearch(lo, hi *K, exclLo, exclHi bool) (int, int) {
	loIdx := 0
	if lo != nil {
		loIdx, _ = b.search(*lo)
		if exclLo {
			if idx, ok := b.search(*lo); ok {
				loIdx = idx + 1
			} else {
				loIdx = idx
			}
		}
	}
	hiIdx := len(b.keys) - 1
	if hi != nil {
		idx, ok := b.search(*hi)
		if ok {
			if exclHi {
				hiIdx = idx - 1
			} else {
				hiIdx = idx
			}
		} else {
			hiIdx = idx - 1
		}
	}
	if loIdx > hiIdx {
		return 0, -1
	}
	return loIdx, hiIdx
}

// DeleteNextBucket unlinks self.next from the chain. No-op when next is nil.
func (b *Bucket[K, V]) DeleteNextBucket() error {
	next, err := b.NextBucket()
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	after, err := next.NextBucket()
	if err != nil {
		return err
	}
	return b.SetNextBucket(after)
}

// Keys/Values/Items return plain slices of the bucket's resident payload.
// Bucket-level iteration has no range concept of its own; BTreeItems (see
// items.go) is what spans ranges and crosses bucket boundaries.
func (b *Bucket[K, V]) Keys() ([]K, error) {
	if err := b.Activate(); err != nil {
		return nil, err
	}
	out := make([]K, len(b.keys))
	copy(out, b.keys)
	return out, nil
}

func (b *Bucket[K, V]) Values() ([]V, error) {
	if err := b.Activate(); err != nil {
		return nil, err
	}
	if b.noval {
		return nil, ErrValueMismatch
	}
	out := make([]V, len(b.values))
	copy(out, b.values)
	return out, nil
}

// GetState serializes the flat interleaved tuple plus next pointer.
func (b *Bucket[K, V]) GetState(w io.Writer) error {
	kc, ok := b.keyOps.(common.KeyCodec[K])
	if !ok {
		return xerrors.New("btree: key type has no KeyCodec")
	}
	var vc common.ValueCodec[V]
	if !b.noval {
		vc, ok = b.valOps.(common.ValueCodec[V])
		if !ok {
			return xerrors.New("btree: value type has no ValueCodec")
		}
	}

	flag := byte(0)
	if b.noval {
		flag = 1
	}
	if err := common.WriteByte(w, flag); err != nil {
		return err
	}
	if err := common.WriteUint32(w, uint32(len(b.keys))); err != nil {
		return err
	}
	for i := range b.keys {
		if err := kc.EncodeKey(w, b.keys[i]); err != nil {
			return err
		}
		if !b.noval {
			if err := vc.EncodeValue(w, b.values[i]); err != nil {
				return err
			}
		}
	}
	hasNext := byte(0)
	if !b.nextOID.IsNil() || b.next != nil {
		hasNext = 1
	}
	if err := common.WriteByte(w, hasNext); err != nil {
		return err
	}
	if hasNext == 1 {
		oid := b.nextOID
		if b.next != nil {
			oid = b.next.POID()
		}
		if _, err := w.Write(oid.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// SetState deserializes what GetState wrote, completing the Ghost ->
// UpToDate transition.
func (b *Bucket[K, V]) SetState(r io.Reader) error {
	kc, ok := b.keyOps.(common.KeyCodec[K])
	if !ok {
		return xerrors.New("btree: key type has no KeyCodec")
	}
	var vc common.ValueCodec[V]

	flag, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	noval := flag == 1
	if !noval {
		vc, ok = b.valOps.(common.ValueCodec[V])
		if !ok {
			return xerrors.New("btree: value type has no ValueCodec")
		}
	}
	var n uint32
	if err := common.ReadUint32(r, &n); err != nil {
		return err
	}
	keys := make([]K, n)
	var values []V
	if !noval {
		values = make([]V, n)
	}
	for i := uint32(0); i < n; i++ {
		k, err := kc.DecodeKey(r)
		if err != nil {
			return err
		}
		keys[i] = k
		if !noval {
			v, err := vc.DecodeValue(r)
			if err != nil {
				return err
			}
			values[i] = v
		}
	}
	hasNext, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	var nextOID common.OID
	if hasNext == 1 {
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		nextOID = common.OIDFromBytes(buf)
	}

	b.noval = noval
	b.keys = keys
	b.values = values
	b.next = nil
	b.nextOID = nextOID
	b.Header.MarkResident()
	return nil
}
