package btree

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lunfardo314/btrees/common"
)

// ConflictError is raised when bucketMerge cannot reconcile two divergent
// tips against their common ancestor. Reason is a stable code a caller can
// key on for telemetry.
type ConflictError struct {
	Pos1, Pos2, Pos3 int
	Reason           int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("btree: merge conflict at (%d,%d,%d), reason %d", e.Pos1, e.Pos2, e.Pos3, e.Reason)
}

// Conflict reason codes, preserved verbatim from the comparison-state-machine
// table: 1 both tips changed the same key differently; 2/3 a
// tip changed a key the other tip deleted; 4 both tips independently
// inserted the same new key, even if they agree on the value; 5 both tips
// deleted the same key while at least one iterator still has later
// elements; 9 both tips are fully exhausted while the ancestor still has a
// trailing key neither tip accounted for.
const (
	ConflictReasonBothChanged   = 1
	ConflictReasonChangeVsDelS3 = 2
	ConflictReasonChangeVsDelS2 = 3
	ConflictReasonDuelingInsert = 4
	ConflictReasonDuelingDelete = 5
	ConflictReasonOrphanTail    = 9
)

// bucketMerge implements the three-way sweep. At each step it finds the
// smallest of the three fronts (ancestor, tip one, tip two) and classifies
// the result by which side(s) currently hold that key, rather than working
// off a fixed pairwise lookup table keyed by which iterator is ahead of
// which. That keeps rows like "tip one inserts a smaller key while tip two
// independently deletes the ancestor's current key" well-defined instead of
// ambiguous.
func bucketMerge[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], noval bool,
	k1 []K, v1 []V, k2 []K, v2 []V, k3 []K, v3 []V) ([]K, []V, error) {

	n1, n2, n3 := len(k1), len(k2), len(k3)
	p1, p2, p3 := 0, 0, 0

	var outK []K
	var outV []V

	emit := func(k K, v V) {
		outK = append(outK, k)
		if !noval {
			outV = append(outV, v)
		}
	}
	eq := func(a, b V) bool {
		if noval {
			return true
		}
		return valOps.Equal(a, b)
	}

	for p1 < n1 || p2 < n2 || p3 < n3 {
		d1, d2, d3 := p1 >= n1, p2 >= n2, p3 >= n3

		var m K
		have := false
		consider := func(k K, done bool) {
			if done {
				return
			}
			if !have || keyOps.Compare(k, m) < 0 {
				m = k
				have = true
			}
		}
		if !d1 {
			consider(k1[p1], false)
		}
		if !d2 {
			consider(k2[p2], false)
		}
		if !d3 {
			consider(k3[p3], false)
		}

		in1 := !d1 && keyOps.Compare(k1[p1], m) == 0
		in2 := !d2 && keyOps.Compare(k2[p2], m) == 0
		in3 := !d3 && keyOps.Compare(k3[p3], m) == 0

		switch {
		case in1 && in2 && in3:
			switch {
			case eq(v2[p2], v1[p1]):
				emit(k3[p3], v3[p3])
			case eq(v3[p3], v1[p1]):
				emit(k2[p2], v2[p2])
			case eq(v2[p2], v3[p3]):
				emit(k2[p2], v2[p2])
			default:
				return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonBothChanged}
			}
			p1++
			p2++
			p3++

		case in1 && in2 && !in3:
			if eq(v2[p2], v1[p1]) {
				p1++
				p2++
				continue
			}
			return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonChangeVsDelS3}

		case in1 && !in2 && in3:
			if eq(v3[p3], v1[p1]) {
				p1++
				p3++
				continue
			}
			return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonChangeVsDelS2}

		case in1 && !in2 && !in3:
			if d2 && d3 {
				return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonOrphanTail}
			}
			return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonDuelingDelete}

		case !in1 && in2 && in3:
			return nil, nil, &ConflictError{Pos1: p1, Pos2: p2, Pos3: p3, Reason: ConflictReasonDuelingInsert}

		case !in1 && in2 && !in3:
			emit(k2[p2], v2[p2])
			p2++

		case !in1 && !in2 && in3:
			emit(k3[p3], v3[p3])
			p3++

		default:
			// m was the minimum of at least one non-exhausted front, so one
			// of the above must hold.
			panic("btree: unreachable merge state")
		}
	}
	return outK, outV, nil
}

// MergeBuckets performs a three-way merge of mapping buckets ancestor, a,
// and b, returning a freshly built result bucket or a *ConflictError.
func MergeBuckets[K, V any](keyOps common.KeyOps[K], valOps common.ValueOps[V], ancestor, a, b *Bucket[K, V]) (*Bucket[K, V], error) {
	noval := ancestor.noval
	// only each bucket's own run takes part; successors along next are not merged
	own := func(bk *Bucket[K, V]) ([]K, []V, error) {
		if err := bk.Activate(); err != nil {
			return nil, nil, err
		}
		return bk.keys, bk.values, nil
	}
	k1, v1, err := own(ancestor)
	if err != nil {
		return nil, err
	}
	k2, v2, err := own(a)
	if err != nil {
		return nil, err
	}
	k3, v3, err := own(b)
	if err != nil {
		return nil, err
	}

	outK, outV, err := bucketMerge(keyOps, valOps, noval, k1, v1, k2, v2, k3, v3)
	if err != nil {
		return nil, err
	}

	result := &Bucket[K, V]{keyOps: keyOps, valOps: valOps, noval: noval, resolver: ancestor.resolver}
	result.Header.Init(result)
	result.keys = outK
	if !noval {
		result.values = outV
	}
	// the result's next pointer is inherited from s1.next.
	result.next = ancestor.next
	result.nextOID = ancestor.nextOID
	return result, nil
}

// ResolveBucket deserializes three persisted bucket states, checks that the
// tips agree on the next-bucket pointer, merges, and serializes the result
//. newBucket constructs an empty,
// transient bucket of the caller's concrete K/V type to decode into.
func ResolveBucket[K, V any](newBucket func() *Bucket[K, V], ancestorState, aState, bState io.Reader) ([]byte, error) {
	anc := newBucket()
	if err := anc.SetState(ancestorState); err != nil {
		return nil, err
	}
	a := newBucket()
	if err := a.SetState(aState); err != nil {
		return nil, err
	}
	b := newBucket()
	if err := b.SetState(bState); err != nil {
		return nil, err
	}
	if a.nextOID != b.nextOID {
		return nil, ErrNextMismatch
	}

	merged, err := MergeBuckets(anc.keyOps, anc.valOps, anc, a, b)
	if err != nil {
		return nil, err
	}
	merged.next = nil
	merged.nextOID = a.nextOID

	var buf bytes.Buffer
	if err := merged.GetState(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
