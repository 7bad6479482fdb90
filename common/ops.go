package common

import "bytes"

// KeyOps supplies the total order and copy semantics for a BTree/Bucket key
// type. Every concrete instantiation of the generic B-tree (int-keyed,
// string-keyed, opaque-object-keyed, ...) provides one of these.
type KeyOps[K any] interface {
	// Compare returns <0, 0, >0 as a < b, a == b, a > b. May be called with
	// arbitrary user-supplied keys, so implementations that wrap user
	// comparators should let a panic from user code propagate unchanged.
	Compare(a, b K) int
	// Copy returns an independent copy of k suitable for storing in a bucket.
	// For value types this is just k; for reference-like keys it clones.
	Copy(k K) K
}

// ValueOps supplies copy and equality for a mapping's value type.
type ValueOps[V any] interface {
	Copy(v V) V
	Equal(a, b V) bool
}

// WeighableValueOps extends ValueOps with the arithmetic setOperation needs
// for weighted union/intersection: scale a value by an integer
// weight and add two (already-scaled) values together.
type WeighableValueOps[V any] interface {
	ValueOps[V]
	Scale(v V, weight int) V
	Add(a, b V) V
}

// ---------------------------------------------------------------------------
// concrete instantiations, one per key/value flavor

type intOps struct{}

// IntOps is KeyOps[int] and WeighableValueOps[int] (the "I" flavor: IIBTree,
// IOBTree, IFBTree all key on int this way).
var IntOps = intOps{}

func (intOps) Compare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func (intOps) Copy(k int) int           { return k }
func (intOps) Equal(a, b int) bool      { return a == b }
func (intOps) Scale(v int, w int) int   { return v * w }
func (intOps) Add(a, b int) int         { return a + b }

type int64Ops struct{}

// Int64Ops is the 64-bit analogue of IntOps (the "L" flavor: LLBTree, LOBTree, LFBTree).
var Int64Ops = int64Ops{}

func (int64Ops) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func (int64Ops) Copy(k int64) int64         { return k }
func (int64Ops) Equal(a, b int64) bool      { return a == b }
func (int64Ops) Scale(v int64, w int) int64 { return v * int64(w) }
func (int64Ops) Add(a, b int64) int64       { return a + b }

type float64Ops struct{}

// Float64Ops is the "F" flavor value ops (IFBTree, LFBTree): float values,
// integer keys.
var Float64Ops = float64Ops{}

func (float64Ops) Copy(v float64) float64         { return v }
func (float64Ops) Equal(a, b float64) bool        { return a == b }
func (float64Ops) Scale(v float64, w int) float64 { return v * float64(w) }
func (float64Ops) Add(a, b float64) float64       { return a + b }

// BytesOps is KeyOps[[]byte]: lexicographic order, defensive copy on insert.
// Variable-length; mapping code that wants fixed-width keys can wrap it.
type bytesOps struct{}

var BytesOps = bytesOps{}

func (bytesOps) Compare(a, b []byte) int { return bytes.Compare(a, b) }
func (bytesOps) Copy(k []byte) []byte {
	if k == nil {
		return nil
	}
	cp := make([]byte, len(k))
	copy(cp, k)
	return cp
}

// StringOps is KeyOps[string] and ValueOps[string] (the "O" flavor
// specialized to strings, which in Go are already immutable so Copy is a
// no-op).
type stringOps struct{}

var StringOps = stringOps{}

func (stringOps) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func (stringOps) Copy(k string) string { return k }
func (stringOps) Equal(a, b string) bool { return a == b }

// ObjectOps adapts any type with a user-supplied comparator into KeyOps,
// for opaque key types with no natural ordering of their own.
type ObjectOps[T any] struct {
	CompareFunc func(a, b T) int
	CopyFunc    func(t T) T
}

func (o ObjectOps[T]) Compare(a, b T) int { return o.CompareFunc(a, b) }
func (o ObjectOps[T]) Copy(t T) T {
	if o.CopyFunc == nil {
		return t
	}
	return o.CopyFunc(t)
}

// ObjectValueOps is the value-side counterpart of ObjectOps, used when the
// mapping's value type carries no natural equality (e.g. pointers identity
// compared) beyond what the caller supplies.
type ObjectValueOps[T any] struct {
	CopyFunc  func(t T) T
	EqualFunc func(a, b T) bool
}

func (o ObjectValueOps[T]) Copy(t T) T {
	if o.CopyFunc == nil {
		return t
	}
	return o.CopyFunc(t)
}
func (o ObjectValueOps[T]) Equal(a, b T) bool {
	if o.EqualFunc == nil {
		return false
	}
	return o.EqualFunc(a, b)
}
