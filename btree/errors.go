// Package btree implements the ordered map/set data model:
// Bucket/Set leaves linked by next, BTree/TreeSet interior nodes routing to
// them, a BTreeItems range iterator, set algebra, and three-way merge.
//
// Generic over key/value types via common.KeyOps/ValueOps instead of a
// separate concrete type per flavor.
package btree

import "errors"

var (
	// ErrKeyNotFound is the KeyError-equivalent.
	ErrKeyNotFound = errors.New("btree: key not found")

	// ErrEmptyTree is raised by MinKey/MaxKey on an empty mapping.
	ErrEmptyTree = errors.New("btree: tree is empty")

	// ErrIndexOutOfRange is the IndexError-equivalent raised by BTreeItems
	// when a seek would escape the iterator's range.
	ErrIndexOutOfRange = errors.New("btree: iterator index out of range")

	// ErrValueMismatch is raised by setOperation when one side carries
	// values and the other doesn't in a combination that would silently
	// drop or fabricate values.
	ErrValueMismatch = errors.New("btree: incompatible bucket/set combination")

	// ErrNextMismatch is raised by bucket three-way merge when s2.next and
	// s3.next disagree.
	ErrNextMismatch = errors.New("btree: divergent next-bucket pointers cannot be merged")

	// ErrNoResolver is an internal wiring error: a bucket/btree tried to
	// lazily resolve a child or successor oid without a configured
	// resolver (see bucket.go / btree.go "resolver").
	ErrNoResolver = errors.New("btree: no node resolver configured")

	// ErrTypeMismatch guards SetState against being fed bytes from a node
	// of a structurally different shape (e.g. a Set state into a mapping
	// Bucket).
	ErrTypeMismatch = errors.New("btree: persisted state has unexpected shape")
)
