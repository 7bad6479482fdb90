package persist

import (
	"io"

	"github.com/lunfardo314/btrees/common"
)

// Jar is the external storage/transaction collaborator. The core never interprets wire bytes itself; GetState/SetState
// on the Persistent do that, and the jar just routes bytes and registers
// dirty objects with whatever transaction is current.
type Jar interface {
	// Load fetches the persisted bytes for oid. Returns common.ErrObjectNotFound
	// if the jar has no record of oid.
	Load(oid common.OID) ([]byte, error)
	// SetState fetches obj's persisted bytes and feeds them to obj.SetState,
	// moving it from Ghost to UpToDate.
	SetState(obj Persistent) error
	// Register joins obj to the jar's current transaction so it gets
	// flushed on the next commit.
	Register(obj Persistent) error
	// NewOID allocates a fresh identifier for a transient object being
	// placed into the jar for the first time.
	NewOID() (common.OID, error)
	// SetKlassState reinitializes a persistent "class" object; most jars with no klass concept can treat
	// this as a no-op returning nil.
	SetKlassState(cls Persistent) error
}

// StateWriter and StateReader name the two halves of the (de)serialization
// contract a concrete node type (Bucket, BTree, ...) must implement; kept as
// named types purely for documentation at call sites.
type StateWriter = io.Writer
type StateReader = io.Reader

// ChildrenLister is implemented by composite node types (Bucket, BTree)
// whose GetState embeds other Persistent nodes by oid. A node created
// in-process during a mutation (a split's new sibling, a grown child bucket)
// has no oid until something persists it; a jar's commit walk uses
// PersistentChildren to discover such not-yet-persisted nodes reachable from
// an already-dirty object, so the whole graph gets oids and gets written
// together rather than only the one object that was explicitly registered.
type ChildrenLister interface {
	PersistentChildren() []Persistent
}
