package persist

import (
	"io"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/internal/xlog"
	"golang.org/x/xerrors"
)

var log = xlog.New("persist")

// RingNode is the doubly-linked ring node embedded in every persistent
// object's Header. The pickle cache links these directly into its LRU ring
// without any separate container.
type RingNode struct {
	prev, next *RingNode
	owner      Persistent
}

func (r *RingNode) Next() *RingNode        { return r.next }
func (r *RingNode) Prev() *RingNode        { return r.prev }
func (r *RingNode) Owner() Persistent      { return r.owner }
func (r *RingNode) Linked() bool           { return r.next != nil }
func (r *RingNode) SetOwner(p Persistent)  { r.owner = p }
func (r *RingNode) SetPrev(p *RingNode)    { r.prev = p }
func (r *RingNode) SetNext(n *RingNode)    { r.next = n }
func (r *RingNode) Clear()                 { r.prev, r.next = nil, nil }

// CacheNotifier is the weak back-reference a resident object's Header keeps
// to its cache: the cache
// decides ghostification, the object cannot reach back in and force it.
type CacheNotifier interface {
	Accessed(obj Persistent)
}

// Persistent is implemented by every node type that participates in the
// persistence protocol (Bucket, Set, BTree, TreeSet). Header supplies a
// default implementation of everything except GetState/SetState/OnGhostify,
// which are necessarily type-specific.
type Persistent interface {
	POID() common.OID
	PJar() Jar
	PState() State
	PSerial() common.Serial
	PEstimatedSize() uint32
	RingNode() *RingNode
	PCache() CacheNotifier
	SetCache(CacheNotifier)

	// Activate guarantees state >= UpToDate, fetching from the jar if Ghost.
	Activate() error
	// Deactivate requests Ghost, honored only when UpToDate.
	Deactivate()
	// Invalidate forces Ghost unconditionally.
	Invalidate()
	// ChangeNotify transitions UpToDate/Sticky -> Changed and registers
	// with the jar; no-op if already Changed or if unattached to a jar.
	ChangeNotify() error
	// WithSticky lifts UpToDate -> Sticky for the duration of fn, then
	// restores Sticky -> UpToDate, so fn can hold raw slice/map references
	// into the node's payload without a concurrent GC ghostifying under it.
	WithSticky(fn func() error) error

	// GetState/SetState (de)serialize all non-volatile fields; SetState is
	// called on a freshly allocated instance of the same type.
	GetState(w io.Writer) error
	SetState(r io.Reader) error
	// OnGhostify releases the node's resident payload (keys/values/children).
	OnGhostify()
}

// Header is embedded by every concrete node type. The concrete type's
// constructor must call Init(self) once before use.
type Header struct {
	self  Persistent
	jar   Jar
	oid   common.OID
	serial common.Serial
	state State

	estimatedSize uint32
	cache         CacheNotifier
	ring          RingNode
}

// Init binds the header to the concrete node instance embedding it ("self").
// New() constructors for Bucket/BTree/etc. call this immediately. New
// transient nodes start UpToDate; nodes the jar is installing as ghosts call
// InitGhost instead.
func (h *Header) Init(self Persistent) {
	h.self = self
	h.state = UpToDate
	h.ring.owner = self
}

// InitGhost binds the header and marks it Ghost with a known oid/jar, the
// shape a jar uses when it first learns of an object's existence without
// having fetched its bytes yet.
func (h *Header) InitGhost(self Persistent, jar Jar, oid common.OID) {
	h.self = self
	h.jar = jar
	h.oid = oid
	h.state = Ghost
	h.ring.owner = self
}

func (h *Header) POID() common.OID          { return h.oid }
func (h *Header) PJar() Jar                 { return h.jar }
func (h *Header) PState() State             { return h.state }
func (h *Header) PSerial() common.Serial    { return h.serial }
func (h *Header) PEstimatedSize() uint32    { return h.estimatedSize }
func (h *Header) RingNode() *RingNode       { return &h.ring }
func (h *Header) PCache() CacheNotifier     { return h.cache }
func (h *Header) SetCache(c CacheNotifier)  { h.cache = c }
func (h *Header) SetSerial(s common.Serial) { h.serial = s }

// SetEstimatedSize stores a 24-bit block-count estimate; callers compute it from GetState's byte length / 64.
func (h *Header) SetEstimatedSize(blocks uint32) {
	const max24 = 1<<24 - 1
	if blocks > max24 {
		blocks = max24
	}
	h.estimatedSize = blocks
}

// AttachJar assigns jar/oid to a previously transient (jar == nil) object,
// the step a jar takes when it first persists a newly created node.
func (h *Header) AttachJar(jar Jar, oid common.OID) {
	h.jar = jar
	h.oid = oid
}

func (h *Header) Activate() error {
	if h.state != Ghost {
		return nil
	}
	if h.jar == nil {
		// transient ghost with no jar can never be filled in; treat as a
		// caller bug rather than silently staying empty.
		return xerrors.New("persist: cannot activate a ghost with no jar")
	}
	if err := h.jar.SetState(h.self); err != nil {
		log.Debug("activate failed", "oid", h.oid.String(), "err", err)
		return xerrors.Errorf("persist: activate %s: %w", h.oid, err)
	}
	if h.state == Ghost {
		// jar.SetState is expected to call SetState, which (via
		// markResident below) lifts the state; if it didn't, something is
		// wrong with the jar implementation.
		h.state = UpToDate
	}
	if h.cache != nil {
		h.cache.Accessed(h.self)
	}
	return nil
}

// MarkResident is called by the concrete type's SetState once it has
// successfully unmarshaled payload, completing the Ghost -> UpToDate step.
func (h *Header) MarkResident() {
	if h.state == Ghost {
		h.state = UpToDate
	}
}

func (h *Header) Deactivate() {
	if h.state != UpToDate {
		return
	}
	h.self.OnGhostify()
	h.state = Ghost
}

func (h *Header) Invalidate() {
	if h.state == Ghost {
		return
	}
	h.self.OnGhostify()
	h.state = Ghost
}

func (h *Header) ChangeNotify() error {
	switch h.state {
	case Changed:
		return nil
	case UpToDate, Sticky:
		if h.jar != nil {
			if err := h.jar.Register(h.self); err != nil {
				return xerrors.Errorf("persist: register %s: %w", h.oid, err)
			}
		}
		h.state = Changed
		return nil
	case Ghost:
		// mutating a ghost is a caller bug: activate first.
		return xerrors.New("persist: cannot mutate a ghost object")
	default:
		return nil
	}
}

// WithSticky implements the STICKY lease: UPTODATE -> STICKY on entry, STICKY -> UPTODATE on exit,
// regardless of whether fn returned an error. Nested calls are safe because
// the lower step only fires from STICKY, so an inner WithSticky returning
// while state is still STICKY (held by an outer frame) is a correctly
// idempotent no-op... except we don't actually nest reference counts here;
// to keep that promise a nested call must not downgrade a STICKY it didn't
// raise itself, so WithSticky only transitions and restores when it was the
// one to raise UPTODATE -> STICKY.
func (h *Header) WithSticky(fn func() error) error {
	if err := h.Activate(); err != nil {
		return err
	}
	raised := false
	if h.state == UpToDate {
		h.state = Sticky
		raised = true
	}
	err := fn()
	if raised && h.state == Sticky {
		h.state = UpToDate
	}
	return err
}
