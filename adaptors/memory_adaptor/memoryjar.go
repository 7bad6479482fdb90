// Package memory_adaptor implements an in-process persist.Jar over
// common.InMemoryKVStore, for tests and demos that want the jar protocol
// without a real database.
package memory_adaptor

import (
	"bytes"
	"sync"

	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/persist"
)

type jarAttachable interface {
	AttachJar(jar persist.Jar, oid common.OID)
}

// objectKeyPrefix and klassKeyPrefix carve the store into two disjoint
// partitions via common.ReaderPartition/WriterPartition.
const (
	objectKeyPrefix = 'o'
	klassKeyPrefix  = 'k'
)

// MemoryJar is a persist.Jar over an InMemoryKVStore with the same call
// shape as BadgerJar: Put and Register only record objects as dirty, and
// nothing reaches the store until Commit writes them in one batch.
type MemoryJar struct {
	store *common.InMemoryKVStore
	gen   *common.OIDGenerator

	mu    sync.Mutex
	dirty map[common.OID]persist.Persistent
}

var _ persist.Jar = &MemoryJar{}

func New(seed []byte) *MemoryJar {
	return &MemoryJar{
		store: common.NewInMemoryKVStore(),
		gen:   common.NewOIDGenerator(seed),
		dirty: make(map[common.OID]persist.Persistent),
	}
}

func (j *MemoryJar) Load(oid common.OID) ([]byte, error) {
	p := common.MakeReaderPartition(j.store, objectKeyPrefix)
	defer p.Dispose()
	b := p.Get(oid.Bytes())
	if b == nil {
		return nil, common.ErrObjectNotFound
	}
	return b, nil
}

func (j *MemoryJar) SetState(obj persist.Persistent) error {
	b, err := j.Load(obj.POID())
	if err != nil {
		return err
	}
	return obj.SetState(bytes.NewReader(b))
}

func (j *MemoryJar) Register(obj persist.Persistent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dirty[obj.POID()] = obj
	return nil
}

func (j *MemoryJar) NewOID() (common.OID, error) {
	return j.gen.Next(), nil
}

func (j *MemoryJar) SetKlassState(cls persist.Persistent) error {
	p := common.MakeReaderPartition(j.store, klassKeyPrefix)
	defer p.Dispose()
	b := p.Get(cls.POID().Bytes())
	if b == nil {
		return common.ErrObjectNotFound
	}
	return cls.SetState(bytes.NewReader(b))
}

func (j *MemoryJar) PutKlass(cls persist.Persistent) (common.OID, error) {
	oid, err := j.NewOID()
	if err != nil {
		return common.NilOID, err
	}
	if a, ok := cls.(jarAttachable); ok {
		a.AttachJar(j, oid)
	}
	var buf bytes.Buffer
	if err := cls.GetState(&buf); err != nil {
		return common.NilOID, err
	}
	w := common.MakeWriterPartition(j.store, klassKeyPrefix)
	defer w.Dispose()
	w.Set(oid.Bytes(), buf.Bytes())
	return oid, nil
}

// Put assigns obj a fresh oid and registers it dirty; Commit writes it to
// the store.
func (j *MemoryJar) Put(obj persist.Persistent) (common.OID, error) {
	oid, err := j.NewOID()
	if err != nil {
		return common.NilOID, err
	}
	if a, ok := obj.(jarAttachable); ok {
		a.AttachJar(j, oid)
	}
	if err := j.Register(obj); err != nil {
		return common.NilOID, err
	}
	return oid, nil
}

// Commit flushes every dirty object to the store using a single Mutations
// batch, mirroring BadgerJar's commit shape even though the underlying
// store has no real atomicity to buy. It first walks persist.ChildrenLister
// to oid-assign any not-yet-persisted node reachable from a dirty object
// (see BadgerJar.Commit for the rationale).
func (j *MemoryJar) Commit() error {
	j.mu.Lock()
	pending := j.dirty
	j.dirty = make(map[common.OID]persist.Persistent)
	j.mu.Unlock()

	toWrite := make(map[common.OID]persist.Persistent, len(pending))
	queue := make([]persist.Persistent, 0, len(pending))
	for oid, obj := range pending {
		toWrite[oid] = obj
		queue = append(queue, obj)
	}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		lister, ok := obj.(persist.ChildrenLister)
		if !ok {
			continue
		}
		for _, child := range lister.PersistentChildren() {
			if !child.POID().IsNil() {
				continue
			}
			oid, err := j.NewOID()
			if err != nil {
				return err
			}
			if a, ok := child.(jarAttachable); ok {
				a.AttachJar(j, oid)
			}
			toWrite[oid] = child
			queue = append(queue, child)
		}
	}

	if len(toWrite) == 0 {
		return nil
	}

	w := j.store.BatchedWriter()
	pw := common.MakeWriterPartition(w, objectKeyPrefix)
	defer pw.Dispose()
	for oid, obj := range toWrite {
		var buf bytes.Buffer
		if err := obj.GetState(&buf); err != nil {
			return err
		}
		pw.Set(oid.Bytes(), buf.Bytes())
	}
	return w.Commit()
}
