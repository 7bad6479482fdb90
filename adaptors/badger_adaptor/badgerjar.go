package badger_adaptor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/btrees/common"
	"github.com/lunfardo314/btrees/persist"
)

// DB wraps a badger.DB with the common.KVStore/BatchedUpdatable/Traversable
// surface BadgerJar is built on, plus a closed flag so a Get/Set racing a
// Close panics with common.ErrDBUnavailable instead of silently no-opping.
type DB struct {
	*badger.DB
	closed atomic.Bool
}

func createDirectoryIfNeeded(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0700)
	}
	return err
}

// MustCreateOrOpenBadgerDB opens the badger database at dir, creating it (and
// any missing parent directories) if it does not yet exist.
func MustCreateOrOpenBadgerDB(dir string, opt ...badger.Options) *badger.DB {
	err := createDirectoryIfNeeded(dir)
	common.AssertNoError(err)
	var opts badger.Options
	if len(opt) == 0 {
		opts = badger.DefaultOptions(dir)
	} else {
		opts = opt[0]
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	common.AssertNoError(err)
	return db
}

// New wraps an already-open badger.DB so it can be passed to NewBadgerJar.
func New(db *badger.DB) *DB {
	return &DB{DB: db}
}

func (a *DB) Close() error {
	a.closed.Store(true)
	return a.DB.Close()
}

// KVReader

func (a *DB) Get(key []byte) []byte {
	if a.closed.Load() {
		panic(common.ErrDBUnavailable)
	}
	var ret []byte
	err := a.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	common.AssertNoError(err)
	return ret
}

func (a *DB) Has(key []byte) bool {
	if a.closed.Load() {
		panic(common.ErrDBUnavailable)
	}
	err := a.DB.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	common.AssertNoError(err)
	return true
}

// KVWriter

func (a *DB) Set(key, value []byte) {
	if a.closed.Load() {
		panic(common.ErrDBUnavailable)
	}
	err := a.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	common.AssertNoError(err)
}

// BatchedUpdatable

func (a *DB) BatchedWriter() common.KVBatchedWriter {
	return &badgerAdaptorBatch{
		db:  a,
		mut: common.NewMutationsMustNoDoubleBooking(),
	}
}

type badgerAdaptorBatch struct {
	db  *DB
	mut *common.Mutations
}

// KVBatchedWriter

func (b *badgerAdaptorBatch) Set(key, value []byte) {
	b.mut.Set(key, value)
}

func (b *badgerAdaptorBatch) Commit() error {
	if b.db.closed.Load() {
		return fmt.Errorf("database is closed")
	}
	return b.db.Update(func(txn *badger.Txn) error {
		var err error
		b.mut.Iterate(func(k []byte, v []byte, _ bool) bool {
			if len(v) > 0 {
				err = txn.Set(k, v)
			} else {
				err = txn.Delete(k)
			}
			return err == nil
		})
		return err
	})
}

// Traversable

func (a *DB) Iterator(prefix []byte) common.KVIterator {
	return &badgerAdaptorIterator{
		db:     a,
		prefix: prefix,
	}
}

type badgerAdaptorIterator struct {
	db     *DB
	prefix []byte
}

// KVIterator

const iteratorPrefetchSize = 10

func (it *badgerAdaptorIterator) Iterate(fun func(k []byte, v []byte) bool) {
	err := it.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = iteratorPrefetchSize

		dbIt := txn.NewIterator(opts)
		defer dbIt.Close()

		exit := false
		for dbIt.Seek(it.prefix); !exit && dbIt.ValidForPrefix(it.prefix); dbIt.Next() {
			err := dbIt.Item().Value(func(val []byte) error {
				exit = !fun(dbIt.Item().Key(), val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if !it.db.closed.Load() {
		common.AssertNoError(err)
	}
}

func (it *badgerAdaptorIterator) IterateKeys(fun func(k []byte) bool) {
	err := it.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = iteratorPrefetchSize

		dbIt := txn.NewIterator(opts)
		defer dbIt.Close()

		for dbIt.Seek(it.prefix); dbIt.ValidForPrefix(it.prefix); dbIt.Next() {
			if !fun(dbIt.Item().Key()) {
				return nil
			}
		}
		return nil
	})
	if !it.db.closed.Load() {
		common.AssertNoError(err)
	}
}

// jarAttachable is the subset of persist.Header's API a jar needs to bind a
// freshly created transient node to a fresh oid; every concrete node type
// gets it for free by embedding persist.Header.
type jarAttachable interface {
	AttachJar(jar persist.Jar, oid common.OID)
}

// objectKeyPrefix and klassKeyPrefix carve the shared badger keyspace into
// two disjoint partitions via common.ReaderPartition/WriterPartition, rather
// than hand-concatenating a prefix byte at every call site.
const (
	objectKeyPrefix = 'o'
	klassKeyPrefix  = 'k'
)

// BadgerJar is a persist.Jar backed by a badger key space: object state
// keyed by oid under the 'o' prefix, persistent-class state under 'k', one
// Get/Set pair per node. It does not interpret the
// bytes it stores; GetState/SetState on the Persistent own that contract.
type BadgerJar struct {
	db  *DB
	gen *common.OIDGenerator

	mu    sync.Mutex
	dirty map[common.OID]persist.Persistent
}

var _ persist.Jar = &BadgerJar{}

// NewBadgerJar wires a badger-backed Jar over db, seeding its oid generator
// with seed. The generator's counter starts afresh with every jar, so a jar
// reopened over the same database with the same seed reissues the oids the
// earlier jar issued; this jar does not track the high-water mark of oids
// already assigned.
func NewBadgerJar(db *DB, seed []byte) *BadgerJar {
	return &BadgerJar{
		db:    db,
		gen:   common.NewOIDGenerator(seed),
		dirty: make(map[common.OID]persist.Persistent),
	}
}

func (j *BadgerJar) Load(oid common.OID) ([]byte, error) {
	p := common.MakeReaderPartition(j.db, objectKeyPrefix)
	defer p.Dispose()
	b := p.Get(oid.Bytes())
	if b == nil {
		return nil, common.ErrObjectNotFound
	}
	return b, nil
}

func (j *BadgerJar) SetState(obj persist.Persistent) error {
	b, err := j.Load(obj.POID())
	if err != nil {
		return err
	}
	return obj.SetState(bytes.NewReader(b))
}

func (j *BadgerJar) Register(obj persist.Persistent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dirty[obj.POID()] = obj
	return nil
}

func (j *BadgerJar) NewOID() (common.OID, error) {
	return j.gen.Next(), nil
}

func (j *BadgerJar) SetKlassState(cls persist.Persistent) error {
	p := common.MakeReaderPartition(j.db, klassKeyPrefix)
	defer p.Dispose()
	b := p.Get(cls.POID().Bytes())
	if b == nil {
		return common.ErrObjectNotFound
	}
	return cls.SetState(bytes.NewReader(b))
}

// PutKlass assigns cls a fresh oid bound to this jar and persists its current
// state under the klass keyspace immediately (klasses are not part of the
// ordinary dirty-set commit cycle, "Sentinel class values ...
// bookkept separately from instances").
func (j *BadgerJar) PutKlass(cls persist.Persistent) (common.OID, error) {
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
	w := common.MakeWriterPartition(j.db, klassKeyPrefix)
	defer w.Dispose()
	w.Set(oid.Bytes(), buf.Bytes())
	return oid, nil
}

// Put assigns obj a fresh oid bound to this jar, without yet writing
// anything to badger; the first Commit after this call persists it, same as
// any other newly-registered dirty object.
func (j *BadgerJar) Put(obj persist.Persistent) (common.OID, error) {
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

// Commit flushes every object registered via Register/Put since the last
// commit to badger in a single batch, then clears the dirty set. Before writing, it walks persist.ChildrenLister to find and
// oid-assign any not-yet-persisted node (a split's new sibling, a grown
// child bucket) reachable from a dirty object, so the whole graph commits
// together instead of leaving dangling nil-oid references in the dirty
// object's serialized state.
func (j *BadgerJar) Commit() error {
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

	w := j.db.BatchedWriter()
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
