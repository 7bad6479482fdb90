package common

import (
	"bytes"
	"sync"
)

// InMemoryKVStore backs the in-memory adaptor jar: a thread-safe map wrapped
// in the KVStore/BatchedUpdatable/Traversable interfaces so it can stand in
// for badger in tests and demos without either side knowing the difference.
var (
	_ KVStore          = &InMemoryKVStore{}
	_ BatchedUpdatable = &InMemoryKVStore{}
	_ Traversable      = &InMemoryKVStore{}
	_ KVBatchedWriter  = &simpleBatchedMemoryWriter{}
	_ KVIterator       = &simpleInMemoryIterator{}
)

type (
	InMemoryKVStore struct {
		mutex sync.RWMutex
		m     map[string][]byte
	}

	simpleBatchedMemoryWriter struct {
		store     *InMemoryKVStore
		mutations *Mutations
	}

	simpleInMemoryIterator struct {
		store  *InMemoryKVStore
		prefix []byte
	}
)

func NewInMemoryKVStore() *InMemoryKVStore {
	return &InMemoryKVStore{
		m: make(map[string][]byte),
	}
}

func (im *InMemoryKVStore) IsClosed() bool {
	return false
}

func (im *InMemoryKVStore) Get(k []byte) []byte {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	r := im.m[string(k)]
	if len(r) == 0 {
		return nil
	}
	ret := make([]byte, len(r))
	copy(ret, r)
	return ret
}

func (im *InMemoryKVStore) Has(k []byte) bool {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	_, ok := im.m[string(k)]
	return ok
}

func (im *InMemoryKVStore) Iterate(f func(k []byte, v []byte) bool) {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for k, v := range im.m {
		if !f([]byte(k), v) {
			return
		}
	}
}

func (im *InMemoryKVStore) IterateKeys(f func(k []byte) bool) {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for k := range im.m {
		if !f([]byte(k)) {
			return
		}
	}
}

func (im *InMemoryKVStore) Set(k, v []byte) {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	im.set(k, v)
}

func (im *InMemoryKVStore) set(k, v []byte) {
	if len(v) > 0 {
		vClone := make([]byte, len(v))
		copy(vClone, v)
		im.m[string(k)] = vClone
	} else {
		delete(im.m, string(k))
	}
}

func (im *InMemoryKVStore) Len() int {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	return len(im.m)
}

func (bw *simpleBatchedMemoryWriter) Set(key, value []byte) {
	bw.mutations.Set(key, value)
}

func (bw *simpleBatchedMemoryWriter) Commit() error {
	bw.store.mutex.Lock()
	defer bw.store.mutex.Unlock()

	bw.mutations.Iterate(func(k []byte, v []byte, _ bool) bool {
		bw.store.set(k, v)
		return true
	})

	bw.mutations = nil // invalidate
	return nil
}

func (im *InMemoryKVStore) BatchedWriter() KVBatchedWriter {
	ret := &simpleBatchedMemoryWriter{
		store: im,
	}
	ret.mutations = NewMutations()
	return ret
}

func (im *InMemoryKVStore) Iterator(prefix []byte) KVIterator {
	return &simpleInMemoryIterator{
		store:  im,
		prefix: prefix,
	}
}

func (si *simpleInMemoryIterator) Iterate(f func(k []byte, v []byte) bool) {
	si.store.mutex.RLock()
	defer si.store.mutex.RUnlock()

	var key []byte
	for k, v := range si.store.m {
		key = []byte(k)
		if bytes.HasPrefix(key, si.prefix) {
			if !f(key, v) {
				return
			}
		}
	}
}

func (si *simpleInMemoryIterator) IterateKeys(f func(k []byte) bool) {
	si.store.mutex.RLock()
	defer si.store.mutex.RUnlock()

	var key []byte
	for k := range si.store.m {
		key = []byte(k)
		if bytes.HasPrefix(key, si.prefix) {
			if !f(key) {
				return
			}
		}
	}
}
