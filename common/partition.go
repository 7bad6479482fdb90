package common

import "sync"

// ReaderPartition and WriterPartition give a jar two disjoint views of one
// underlying KVStore by prepending a one-byte partition tag to every key
// (e.g. the object table and the klass table sharing one badger instance).
// Both are pooled since a jar allocates one per Load/Commit call.

type ReaderPartition struct {
	r      KVReader
	prefix byte
}

var (
	_                   KVReader = &ReaderPartition{}
	readerPartitionPool sync.Pool
)

func (p *ReaderPartition) Get(key []byte) []byte {
	return p.r.Get(Concat(p.prefix, key))
}

func (p *ReaderPartition) Has(key []byte) bool {
	return p.r.Has(Concat(p.prefix, key))
}

func MakeReaderPartition(r KVReader, prefix byte) *ReaderPartition {
	var ret *ReaderPartition
	s := readerPartitionPool.Get()
	if s == nil {
		ret = new(ReaderPartition)
	} else {
		ret = s.(*ReaderPartition)
	}
	*ret = ReaderPartition{
		prefix: prefix,
		r:      r,
	}
	return ret
}

func (p *ReaderPartition) Dispose() {
	p.r = nil
	readerPartitionPool.Put(p)
}

// -------------------- writer partition

var (
	_                   KVWriter = &WriterPartition{}
	writerPartitionPool sync.Pool
)

type WriterPartition struct {
	w      KVWriter
	prefix byte
}

func (w *WriterPartition) Set(key, value []byte) {
	w.w.Set(Concat(w.prefix, key), value)
}

func MakeWriterPartition(w KVWriter, p byte) *WriterPartition {
	var ret *WriterPartition
	s := writerPartitionPool.Get()
	if s == nil {
		ret = new(WriterPartition)
	} else {
		ret = s.(*WriterPartition)
	}
	*ret = WriterPartition{
		prefix: p,
		w:      w,
	}
	return ret
}

func (w *WriterPartition) Dispose() {
	w.w = nil
	writerPartitionPool.Put(w)
}
