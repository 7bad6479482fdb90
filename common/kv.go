package common

//----------------------------------------------------------------------------
// generic key/value storage abstraction the jar adaptors sit on top of:
// badger and the in-memory map both implement this, so persist.Jar
// implementations never import a concrete store directly.

type (
	// KVReader is a key/value reader
	KVReader interface {
		// Get retrieves value by key. Returned nil means absence of the key
		Get(key []byte) []byte
		// Has checks presence of the key in the key/value store
		Has(key []byte) bool // for performance
	}

	// KVWriter is a key/value writer
	KVWriter interface {
		// Set writes new or updates existing key with the value.
		// value == nil means deletion of the key from the store
		Set(key, value []byte)
	}

	// KVIteratorBase is an interface to iterate through the collection of key/value pairs, probably with duplicate keys.
	// Order of iteration is NON-DETERMINISTIC in general
	KVIteratorBase interface {
		Iterate(func(k, v []byte) bool)
	}

	// KVIterator normally implements iteration over k/v collection with unique keys
	KVIterator interface {
		KVIteratorBase
		IterateKeys(func(k []byte) bool)
	}

	// KVBatchedWriter collects Mutations in the buffer via Set-s to KVWriter and then flushes (applies) it atomically to DB with Commit
	// KVBatchedWriter implementation should be deterministic: the sequence of Set-s to KWWriter exactly determines
	// the sequence, how key/value pairs in the database are updated or deleted (with value == nil)
	KVBatchedWriter interface {
		KVWriter
		Commit() error
	}

	// KVStore is a compound interface for reading and writing
	KVStore interface {
		KVReader
		KVWriter
	}

	// BatchedUpdatable is a KVStore equipped with the batched update capability. You can only update
	// BatchedUpdatable in atomic batches
	BatchedUpdatable interface {
		BatchedWriter() KVBatchedWriter
	}

	// Traversable is an interface which provides with partial iterators
	Traversable interface {
		Iterator(prefix []byte) KVIterator
	}
)
