package common

import (
	"errors"
)

var (
	ErrNotAllBytesConsumed = errors.New("serialization error: not all bytes were consumed")

	// ErrDBUnavailable implementations of KV storage may choose to panic with this error in case the
	// underlying storage is closed or unavailable
	ErrDBUnavailable = errors.New("database is closed or unavailable")

	// ErrObjectNotFound is returned by a jar when asked to fetch state for an
	// oid it does not hold.
	ErrObjectNotFound = errors.New("jar: object not found")

	// ErrAlreadyInCache names an object already registered with a different
	// cache; PickleCache.Insert reports that case as cache.ErrForeignObject.
	ErrAlreadyInCache = errors.New("cache: object already registered with another cache")

	// ErrOIDMismatch is returned by PickleCache.Insert when a different
	// object is already registered under the target's oid.
	ErrOIDMismatch = errors.New("cache: oid key does not match object oid")
)
