package cache

import "errors"

var (
	// ErrRingCorrupted is returned when a GC pass meets a ring node with no
	// owner, or when CheckInvariants finds broken linkage, a non-resident
	// ring member or a count mismatch. Indicates a programmer error in ring
	// maintenance, not a user error.
	ErrRingCorrupted = errors.New("cache: ring linkage corrupted")

	// ErrReentrantGC is returned when incremental GC is invoked while
	// already running on the same cache.
	ErrReentrantGC = errors.New("cache: incremental GC is not reentrant")

	// ErrForeignObject is returned by Insert when the target has a nil oid
	// or already belongs to a different cache. The cache holds no jar, so
	// Insert does not check which jar the target belongs to.
	ErrForeignObject = errors.New("cache: object belongs to a different jar or cache")
)
