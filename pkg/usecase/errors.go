package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrConsistencyGap reports that the attribute store and the
	// similarity index diverged: one write succeeded, the other failed.
	// There is no cross-store transaction and no rollback; the durable
	// record stays as written and the gap is surfaced to the caller.
	ErrConsistencyGap = errors.New("attribute store and similarity index diverged")
)
