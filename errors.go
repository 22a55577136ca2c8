package glvox

import (
	"errors"
	"fmt"
)

var (
	ErrBadScale         = errors.New("glvox: octree scale must be positive and finite")
	ErrBadDepth         = fmt.Errorf("glvox: max depth must be in [1, %d]", MaxDepthLimit)
	ErrBadCapacity      = fmt.Errorf("glvox: cell capacity must be in [1, %d]", MaxCellCapacity)
	ErrBadTraversalIter = errors.New("glvox: max traversal iterations must be positive")
	ErrSeedTooLarge     = errors.New("glvox: cell capacity cannot hold seed data")
	ErrDeltaCapacity    = errors.New("glvox: delta batch exceeds delta buffer capacity")
	ErrMalformedSeed    = errors.New("glvox: seed references unallocated cell")
)

// InitError is returned when constructing an octree fails. Initialization
// errors are fatal: no GPU resource is left allocated by a failed constructor.
type InitError struct {
	Resource string
	Err      error
}

func (e *InitError) Error() string {
	return "glvox: initializing " + e.Resource + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }
