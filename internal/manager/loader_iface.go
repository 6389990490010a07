package manager

import (
	"context"

	"vramd/pkg/types"
)

// Loader produces and frees device-memory-resident resources. It is supplied
// by the surrounding system, one implementation per model family; the manager
// never inspects handle contents.
//
// Load and Unload are expected to be slow (seconds). The manager never calls
// them with its lock held. Timeouts are the loader's responsibility.
type Loader interface {
	// Load materializes the resource described by spec and reports its
	// measured device memory footprint.
	Load(ctx context.Context, spec types.ResourceSpec) (LoadResult, error)
	// Unload frees a handle previously returned by Load.
	Unload(ctx context.Context, handle types.Handle) error
}

// LoadResult is a successful load: the opaque handle plus the measured
// footprint, which may differ from the spec's declared bytes.
type LoadResult struct {
	Handle      types.Handle
	ActualBytes uint64
}
