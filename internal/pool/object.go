// Package pool provides the two pooling primitives the core depends on:
// a process-wide ObjectPool of protocol.ContentItem (to eliminate
// per-request allocation in the resource cache) and a
// per-backend ConnectionPool of outbound gateway sockets.
//
// Both are built on github.com/jackc/puddle/v2, the generic resource
// pool already present (transitively, via pgx) across this codebase's
// dependency graph — its acquire/release-with-health-check contract is
// exactly the shape spec'd for ObjectPool and ConnectionPool.
package pool

import (
	"context"

	"github.com/jackc/puddle/v2"
	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// ObjectPool hands out *protocol.ContentItem values without allocating on
// every acquire once warm. Acquire/Release are each O(1): a successful
// acquire pulls from puddle's idle list, release pushes back onto it.
type ObjectPool struct {
	p *puddle.Pool[*protocol.ContentItem]
}

// NewObjectPool creates a content-item pool with no hard upper bound
// beyond maxSize (0 means "use a large default" — the pool exists to
// eliminate churn, not to ration a scarce resource).
func NewObjectPool(maxSize int32) *ObjectPool {
	if maxSize <= 0 {
		maxSize = 1 << 16
	}
	p, err := puddle.NewPool(&puddle.Config[*protocol.ContentItem]{
		Constructor: func(context.Context) (*protocol.ContentItem, error) {
			return &protocol.ContentItem{}, nil
		},
		Destructor: func(*protocol.ContentItem) {},
		MaxSize:    maxSize,
	})
	if err != nil {
		// Only returns an error for a non-positive MaxSize, which never
		// happens given the guard above.
		panic(err)
	}
	return &ObjectPool{p: p}
}

// Acquire returns a zeroed ContentItem ready for population. The caller
// must call Release (directly or via Handle.Release) exactly once.
func (op *ObjectPool) Acquire(ctx context.Context) (*Handle, error) {
	res, err := op.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res.Value().Reset()
	return &Handle{res: res}, nil
}

// AcquireNow is Acquire with a background context, for call sites that
// never block (the pool does not throttle acquisition).
func (op *ObjectPool) AcquireNow() *Handle {
	h, err := op.Acquire(context.Background())
	if err != nil {
		// Unreachable: this pool's constructor never errors and a
		// background context never cancels.
		panic(err)
	}
	return h
}

// Len reports the number of items currently acquired (not idle).
func (op *ObjectPool) Len() int {
	return int(op.p.Stat().AcquiredResources())
}

// Handle wraps one acquired ContentItem and its release back to the pool.
type Handle struct {
	res *puddle.Resource[*protocol.ContentItem]
}

// Item returns the underlying ContentItem for population or reading.
func (h *Handle) Item() *protocol.ContentItem { return h.res.Value() }

// Release returns the item to the pool for reuse.
func (h *Handle) Release() { h.res.Release() }
