package ledger

import (
	"context"
	"time"

	"skylens/internal/storage"
	logx "skylens/pkg/logx"
)

// Handled enforces at-most-once processing of notifications. Once an id is
// marked it is never reprocessed, including across restarts.
type Handled struct {
	store storage.Store
	now   func() time.Time
	log   logx.Logger
}

func NewHandled(store storage.Store, log logx.Logger) *Handled {
	return &Handled{store: store, now: time.Now, log: log}
}

func (h *Handled) Has(ctx context.Context, id string) (bool, error) {
	return h.store.HasHandled(ctx, id)
}

// Mark records the id. Marking an already-present id is a no-op.
func (h *Handled) Mark(ctx context.Context, id string) error {
	return h.store.MarkHandled(ctx, id, h.now())
}
