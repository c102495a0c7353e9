package ledger

import (
	"context"
	"time"

	"skylens/internal/storage"
	logx "skylens/pkg/logx"
)

// Cooldowns rate-limits granted analyses per requester DID.
//
// Keyed by DID, not handle: handles are mutable on the platform, DIDs are not.
// Entries are never deleted; expiry is computed against the window.
type Cooldowns struct {
	store  storage.Store
	window time.Duration
	now    func() time.Time
	log    logx.Logger
}

func NewCooldowns(store storage.Store, window time.Duration, log logx.Logger) *Cooldowns {
	return &Cooldowns{store: store, window: window, now: time.Now, log: log}
}

// WithClock replaces the time source. Tests only.
func (c *Cooldowns) WithClock(now func() time.Time) *Cooldowns {
	c.now = now
	return c
}

// Window reports the configured cooldown duration.
func (c *Cooldowns) Window() time.Duration { return c.window }

// Active reports whether the DID is currently on cooldown: an entry exists
// and now-entry < window. A missing entry means never granted.
func (c *Cooldowns) Active(ctx context.Context, did string) (bool, error) {
	last, ok, err := c.store.LastGranted(ctx, did)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return c.now().Sub(last) < c.window, nil
}

// Grant stamps the DID with the current time, unconditionally overwriting
// any prior value. Called only after a successful analysis; throttled and
// failed attempts do not consume quota.
func (c *Cooldowns) Grant(ctx context.Context, did string) error {
	return c.store.PutGrant(ctx, did, c.now())
}
