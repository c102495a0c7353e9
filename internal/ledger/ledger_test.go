package ledger

import (
	"context"
	"testing"
	"time"

	"skylens/internal/storage"
	logx "skylens/pkg/logx"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock(ms int64) *fakeClock { return &fakeClock{t: time.UnixMilli(ms)} }

func TestCooldownWindow(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000_000)
	cd := NewCooldowns(storage.NewMemory(), 6*time.Hour, logx.Nop()).WithClock(clk.Now)

	const did = "did:plc:alice"

	active, err := cd.Active(ctx, did)
	if err != nil || active {
		t.Fatalf("Active before any grant = (%v, %v), want (false, nil)", active, err)
	}

	if err := cd.Grant(ctx, did); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	// Active for all T in [T0, T0+window).
	for _, adv := range []time.Duration{0, time.Second, 3 * time.Hour, 6*time.Hour - time.Millisecond} {
		clk.t = time.UnixMilli(1_000_000).Add(adv)
		if active, _ := cd.Active(ctx, did); !active {
			t.Fatalf("Active at T0+%v = false, want true", adv)
		}
	}

	// False at exactly T0+window and after.
	clk.t = time.UnixMilli(1_000_000).Add(6 * time.Hour)
	if active, _ := cd.Active(ctx, did); active {
		t.Fatal("Active at T0+window = true, want false")
	}
	clk.Advance(time.Hour)
	if active, _ := cd.Active(ctx, did); active {
		t.Fatal("Active after window = true, want false")
	}
}

func TestCooldownRegrantResetsWindow(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(0)
	cd := NewCooldowns(storage.NewMemory(), time.Hour, logx.Nop()).WithClock(clk.Now)

	if err := cd.Grant(ctx, "did:plc:bob"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	clk.Advance(2 * time.Hour)
	if active, _ := cd.Active(ctx, "did:plc:bob"); active {
		t.Fatal("cooldown should be expired")
	}
	if err := cd.Grant(ctx, "did:plc:bob"); err != nil {
		t.Fatalf("re-Grant: %v", err)
	}
	clk.Advance(30 * time.Minute)
	if active, _ := cd.Active(ctx, "did:plc:bob"); !active {
		t.Fatal("cooldown should be active after re-grant")
	}
}

func TestCooldownPerIdentity(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(0)
	cd := NewCooldowns(storage.NewMemory(), time.Hour, logx.Nop()).WithClock(clk.Now)

	if err := cd.Grant(ctx, "did:plc:alice"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if active, _ := cd.Active(ctx, "did:plc:alice"); !active {
		t.Fatal("alice should be on cooldown")
	}
	if active, _ := cd.Active(ctx, "did:plc:bob"); active {
		t.Fatal("bob should not be on cooldown")
	}
}

func TestHandledMarkIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	h := NewHandled(mem, logx.Nop())

	if ok, _ := h.Has(ctx, "at://x/app.bsky.feed.post/1"); ok {
		t.Fatal("unseen id reported handled")
	}
	for i := 0; i < 3; i++ {
		if err := h.Mark(ctx, "at://x/app.bsky.feed.post/1"); err != nil {
			t.Fatalf("Mark #%d: %v", i, err)
		}
	}
	if ok, _ := h.Has(ctx, "at://x/app.bsky.feed.post/1"); !ok {
		t.Fatal("marked id not reported handled")
	}
	if n := mem.HandledCount(); n != 1 {
		t.Fatalf("HandledCount = %d, want 1", n)
	}
}
