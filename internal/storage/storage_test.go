package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "skylens/pkg/logx"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "state.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestHandledInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := st.HasHandled(ctx, "n1")
			if err != nil || ok {
				t.Fatalf("HasHandled before mark = (%v, %v), want (false, nil)", ok, err)
			}

			first := time.UnixMilli(1_000_000)
			if err := st.MarkHandled(ctx, "n1", first); err != nil {
				t.Fatalf("MarkHandled: %v", err)
			}
			// Re-marking is a no-op, never an error.
			if err := st.MarkHandled(ctx, "n1", first.Add(time.Hour)); err != nil {
				t.Fatalf("MarkHandled again: %v", err)
			}

			ok, err = st.HasHandled(ctx, "n1")
			if err != nil || !ok {
				t.Fatalf("HasHandled after mark = (%v, %v), want (true, nil)", ok, err)
			}
			ok, err = st.HasHandled(ctx, "n2")
			if err != nil || ok {
				t.Fatalf("HasHandled other id = (%v, %v), want (false, nil)", ok, err)
			}
		})
	}
}

func TestGrantUpsert(t *testing.T) {
	ctx := context.Background()
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := st.LastGranted(ctx, "did:plc:eve"); err != nil || ok {
				t.Fatalf("LastGranted before grant = ok=%v err=%v, want absent", ok, err)
			}

			t0 := time.UnixMilli(5_000_000)
			if err := st.PutGrant(ctx, "did:plc:eve", t0); err != nil {
				t.Fatalf("PutGrant: %v", err)
			}
			at, ok, err := st.LastGranted(ctx, "did:plc:eve")
			if err != nil || !ok {
				t.Fatalf("LastGranted = ok=%v err=%v", ok, err)
			}
			if !at.Equal(t0) {
				t.Fatalf("LastGranted = %v, want %v", at, t0)
			}

			// Upsert overwrites unconditionally.
			t1 := t0.Add(7 * time.Hour)
			if err := st.PutGrant(ctx, "did:plc:eve", t1); err != nil {
				t.Fatalf("PutGrant overwrite: %v", err)
			}
			at, _, _ = st.LastGranted(ctx, "did:plc:eve")
			if !at.Equal(t1) {
				t.Fatalf("LastGranted after overwrite = %v, want %v", at, t1)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	cfg := Config{Driver: "sqlite", Path: path, BusyTimeout: 2 * time.Second}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.MarkHandled(ctx, "n1", time.Now()); err != nil {
		t.Fatalf("MarkHandled: %v", err)
	}
	if err := st.PutGrant(ctx, "did:plc:eve", time.Now()); err != nil {
		t.Fatalf("PutGrant: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	ok, err := st.HasHandled(ctx, "n1")
	if err != nil || !ok {
		t.Fatalf("HasHandled after reopen = (%v, %v), want (true, nil)", ok, err)
	}
	if _, ok, _ := st.LastGranted(ctx, "did:plc:eve"); !ok {
		t.Fatal("grant lost across reopen")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
