package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "skylens/pkg/logx"
)

func TestGoRecordsFirstError(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))

	boom := errors.New("boom")
	s.Go("worker", func(ctx context.Context) error { return boom })

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("cancel-on-error did not cancel the context")
	}
	if !errors.Is(s.Err(), boom) {
		t.Fatalf("Err = %v, want boom", s.Err())
	}
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))

	s.Go("panicky", func(ctx context.Context) error { panic("ouch") })

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("panic did not cancel the context")
	}
	if s.Err() == nil {
		t.Fatal("panic should be recorded as an error")
	}
}

func TestStopWaitsForGoroutines(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithLogger(logx.Nop()))

	released := make(chan struct{})
	s.Go("blocker", func(ctx context.Context) error {
		<-ctx.Done()
		close(released)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-released:
	default:
		t.Fatal("Stop returned before the goroutine exited")
	}
	if n := s.Active(); n != 0 {
		t.Fatalf("Active = %d after Stop, want 0", n)
	}
}
