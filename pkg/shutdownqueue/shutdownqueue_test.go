package shutdownqueue

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietQueue() *Queue {
	return New().WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func noop(context.Context) error { return nil }

func TestAddNilTaskIsNoop(t *testing.T) {
	t.Parallel()

	q := quietQueue()
	q.Add("nil", nil)

	if q.Len() != 0 {
		t.Fatalf("expected nil task to be ignored; len=%d", q.Len())
	}

	err := q.Shutdown(t.Context())
	if err != nil {
		t.Fatalf("expected nil after adding nil task; got %v", err)
	}
}

func TestLIFOOrder(t *testing.T) {
	t.Parallel()

	q := quietQueue()

	var (
		orderMu sync.Mutex
		order   []string
	)

	for _, name := range []string{"db", "dispatcher", "http"} {
		q.Add(name, func(ctx context.Context) error {
			orderMu.Lock()
			defer orderMu.Unlock()

			order = append(order, name)

			return nil
		})
	}

	err := q.Shutdown(t.Context())
	if err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	want := []string{"http", "dispatcher", "db"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order mismatch: got %v, want %v", order, want)
	}
}

func TestPanicRecoveryIncludedAndContinues(t *testing.T) {
	t.Parallel()

	q := quietQueue()

	var ranAfterPanic atomic.Bool

	q.Add("before", noop)
	q.Add("scheduler", func(ctx context.Context) error {
		ranAfterPanic.Store(true)
		return nil
	})
	q.Add("exploding", func(ctx context.Context) error { panic("boom") })

	shErr := q.Shutdown(t.Context())
	if shErr == nil {
		t.Fatalf("expected aggregated error with panic; got nil")
	}

	if !strings.Contains(shErr.Error(), `panic in shutdown task "exploding": boom`) {
		t.Fatalf("expected panic message in error; got: %q", shErr.Error())
	}

	if !ranAfterPanic.Load() {
		t.Fatalf("expected tasks after the panic to still run")
	}
}

func TestEarlyCancelStopsDrain(t *testing.T) {
	t.Parallel()

	q := quietQueue()
	errA := errors.New("taskA")

	var ranB atomic.Bool

	gateReady := make(chan struct{})

	q.Add("a", func(ctx context.Context) error { return errA })
	q.Add("b", func(ctx context.Context) error {
		ranB.Store(true)
		return nil
	})
	q.Add("gate", func(ctx context.Context) error {
		close(gateReady)
		<-ctx.Done()

		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)

	go func() {
		errCh <- q.Shutdown(ctx)
	}()

	<-gateReady
	cancel()

	shErr := <-errCh
	if !errors.Is(shErr, context.Canceled) {
		t.Fatalf("expected errors.Is(err, context.Canceled); got: %v", shErr)
	}

	if !strings.Contains(shErr.Error(), `before "b"`) {
		t.Fatalf("expected the skipped task in the error; got: %v", shErr)
	}

	if ranB.Load() {
		t.Fatalf("expected task b not to run after cancel")
	}

	if errors.Is(shErr, errA) {
		t.Fatalf("did not expect joined error to include taskA")
	}
}

func TestIdempotentAndRunsOnce(t *testing.T) {
	t.Parallel()

	q := quietQueue()

	var count atomic.Int32

	q.Add("count", func(ctx context.Context) error {
		count.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	for i := range 2 {
		err := q.Shutdown(ctx)
		if err != nil {
			t.Fatalf("Shutdown #%d error: %v", i+1, err)
		}
	}

	if got := count.Load(); got != 1 {
		t.Fatalf("expected count=1; got %d", got)
	}
}

func TestAddDuringShutdownIsIgnored(t *testing.T) {
	t.Parallel()

	q := quietQueue()

	started := make(chan struct{})
	unblock := make(chan struct{})

	q.Add("noop", noop)
	q.Add("blocker", func(ctx context.Context) error {
		close(started)
		<-unblock

		return nil
	})

	done := make(chan struct{})

	go func() {
		_ = q.Shutdown(context.Background())

		close(done)
	}()

	<-started

	var ran atomic.Bool
	q.Add("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	close(unblock)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Shutdown did not finish")
	}

	if ran.Load() {
		t.Fatalf("task added after shutdown should not run")
	}
}

func TestTaskErrorsAreJoinedAndNamed(t *testing.T) {
	t.Parallel()

	q := quietQueue()

	err1 := errors.New("alpha")
	err2 := errors.New("beta")

	q.Add("redis", func(ctx context.Context) error { return err1 })
	q.Add("postgres", func(ctx context.Context) error { return err2 })

	shErr := q.Shutdown(t.Context())
	if !errors.Is(shErr, err1) || !errors.Is(shErr, err2) {
		t.Fatalf("expected joined error to contain both; got: %v", shErr)
	}

	s := shErr.Error()
	if !strings.Contains(s, "redis") || !strings.Contains(s, "postgres") {
		t.Fatalf("expected task names in error; got: %q", s)
	}
}

//nolint:paralleltest
func TestDefaultQueueWrappers(t *testing.T) {
	var ran atomic.Bool

	Add("default", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	err := Shutdown(t.Context())
	if err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	if !ran.Load() {
		t.Fatalf("expected task on the default queue to run")
	}
}
