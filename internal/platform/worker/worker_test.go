package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWait(t *testing.T) {
	t.Run("zero duration returns immediately", func(t *testing.T) {
		if err := Wait(context.Background(), 0); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	})

	t.Run("elapses", func(t *testing.T) {
		if err := Wait(context.Background(), time.Millisecond); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Wait(ctx, time.Minute)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() error = %v, want context.Canceled", err)
		}
	})
}

func TestRecoverPanic(t *testing.T) {
	logger := zerolog.Nop()

	func() {
		defer RecoverPanic(&logger, "test op")
		panic("boom")
	}()
	// Reaching here means the panic was swallowed.
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, Config{
			Name: "test",
			Tasks: []Task{{
				Name:       "tick",
				Interval:   10 * time.Millisecond,
				RunOnStart: true,
				Run:        func(context.Context) { runs.Add(1) },
			}},
		})
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Loop() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop after cancel")
	}

	if runs.Load() < 2 {
		t.Errorf("task ran %d times, want at least 2 (start + tick)", runs.Load())
	}
}

func TestLoopRecoversTaskPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, Config{
			Name: "test",
			Tasks: []Task{{
				Name:     "panics",
				Interval: 10 * time.Millisecond,
				Run: func(context.Context) {
					runs.Add(1)
					panic("task failure")
				},
			}},
		})
	}()

	// The loop drains at most one tick per task per pollInterval, so the
	// window must span at least two polls for a second run.
	time.Sleep(3*pollInterval + 50*time.Millisecond)
	cancel()
	<-done

	if runs.Load() < 2 {
		t.Errorf("task ran %d times, want at least 2 despite panics", runs.Load())
	}
}

func TestLoopNoTasksBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, Config{Name: "idle"})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Loop() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop after cancel")
	}
}
