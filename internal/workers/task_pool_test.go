package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskPool_RunsTasks(t *testing.T) {
	p := NewTaskPool(2, 10, nil)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		p.Submit("count", func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
	}
	wg.Wait()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if ran.Load() != 5 {
		t.Errorf("Expected 5 tasks to run, got %d", ran.Load())
	}
}

func TestTaskPool_SurvivesFailuresAndPanics(t *testing.T) {
	p := NewTaskPool(1, 10, nil)

	p.Submit("fails", func(ctx context.Context) error { return errors.New("boom") })
	p.Submit("panics", func(ctx context.Context) error { panic("boom") })

	done := make(chan struct{})
	p.Submit("after", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the worker to keep running after a panic")
	}
	_ = p.Shutdown(context.Background())
}

func TestTaskPool_DropsAfterShutdown(t *testing.T) {
	p := NewTaskPool(1, 1, nil)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	var ran atomic.Bool
	p.Submit("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Error("Expected task submitted after shutdown to be dropped")
	}

	// a second shutdown is harmless
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Second shutdown failed: %v", err)
	}
}

func TestTaskPool_ShutdownHonoursDeadline(t *testing.T) {
	p := NewTaskPool(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	p.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	close(release)
}
