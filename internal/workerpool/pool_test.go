package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(2, 4, nil)
	defer p.Shutdown(true, time.Second)

	var n atomic.Int64
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		if err := p.Submit(context.Background(), func(context.Context) {
			n.Add(1)
			done <- struct{}{}
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for task to run")
		}
	}
	if n.Load() != 3 {
		t.Fatalf("expected 3 tasks to run, got %d", n.Load())
	}
}

func TestPool_TrySubmitFailsWhenFull(t *testing.T) {
	p := New(1, 1, nil)
	defer p.Shutdown(false, 0)

	block := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(context.Background(), func(context.Context) { close(started); <-block }); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	<-started
	// the only worker is busy; queue capacity 1: one more fits in the
	// queue, then the pool is full.
	if err := p.TrySubmit(func(context.Context) { <-block }); err != nil {
		t.Fatalf("unexpected error filling queue: %v", err)
	}
	if err := p.TrySubmit(func(context.Context) {}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(block)
}

func TestPool_SubmitAfterShutdownFails(t *testing.T) {
	p := New(1, 1, nil)
	p.Shutdown(true, time.Second)

	if err := p.Submit(context.Background(), func(context.Context) {}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestPool_GracefulShutdownDrainsQueue(t *testing.T) {
	p := New(1, 4, nil)

	var n atomic.Int64
	for i := 0; i < 3; i++ {
		_ = p.Submit(context.Background(), func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			n.Add(1)
		})
	}
	p.Shutdown(true, time.Second)

	if n.Load() != 3 {
		t.Fatalf("expected all 3 queued tasks to run before graceful shutdown returns, got %d", n.Load())
	}
}
