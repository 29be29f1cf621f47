package workerpool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/workerpool"
)

func TestPool_SubmitExecutesTask(t *testing.T) {
	p := workerpool.New(4, time.Second)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(ctx)

	var ran sync.WaitGroup
	ran.Add(1)
	if err := p.Submit(ctx, func(context.Context) { ran.Done() }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitOrTimeout(t, &ran, time.Second)

	stats := p.GetStats()
	if stats.CompletedTasks != 1 {
		t.Errorf("expected 1 completed task, got %d", stats.CompletedTasks)
	}
}

func TestPool_SubmitBeforeStartFails(t *testing.T) {
	p := workerpool.New(2, time.Second)
	if err := p.Submit(context.Background(), func(context.Context) {}); err == nil {
		t.Error("expected Submit before Start to fail")
	}
}

func TestPool_DoubleStartFails(t *testing.T) {
	p := workerpool.New(2, time.Second)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer p.Stop(ctx)

	if err := p.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestPool_TaskTimeoutCountsAsTimeout(t *testing.T) {
	p := workerpool.New(1, 20*time.Millisecond)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	blocked := make(chan struct{})
	if err := p.Submit(ctx, func(taskCtx context.Context) {
		<-taskCtx.Done()
		close(blocked)
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("task never observed its timeout")
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if stats := p.GetStats(); stats.TimeoutTasks != 1 {
		t.Errorf("expected 1 timeout task, got %d", stats.TimeoutTasks)
	}
}

func TestPool_PanicInTaskIsRecovered(t *testing.T) {
	p := workerpool.New(1, time.Second)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var done sync.WaitGroup
	done.Add(1)
	if err := p.Submit(ctx, func(context.Context) {
		defer done.Done()
		panic("boom")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitOrTimeout(t, &done, time.Second)

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stats := p.GetStats(); stats.FailedTasks != 1 {
		t.Errorf("expected 1 failed task after panic recovery, got %d", stats.FailedTasks)
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	p := workerpool.New(2, time.Second)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
	if p.IsRunning() {
		t.Error("pool should report not running after Stop")
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for task completion")
	}
}
