package memtrack_test

import (
	"testing"

	"github.com/onvifd/camera-onvif-daemon/internal/memtrack"
)

func TestTracker_AllocFreeBalance(t *testing.T) {
	tr := memtrack.New()

	tr.Alloc(128)
	tr.Alloc(256)
	if got := tr.Outstanding(); got != 2 {
		t.Errorf("expected 2 outstanding allocations, got %d", got)
	}
	if got := tr.BytesLive(); got != 384 {
		t.Errorf("expected 384 live bytes, got %d", got)
	}

	tr.Free(128)
	if got := tr.Outstanding(); got != 1 {
		t.Errorf("expected 1 outstanding allocation, got %d", got)
	}
	if got := tr.BytesLive(); got != 256 {
		t.Errorf("expected 256 live bytes, got %d", got)
	}

	tr.Free(256)
	if got := tr.Outstanding(); got != 0 {
		t.Errorf("expected 0 outstanding allocations after matching frees, got %d", got)
	}
	if got := tr.BytesLive(); got != 0 {
		t.Errorf("expected 0 live bytes, got %d", got)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := memtrack.New()
	tr.Alloc(64)

	tr.Reset()

	if got := tr.Outstanding(); got != 0 {
		t.Errorf("expected 0 outstanding after reset, got %d", got)
	}
	if got := tr.BytesLive(); got != 0 {
		t.Errorf("expected 0 live bytes after reset, got %d", got)
	}
}

func TestTracker_ConcurrentAllocFree(t *testing.T) {
	tr := memtrack.New()
	const n = 100

	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			tr.Alloc(10)
			tr.Free(10)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	if got := tr.Outstanding(); got != 0 {
		t.Errorf("expected balanced alloc/free to leave 0 outstanding, got %d", got)
	}
	if got := tr.BytesLive(); got != 0 {
		t.Errorf("expected 0 live bytes, got %d", got)
	}
}
