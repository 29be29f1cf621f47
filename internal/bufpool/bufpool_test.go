package bufpool_test

import (
	"sync"
	"testing"

	"github.com/onvifd/camera-onvif-daemon/internal/bufpool"
)

func TestPool_AcquireRelease(t *testing.T) {
	p := bufpool.New(2, 64)

	buf := p.Acquire()
	if buf == nil {
		t.Fatal("expected a buffer on first acquire")
	}
	if len(buf) != 64 {
		t.Errorf("expected buffer of size 64, got %d", len(buf))
	}

	stats := p.Stats()
	if stats.Hits != 1 || stats.CurrentUsed != 1 {
		t.Errorf("unexpected stats after acquire: %+v", stats)
	}

	p.Release(buf)
	stats = p.Stats()
	if stats.CurrentUsed != 0 {
		t.Errorf("expected CurrentUsed 0 after release, got %d", stats.CurrentUsed)
	}
}

func TestPool_MissWhenExhausted(t *testing.T) {
	p := bufpool.New(1, 16)

	buf := p.Acquire()
	if buf == nil {
		t.Fatal("expected first acquire to succeed")
	}

	miss := p.Acquire()
	if miss != nil {
		t.Error("expected nil on acquiring from an exhausted pool")
	}

	stats := p.Stats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.UtilizationPercent != 100 {
		t.Errorf("expected 100%% utilization, got %d", stats.UtilizationPercent)
	}
}

func TestPool_PeakTracksHighWaterMark(t *testing.T) {
	p := bufpool.New(3, 8)

	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)
	p.Release(b)

	if peak := p.Stats().Peak; peak != 2 {
		t.Errorf("expected peak of 2, got %d", peak)
	}
}

func TestPool_ReleaseUnknownBufferIsNoOp(t *testing.T) {
	p := bufpool.New(1, 8)
	foreign := make([]byte, 8)

	p.Release(foreign)

	if used := p.Stats().CurrentUsed; used != 0 {
		t.Errorf("releasing a foreign buffer should not change CurrentUsed, got %d", used)
	}
}

func TestPool_ReleaseNilOrEmptyIsNoOp(t *testing.T) {
	p := bufpool.New(1, 8)

	p.Release(nil)
	p.Release([]byte{})

	if used := p.Stats().CurrentUsed; used != 0 {
		t.Errorf("releasing a nil or empty buffer should not change CurrentUsed, got %d", used)
	}
}

func TestPool_ConcurrentAcquireRelease(t *testing.T) {
	p := bufpool.New(8, 32)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := p.Acquire()
			if buf != nil {
				p.Release(buf)
			}
		}()
	}
	wg.Wait()

	if used := p.Stats().CurrentUsed; used != 0 {
		t.Errorf("expected all buffers released, got CurrentUsed %d", used)
	}
}
