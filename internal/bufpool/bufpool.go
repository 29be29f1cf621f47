// Package bufpool implements the fixed-size buffer pool described in
// the daemon's resource-discipline requirements: a bitmap of N
// same-sized buffers, acquired and released under a single mutex, with
// hit/miss/peak/utilization telemetry and a throttled warning when
// utilization crosses a threshold.
package bufpool

import (
	"sync"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/corr"
	"github.com/onvifd/camera-onvif-daemon/internal/logging"
)

// Stats is a snapshot of pool telemetry.
type Stats struct {
	Hits               uint64
	Misses             uint64
	CurrentUsed        int
	UtilizationPercent int
	Peak               int
	TotalRequests       uint64
}

const warnThresholdPercent = 80

// Pool is a fixed-size buffer pool. The zero value is not usable; build
// one with New.
type Pool struct {
	mu        sync.Mutex
	bufSize   int
	buffers   [][]byte
	taken     []bool
	hits      uint64
	misses    uint64
	peak      int
	total     uint64
	initDone  bool
	throttle  *corr.Throttle
	logger    *logging.Logger
}

// New creates a Pool of n buffers, each bufSize bytes.
func New(n, bufSize int) *Pool {
	p := &Pool{logger: logging.GetLogger("bufpool")}
	p.Init(n, bufSize)
	return p
}

// Init (re)initializes the pool. Re-init of an already-initialized pool
// is a no-op that preserves accumulated statistics.
func (p *Pool) Init(n, bufSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initDone {
		return
	}

	p.bufSize = bufSize
	p.buffers = make([][]byte, n)
	p.taken = make([]bool, n)
	for i := range p.buffers {
		p.buffers[i] = make([]byte, bufSize)
	}
	p.throttle = corr.NewThrottle(10 * time.Second)
	p.initDone = true
}

// Cleanup frees the buffers and marks the pool uninitialized, but keeps
// the mutex and accumulated counters intact so a following Init can
// recreate buffers without losing history.
func (p *Pool) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffers = nil
	p.taken = nil
	p.initDone = false
}

// Acquire returns the first free buffer, or nil on miss (pool fully in
// use). Callers receiving nil are expected to fall back to a heap
// allocation.
func (p *Pool) Acquire() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total++

	for i, taken := range p.taken {
		if !taken {
			p.taken[i] = true
			p.hits++
			p.updatePeakLocked()
			p.maybeWarnLocked()
			return p.buffers[i]
		}
	}

	p.misses++
	p.maybeWarnLocked()
	return nil
}

// Release returns buf to the pool. Releasing a buffer not owned by the
// pool (including nil or zero-length slices), or double-releasing, is
// a no-op debug event rather than a panic.
func (p *Pool) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, b := range p.buffers {
		if len(b) > 0 && &b[0] == &buf[0] {
			p.taken[i] = false
			return
		}
	}
}

// Stats returns a snapshot of current telemetry.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	used := p.usedLocked()
	util := 0
	if n := len(p.buffers); n > 0 {
		util = used * 100 / n
	}

	return Stats{
		Hits:               p.hits,
		Misses:             p.misses,
		CurrentUsed:        used,
		UtilizationPercent: util,
		Peak:               p.peak,
		TotalRequests:      p.total,
	}
}

func (p *Pool) usedLocked() int {
	used := 0
	for _, t := range p.taken {
		if t {
			used++
		}
	}
	return used
}

func (p *Pool) updatePeakLocked() {
	used := p.usedLocked()
	if used > p.peak {
		p.peak = used
	}
}

func (p *Pool) maybeWarnLocked() {
	n := len(p.buffers)
	if n == 0 {
		return
	}
	used := p.usedLocked()
	if used*100/n < warnThresholdPercent {
		return
	}
	if p.throttle != nil && p.throttle.Allow("utilization") {
		p.logger.WithFields(logging.Fields{
			"used":        used,
			"capacity":    n,
			"utilization": used * 100 / n,
		}).Warn("buffer pool utilization crossed warning threshold")
	}
}
