// Package workerpool implements the bounded worker pool that backs the
// HTTP accept loop: a fixed-size semaphore gates concurrent connection
// handlers, with atomic stats and panic-safe task execution. Adapted
// from the camera monitor's DefaultBoundedWorkerPool.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/logging"
)

// Stats is a snapshot of pool activity.
type Stats struct {
	ActiveWorkers  int
	QueuedTasks    int
	CompletedTasks int64
	FailedTasks    int64
	TimeoutTasks   int64
	MaxWorkers     int
}

// Pool is a bounded worker pool accepting connection-handler jobs.
type Pool struct {
	maxWorkers  int
	taskTimeout time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	logger      *logging.Logger

	activeWorkers  int64
	queuedTasks    int64
	completedTasks int64
	failedTasks    int64
	timeoutTasks   int64

	running  int32
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a bounded worker pool. maxWorkers<=0 defaults to 10;
// taskTimeout<=0 defaults to 5s.
func New(maxWorkers int, taskTimeout time.Duration) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Second
	}

	return &Pool{
		maxWorkers:  maxWorkers,
		taskTimeout: taskTimeout,
		semaphore:   make(chan struct{}, maxWorkers),
		logger:      logging.GetLogger("workerpool"),
		stopChan:    make(chan struct{}),
	}
}

// Start marks the pool ready to accept work.
func (p *Pool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return fmt.Errorf("worker pool is already running")
	}
	p.logger.WithFields(logging.Fields{
		"max_workers":  p.maxWorkers,
		"task_timeout": p.taskTimeout,
	}).Info("worker pool started")
	return nil
}

// Submit enqueues task for execution, blocking until a worker slot
// frees up, ctx is done, or the pool is stopping.
func (p *Pool) Submit(ctx context.Context, task func(context.Context)) error {
	if atomic.LoadInt32(&p.running) == 0 {
		return fmt.Errorf("worker pool is not running")
	}

	atomic.AddInt64(&p.queuedTasks, 1)
	defer atomic.AddInt64(&p.queuedTasks, -1)

	select {
	case p.semaphore <- struct{}{}:
		atomic.AddInt64(&p.activeWorkers, 1)
		p.wg.Add(1)
		go p.executeTask(ctx, task)
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&p.failedTasks, 1)
		return fmt.Errorf("submit task: %w", ctx.Err())
	case <-p.stopChan:
		atomic.AddInt64(&p.failedTasks, 1)
		return fmt.Errorf("worker pool is shutting down")
	}
}

func (p *Pool) executeTask(ctx context.Context, task func(context.Context)) {
	defer func() {
		atomic.AddInt64(&p.activeWorkers, -1)
		<-p.semaphore
		p.wg.Done()
	}()

	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	done := make(chan struct{})
	panicked := false
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				atomic.AddInt64(&p.failedTasks, 1)
				p.logger.WithFields(logging.Fields{"panic": r}).Error("task panicked in worker pool")
			}
		}()
		task(taskCtx)
	}()

	select {
	case <-done:
		if !panicked {
			atomic.AddInt64(&p.completedTasks, 1)
		}
	case <-taskCtx.Done():
		atomic.AddInt64(&p.timeoutTasks, 1)
		p.logger.WithFields(logging.Fields{"timeout": p.taskTimeout}).Warn("task timed out in worker pool")
	}
}

// Stop waits for in-flight tasks to finish, or ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return nil
	}

	p.stopOnce.Do(func() { close(p.stopChan) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, tasks may have been interrupted")
		return ctx.Err()
	}
}

// IsRunning reports whether the pool currently accepts submissions.
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

// GetStats returns a snapshot of pool counters.
func (p *Pool) GetStats() Stats {
	return Stats{
		ActiveWorkers:  int(atomic.LoadInt64(&p.activeWorkers)),
		QueuedTasks:    int(atomic.LoadInt64(&p.queuedTasks)),
		CompletedTasks: atomic.LoadInt64(&p.completedTasks),
		FailedTasks:    atomic.LoadInt64(&p.failedTasks),
		TimeoutTasks:   atomic.LoadInt64(&p.timeoutTasks),
		MaxWorkers:     p.maxWorkers,
	}
}
