// Package workerpool runs bounded fan-out work for the acquisition and
// street-level stages.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"go-roof-inspector/internal/logger"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("worker pool closed")

// Job is one unit of work. It receives the batch context.
type Job func(ctx context.Context)

// WorkerPool manages a fixed set of goroutines fed from a shared queue
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Workers reports the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.start.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job()
	}
}

// Submit adds a job to the worker pool queue. Wait blocks until it has run.
// A panicking job is logged and does not take its worker down.
func (wp *WorkerPool) Submit(job func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrClosed
	}
	wp.Start()
	wp.wg.Add(1)
	wp.jobQueue <- func() {
		defer wp.wg.Done()
		defer recoverJob()
		job()
	}
	return nil
}

func recoverJob() {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic": fmt.Sprint(r),
			"stack": string(debug.Stack()),
		}).Error("Worker pool job panicked")
	}
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Do runs a batch of jobs and waits for that batch only, so concurrent
// callers sharing the pool do not wait on each other's work.
// Jobs not yet started when ctx is done are skipped.
//
// The returned count is how many jobs were handed to the pool. When the pool
// closes mid-batch it is less than len(jobs), the error is ErrClosed and
// jobs[n:] never ran.
func (wp *WorkerPool) Do(ctx context.Context, jobs []Job) (int, error) {
	var batch sync.WaitGroup
	for i, job := range jobs {
		job := job
		batch.Add(1)
		err := wp.Submit(func() {
			defer batch.Done()
			if ctx.Err() != nil {
				return
			}
			job(ctx)
		})
		if err != nil {
			batch.Done()
			batch.Wait()
			return i, err
		}
	}
	batch.Wait()
	return len(jobs), ctx.Err()
}

// Close shuts down the worker pool. Safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.stop.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.jobQueue)
		wp.mu.Unlock()
	})
}
