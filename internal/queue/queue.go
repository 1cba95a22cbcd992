package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueClosed = errors.New("queue: shut down")

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs jobs on a fixed set of workers. HTTP handlers and
// socket events share one pool so a burst of either is bounded.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	log        *slog.Logger
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int, log *slog.Logger) *RequestQueueManager {
	if log == nil {
		log = slog.Default()
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		log:        log,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.log.Debug("worker started", "worker", workerID)
			for job := range rqm.JobQueue {
				err := rqm.run(job)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.log.Debug("worker stopped", "worker", workerID)
		}(i)
	}
}

func (rqm *RequestQueueManager) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rqm.log.Error("job panicked", "panic", r)
			err = errors.New("queue: job panicked")
		}
	}()
	return job.Fn()
}

// EnqueueJob blocks until the job is queued, ctx ends or the queue shuts down.
func (rqm *RequestQueueManager) EnqueueJob(ctx context.Context, job Job) error {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return ErrQueueClosed
	}

	select {
	case rqm.JobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.mu.Lock()
	if rqm.closed {
		rqm.mu.Unlock()
		return
	}
	rqm.closed = true
	close(rqm.JobQueue)
	rqm.mu.Unlock()
	rqm.wg.Wait()
}
