package workerpool

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrPoolClosed = errors.New("worker pool is closed")

type Job func(ctx context.Context) error

// WorkerPool runs jobs on a fixed number of workers and collects every
// job error, so a caller can fan work out and learn whether all of it succeeded.
type WorkerPool struct {
	ctx    context.Context
	queue  chan Job
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	errs   []error
}

func NewWorkerPool(ctx context.Context, workerCount int, queueSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &WorkerPool{
		ctx:   ctx,
		queue: make(chan Job, queueSize),
	}

	pool.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go pool.worker()
	}

	return pool
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for job := range p.queue {
		// Jobs still queued after cancellation are reported, not run.
		if err := p.ctx.Err(); err != nil {
			p.record(err)
			continue
		}
		p.record(job(p.ctx))
	}
}

func (p *WorkerPool) record(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Submit queues a job, blocking while the queue is full.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Wait closes the queue, waits for every submitted job and returns their
// errors joined. Only the submitting goroutine may call Wait.
func (p *WorkerPool) Wait() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// WithRetry retries job up to retries times, sleeping delay between attempts.
// The last error is returned once the attempts run out.
func WithRetry(retries int, delay time.Duration, job Job) Job {
	if retries < 1 {
		retries = 1
	}

	return func(ctx context.Context) error {
		var err error
		for i := 0; i < retries; i++ {
			if ctx.Err() != nil {
				log.Println("Job canceled before execution")
				return ctx.Err()
			}

			if err = job(ctx); err == nil {
				return nil
			}
			log.Printf("Job failed (attempt %d/%d): %v", i+1, retries, err)

			if i == retries-1 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		log.Println("Job failed after max retries")
		return err
	}
}
