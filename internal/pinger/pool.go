package pinger

import (
	"errors"
	"sync"
)

// Pool errors.
var (
	// ErrPoolFull is returned when every worker is busy and the queue is full.
	ErrPoolFull = errors.New("worker pool queue is full")

	// ErrPoolStopped is returned after Stop.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// WorkerPool runs tasks on a fixed number of goroutines fed by a bounded
// queue. Submissions never block: excess work is rejected.
type WorkerPool struct {
	tasks   chan func()
	slots   chan struct{}
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	workers int
}

// NewWorkerPool starts workers goroutines with a queue of queueDepth
// tasks. At most workers+queueDepth tasks are accepted at once.
func NewWorkerPool(workers, queueDepth int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	capacity := workers + queueDepth
	p := &WorkerPool{
		tasks:   make(chan func(), capacity),
		slots:   make(chan struct{}, capacity),
		workers: workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() { <-p.slots }()
	task()
}

// Submit queues task. It returns ErrPoolFull when no worker can take it
// and the queue has no room.
func (p *WorkerPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.slots <- struct{}{}:
	default:
		return ErrPoolFull
	}
	// A held slot guarantees room in the buffer.
	p.tasks <- task
	return nil
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Stop rejects new tasks and waits for queued and running tasks.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
