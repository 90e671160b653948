package worker

import (
	"context"
	"sync"
)

// Job is one unit of batch work, typically a single response-set analysis.
type Job interface {
	Execute(ctx context.Context) *AnalyzeResult
}

// Pool fans jobs out to a fixed number of workers and gathers their results
// in completion order. A pool is single-use: Start, Submit, then either Wait
// or Shutdown.
type Pool struct {
	workers int
	jobs    chan Job
	results chan *AnalyzeResult
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPool creates a pool of the given size. The context bounds every job
// execution; canceling it abandons queued work.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan *AnalyzeResult, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			res := job.Execute(p.ctx)
			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. After cancellation it returns without queuing.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobs <- job:
	}
}

// Wait closes intake, lets the workers drain the queue and returns every
// result in completion order.
func (p *Pool) Wait() []*AnalyzeResult {
	close(p.jobs)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var out []*AnalyzeResult
	for res := range p.results {
		out = append(out, res)
	}
	return out
}

// Shutdown cancels in-flight work and releases the workers. Queued jobs that
// never started are dropped.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.once.Do(func() {
		close(p.results)
	})
}
