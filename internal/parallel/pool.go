// Package parallel provides the worker pool driving per-pixel prefilter
// stages.
//
// Prefilter work is embarrassingly parallel: every pixel of the working
// rectangle is an independent evaluation, so the pipeline shards a stage
// into per-row jobs and hands them to the pool. Workers pull from their
// own queue first and steal from other workers when it runs dry, which
// balances load when rows near buffer edges finish faster than interior
// rows with full smoothing windows.
//
// Thread safety: Pool is safe for concurrent use.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines executing row jobs for prefilter stages.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds per-worker job queues. Each worker primarily pulls
	// from its own queue but can steal from others.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// New creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for jobs.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	mine := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(mine)
			return

		case job := <-mine:
			if job != nil {
				job()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
			} else {
				// Nothing to steal anywhere, block on own queue.
				select {
				case <-p.done:
					p.drain(mine)
					return
				case job := <-mine:
					if job != nil {
						job()
					}
				}
			}
		}
	}
}

// drain executes all remaining jobs in a queue.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case job := <-queue:
			if job != nil {
				job()
			}
		default:
			return
		}
	}
}

// steal attempts to take a job from another worker's queue.
// Returns nil if no work is available.
func (p *Pool) steal(myID int) func() {
	for i := 0; i < p.workers; i++ {
		if i == myID {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// ExecuteAll distributes jobs round-robin across workers and waits for
// all of them to complete. The wait doubles as the barrier between
// prefilter stages: once ExecuteAll returns, every job's writes are
// visible to the caller. If the pool is closed, this is a no-op.
func (p *Pool) ExecuteAll(jobs []func()) {
	if len(jobs) == 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(jobs))

	for i, fn := range jobs {
		job := fn
		wrapped := func() {
			defer completion.Done()
			job()
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Close gracefully shuts down the pool: it stops accepting new work,
// runs all queued jobs and stops the workers.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int { return p.workers }

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool { return p.running.Load() }
