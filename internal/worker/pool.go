// Package worker implements the bounded worker pool spec.md §5
// describes: N goroutines draining a shared FIFO job queue, each
// owning its own decoder instance for its lifetime, with an advisory
// progress reporter polling queue depth once a second.
package worker

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"qalign/internal/decoder"
	"qalign/internal/job"
	"qalign/internal/segment"
)

// NewRunnerFunc builds a fresh job.Runner for one worker. Each worker
// calls this lazily on its first job, and again on its next job if the
// previous call failed — this is where a worker's private
// decoder.Decoder gets constructed.
type NewRunnerFunc func() (*job.Runner, error)

// Result pairs a job with either its completed SegmentationResult or
// the error that aborted it. The Pool never aborts the whole batch on
// a single job's error — see spec.md §7's Pool-worker-boundary
// handling.
type Result struct {
	Job    *segment.SegmentationJob
	Output *segment.SegmentationResult
	Err    error
}

// Pool runs SegmentationJobs across a fixed number of worker
// goroutines. Results are collected in whatever order workers finish
// them — spec.md §5 explicitly does not guarantee cross-worker
// ordering; callers wanting (surah, ayah) order must sort the slice Run
// returns themselves.
type Pool struct {
	newRunner NewRunnerFunc
	numWorkers int

	mu      sync.Mutex
	queue   []*segment.SegmentationJob
	results []Result

	queued    int
	inFlight  int
	completed int
}

// New builds a Pool with numWorkers workers. A numWorkers <= 0 falls
// back to runtime.NumCPU(), with a floor of 4 matching spec.md §5's
// default.
func New(numWorkers int, newRunner NewRunnerFunc) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
		if numWorkers < 4 {
			numWorkers = 4
		}
	}
	return &Pool{newRunner: newRunner, numWorkers: numWorkers}
}

// Submit enqueues jobs. Must be called before Run.
func (p *Pool) Submit(jobs ...*segment.SegmentationJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, jobs...)
	p.queued += len(jobs)
}

func (p *Pool) pop() *segment.SegmentationJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	j := p.queue[0]
	p.queue = p.queue[1:]
	p.queued--
	p.inFlight++
	return j
}

func (p *Pool) record(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
	p.inFlight--
	p.completed++
}

// Status is the advisory queue-depth snapshot the reporter goroutine
// polls once a second.
type Status struct {
	Queued    int `json:"queued"`
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
}

// Status returns a point-in-time snapshot. It is advisory only — by
// the time a caller reads it, workers may already have moved on.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Queued: p.queued, InFlight: p.inFlight, Completed: p.completed}
}

// Run drains the queue across p.numWorkers goroutines and blocks until
// every submitted job has produced a Result. reporter, if non-nil, is
// called with each second's Status snapshot until Run returns.
func (p *Pool) Run(ctx context.Context, reporter func(Status)) []Result {
	var wg sync.WaitGroup

	reportDone := make(chan struct{})
	if reporter != nil {
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					reporter(p.Status())
				case <-reportDone:
					return
				}
			}
		}()
	}

	for w := 0; w < p.numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(w)
	}
	wg.Wait()
	close(reportDone)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	var r *job.Runner
	for {
		j := p.pop()
		if j == nil {
			return
		}
		if r == nil {
			var err error
			r, err = p.newRunner()
			if err != nil {
				log.Printf("worker %d: failed to construct runner: %v", id, err)
				p.record(Result{Job: j, Err: fmt.Errorf("worker %d: %w", id, err)})
				continue
			}
		}

		out, err := r.Run(ctx, j)
		if err != nil {
			log.Printf("worker %d: job %s failed: %v", id, j.ID, err)
		}
		p.record(Result{Job: j, Output: out, Err: err})
	}
}

// DecoderRunnerFactory is a convenience NewRunnerFunc constructor for
// the common case of one shared decoder.Config, dictionary and tmp
// directory across every worker.
func DecoderRunnerFactory(cfg decoder.Config, dict map[string]string, tmpDir string) NewRunnerFunc {
	return func() (*job.Runner, error) {
		d, err := decoder.New(cfg)
		if err != nil {
			return nil, err
		}
		return job.NewRunner(d, dict, tmpDir), nil
	}
}
