package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Submit when the build queue has no room.
var ErrQueueFull = errors.New("build queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("pipeline is stopped")

// Options configures an Orchestrator.
type Options struct {
	MaxQueue int
	JobTTL   time.Duration
}

// Orchestrator queues deck builds and runs them one at a time, since every
// build writes the same output tree.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	builder *Builder
	stats   *BuildStats
	log     *slog.Logger

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to begin processing.
func NewOrchestrator(b *Builder, opts Options, log *slog.Logger) *Orchestrator {
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 16
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:    NewJobStore(opts.JobTTL),
		queue:   make(chan *Job, opts.MaxQueue),
		builder: b,
		stats:   NewBuildStats(opts.JobTTL),
		log:     log,
	}
}

// Start launches the build worker.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				start := time.Now()
				o.builder.Process(workerCtx, job)
				o.stats.Record(time.Since(start), job.Snapshot().Status == StatusFailed)
			}
		}
	}()

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new build.
func (o *Orchestrator) Submit(trigger Trigger) (*Job, error) {
	job := NewJob(trigger)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Info("build queued", "job_id", job.ID, "trigger", trigger)
		return job, nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return job, fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns build durations within the job TTL.
func (o *Orchestrator) Stats() BuildStatsSnapshot {
	return o.stats.Snapshot()
}
