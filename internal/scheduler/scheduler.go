// Package scheduler implements the deferred-write executor of spec.md
// §4.6: an ordered, FIFO-per-endpoint queue of low-priority write jobs
// drained by one or more background workers.
package scheduler

import (
	"context"
	"sync"

	"github.com/pcaliandro/go-multistream/internal/flow"
	"github.com/pcaliandro/go-multistream/internal/logging"
)

// Job is a single deferred low-priority write: its capacity was already
// debited from the target flow's free_bytes at enqueue time (spec.md
// §4.3 step 6, Low branch); the scheduler's only remaining duty is to
// copy Data into Flow's log and reconcile the reservation.
type Job struct {
	EndpointID int
	Flow       *flow.State
	Data       []byte
	pooled     bool
}

// NewJob allocates a pooled staging buffer of the requested size and
// copies src into it, so the caller can release its own buffer
// immediately after enqueueing.
func NewJob(endpointID int, f *flow.State, src []byte) Job {
	buf := getBuffer(len(src))
	copy(buf, src)
	return Job{EndpointID: endpointID, Flow: f, Data: buf, pooled: true}
}

// Scheduler drains deferred write Jobs in FIFO order per endpoint. Jobs
// are hashed onto one of several worker queues by endpoint ID, so
// distinct endpoints may drain in parallel while a single endpoint's
// writes are always applied in the order they were enqueued, per spec.md
// §4.6.
type Scheduler struct {
	queues []chan Job
	wg     sync.WaitGroup
	logger *logging.Logger
}

// New creates a Scheduler with the given number of worker queues, each
// able to hold queueDepth pending jobs before Enqueue starts refusing
// work.
func New(workers, queueDepth int, logger *logging.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Scheduler{
		queues: make([]chan Job, workers),
		logger: logger,
	}
	for i := range s.queues {
		s.queues[i] = make(chan Job, queueDepth)
	}
	return s
}

// Start launches one drain goroutine per worker queue.
func (s *Scheduler) Start() {
	for i, q := range s.queues {
		s.wg.Add(1)
		go s.drain(i, q)
	}
}

// Enqueue submits job to the queue owned by its endpoint, returning false
// if that queue is full (the dispatcher maps this to spec.md §4.3 step 7,
// Unavailable, and refunds the reservation itself).
func (s *Scheduler) Enqueue(job Job) bool {
	q := s.queues[job.EndpointID%len(s.queues)]
	select {
	case q <- job:
		return true
	default:
		if job.pooled {
			putBuffer(job.Data)
		}
		return false
	}
}

// Stop closes every worker queue and waits for in-flight jobs to drain,
// mirroring the teacher's drain-then-close shutdown sequence. It returns
// ctx.Err() if the context is done before drain completes.
func (s *Scheduler) Stop(ctx context.Context) error {
	for _, q := range s.queues {
		close(q)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) drain(worker int, q chan Job) {
	defer s.wg.Done()

	for job := range q {
		s.apply(job)
	}

	s.logger.Debugf("scheduler worker %d drained", worker)
}

// apply performs the deferred copy: lock the flow, commit the staged
// bytes against the reservation already debited at enqueue time, and
// wake one waiter, per spec.md §4.6. free_bytes was already debited once
// by ReserveLocked at enqueue (spec.md §4.6 step 3); CommitReservedLocked
// only credits valid_bytes for the delivered bytes and refunds any
// allocator shortfall, so capacity is never debited twice.
func (s *Scheduler) apply(job Job) {
	f := job.Flow
	f.Lock()
	n := f.CommitReservedLocked(job.Data)
	f.Unlock()
	f.WakeOne()

	if job.pooled {
		putBuffer(job.Data)
	}

	s.logger.Debug("deferred write applied", "endpoint", job.EndpointID, "bytes", n)
}
