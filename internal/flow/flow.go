// Package flow implements the per-(endpoint, priority) FlowState: a paged
// byte log guarded by a mutex and a wait-queue with exclusive wakeup,
// matching spec.md §4.2.
package flow

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pcaliandro/go-multistream/internal/pagelog"
)

// Outcome is the result of a suspension on a FlowState's wait-queue.
type Outcome int

const (
	// Acquired means the mutex was obtained (or the predicate became true).
	Acquired Outcome = iota
	// TimedOut means the deadline elapsed before the wait resolved.
	TimedOut
	// Interrupted means the caller's context was canceled before the
	// deadline, modeling an asynchronous interrupt signal.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Acquired:
		return "acquired"
	case TimedOut:
		return "timed-out"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

func toOutcome(w waitOutcome) Outcome {
	switch w {
	case waitTimedOut:
		return TimedOut
	case waitInterrupted:
		return Interrupted
	default:
		return Acquired
	}
}

// State holds one flow's paged log, mutex, wait-queue and counters. All
// mutation of the log and the plain counters happens under mu; the
// atomic mirrors exist solely so Engine.Stats() can read bytes/waiters
// without contending on a busy flow's mutex, per spec.md §5's
// "read locklessly by observers" policy.
type State struct {
	mu sync.Mutex
	wq *waitQueue
	log *pagelog.Log

	capacity   int
	validBytes int
	freeBytes  int

	validSnapshot atomic.Int64
	waiterCount   atomic.Int64
}

// New creates a FlowState with one empty page already allocated and
// free_bytes equal to the full capacity.
func New(pageSize, maxPages int) *State {
	capacity := pageSize * maxPages
	return &State{
		wq:        newWaitQueue(),
		log:       pagelog.New(pageSize, maxPages),
		capacity:  capacity,
		freeBytes: capacity,
	}
}

// TryLock makes a single non-blocking attempt to acquire the flow's mutex.
func (f *State) TryLock() bool {
	return f.mu.TryLock()
}

// Lock blocks until the flow's mutex is acquired. It is used by the
// deferred-write scheduler, which is not bound by a session timeout and
// so has no need for the wait-queue/deadline machinery sessions use.
func (f *State) Lock() {
	f.mu.Lock()
}

// Unlock releases the flow's mutex.
func (f *State) Unlock() {
	f.mu.Unlock()
}

// LockOrWait implements spec.md §4.2's lock_or_wait: try the mutex, and if
// it is held, suspend on the wait-queue until this waiter is woken (at
// which point the attempt is retried), the context's deadline elapses, or
// the context is canceled.
func (f *State) LockOrWait(ctx context.Context) Outcome {
	for {
		if f.mu.TryLock() {
			return Acquired
		}

		f.waiterCount.Add(1)
		w := f.wq.wait(ctx)
		f.waiterCount.Add(-1)

		if w != waitSignaled {
			return toOutcome(w)
		}
		// Woken: the predicate (lock availability) must be rechecked,
		// tolerating spurious and losing-race wakeups.
	}
}

// WaitFor implements spec.md §4.2's wait_for: the caller must hold f's
// mutex on entry. It is released immediately, and the call suspends until
// predicate() holds (rechecked under a brief re-lock after every wakeup),
// the deadline elapses, or the context is canceled. On every return path
// the mutex is NOT held; the caller re-locks as spec.md directs.
func (f *State) WaitFor(ctx context.Context, predicate func() bool) Outcome {
	f.mu.Unlock()

	for {
		f.waiterCount.Add(1)
		w := f.wq.wait(ctx)
		f.waiterCount.Add(-1)

		if w != waitSignaled {
			return toOutcome(w)
		}

		f.mu.Lock()
		ok := predicate()
		f.mu.Unlock()

		if ok {
			return Acquired
		}
	}
}

// WakeOne releases exactly one waiter on the flow's wait-queue. It must be
// called on every exit path that mutates the flow, including refusals.
func (f *State) WakeOne() {
	f.wq.wakeOne()
}

// FreeBytesLocked returns free_bytes. The caller must hold the mutex.
func (f *State) FreeBytesLocked() int {
	return f.freeBytes
}

// ValidBytesLocked returns valid_bytes. The caller must hold the mutex.
func (f *State) ValidBytesLocked() int {
	return f.validBytes
}

// ReserveLocked debits free_bytes by n, used to reserve capacity for a
// deferred low-priority write at enqueue time. The caller must hold the
// mutex.
func (f *State) ReserveLocked(n int) {
	f.freeBytes -= n
	f.publishLocked()
}

// RefundLocked credits free_bytes by n, used when a low-priority write's
// deferred-scheduler enqueue is refused after the reservation was already
// taken (spec.md §4.3 step 7). The caller must hold the mutex.
func (f *State) RefundLocked(n int) {
	f.freeBytes += n
	f.publishLocked()
}

// AppendLocked writes data into the log and updates valid_bytes/free_bytes
// by the number of bytes actually appended, which may be less than
// len(data) only if the page allocator could not keep up (spec.md §4.1);
// this implementation's allocator never fails, so short appends are not
// expected in practice but are still accounted for defensively. The caller
// must hold the mutex and must have already ensured len(data) <= free_bytes.
func (f *State) AppendLocked(data []byte) int {
	n := f.log.Append(data)
	f.validBytes += n
	f.freeBytes -= n
	f.publishLocked()
	return n
}

// CommitReservedLocked writes data into the log for bytes whose capacity
// was already debited from free_bytes at enqueue time (spec.md §4.6 step
// 3, the deferred-write path): it credits valid_bytes for what was
// actually appended but leaves free_bytes untouched, then refunds any
// shortfall (len(data) minus what the allocator actually appended) back
// to free_bytes, per spec.md §9's refund policy. The caller must hold the
// mutex.
func (f *State) CommitReservedLocked(data []byte) int {
	n := f.log.Append(data)
	f.validBytes += n
	if shortfall := len(data) - n; shortfall > 0 {
		f.freeBytes += shortfall
	}
	f.publishLocked()
	return n
}

// ConsumeLocked drains up to len(dst) bytes from the log head into dst and
// updates valid_bytes/free_bytes accordingly. The caller must hold the
// mutex.
func (f *State) ConsumeLocked(dst []byte) int {
	n := f.log.Consume(dst)
	f.validBytes -= n
	f.freeBytes += n
	f.publishLocked()
	return n
}

func (f *State) publishLocked() {
	f.validSnapshot.Store(int64(f.validBytes))
}

// ValidBytesSnapshot returns the most recently published valid_bytes
// count without acquiring the mutex, for use by Engine.Stats().
func (f *State) ValidBytesSnapshot() int64 {
	return f.validSnapshot.Load()
}

// WaiterSnapshot returns the current number of goroutines suspended on
// this flow's wait-queue, without acquiring the mutex.
func (f *State) WaiterSnapshot() int64 {
	return f.waiterCount.Load()
}

// Capacity returns the flow's total byte capacity (pageSize * maxPages).
func (f *State) Capacity() int {
	return f.capacity
}
