package flow

import "context"

// waitOutcome is the internal result of a single wait-queue suspension,
// before it is translated into the public Outcome the caller sees.
type waitOutcome int

const (
	waitSignaled waitOutcome = iota
	waitTimedOut
	waitInterrupted
)

// waitQueue is a FIFO queue of single-shot wakeup tickets. wakeOne releases
// exactly the oldest ticket, giving the exclusive-wakeup discipline spec.md
// §4.2 requires: one released signal wakes exactly one contender. The
// queue's own mutex is independent of the flow's data mutex so a waiter can
// register itself, release the flow lock, and suspend without holding two
// locks at once.
type waitQueue struct {
	mu      chan struct{} // binary semaphore guarding waiters
	waiters []chan struct{}
}

func newWaitQueue() *waitQueue {
	wq := &waitQueue{mu: make(chan struct{}, 1)}
	wq.mu <- struct{}{}
	return wq
}

func (wq *waitQueue) lock()   { <-wq.mu }
func (wq *waitQueue) unlock() { wq.mu <- struct{}{} }

// wait registers a ticket, then suspends until it is signaled by wakeOne or
// ctx is done. It tolerates the race where a wakeup and a deadline fire at
// nearly the same instant by honoring whichever is observed first and, on
// cancellation, removing its own ticket so a later wakeOne does not block
// forever trying to deliver to an abandoned waiter.
func (wq *waitQueue) wait(ctx context.Context) waitOutcome {
	ticket := make(chan struct{}, 1)

	wq.lock()
	wq.waiters = append(wq.waiters, ticket)
	wq.unlock()

	select {
	case <-ticket:
		return waitSignaled
	case <-ctx.Done():
		wq.lock()
		removed := wq.removeLocked(ticket)
		wq.unlock()

		if !removed {
			// Already popped by wakeOne concurrently with the deadline;
			// honor the wakeup rather than the race-losing cancellation.
			return waitSignaled
		}

		if ctx.Err() == context.DeadlineExceeded {
			return waitTimedOut
		}
		return waitInterrupted
	}
}

func (wq *waitQueue) removeLocked(ticket chan struct{}) bool {
	for i, t := range wq.waiters {
		if t == ticket {
			wq.waiters = append(wq.waiters[:i], wq.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// wakeOne releases exactly the oldest registered waiter, if any.
func (wq *waitQueue) wakeOne() {
	wq.lock()
	defer wq.unlock()

	if len(wq.waiters) == 0 {
		return
	}

	ticket := wq.waiters[0]
	wq.waiters = wq.waiters[1:]

	select {
	case ticket <- struct{}{}:
	default:
	}
}
