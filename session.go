package multistream

import (
	"context"
	"sync"
	"time"

	"github.com/pcaliandro/go-multistream/internal/ctrl"
	"github.com/pcaliandro/go-multistream/internal/flow"
	"github.com/pcaliandro/go-multistream/internal/scheduler"
)

// Session is a per-open handle: the session's current priority and
// timeout, plus a non-owning back-reference to its Endpoint, per
// spec.md §3. Read/Write/Control implement the dispatcher operations of
// spec.md §4.3/§4.4/§4.5.
type Session struct {
	engine   *Engine
	endpoint *Endpoint

	mu       sync.Mutex
	priority int
	timeout  time.Duration
	closed   bool
}

// Close releases the session's resources. It is infallible and
// idempotent; pending deferred writes on the endpoint are unaffected,
// per spec.md §6.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.endpoint.releaseExclusive()
	return nil
}

func (s *Session) snapshot() (priority int, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority, s.timeout
}

// Write implements spec.md §4.3. The returned count is the number of
// bytes accepted: for the high-priority flow this means appended to the
// log; for the low-priority flow it means accepted into the deferred
// queue, not yet necessarily visible to readers.
func (s *Session) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	priority, timeout := s.snapshot()
	f := s.endpoint.flowFor(priority)

	outcome, err := acquireFlow(f, timeout)
	if err != nil {
		return 0, WrapError("Write", err)
	}
	if outcome != flow.Acquired {
		return 0, writeWaitError(s.endpoint.id, outcome)
	}

	if f.FreeBytesLocked() == 0 && timeout > 0 {
		o := waitForDeadline(f, timeout, func() bool { return f.FreeBytesLocked() > 0 })
		if o != flow.Acquired {
			return 0, writeWaitError(s.endpoint.id, o)
		}
		f.Lock()
	}

	if f.FreeBytesLocked() == 0 {
		f.Unlock()
		f.WakeOne()
		return 0, NewEndpointError("Write", s.endpoint.id, ErrCodeNoSpace, "flow at capacity")
	}

	n := len(data)
	if free := f.FreeBytesLocked(); n > free {
		n = free
	}

	if priority == priorityHigh {
		appended := f.AppendLocked(data[:n])
		f.Unlock()
		f.WakeOne()
		return appended, nil
	}

	f.ReserveLocked(n)
	f.Unlock()

	job := scheduler.NewJob(s.endpoint.id, f, data[:n])
	if !s.engine.scheduler.Enqueue(job) {
		f.Lock()
		f.RefundLocked(n)
		f.Unlock()
		f.WakeOne()
		return 0, NewEndpointError("Write", s.endpoint.id, ErrCodeUnavailable, "deferred scheduler refused enqueue")
	}

	f.WakeOne()
	return n, nil
}

// Read implements spec.md §4.4. A short read (including zero, when the
// flow is empty and the session is non-blocking or the wait times out
// into "still empty") is a normal result, not an error.
func (s *Session) Read(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	priority, timeout := s.snapshot()
	f := s.endpoint.flowFor(priority)

	outcome, err := acquireFlow(f, timeout)
	if err != nil {
		return 0, WrapError("Read", err)
	}
	if outcome != flow.Acquired {
		return 0, readWaitError(s.endpoint.id, outcome)
	}

	if f.ValidBytesLocked() == 0 && timeout > 0 {
		o := waitForDeadline(f, timeout, func() bool { return f.ValidBytesLocked() > 0 })
		if o == flow.Interrupted {
			return 0, readWaitError(s.endpoint.id, o)
		}
		// Signaled or timed out: re-check under the lock below, so a
		// timeout on a still-empty flow is a zero-length read.
		f.Lock()
	}

	if f.ValidBytesLocked() == 0 {
		f.Unlock()
		f.WakeOne()
		return 0, nil
	}

	n := f.ConsumeLocked(dst)
	f.Unlock()
	f.WakeOne()
	return n, nil
}

// Control implements spec.md §4.5: it adjusts session or endpoint
// attributes while holding the lock of the session's *current* (i.e.
// about-to-be-previous, for SetPriority) flow, so no read/write races
// with the change. Unknown commands return InvalidArgument.
func (s *Session) Control(cmd ctrl.Command, arg int) error {
	priority, _ := s.snapshot()
	f := s.endpoint.flowFor(priority)

	f.Lock()
	defer func() {
		f.Unlock()
		f.WakeOne()
	}()

	switch cmd {
	case ctrl.SetPriority:
		p, ok := ctrl.ValidatePriority(arg)
		if !ok {
			return NewEndpointError("Control", s.endpoint.id, ErrCodeInvalidArgument, "invalid priority argument")
		}
		s.mu.Lock()
		s.priority = p
		s.mu.Unlock()

	case ctrl.SetBlocking:
		t, ok := ctrl.ValidateBlocking(arg)
		if !ok {
			return NewEndpointError("Control", s.endpoint.id, ErrCodeInvalidArgument, "invalid timeout argument")
		}
		s.mu.Lock()
		s.timeout = time.Duration(t) * time.Millisecond
		s.mu.Unlock()

	case ctrl.SetEnabled:
		disabled, ok := ctrl.ValidateEnabled(arg)
		if !ok {
			return NewEndpointError("Control", s.endpoint.id, ErrCodeInvalidArgument, "invalid enabled argument")
		}
		s.endpoint.SetEnabled(!disabled)

	default:
		return NewEndpointError("Control", s.endpoint.id, ErrCodeInvalidArgument, "unknown control command")
	}

	return nil
}

// acquireFlow implements the shared lock-acquisition step of spec.md
// §4.3/§4.4 steps 2: a non-blocking TryLock, falling back to
// lock_or_wait when the session allows blocking.
func acquireFlow(f *flow.State, timeout time.Duration) (flow.Outcome, error) {
	if f.TryLock() {
		return flow.Acquired, nil
	}
	if timeout == 0 {
		return flow.Acquired, ErrWouldBlock
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.LockOrWait(ctx), nil
}

// waitForDeadline derives a deadline context from timeout and calls
// f.WaitFor with it. The call is synchronous, so cancel is always run
// immediately once WaitFor returns, releasing the deadline timer instead
// of leaking it for the remainder of timeout.
func waitForDeadline(f *flow.State, timeout time.Duration, predicate func() bool) flow.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.WaitFor(ctx, predicate)
}

func writeWaitError(endpoint int, o flow.Outcome) error {
	switch o {
	case flow.TimedOut:
		return NewEndpointError("Write", endpoint, ErrCodeNoSpace, "timed out waiting for flow")
	case flow.Interrupted:
		return NewEndpointError("Write", endpoint, ErrCodeInterrupted, "wait interrupted")
	default:
		return NewEndpointError("Write", endpoint, ErrCodeWouldBlock, "flow unavailable")
	}
}

func readWaitError(endpoint int, o flow.Outcome) error {
	switch o {
	case flow.TimedOut:
		return NewEndpointError("Read", endpoint, ErrCodeWouldBlock, "timed out waiting for flow")
	case flow.Interrupted:
		return NewEndpointError("Read", endpoint, ErrCodeInterrupted, "wait interrupted")
	default:
		return NewEndpointError("Read", endpoint, ErrCodeWouldBlock, "flow unavailable")
	}
}
