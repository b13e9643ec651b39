package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pcaliandro/go-multistream/internal/flow"
)

func TestScheduler_DrainsSingleJob(t *testing.T) {
	f := flow.New(16, 4)
	s := New(1, 8, nil)
	s.Start()

	f.Lock()
	f.ReserveLocked(3)
	f.Unlock()
	require.True(t, s.Enqueue(NewJob(0, f, []byte("abc"))))

	require.Eventually(t, func() bool {
		return f.ValidBytesSnapshot() == 3
	}, time.Second, time.Millisecond)

	f.Lock()
	require.Equal(t, f.Capacity(), f.ValidBytesLocked()+f.FreeBytesLocked(),
		"a drained deferred write must debit free_bytes exactly once, at enqueue")
	f.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_DrainDoesNotDoubleDebitCapacity(t *testing.T) {
	// A flow filled to capacity entirely through the deferred path must
	// still satisfy valid_bytes + free_bytes == capacity once every job
	// has drained: the worker must not debit free_bytes a second time on
	// top of the reservation already taken at enqueue.
	f := flow.New(4, 1) // capacity 4
	s := New(1, 8, nil)
	s.Start()

	f.Lock()
	f.ReserveLocked(4)
	f.Unlock()

	job := NewJob(0, f, []byte("abcd"))
	require.True(t, s.Enqueue(job))

	require.Eventually(t, func() bool {
		return f.ValidBytesSnapshot() == 4
	}, time.Second, time.Millisecond)

	f.Lock()
	require.Equal(t, 0, f.FreeBytesLocked())
	require.Equal(t, f.Capacity(), f.ValidBytesLocked()+f.FreeBytesLocked())
	f.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_EnqueueRefusedWhenFull(t *testing.T) {
	f := flow.New(16, 4)
	s := New(1, 1, nil) // single slot, worker not started so it fills after one job
	require.True(t, s.Enqueue(NewJob(0, f, []byte("x"))))
	// second enqueue should be refused since the single-slot channel is full
	// and nothing is draining it yet.
	ok := s.Enqueue(NewJob(0, f, []byte("y")))
	require.False(t, ok)
}

func TestScheduler_PerEndpointFIFO(t *testing.T) {
	f := flow.New(64, 4)
	s := New(4, 16, nil)
	s.Start()

	for _, b := range [][]byte{[]byte("A"), []byte("B"), []byte("C")} {
		f.Lock()
		f.ReserveLocked(len(b))
		f.Unlock()
		require.True(t, s.Enqueue(NewJob(7, f, b)))
	}

	require.Eventually(t, func() bool {
		return f.ValidBytesSnapshot() == 3
	}, time.Second, time.Millisecond)

	f.Lock()
	require.Equal(t, f.Capacity(), f.ValidBytesLocked()+f.FreeBytesLocked())
	dst := make([]byte, 3)
	f.ConsumeLocked(dst)
	f.Unlock()
	require.Equal(t, "ABC", string(dst))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
