package bqueue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fakeConns(n int) []net.Conn {
	conns := make([]net.Conn, n)
	for i := range conns {
		c, _ := net.Pipe()
		conns[i] = c
	}
	return conns
}

func TestQueueFIFOOrder(t *testing.T) {
	q := New()
	ctx := context.Background()
	conns := fakeConns(10)

	for _, c := range conns {
		require.NoError(t, q.Insert(ctx, c))
	}

	for i, want := range conns {
		got, err := q.Remove(ctx)
		require.NoError(t, err)
		require.Samef(t, want, got, "item %d out of order", i)
	}
}

func TestQueueBoundedInsertBlocksAtCapacity(t *testing.T) {
	q := New()
	ctx := context.Background()
	conns := fakeConns(Capacity)

	for _, c := range conns {
		require.NoError(t, q.Insert(ctx, c))
	}
	require.Equal(t, Capacity, q.Items())
	require.Equal(t, 0, q.Free())

	overflow, _ := net.Pipe()
	insertCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Insert(insertCtx, overflow)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueRemoveBlocksWhenEmpty(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Remove(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueInsertUnblocksOnRemove(t *testing.T) {
	q := New()
	ctx := context.Background()
	conns := fakeConns(Capacity)
	for _, c := range conns {
		require.NoError(t, q.Insert(ctx, c))
	}

	overflow, _ := net.Pipe()
	inserted := make(chan error, 1)
	go func() {
		inserted <- q.Insert(ctx, overflow)
	}()

	select {
	case <-inserted:
		t.Fatal("insert should have blocked on a full queue")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := q.Remove(ctx)
	require.NoError(t, err)

	select {
	case err := <-inserted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("insert never unblocked after a slot freed up")
	}
}

func TestQueueCloseReleasesBlockedInsert(t *testing.T) {
	q := New()
	ctx := context.Background()
	for _, c := range fakeConns(Capacity) {
		require.NoError(t, q.Insert(ctx, c))
	}

	overflow, _ := net.Pipe()
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Insert(ctx, overflow)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	require.ErrorIs(t, <-errCh, ErrClosed)
}

func TestQueueCloseDrainsRemainingItemsBeforeErrClosed(t *testing.T) {
	q := New()
	ctx := context.Background()
	conns := fakeConns(3)
	for _, c := range conns {
		require.NoError(t, q.Insert(ctx, c))
	}

	q.Close()

	for _, want := range conns {
		got, ok := q.TryRemove()
		require.True(t, ok)
		require.Same(t, want, got)
	}

	_, ok := q.TryRemove()
	require.False(t, ok)

	_, err := q.Remove(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestQueueObservationAccessors(t *testing.T) {
	q := New()
	require.Equal(t, Capacity, q.Capacity())
	require.Equal(t, 0, q.Items())
	require.Equal(t, Capacity, q.Free())

	c, _ := net.Pipe()
	require.NoError(t, q.Insert(context.Background(), c))
	require.Equal(t, 1, q.Items())
	require.Equal(t, Capacity-1, q.Free())
}
