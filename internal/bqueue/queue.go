// Package bqueue implements the bounded FIFO of accepted connection
// descriptors shared between the acceptor and the worker pool. It is
// the Go port of original_source's src/bbuf.c, backed by a buffered
// channel rather than hand-rolled semaphores.
package bqueue

import (
	"context"
	"errors"
	"net"
	"sync"
)

// Capacity is the fixed queue size (C = 25).
const Capacity = 25

// ErrClosed is returned by Insert and Remove once the queue has been
// torn down by the Monitor and no further items remain.
var ErrClosed = errors.New("bqueue: closed")

// Queue is a thread-safe, bounded FIFO of accepted connections.
// Ordering: inserts observed by the same goroutine appear in program
// order to any consumer.
type Queue struct {
	items     chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an empty queue of capacity Capacity.
func New() *Queue {
	return &Queue{
		items:  make(chan net.Conn, Capacity),
		closed: make(chan struct{}),
	}
}

// Insert blocks until a free slot is available, the context is
// cancelled, or the queue is closed. It mirrors bbuf_insert.
func (q *Queue) Insert(ctx context.Context, conn net.Conn) error {
	select {
	case q.items <- conn:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remove blocks until an item is available, the context is cancelled,
// or the queue is closed and empty. It mirrors bbuf_remove. Items
// queued before Close are still delivered to Remove/TryRemove after
// Close, so the Monitor's drain loop can keep calling TryRemove until
// the queue is empty.
func (q *Queue) Remove(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-q.items:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		select {
		case conn := <-q.items:
			return conn, nil
		default:
			return nil, ErrClosed
		}
	}
}

// TryRemove returns immediately: an item if one is queued, or
// ok == false if the queue is currently empty. Used by the Monitor's
// drain loop, which must not block once shutdown begins.
func (q *Queue) TryRemove() (conn net.Conn, ok bool) {
	select {
	case conn := <-q.items:
		return conn, true
	default:
		return nil, false
	}
}

// Items reports the current number of queued descriptors. Observation
// only, racy by nature.
func (q *Queue) Items() int {
	return len(q.items)
}

// Free reports the current number of free slots.
func (q *Queue) Free() int {
	return cap(q.items) - len(q.items)
}

// Capacity reports the fixed queue capacity.
func (q *Queue) Capacity() int {
	return cap(q.items)
}

// Close tears down the queue: blocked Inserts are released with
// ErrClosed, and blocked Removes return whatever remains queued before
// reporting ErrClosed themselves. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
