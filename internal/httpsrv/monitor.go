package httpsrv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"sws/internal/bqueue"
	"sws/internal/logging"
)

// ShutdownBudget is the overall time budget for a clean shutdown.
// JoinBudget is the 0.9× slice reserved for joining workers before
// the drain phase begins.
const (
	ShutdownBudget = 10 * time.Second
	JoinBudget     = 9 * time.Second // 0.9 × ShutdownBudget
)

// Monitor owns the shutdown sequence. Invariant: at most one Monitor
// exists per Server, and the shutdown sequence runs at most once, no
// matter how many termination signals arrive — enforced here with
// sync.Once rather than relying solely on signal.NotifyContext's own
// single-trigger behavior, so the guarantee holds even under direct,
// concurrent Trigger calls (see monitor_test.go's signal-isolation test).
type Monitor struct {
	Acceptor    *Acceptor
	Queue       *bqueue.Queue
	Running     *atomic.Bool
	CancelWork  context.CancelFunc
	WorkerHold  *semaphore.Weighted
	WorkerCount int64
	Logger      *logging.Logger

	// JoinBudget overrides JoinBudget for tests that need a shorter
	// deadline than production's 0.9 × ShutdownBudget. Defaults to
	// JoinBudget when built via NewMonitor.
	JoinBudget time.Duration

	once sync.Once
	done chan struct{}
	// clean reports whether every worker joined within budget. Only
	// meaningful after Done() is closed.
	clean atomic.Bool
}

// NewMonitor builds a Monitor for the given Server components.
// workerHold must have WorkerCount units of weight already acquired,
// one per live Worker, each released when that Worker's Run loop
// returns (see Server.Run, which spawns the Worker pool).
func NewMonitor(acceptor *Acceptor, queue *bqueue.Queue, running *atomic.Bool, cancel context.CancelFunc, workerHold *semaphore.Weighted, workerCount int, logger *logging.Logger) *Monitor {
	return &Monitor{
		Acceptor:    acceptor,
		Queue:       queue,
		Running:     running,
		CancelWork:  cancel,
		WorkerHold:  workerHold,
		WorkerCount: int64(workerCount),
		Logger:      logger,
		JoinBudget:  JoinBudget,
		done:        make(chan struct{}),
	}
}

// Done is closed once the shutdown sequence has completed, whether
// clean or not.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Clean reports whether shutdown completed without any worker missing
// its join deadline. Only meaningful after Done() is closed.
func (m *Monitor) Clean() bool {
	return m.clean.Load()
}

// Trigger runs the shutdown sequence exactly once.
// Safe to call concurrently and more than once — only the first call
// does any work.
func (m *Monitor) Trigger() {
	m.once.Do(m.shutdown)
}

func (m *Monitor) shutdown() {
	defer close(m.done)

	// Step 1: shutdown(server_fd, SHUT_RD) — fail the acceptor's
	// blocked Accept fast.
	if err := m.Acceptor.Close(); err != nil {
		m.Logger.Warningf("monitor: error closing listener: %v", err)
	}

	// Step 2: running = false.
	m.Running.Store(false)

	// Step 3: cancel every Worker's cooperative context.
	m.CancelWork()

	// Step 4: bounded join, deadline 0.9 × ShutdownBudget.
	joinCtx, cancelJoin := context.WithTimeout(context.Background(), m.JoinBudget)
	defer cancelJoin()
	clean := true
	if err := m.WorkerHold.Acquire(joinCtx, m.WorkerCount); err != nil {
		m.Logger.Warningf("monitor: not all %d worker(s) joined within %s, abandoning", m.WorkerCount, m.JoinBudget)
		clean = false
	}
	m.clean.Store(clean)

	// Step 5: drain the queue, replying 503 to everything still queued.
	m.Queue.Close()
	drained := 0
	for {
		conn, ok := m.Queue.TryRemove()
		if !ok {
			break
		}
		drainOne(conn)
		drained++
	}
	if drained > 0 {
		m.Logger.Infof("monitor: drained %d queued connection(s) with 503", drained)
	}

	m.Logger.Infof("monitor: shutdown complete (clean=%v)", clean)
}

// drainOne writes the fixed 503 response to conn and closes it, per
// get_server_shutting_down_response in src/http.c.
func drainOne(conn interface{ Close() error }) {
	type writer interface {
		Write([]byte) (int, error)
		Close() error
	}
	if w, ok := conn.(writer); ok {
		resp := ShuttingDownResponse()
		_ = writeStatusAndHeaders(w, resp)
	}
	_ = conn.Close()
}

func writeStatusAndHeaders(w interface{ Write([]byte) (int, error) }, resp *Response) error {
	if _, err := w.Write([]byte(resp.Status.StatusLine())); err != nil {
		return err
	}
	_, err := w.Write([]byte(resp.Headers.String()))
	return err
}
