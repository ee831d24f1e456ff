package httpsrv

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/semaphore"

	"sws/internal/bqueue"
	"sws/internal/logging"
)

// WorkerCount is the fixed size of the Worker pool.
const WorkerCount = 5

// Server is the composition root: it wires the bounded Queue, the
// Acceptor, the Worker pool, and the Monitor together, generalizing
// httpd/server.go's ListenAndServe from a goroutine-per-connection
// model to a bounded producer/consumer shape.
type Server struct {
	Port       int
	ServerRoot string
	Logger     *logging.Logger

	queue    *bqueue.Queue
	acceptor *Acceptor
	monitor  *Monitor
	running  atomic.Bool
}

// New validates nothing itself — callers are expected to have already
// run the config package's validators — and only wires components
// together.
func New(port int, serverRoot string, logger *logging.Logger) *Server {
	return &Server{Port: port, ServerRoot: serverRoot, Logger: logger}
}

// Run binds the listening socket, starts the Worker pool and Acceptor,
// and blocks until a termination signal triggers a Monitor-driven
// shutdown. It returns whether shutdown was clean (every worker
// joined within budget) and any error encountered while starting up.
func (s *Server) Run(ctx context.Context) (clean bool, err error) {
	s.queue = bqueue.New()
	s.running.Store(true)

	s.acceptor, err = NewAcceptor(s.Port, s.queue, &s.running, s.Logger)
	if err != nil {
		return false, fmt.Errorf("server: %w", err)
	}
	s.Logger.Infof("server: listening on %s, root %s", s.acceptor.Addr(), s.ServerRoot)

	workCtx, cancelWork := context.WithCancel(ctx)
	workerHold := semaphore.NewWeighted(WorkerCount)

	for i := 0; i < WorkerCount; i++ {
		w := &Worker{ID: i, Queue: s.queue, Root: s.ServerRoot, Logger: s.Logger}
		if !workerHold.TryAcquire(1) {
			// Unreachable: nothing else acquires from workerHold before
			// the pool is fully spawned.
			panic("httpsrv: worker semaphore exhausted during spawn")
		}
		go func() {
			defer workerHold.Release(1)
			w.Run(workCtx)
		}()
	}

	go s.acceptor.Run()

	s.monitor = NewMonitor(s.acceptor, s.queue, &s.running, cancelWork, workerHold, WorkerCount, s.Logger)

	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		s.Logger.Infof("server: shutdown signal received")
		s.monitor.Trigger()
	}()

	<-s.monitor.Done()

	// Monitor.shutdown already enforces the join deadline with a bounded
	// semaphore Acquire: a Worker that misses it is abandoned, not
	// waited on again here. Blocking on a WaitGroup at this point would
	// undo that guarantee the moment a Worker is stuck on an
	// unresponsive client's socket, since Workers only observe
	// cancellation between requests.
	return s.monitor.Clean(), nil
}

// Shutdown triggers the same shutdown sequence a termination signal
// would, for callers that need to stop the server programmatically
// (tests, or an embedding caller that does its own signal handling).
func (s *Server) Shutdown() {
	if s.monitor != nil {
		s.monitor.Trigger()
	}
}

// Addr returns the bound listen address. Valid only after Run has
// started the Acceptor.
func (s *Server) Addr() string {
	if s.acceptor == nil {
		return ""
	}
	return s.acceptor.Addr()
}
