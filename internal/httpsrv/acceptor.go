package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"sws/internal/bqueue"
	"sws/internal/logging"
)

// listenBacklog mirrors listen(fd, 10) from the source; Go's net
// package does not expose backlog directly, so this is an accepted
// platform-default deviation, documented in DESIGN.md.
const listenBacklog = 10

// Acceptor binds the listening socket and feeds accepted connections
// into the bounded queue. Grounded on httpd/server.go's
// ListenAndServe.
type Acceptor struct {
	Listener net.Listener
	Queue    *bqueue.Queue
	Running  *atomic.Bool
	Logger   *logging.Logger
}

// NewAcceptor resolves a passive IPv4 bind on port and listens.
// Candidate iteration is delegated to net.Listen,
// which already performs the getaddrinfo-equivalent enumeration
// internally.
func NewAcceptor(port int, queue *bqueue.Queue, running *atomic.Bool, logger *logging.Logger) (*Acceptor, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind to port %d: %w", port, err)
	}
	return &Acceptor{Listener: ln, Queue: queue, Running: running, Logger: logger}, nil
}

// Addr returns the bound address for logging.
func (a *Acceptor) Addr() string {
	return a.Listener.Addr().String()
}

// Run accepts connections while Running is true. It returns once the
// Monitor closes the listener, which surfaces as a "use of closed
// network connection" error from Accept — the Go-idiomatic stand-in
// for the EBADF/EINVAL signal a closed file descriptor would raise.
func (a *Acceptor) Run() {
	for a.Running.Load() {
		conn, err := a.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.Logger.Debugf("acceptor: listener closed, exiting accept loop")
				return
			}
			a.Logger.Warningf("acceptor: accept error: %v", err)
			continue
		}

		if err := a.Queue.Insert(context.Background(), conn); err != nil {
			a.Logger.Warningf("acceptor: dropping connection, queue unavailable: %v", err)
			conn.Close()
		}
	}
}

// Close closes the listening socket, causing a blocked Accept to
// return an error. Mirrors shutdown(server_fd, SHUT_RD) followed by
// close(server_fd): Go's net.Listener has no half-close, so a single
// Close plays both roles.
func (a *Acceptor) Close() error {
	return a.Listener.Close()
}
