package httpsrv

import (
	"context"
	"net"

	"sws/internal/bio"
	"sws/internal/bqueue"
	"sws/internal/logging"
)

// Worker repeatedly dequeues a connection, serves exactly one request
// on it, and closes it. It is grounded on httpd/conn.go's serve loop,
// reshaped around the bounded queue instead of a goroutine-per-accept
// model.
//
// Cancellation is cooperative, redesigned away from the
// source's preemptive thread cancellation: a Worker only observes
// ctx cancellation between requests, at Queue.Remove, never mid-flight
// — there is no "in-flight critical section" to defer around because
// Go has no asynchronous cancellation to mask.
type Worker struct {
	ID     int
	Queue  *bqueue.Queue
	Root   string
	Logger *logging.Logger
}

// Run loops until ctx is cancelled or the queue is closed, at which
// point it returns cleanly.
func (w *Worker) Run(ctx context.Context) {
	for {
		conn, err := w.Queue.Remove(ctx)
		if err != nil {
			w.Logger.Debugf("worker %d exiting: %v", w.ID, err)
			return
		}
		w.serve(conn)
	}
}

// serve reads one request, builds one response, and writes it back.
func (w *Worker) serve(conn net.Conn) {
	defer conn.Close()

	reader := bio.NewReader(conn)
	req, err := ParseRequest(context.Background(), reader)
	if err != nil {
		w.Logger.Warningf("worker %d: failed to read request: %v", w.ID, err)
		return
	}

	resp := BuildResponse(req, w.Root)
	defer resp.Close()

	closeRead(conn)

	if err := writeResponse(conn, resp); err != nil {
		w.Logger.Warningf("worker %d: write failed: %v", w.ID, err)
		closeWrite(conn)
		return
	}

	closeWrite(conn)
}

// writeResponse streams status, headers, and body, aborting on the
// first write failure.
func writeResponse(conn net.Conn, resp *Response) error {
	if resp.Type == Full {
		if err := bio.WriteN(conn, []byte(resp.Status.StatusLine())); err != nil {
			return err
		}
		if resp.Status == StatusOK {
			if err := bio.WriteN(conn, []byte(resp.Headers.String())); err != nil {
				return err
			}
		}
	}

	if resp.Status != StatusOK || resp.ResourceFile == nil {
		return nil
	}

	return bio.WriteFromFile(conn, resp.ResourceFile, resp.ContentLength)
}

// closeRead/closeWrite mirror shutdown(fd, SHUT_RD)/shutdown(fd, SHUT_WR).
// Only *net.TCPConn exposes half-close; other net.Conn implementations
// (used in tests) are left to Close to tear down fully.
func closeRead(conn net.Conn) {
	if tcp, ok := conn.(interface{ CloseRead() error }); ok {
		_ = tcp.CloseRead()
	}
}

func closeWrite(conn net.Conn) {
	if tcp, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = tcp.CloseWrite()
	}
}
