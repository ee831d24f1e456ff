package httpsrv_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sws/internal/bqueue"
	"sws/internal/httpsrv"
	"sws/internal/logging"
)

func TestWorkerServesFullRequestEndToEnd(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, root, "index.html", "<html>hi</html>")

	queue := bqueue.New()
	w := &httpsrv.Worker{ID: 0, Queue: queue, Root: root, Logger: logging.New(false)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	client, server := net.Pipe()
	require.NoError(t, queue.Insert(context.Background(), server))

	_, err := client.Write([]byte("GET /index.html HTTP/1.0\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(statusLine, "HTTP/1.0 200 OK"))

	var headerLines []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		headerLines = append(headerLines, line)
	}
	assert.Contains(t, strings.Join(headerLines, ""), "Content-length: 15")

	body := make([]byte, 15)
	_, err = reader.Read(body)
	require.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(body))
}

func TestWorkerServesSimpleRequestBodyOnly(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, root, "index.html", "plain")

	queue := bqueue.New()
	w := &httpsrv.Worker{ID: 0, Queue: queue, Root: root, Logger: logging.New(false)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	client, server := net.Pipe()
	require.NoError(t, queue.Insert(context.Background(), server))

	_, err := client.Write([]byte("GET /index.html\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(buf[:n]))
}

func TestWorkerExitsOnContextCancellation(t *testing.T) {
	queue := bqueue.New()
	w := &httpsrv.Worker{ID: 0, Queue: queue, Root: t.TempDir(), Logger: logging.New(false)}

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(doneCh)
	}()

	cancel()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after context cancellation")
	}
}

func TestWorkerRejectsPathTraversalAttempt(t *testing.T) {
	root := t.TempDir()

	queue := bqueue.New()
	w := &httpsrv.Worker{ID: 0, Queue: queue, Root: root, Logger: logging.New(false)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	client, server := net.Pipe()
	require.NoError(t, queue.Insert(context.Background(), server))

	_, err := client.Write([]byte("GET /../etc/passwd HTTP/1.0\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(statusLine, "HTTP/1.0 404"))
}
