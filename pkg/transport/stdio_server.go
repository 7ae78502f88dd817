package transport

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// StdioServerConfig configures a server-side stdio transport.
type StdioServerConfig struct {
	// Reader and Writer default to the process's stdin and stdout. They
	// are overridable for tests.
	Reader io.Reader
	Writer io.Writer

	// QueueSize bounds the outbound queue; 0 means the default.
	QueueSize int

	// EnqueueWait bounds how long SendMessage waits for queue space.
	EnqueueWait time.Duration

	// Logger receives transport diagnostics; it must not write to
	// stdout. Nil means the default stderr logger.
	Logger logging.Logger
}

// StdioServerTransport speaks line-delimited JSON-RPC over the process's
// own stdin and stdout, leaving stderr free for human-readable logs. It is
// the transport a server uses when it is itself the spawned child.
type StdioServerTransport struct {
	config StdioServerConfig
	logger logging.Logger

	outbound  chan []byte
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStdioServerTransport creates a stdio server transport.
func NewStdioServerTransport(config StdioServerConfig) *StdioServerTransport {
	if config.Reader == nil {
		config.Reader = os.Stdin
	}
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &StdioServerTransport{
		config:   config,
		logger:   logger.WithFields(logging.String("component", "StdioServerTransport")),
		outbound: make(chan []byte, config.QueueSize),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Connect installs the handler and starts the reader and writer workers.
// The streams are already open, so readiness is immediate.
func (t *StdioServerTransport) Connect(ctx context.Context, handler MessageHandler) error {
	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		readFrames(t.config.Reader, handler, t.logger, t.closed)
	}()
	go func() {
		defer t.wg.Done()
		writeFrames(t.config.Writer, t.outbound, t.closed, t.logger)
	}()
	go func() {
		t.wg.Wait()
		close(t.done)
	}()
	return nil
}

// SendMessage enqueues an envelope for the writer worker.
func (t *StdioServerTransport) SendMessage(ctx context.Context, msg protocol.Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	return enqueue(ctx, t.outbound, t.closed, data, t.config.EnqueueWait, "StdioServerTransport")
}

// CloseGracefully stops accepting outbound messages and flushes the queue.
func (t *StdioServerTransport) CloseGracefully(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.closed) })
	if closer, ok := t.config.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the transport down immediately.
func (t *StdioServerTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	if closer, ok := t.config.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
	return nil
}

// Done is closed once both workers have stopped.
func (t *StdioServerTransport) Done() <-chan struct{} {
	return t.done
}
