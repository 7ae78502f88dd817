package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// maxLineSize bounds a single framed envelope on the stdio transports.
const maxLineSize = 4 * 1024 * 1024

// terminateSignal is sent to the child on graceful close.
var terminateSignal os.Signal = os.Interrupt

// StdioConfig configures a child-process stdio transport.
type StdioConfig struct {
	// Command and Args form the child command line.
	Command string
	Args    []string

	// Env holds variables added to the filtered inherited set.
	Env map[string]string

	// Dir is the child working directory; empty means inherit.
	Dir string

	// QueueSize bounds the outbound queue; 0 means the default.
	QueueSize int

	// EnqueueWait bounds how long SendMessage waits for queue space.
	EnqueueWait time.Duration

	// TerminateWait is how long CloseGracefully waits after the
	// terminate signal before killing the child.
	TerminateWait time.Duration

	// Stderr receives each line the child writes to stderr. Nil routes
	// the lines to the transport logger.
	Stderr func(line string)

	// Logger receives transport diagnostics. Nil means the default
	// stderr logger.
	Logger logging.Logger
}

// StdioClientTransport spawns a child process and speaks line-delimited
// JSON-RPC over its stdin and stdout. The child's stderr is out-of-band
// log text, never protocol.
type StdioClientTransport struct {
	config StdioConfig
	logger logging.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	handler MessageHandler

	outbound  chan []byte
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStdioClientTransport creates a stdio transport that will spawn the
// configured command on Connect.
func NewStdioClientTransport(config StdioConfig) *StdioClientTransport {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.TerminateWait <= 0 {
		config.TerminateWait = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &StdioClientTransport{
		config:   config,
		logger:   logger.WithFields(logging.String("component", "StdioClientTransport")),
		outbound: make(chan []byte, config.QueueSize),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Connect spawns the child process and starts the reader, writer and
// stderr workers. The handler is installed before the first byte of the
// child's stdout is read.
func (t *StdioClientTransport) Connect(ctx context.Context, handler MessageHandler) error {
	if t.config.Command == "" {
		return mcperrors.TransportError("stdio", "spawn", errInvalidConfig("command is required"))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil {
		return mcperrors.TransportError("stdio", "connect", errInvalidConfig("transport already connected"))
	}

	cmd := exec.Command(t.config.Command, t.config.Args...)
	cmd.Env = buildEnviron(t.config.Env)
	cmd.Dir = t.config.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return mcperrors.TransportError("stdio", "open_stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return mcperrors.TransportError("stdio", "open_stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return mcperrors.TransportError("stdio", "open_stderr", err)
	}

	t.handler = handler

	if err := cmd.Start(); err != nil {
		return mcperrors.TransportError("stdio", "spawn", err)
	}
	t.cmd = cmd
	t.stdin = stdin

	g := new(errgroup.Group)
	g.Go(func() error {
		readFrames(stdout, t.handler, t.logger, t.closed)
		return nil
	})
	g.Go(func() error {
		writeFrames(stdin, t.outbound, t.closed, t.logger)
		return nil
	})
	g.Go(func() error {
		t.readStderr(stderr)
		return nil
	})

	go func() {
		_ = g.Wait()
		if err := cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				// A non-zero exit is logged, not an error.
				t.logger.Info("child process exited", logging.Int("code", exitErr.ExitCode()))
			} else {
				t.logger.Warn("child process wait failed", logging.Err(err))
			}
		}
		close(t.done)
	}()

	return nil
}

// SendMessage enqueues an envelope for the writer worker.
func (t *StdioClientTransport) SendMessage(ctx context.Context, msg protocol.Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	return enqueue(ctx, t.outbound, t.closed, data, t.config.EnqueueWait, "StdioClientTransport")
}

// CloseGracefully stops accepting outbound messages, signals the child to
// terminate and waits for it to exit, killing it if the grace period or ctx
// expires first.
func (t *StdioClientTransport) CloseGracefully(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.closed) })

	t.mu.Lock()
	cmd := t.cmd
	t.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	t.terminate(cmd)

	grace := time.NewTimer(t.config.TerminateWait)
	defer grace.Stop()
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	if err := cmd.Process.Kill(); err != nil {
		t.logger.Warn("failed to kill child process", logging.Err(err))
	}
	<-t.done
	return nil
}

// Close kills the child immediately.
func (t *StdioClientTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })

	t.mu.Lock()
	cmd := t.cmd
	t.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		t.logger.Warn("failed to kill child process", logging.Err(err))
	}
	<-t.done
	return nil
}

// Done is closed once the child has exited and all workers stopped.
func (t *StdioClientTransport) Done() <-chan struct{} {
	return t.done
}

func (t *StdioClientTransport) terminate(cmd *exec.Cmd) {
	if runtime.GOOS == "windows" {
		// Interrupt is not implemented on Windows.
		if err := cmd.Process.Kill(); err != nil {
			t.logger.Warn("failed to terminate child process", logging.Err(err))
		}
		return
	}
	if err := cmd.Process.Signal(terminateSignal); err != nil {
		t.logger.Warn("failed to signal child process", logging.Err(err))
	}
}

func (t *StdioClientTransport) readStderr(stderr io.Reader) {
	sink := t.config.Stderr
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if sink != nil {
			sink(line)
			continue
		}
		t.logger.Info("child stderr", logging.String("line", line))
	}
}

// readFrames reads LF-terminated envelopes and hands each parsed message to
// the handler in arrival order. Unparseable lines are logged and dropped.
func readFrames(r io.Reader, handler MessageHandler, logger logging.Logger, closed <-chan struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-closed:
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		data := make([]byte, len(line))
		copy(data, line)

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Warn("dropping malformed inbound line", logging.Err(err))
			continue
		}
		handler(context.Background(), msg)
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-closed:
		default:
			logger.Warn("inbound stream ended", logging.Err(err))
		}
	}
}

// writeFrames drains the outbound queue onto w, one escaped envelope per
// LF-terminated line. On close it flushes whatever is already queued.
func writeFrames(w io.Writer, outbound <-chan []byte, closed <-chan struct{}, logger logging.Logger) {
	writer := bufio.NewWriter(w)
	writeOne := func(data []byte) {
		if _, err := writer.Write(escapeEmbeddedNewlines(data)); err != nil {
			logger.Error("failed to write envelope", logging.Err(err))
			return
		}
		if err := writer.WriteByte('\n'); err != nil {
			logger.Error("failed to write frame terminator", logging.Err(err))
			return
		}
		if err := writer.Flush(); err != nil {
			logger.Error("failed to flush envelope", logging.Err(err))
		}
	}

	for {
		select {
		case data := <-outbound:
			writeOne(data)
		case <-closed:
			for {
				select {
				case data := <-outbound:
					writeOne(data)
				default:
					return
				}
			}
		}
	}
}

type errInvalidConfig string

func (e errInvalidConfig) Error() string { return string(e) }
