package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// syncBuffer is a goroutine-safe bytes.Buffer for capturing transport
// output in tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStdioServerTransportRoundTrip(t *testing.T) {
	inReader, inWriter := io.Pipe()
	out := &syncBuffer{}

	tr := NewStdioServerTransport(StdioServerConfig{
		Reader: inReader,
		Writer: out,
		Logger: logging.Nop(),
	})

	var mu sync.Mutex
	var inbound []protocol.Message
	require.NoError(t, tr.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {
		mu.Lock()
		inbound = append(inbound, msg)
		mu.Unlock()
	}))

	// Inbound: one request per line.
	_, err := inWriter.Write([]byte(`{"jsonrpc":"2.0","id":"c-0","method":"ping"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(inbound) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	req, ok := inbound[0].(*protocol.Request)
	mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "ping", req.Method)

	// Outbound: one LF-terminated line per envelope.
	resp, err := protocol.NewResponse("c-0", protocol.PingResult{})
	require.NoError(t, err)
	require.NoError(t, tr.SendMessage(context.Background(), resp))

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") == 1
	}, time.Second, 5*time.Millisecond)

	line := out.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	payload := strings.TrimSuffix(line, "\n")
	assert.NotContains(t, payload, "\n", "no unescaped newline except the terminator")

	parsed, err := protocol.ParseMessage([]byte(payload))
	require.NoError(t, err)
	_, ok = parsed.(*protocol.Response)
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tr.CloseGracefully(ctx))
}

func TestStdioServerTransportSkipsMalformedLines(t *testing.T) {
	inReader, inWriter := io.Pipe()

	tr := NewStdioServerTransport(StdioServerConfig{
		Reader: inReader,
		Writer: &syncBuffer{},
		Logger: logging.Nop(),
	})

	var mu sync.Mutex
	count := 0
	require.NoError(t, tr.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	defer tr.Close()

	_, err := inWriter.Write([]byte("this is not json\n{\"jsonrpc\":\"2.0\",\"method\":\"notifications/initialized\"}\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStdioClientTransportEchoChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix cat binary")
	}
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	tr := NewStdioClientTransport(StdioConfig{
		Command: "cat",
		Logger:  logging.Nop(),
	})

	var mu sync.Mutex
	var echoed []protocol.Message
	require.NoError(t, tr.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {
		mu.Lock()
		echoed = append(echoed, msg)
		mu.Unlock()
	}))

	// cat echoes every line: the transport receives its own request back.
	req, err := protocol.NewRequest("c-0", "ping", nil)
	require.NoError(t, err)
	require.NoError(t, tr.SendMessage(context.Background(), req))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(echoed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	back, ok := echoed[0].(*protocol.Request)
	mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "ping", back.Method)
	assert.Equal(t, "c-0", back.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, tr.CloseGracefully(ctx))

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("transport did not report termination")
	}
}

func TestStdioClientTransportRequiresCommand(t *testing.T) {
	tr := NewStdioClientTransport(StdioConfig{Logger: logging.Nop()})
	err := tr.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {})
	require.Error(t, err)
}

func TestStdioClientTransportStderrSink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	lines := make(chan string, 4)
	tr := NewStdioClientTransport(StdioConfig{
		Command: "sh",
		Args:    []string{"-c", `echo oops >&2; cat`},
		Logger:  logging.Nop(),
		Stderr:  func(line string) { lines <- line },
	})
	require.NoError(t, tr.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {}))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = tr.CloseGracefully(ctx)
	}()

	select {
	case line := <-lines:
		assert.Equal(t, "oops", line)
	case <-time.After(2 * time.Second):
		t.Fatal("stderr line not delivered")
	}
}

func TestWriteFramesTerminatesEachEnvelope(t *testing.T) {
	out := &syncBuffer{}
	outbound := make(chan []byte, 4)
	closed := make(chan struct{})

	outbound <- []byte(`{"a":1}`)
	outbound <- []byte("{\"b\":\n2}")
	close(closed)

	done := make(chan struct{})
	go func() {
		writeFrames(out, outbound, closed, logging.Nop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writeFrames did not drain")
	}

	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.Len(t, got, 2)
	assert.Equal(t, `{"a":1}`, got[0])
	assert.Equal(t, `{"b":\n2}`, got[1])
}
