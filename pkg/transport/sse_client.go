package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// SSEClientConfig configures an HTTP+SSE client transport.
type SSEClientConfig struct {
	// URL is the SSE stream URL, typically ending in /sse.
	URL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// EndpointWait bounds how long the transport waits for the endpoint
	// event after the stream opens. Default 10s.
	EndpointWait time.Duration

	// QueueSize bounds the outbound queue; 0 means the default.
	QueueSize int

	// EnqueueWait bounds how long SendMessage waits for queue space.
	EnqueueWait time.Duration

	// MaxEventSize bounds a single SSE event; 0 means the library default.
	MaxEventSize int

	// Logger receives transport diagnostics.
	Logger logging.Logger
}

// SSEClientTransport connects to a server's SSE stream and POSTs outbound
// envelopes to the endpoint the server advertises in its first event.
// Outbound sends block until that endpoint event has been received, bounded
// by EndpointWait.
type SSEClientTransport struct {
	config     SSEClientConfig
	logger     logging.Logger
	httpClient *http.Client

	mu         sync.Mutex
	messageURL string

	endpointReady chan struct{}
	endpointOnce  sync.Once
	cancelStream  context.CancelFunc

	outbound  chan []byte
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSSEClientTransport creates an SSE client transport for the given
// stream URL.
func NewSSEClientTransport(config SSEClientConfig) *SSEClientTransport {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.EndpointWait <= 0 {
		config.EndpointWait = 10 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &SSEClientTransport{
		config:        config,
		logger:        logger.WithFields(logging.String("component", "SSEClientTransport")),
		httpClient:    config.HTTPClient,
		endpointReady: make(chan struct{}),
		outbound:      make(chan []byte, config.QueueSize),
		closed:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Connect opens the SSE stream and blocks until the server's endpoint event
// has been received or the bounded wait expires.
func (t *SSEClientTransport) Connect(ctx context.Context, handler MessageHandler) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancelStream = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.config.URL, nil)
	if err != nil {
		cancel()
		return mcperrors.TransportError("sse", "create_stream_request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return mcperrors.TransportError("sse", "open_stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return mcperrors.TransportError("sse", "open_stream",
			fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return mcperrors.TransportError("sse", "open_stream",
			fmt.Errorf("expected text/event-stream, got %q", ct))
	}

	go t.readStream(resp.Body, handler)
	go t.writePosts()

	wait := time.NewTimer(t.config.EndpointWait)
	defer wait.Stop()
	select {
	case <-t.endpointReady:
		return nil
	case <-ctx.Done():
		t.Close()
		return mcperrors.EndpointNotDiscovered(t.config.URL, t.config.EndpointWait).
			WithDetail(ctx.Err().Error())
	case <-wait.C:
		t.Close()
		return mcperrors.EndpointNotDiscovered(t.config.URL, t.config.EndpointWait)
	}
}

// SendMessage enqueues an envelope to POST to the discovered endpoint.
func (t *SSEClientTransport) SendMessage(ctx context.Context, msg protocol.Message) error {
	wait := time.NewTimer(t.config.EndpointWait)
	defer wait.Stop()
	select {
	case <-t.endpointReady:
	case <-t.closed:
		return mcperrors.TransportClosed("SSEClientTransport")
	case <-ctx.Done():
		return mcperrors.EndpointNotDiscovered(t.config.URL, t.config.EndpointWait).
			WithDetail(ctx.Err().Error())
	case <-wait.C:
		return mcperrors.EndpointNotDiscovered(t.config.URL, t.config.EndpointWait)
	}

	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	return enqueue(ctx, t.outbound, t.closed, data, t.config.EnqueueWait, "SSEClientTransport")
}

// CloseGracefully stops accepting outbound messages, flushes queued POSTs
// and closes the stream.
func (t *SSEClientTransport) CloseGracefully(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.closed) })

	// Give the writer a chance to drain before the stream drops.
	drained := make(chan struct{})
	go func() {
		for len(t.outbound) > 0 {
			time.Sleep(10 * time.Millisecond)
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
	}

	if t.cancelStream != nil {
		t.cancelStream()
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the transport down immediately: the stream is cancelled
// without waiting. Envelopes already queued are still POSTed by the writer
// before it stops.
func (t *SSEClientTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	if t.cancelStream != nil {
		t.cancelStream()
	}
	return nil
}

// Done is closed once the SSE stream has ended.
func (t *SSEClientTransport) Done() <-chan struct{} {
	return t.done
}

func (t *SSEClientTransport) readStream(body io.ReadCloser, handler MessageHandler) {
	defer func() {
		body.Close()
		close(t.done)
	}()

	var config *sse.ReadConfig
	if t.config.MaxEventSize > 0 {
		config = &sse.ReadConfig{MaxEventSize: t.config.MaxEventSize}
	}

	for ev, err := range sse.Read(body, config) {
		if err != nil {
			select {
			case <-t.closed:
			default:
				t.logger.Warn("SSE stream ended", logging.Err(err))
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			if err := t.resolveEndpoint(ev.Data); err != nil {
				t.logger.Error("invalid endpoint event", logging.Err(err))
				return
			}
		case "message":
			msg, err := protocol.ParseMessage([]byte(ev.Data))
			if err != nil {
				t.logger.Warn("dropping malformed SSE message", logging.Err(err))
				continue
			}
			handler(context.Background(), msg)
		default:
			t.logger.Debug("ignoring SSE event", logging.String("type", ev.Type))
		}
	}
}

// resolveEndpoint resolves the advertised endpoint path against the stream
// URL and unblocks senders.
func (t *SSEClientTransport) resolveEndpoint(data string) error {
	base, err := url.Parse(t.config.URL)
	if err != nil {
		return fmt.Errorf("parse stream URL: %w", err)
	}
	endpoint, err := url.Parse(data)
	if err != nil {
		return fmt.Errorf("parse endpoint URL: %w", err)
	}
	resolved := base.ResolveReference(endpoint).String()
	if resolved == "" {
		return fmt.Errorf("empty endpoint URL")
	}

	t.mu.Lock()
	t.messageURL = resolved
	t.mu.Unlock()
	t.endpointOnce.Do(func() { close(t.endpointReady) })
	return nil
}

// writePosts drains the outbound queue, POSTing each envelope to the
// discovered endpoint. A non-2xx status is logged; the envelope was already
// accepted by SendMessage.
func (t *SSEClientTransport) writePosts() {
	post := func(data []byte) {
		t.mu.Lock()
		target := t.messageURL
		t.mu.Unlock()

		req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(data))
		if err != nil {
			t.logger.Error("failed to create POST request", logging.Err(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.httpClient.Do(req)
		if err != nil {
			t.logger.Error("failed to POST envelope", logging.Err(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			t.logger.Error("server rejected envelope",
				logging.Int("status", resp.StatusCode),
				logging.String("body", string(body)))
		}
	}

	for {
		select {
		case data := <-t.outbound:
			post(data)
		case <-t.closed:
			for {
				select {
				case data := <-t.outbound:
					post(data)
				default:
					return
				}
			}
		}
	}
}
