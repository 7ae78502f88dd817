package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// maxPostBody bounds an inbound POSTed envelope.
const maxPostBody = 4 * 1024 * 1024

// SSEServerConfig configures an HTTP+SSE server transport.
type SSEServerConfig struct {
	// MessagePath is the path advertised in the endpoint event; clients
	// POST envelopes there with a sessionId query parameter.
	MessagePath string

	// QueueSize bounds each connected client's outbound queue.
	QueueSize int

	// EnqueueWait bounds how long SendMessage waits for queue space on a
	// congested client before dropping it for that client.
	EnqueueWait time.Duration

	// Logger receives transport diagnostics.
	Logger logging.Logger
}

// SSEServerTransport is the server half of the HTTP+SSE transport. It is
// framework-agnostic: mount HandleSSE on the stream path (GET) and
// HandleMessage on the message path (POST) in any HTTP mux. Outbound
// envelopes are published to every currently connected client; inbound
// POSTs are matched to their session by the sessionId parameter embedded in
// the advertised endpoint URL.
type SSEServerTransport struct {
	config SSEServerConfig
	logger logging.Logger

	mu       sync.RWMutex
	handler  MessageHandler
	sessions map[string]*sseServerSession

	closed    chan struct{}
	closeOnce sync.Once
}

type sseServerSession struct {
	id       string
	outbound chan []byte
	gone     chan struct{}
}

// NewSSEServerTransport creates an SSE server transport advertising
// messagePath as its POST endpoint.
func NewSSEServerTransport(config SSEServerConfig) *SSEServerTransport {
	if config.MessagePath == "" {
		config.MessagePath = "/message"
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &SSEServerTransport{
		config:   config,
		logger:   logger.WithFields(logging.String("component", "SSEServerTransport")),
		sessions: make(map[string]*sseServerSession),
		closed:   make(chan struct{}),
	}
}

// Connect installs the inbound handler. The HTTP listener is owned by the
// embedding application, so readiness is immediate.
func (t *SSEServerTransport) Connect(ctx context.Context, handler MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
	return nil
}

// SendMessage publishes an envelope to every currently connected client.
// A congested client's envelope is dropped for that client and logged; the
// other clients still receive it, and SendMessage then returns the enqueue
// error.
func (t *SSEServerTransport) SendMessage(ctx context.Context, msg protocol.Message) error {
	select {
	case <-t.closed:
		return mcperrors.TransportClosed("SSEServerTransport")
	default:
	}

	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}

	t.mu.RLock()
	targets := make([]*sseServerSession, 0, len(t.sessions))
	for _, sess := range t.sessions {
		targets = append(targets, sess)
	}
	t.mu.RUnlock()

	if len(targets) == 0 {
		t.logger.Debug("no connected clients, dropping envelope")
		return nil
	}

	var enqueueErr error
	for _, sess := range targets {
		if err := enqueue(ctx, sess.outbound, sess.gone, data, t.config.EnqueueWait, "SSEServerTransport"); err != nil {
			t.logger.Warn("dropping envelope for congested client",
				logging.String("session_id", sess.id), logging.Err(err))
			if mcperrors.IsCode(err, mcperrors.CodeEnqueueFailed) {
				enqueueErr = err
			}
		}
	}
	return enqueueErr
}

// CloseGracefully disconnects all clients after their queues drain.
func (t *SSEServerTransport) CloseGracefully(ctx context.Context) error {
	for ctx.Err() == nil {
		t.mu.RLock()
		queued := 0
		for _, sess := range t.sessions {
			queued += len(sess.outbound)
		}
		t.mu.RUnlock()
		if queued == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.closeOnce.Do(func() { close(t.closed) })
	return ctx.Err()
}

// Close disconnects all clients immediately.
func (t *SSEServerTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// Done is closed when the transport has been shut down.
func (t *SSEServerTransport) Done() <-chan struct{} {
	return t.closed
}

// HandleSSE returns the http.Handler for the long-lived SSE stream. The
// first event of every connection is the endpoint event carrying the URL to
// POST messages to for this session; every later event is a message event
// carrying a serialized envelope.
func (t *SSEServerTransport) HandleSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstream, err := sse.Upgrade(w, r)
		if err != nil {
			t.logger.Error("failed to upgrade to SSE", logging.Err(err))
			http.Error(w, "SSE upgrade failed", http.StatusInternalServerError)
			return
		}

		sessID := uuid.New().String()
		endpoint := fmt.Sprintf("%s?sessionId=%s", t.config.MessagePath, sessID)

		sess := &sseServerSession{
			id:       sessID,
			outbound: make(chan []byte, t.config.QueueSize),
			gone:     make(chan struct{}),
		}
		t.addSession(sess)
		defer t.removeSession(sessID)

		endpointMsg := sse.Message{Type: sse.Type("endpoint")}
		endpointMsg.AppendData(endpoint)
		if err := upstream.Send(&endpointMsg); err != nil {
			t.logger.Error("failed to send endpoint event", logging.Err(err))
			return
		}
		if err := upstream.Flush(); err != nil {
			t.logger.Error("failed to flush endpoint event", logging.Err(err))
			return
		}

		t.logger.Info("client connected", logging.String("session_id", sessID))

		for {
			select {
			case data := <-sess.outbound:
				msg := sse.Message{Type: sse.Type("message")}
				msg.AppendData(string(data))
				if err := upstream.Send(&msg); err != nil {
					t.logger.Warn("failed to send message event", logging.Err(err))
					return
				}
				if err := upstream.Flush(); err != nil {
					t.logger.Warn("failed to flush message event", logging.Err(err))
					return
				}
			case <-r.Context().Done():
				t.logger.Info("client disconnected", logging.String("session_id", sessID))
				return
			case <-t.closed:
				return
			}
		}
	})
}

// HandleMessage returns the http.Handler for inbound POSTed envelopes. A
// 202 means the envelope was accepted for processing; the protocol response
// arrives later on the SSE stream.
func (t *SSEServerTransport) HandleMessage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sessID := r.URL.Query().Get("sessionId")
		if !t.hasSession(sessID) {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPostBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		msg, err := protocol.ParseMessage(body)
		if err != nil {
			http.Error(w, "malformed envelope", http.StatusBadRequest)
			return
		}

		t.mu.RLock()
		handler := t.handler
		t.mu.RUnlock()
		if handler == nil {
			http.Error(w, "transport not connected", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusAccepted)
		handler(context.Background(), msg)
	})
}

func (t *SSEServerTransport) addSession(sess *sseServerSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sess.id] = sess
}

func (t *SSEServerTransport) removeSession(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sess, ok := t.sessions[id]; ok {
		close(sess.gone)
		delete(t.sessions, id)
	}
}

func (t *SSEServerTransport) hasSession(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.sessions[id]
	return ok
}
