package transport

import (
	"context"
	"sync"
	"time"

	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// InMemoryTransport is a wire-faithful in-process transport: every envelope
// is serialized, then re-parsed on the peer side, exactly as a network
// transport would. Create connected halves with NewInMemoryTransportPair.
// It is primarily used in tests and as a reference for custom transports.
type InMemoryTransport struct {
	name   string
	logger logging.Logger

	peer *InMemoryTransport

	mu      sync.RWMutex
	handler MessageHandler

	outbound  chan []byte
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryTransportPair creates two connected in-memory transports;
// messages sent on one arrive at the other in FIFO order.
func NewInMemoryTransportPair() (*InMemoryTransport, *InMemoryTransport) {
	a := newInMemoryTransport("client")
	b := newInMemoryTransport("server")
	a.peer = b
	b.peer = a
	return a, b
}

func newInMemoryTransport(name string) *InMemoryTransport {
	return &InMemoryTransport{
		name:     name,
		logger:   logging.Default().WithFields(logging.String("component", "InMemoryTransport")),
		outbound: make(chan []byte, defaultQueueSize),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Connect installs the handler and starts the delivery pump.
func (t *InMemoryTransport) Connect(ctx context.Context, handler MessageHandler) error {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()

	go t.pump()
	return nil
}

// SendMessage enqueues an envelope for delivery to the peer.
func (t *InMemoryTransport) SendMessage(ctx context.Context, msg protocol.Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	return enqueue(ctx, t.outbound, t.closed, data, time.Second, "InMemoryTransport")
}

// CloseGracefully flushes queued envelopes to the peer and stops.
func (t *InMemoryTransport) CloseGracefully(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.closed) })
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the transport immediately.
func (t *InMemoryTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// Done is closed once the delivery pump has stopped.
func (t *InMemoryTransport) Done() <-chan struct{} {
	return t.done
}

func (t *InMemoryTransport) pump() {
	defer close(t.done)
	for {
		select {
		case data := <-t.outbound:
			t.deliver(data)
		case <-t.closed:
			for {
				select {
				case data := <-t.outbound:
					t.deliver(data)
				default:
					return
				}
			}
		}
	}
}

func (t *InMemoryTransport) deliver(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.logger.Warn("dropping malformed envelope", logging.Err(err))
		return
	}

	t.peer.mu.RLock()
	handler := t.peer.handler
	t.peer.mu.RUnlock()
	if handler == nil {
		t.logger.Warn("peer not connected, dropping envelope")
		return
	}
	handler(context.Background(), msg)
}
