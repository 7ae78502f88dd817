// Package transport provides the framed, ordered, bidirectional delivery of
// JSON-RPC envelopes between two MCP peers.
//
// Two transport families are implemented: a line-delimited stdio transport
// (child-process client side and own-stdin server side) and an HTTP
// transport using Server-Sent Events for the server-to-peer direction and
// HTTP POST for the peer-to-server direction.
//
// All transports behave as bounded queues in both directions: when the
// outbound queue cannot accept a message, SendMessage fails with an enqueue
// error instead of blocking indefinitely.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// MessageHandler receives every inbound envelope, one at a time, in arrival
// order. The session installs itself as this handler; any response routing
// is its concern.
type MessageHandler func(ctx context.Context, msg protocol.Message)

// Transport is the contract every transport variant implements.
type Transport interface {
	// Connect begins bidirectional operation with the given inbound
	// handler. It returns once the underlying channel is established: the
	// child process is spawned, the SSE endpoint is discovered, or the
	// stream is open. The handler is installed before any inbound byte is
	// read.
	Connect(ctx context.Context, handler MessageHandler) error

	// SendMessage enqueues an envelope for transmission. It returns once
	// the envelope has been accepted into the outbound queue; acceptance
	// does not imply receipt by the peer. FIFO ordering per direction is
	// preserved.
	SendMessage(ctx context.Context, msg protocol.Message) error

	// CloseGracefully stops accepting outbound messages, flushes the
	// queue, lets in-flight inbound dispatches finish and releases
	// resources.
	CloseGracefully(ctx context.Context) error

	// Close tears the transport down immediately.
	Close() error
}

// Unmarshal converts a raw JSON value into a declared payload type.
// Handlers use it to decode request params and callers to decode results.
func Unmarshal(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

const (
	// defaultQueueSize bounds each direction's message queue.
	defaultQueueSize = 64

	// defaultEnqueueWait bounds how long SendMessage waits for queue
	// space before failing with an enqueue error.
	defaultEnqueueWait = 5 * time.Second
)

// enqueue places data on queue, bounded by ctx, the wait budget and the
// closed signal. It implements the queue contract shared by all transports.
func enqueue(ctx context.Context, queue chan<- []byte, closed <-chan struct{}, data []byte, wait time.Duration, name string) error {
	if wait <= 0 {
		wait = defaultEnqueueWait
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-closed:
		return mcperrors.TransportClosed(name)
	default:
	}

	select {
	case queue <- data:
		return nil
	case <-closed:
		return mcperrors.TransportClosed(name)
	case <-ctx.Done():
		return mcperrors.EnqueueFailed(name).WithDetail(ctx.Err().Error())
	case <-timer.C:
		return mcperrors.EnqueueFailed(name)
	}
}

// marshalMessage serializes an envelope for the wire.
func marshalMessage(msg protocol.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}
