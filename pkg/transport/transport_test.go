package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

func TestUnmarshal(t *testing.T) {
	var params protocol.CallToolParams
	raw := json.RawMessage(`{"name":"calculator","arguments":{"a":2}}`)
	require.NoError(t, Unmarshal(raw, &params))
	assert.Equal(t, "calculator", params.Name)

	// Empty payloads decode to the zero value.
	var empty protocol.PingParams
	require.NoError(t, Unmarshal(nil, &empty))

	assert.Error(t, Unmarshal(json.RawMessage(`{broken`), &params))
}

func TestEnqueueRefusesWhenFull(t *testing.T) {
	queue := make(chan []byte, 1)
	closed := make(chan struct{})

	require.NoError(t, enqueue(context.Background(), queue, closed, []byte("a"), 50*time.Millisecond, "test"))

	err := enqueue(context.Background(), queue, closed, []byte("b"), 50*time.Millisecond, "test")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeEnqueueFailed))
}

func TestEnqueueFailsWhenClosed(t *testing.T) {
	queue := make(chan []byte, 1)
	closed := make(chan struct{})
	close(closed)

	err := enqueue(context.Background(), queue, closed, []byte("a"), 50*time.Millisecond, "test")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport))
}

func TestInMemoryPairPreservesOrder(t *testing.T) {
	a, b := NewInMemoryTransportPair()

	var mu sync.Mutex
	var methods []string
	require.NoError(t, b.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {
		notif, ok := msg.(*protocol.Notification)
		require.True(t, ok)
		mu.Lock()
		methods = append(methods, notif.Method)
		mu.Unlock()
	}))
	require.NoError(t, a.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {}))

	for _, m := range []string{"first", "second", "third"} {
		notif, err := protocol.NewNotification(m, nil)
		require.NoError(t, err)
		require.NoError(t, a.SendMessage(context.Background(), notif))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(methods) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"first", "second", "third"}, methods)
	mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.CloseGracefully(ctx))
	require.NoError(t, b.CloseGracefully(ctx))

	// After close, sends are refused.
	notif, _ := protocol.NewNotification("late", nil)
	assert.Error(t, a.SendMessage(context.Background(), notif))
}

func TestInMemoryGracefulCloseFlushesQueue(t *testing.T) {
	a, b := NewInMemoryTransportPair()

	var mu sync.Mutex
	received := 0
	require.NoError(t, b.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {
		mu.Lock()
		received++
		mu.Unlock()
	}))
	require.NoError(t, a.Connect(context.Background(), func(ctx context.Context, msg protocol.Message) {}))

	for i := 0; i < 10; i++ {
		notif, err := protocol.NewNotification("n", nil)
		require.NoError(t, err)
		require.NoError(t, a.SendMessage(context.Background(), notif))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.CloseGracefully(ctx))

	mu.Lock()
	assert.Equal(t, 10, received, "graceful close flushes queued envelopes")
	mu.Unlock()
}
