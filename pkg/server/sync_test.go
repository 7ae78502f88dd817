package server_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-go/pkg/client"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/server"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// startSyncPair wires the blocking facades over an in-memory pair.
func startSyncPair(t *testing.T, serverOpts []server.Option, clientOpts []client.Option) (*client.SyncClient, *server.SyncServer) {
	t.Helper()

	clientTransport, serverTransport := transport.NewInMemoryTransportPair()

	serverOpts = append([]server.Option{
		server.WithLogger(logging.Nop()),
		server.WithServerInfo(protocol.Implementation{Name: "sync-server", Version: "1.0.0"}),
	}, serverOpts...)
	syncServer := server.NewSync(server.New(serverTransport, serverOpts...), 5*time.Second)
	require.NoError(t, syncServer.Connect())

	clientOpts = append([]client.Option{
		client.WithLogger(logging.Nop()),
		client.WithClientInfo(protocol.Implementation{Name: "sync-client", Version: "1.0.0"}),
	}, clientOpts...)
	asyncClient, err := client.New(clientTransport, clientOpts...)
	require.NoError(t, err)
	syncClient := client.NewSync(asyncClient, 5*time.Second)
	require.NoError(t, syncClient.Connect())

	t.Cleanup(func() {
		_ = syncClient.Close()
		_ = syncServer.Close()
	})
	return syncClient, syncServer
}

func TestSyncFacadesEndToEnd(t *testing.T) {
	syncClient, syncServer := startSyncPair(t,
		[]server.Option{
			server.WithToolsCapability(false),
			server.WithLoggingCapability(),
		}, nil)

	assert.Equal(t, "sync-server", syncClient.ServerInfo().Name)

	require.NoError(t, syncServer.AddTool(calculatorTool, calculatorHandler))

	list, err := syncClient.ListTools("")
	require.NoError(t, err)
	require.Len(t, list.Tools, 1)

	all, err := syncClient.ListAllTools()
	require.NoError(t, err)
	require.Len(t, all, 1)

	result, err := syncClient.CallTool("calculator", map[string]interface{}{
		"operation": "mul", "a": 6, "b": 7,
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "42.0", result.Content[0].Text)

	require.NoError(t, syncClient.SetLoggingLevel(protocol.LoggingLevelError))
	require.NoError(t, syncClient.Ping())
	require.NoError(t, syncServer.Ping())

	require.NoError(t, syncServer.RemoveTool("calculator"))
	list, err = syncClient.ListTools("")
	require.NoError(t, err)
	assert.Empty(t, list.Tools)
}

func TestSyncConsumerBridging(t *testing.T) {
	syncClient, syncServer := startSyncPair(t,
		[]server.Option{server.WithToolsCapability(true)}, nil)

	lists := make(chan []protocol.Tool, 2)
	syncClient.OnToolsListChanged(func(tools []protocol.Tool) error {
		lists <- tools
		return nil
	})

	require.NoError(t, syncServer.AddTool(calculatorTool, calculatorHandler))

	select {
	case tools := <-lists:
		require.Len(t, tools, 1)
		assert.Equal(t, "calculator", tools[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("bridged consumer not invoked")
	}
}

func TestSyncServerLoggingFilter(t *testing.T) {
	records := make(chan *protocol.LoggingMessageParams, 2)
	syncClient, syncServer := startSyncPair(t,
		[]server.Option{server.WithLoggingCapability()}, nil)

	syncClient.OnLoggingMessage(func(record *protocol.LoggingMessageParams) error {
		records <- record
		return nil
	})

	require.NoError(t, syncClient.SetLoggingLevel(protocol.LoggingLevelWarning))

	require.NoError(t, syncServer.LoggingNotification(protocol.LoggingMessageParams{
		Level: protocol.LoggingLevelDebug, Data: "quiet",
	}))
	require.NoError(t, syncServer.LoggingNotification(protocol.LoggingMessageParams{
		Level: protocol.LoggingLevelAlert, Data: "loud",
	}))

	select {
	case record := <-records:
		assert.Equal(t, protocol.LoggingLevelAlert, record.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("record not delivered")
	}
}
