package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-go/pkg/session"
)

func TestMetricsHookRecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	hook, err := NewMetricsHook(MetricsConfig{Registerer: registry})
	require.NoError(t, err)

	_, finish := hook.OnRequest(context.Background(), session.DirectionOutbound, "tools/list")
	time.Sleep(time.Millisecond)
	finish("ok")

	_, finish = hook.OnRequest(context.Background(), session.DirectionInbound, "tools/call")
	finish("handler_error")

	hook.OnNotification(context.Background(), session.DirectionOutbound, "notifications/initialized")

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, family := range families {
		byName[family.GetName()] = true
		if family.GetName() == "mcp_requests_total" {
			assert.Len(t, family.GetMetric(), 2)
		}
	}
	assert.True(t, byName["mcp_requests_total"])
	assert.True(t, byName["mcp_request_duration_seconds"])
	assert.True(t, byName["mcp_notifications_total"])
}

func TestMetricsHookDedicatedRegistry(t *testing.T) {
	hook, err := NewMetricsHook(MetricsConfig{Namespace: "custom"})
	require.NoError(t, err)
	require.NotNil(t, hook.Handler())
}

func TestMetricsHookExternalRegistryHasNoHandler(t *testing.T) {
	hook, err := NewMetricsHook(MetricsConfig{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.Nil(t, hook.Handler())
}

func TestMetricsHookDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetricsHook(MetricsConfig{Registerer: registry})
	require.NoError(t, err)
	_, err = NewMetricsHook(MetricsConfig{Registerer: registry})
	assert.Error(t, err, "same collectors cannot be registered twice")
}

func TestTracingHookLifecycle(t *testing.T) {
	provider, err := NewTracingProvider(context.Background(), TracingConfig{
		ServiceName:  "test-service",
		ExporterType: ExporterNone,
	})
	require.NoError(t, err)

	hook := provider.Hook()
	ctx, finish := hook.OnRequest(context.Background(), session.DirectionOutbound, "tools/call")
	require.NotNil(t, ctx)
	finish("ok")

	_, finish = hook.OnRequest(context.Background(), session.DirectionInbound, "tools/call")
	finish("timeout")

	hook.OnNotification(context.Background(), session.DirectionInbound, "notifications/message")

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracingProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(context.Background(), TracingConfig{ExporterType: "carrier-pigeon"})
	assert.Error(t, err)
}
