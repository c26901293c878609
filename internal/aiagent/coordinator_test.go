package aiagent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkube/clustercore/internal/permission"
)

type noopSink struct{}

func (noopSink) Emit(channel, eventType string, data interface{}) {}

func TestExtractNamespace_PresentField(t *testing.T) {
	args := json.RawMessage(`{"namespace":"dev","name":"my-pod"}`)
	assert.Equal(t, "dev", extractNamespace(args))
}

func TestExtractNamespace_MissingField(t *testing.T) {
	args := json.RawMessage(`{"name":"my-pod"}`)
	assert.Equal(t, "", extractNamespace(args))
}

func TestExtractNamespace_EmptyArgs(t *testing.T) {
	assert.Equal(t, "", extractNamespace(nil))
}

func TestGateToolCall_NilGateIsNoOp(t *testing.T) {
	c := New(Config{Provider: ProviderA, Args: func(string) []string { return nil }}, noopSink{}, "s1")
	err := c.gateToolCall(context.Background(), DecodedEvent{Kind: "tool_use", ToolName: "kubectl_get"})
	require.NoError(t, err)
}

func TestGateToolCall_AllowedProceedsSilently(t *testing.T) {
	gate := permission.New(permission.Config{Mode: permission.ModeDefault}, noopSink{}, "gate-1")
	c := New(Config{Provider: ProviderA, Args: func(string) []string { return nil }, Gate: gate}, noopSink{}, "s1")

	err := c.gateToolCall(context.Background(), DecodedEvent{
		Kind:     "tool_use",
		ToolName: "kubectl_get",
		ToolArgs: json.RawMessage(`{"command":"kubectl get pods","namespace":"default"}`),
	})
	require.NoError(t, err)
}

func TestGateToolCall_BlockedInRestrictedNamespaceDoesNotAbortTurn(t *testing.T) {
	gate := permission.New(permission.Config{Mode: permission.ModeAcceptEdits}, noopSink{}, "gate-1")
	c := New(Config{Provider: ProviderA, Args: func(string) []string { return nil }, Gate: gate}, noopSink{}, "s1")

	err := c.gateToolCall(context.Background(), DecodedEvent{
		Kind:     "tool_use",
		ToolName: "kubectl_delete",
		ToolArgs: json.RawMessage(`{"command":"kubectl delete pod my-pod","namespace":"kube-system"}`),
	})
	require.NoError(t, err)
}

func TestGateToolCall_CanceledContextAbortsTurn(t *testing.T) {
	gate := permission.New(permission.Config{Mode: permission.ModePlan}, noopSink{}, "gate-1")
	c := New(Config{Provider: ProviderA, Args: func(string) []string { return nil }, Gate: gate}, noopSink{}, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.gateToolCall(ctx, DecodedEvent{
		Kind:     "tool_use",
		ToolName: "kubectl_get",
		ToolArgs: json.RawMessage(`{"command":"kubectl get pods","namespace":"default"}`),
	})
	assert.Error(t, err)
}
