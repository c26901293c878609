package aiagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProviderA_AssistantText(t *testing.T) {
	line := []byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"hello there"}]}}`)
	events := decodeProviderA(line)
	require.Len(t, events, 1)
	assert.Equal(t, "text", events[0].Kind)
	assert.Equal(t, "hello there", events[0].Text)
}

func TestDecodeProviderA_ToolUse(t *testing.T) {
	line := []byte(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"get_pods","input":{"namespace":"default"}}]}}`)
	events := decodeProviderA(line)
	require.Len(t, events, 1)
	assert.Equal(t, "tool_use", events[0].Kind)
	assert.Equal(t, "get_pods", events[0].ToolName)
	assert.Equal(t, "t1", events[0].ToolCallID)
}

func TestDecodeProviderA_ResultIsTurnDone(t *testing.T) {
	events := decodeProviderA([]byte(`{"type":"result"}`))
	require.Len(t, events, 1)
	assert.Equal(t, "turn_done", events[0].Kind)
}

func TestDecodeProviderA_UnknownDiscriminatorIgnored(t *testing.T) {
	events := decodeProviderA([]byte(`{"type":"something_future"}`))
	require.Len(t, events, 1)
	assert.Equal(t, "ignored", events[0].Kind)
}

func TestDecodeProviderB_AgentMessage(t *testing.T) {
	line := []byte(`{"type":"item.completed","item":{"type":"agent_message","text":"hi"}}`)
	events := decodeProviderB(line)
	require.Len(t, events, 1)
	assert.Equal(t, "text", events[0].Kind)
	assert.Equal(t, "hi", events[0].Text)
}

func TestDecodeProviderB_ToolCall(t *testing.T) {
	line := []byte(`{"type":"item.completed","item":{"type":"tool_call","tool_name":"list_pods","id":"c1"}}`)
	events := decodeProviderB(line)
	require.Len(t, events, 1)
	assert.Equal(t, "tool_use", events[0].Kind)
	assert.Equal(t, "list_pods", events[0].ToolName)
}

func TestDecodeProviderB_TurnCompleted(t *testing.T) {
	events := decodeProviderB([]byte(`{"type":"turn.completed"}`))
	require.Len(t, events, 1)
	assert.Equal(t, "turn_done", events[0].Kind)
}

func TestDecodeProviderB_ThreadStartedIgnoredSilently(t *testing.T) {
	assert.Nil(t, decodeProviderB([]byte(`{"type":"thread.started"}`)))
}

func TestDecode_DispatchesByProvider(t *testing.T) {
	a := Decode(ProviderA, []byte(`{"type":"result"}`))
	require.Len(t, a, 1)
	assert.Equal(t, "turn_done", a[0].Kind)

	b := Decode(ProviderB, []byte(`{"type":"turn.completed"}`))
	require.Len(t, b, 1)
	assert.Equal(t, "turn_done", b[0].Kind)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient("Error: 529 overloaded, please retry"))
	assert.True(t, isTransient("HTTP 500 Internal Server Error"))
	assert.True(t, isTransient("you have hit a RATE LIMIT"))
	assert.False(t, isTransient("command not found"))
}

func TestWithPATH_ReplacesExisting(t *testing.T) {
	env := withPATH([]string{"HOME=/root", "PATH=/usr/bin"}, "/custom/bin")
	assert.Contains(t, env, "PATH=/custom/bin")
	assert.NotContains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "HOME=/root")
}
