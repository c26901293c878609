// Package events defines the wire-level event records emitted on each
// stream channel. Every driver decodes its own upstream protocol into one
// of these closed sets before handing it to the event sink; unknown
// upstream discriminators become a diagnostic-only variant that is logged
// and dropped rather than propagated.
package events

// Event is anything a driver can hand to the sink: a channel key and a
// JSON-serializable payload carrying its own `type` discriminator.
type Event struct {
	Channel string      `json:"channel"`
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
}

// Watch channel event types.
const (
	WatchAdded     = "Added"
	WatchModified  = "Modified"
	WatchDeleted   = "Deleted"
	WatchRestarted = "Restarted"
	WatchError     = "Error"
)

// Log channel event types.
const (
	LogLine    = "Line"
	LogError   = "Error"
	LogStarted = "Started"
	LogStopped = "Stopped"
)

// LogLinePayload is the Line event's data; Timestamp is set only when the
// first 30 characters of the raw line parsed as an RFC-3339 timestamp.
type LogLinePayload struct {
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message"`
	Container string `json:"container,omitempty"`
	Pod       string `json:"pod"`
	Namespace string `json:"namespace"`
}

// Shell channel event types.
const (
	ShellOutput  = "Output"
	ShellError   = "Error"
	ShellStarted = "Started"
	ShellClosed  = "Closed"
)

// Port-forward channel event types.
const (
	PortForwardStarted      = "Started"
	PortForwardConnected    = "Connected"
	PortForwardDisconnected = "Disconnected"
	PortForwardError        = "Error"
	PortForwardStopped      = "Stopped"
)

// AI channel event types.
const (
	AISessionStarted   = "SessionStarted"
	AIMessageChunk     = "MessageChunk"
	AIThinking         = "Thinking"
	AIToolExecution    = "ToolExecution"
	AIApprovalRequired = "ApprovalRequired"
	AIApprovalResponse = "ApprovalResponse"
	AIToolBlocked      = "ToolBlocked"
	AIError            = "Error"
	AISessionEnded     = "SessionEnded"
)

type MessageChunkPayload struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

type ThinkingPayload struct {
	Active bool `json:"active"`
}

type ToolExecutionPayload struct {
	ToolName string `json:"tool_name"`
	Status   string `json:"status"` // running | succeeded | failed
	Output   string `json:"output,omitempty"`
}

type ApprovalRequiredPayload struct {
	RequestID      string `json:"request_id"`
	ToolName       string `json:"tool_name"`
	CommandPreview string `json:"command_preview"`
	Reason         string `json:"reason"`
	Severity       string `json:"severity"`
}

type ApprovalResponsePayload struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
}

type ToolBlockedPayload struct {
	ToolName string `json:"tool_name"`
	Reason   string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ChannelKey derives the stable channel name for a session: "<kind>-<id>".
func ChannelKey(kind, sessionID string) string {
	return kind + "-" + sessionID
}
