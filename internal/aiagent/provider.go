package aiagent

import (
	"encoding/json"
	"log/slog"
)

// Provider identifies which LLM CLI wire format a session was started
// with. The two supported CLIs speak different JSONL shapes; the
// coordinator decodes both into the same DecodedEvent set.
type Provider string

const (
	ProviderA Provider = "provider-a"
	ProviderB Provider = "provider-b"
)

// DecodedEvent is what a provider decoder reduces one JSONL line to. The
// decoders only see lines beginning with '{'; the coordinator emits other
// lines as plain text itself, so Decode never returns Kind "raw" or sets
// RawLine.
type DecodedEvent struct {
	Kind       string // "text" | "tool_use" | "turn_done" | "raw" | "ignored"
	Text       string
	ToolName   string
	ToolArgs   json.RawMessage
	ToolCallID string
	RawLine    string
}

// providerAMessage mirrors Provider A's top-level JSONL shape: one object
// per line, discriminated by `type`, with assistant messages carrying a
// content block array.
type providerAMessage struct {
	Type    string `json:"type"`
	Message struct {
		Content []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
	} `json:"message"`
}

// decodeProviderA decodes one line of Provider A's JSONL stream. Unknown
// top-level types are logged and ignored rather than surfaced as errors.
func decodeProviderA(line []byte) []DecodedEvent {
	var msg providerAMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case "assistant":
		var out []DecodedEvent
		for _, block := range msg.Message.Content {
			switch block.Type {
			case "text":
				out = append(out, DecodedEvent{Kind: "text", Text: block.Text})
			case "tool_use":
				out = append(out, DecodedEvent{Kind: "tool_use", ToolName: block.Name, ToolArgs: block.Input, ToolCallID: block.ID})
			}
		}
		return out
	case "result":
		return []DecodedEvent{{Kind: "turn_done"}}
	case "user", "system", "error":
		return nil
	default:
		slog.Debug("aiagent: ignoring unknown provider A event type", "type", msg.Type)
		return []DecodedEvent{{Kind: "ignored"}}
	}
}

// providerBMessage mirrors Provider B's top-level JSONL shape: objects
// discriminated by `type`, with assistant text nested under `item.text`
// when `item.type == "agent_message"`.
type providerBMessage struct {
	Type string `json:"type"`
	Item struct {
		Type     string          `json:"type"`
		Text     string          `json:"text"`
		ToolName string          `json:"tool_name"`
		ToolArgs json.RawMessage `json:"tool_args"`
		ID       string          `json:"id"`
	} `json:"item"`
}

func decodeProviderB(line []byte) []DecodedEvent {
	var msg providerBMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case "item.completed":
		switch msg.Item.Type {
		case "agent_message":
			return []DecodedEvent{{Kind: "text", Text: msg.Item.Text}}
		case "tool_call":
			return []DecodedEvent{{Kind: "tool_use", ToolName: msg.Item.ToolName, ToolArgs: msg.Item.ToolArgs, ToolCallID: msg.Item.ID}}
		default:
			return []DecodedEvent{{Kind: "ignored"}}
		}
	case "turn.completed":
		return []DecodedEvent{{Kind: "turn_done"}}
	case "thread.started":
		return nil
	case "error":
		return nil
	default:
		return []DecodedEvent{{Kind: "ignored"}}
	}
}

// Decode dispatches to the provider-specific decoder. A line not starting
// with '{' is never passed here; see coordinator.go's line-routing rule.
func Decode(p Provider, line []byte) []DecodedEvent {
	switch p {
	case ProviderB:
		return decodeProviderB(line)
	default:
		return decodeProviderA(line)
	}
}
