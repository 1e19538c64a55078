package domain

// EventType tags an outbound event. The values double as the "type" field
// of the JSON payload written to the client.
type EventType string

const (
	EventDelta      EventType = "delta"
	EventToolCalls  EventType = "tool_calls"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one client-facing stream event produced by the orchestration
// loop. Exactly one payload field is set, selected by Type.
type Event struct {
	Type       EventType
	Delta      string
	ToolCalls  []ToolCall
	ToolResult *ToolResultPayload
	Done       *DonePayload
	Message    string
}

// ToolResultPayload reports one dispatched tool call back to the client.
type ToolResultPayload struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Output any            `json:"output"`
}

// DonePayload closes a successful turn with the options that were in effect
// and the usage counters the backend reported.
type DonePayload struct {
	Options SamplingOptions `json:"options"`
	Usage   Usage           `json:"usage"`
}

func DeltaEvent(text string) Event {
	return Event{Type: EventDelta, Delta: text}
}

func ToolCallsEvent(calls []ToolCall) Event {
	return Event{Type: EventToolCalls, ToolCalls: calls}
}

func ToolResultEvent(id, name string, args map[string]any, output any) Event {
	return Event{Type: EventToolResult, ToolResult: &ToolResultPayload{ID: id, Name: name, Args: args, Output: output}}
}

func DoneEvent(opts SamplingOptions, usage Usage) Event {
	return Event{Type: EventDone, Done: &DonePayload{Options: opts, Usage: usage}}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
