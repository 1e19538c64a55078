// Package domain holds the types shared across the bridge: conversation
// messages, tool calls, sampling options, and the outbound event stream.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents one turn in a conversation. Content is empty for
// assistant turns that only carry tool calls; ToolCallID links a tool-role
// turn back to the call that produced it.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a request from the model to invoke a declared tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments Arguments
}

// toolCallWire covers both shapes the backend may deliver: the flat
// {id,name,arguments} form and the nested {id,function:{name,arguments}}
// form used by Ollama and OpenAI-compatible servers.
type toolCallWire struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
	Function  *struct {
		Name      string    `json:"name"`
		Arguments Arguments `json:"arguments"`
	} `json:"function"`
}

func (tc *ToolCall) UnmarshalJSON(b []byte) error {
	var w toolCallWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	tc.ID = w.ID
	tc.Name = w.Name
	tc.Arguments = w.Arguments
	if w.Function != nil {
		if tc.Name == "" {
			tc.Name = w.Function.Name
		}
		if len(tc.Arguments.raw) == 0 {
			tc.Arguments = w.Function.Arguments
		}
	}
	return nil
}

// MarshalJSON always writes the nested function form, which every
// Ollama-compatible backend accepts when the call is echoed back in an
// assistant turn.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	type function struct {
		Name      string    `json:"name"`
		Arguments Arguments `json:"arguments"`
	}
	return json.Marshal(struct {
		ID       string   `json:"id,omitempty"`
		Type     string   `json:"type"`
		Function function `json:"function"`
	}{
		ID:       tc.ID,
		Type:     "function",
		Function: function{Name: tc.Name, Arguments: tc.Arguments},
	})
}

// Arguments defers parsing of a tool call's argument payload. The backend
// may deliver it as a JSON object or as a JSON-encoded string; a malformed
// payload must surface as a tool-level error, not a decode failure, so the
// raw bytes are kept until Parse is called.
type Arguments struct {
	raw json.RawMessage
}

// ArgumentsFrom builds an Arguments value from an already-parsed object.
func ArgumentsFrom(m map[string]any) Arguments {
	b, err := json.Marshal(m)
	if err != nil {
		return Arguments{raw: json.RawMessage("{}")}
	}
	return Arguments{raw: b}
}

func (a *Arguments) UnmarshalJSON(b []byte) error {
	a.raw = append(a.raw[:0:0], b...)
	return nil
}

func (a Arguments) MarshalJSON() ([]byte, error) {
	if len(a.raw) == 0 {
		return []byte("{}"), nil
	}
	return a.raw, nil
}

// Parse normalizes the payload into an object. String payloads are decoded
// twice: once to unwrap the string, once to parse the object inside it.
func (a Arguments) Parse() (map[string]any, error) {
	raw := bytes.TrimSpace(a.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("unwrap argument string: %w", err)
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return map[string]any{}, nil
		}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	return m, nil
}

// Settings is the free-form options object supplied by the client. Keys the
// bridge does not recognize are ignored; malformed values for optional keys
// are dropped rather than rejected.
type Settings map[string]any

// SamplingOptions is the per-iteration options record sent to the backend.
// Optional fields are present only when the client supplied a usable value.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumCtx      int     `json:"num_ctx"`
	Seed        *int    `json:"seed,omitempty"`
	NumPredict  *int    `json:"num_predict,omitempty"`
	NumThread   *int    `json:"num_thread,omitempty"`
	NumBatch    *int    `json:"num_batch,omitempty"`
	NumGPU      *int    `json:"num_gpu,omitempty"`
}

// Usage carries whatever performance counters the backend reported on the
// final record of a turn. Every field is independently optional.
type Usage struct {
	PromptEvalCount *int   `json:"prompt_eval_count"`
	EvalCount       *int   `json:"eval_count"`
	TotalDurationMS *int64 `json:"total_duration_ms"`
	EvalDurationMS  *int64 `json:"eval_duration_ms"`
}
