// Package sse frames orchestrator events as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ollamabridge/internal/domain"
)

// Emitter writes events to one client connection. Every event is flushed
// before the next state-machine step runs, since the client renders deltas
// incrementally. Events are written in emission order, never batched.
type Emitter struct {
	w http.ResponseWriter
	f http.Flusher
}

// New prepares the response for event streaming. It fails when the
// transport cannot flush incrementally.
func New(w http.ResponseWriter) (*Emitter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &Emitter{w: w, f: f}, nil
}

// Send writes one data frame.
func (e *Emitter) Send(ev domain.Event) error {
	data, err := json.Marshal(payloadFor(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.f.Flush()
	return nil
}

// Close writes the terminal sentinel as a named event, distinct from data
// frames, so the client can tell a graceful end from a dropped connection.
// It must be sent exactly once per stream, success or failure.
func (e *Emitter) Close() {
	fmt.Fprint(e.w, "event: close\ndata: {}\n\n")
	e.f.Flush()
}

// payloadFor maps an event to its wire object. The "type" discriminator
// mirrors domain.EventType.
func payloadFor(ev domain.Event) map[string]any {
	switch ev.Type {
	case domain.EventDelta:
		return map[string]any{"type": "delta", "delta": ev.Delta}
	case domain.EventToolCalls:
		return map[string]any{"type": "tool_calls", "tool_calls": ev.ToolCalls}
	case domain.EventToolResult:
		return map[string]any{
			"type":   "tool_result",
			"id":     ev.ToolResult.ID,
			"name":   ev.ToolResult.Name,
			"args":   ev.ToolResult.Args,
			"output": ev.ToolResult.Output,
		}
	case domain.EventDone:
		return map[string]any{"type": "done", "options": ev.Done.Options, "usage": ev.Done.Usage}
	case domain.EventError:
		return map[string]any{"type": "error", "message": ev.Message}
	default:
		return map[string]any{"type": string(ev.Type)}
	}
}
