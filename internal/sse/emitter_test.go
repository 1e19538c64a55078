package sse

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ollamabridge/internal/domain"
)

func TestEmitterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	em, err := New(rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := em.Send(domain.DeltaEvent("hel")); err != nil {
		t.Fatal(err)
	}
	if err := em.Send(domain.DeltaEvent("lo")); err != nil {
		t.Fatal(err)
	}
	em.Close()

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 3 {
		t.Fatalf("got %d frames: %q", len(frames), body)
	}
	if frames[0] != `data: {"delta":"hel","type":"delta"}` {
		t.Errorf("frame 0 = %q", frames[0])
	}
	if frames[1] != `data: {"delta":"lo","type":"delta"}` {
		t.Errorf("frame 1 = %q", frames[1])
	}
	if frames[2] != "event: close\ndata: {}" {
		t.Errorf("close frame = %q", frames[2])
	}
}

func TestEmitterEventPayloads(t *testing.T) {
	rec := httptest.NewRecorder()
	em, err := New(rec)
	if err != nil {
		t.Fatal(err)
	}

	calls := []domain.ToolCall{{ID: "c1", Name: "web_search", Arguments: domain.ArgumentsFrom(map[string]any{"query": "x"})}}
	if err := em.Send(domain.ToolCallsEvent(calls)); err != nil {
		t.Fatal(err)
	}
	if err := em.Send(domain.ToolResultEvent("c1", "web_search", map[string]any{"query": "x"}, map[string]any{"results": []string{}})); err != nil {
		t.Fatal(err)
	}
	if err := em.Send(domain.ErrorEvent("Backend request failed: boom")); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	if len(lines) != 3 {
		t.Fatalf("got %d frames", len(lines))
	}
	for i, wantType := range []string{"tool_calls", "tool_result", "error"} {
		var payload map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[i], "data: ")), &payload); err != nil {
			t.Fatalf("frame %d not JSON: %v", i, err)
		}
		if payload["type"] != wantType {
			t.Errorf("frame %d type = %v, want %s", i, payload["type"], wantType)
		}
	}
}

func TestNewRequiresFlusher(t *testing.T) {
	if _, err := New(plainWriter{httptest.NewRecorder()}); err == nil {
		t.Error("want error for non-flushing writer")
	}
}

// plainWriter narrows the recorder to the bare interface, hiding Flush.
type plainWriter struct {
	http.ResponseWriter
}
