package tools

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"ollamabridge/internal/testutil"
)

func TestWebSearchParsesResults(t *testing.T) {
	r := testutil.NewVCRRecorder(t, "web_search")
	tool, err := NewWebSearch(testutil.VCRHTTPClient(r), 8)
	if err != nil {
		t.Fatal(err)
	}

	out, err := tool.Call(context.Background(), map[string]any{"query": "golang streams"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	payload := out.(map[string]any)
	if payload["source"] != "duckduckgo_html" {
		t.Errorf("source = %v", payload["source"])
	}
	results := payload["results"].([]SearchResult)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}

	first := results[0]
	if !strings.Contains(first.Title, "Pipelines") {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://go.dev/blog/pipelines" {
		t.Errorf("redirect not unwrapped: %q", first.URL)
	}
	if !strings.Contains(first.Snippet, "streaming data pipelines") {
		t.Errorf("snippet = %q", first.Snippet)
	}
	if results[1].URL != "https://pkg.go.dev/io" {
		t.Errorf("plain url mangled: %q", results[1].URL)
	}
}

func TestWebSearchHonorsK(t *testing.T) {
	r := testutil.NewVCRRecorder(t, "web_search")
	tool, err := NewWebSearch(testutil.VCRHTTPClient(r), 8)
	if err != nil {
		t.Fatal(err)
	}

	out, err := tool.Call(context.Background(), map[string]any{"query": "golang streams", "k": float64(1)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	results := out.(map[string]any)["results"].([]SearchResult)
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

// countingTransport counts round trips so cache hits are observable.
type countingTransport struct {
	inner http.RoundTripper
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return c.inner.RoundTrip(req)
}

func TestWebSearchCaches(t *testing.T) {
	r := testutil.NewVCRRecorder(t, "web_search")
	transport := &countingTransport{inner: r}
	tool, err := NewWebSearch(&http.Client{Transport: transport}, 8)
	if err != nil {
		t.Fatal(err)
	}

	args := map[string]any{"query": "golang streams"}
	if _, err := tool.Call(context.Background(), args); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := tool.Call(context.Background(), args); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if transport.calls != 1 {
		t.Errorf("made %d network calls, want 1 (second served from cache)", transport.calls)
	}
}

func TestWebSearchRequiresQuery(t *testing.T) {
	tool, err := NewWebSearch(nil, 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tool.Call(context.Background(), map[string]any{}); err == nil {
		t.Error("missing query must fail")
	}
}
