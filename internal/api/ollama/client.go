// Package ollama is a minimal client for an Ollama-compatible backend's
// streaming chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHost = "http://localhost:11434"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to one backend host over a pooled transport. The client
// carries no overall request timeout: a streaming turn may take
// arbitrarily long, and cancellation flows through the request context.
type Client struct {
	host       string
	httpClient *http.Client
}

// NewClient creates a backend client for the given host.
func NewClient(host string, opts ...ClientOption) *Client {
	if host == "" {
		host = defaultHost
	}
	c := &Client{
		host: strings.TrimSuffix(host, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 16,
				MaxConnsPerHost:     16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream is one in-flight chat response. Next yields decoded frames;
// Close releases the underlying connection and must always be called.
type Stream struct {
	body io.ReadCloser
	dec  *Decoder
}

func (s *Stream) Next() (*Frame, error) { return s.dec.Next() }
func (s *Stream) Close() error          { return s.body.Close() }

// Chat issues one streaming chat request and returns the decoded frame
// stream.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*Stream, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("chat request: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	return &Stream{body: resp.Body, dec: NewDecoder(resp.Body)}, nil
}

// Tags fetches the backend's model listing verbatim.
func (c *Client) Tags(ctx context.Context) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create tags request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tags request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tags response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tags request: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return respBody, nil
}
