package ollama

import (
	"ollamabridge/internal/domain"
)

// ChatRequest is the body of one streaming chat request.
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []domain.Message       `json:"messages"`
	Stream   bool                   `json:"stream"`
	Tools    []Tool                 `json:"tools,omitempty"`
	Options  domain.SamplingOptions `json:"options"`
}

// Tool declares one callable tool to the backend.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the function signature.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// chatRecord is one newline-delimited JSON record of the response stream.
// Performance counters may arrive nested under "metrics" or at the top
// level of the final record; both are accepted.
type chatRecord struct {
	Message *recordMessage `json:"message"`
	Done    bool           `json:"done"`
	Metrics *recordMetrics `json:"metrics"`

	PromptEvalCount *int   `json:"prompt_eval_count"`
	EvalCount       *int   `json:"eval_count"`
	TotalDuration   *int64 `json:"total_duration"`
	EvalDuration    *int64 `json:"eval_duration"`
}

type recordMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	ToolCalls []domain.ToolCall `json:"tool_calls"`
}

type recordMetrics struct {
	PromptEvalCount *int   `json:"prompt_eval_count"`
	EvalCount       *int   `json:"eval_count"`
	TotalDuration   *int64 `json:"total_duration"`
	EvalDuration    *int64 `json:"eval_duration"`
}

// usage normalizes the reported counters, converting nanosecond durations
// to milliseconds. A zero or absent duration stays null.
func (r *chatRecord) usage() domain.Usage {
	m := recordMetrics{
		PromptEvalCount: r.PromptEvalCount,
		EvalCount:       r.EvalCount,
		TotalDuration:   r.TotalDuration,
		EvalDuration:    r.EvalDuration,
	}
	if r.Metrics != nil {
		m = *r.Metrics
	}
	return domain.Usage{
		PromptEvalCount: m.PromptEvalCount,
		EvalCount:       m.EvalCount,
		TotalDurationMS: nsToMS(m.TotalDuration),
		EvalDurationMS:  nsToMS(m.EvalDuration),
	}
}

func nsToMS(ns *int64) *int64 {
	if ns == nil || *ns == 0 {
		return nil
	}
	ms := *ns / 1e6
	return &ms
}
