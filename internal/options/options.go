// Package options derives the per-request sampling options sent to the
// backend. Build is pure and is re-invoked on every loop iteration because
// the conversation, and with it the token estimate, grows after each tool
// round.
package options

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"ollamabridge/internal/domain"
)

// Defaults applied when the client omits a setting.
const (
	DefaultTemperature = 0.9
	DefaultTopP        = 0.9
	DefaultTopK        = 100
)

// Limits carries the operator-configured context-window bounds.
type Limits struct {
	DefaultNumCtx int
	MaxCtx        int
	Multiplier    float64
}

// Build maps client settings plus the current conversation to a
// SamplingOptions record. Optional integer settings are included only when
// the supplied value is non-empty and integer-convertible; malformed values
// are dropped silently.
func Build(settings domain.Settings, messages []domain.Message, limits Limits) domain.SamplingOptions {
	opts := domain.SamplingOptions{
		Temperature: floatSetting(settings, "temperature", DefaultTemperature),
		TopP:        floatSetting(settings, "top_p", DefaultTopP),
		TopK:        intSetting(settings, "top_k", DefaultTopK),
	}

	maxCtx := intSetting(settings, "max_ctx", limits.MaxCtx)
	staticCtx := intSetting(settings, "num_ctx", limits.DefaultNumCtx)

	if boolSetting(settings, "dynamic_ctx") {
		est := EstimateTokens(joinMessages(messages))
		opts.NumCtx = Clamp(int(float64(est)*limits.Multiplier), 4096, maxCtx)
	} else {
		opts.NumCtx = Clamp(staticCtx, 2048, maxCtx)
	}

	opts.Seed = optionalInt(settings, "seed")
	opts.NumPredict = optionalInt(settings, "num_predict")
	opts.NumThread = optionalInt(settings, "num_thread")
	opts.NumBatch = optionalInt(settings, "num_batch")
	opts.NumGPU = optionalInt(settings, "num_gpu")

	return opts
}

// EstimateTokens is a coarse, deterministic heuristic: roughly four
// characters per token. It deliberately does not tokenize.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Clamp returns v limited to [lo, hi].
func Clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func joinMessages(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func floatSetting(s domain.Settings, key string, def float64) float64 {
	if v, ok := toFloat(s[key]); ok {
		return v
	}
	return def
}

func intSetting(s domain.Settings, key string, def int) int {
	if v, ok := toInt(s[key]); ok {
		return v
	}
	return def
}

func boolSetting(s domain.Settings, key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

func optionalInt(s domain.Settings, key string) *int {
	if v, ok := toInt(s[key]); ok {
		return &v
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
