// Package orchestrator drives the multi-turn tool-calling loop: stream a
// model turn, run any tools it requested, fold the results back into the
// conversation, and re-issue the request until the model answers without
// tools.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"ollamabridge/internal/api/ollama"
	"ollamabridge/internal/domain"
	"ollamabridge/internal/options"
	"ollamabridge/internal/telemetry"
	"ollamabridge/internal/tools"
)

// Sink receives outbound events in emission order. A Send error means the
// client is gone; the loop stops at the next suspension point.
type Sink interface {
	Send(domain.Event) error
}

// errSinkClosed marks a failed Send so the loop can stop without emitting
// a pointless error event to a dead connection.
var errSinkClosed = errors.New("client connection closed")

// Config bounds one loop instance.
type Config struct {
	Model  string
	Limits options.Limits
	// MaxToolRounds caps REQUESTING/TOOL_ROUND cycling; 0 means
	// unbounded, which matches the historical behavior.
	MaxToolRounds int
}

// Loop owns one conversation for the lifetime of one client request. Two
// instances never share a conversation; concurrency across requests is
// bounded by the backend client's connection pool.
type Loop struct {
	client   *ollama.Client
	registry *tools.Registry
	cfg      Config
	logger   *slog.Logger
}

func New(client *ollama.Client, registry *tools.Registry, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{client: client, registry: registry, cfg: cfg, logger: logger}
}

// Run drives the conversation to completion. It emits exactly one of a
// done or error event before returning (unless the client disconnected);
// the caller owns the terminal close frame.
func (l *Loop) Run(ctx context.Context, conversation []domain.Message, settings domain.Settings, sink Sink) {
	rounds := 0
	for {
		// Options are rebuilt every iteration: the conversation grew
		// during the previous tool round, and with it the token
		// estimate.
		opts := options.Build(settings, conversation, l.cfg.Limits)

		stream, err := l.client.Chat(ctx, &ollama.ChatRequest{
			Model:    l.cfg.Model,
			Messages: conversation,
			Tools:    l.registry.Definitions(),
			Options:  opts,
		})
		if err != nil {
			l.fail(sink, err)
			return
		}

		turn, err := l.consume(stream, sink)
		stream.Close()
		if errors.Is(err, errSinkClosed) {
			l.logger.Info("client disconnected, abandoning loop")
			return
		}
		if err != nil {
			l.fail(sink, err)
			return
		}

		if len(turn.pending) == 0 {
			if !turn.completed {
				l.fail(sink, errors.New("stream closed before completion"))
				return
			}
			_ = sink.Send(domain.DoneEvent(opts, turn.usage))
			return
		}

		rounds++
		if l.cfg.MaxToolRounds > 0 && rounds > l.cfg.MaxToolRounds {
			l.logger.Warn("tool round limit exceeded", slog.Int("rounds", rounds))
			_ = sink.Send(domain.ErrorEvent(fmt.Sprintf("%s after %d rounds", domain.ErrToolRoundLimit, l.cfg.MaxToolRounds)))
			return
		}

		next, err := l.toolRound(ctx, conversation, turn.pending, sink)
		if errors.Is(err, errSinkClosed) {
			l.logger.Info("client disconnected during tool round")
			return
		}
		conversation = next
	}
}

// turnResult is what one streamed model turn produced.
type turnResult struct {
	pending   []domain.ToolCall
	usage     domain.Usage
	completed bool
}

// consume forwards deltas as they decode, records a pending tool batch,
// and captures completion counters. Deltas are never buffered or
// reordered: each is sent and flushed before the next frame is read.
func (l *Loop) consume(stream *ollama.Stream, sink Sink) (turnResult, error) {
	var turn turnResult
	for {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return turn, nil
		}
		if err != nil {
			return turn, err
		}

		switch frame.Kind {
		case ollama.FrameDelta:
			if err := sink.Send(domain.DeltaEvent(frame.Delta)); err != nil {
				return turn, fmt.Errorf("%w: %v", errSinkClosed, err)
			}
		case ollama.FrameToolCalls:
			if err := sink.Send(domain.ToolCallsEvent(frame.ToolCalls)); err != nil {
				return turn, fmt.Errorf("%w: %v", errSinkClosed, err)
			}
			turn.pending = frame.ToolCalls
		case ollama.FrameDone:
			turn.usage = frame.Usage
			turn.completed = true
		}
	}
}

// toolRound appends the assistant turn carrying the batch, then dispatches
// each call strictly in the order received: later calls may depend on
// earlier results being visible in the conversation.
func (l *Loop) toolRound(ctx context.Context, conversation []domain.Message, batch []domain.ToolCall, sink Sink) ([]domain.Message, error) {
	conversation = append(conversation, domain.Message{
		Role:      domain.RoleAssistant,
		ToolCalls: batch,
	})

	for _, call := range batch {
		args, output := l.execute(ctx, call)

		if err := sink.Send(domain.ToolResultEvent(call.ID, call.Name, args, output)); err != nil {
			return conversation, fmt.Errorf("%w: %v", errSinkClosed, err)
		}

		conversation = append(conversation, domain.Message{
			Role:       domain.RoleTool,
			ToolCallID: call.ID,
			Content:    serializeOutput(output),
		})
	}
	return conversation, nil
}

// execute resolves one call's arguments and dispatches it. Argument parse
// failures are tool-level errors, folded into the conversation like any
// other result.
func (l *Loop) execute(ctx context.Context, call domain.ToolCall) (map[string]any, any) {
	args, err := call.Arguments.Parse()
	if err != nil {
		l.logger.Warn("tool arguments unparsable",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()),
		)
		return map[string]any{}, map[string]any{"error": "invalid tool arguments: " + err.Error()}
	}

	l.logger.Info("dispatching tool",
		slog.String("tool", call.Name),
		slog.String("call_id", call.ID),
	)
	ctx, span := telemetry.Tracer().Start(ctx, "tool.dispatch")
	span.SetAttributes(attribute.String("tool.name", call.Name))
	defer span.End()
	return args, l.registry.Dispatch(ctx, call.Name, args)
}

func (l *Loop) fail(sink Sink, err error) {
	l.logger.Error("backend turn failed", slog.String("error", err.Error()))
	_ = sink.Send(domain.ErrorEvent("Backend request failed: " + err.Error()))
}

func serializeOutput(output any) string {
	data, err := json.Marshal(output)
	if err != nil {
		return `{"error":"tool output not serializable"}`
	}
	return string(data)
}
