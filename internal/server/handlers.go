package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ollamabridge/internal/api/ollama"
	"ollamabridge/internal/config"
	"ollamabridge/internal/domain"
	"ollamabridge/internal/options"
	"ollamabridge/internal/orchestrator"
	"ollamabridge/internal/sse"
	"ollamabridge/internal/tools"
)

const healthProbeTimeout = 3 * time.Second

// Handler serves the chat API. The active model is the only mutable piece
// of state, guarded for the model-set endpoint.
type Handler struct {
	client   *ollama.Client
	registry *tools.Registry
	cfg      *config.Config
	logger   *slog.Logger

	mu    sync.RWMutex
	model string
}

func NewHandler(client *ollama.Client, registry *tools.Registry, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		client:   client,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		model:    cfg.Ollama.Model,
	}
}

func (h *Handler) Model() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model
}

// chatPayload is the inbound request body.
type chatPayload struct {
	Messages  []domain.Message `json:"messages"`
	Settings  domain.Settings  `json:"settings"`
	System    string           `json:"system"`
	Developer string           `json:"developer"`
}

// ChatStream runs one orchestration loop over SSE. Each client request
// gets its own loop and conversation; nothing is shared across requests.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		AddError(r.Context(), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conversation := seedConversation(payload)

	emitter, err := sse.New(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// The close frame terminates every stream, however the loop ends.
	defer emitter.Close()

	loop := orchestrator.New(h.client, h.registry, orchestrator.Config{
		Model: h.Model(),
		Limits: options.Limits{
			DefaultNumCtx: h.cfg.Context.DefaultNumCtx,
			MaxCtx:        h.cfg.Context.MaxCtx,
			Multiplier:    h.cfg.Context.Multiplier,
		},
		MaxToolRounds: h.cfg.Loop.MaxToolRounds,
	}, h.logger.With(slog.String("request_id", GetRequestID(r.Context()))))

	loop.Run(r.Context(), conversation, payload.Settings, emitter)
}

// seedConversation prepends the optional system and developer preambles to
// the client-supplied history.
func seedConversation(payload chatPayload) []domain.Message {
	var conversation []domain.Message
	if payload.System != "" {
		conversation = append(conversation, domain.Message{Role: domain.RoleSystem, Content: payload.System})
	}
	if payload.Developer != "" {
		conversation = append(conversation, domain.Message{Role: domain.RoleDeveloper, Content: payload.Developer})
	}
	return append(conversation, payload.Messages...)
}

// Health probes the upstream model listing. It reports rather than fails:
// the response is always 200 with an ok flag.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	_, err := h.client.Tags(ctx)
	AddError(r.Context(), err)

	writeJSON(w, map[string]any{
		"ok":     err == nil,
		"ollama": h.cfg.Ollama.Host,
		"model":  h.Model(),
	})
}

// ListModels proxies the backend's model listing verbatim.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	tags, err := h.client.Tags(r.Context())
	if err != nil {
		AddError(r.Context(), err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(tags)
}

// SetModel swaps the active model for subsequent chat requests.
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		AddError(r.Context(), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if payload.Model != "" {
		h.model = payload.Model
	}
	model := h.model
	h.mu.Unlock()

	writeJSON(w, map[string]any{"ok": true, "model": model})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
