package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/engine"
	"chatd/internal/store"
	"chatd/pkg/types"
)

// Service defines the engine methods required by the HTTP API layer.
type Service interface {
	Submit(req *engine.GenerationRequest) error
	Status() types.StatusResponse
	Ready() bool
}

// streamBuffer is the per-request chunk channel capacity. Small: the handler
// drains promptly; the engine detects a gone receiver via request context.
const streamBuffer = 32

// NewMux builds the router. hist provides stored conversation history for
// prompt construction and the history endpoint.
func NewMux(svc Service, hist store.ChatStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/api/chat", handleChat(svc, hist))
	r.Post("/api/conversations", handleNewConversation())
	r.Get("/api/chat/{id}/history", handleHistory(hist))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleChat streams a generation as NDJSON token lines.
//
// @Summary      Stream a chat completion
// @Accept       json
// @Produce      json
// @Param        request body types.ChatRequest true "chat request"
// @Success      200 {object} types.TokenMessage "NDJSON stream of token lines"
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /api/chat [post]
func handleChat(svc Service, hist store.ChatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		var chat *engine.ConversationContext
		if req.ConversationID != "" {
			if _, err := uuid.Parse(req.ConversationID); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid conversation_id")
				return
			}
			entries, err := hist.History(r.Context(), req.ConversationID)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to load history")
				return
			}
			chat = &engine.ConversationContext{
				ConversationID: req.ConversationID,
				History:        entries,
			}
		}

		// Cancel generation on client disconnect or server shutdown; the
		// engine observes this context as "receiver gone".
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		stream := make(chan engine.StreamResult, streamBuffer)
		gr := &engine.GenerationRequest{
			Prompt:         req.Prompt,
			Chat:           chat,
			SystemPrompt:   req.SystemPrompt,
			NumPredict:     req.NumPredict,
			NumBatch:       req.NumBatch,
			TopK:           req.TopK,
			TopP:           req.TopP,
			RepeatPenalty:  req.RepeatPenalty,
			Temperature:    req.Temperature,
			PlayBackTokens: req.PlayBackTokens,
			Stream:         stream,
			Context:        ctx,
		}
		if err := svc.Submit(gr); err != nil {
			if engine.IsClosed(err) {
				writeJSONError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		// Set before any write so zero-token streams still carry it; an error
		// arriving before the first token overrides it with a JSON payload.
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		started := false
		for res := range stream {
			if res.Err != nil {
				if !started {
					writeJSONError(w, http.StatusInternalServerError, res.Err.Error())
					return
				}
				// Stream already under way; surface the error as a line.
				_ = enc.Encode(types.ErrorResponse{Error: res.Err.Error(), Code: http.StatusInternalServerError})
				if flush != nil {
					flush()
				}
				return
			}
			started = true
			if err := enc.Encode(types.TokenMessage{Token: res.Token}); err != nil {
				// Client went away; the engine notices via the context.
				return
			}
			if flush != nil {
				flush()
			}
		}
	}
}

// handleNewConversation mints a conversation id for callers that want their
// exchanges persisted.
//
// @Summary      Create a conversation
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /api/conversations [post]
func handleNewConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"conversation_id": uuid.NewString()})
	}
}

// handleHistory returns the stored entries of a conversation.
//
// @Summary      Get conversation history
// @Produce      json
// @Param        id path string true "conversation id"
// @Success      200 {object} types.HistoryResponse
// @Failure      400 {object} types.ErrorResponse
// @Router       /api/chat/{id}/history [get]
func handleHistory(hist store.ChatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid conversation id")
			return
		}
		entries, err := hist.History(r.Context(), id)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.HistoryResponse{ConversationID: id, Entries: entries})
	}
}

// joinContexts returns a context canceled when either a or b is done.
// The returned cancel func must be called when the handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
