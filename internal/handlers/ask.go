package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"textbook-chatbot/internal/answer"
	"textbook-chatbot/internal/chatbot"
	"textbook-chatbot/internal/citation"
	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/llm"
	"textbook-chatbot/internal/retrieval"
)

// AskHandler handles HTTP requests for asking questions.
type AskHandler struct {
	engine *chatbot.Engine
	logger *slog.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine *chatbot.Engine) *AskHandler {
	return &AskHandler{
		engine: engine,
		logger: slog.Default(),
	}
}

// AskRequest represents the HTTP request payload for a question.
type AskRequest struct {
	Question string `json:"question"`
}

// CitationPayload is one source reference in a response.
type CitationPayload struct {
	Marker string `json:"marker"`
	Source string `json:"source"`
	Page   string `json:"page"`
	Link   string `json:"link"`
}

// AskResponse represents the HTTP response payload for a question.
type AskResponse struct {
	ConversationID string            `json:"conversation_id"`
	Answer         string            `json:"answer"`
	Relevant       bool              `json:"relevant"`
	Citations      []CitationPayload `json:"citations"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for questions. With ?stream=true the
// answer is delivered as Server-Sent Events.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.serveStream(w, r, req)
		return
	}

	result, err := h.engine.Ask(ctx, req.Question)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	resp := AskResponse{
		ConversationID: result.ConversationID,
		Answer:         result.Answer,
		Relevant:       result.Relevant,
		Citations:      citationPayloads(result.Citations),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// serveStream streams the answer as SSE. Chunks arrive as data events; the
// final event carries the conversation ID and citations, then [DONE].
func (h *AskHandler) serveStream(w http.ResponseWriter, r *http.Request, req AskRequest) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	result, err := h.engine.AskStream(ctx, req.Question, func(chunk string) error {
		payload, err := json.Marshal(map[string]string{"chunk": chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "streaming failed", "error", err)
		_, _ = fmt.Fprintf(w, "data: {\"error\":%q}\n\n", userMessage(err))
		flusher.Flush()
		return
	}

	final, err := json.Marshal(map[string]any{
		"conversation_id": result.ConversationID,
		"relevant":        result.Relevant,
		"citations":       citationPayloads(result.Citations),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode final event", "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", final)
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// handleEngineError maps pipeline errors to HTTP status codes.
func (h *AskHandler) handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch {
	case errors.Is(err, retrieval.ErrInvalidQuestion):
		logger.InfoContext(ctx, "question rejected", "error", err)
		writeError(w, http.StatusBadRequest, "Please ask a complete question.")
	case errors.Is(err, retrieval.ErrUnavailable):
		logger.ErrorContext(ctx, "retrieval backend unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Search is temporarily unavailable. Please try again shortly.")
	case errors.Is(err, answer.ErrModelInvocation), errors.Is(err, llm.ErrTimeout):
		logger.ErrorContext(ctx, "model invocation failed", "error", err)
		writeError(w, http.StatusBadGateway, "The answer service is temporarily unavailable. Please try again shortly.")
	default:
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process the question")
	}
}

// userMessage is the stream-path counterpart of handleEngineError; headers
// are already sent, so the error travels inside the event stream.
func userMessage(err error) string {
	switch {
	case errors.Is(err, retrieval.ErrInvalidQuestion):
		return "Please ask a complete question."
	case errors.Is(err, retrieval.ErrUnavailable):
		return "Search is temporarily unavailable. Please try again shortly."
	case errors.Is(err, answer.ErrModelInvocation), errors.Is(err, llm.ErrTimeout):
		return "The answer service is temporarily unavailable. Please try again shortly."
	default:
		return "Failed to process the question"
	}
}

func citationPayloads(refs []citation.Reference) []CitationPayload {
	payloads := make([]CitationPayload, 0, len(refs))
	for _, ref := range refs {
		payloads = append(payloads, CitationPayload{
			Marker: ref.Marker,
			Source: ref.SourceID,
			Page:   ref.Display,
			Link:   ref.Link(),
		})
	}
	return payloads
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
