package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/storage"
)

// FeedbackHandler records thumbs-up/thumbs-down feedback on a turn.
type FeedbackHandler struct {
	conversations storage.ConversationStore
	logger        *slog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(conversations storage.ConversationStore) *FeedbackHandler {
	return &FeedbackHandler{
		conversations: conversations,
		logger:        slog.Default(),
	}
}

// FeedbackRequest represents the HTTP request payload for feedback.
type FeedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	Correct        *bool  `json:"correct"`
}

// ServeHTTP handles HTTP requests for feedback.
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConversationID == "" || req.Correct == nil {
		writeError(w, http.StatusBadRequest, "conversation_id and correct are required")
		return
	}

	if err := h.conversations.SetCorrect(ctx, req.ConversationID, *req.Correct); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		logger.ErrorContext(ctx, "failed to record feedback", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record feedback")
		return
	}

	logger.InfoContext(ctx, "feedback recorded", "conversation_id", req.ConversationID, "correct", *req.Correct)
	w.WriteHeader(http.StatusNoContent)
}
