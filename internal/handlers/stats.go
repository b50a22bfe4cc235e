package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"textbook-chatbot/internal/contextutil"
	"textbook-chatbot/internal/storage"
)

// StatsHandler serves aggregate feedback statistics.
type StatsHandler struct {
	conversations storage.ConversationStore
	logger        *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(conversations storage.ConversationStore) *StatsHandler {
	return &StatsHandler{
		conversations: conversations,
		logger:        slog.Default(),
	}
}

// StatsResponse represents the statistics payload. Rate metrics are null
// until enough feedback exists to compute them.
type StatsResponse struct {
	NumQuestions  int      `json:"num_questions"`
	NumCorrect    int      `json:"num_correct"`
	NumIncorrect  int      `json:"num_incorrect"`
	AvgResponseMS float64  `json:"avg_response_ms"`
	AvgSessionSec float64  `json:"avg_session_sec"`
	TruePositive  int      `json:"true_positive"`
	FalsePositive int      `json:"false_positive"`
	TrueNegative  int      `json:"true_negative"`
	FalseNegative int      `json:"false_negative"`
	Sensitivity   *float64 `json:"sensitivity"`
	Specificity   *float64 `json:"specificity"`
	Accuracy      *float64 `json:"accuracy"`
	Precision     *float64 `json:"precision"`
	Recall        *float64 `json:"recall"`
	F1            *float64 `json:"f1"`
}

// ServeHTTP handles HTTP requests for statistics.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.conversations.Statistics(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	resp := StatsResponse{
		NumQuestions:  stats.NumQuestions,
		NumCorrect:    stats.NumCorrect,
		NumIncorrect:  stats.NumIncorrect,
		AvgResponseMS: stats.AvgResponseMS,
		AvgSessionSec: stats.AvgSessionSec,
		TruePositive:  stats.Matrix.TP,
		FalsePositive: stats.Matrix.FP,
		TrueNegative:  stats.Matrix.TN,
		FalseNegative: stats.Matrix.FN,
		Sensitivity:   stats.Sensitivity,
		Specificity:   stats.Specificity,
		Accuracy:      stats.Accuracy,
		Precision:     stats.Precision,
		Recall:        stats.Recall,
		F1:            stats.F1,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
