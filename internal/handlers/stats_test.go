package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"textbook-chatbot/internal/handlers"
	"textbook-chatbot/internal/storage"
	storagemocks "textbook-chatbot/internal/storage/mocks"
)

func TestStatsHandlerReturnsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sensitivity := 0.75
	conversations := storagemocks.NewMockConversationStore(ctrl)
	conversations.EXPECT().Statistics(gomock.Any()).Return(&storage.Statistics{
		NumQuestions:  10,
		NumCorrect:    6,
		NumIncorrect:  2,
		AvgResponseMS: 150.5,
		Matrix:        storage.ConfusionMatrix{TP: 3, FP: 1, TN: 3, FN: 1},
		Sensitivity:   &sensitivity,
	}, nil)

	handler := handlers.NewStatsHandler(conversations)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp handlers.StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.NumQuestions != 10 || resp.TruePositive != 3 || resp.FalseNegative != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Sensitivity == nil || *resp.Sensitivity != 0.75 {
		t.Fatalf("Sensitivity = %v, want 0.75", resp.Sensitivity)
	}
	if resp.Specificity != nil {
		t.Fatal("Specificity should stay null when unset")
	}
}

func TestStatsHandlerStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conversations := storagemocks.NewMockConversationStore(ctrl)
	conversations.EXPECT().Statistics(gomock.Any()).Return(nil, errors.New("db locked"))

	handler := handlers.NewStatsHandler(conversations)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
