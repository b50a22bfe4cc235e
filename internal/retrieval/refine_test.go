package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	llmmocks "textbook-chatbot/internal/llm/mocks"
	"textbook-chatbot/internal/retrieval"
	"textbook-chatbot/internal/retrieval/mocks"
)

func newTestChain(retriever retrieval.Retriever, rewriter *llmmocks.MockCompletionClient) *retrieval.Chain {
	gate := retrieval.NewGate(0.45, 0.65)
	return retrieval.NewChain(retriever, gate, rewriter, "software engineering", 10)
}

func acceptedCandidates() []retrieval.Candidate {
	return []retrieval.Candidate{{ChunkID: "c1", Text: "a relevant passage", Distance: 0.2}}
}

func TestChainRejectsDegenerateQuestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Search expectations: validation must reject before any retrieval.
	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	tests := []struct {
		name     string
		question string
	}{
		{name: "empty", question: ""},
		{name: "whitespace only", question: "   \t  "},
		{name: "bare interrogative", question: "What?"},
		{name: "punctuation only", question: "?!?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chain.Run(context.Background(), tt.question)
			if !errors.Is(err, retrieval.ErrInvalidQuestion) {
				t.Fatalf("Run(%q) error = %v, want ErrInvalidQuestion", tt.question, err)
			}
		})
	}
}

func TestChainDirectStageSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	retriever.EXPECT().
		Search(gomock.Any(), "What is the waterfall model?", 10, 0.65).
		Return(acceptedCandidates(), nil)

	attempts, err := chain.Run(context.Background(), "  What is the waterfall model?  ")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("Run() made %d attempts, want 1", len(attempts))
	}
	if attempts[0].Stage != retrieval.StageDirect {
		t.Fatalf("attempt stage = %s, want %s", attempts[0].Stage, retrieval.StageDirect)
	}
	if !attempts[0].Found {
		t.Fatal("expected terminal attempt to be marked found")
	}
}

func TestChainFallsBackToAbbreviationExpansion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	gomock.InOrder(
		retriever.EXPECT().
			Search(gomock.Any(), "explain sdlc", 10, 0.65).
			Return(nil, nil),
		retriever.EXPECT().
			Search(gomock.Any(), "explain software development life cycle", 10, 0.65).
			Return(acceptedCandidates(), nil),
	)

	attempts, err := chain.Run(context.Background(), "explain sdlc")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("Run() made %d attempts, want 2", len(attempts))
	}
	if attempts[1].Stage != retrieval.StageAbbreviation {
		t.Fatalf("terminal stage = %s, want %s", attempts[1].Stage, retrieval.StageAbbreviation)
	}
}

func TestChainSanitizeStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	// No known acronyms, so the abbreviation stage is skipped and the
	// sanitized form goes straight after the direct attempt.
	gomock.InOrder(
		retriever.EXPECT().
			Search(gomock.Any(), "cohesion & coupling??", 10, 0.65).
			Return(nil, nil),
		retriever.EXPECT().
			Search(gomock.Any(), "cohesion coupling", 10, 0.65).
			Return(acceptedCandidates(), nil),
	)

	attempts, err := chain.Run(context.Background(), "cohesion & coupling??")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if attempts[len(attempts)-1].Stage != retrieval.StageSanitize {
		t.Fatalf("terminal stage = %s, want %s", attempts[len(attempts)-1].Stage, retrieval.StageSanitize)
	}
}

func TestChainRewriteStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	gomock.InOrder(
		retriever.EXPECT().
			Search(gomock.Any(), "topdown thing", 10, 0.65).
			Return(nil, nil),
		retriever.EXPECT().
			Search(gomock.Any(), "top down integration testing strategy", 10, 0.65).
			Return(acceptedCandidates(), nil),
	)
	rewriter.EXPECT().
		Complete(gomock.Any(), gomock.Any(), "topdown thing").
		Return("top down integration testing strategy", nil)

	attempts, err := chain.Run(context.Background(), "topdown thing")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	last := attempts[len(attempts)-1]
	if last.Stage != retrieval.StageRewrite {
		t.Fatalf("terminal stage = %s, want %s", last.Stage, retrieval.StageRewrite)
	}
	if last.Question != "top down integration testing strategy" {
		t.Fatalf("terminal question = %q, want rewritten form", last.Question)
	}
}

func TestChainRewriteSentinelExhausts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	retriever.EXPECT().
		Search(gomock.Any(), "best pizza toppings", 10, 0.65).
		Return(nil, nil)
	rewriter.EXPECT().
		Complete(gomock.Any(), gomock.Any(), "best pizza toppings").
		Return("NONE", nil)

	_, err := chain.Run(context.Background(), "best pizza toppings")
	if !errors.Is(err, retrieval.ErrNoRelevantContent) {
		t.Fatalf("Run() error = %v, want ErrNoRelevantContent", err)
	}
}

func TestChainRewriteFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	retriever.EXPECT().
		Search(gomock.Any(), "unanswerable mystery", 10, 0.65).
		Return(nil, nil)
	rewriter.EXPECT().
		Complete(gomock.Any(), gomock.Any(), "unanswerable mystery").
		Return("", errors.New("model offline"))

	_, err := chain.Run(context.Background(), "unanswerable mystery")
	if !errors.Is(err, retrieval.ErrNoRelevantContent) {
		t.Fatalf("Run() error = %v, want ErrNoRelevantContent after rewrite failure", err)
	}
}

func TestChainRetrievalFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	rewriter := llmmocks.NewMockCompletionClient(ctrl)
	chain := newTestChain(retriever, rewriter)

	retriever.EXPECT().
		Search(gomock.Any(), gomock.Any(), 10, 0.65).
		Return(nil, retrieval.ErrUnavailable)

	_, err := chain.Run(context.Background(), "What is the waterfall model?")
	if !errors.Is(err, retrieval.ErrUnavailable) {
		t.Fatalf("Run() error = %v, want ErrUnavailable", err)
	}
}
