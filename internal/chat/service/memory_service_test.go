package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/chat/service"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
)

func newMemory(store *fakeStore, cache *fakeCache, llm *fakeLLM) *service.MemoryService {
	return service.NewMemoryService(store, store, cache, llm, observability.NewMetrics(), zap.NewNop())
}

func seedConversation(t *testing.T, store *fakeStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := store.AppendMessage(context.Background(), &chatdomain.Message{UserID: "u1", Role: role, Content: "I wear size M"}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRefresh_WritesStoreThenCache(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	store.summaries["u1"] = &chatdomain.MemorySummary{UserID: "u1", Summary: "- prefers navy", MessageCount: 2}
	seedConversation(t, store, 6)
	llm := &fakeLLM{reply: "- prefers navy\n- size M\n"}

	if err := newMemory(store, cache, llm).Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := store.summaries["u1"]
	if got.Summary != "- prefers navy\n- size M" || got.MessageCount != 6 {
		t.Errorf("unexpected stored summary %+v", got)
	}
	if cache.data["u1"] != got.Summary {
		t.Error("expected the cache updated")
	}
	prompt := llm.reqs[0].Prompt
	if !strings.Contains(prompt, "Previous notes:\n- prefers navy") || !strings.Contains(prompt, "Client: I wear size M") {
		t.Errorf("prompt must seed the previous summary and the transcript, got %q", prompt)
	}
}

func TestRefresh_LLMFailureKeepsPrevious(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	store.summaries["u1"] = &chatdomain.MemorySummary{UserID: "u1", Summary: "- old notes", MessageCount: 2}
	seedConversation(t, store, 4)

	for _, llm := range []*fakeLLM{{err: errors.New("timeout")}, {reply: "   "}} {
		err := newMemory(store, cache, llm).Refresh(context.Background(), "u1")
		if err == nil {
			t.Fatal("expected an error so the job is retried")
		}
		if store.summaries["u1"].Summary != "- old notes" {
			t.Error("previous summary must be kept")
		}
		if cache.sets != 0 {
			t.Error("cache must not be touched")
		}
	}
}

func TestRefresh_NoMessages(t *testing.T) {
	store, llm := newFakeStore(), &fakeLLM{}
	if err := newMemory(store, newFakeCache(), llm).Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(llm.reqs) != 0 {
		t.Error("nothing to summarize, model must not be called")
	}
}
