package memory

import (
	"context"
	"testing"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

func TestResultStoreKeepsFirstWrite(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	first := domain.GameResult{GameID: "g1", UserID: "u1", Rank: 1, CorrectCount: 3, AnsweredCount: 3}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A finalize re-run must not clobber the recorded rank.
	second := first
	second.Rank = 7
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, ok := store.Get("g1", "u1")
	if !ok || got.Rank != 1 {
		t.Fatalf("expected first write kept, got %+v ok=%v", got, ok)
	}
}
