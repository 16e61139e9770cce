package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGameRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		GameLoader: memory.NewStaticGameLoader(map[string]domain.GameDefinition{
			"gloria-1": sampleGame(),
		}),
	}
	repo := NewGameRepository(client, loader, time.Minute)

	def, err := repo.GetGame(context.Background(), "gloria-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if def.ID != "gloria-1" || len(def.Questions) != 1 {
		t.Fatalf("unexpected definition %+v", def)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit the Redis cache, loader not incremented.
	_, _ = repo.GetGame(context.Background(), "gloria-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	if !mr.Exists("game:gloria-1:def") {
		t.Fatalf("expected cached definition key")
	}
}

func TestGameRepositoryRebuildsCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	if err := mr.Set("game:gloria-1:def", "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	loader := &countingLoader{
		GameLoader: memory.NewStaticGameLoader(map[string]domain.GameDefinition{
			"gloria-1": sampleGame(),
		}),
	}
	repo := NewGameRepository(client, loader, time.Minute)

	def, err := repo.GetGame(context.Background(), "gloria-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if def.ID != "gloria-1" {
		t.Fatalf("unexpected definition %+v", def)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls)
	}
}

func TestGameRepositoryCountQuestionsGoesToLoader(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		GameLoader: memory.NewStaticGameLoader(map[string]domain.GameDefinition{
			"gloria-1": sampleGame(),
		}),
	}
	repo := NewGameRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetGame(context.Background(), "gloria-1"); err != nil {
		t.Fatalf("get game: %v", err)
	}
	n, err := repo.CountQuestions(context.Background(), "gloria-1")
	if err != nil || n != 1 {
		t.Fatalf("count: n=%d err=%v", n, err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected count to bypass cache, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.GameLoader
	calls int
}

func (l *countingLoader) LoadGame(ctx context.Context, gameID string) (domain.GameDefinition, error) {
	l.calls++
	return l.GameLoader.LoadGame(ctx, gameID)
}

func sampleGame() domain.GameDefinition {
	return domain.GameDefinition{
		ID:          "gloria-1",
		Title:       "Madrugá",
		ScheduledAt: time.Date(2026, 3, 29, 20, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{
				ID:       "q1",
				Position: 1,
				Prompt:   "¿Qué hermandad sale de San Lorenzo?",
				Options: []domain.Option{
					{ID: "o1", Text: "El Gran Poder"},
					{ID: "o2", Text: "La Macarena"},
				},
				CorrectOptionID: "o1",
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
