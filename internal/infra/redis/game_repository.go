package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// GameRepository caches game definitions in Redis (JSON per game) and
// falls back to a loader on cache miss. Definitions are stored as:
// SET game:{gameID}:def {json}
//
// Question counts and schedule listings always go to the loader so the
// scheduler observes admin edits and freshly created games.
type GameRepository struct {
	client *redis.Client
	loader memory.GameLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewGameRepository(client *redis.Client, loader memory.GameLoader, ttl time.Duration) *GameRepository {
	return &GameRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (domain.GameDefinition, error) {
	key := r.defKey(gameID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var def domain.GameDefinition
		if err := json.Unmarshal(raw, &def); err == nil {
			return def, nil
		}
		// Corrupt cache entry: fall through and rebuild it.
	}

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var def domain.GameDefinition
			if err := json.Unmarshal(raw, &def); err == nil {
				return def, nil
			}
		}

		def, err := r.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.GameDefinition{}, err
		}

		if raw, err := json.Marshal(def); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return domain.GameDefinition{}, err
	}
	return result.(domain.GameDefinition), nil
}

func (r *GameRepository) CountQuestions(ctx context.Context, gameID string) (int, error) {
	def, err := r.loader.LoadGame(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return len(def.Questions), nil
}

func (r *GameRepository) ListUpcoming(ctx context.Context, from, until time.Time) ([]domain.GameDefinition, error) {
	return r.loader.ListScheduled(ctx, from, until)
}

func (r *GameRepository) defKey(gameID string) string {
	return "game:" + gameID + ":def"
}

func (r *GameRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
