package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"golang.org/x/sync/singleflight"
)

// GameLoader fetches game definitions from a backing store (e.g., Postgres).
type GameLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.GameDefinition, error)
	ListScheduled(ctx context.Context, from, until time.Time) ([]domain.GameDefinition, error)
}

// GameRepository caches definitions with TTL to avoid repeated DB hits.
// Schedule listings bypass the cache: the lookahead scan must see fresh
// admin-created games.
type GameRepository struct {
	loader GameLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedGame
}

type cachedGame struct {
	def       domain.GameDefinition
	expiresAt time.Time
}

func NewGameRepository(loader GameLoader, ttl time.Duration) *GameRepository {
	return &GameRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedGame),
	}
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (domain.GameDefinition, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[gameID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.def, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[gameID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.def, nil
		}
		r.mu.RUnlock()

		def, err := r.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.GameDefinition{}, err
		}

		r.mu.Lock()
		r.cache[gameID] = cachedGame{
			def:       def,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.GameDefinition{}, err
	}
	return result.(domain.GameDefinition), nil
}

// CountQuestions is always served from the loader-backed definition so
// admin edits between phases are observed.
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

func (r *GameRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticGameLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticGameLoader struct {
	mu    sync.RWMutex
	games map[string]domain.GameDefinition
}

func NewStaticGameLoader(games map[string]domain.GameDefinition) *StaticGameLoader {
	if games == nil {
		games = make(map[string]domain.GameDefinition)
	}
	return &StaticGameLoader{games: games}
}

func (l *StaticGameLoader) LoadGame(_ context.Context, gameID string) (domain.GameDefinition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if def, ok := l.games[gameID]; ok {
		return def, nil
	}
	return domain.GameDefinition{}, domain.ErrGameNotFound
}

func (l *StaticGameLoader) ListScheduled(_ context.Context, from, until time.Time) ([]domain.GameDefinition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	defs := make([]domain.GameDefinition, 0)
	for _, def := range l.games {
		if !def.ScheduledAt.Before(from) && def.ScheduledAt.Before(until) {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ScheduledAt.Before(defs[j].ScheduledAt) })
	return defs, nil
}

// Put adds or replaces a definition; admin tooling and tests use it.
func (l *StaticGameLoader) Put(def domain.GameDefinition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.games[def.ID] = def
}
