package game

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// minWaitingBudget floors the initial countdown so a game scheduled in
// the immediate past still gets a visible waiting window.
const minWaitingBudget = 5

// Clock is the periodic scheduler that advances games whose countdowns
// have elapsed. It runs independently of any client connection: games
// keep moving with zero clients attached.
type Clock struct {
	states    StateStore
	games     GameRepository
	svc       *Service
	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time
}

func NewClock(states StateStore, games GameRepository, svc *Service, interval, lookahead time.Duration) *Clock {
	return NewClockWithTime(states, games, svc, interval, lookahead, time.Now)
}

// NewClockWithTime allows deterministic sweeps in tests.
func NewClockWithTime(states StateStore, games GameRepository, svc *Service, interval, lookahead time.Duration, now func() time.Time) *Clock {
	return &Clock{
		states:    states,
		games:     games,
		svc:       svc,
		interval:  interval,
		lookahead: lookahead,
		now:       now,
	}
}

// Run sweeps on a fixed interval until ctx is canceled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Printf("game clock running every %s (lookahead %s)", c.interval, c.lookahead)
	for {
		select {
		case <-ctx.Done():
			log.Printf("game clock stopped")
			return
		case <-ticker.C:
			c.Tick(ctx, c.now())
		}
	}
}

// Tick performs one scheduler sweep: initialize live state for games
// nearing their start, then advance every expired game. Each game is
// processed independently; one failure never blocks the rest.
func (c *Clock) Tick(ctx context.Context, now time.Time) {
	c.initUpcoming(ctx, now)
	c.advanceExpired(ctx, now)
}

// initUpcoming creates a waiting state for each definition scheduled to
// start within the lookahead window that has none yet. The countdown is
// the time left until the scheduled start, floored at minWaitingBudget.
func (c *Clock) initUpcoming(ctx context.Context, now time.Time) {
	upcoming, err := c.games.ListUpcoming(ctx, now, now.Add(c.lookahead))
	if err != nil {
		log.Printf("clock: list upcoming games: %v", err)
		return
	}

	for _, def := range upcoming {
		if _, err := c.states.Get(ctx, def.ID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrStateNotFound) {
			log.Printf("clock: check state for game %s: %v", def.ID, err)
			continue
		}

		budget := int(def.ScheduledAt.Sub(now) / time.Second)
		if budget < minWaitingBudget {
			budget = minWaitingBudget
		}
		state := domain.LiveGameState{
			GameID:           def.ID,
			Status:           domain.StatusWaiting,
			QuestionIndex:    0,
			CountdownSeconds: budget,
			UpdatedAt:        now,
			StartedAt:        now,
		}
		err := c.states.Create(ctx, state)
		if errors.Is(err, domain.ErrStateExists) {
			continue
		}
		if err != nil {
			log.Printf("clock: init state for game %s: %v", def.ID, err)
			continue
		}
		log.Printf("clock: game %s waiting, starts in %ds", def.ID, budget)
	}
}

// advanceExpired moves every expired, unfinished game one phase forward.
// A waiting game whose countdown ran out before its wall-clock scheduled
// time is re-armed instead of started: the budget is a best-effort
// estimate, the scheduled time is authoritative.
func (c *Clock) advanceExpired(ctx context.Context, now time.Time) {
	states, err := c.states.ListUnfinished(ctx)
	if err != nil {
		log.Printf("clock: list unfinished games: %v", err)
		return
	}

	for _, state := range states {
		if !state.Expired(now) {
			continue
		}

		if state.Status == domain.StatusWaiting {
			def, err := c.games.GetGame(ctx, state.GameID)
			if err != nil {
				log.Printf("clock: load game %s: %v", state.GameID, err)
				continue
			}
			if def.ScheduledAt.After(now) {
				c.rearmWaiting(ctx, state, def.ScheduledAt, now)
				continue
			}
		}

		advanced, err := c.svc.AdvanceExpired(ctx, state)
		if err != nil {
			log.Printf("clock: advance game %s: %v", state.GameID, err)
			continue
		}
		if advanced {
			log.Printf("clock: game %s advanced from %s", state.GameID, state.Status)
		}
	}
}

// rearmWaiting stretches a waiting countdown out to the real start time
// so clients see an accurate remainder.
func (c *Clock) rearmWaiting(ctx context.Context, state domain.LiveGameState, scheduledAt, now time.Time) {
	next := state
	next.CountdownSeconds = int(scheduledAt.Sub(now)/time.Second) + 1
	next.UpdatedAt = now
	err := c.states.Update(ctx, next, state.UpdatedAt)
	if err != nil && !errors.Is(err, domain.ErrStateConflict) {
		log.Printf("clock: re-arm waiting game %s: %v", state.GameID, err)
	}
}
