package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// Service contains the live-game use cases: answer submission, phase
// queries, leaderboard aggregation, and administrative force transitions.
type Service struct {
	states    StateStore
	games     GameRepository
	answers   AnswerStore
	results   ResultStore
	users     UserDirectory
	broker    *Broker
	durations Durations
	now       func() time.Time
}

func NewService(states StateStore, games GameRepository, answers AnswerStore, results ResultStore, users UserDirectory, broker *Broker, durations Durations) *Service {
	return NewServiceWithClock(states, games, answers, results, users, broker, durations, time.Now)
}

// NewServiceWithClock allows deterministic timestamps in tests.
func NewServiceWithClock(states StateStore, games GameRepository, answers AnswerStore, results ResultStore, users UserDirectory, broker *Broker, durations Durations, now func() time.Time) *Service {
	return &Service{
		states:    states,
		games:     games,
		answers:   answers,
		results:   results,
		users:     users,
		broker:    broker,
		durations: durations,
		now:       now,
	}
}

// PhaseView is the client-facing snapshot of a game's current phase.
// UpdatedAt and ServerNow let clients reconcile their local countdown
// against server time instead of restarting a full countdown.
type PhaseView struct {
	Status           domain.Status `json:"status"`
	QuestionIndex    int           `json:"questionIndex"`
	SecondsRemaining int           `json:"secondsRemaining"`
	CountdownSeconds int           `json:"countdownSeconds"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	ServerNow        time.Time     `json:"serverNow"`
}

// Phase returns the current phase of a game with server-computed
// remaining time.
func (s *Service) Phase(ctx context.Context, gameID string) (PhaseView, error) {
	state, err := s.states.Get(ctx, gameID)
	if err != nil {
		return PhaseView{}, err
	}
	now := s.now()
	return PhaseView{
		Status:           state.Status,
		QuestionIndex:    state.QuestionIndex,
		SecondsRemaining: state.Remaining(now),
		CountdownSeconds: state.CountdownSeconds,
		UpdatedAt:        state.UpdatedAt,
		ServerNow:        now,
	}, nil
}

// CurrentQuestion returns the active question when the game is in the
// question phase. ok is false in any other phase.
func (s *Service) CurrentQuestion(ctx context.Context, gameID string) (domain.Question, bool, error) {
	state, err := s.states.Get(ctx, gameID)
	if err != nil {
		return domain.Question{}, false, err
	}
	if state.Status != domain.StatusQuestion {
		return domain.Question{}, false, nil
	}
	def, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Question{}, false, err
	}
	if state.QuestionIndex < 0 || state.QuestionIndex >= len(def.Questions) {
		return domain.Question{}, false, fmt.Errorf("question index %d out of range for game %s", state.QuestionIndex, gameID)
	}
	return def.Questions[state.QuestionIndex], true, nil
}

// SubmitAnswer validates, scores, and records one answer. The submission
// must target the currently active question while the game is in the
// question phase; duplicates map to domain.ErrAlreadyAnswered at the
// storage uniqueness boundary.
func (s *Service) SubmitAnswer(ctx context.Context, gameID, userID string, sub domain.AnswerSubmission) (domain.AnswerResult, domain.Leaderboard, error) {
	state, err := s.states.Get(ctx, gameID)
	if err != nil {
		return domain.AnswerResult{}, domain.Leaderboard{}, err
	}
	if state.Status != domain.StatusQuestion {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrNotInQuestionPhase
	}
	if sub.QuestionIndex != state.QuestionIndex {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrQuestionNotActive
	}

	def, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.AnswerResult{}, domain.Leaderboard{}, err
	}
	if state.QuestionIndex >= len(def.Questions) {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrQuestionNotActive
	}
	question := def.Questions[state.QuestionIndex]

	if !hasOption(question, sub.OptionID) {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrOptionNotFound
	}

	correct := sub.OptionID == question.CorrectOptionID
	points := Score(correct, sub.LatencyMs)
	latency := sub.LatencyMs
	if latency < 0 {
		latency = 0
	}

	rec := domain.AnswerRecord{
		GameID:        gameID,
		UserID:        userID,
		QuestionIndex: sub.QuestionIndex,
		OptionID:      sub.OptionID,
		Correct:       correct,
		Points:        points,
		LatencyMs:     latency,
		CreatedAt:     s.now(),
	}
	if err := s.answers.Insert(ctx, rec); err != nil {
		return domain.AnswerResult{}, domain.Leaderboard{}, err
	}

	s.broker.Publish(domain.ChangeEvent{
		Kind:       domain.EventAnswerInserted,
		GameID:     gameID,
		OccurredAt: rec.CreatedAt,
		Answer:     &rec,
	})

	lb, err := s.Leaderboard(ctx, gameID)
	if err != nil {
		// The answer is safely recorded; the board refresh is retried on
		// the next submission or pull.
		log.Printf("leaderboard refresh for game %s: %v", gameID, err)
		lb = domain.Leaderboard{GameID: gameID, UpdatedAt: rec.CreatedAt}
	} else {
		s.broker.Publish(domain.ChangeEvent{
			Kind:        domain.EventLeaderboardUpdated,
			GameID:      gameID,
			OccurredAt:  lb.UpdatedAt,
			Leaderboard: &lb,
		})
	}

	return domain.AnswerResult{
		QuestionIndex:   sub.QuestionIndex,
		Correct:         correct,
		Points:          points,
		CorrectOptionID: question.CorrectOptionID,
	}, lb, nil
}

// Leaderboard aggregates all answers of a game into a ranked board:
// points descending, ties broken by earliest first answer, then user ID.
func (s *Service) Leaderboard(ctx context.Context, gameID string) (domain.Leaderboard, error) {
	records, err := s.answers.ListByGame(ctx, gameID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	type tally struct {
		points      int
		correct     int
		answered    int
		firstAnswer time.Time
		lastAnswer  time.Time
		lastCorrect bool
	}
	totals := make(map[string]*tally)
	order := make([]string, 0)
	for _, rec := range records {
		t, ok := totals[rec.UserID]
		if !ok {
			t = &tally{firstAnswer: rec.CreatedAt}
			totals[rec.UserID] = t
			order = append(order, rec.UserID)
		}
		t.points += rec.Points
		t.answered++
		if rec.Correct {
			t.correct++
		}
		if rec.CreatedAt.Before(t.firstAnswer) {
			t.firstAnswer = rec.CreatedAt
		}
		if !rec.CreatedAt.Before(t.lastAnswer) {
			t.lastAnswer = rec.CreatedAt
			t.lastCorrect = rec.Correct
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		ti, tj := totals[order[i]], totals[order[j]]
		if ti.points != tj.points {
			return ti.points > tj.points
		}
		if !ti.firstAnswer.Equal(tj.firstAnswer) {
			return ti.firstAnswer.Before(tj.firstAnswer)
		}
		return order[i] < order[j]
	})

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for rank, userID := range order {
		t := totals[userID]
		outcome := domain.OutcomeIncorrect
		if t.lastCorrect {
			outcome = domain.OutcomeCorrect
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			DisplayName: s.displayName(ctx, userID),
			Points:      t.points,
			Rank:        rank + 1,
			LastOutcome: outcome,
		})
	}

	return domain.Leaderboard{GameID: gameID, Entries: entries, UpdatedAt: s.now()}, nil
}

// Standing returns one user's row of the leaderboard.
func (s *Service) Standing(ctx context.Context, gameID, userID string) (domain.LeaderboardEntry, bool, error) {
	lb, err := s.Leaderboard(ctx, gameID)
	if err != nil {
		return domain.LeaderboardEntry{}, false, err
	}
	entry, ok := lb.Standing(userID)
	return entry, ok, nil
}

// Subscribe returns a channel receiving change events for a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Service) Subscribe(gameID string) (<-chan domain.ChangeEvent, func()) {
	return s.broker.Subscribe(gameID)
}

// AdvanceExpired moves a game whose countdown has elapsed to its next
// phase. The write is conditioned on the state observed by the caller; a
// concurrent advance loses the race silently and reports advanced=false.
func (s *Service) AdvanceExpired(ctx context.Context, state domain.LiveGameState) (bool, error) {
	total, err := s.games.CountQuestions(ctx, state.GameID)
	if err != nil {
		return false, err
	}
	tr, err := Advance(state.Status, state.QuestionIndex, total, s.durations)
	if errors.Is(err, domain.ErrGameFinished) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.applyTransition(ctx, state, tr)
}

// ForceAdvance is the administrative override. An empty target advances
// one step through the normal cycle regardless of the countdown; an
// explicit target sets the phase directly, except that finishing is
// rejected while questions remain unpresented.
func (s *Service) ForceAdvance(ctx context.Context, gameID string, target domain.Status) (domain.LiveGameState, error) {
	state, err := s.states.Get(ctx, gameID)
	if err != nil {
		return domain.LiveGameState{}, err
	}
	total, err := s.games.CountQuestions(ctx, gameID)
	if err != nil {
		return domain.LiveGameState{}, err
	}

	var tr Transition
	if target == "" {
		tr, err = Advance(state.Status, state.QuestionIndex, total, s.durations)
		if err != nil {
			return domain.LiveGameState{}, err
		}
	} else {
		if err := CheckForceTarget(target, state.QuestionIndex, total); err != nil {
			return domain.LiveGameState{}, err
		}
		tr = Transition{
			Status:           target,
			QuestionIndex:    state.QuestionIndex,
			CountdownSeconds: budgetFor(target, s.durations),
		}
	}

	if _, err := s.applyTransition(ctx, state, tr); err != nil {
		return domain.LiveGameState{}, err
	}
	return s.states.Get(ctx, gameID)
}

// applyTransition writes the next state with optimistic concurrency,
// publishes the change, and finalizes results when the game finishes.
func (s *Service) applyTransition(ctx context.Context, prev domain.LiveGameState, tr Transition) (bool, error) {
	next := prev
	next.Status = tr.Status
	next.QuestionIndex = tr.QuestionIndex
	next.CountdownSeconds = tr.CountdownSeconds
	next.UpdatedAt = s.now()

	err := s.states.Update(ctx, next, prev.UpdatedAt)
	if errors.Is(err, domain.ErrStateConflict) {
		// Another scheduler advanced first; exactly one transition happened.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.broker.Publish(domain.ChangeEvent{
		Kind:       domain.EventStateChanged,
		GameID:     next.GameID,
		OccurredAt: next.UpdatedAt,
		State:      &next,
	})

	if next.Status == domain.StatusFinished {
		s.finalize(ctx, next.GameID)
	}
	return true, nil
}

// finalize persists one GameResult per user who answered at least once.
// Saves are idempotent, so a re-run after a partial failure is safe.
func (s *Service) finalize(ctx context.Context, gameID string) {
	records, err := s.answers.ListByGame(ctx, gameID)
	if err != nil {
		log.Printf("finalize game %s: list answers: %v", gameID, err)
		return
	}
	lb, err := s.Leaderboard(ctx, gameID)
	if err != nil {
		log.Printf("finalize game %s: leaderboard: %v", gameID, err)
		return
	}

	correct := make(map[string]int)
	answered := make(map[string]int)
	for _, rec := range records {
		answered[rec.UserID]++
		if rec.Correct {
			correct[rec.UserID]++
		}
	}

	for _, entry := range lb.Entries {
		res := domain.GameResult{
			GameID:        gameID,
			UserID:        entry.UserID,
			Rank:          entry.Rank,
			CorrectCount:  correct[entry.UserID],
			AnsweredCount: answered[entry.UserID],
		}
		if err := s.results.Save(ctx, res); err != nil {
			log.Printf("finalize game %s: save result for %s: %v", gameID, entry.UserID, err)
		}
	}
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	if s.users == nil {
		return userID
	}
	user, err := s.users.Lookup(ctx, userID)
	if err != nil || user.DisplayName == "" {
		return userID
	}
	return user.DisplayName
}

func hasOption(q domain.Question, optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
