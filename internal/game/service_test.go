package game_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/alejandrocid0/alagloria-sub001/internal/infra/memory"
)

var baseTime = time.Date(2026, 3, 29, 20, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *game.Service
	states  *memory.StateStore
	answers *memory.AnswerStore
	results *memory.ResultStore
	loader  *memory.StaticGameLoader
	games   *memory.GameRepository
	now     time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		states:  memory.NewStateStore(),
		answers: memory.NewAnswerStore(),
		results: memory.NewResultStore(),
		now:     baseTime,
	}
	f.loader = memory.NewStaticGameLoader(map[string]domain.GameDefinition{
		"g1": sampleGame(),
	})
	f.games = memory.NewGameRepository(f.loader, time.Minute)
	directory := memory.NewDirectory()
	directory.Put(domain.User{ID: "u1", DisplayName: "Alice"})
	directory.Put(domain.User{ID: "u2", DisplayName: "Bob"})

	f.svc = game.NewServiceWithClock(
		f.states,
		f.games,
		f.answers,
		f.results,
		directory,
		game.NewBroker(),
		game.DefaultDurations(),
		f.clock,
	)
	return f
}

func (f *fixture) seedState(t *testing.T, status domain.Status, index int) {
	t.Helper()
	err := f.states.Create(context.Background(), domain.LiveGameState{
		GameID:           "g1",
		Status:           status,
		QuestionIndex:    index,
		CountdownSeconds: 20,
		UpdatedAt:        f.now,
		StartedAt:        f.now,
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}
}

func sampleGame() domain.GameDefinition {
	questions := make([]domain.Question, 3)
	for i := range questions {
		questions[i] = domain.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			Position: i + 1,
			Prompt:   "¿Por dónde pasa la cofradía?",
			Options: []domain.Option{
				{ID: "a", Text: "Campana"},
				{ID: "b", Text: "Sierpes"},
				{ID: "c", Text: "Catedral"},
			},
			CorrectOptionID: "b",
		}
	}
	return domain.GameDefinition{
		ID:          "g1",
		Title:       "Madrugá",
		ScheduledAt: baseTime,
		Questions:   questions,
	}
}

func TestSubmitAnswerScoresAndReturnsCorrectOption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	result, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{
		QuestionIndex: 0,
		OptionID:      "b",
		LatencyMs:     1000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected correct answer")
	}
	if result.Points < 100 || result.Points > 150 {
		t.Fatalf("expected points in [100,150] at 1000ms, got %d", result.Points)
	}
	if result.CorrectOptionID != "b" {
		t.Fatalf("expected correct option id b, got %s", result.CorrectOptionID)
	}
}

func TestSubmitAnswerDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 1)

	sub := domain.AnswerSubmission{QuestionIndex: 1, OptionID: "b", LatencyMs: 500}
	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", sub); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", sub)
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}

	records, _ := f.answers.ListByGame(ctx, "g1")
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
}

func TestSubmitAnswerStaleQuestionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 2)

	_, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{
		QuestionIndex: 1,
		OptionID:      "b",
	})
	if !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected ErrQuestionNotActive, got %v", err)
	}
}

func TestSubmitAnswerOutsideQuestionPhase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusResult, 0)

	_, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b"})
	if !errors.Is(err, domain.ErrNotInQuestionPhase) {
		t.Fatalf("expected ErrNotInQuestionPhase, got %v", err)
	}
}

func TestSubmitAnswerUnknownOption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	_, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "z"})
	if !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
}

func TestLeaderboardOrdersByPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b", LatencyMs: 1500}); err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	f.now = f.now.Add(time.Second)
	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u2", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "a", LatencyMs: 500}); err != nil {
		t.Fatalf("submit u2: %v", err)
	}

	lb, err := f.svc.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	if lb.Entries[0].UserID != "u1" || lb.Entries[0].Rank != 1 {
		t.Fatalf("expected Alice leading, got %+v", lb.Entries[0])
	}
	if lb.Entries[0].DisplayName != "Alice" {
		t.Fatalf("expected display name Alice, got %s", lb.Entries[0].DisplayName)
	}
	if lb.Entries[1].Points != 0 || lb.Entries[1].LastOutcome != domain.OutcomeIncorrect {
		t.Fatalf("expected Bob with 0 points and incorrect outcome, got %+v", lb.Entries[1])
	}
}

func TestLeaderboardTiebreakByFirstAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	// Same latency means same points; the earlier submitter ranks higher.
	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u2", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b", LatencyMs: 800}); err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	f.now = f.now.Add(2 * time.Second)
	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b", LatencyMs: 800}); err != nil {
		t.Fatalf("submit u1: %v", err)
	}

	lb, err := f.svc.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Entries[0].UserID != "u2" {
		t.Fatalf("expected earlier answer to win the tie, got %+v", lb.Entries)
	}
}

func TestLeaderboardIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b", LatencyMs: 300}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := f.svc.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	second, err := f.svc.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !reflect.DeepEqual(first.Entries, second.Entries) {
		t.Fatalf("leaderboard changed with no new answers:\n%+v\n%+v", first.Entries, second.Entries)
	}
}

func TestStandingLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 0, OptionID: "b", LatencyMs: 100}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	entry, ok, err := f.svc.Standing(ctx, "g1", "u1")
	if err != nil || !ok {
		t.Fatalf("standing: ok=%v err=%v", ok, err)
	}
	if entry.Rank != 1 {
		t.Fatalf("expected rank 1, got %d", entry.Rank)
	}
	if _, ok, _ := f.svc.Standing(ctx, "g1", "u9"); ok {
		t.Fatalf("expected no standing for unknown user")
	}
}

func TestForceAdvanceRejectsPrematureFinish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 0)

	_, err := f.svc.ForceAdvance(ctx, "g1", domain.StatusFinished)
	var premature *game.PrematureFinishError
	if !errors.As(err, &premature) {
		t.Fatalf("expected PrematureFinishError, got %v", err)
	}
}

func TestForceAdvanceStepsThroughCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusWaiting, 0)

	state, err := f.svc.ForceAdvance(ctx, "g1", "")
	if err != nil {
		t.Fatalf("force advance: %v", err)
	}
	if state.Status != domain.StatusQuestion || state.QuestionIndex != 0 {
		t.Fatalf("expected first question, got %+v", state)
	}
	if state.CountdownSeconds != game.DefaultDurations().Question {
		t.Fatalf("expected question budget, got %d", state.CountdownSeconds)
	}
}

func TestFinishPersistsResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusQuestion, 2)

	if _, _, err := f.svc.SubmitAnswer(ctx, "g1", "u1", domain.AnswerSubmission{QuestionIndex: 2, OptionID: "b", LatencyMs: 400}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	state, _ := f.states.Get(ctx, "g1")
	if _, err := f.svc.AdvanceExpired(ctx, state); err != nil {
		t.Fatalf("advance to result: %v", err)
	}
	state, _ = f.states.Get(ctx, "g1")
	if _, err := f.svc.AdvanceExpired(ctx, state); err != nil {
		t.Fatalf("advance to leaderboard: %v", err)
	}
	state, _ = f.states.Get(ctx, "g1")
	if _, err := f.svc.AdvanceExpired(ctx, state); err != nil {
		t.Fatalf("advance to finished: %v", err)
	}

	state, _ = f.states.Get(ctx, "g1")
	if state.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", state.Status)
	}
	res, ok := f.results.Get("g1", "u1")
	if !ok {
		t.Fatalf("expected a saved result for u1")
	}
	if res.Rank != 1 || res.CorrectCount != 1 || res.AnsweredCount != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubscribeReceivesPhaseChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedState(t, domain.StatusWaiting, 0)

	events, cancel := f.svc.Subscribe("g1")
	defer cancel()

	if _, err := f.svc.ForceAdvance(ctx, "g1", ""); err != nil {
		t.Fatalf("force advance: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != domain.EventStateChanged {
			t.Fatalf("expected state change, got %s", ev.Kind)
		}
		if ev.State.Status != domain.StatusQuestion {
			t.Fatalf("expected question phase, got %s", ev.State.Status)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event received")
	}
}
