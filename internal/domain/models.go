package domain

import "time"

// Status is the phase a live game is currently in.
type Status string

const (
	StatusWaiting     Status = "waiting"
	StatusQuestion    Status = "question"
	StatusResult      Status = "result"
	StatusLeaderboard Status = "leaderboard"
	StatusFinished    Status = "finished"
)

// Valid reports whether s is one of the known phases.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusQuestion, StatusResult, StatusLeaderboard, StatusFinished:
		return true
	}
	return false
}

// Option represents a possible answer for a question. The ID is a stable
// key; display order is shuffled per viewer and carries no meaning.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option,
// identified by key rather than position.
type Question struct {
	ID              string   `json:"id"`
	Position        int      `json:"position"` // 1-based ordinal within the game
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
}

// GameDefinition is the admin-authored content of a round. Immutable once
// the round begins.
type GameDefinition struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Questions   []Question `json:"questions"`
}

// LiveGameState is the single source of truth for a round's phase and
// timing. Exactly one exists per game once the round nears its start.
type LiveGameState struct {
	GameID           string    `json:"gameId"`
	Status           Status    `json:"status"`
	QuestionIndex    int       `json:"questionIndex"` // 0-based
	CountdownSeconds int       `json:"countdownSeconds"`
	UpdatedAt        time.Time `json:"updatedAt"`
	StartedAt        time.Time `json:"startedAt"`
}

// Remaining returns the seconds left in the current phase as of now,
// floored at zero.
func (s LiveGameState) Remaining(now time.Time) int {
	elapsed := int(now.Sub(s.UpdatedAt) / time.Second)
	if remaining := s.CountdownSeconds - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Expired reports whether the phase budget has elapsed as of now.
func (s LiveGameState) Expired(now time.Time) bool {
	return now.Sub(s.UpdatedAt) >= time.Duration(s.CountdownSeconds)*time.Second
}

// AnswerRecord is a user's scored answer for one question of a game.
// At most one exists per (game, user, question index); immutable once written.
type AnswerRecord struct {
	GameID        string    `json:"gameId"`
	UserID        string    `json:"userId"`
	QuestionIndex int       `json:"questionIndex"`
	OptionID      string    `json:"optionId"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	LatencyMs     int       `json:"latencyMs"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Outcome describes a user's most recent answered question, for UI feedback.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeNone      Outcome = "none"
)

// LeaderboardEntry is one ranked row of the scoreboard.
type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Points      int     `json:"points"`
	Rank        int     `json:"rank"` // 1-based
	LastOutcome Outcome `json:"lastOutcome"`
}

// Leaderboard captures the ordered scoreboard for a game.
type Leaderboard struct {
	GameID    string             `json:"gameId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Standing finds the entry for a user, if any.
func (l Leaderboard) Standing(userID string) (LeaderboardEntry, bool) {
	for _, e := range l.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return LeaderboardEntry{}, false
}

// AnswerSubmission models the scoring signal from clients. LatencyMs is
// the client-measured response time; the server clamps but trusts it only
// for the bonus, never for validity.
type AnswerSubmission struct {
	QuestionIndex int    `json:"questionIndex"`
	OptionID      string `json:"optionId"`
	LatencyMs     int    `json:"latencyMs"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
// CorrectOptionID lets the client render feedback without a second round-trip.
type AnswerResult struct {
	QuestionIndex   int    `json:"questionIndex"`
	Correct         bool   `json:"correct"`
	Points          int    `json:"points"`
	CorrectOptionID string `json:"correctOptionId"`
}

// GameResult is the per-user summary persisted once a game finishes.
// Saving is idempotent; only users with at least one answer get a row.
type GameResult struct {
	GameID        string `json:"gameId"`
	UserID        string `json:"userId"`
	Rank          int    `json:"rank"`
	CorrectCount  int    `json:"correctCount"`
	AnsweredCount int    `json:"answeredCount"`
}

// User identifies a participant as resolved by the auth collaborator.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
