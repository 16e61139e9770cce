package domain

import "time"

// EventKind discriminates the closed set of change events pushed to clients.
type EventKind string

const (
	EventStateChanged       EventKind = "stateChanged"
	EventAnswerInserted     EventKind = "answerInserted"
	EventLeaderboardUpdated EventKind = "leaderboardUpdated"
)

// ChangeEvent is a tagged union over the record shapes clients observe.
// Exactly one of State, Answer, or Leaderboard is set, matching Kind.
type ChangeEvent struct {
	Kind        EventKind      `json:"kind"`
	GameID      string         `json:"gameId"`
	OccurredAt  time.Time      `json:"occurredAt"`
	State       *LiveGameState `json:"state,omitempty"`
	Answer      *AnswerRecord  `json:"answer,omitempty"`
	Leaderboard *Leaderboard   `json:"leaderboard,omitempty"`
}

// Validate checks that the payload matches the declared kind.
func (e ChangeEvent) Validate() bool {
	switch e.Kind {
	case EventStateChanged:
		return e.State != nil && e.Answer == nil && e.Leaderboard == nil
	case EventAnswerInserted:
		return e.Answer != nil && e.State == nil && e.Leaderboard == nil
	case EventLeaderboardUpdated:
		return e.Leaderboard != nil && e.State == nil && e.Answer == nil
	}
	return false
}
