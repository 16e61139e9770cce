package game

import (
	"fmt"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// Transition is the outcome of advancing a live game by one phase.
type Transition struct {
	Status           domain.Status
	QuestionIndex    int
	CountdownSeconds int
}

// Advance maps the current phase to the next one. It is a pure function;
// callers fetch totalQuestions fresh on every call since admin edits can
// change it between phases. Advancing a finished game returns
// domain.ErrGameFinished.
//
// The cycle is waiting -> question -> result -> leaderboard, then back to
// question while questions remain, otherwise finished. No backward
// transitions exist.
func Advance(current domain.Status, questionIndex, totalQuestions int, d Durations) (Transition, error) {
	switch current {
	case domain.StatusWaiting:
		if totalQuestions == 0 {
			return Transition{Status: domain.StatusFinished, QuestionIndex: 0}, nil
		}
		return Transition{Status: domain.StatusQuestion, QuestionIndex: 0, CountdownSeconds: d.Question}, nil
	case domain.StatusQuestion:
		return Transition{Status: domain.StatusResult, QuestionIndex: questionIndex, CountdownSeconds: d.Result}, nil
	case domain.StatusResult:
		return Transition{Status: domain.StatusLeaderboard, QuestionIndex: questionIndex, CountdownSeconds: d.Leaderboard}, nil
	case domain.StatusLeaderboard:
		if questionIndex+1 < totalQuestions {
			return Transition{Status: domain.StatusQuestion, QuestionIndex: questionIndex + 1, CountdownSeconds: d.Question}, nil
		}
		return Transition{Status: domain.StatusFinished, QuestionIndex: questionIndex}, nil
	case domain.StatusFinished:
		return Transition{}, domain.ErrGameFinished
	}
	return Transition{}, fmt.Errorf("unknown status %q", current)
}

// PrematureFinishError rejects forcing a game to finished before every
// question has been presented; finishing early would corrupt final results.
type PrematureFinishError struct {
	Remaining int
}

func (e *PrematureFinishError) Error() string {
	return fmt.Sprintf("cannot force finish: %d question(s) not yet presented", e.Remaining)
}

// CheckForceTarget validates an administrative force-transition target.
func CheckForceTarget(target domain.Status, questionIndex, totalQuestions int) error {
	if !target.Valid() {
		return fmt.Errorf("unknown status %q", target)
	}
	if target == domain.StatusFinished && questionIndex < totalQuestions-1 {
		return &PrematureFinishError{Remaining: totalQuestions - 1 - questionIndex}
	}
	return nil
}

// budgetFor returns the countdown budget a forced phase should carry.
func budgetFor(status domain.Status, d Durations) int {
	switch status {
	case domain.StatusQuestion:
		return d.Question
	case domain.StatusResult:
		return d.Result
	case domain.StatusLeaderboard:
		return d.Leaderboard
	}
	return 0
}
