package domain

import "errors"

var (
	// ErrGameNotFound indicates the game definition could not be loaded.
	ErrGameNotFound = errors.New("game not found")
	// ErrStateNotFound is returned when a game has no live state yet.
	ErrStateNotFound = errors.New("live game state not found")
	// ErrGameFinished is returned when advancing a terminal game.
	ErrGameFinished = errors.New("game already finished")
	// ErrNotInQuestionPhase rejects answers submitted outside the question phase.
	ErrNotInQuestionPhase = errors.New("game is not in question phase")
	// ErrQuestionNotActive rejects answers for a question that has since advanced.
	ErrQuestionNotActive = errors.New("question no longer active")
	// ErrAlreadyAnswered is returned on a duplicate submission for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrStateConflict signals an optimistic-concurrency miss on a state write.
	ErrStateConflict = errors.New("live game state changed concurrently")
	// ErrStateExists is returned when initializing a game that already has live state.
	ErrStateExists = errors.New("live game state already exists")
)
