package game

import (
	"math/rand"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

const (
	// BasePoints is awarded for any correct answer.
	BasePoints = 100
	// MaxTimeBonus caps the speed bonus so the fastest possible answer
	// is worth double the base award.
	MaxTimeBonus = 100

	// bonusDecayMs is how many milliseconds of latency cost one bonus point.
	bonusDecayMs = 20
)

// Score computes the points for a submission. Incorrect answers earn
// nothing; correct answers earn BasePoints plus a bonus that decays
// linearly with response latency, floored at zero. The result is always
// within [BasePoints, BasePoints+MaxTimeBonus] for correct answers and
// monotonically non-increasing in latency.
func Score(correct bool, latencyMs int) int {
	if !correct {
		return 0
	}
	if latencyMs < 0 {
		latencyMs = 0
	}
	bonus := MaxTimeBonus - latencyMs/bonusDecayMs
	if bonus < 0 {
		bonus = 0
	}
	return BasePoints + bonus
}

// ShuffleOptions returns a per-viewer display order for a question's
// options. Correctness is keyed by option ID, never by position, so the
// shuffle is purely cosmetic.
func ShuffleOptions(options []domain.Option, rnd *rand.Rand) []domain.Option {
	shuffled := make([]domain.Option, len(options))
	copy(shuffled, options)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
