package optimizer

import (
	"context"
	"math/rand"
)

// Algorithm is one search strategy. Solve must honor ctx cancellation by
// returning its best-so-far promptly, never an error for "ran out of time".
// Implementations receive their own rng and Problem copy and share nothing.
type Algorithm interface {
	Name() string
	Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error)
}

// Stats describes one algorithm run. Fields irrelevant to a given strategy
// stay zero and are omitted from JSON.
type Stats struct {
	Algorithm     string  `json:"algorithm"`
	Iterations    int     `json:"iterations"`
	Improvements  int     `json:"improvements"`
	AcceptedWorse int     `json:"accepted_worse,omitempty"`
	Restarts      int     `json:"restarts,omitempty"`
	Backtracks    int     `json:"backtracks,omitempty"`
	FellBack      bool    `json:"fell_back,omitempty"`
	BestScore     float64 `json:"best_score"`
	DurationMs    int64   `json:"duration_ms"`
}

// cancelCheckStride spaces out ctx polls in tight loops.
const cancelCheckStride = 128

func canceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// pickSeed clones one of the provided seeds at random, or builds a greedy
// solution when the caller supplied none.
func pickSeed(p *Problem, seeds []*Solution, rng *rand.Rand) *Solution {
	if len(seeds) == 0 {
		g := &GreedyGenerator{}
		return g.Generate(p, rng)
	}
	return seeds[rng.Intn(len(seeds))].Clone()
}

// averagePoolRating is the mean rating across every (player, eligible role)
// pair. Construction heuristics use it as the balance target.
func averagePoolRating(p *Problem) float64 {
	var sum float64
	var n int
	for _, role := range p.ActiveRoles() {
		for _, pl := range p.Pools[role] {
			sum += pl.Rating(role)
			n++
		}
	}
	if n == 0 {
		return DefaultRating
	}
	return sum / float64(n)
}
