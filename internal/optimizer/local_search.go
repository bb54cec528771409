package optimizer

import (
	"context"
	"math/rand"
	"time"
)

// LocalSearch is plain stochastic hill climbing: mutate, keep strict
// improvements, discard everything else. It doubles as the refinement stage
// the orchestrator runs on the ensemble winner.
type LocalSearch struct {
	Iterations int
}

func (a *LocalSearch) Name() string { return "Local Search" }

func (a *LocalSearch) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	current := pickSeed(p, seeds, rng)
	currentScore := p.Evaluator.Score(current)
	// A candidate may not be more broken than the seed it came from.
	baseViolations := current.CompositionViolations(p.Composition)
	mover := NewMover(p)

	for i := 0; i < a.Iterations; i++ {
		if i%cancelCheckStride == 0 && canceled(ctx) {
			break
		}
		stats.Iterations++

		candidate := current.Clone()
		if !mover.ApplyRandom(candidate, rng) {
			continue
		}
		score := p.Evaluator.Score(candidate)
		if score < currentScore && candidate.CompositionViolations(p.Composition) <= baseViolations {
			current, currentScore = candidate, score
			stats.Improvements++
		}
	}

	stats.BestScore = currentScore
	stats.DurationMs = time.Since(start).Milliseconds()
	return current, stats, nil
}
