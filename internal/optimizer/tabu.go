package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// TabuSearch samples a neighborhood each iteration, moves to the best
// non-tabu candidate even when it is worse, and remembers visited solutions
// by hash for Tenure iterations. Aspiration lets a tabu candidate through
// when it beats the global best. Stagnation triggers a diversification kick,
// and the whole walk restarts from a fresh seed a few times per Solve.
type TabuSearch struct {
	Iterations     int
	Tenure         int
	Neighbors      int
	Restarts       int
	DiversifyAfter int
}

// diversifyKicks is how many cross-team reorders one diversification applies.
const diversifyKicks = 3

func (a *TabuSearch) Name() string { return "Tabu Search" }

func (a *TabuSearch) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	restarts := a.Restarts
	if restarts < 1 {
		restarts = 1
	}

	mover := NewMover(p)
	var best *Solution
	bestScore := math.Inf(1)

	for r := 0; r < restarts; r++ {
		if canceled(ctx) {
			break
		}
		if r > 0 {
			stats.Restarts++
		}

		current := pickSeed(p, seeds, rng)
		baseViolations := current.CompositionViolations(p.Composition)
		if score := p.Evaluator.Score(current); best == nil || score < bestScore {
			best = current.Clone()
			bestScore = score
		}

		tabu := make(map[string]int)
		stagnation := 0

		for i := 0; i < a.Iterations; i++ {
			if i%cancelCheckStride == 0 && canceled(ctx) {
				break
			}
			stats.Iterations++

			var bestCand *Solution
			bestCandScore := math.Inf(1)
			for k := 0; k < a.Neighbors; k++ {
				candidate := current.Clone()
				if !mover.ApplyRandom(candidate, rng) {
					continue
				}
				score := p.Evaluator.Score(candidate)
				if expiry, isTabu := tabu[candidate.Hash()]; isTabu && i < expiry && score >= bestScore {
					continue
				}
				if score < bestCandScore {
					bestCand, bestCandScore = candidate, score
				}
			}
			if bestCand == nil {
				stagnation++
				continue
			}

			tabu[current.Hash()] = i + a.Tenure
			current = bestCand

			if bestCandScore < bestScore && current.CompositionViolations(p.Composition) <= baseViolations {
				best = current.Clone()
				bestScore = bestCandScore
				stats.Improvements++
				stagnation = 0
			} else {
				stagnation++
			}

			if a.DiversifyAfter > 0 && stagnation >= a.DiversifyAfter {
				for k := 0; k < diversifyKicks; k++ {
					mover.Apply(current, MoveReorderAcross, rng)
				}
				stagnation = 0
			}

			if len(tabu) > a.Tenure*8 {
				for h, expiry := range tabu {
					if expiry <= i {
						delete(tabu, h)
					}
				}
			}
		}
	}

	if best == nil {
		best = pickSeed(p, seeds, rng)
		bestScore = p.Evaluator.Score(best)
	}
	stats.BestScore = bestScore
	stats.DurationMs = time.Since(start).Milliseconds()
	return best, stats, nil
}
