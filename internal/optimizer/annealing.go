package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Annealing runs simulated annealing with geometric cooling and a reheat
// kick after prolonged stagnation. The walking state may accept worse
// solutions, but the returned best never regresses below the seed's
// composition compliance.
type Annealing struct {
	Iterations  int
	InitialTemp float64
	Cooling     float64
	ReheatAfter int
}

// reheatFactor scales InitialTemp when stagnation triggers a reheat.
const reheatFactor = 0.5

func (a *Annealing) Name() string { return "Simulated Annealing" }

func (a *Annealing) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	current := pickSeed(p, seeds, rng)
	currentScore := p.Evaluator.Score(current)
	baseViolations := current.CompositionViolations(p.Composition)

	best := current.Clone()
	bestScore := currentScore

	mover := NewMover(p)
	temp := a.InitialTemp
	stagnation := 0

	for i := 0; i < a.Iterations; i++ {
		if i%cancelCheckStride == 0 && canceled(ctx) {
			break
		}
		stats.Iterations++

		candidate := current.Clone()
		if !mover.ApplyRandom(candidate, rng) {
			temp *= a.Cooling
			continue
		}
		score := p.Evaluator.Score(candidate)
		delta := score - currentScore

		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			current, currentScore = candidate, score
			if delta > 0 {
				stats.AcceptedWorse++
			}
			if score < bestScore && candidate.CompositionViolations(p.Composition) <= baseViolations {
				best = candidate.Clone()
				bestScore = score
				stats.Improvements++
				stagnation = 0
			} else {
				stagnation++
			}
		} else {
			stagnation++
		}

		temp *= a.Cooling
		if a.ReheatAfter > 0 && stagnation >= a.ReheatAfter {
			temp = a.InitialTemp * reheatFactor
			stagnation = 0
		}
	}

	stats.BestScore = bestScore
	stats.DurationMs = time.Since(start).Milliseconds()
	return best, stats, nil
}
