package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// AntColony builds solutions probabilistically from (player, team) pheromone
// trails plus a balance heuristic, then reinforces the trails of each
// iteration's best ant. The global best receives an extra elitist deposit.
// Acceptance is lexicographic: fewer composition violations first, then
// lower score.
type AntColony struct {
	Ants             int
	Iterations       int
	Alpha            float64
	Beta             float64
	Evaporation      float64
	Deposit          float64
	InitialPheromone float64
	MinPheromone     float64
	MaxPheromone     float64
	ElitistWeight    float64
}

type trailKey struct {
	playerID string
	team     int
}

func (a *AntColony) Name() string { return "Ant Colony" }

func (a *AntColony) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	trails := make(map[trailKey]float64)
	target := averagePoolRating(p)

	var best *Solution
	bestScore := math.Inf(1)
	bestViolations := math.MaxInt32

	for it := 0; it < a.Iterations; it++ {
		if canceled(ctx) {
			break
		}
		stats.Iterations++

		var iterBest *Solution
		iterBestScore := math.Inf(1)
		for ant := 0; ant < a.Ants; ant++ {
			sol := a.construct(p, trails, target, rng)
			if score := p.Evaluator.Score(sol); score < iterBestScore {
				iterBest, iterBestScore = sol, score
			}
		}
		if iterBest == nil {
			continue
		}

		violations := iterBest.CompositionViolations(p.Composition)
		if violations < bestViolations || (violations == bestViolations && iterBestScore < bestScore) {
			best = iterBest.Clone()
			bestScore = iterBestScore
			bestViolations = violations
			stats.Improvements++
		}

		a.updateTrails(trails, iterBest, iterBestScore, best, bestScore)
	}

	if best == nil {
		best = pickSeed(p, seeds, rng)
		bestScore = p.Evaluator.Score(best)
	}
	stats.BestScore = bestScore
	stats.DurationMs = time.Since(start).Milliseconds()
	return best, stats, nil
}

// construct fills roles slot by slot. For each slot the candidate choice is
// a roulette spin over tau^Alpha * eta^Beta, where eta rewards keeping the
// receiving team near the pool average.
func (a *AntColony) construct(p *Problem, trails map[trailKey]float64, target float64, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	strengthSum := make([]float64, p.TeamCount)
	weightSum := make([]float64, p.TeamCount)

	for _, role := range p.ActiveRoles() {
		need := p.Composition[role]
		w := p.Evaluator.RoleWeight(role)
		for slot := 0; slot < need; slot++ {
			for t := 0; t < p.TeamCount; t++ {
				cands := availableForRole(p, role, used)
				if len(cands) == 0 {
					break
				}
				pl := cands[a.selectCandidate(cands, role, t, trails, target, strengthSum, weightSum, w, rng)]
				sol.Teams[t].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
				used[pl.ID] = true
				strengthSum[t] += pl.Rating(role) * w
				weightSum[t] += w
			}
		}
	}
	return sol
}

func (a *AntColony) selectCandidate(cands []*Player, role string, team int, trails map[trailKey]float64, target float64, strengthSum, weightSum []float64, w float64, rng *rand.Rand) int {
	weights := make([]float64, len(cands))
	total := 0.0
	for i, pl := range cands {
		tau := a.trail(trails, trailKey{playerID: pl.ID, team: team})
		projected := (strengthSum[team] + pl.Rating(role)*w) / (weightSum[team] + w)
		eta := 1.0 / (1.0 + math.Abs(projected-target)/100.0)
		weights[i] = math.Pow(tau, a.Alpha) * math.Pow(eta, a.Beta)
		total += weights[i]
	}
	if total <= 0 {
		return rng.Intn(len(cands))
	}
	spin := rng.Float64() * total
	for i, wv := range weights {
		spin -= wv
		if spin <= 0 {
			return i
		}
	}
	return len(cands) - 1
}

func (a *AntColony) trail(trails map[trailKey]float64, k trailKey) float64 {
	if v, ok := trails[k]; ok {
		return v
	}
	return a.InitialPheromone
}

func (a *AntColony) updateTrails(trails map[trailKey]float64, iterBest *Solution, iterScore float64, best *Solution, bestScore float64) {
	for k, v := range trails {
		trails[k] = a.clamp(v * (1.0 - a.Evaporation))
	}

	deposit := a.Deposit / (1.0 + iterScore)
	a.reinforce(trails, iterBest, deposit)

	if best != nil {
		a.reinforce(trails, best, a.ElitistWeight*a.Deposit/(1.0+bestScore))
	}
}

func (a *AntColony) reinforce(trails map[trailKey]float64, sol *Solution, amount float64) {
	if amount <= 0 || math.IsNaN(amount) {
		return
	}
	for ti, team := range sol.Teams {
		for _, asg := range team.Assignments {
			k := trailKey{playerID: asg.Player.ID, team: ti}
			trails[k] = a.clamp(a.trail(trails, k) + amount)
		}
	}
}

func (a *AntColony) clamp(v float64) float64 {
	if v < a.MinPheromone {
		return a.MinPheromone
	}
	if v > a.MaxPheromone {
		return a.MaxPheromone
	}
	return v
}
