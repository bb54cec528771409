package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Genetic evolves a population seeded from the generator ensemble. Crossover
// slices parents by team index and repairs the child so no player appears
// twice; mutation reuses the shared move operators. When the population
// stalls, the weaker half is regenerated from scratch.
type Genetic struct {
	PopulationSize  int
	Generations     int
	EliteCount      int
	TournamentSize  int
	MutationRate    float64
	StagnationLimit int
}

type individual struct {
	sol   *Solution
	score float64
}

func (a *Genetic) Name() string { return "Genetic Algorithm" }

func (a *Genetic) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	popSize := a.PopulationSize
	if popSize < 2 {
		popSize = 2
	}
	elite := a.EliteCount
	if elite >= popSize {
		elite = popSize / 2
	}

	pop := make([]individual, 0, popSize)
	for _, s := range seeds {
		if len(pop) == popSize {
			break
		}
		c := s.Clone()
		pop = append(pop, individual{sol: c, score: p.Evaluator.Score(c)})
	}
	fillers := randomizedGenerators()
	for len(pop) < popSize {
		s := fillers[len(pop)%len(fillers)].Generate(p, rng)
		pop = append(pop, individual{sol: s, score: p.Evaluator.Score(s)})
	}

	// The returned best may not be more broken than the cleanest member of
	// the starting population.
	baseViolations := math.MaxInt32
	for _, ind := range pop {
		if v := ind.sol.CompositionViolations(p.Composition); v < baseViolations {
			baseViolations = v
		}
	}

	sortByScore(pop)
	best, bestScore := selectBest(p, pop, baseViolations)
	if best != nil {
		best = best.Clone()
	}

	mover := NewMover(p)
	stagnation := 0

	for gen := 0; gen < a.Generations; gen++ {
		if canceled(ctx) {
			break
		}
		stats.Iterations++

		next := make([]individual, 0, popSize)
		for i := 0; i < elite && i < len(pop); i++ {
			next = append(next, individual{sol: pop[i].sol.Clone(), score: pop[i].score})
		}
		for len(next) < popSize {
			p1 := tournament(pop, a.TournamentSize, rng)
			p2 := tournament(pop, a.TournamentSize, rng)
			child := a.crossover(p, p1.sol, p2.sol, rng)
			if rng.Float64() < a.MutationRate {
				mover.ApplyRandom(child, rng)
			}
			next = append(next, individual{sol: child, score: p.Evaluator.Score(child)})
		}
		pop = next
		sortByScore(pop)

		if cand, candScore := selectBest(p, pop, baseViolations); cand != nil && candScore < bestScore {
			best = cand.Clone()
			bestScore = candScore
			stats.Improvements++
			stagnation = 0
		} else {
			stagnation++
		}

		if a.StagnationLimit > 0 && stagnation >= a.StagnationLimit {
			for i := len(pop) / 2; i < len(pop); i++ {
				s := fillers[i%len(fillers)].Generate(p, rng)
				pop[i] = individual{sol: s, score: p.Evaluator.Score(s)}
			}
			sortByScore(pop)
			stagnation = 0
		}
	}

	if best == nil {
		best = pop[0].sol.Clone()
		bestScore = pop[0].score
	}
	stats.BestScore = bestScore
	stats.DurationMs = time.Since(start).Milliseconds()
	return best, stats, nil
}

func sortByScore(pop []individual) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].score < pop[j].score
	})
}

// selectBest returns the lowest-scoring member whose composition violations
// stay within the baseline, or nil when none qualifies.
func selectBest(p *Problem, pop []individual, baseViolations int) (*Solution, float64) {
	for _, ind := range pop {
		if ind.sol.CompositionViolations(p.Composition) <= baseViolations {
			return ind.sol, ind.score
		}
	}
	return nil, math.Inf(1)
}

func tournament(pop []individual, size int, rng *rand.Rand) individual {
	if size < 1 {
		size = 1
	}
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.score < best.score {
			best = c
		}
	}
	return best
}

// crossover slices by team index: teams before the cut come from parent one,
// the rest from parent two. Players already taken from parent one leave
// holes in the parent-two slice; repair reinserts parent-two players who
// lost their spot, preferring teams short of their original role, then any
// eligible role with a shortage, and as a last resort the smallest team.
func (a *Genetic) crossover(p *Problem, s1, s2 *Solution, rng *rand.Rand) *Solution {
	n := p.TeamCount
	if n < 2 {
		return s1.Clone()
	}
	cut := 1 + rng.Intn(n-1)

	child := NewSolution(n)
	used := make(map[string]bool)

	for t := 0; t < cut && t < len(s1.Teams); t++ {
		for _, asg := range s1.Teams[t].Assignments {
			if used[asg.Player.ID] {
				continue
			}
			child.Teams[t].Add(asg)
			used[asg.Player.ID] = true
		}
	}
	for t := cut; t < n && t < len(s2.Teams); t++ {
		for _, asg := range s2.Teams[t].Assignments {
			if used[asg.Player.ID] {
				continue
			}
			child.Teams[t].Add(asg)
			used[asg.Player.ID] = true
		}
	}

	var pending []Assignment
	for _, team := range s2.Teams {
		for _, asg := range team.Assignments {
			if !used[asg.Player.ID] {
				pending = append(pending, asg)
			}
		}
	}

	for _, asg := range pending {
		if a.placeInShortTeam(p, child, asg.Player, asg.Role) {
			used[asg.Player.ID] = true
			continue
		}
		placed := false
		for _, role := range p.ActiveRoles() {
			if role == asg.Role || !asg.Player.CanPlay(role) {
				continue
			}
			if a.placeInShortTeam(p, child, asg.Player, role) {
				placed = true
				break
			}
		}
		if placed {
			used[asg.Player.ID] = true
			continue
		}
		smallest := 0
		for t := 1; t < n; t++ {
			if child.Teams[t].Size() < child.Teams[smallest].Size() {
				smallest = t
			}
		}
		child.Teams[smallest].Add(Assignment{Player: asg.Player, Role: asg.Role, Rating: asg.Player.Rating(asg.Role)})
		used[asg.Player.ID] = true
	}

	return child
}

func (a *Genetic) placeInShortTeam(p *Problem, child *Solution, pl *Player, role string) bool {
	required := p.Composition[role]
	for t := 0; t < len(child.Teams); t++ {
		if child.Teams[t].RoleCount(role) < required {
			child.Teams[t].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			return true
		}
	}
	return false
}
