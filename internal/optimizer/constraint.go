package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ConstraintSolver treats every (team, role, slot) as a variable and fills
// them by depth-first backtracking. Variable order is most-constrained-first
// (fewest eligible players remaining), value order prefers specialists and
// then whichever player keeps the receiving team closest to the pool
// average. Role-level availability counting prunes dead branches early.
// When the backtrack budget runs out the solver falls back to the greedy
// generator, so it always returns something.
type ConstraintSolver struct {
	BacktrackLimit int
}

func (a *ConstraintSolver) Name() string { return "Constraint Programming" }

func (a *ConstraintSolver) Solve(ctx context.Context, p *Problem, seeds []*Solution, rng *rand.Rand) (*Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a.Name()}

	limit := a.BacktrackLimit
	if limit <= 0 {
		limit = 10000
	}

	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	slotsLeft := make(map[string]int, len(p.ActiveRoles()))
	for _, role := range p.ActiveRoles() {
		slotsLeft[role] = p.Composition[role] * p.TeamCount
	}
	strengthSum := make([]float64, p.TeamCount)
	weightSum := make([]float64, p.TeamCount)
	target := averagePoolRating(p)

	backtracks := 0
	placements := 0

	// nextSlot picks the role with the fewest remaining eligible players,
	// breaking ties toward the role with more open slots, and within the
	// role the team furthest from its requirement.
	nextSlot := func() (string, int, bool) {
		bestRole := ""
		bestAvail := 0
		for _, role := range p.ActiveRoles() {
			if slotsLeft[role] == 0 {
				continue
			}
			avail := len(availableForRole(p, role, used))
			if bestRole == "" || avail < bestAvail ||
				(avail == bestAvail && slotsLeft[role] > slotsLeft[bestRole]) {
				bestRole, bestAvail = role, avail
			}
		}
		if bestRole == "" {
			return "", 0, false
		}
		return bestRole, teamNeedingRole(sol, bestRole, p.Composition[bestRole]), true
	}

	orderCandidates := func(role string, team int) []*Player {
		avail := availableForRole(p, role, used)
		w := p.Evaluator.RoleWeight(role)
		balanceDelta := func(pl *Player) float64 {
			projected := (strengthSum[team] + pl.Rating(role)*w) / (weightSum[team] + w)
			return math.Abs(projected - target)
		}
		sort.SliceStable(avail, func(i, j int) bool {
			if li, lj := len(avail[i].Roles), len(avail[j].Roles); li != lj {
				return li < lj
			}
			if di, dj := balanceDelta(avail[i]), balanceDelta(avail[j]); di != dj {
				return di < dj
			}
			return avail[i].ID < avail[j].ID
		})
		return avail
	}

	place := func(pl *Player, role string, team int) {
		w := p.Evaluator.RoleWeight(role)
		sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
		used[pl.ID] = true
		slotsLeft[role]--
		strengthSum[team] += pl.Rating(role) * w
		weightSum[team] += w
		placements++
	}
	unplace := func(pl *Player, role string, team int) {
		w := p.Evaluator.RoleWeight(role)
		t := sol.Teams[team]
		t.Assignments = t.Assignments[:len(t.Assignments)-1]
		delete(used, pl.ID)
		slotsLeft[role]++
		strengthSum[team] -= pl.Rating(role) * w
		weightSum[team] -= w
	}

	// feasible is the forward check: every open role must still have at
	// least as many eligible unused players as it has open slots.
	feasible := func() bool {
		for _, role := range p.ActiveRoles() {
			if slotsLeft[role] > len(availableForRole(p, role, used)) {
				return false
			}
		}
		return true
	}

	var search func() bool
	search = func() bool {
		if canceled(ctx) || backtracks > limit {
			return false
		}
		role, team, ok := nextSlot()
		if !ok {
			return true
		}
		for _, pl := range orderCandidates(role, team) {
			place(pl, role, team)
			if feasible() && search() {
				return true
			}
			unplace(pl, role, team)
			backtracks++
			if backtracks > limit {
				return false
			}
		}
		return false
	}

	solved := search()
	stats.Iterations = placements
	stats.Backtracks = backtracks

	if solved {
		stats.BestScore = p.Evaluator.Score(sol)
		stats.DurationMs = time.Since(start).Milliseconds()
		return sol, stats, nil
	}

	// Budget exhausted, canceled, or unsatisfiable in a way aggregate
	// validation cannot catch. Hand back the deterministic greedy split.
	g := &GreedyGenerator{}
	fallback := g.Generate(p, rng)
	stats.FellBack = true
	stats.BestScore = p.Evaluator.Score(fallback)
	stats.DurationMs = time.Since(start).Milliseconds()
	return fallback, stats, nil
}
