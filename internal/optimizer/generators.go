package optimizer

import (
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// Generator builds an initial solution from the problem's pools. Generators
// never double-book a player across roles and log a warning when the pool
// cannot cover a role's demand.
type Generator interface {
	Name() string
	Generate(p *Problem, rng *rand.Rand) *Solution
}

// DefaultGenerators returns the seeding set in its canonical order.
func DefaultGenerators() []Generator {
	return []Generator{
		&GreedyGenerator{},
		&BalancedGenerator{},
		&SnakeGenerator{},
		&SmartGenerator{},
		&RandomGenerator{},
	}
}

// randomizedGenerators is the pool used when search needs fresh diverse
// material mid-run, e.g. population refills.
func randomizedGenerators() []Generator {
	return []Generator{
		&RandomGenerator{},
		&GreedyGenerator{Jitter: true},
		&BalancedGenerator{},
		&SnakeGenerator{},
	}
}

// availableForRole filters the role's pool down to unused players, keeping
// the pool's strongest-first order.
func availableForRole(p *Problem, role string, used map[string]bool) []*Player {
	pool := p.Pools[role]
	avail := make([]*Player, 0, len(pool))
	for _, pl := range pool {
		if !used[pl.ID] {
			avail = append(avail, pl)
		}
	}
	return avail
}

func warnShortage(p *Problem, generator, role string, placed, need int) {
	p.Log.WithFields(logrus.Fields{
		"generator": generator,
		"role":      role,
		"placed":    placed,
		"needed":    need,
	}).Warn("Not enough eligible players to fill role")
}

// GreedyGenerator deals each role's strongest players across teams in round
// robin order. With Jitter set, nearby candidates may swap positions before
// dealing, which trades determinism for diversity.
type GreedyGenerator struct {
	Jitter bool
}

func (g *GreedyGenerator) Name() string { return "greedy" }

func (g *GreedyGenerator) Generate(p *Problem, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	for _, role := range p.ActiveRoles() {
		need := p.Composition[role] * p.TeamCount
		avail := availableForRole(p, role, used)
		if g.Jitter && rng != nil && len(avail) > 1 {
			for i := 0; i < len(avail)-1; i++ {
				if rng.Float64() < 0.3 {
					avail[i], avail[i+1] = avail[i+1], avail[i]
				}
			}
		}
		placed := 0
		for i, pl := range avail {
			if placed >= need {
				break
			}
			team := i % p.TeamCount
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
			placed++
		}
		if placed < need {
			warnShortage(p, g.Name(), role, placed, need)
		}
	}
	return sol
}

// BalancedGenerator is the greedy deal with a random team offset per role, so
// the strongest player of each role does not always land on team zero.
type BalancedGenerator struct{}

func (g *BalancedGenerator) Name() string { return "balanced" }

func (g *BalancedGenerator) Generate(p *Problem, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	for _, role := range p.ActiveRoles() {
		need := p.Composition[role] * p.TeamCount
		avail := availableForRole(p, role, used)
		offset := 0
		if rng != nil && p.TeamCount > 1 {
			offset = rng.Intn(p.TeamCount)
		}
		placed := 0
		for i, pl := range avail {
			if placed >= need {
				break
			}
			team := (offset + i) % p.TeamCount
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
			placed++
		}
		if placed < need {
			warnShortage(p, g.Name(), role, placed, need)
		}
	}
	return sol
}

// SnakeGenerator deals in boustrophedon order (0..n-1 then n-1..0) with a
// round counter carried across roles, so no team keeps the first pick.
// Within each role, specialists go first.
type SnakeGenerator struct{}

func (g *SnakeGenerator) Name() string { return "snake" }

func (g *SnakeGenerator) Generate(p *Problem, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	round := 0
	for _, role := range p.ActiveRoles() {
		need := p.Composition[role] * p.TeamCount
		avail := availableForRole(p, role, used)
		sort.SliceStable(avail, func(i, j int) bool {
			si, sj := avail[i].IsSpecialist(), avail[j].IsSpecialist()
			if si != sj {
				return si
			}
			ri, rj := avail[i].Rating(role), avail[j].Rating(role)
			if ri != rj {
				return ri > rj
			}
			return avail[i].ID < avail[j].ID
		})
		placed := 0
		for _, pl := range avail {
			if placed >= need {
				break
			}
			pos := placed % p.TeamCount
			team := pos
			if round%2 == 1 {
				team = p.TeamCount - 1 - pos
			}
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
			placed++
			if pos == p.TeamCount-1 {
				round++
			}
		}
		if placed < need {
			warnShortage(p, g.Name(), role, placed, need)
		}
	}
	return sol
}

// SmartGenerator places specialists into their only role first, scarcest role
// first, then fills remaining slots by repeatedly targeting the scarcest
// still-unmet role. The fill loop is capped and exits early when a full pass
// places nobody.
type SmartGenerator struct{}

func (g *SmartGenerator) Name() string { return "smart" }

const smartFillPasses = 100

func (g *SmartGenerator) Generate(p *Problem, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)

	// Scarcity is eligible supply divided by total demand; lower means the
	// role must be served sooner.
	scarcity := func(role string) float64 {
		need := p.Composition[role] * p.TeamCount
		if need == 0 {
			return 1e9
		}
		return float64(len(availableForRole(p, role, used))) / float64(need)
	}

	roles := append([]string(nil), p.ActiveRoles()...)
	sort.SliceStable(roles, func(i, j int) bool {
		return scarcity(roles[i]) < scarcity(roles[j])
	})

	// Specialists cannot move elsewhere, so they claim their slots first.
	for _, role := range roles {
		required := p.Composition[role]
		for _, pl := range availableForRole(p, role, used) {
			if !pl.IsSpecialist() {
				continue
			}
			team := teamNeedingRole(sol, role, required)
			if team < 0 {
				break
			}
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
		}
	}

	// Fixed-point fill: each pass serves the scarcest role still short.
	for pass := 0; pass < smartFillPasses; pass++ {
		role := ""
		best := 1e18
		for _, code := range p.ActiveRoles() {
			if unmetSlots(sol, code, p.Composition[code]) == 0 {
				continue
			}
			if len(availableForRole(p, code, used)) == 0 {
				continue
			}
			if s := scarcity(code); s < best {
				best = s
				role = code
			}
		}
		if role == "" {
			break
		}
		required := p.Composition[role]
		progress := 0
		for _, pl := range availableForRole(p, role, used) {
			team := teamNeedingRole(sol, role, required)
			if team < 0 {
				break
			}
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
			progress++
		}
		if progress == 0 {
			break
		}
	}

	for _, role := range p.ActiveRoles() {
		need := p.Composition[role] * p.TeamCount
		if placed := need - unmetSlots(sol, role, p.Composition[role]); placed < need {
			warnShortage(p, g.Name(), role, placed, need)
		}
	}
	return sol
}

// teamNeedingRole picks the team with the fewest players of the role that is
// still below the requirement. Returns -1 when every team is satisfied.
func teamNeedingRole(sol *Solution, role string, required int) int {
	best, bestCount := -1, required
	for i, t := range sol.Teams {
		if c := t.RoleCount(role); c < bestCount {
			best, bestCount = i, c
		}
	}
	return best
}

func unmetSlots(sol *Solution, role string, required int) int {
	unmet := 0
	for _, t := range sol.Teams {
		if c := t.RoleCount(role); c < required {
			unmet += required - c
		}
	}
	return unmet
}

// RandomGenerator shuffles each role's pool before dealing. It exists to give
// the searchers genuinely uncorrelated starting material.
type RandomGenerator struct{}

func (g *RandomGenerator) Name() string { return "random" }

func (g *RandomGenerator) Generate(p *Problem, rng *rand.Rand) *Solution {
	sol := NewSolution(p.TeamCount)
	used := make(map[string]bool)
	for _, role := range p.ActiveRoles() {
		need := p.Composition[role] * p.TeamCount
		avail := availableForRole(p, role, used)
		if rng != nil {
			rng.Shuffle(len(avail), func(i, j int) {
				avail[i], avail[j] = avail[j], avail[i]
			})
		}
		placed := 0
		for i, pl := range avail {
			if placed >= need {
				break
			}
			team := i % p.TeamCount
			sol.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			used[pl.ID] = true
			placed++
		}
		if placed < need {
			warnShortage(p, g.Name(), role, placed, need)
		}
	}
	return sol
}
