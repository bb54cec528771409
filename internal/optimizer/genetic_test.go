package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossoverProblem is a two-team, two-role setup small enough to trace the
// repair cascade by hand. With two teams the cut always lands at 1, so team 0
// comes from the first parent and team 1 from the second.
func crossoverProblem(extraRolesFor map[string][]string) *Problem {
	roles := []Role{
		{Code: "A", Weight: 1.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
	}
	base := map[string][]string{
		"a1": {"A"}, "a2": {"A"},
		"b1": {"B"}, "b2": {"B"},
		"x": {"A", "B"},
	}
	for id, rs := range extraRolesFor {
		base[id] = rs
	}
	players := make([]Player, 0, len(base))
	for _, id := range []string{"a1", "a2", "b1", "b2", "x"} {
		players = append(players, Player{ID: id, Roles: base[id]})
	}
	return NewProblem(map[string]int{"A": 1, "B": 1}, 2, roles, players, testEvaluator(roles), quietEntry())
}

func TestCrossoverRepairReusesTheSameRole(t *testing.T) {
	p := crossoverProblem(nil)

	// Parent two placed a1 on its second team, so the child loses a2's spot
	// and repair must find the still-open A slot on team 1.
	p1 := NewSolution(2)
	place(t, p, p1, 0, "a1", "A")
	place(t, p, p1, 0, "b1", "B")
	place(t, p, p1, 1, "a2", "A")
	place(t, p, p1, 1, "b2", "B")

	p2 := NewSolution(2)
	place(t, p, p2, 0, "a2", "A")
	place(t, p, p2, 0, "b1", "B")
	place(t, p, p2, 1, "a1", "A")
	place(t, p, p2, 1, "b2", "B")

	child := (&Genetic{}).crossover(p, p1, p2, testRNG(1))

	assertNoDuplicates(t, child)
	assert.Equal(t, 0, child.CompositionViolations(p.Composition))

	var a2Team, a2Role = -1, ""
	for ti, team := range child.Teams {
		for _, a := range team.Assignments {
			if a.Player.ID == "a2" {
				a2Team, a2Role = ti, a.Role
			}
		}
	}
	assert.Equal(t, 1, a2Team, "a2 fills the hole a1 left on team 1")
	assert.Equal(t, "A", a2Role)
}

func TestCrossoverRepairFallsBackToAlternateRoleAndOverflow(t *testing.T) {
	p := crossoverProblem(nil)

	p1 := NewSolution(2)
	place(t, p, p1, 0, "a1", "A")
	place(t, p, p1, 0, "b1", "B")
	place(t, p, p1, 1, "a2", "A")
	place(t, p, p1, 1, "x", "B")

	// Parent two used x as a setter-equivalent on team 0 and b1 on team 1,
	// so after inheriting team 0 from parent one both x and b2 are homeless.
	p2 := NewSolution(2)
	place(t, p, p2, 0, "x", "A")
	place(t, p, p2, 0, "b2", "B")
	place(t, p, p2, 1, "a2", "A")
	place(t, p, p2, 1, "b1", "B")

	child := (&Genetic{}).crossover(p, p1, p2, testRNG(1))

	assertNoDuplicates(t, child)
	assert.Equal(t, 5, child.TotalAssignments(), "every player from both contributions survives repair")

	locate := func(id string) (int, string) {
		for ti, team := range child.Teams {
			for _, a := range team.Assignments {
				if a.Player.ID == id {
					return ti, a.Role
				}
			}
		}
		return -1, ""
	}

	// x cannot take an A slot (both full), but it can play B and team 1 is
	// short a B after losing b1 to team 0.
	xTeam, xRole := locate("x")
	assert.Equal(t, 1, xTeam)
	assert.Equal(t, "B", xRole)

	// b2 has no alternate role and no short team left; it overflows onto the
	// smallest team and costs exactly one violation.
	b2Team, _ := locate("b2")
	assert.Equal(t, 0, b2Team)
	assert.Equal(t, 1, child.CompositionViolations(p.Composition))
}

func TestCrossoverOnSingleTeamClonesParent(t *testing.T) {
	roles := []Role{{Code: "A", Weight: 1.0, Order: 0}}
	players := []Player{
		{ID: "a1", Roles: []string{"A"}},
		{ID: "a2", Roles: []string{"A"}},
	}
	p := NewProblem(map[string]int{"A": 2}, 1, roles, players, testEvaluator(roles), quietEntry())

	s1 := NewSolution(1)
	place(t, p, s1, 0, "a1", "A")
	place(t, p, s1, 0, "a2", "A")
	s2 := s1.Clone()

	child := (&Genetic{}).crossover(p, s1, s2, testRNG(1))
	assert.Equal(t, s1.Hash(), child.Hash())

	child.Teams[0].Assignments[0].Role = "B"
	assert.Equal(t, "A", s1.Teams[0].Assignments[0].Role, "single-team crossover must still clone")
}

func TestGeneticSolveImprovesOnExactSupply(t *testing.T) {
	p := volleyProblem(spreadVolleyPool(), 2)
	seed := (&GreedyGenerator{}).Generate(p, nil)
	seedScore := p.Evaluator.Score(seed)

	alg := &Genetic{
		PopulationSize:  16,
		Generations:     30,
		EliteCount:      2,
		TournamentSize:  3,
		MutationRate:    0.3,
		StagnationLimit: 8,
	}
	sol, stats, err := alg.Solve(context.Background(), p, []*Solution{seed}, testRNG(21))
	require.NoError(t, err)
	require.NotNil(t, sol)

	assert.LessOrEqual(t, stats.BestScore, seedScore, "the seed is in the population, so the best cannot lose to it")
	assert.Equal(t, 0, sol.CompositionViolations(p.Composition))
	assertNoDuplicates(t, sol)
	assert.Equal(t, 30, stats.Iterations)
}
