package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatorPerfectBalanceScoresZero(t *testing.T) {
	p := volleyProblem(uniformVolleyPool(), 2)
	sol := NewSolution(2)

	// Deal the exact supply alternately. Every rating is the default 1500,
	// so both teams end up identical on every axis.
	for role, need := range volleyComposition() {
		pool := p.Pools[role]
		require.Len(t, pool, need*2, "fixture supplies exactly two teams of %s", role)
		for i, pl := range pool {
			sol.Teams[i%2].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
		}
	}

	score := p.Evaluator.Score(sol)
	assert.InDelta(t, 0.0, score, 1e-9, "identical teams must score zero")

	balance := p.Evaluator.Balance(sol)
	assert.InDelta(t, 0.0, balance.Difference, 1e-9)
	assert.InDelta(t, 0.0, balance.Variance, 1e-9)
	assert.InDelta(t, 1500.0, balance.TeamStrengths[0], 1e-9)
	assert.InDelta(t, 1500.0, balance.TeamStrengths[1], 1e-9)
}

func TestEvaluatorDegenerateSolutionsScoreInf(t *testing.T) {
	p := volleyProblem(uniformVolleyPool(), 2)

	assert.True(t, math.IsInf(p.Evaluator.Score(nil), 1), "nil solution")
	assert.True(t, math.IsInf(p.Evaluator.Score(NewSolution(0)), 1), "no teams")
	assert.True(t, math.IsInf(p.Evaluator.Score(NewSolution(2)), 1), "no assignments")
}

func TestEvaluatorTeamStrengthUsesRoleWeights(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 2.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
	}
	players := []Player{
		{ID: "a", Roles: []string{"A"}, Ratings: map[string]float64{"A": 1800}},
		{ID: "b", Roles: []string{"B"}, Ratings: map[string]float64{"B": 1200}},
	}
	p := NewProblem(map[string]int{"A": 1, "B": 1}, 1, roles, players, NewEvaluator(roles, 1.0, 0.5), quietEntry())

	sol := NewSolution(1)
	place(t, p, sol, 0, "a", "A")
	place(t, p, sol, 0, "b", "B")

	// (1800*2 + 1200*1) / 3
	assert.InDelta(t, 1600.0, p.Evaluator.TeamStrength(sol.Teams[0]), 1e-9)
	assert.InDelta(t, 0.0, p.Evaluator.TeamStrength(&Team{}), 1e-9, "empty team has zero strength")
}

func TestEvaluatorRoleWeightDefaults(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 0, Order: 0},
		{Code: "B", Weight: -3, Order: 1},
	}
	e := NewEvaluator(roles, 1.0, 0.5)

	assert.InDelta(t, 1.0, e.RoleWeight("A"), 1e-9, "zero weight coerced to 1.0")
	assert.InDelta(t, 1.0, e.RoleWeight("B"), 1e-9, "negative weight coerced to 1.0")
	assert.InDelta(t, 1.0, e.RoleWeight("nope"), 1e-9, "unknown role defaults to 1.0")
}

func TestEvaluatorPositionImbalance(t *testing.T) {
	players := []Player{
		{ID: "s1", Roles: []string{"S"}, Ratings: map[string]float64{"S": 1900}},
		{ID: "s2", Roles: []string{"S"}, Ratings: map[string]float64{"S": 1500}},
	}
	roles := volleyRoles()
	p := NewProblem(map[string]int{"S": 1}, 2, roles, players, testEvaluator(roles), quietEntry())

	sol := NewSolution(2)
	place(t, p, sol, 0, "s1", "S")
	place(t, p, sol, 1, "s2", "S")

	assert.InDelta(t, 400.0, p.Evaluator.PositionImbalance(sol), 1e-9)

	// spread 400 + stddev 200 + imbalance 400*0.5
	assert.InDelta(t, 800.0, p.Evaluator.Score(sol), 1e-9)
}

func TestEvaluatorScoreIsStableAcrossCalls(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 1.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
		{Code: "C", Weight: 1.0, Order: 2},
	}
	// Per-role spreads of 0.1, 0.2 and 0.3. Their float sum differs in the
	// last bit depending on accumulation order, so any order sensitivity in
	// the evaluator shows up as a drifting score.
	players := []Player{
		{ID: "a1", Roles: []string{"A"}, Ratings: map[string]float64{"A": 0.1}},
		{ID: "a2", Roles: []string{"A"}, Ratings: map[string]float64{"A": 0.0}},
		{ID: "b1", Roles: []string{"B"}, Ratings: map[string]float64{"B": 0.2}},
		{ID: "b2", Roles: []string{"B"}, Ratings: map[string]float64{"B": 0.0}},
		{ID: "c1", Roles: []string{"C"}, Ratings: map[string]float64{"C": 0.3}},
		{ID: "c2", Roles: []string{"C"}, Ratings: map[string]float64{"C": 0.0}},
	}
	comp := map[string]int{"A": 1, "B": 1, "C": 1}
	p := NewProblem(comp, 2, roles, players, testEvaluator(roles), quietEntry())

	sol := NewSolution(2)
	place(t, p, sol, 0, "a1", "A")
	place(t, p, sol, 0, "b1", "B")
	place(t, p, sol, 0, "c1", "C")
	place(t, p, sol, 1, "a2", "A")
	place(t, p, sol, 1, "b2", "B")
	place(t, p, sol, 1, "c2", "C")

	imbalance := p.Evaluator.PositionImbalance(sol)
	score := p.Evaluator.Score(sol)
	for i := 0; i < 500; i++ {
		require.Equal(t, imbalance, p.Evaluator.PositionImbalance(sol), "imbalance drifted on call %d", i)
		require.Equal(t, score, p.Evaluator.Score(sol), "score drifted on call %d", i)
	}
}

func TestEvaluatorBalanceSummary(t *testing.T) {
	players := []Player{
		{ID: "s1", Roles: []string{"S"}, Ratings: map[string]float64{"S": 1600}},
		{ID: "s2", Roles: []string{"S"}, Ratings: map[string]float64{"S": 1400}},
	}
	roles := volleyRoles()
	p := NewProblem(map[string]int{"S": 1}, 2, roles, players, testEvaluator(roles), quietEntry())

	sol := NewSolution(2)
	place(t, p, sol, 0, "s1", "S")
	place(t, p, sol, 1, "s2", "S")

	b := p.Evaluator.Balance(sol)
	assert.InDelta(t, 200.0, b.Difference, 1e-9)
	assert.InDelta(t, 10000.0, b.Variance, 1e-9)
	assert.InDelta(t, 100.0, b.StdDev, 1e-9)
	assert.InDelta(t, b.Variance, b.StdDev*b.StdDev, 1e-6, "stddev is the square root of variance")
	require.Len(t, b.TeamStrengths, 2)
}

func TestEvaluatorLopsidedScoresWorse(t *testing.T) {
	p := volleyProblem(spreadVolleyPool(), 2)

	balanced := NewSolution(2)
	lopsided := NewSolution(2)
	for role := range volleyComposition() {
		pool := p.Pools[role]
		for i, pl := range pool {
			// Pools sort by rating descending, so alternating spreads talent
			// while halving stacks the strongest together.
			balanced.Teams[i%2].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
			lopsided.Teams[i*2/len(pool)].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
		}
	}

	assert.Less(t, p.Evaluator.Score(balanced), p.Evaluator.Score(lopsided))
}
