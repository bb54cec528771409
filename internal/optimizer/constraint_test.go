package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintSolverSolvesTightFlexInstance(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 1.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
	}
	// Only one dedicated player per role; the two flex players must cover
	// whatever is left. Greedy dealing can strand this, backtracking cannot.
	players := []Player{
		{ID: "a1", Roles: []string{"A"}, Ratings: map[string]float64{"A": 1520}},
		{ID: "b1", Roles: []string{"B"}, Ratings: map[string]float64{"B": 1480}},
		{ID: "x", Roles: []string{"A", "B"}, Ratings: map[string]float64{"A": 1610, "B": 1590}},
		{ID: "y", Roles: []string{"A", "B"}, Ratings: map[string]float64{"A": 1390, "B": 1410}},
	}
	comp := map[string]int{"A": 1, "B": 1}
	p := NewProblem(comp, 2, roles, players, testEvaluator(roles), quietEntry())

	alg := &ConstraintSolver{BacktrackLimit: 1000}
	sol, stats, err := alg.Solve(context.Background(), p, nil, testRNG(1))
	require.NoError(t, err)
	require.NotNil(t, sol)

	assert.False(t, stats.FellBack)
	assert.Equal(t, 0, sol.CompositionViolations(comp))
	assert.Equal(t, 4, sol.TotalAssignments())
	assertNoDuplicates(t, sol)
	assert.GreaterOrEqual(t, stats.Iterations, 4, "iterations count placements, including undone ones")
}

func TestConstraintSolverFallsBackWhenUnsatisfiable(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 1.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
	}
	// Two B slots exist but only one player can fill either of them.
	players := []Player{
		{ID: "a1", Roles: []string{"A"}},
		{ID: "a2", Roles: []string{"A"}},
		{ID: "a3", Roles: []string{"A"}},
		{ID: "ab", Roles: []string{"A", "B"}},
	}
	comp := map[string]int{"A": 1, "B": 1}
	p := NewProblem(comp, 2, roles, players, testEvaluator(roles), quietEntry())

	alg := &ConstraintSolver{BacktrackLimit: 1000}
	sol, stats, err := alg.Solve(context.Background(), p, nil, testRNG(1))
	require.NoError(t, err)
	require.NotNil(t, sol, "fallback still hands back a split")

	assert.True(t, stats.FellBack)
	assert.Equal(t, 1, sol.CompositionViolations(comp), "one team stays short a B")
	assertNoDuplicates(t, sol)
}

func TestConstraintSolverHonorsBacktrackBudget(t *testing.T) {
	roles := []Role{
		{Code: "A", Weight: 1.0, Order: 0},
		{Code: "B", Weight: 1.0, Order: 1},
	}
	players := []Player{
		{ID: "a1", Roles: []string{"A"}},
		{ID: "a2", Roles: []string{"A"}},
		{ID: "a3", Roles: []string{"A"}},
		{ID: "ab", Roles: []string{"A", "B"}},
	}
	p := NewProblem(map[string]int{"A": 1, "B": 1}, 2, roles, players, testEvaluator(roles), quietEntry())

	alg := &ConstraintSolver{BacktrackLimit: 1}
	sol, stats, err := alg.Solve(context.Background(), p, nil, testRNG(1))
	require.NoError(t, err)
	require.NotNil(t, sol)
	assert.True(t, stats.FellBack)
	assert.LessOrEqual(t, stats.Backtracks, 2, "the budget cuts the search off early")
}
