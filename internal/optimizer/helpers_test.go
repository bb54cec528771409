package optimizer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// quietEntry keeps generator shortage warnings out of test output.
func quietEntry() *logrus.Entry {
	nullLogger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(nullLogger)
}

// Shared fixtures for the optimizer package tests. The volleyball setup
// mirrors the pickup-night use case the engine was built around: setter,
// opposite, two outside hitters, two middle blockers, one libero per team.

func volleyRoles() []Role {
	return []Role{
		{Code: "S", Name: "Setter", Weight: 1.0, Order: 0},
		{Code: "OPP", Name: "Opposite", Weight: 1.0, Order: 1},
		{Code: "OH", Name: "Outside Hitter", Weight: 1.0, Order: 2},
		{Code: "MB", Name: "Middle Blocker", Weight: 1.0, Order: 3},
		{Code: "L", Name: "Libero", Weight: 1.0, Order: 4},
	}
}

func volleyComposition() map[string]int {
	return map[string]int{"S": 1, "OPP": 1, "OH": 2, "MB": 2, "L": 1}
}

// uniformVolleyPool is the exact supply for two teams, everyone unrated so
// they all sit at the default 1500.
func uniformVolleyPool() []Player {
	supply := []struct {
		role  string
		count int
	}{
		{"S", 2}, {"OPP", 2}, {"OH", 4}, {"MB", 4}, {"L", 2},
	}
	players := make([]Player, 0, 14)
	i := 0
	for _, s := range supply {
		for k := 0; k < s.count; k++ {
			i++
			players = append(players, Player{
				ID:    fmt.Sprintf("p%02d", i),
				Name:  fmt.Sprintf("Player %02d", i),
				Roles: []string{s.role},
			})
		}
	}
	return players
}

// spreadVolleyPool keeps the same shape but with ratings far enough apart
// that naive splits are visibly lopsided.
func spreadVolleyPool() []Player {
	players := uniformVolleyPool()
	ratings := []float64{
		1900, 1200, // S
		1750, 1330, // OPP
		1810, 1640, 1470, 1285, // OH
		1955, 1520, 1395, 1700, // MB
		1610, 1240, // L
	}
	for i := range players {
		role := players[i].Roles[0]
		players[i].Ratings = map[string]float64{role: ratings[i]}
	}
	return players
}

func testEvaluator(roles []Role) *Evaluator {
	return NewEvaluator(roles, 1.0, 0.5)
}

func volleyProblem(players []Player, teamCount int) *Problem {
	roles := volleyRoles()
	return NewProblem(volleyComposition(), teamCount, roles, players, testEvaluator(roles), quietEntry())
}

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func findPlayer(t *testing.T, p *Problem, id string) *Player {
	t.Helper()
	for _, pl := range p.Players {
		if pl.ID == id {
			return pl
		}
	}
	t.Fatalf("player %s not in fixture", id)
	return nil
}

// place appends an assignment, resolving the player through the problem so
// tests share the pool's pointers.
func place(t *testing.T, p *Problem, s *Solution, team int, id, role string) {
	t.Helper()
	pl := findPlayer(t, p, id)
	s.Teams[team].Add(Assignment{Player: pl, Role: role, Rating: pl.Rating(role)})
}

// assertNoDuplicates fails when any player holds more than one slot.
func assertNoDuplicates(t *testing.T, s *Solution) {
	t.Helper()
	seen := make(map[string]int)
	for _, team := range s.Teams {
		for _, a := range team.Assignments {
			seen[a.Player.ID]++
		}
	}
	for id, n := range seen {
		require.Equal(t, 1, n, "player %s must hold exactly one slot", id)
	}
}

func teamRoleCounts(team *Team) map[string]int {
	counts := make(map[string]int)
	for _, a := range team.Assignments {
		counts[a.Role]++
	}
	return counts
}
