package optimizer

import (
	"sort"
	"strings"
)

// Solution is one complete (or partially filled) division of the pool into
// teams. Search mutates solutions only through Clone-then-modify, so any
// solution handed across a channel or kept as a best-so-far is stable.
type Solution struct {
	Teams []*Team
}

func NewSolution(teamCount int) *Solution {
	s := &Solution{Teams: make([]*Team, teamCount)}
	for i := range s.Teams {
		s.Teams[i] = &Team{}
	}
	return s
}

// Clone deep-copies team containers. Player pointers are shared on purpose.
func (s *Solution) Clone() *Solution {
	cp := &Solution{Teams: make([]*Team, len(s.Teams))}
	for i, t := range s.Teams {
		nt := &Team{Assignments: make([]Assignment, len(t.Assignments))}
		copy(nt.Assignments, t.Assignments)
		cp.Teams[i] = nt
	}
	return cp
}

// Hash produces a stable identity string for tabu bookkeeping. Player order
// within a team does not change the hash; team membership does.
func (s *Solution) Hash() string {
	var sb strings.Builder
	for ti, t := range s.Teams {
		ids := make([]string, 0, len(t.Assignments))
		for _, a := range t.Assignments {
			ids = append(ids, a.Player.ID+":"+a.Role)
		}
		sort.Strings(ids)
		if ti > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strings.Join(ids, ","))
	}
	return sb.String()
}

// TotalAssignments counts placed players across all teams.
func (s *Solution) TotalAssignments() int {
	n := 0
	for _, t := range s.Teams {
		n += len(t.Assignments)
	}
	return n
}

// PlayerIDs returns the set of players placed anywhere in the solution.
func (s *Solution) PlayerIDs() map[string]bool {
	ids := make(map[string]bool, s.TotalAssignments())
	for _, t := range s.Teams {
		for _, a := range t.Assignments {
			ids[a.Player.ID] = true
		}
	}
	return ids
}

// UnusedPlayers returns pool members absent from the solution, preserving
// input order.
func (s *Solution) UnusedPlayers(all []*Player) []*Player {
	used := s.PlayerIDs()
	unused := make([]*Player, 0)
	for _, pl := range all {
		if !used[pl.ID] {
			unused = append(unused, pl)
		}
	}
	return unused
}

// CompositionViolations sums, over every team and role, how far the team's
// role count deviates from the requirement. Zero means fully compliant.
func (s *Solution) CompositionViolations(composition map[string]int) int {
	total := 0
	for _, t := range s.Teams {
		counts := make(map[string]int, len(composition))
		for _, a := range t.Assignments {
			counts[a.Role]++
		}
		for role, required := range composition {
			diff := counts[role] - required
			if diff < 0 {
				diff = -diff
			}
			total += diff
		}
		// Roles present on the team but absent from the composition are
		// pure surplus.
		for role, n := range counts {
			if _, ok := composition[role]; !ok {
				total += n
			}
		}
	}
	return total
}

// SatisfiesComposition reports whether every team matches the requirement
// exactly.
func (s *Solution) SatisfiesComposition(composition map[string]int) bool {
	return s.CompositionViolations(composition) == 0
}

// SortForPresentation orders teams strongest first and, inside each team,
// players by role display order then rating descending. Ties fall back to
// player ID so output is stable across runs.
func (s *Solution) SortForPresentation(p *Problem) {
	strengths := p.Evaluator.TeamStrengths(s)
	idx := make([]int, len(s.Teams))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return strengths[idx[i]] > strengths[idx[j]]
	})
	ordered := make([]*Team, len(s.Teams))
	for i, from := range idx {
		ordered[i] = s.Teams[from]
	}
	s.Teams = ordered

	for _, t := range s.Teams {
		sort.SliceStable(t.Assignments, func(i, j int) bool {
			a, b := t.Assignments[i], t.Assignments[j]
			oi, oj := p.RoleOrderIndex(a.Role), p.RoleOrderIndex(b.Role)
			if oi != oj {
				return oi < oj
			}
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.Player.ID < b.Player.ID
		})
	}
}
