package optimizer

import "math/rand"

// MoveType enumerates the neighborhood operators.
type MoveType int

const (
	// MoveSwap exchanges two same-role players between two teams.
	MoveSwap MoveType = iota
	// MoveAdaptiveSwap targets the strongest and weakest teams and only
	// swaps when the exchange narrows the gap.
	MoveAdaptiveSwap
	// MoveReorderWithin swaps two same-role slots inside one team. Score
	// neutral, useful only for diversification bookkeeping.
	MoveReorderWithin
	// MoveReorderAcross swaps two arbitrary slots between teams, roles
	// included. The only operator allowed to break composition.
	MoveReorderAcross

	moveTypeCount
)

// Mover applies neighborhood moves to solutions. All moves mutate in place
// and report whether anything changed; callers clone beforehand when they
// need the original.
type Mover struct {
	prob *Problem

	// AdaptiveProb is the chance MoveAdaptiveSwap uses its directed
	// strongest-vs-weakest pairing instead of falling back to a plain swap.
	AdaptiveProb float64
}

func NewMover(p *Problem) *Mover {
	return &Mover{prob: p, AdaptiveProb: 0.7}
}

// ApplyRandom applies one uniformly chosen move.
func (m *Mover) ApplyRandom(s *Solution, rng *rand.Rand) bool {
	return m.Apply(s, MoveType(rng.Intn(int(moveTypeCount))), rng)
}

func (m *Mover) Apply(s *Solution, mt MoveType, rng *rand.Rand) bool {
	switch mt {
	case MoveSwap:
		return m.swap(s, rng)
	case MoveAdaptiveSwap:
		return m.adaptiveSwap(s, rng)
	case MoveReorderWithin:
		return m.reorderWithin(s, rng)
	case MoveReorderAcross:
		return m.reorderAcross(s, rng)
	}
	return false
}

// pickTwoTeams returns two distinct team indices, or false when fewer than
// two teams exist.
func pickTwoTeams(s *Solution, rng *rand.Rand) (int, int, bool) {
	n := len(s.Teams)
	if n < 2 {
		return 0, 0, false
	}
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j, true
}

func (m *Mover) swap(s *Solution, rng *rand.Rand) bool {
	ti, tj, ok := pickTwoTeams(s, rng)
	if !ok {
		return false
	}
	a, b := s.Teams[ti], s.Teams[tj]
	if len(a.Assignments) == 0 || len(b.Assignments) == 0 {
		return false
	}

	// Roles held by both teams, in first-appearance order for determinism.
	seen := make(map[string]bool)
	common := make([]string, 0)
	for _, asg := range a.Assignments {
		if seen[asg.Role] {
			continue
		}
		seen[asg.Role] = true
		if b.RoleCount(asg.Role) > 0 {
			common = append(common, asg.Role)
		}
	}
	if len(common) == 0 {
		return false
	}
	role := common[rng.Intn(len(common))]

	ai := pickRoleSlot(a, role, rng)
	bi := pickRoleSlot(b, role, rng)
	if ai < 0 || bi < 0 {
		return false
	}
	swapSlots(a, ai, b, bi)
	return true
}

// adaptiveSwap directs the exchange at the strength gap: the strongest team
// gives up its weakest player of some role for the weakest team's strongest,
// and only when that strictly lowers the incoming rating. Falls back to a
// plain swap the rest of the time so search never stalls.
func (m *Mover) adaptiveSwap(s *Solution, rng *rand.Rand) bool {
	if len(s.Teams) < 2 || rng.Float64() >= m.AdaptiveProb {
		return m.swap(s, rng)
	}

	strengths := m.prob.Evaluator.TeamStrengths(s)
	strong, weak := 0, 0
	for i, v := range strengths {
		if v > strengths[strong] {
			strong = i
		}
		if v < strengths[weak] {
			weak = i
		}
	}
	if strong == weak {
		return m.swap(s, rng)
	}
	st, wt := s.Teams[strong], s.Teams[weak]

	for _, role := range m.prob.ActiveRoles() {
		si := extremeRoleSlot(st, role, false)
		wi := extremeRoleSlot(wt, role, true)
		if si < 0 || wi < 0 {
			continue
		}
		if wt.Assignments[wi].Rating < st.Assignments[si].Rating {
			swapSlots(st, si, wt, wi)
			return true
		}
	}
	return m.swap(s, rng)
}

func (m *Mover) reorderWithin(s *Solution, rng *rand.Rand) bool {
	if len(s.Teams) == 0 {
		return false
	}
	t := s.Teams[rng.Intn(len(s.Teams))]

	// Roles appearing at least twice on this team.
	counts := make(map[string]int)
	candidates := make([]string, 0)
	for _, asg := range t.Assignments {
		counts[asg.Role]++
		if counts[asg.Role] == 2 {
			candidates = append(candidates, asg.Role)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	role := candidates[rng.Intn(len(candidates))]

	slots := roleSlots(t, role)
	i := rng.Intn(len(slots))
	j := rng.Intn(len(slots) - 1)
	if j >= i {
		j++
	}
	t.Assignments[slots[i]], t.Assignments[slots[j]] = t.Assignments[slots[j]], t.Assignments[slots[i]]
	return true
}

func (m *Mover) reorderAcross(s *Solution, rng *rand.Rand) bool {
	ti, tj, ok := pickTwoTeams(s, rng)
	if !ok {
		return false
	}
	a, b := s.Teams[ti], s.Teams[tj]
	if len(a.Assignments) == 0 || len(b.Assignments) == 0 {
		return false
	}
	ai := rng.Intn(len(a.Assignments))
	bi := rng.Intn(len(b.Assignments))
	a.Assignments[ai], b.Assignments[bi] = b.Assignments[bi], a.Assignments[ai]
	return true
}

func roleSlots(t *Team, role string) []int {
	slots := make([]int, 0, 4)
	for i, a := range t.Assignments {
		if a.Role == role {
			slots = append(slots, i)
		}
	}
	return slots
}

func pickRoleSlot(t *Team, role string, rng *rand.Rand) int {
	slots := roleSlots(t, role)
	if len(slots) == 0 {
		return -1
	}
	return slots[rng.Intn(len(slots))]
}

// extremeRoleSlot finds the strongest (max=true) or weakest slot of a role.
func extremeRoleSlot(t *Team, role string, max bool) int {
	best := -1
	for i, a := range t.Assignments {
		if a.Role != role {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		if max && a.Rating > t.Assignments[best].Rating {
			best = i
		}
		if !max && a.Rating < t.Assignments[best].Rating {
			best = i
		}
	}
	return best
}

// swapSlots exchanges the players occupying two same-role slots. Roles stay
// with the slot, players and their ratings travel.
func swapSlots(a *Team, ai int, b *Team, bi int) {
	a.Assignments[ai].Player, b.Assignments[bi].Player = b.Assignments[bi].Player, a.Assignments[ai].Player
	a.Assignments[ai].Rating, b.Assignments[bi].Rating = b.Assignments[bi].Rating, a.Assignments[ai].Rating
}
