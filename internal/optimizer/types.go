package optimizer

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultRating is assumed for any role a player has no recorded rating for.
const DefaultRating = 1500.0

// Role describes a position players can fill. Weight controls how much the
// role contributes to team strength, Order controls display position.
type Role struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Order  int     `json:"order"`
}

// Player is a read-only pool member holding an independent rating per
// eligible role. The engine never mutates player data.
type Player struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Roles   []string           `json:"roles"`
	Ratings map[string]float64 `json:"ratings,omitempty"`
}

// Rating returns the player's rating under the given role, or DefaultRating
// when none is recorded.
func (p *Player) Rating(role string) float64 {
	if r, ok := p.Ratings[role]; ok {
		return r
	}
	return DefaultRating
}

// CanPlay reports whether the player is eligible for the role.
func (p *Player) CanPlay(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSpecialist reports whether the player is eligible for exactly one role.
func (p *Player) IsSpecialist() bool {
	return len(p.Roles) == 1
}

// Assignment places one player under one specific role. The same player may
// carry a different rating under each of their eligible roles.
type Assignment struct {
	Player *Player
	Role   string
	Rating float64
}

// Team is an ordered list of assignments.
type Team struct {
	Assignments []Assignment
}

func (t *Team) Add(a Assignment) {
	t.Assignments = append(t.Assignments, a)
}

func (t *Team) Size() int {
	return len(t.Assignments)
}

// RoleCount returns how many assignments the team holds for the role.
func (t *Team) RoleCount(role string) int {
	n := 0
	for _, a := range t.Assignments {
		if a.Role == role {
			n++
		}
	}
	return n
}

// Problem is the immutable description of one optimization request. It is
// built once per optimize call; algorithms receive their own copy so no two
// concurrent tasks share mutable state.
type Problem struct {
	Composition map[string]int
	TeamCount   int
	Roles       []Role
	Pools       map[string][]*Player
	Players     []*Player
	Evaluator   *Evaluator
	Log         *logrus.Entry

	activeRoles []string
	roleIndex   map[string]int
}

// NewProblem indexes the player pool by eligible role and fixes a
// deterministic role and pool ordering. Roles missing from the provided list
// but present in the composition are synthesized with weight 1.0.
func NewProblem(composition map[string]int, teamCount int, roles []Role, players []Player, ev *Evaluator, log *logrus.Entry) *Problem {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	known := make(map[string]bool, len(roles))
	ordered := make([]Role, len(roles))
	copy(ordered, roles)
	for _, r := range roles {
		known[r.Code] = true
	}

	// Synthesize roles the composition references but the caller omitted.
	missing := make([]string, 0)
	for code := range composition {
		if !known[code] {
			missing = append(missing, code)
		}
	}
	sort.Strings(missing)
	for _, code := range missing {
		ordered = append(ordered, Role{Code: code, Name: code, Weight: 1.0})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	p := &Problem{
		Composition: make(map[string]int, len(composition)),
		TeamCount:   teamCount,
		Roles:       ordered,
		Pools:       make(map[string][]*Player),
		Players:     make([]*Player, 0, len(players)),
		Evaluator:   ev,
		Log:         log,
		roleIndex:   make(map[string]int, len(ordered)),
	}
	for code, n := range composition {
		p.Composition[code] = n
	}
	for i, r := range ordered {
		p.roleIndex[r.Code] = i
		if p.Composition[r.Code] > 0 {
			p.activeRoles = append(p.activeRoles, r.Code)
		}
	}

	for i := range players {
		pl := players[i]
		p.Players = append(p.Players, &pl)
	}
	for _, pl := range p.Players {
		for _, code := range pl.Roles {
			if p.Composition[code] > 0 {
				p.Pools[code] = append(p.Pools[code], pl)
			}
		}
	}

	// Pools sorted strongest first; ID break keeps runs reproducible.
	for code := range p.Pools {
		pool := p.Pools[code]
		sort.SliceStable(pool, func(i, j int) bool {
			ri, rj := pool[i].Rating(code), pool[j].Rating(code)
			if ri != rj {
				return ri > rj
			}
			return pool[i].ID < pool[j].ID
		})
	}

	return p
}

// Clone copies every mutable container. Player values are shared because they
// are read-only by contract.
func (p *Problem) Clone() *Problem {
	cp := &Problem{
		Composition: make(map[string]int, len(p.Composition)),
		TeamCount:   p.TeamCount,
		Roles:       append([]Role(nil), p.Roles...),
		Pools:       make(map[string][]*Player, len(p.Pools)),
		Players:     append([]*Player(nil), p.Players...),
		Evaluator:   p.Evaluator,
		Log:         p.Log,
		activeRoles: append([]string(nil), p.activeRoles...),
		roleIndex:   make(map[string]int, len(p.roleIndex)),
	}
	for k, v := range p.Composition {
		cp.Composition[k] = v
	}
	for k, v := range p.Pools {
		cp.Pools[k] = append([]*Player(nil), v...)
	}
	for k, v := range p.roleIndex {
		cp.roleIndex[k] = v
	}
	return cp
}

// ActiveRoles returns the codes with a positive requirement, in display order.
func (p *Problem) ActiveRoles() []string {
	return p.activeRoles
}

// RoleOrderIndex returns the display position of a role, or a large index for
// unknown codes so they sort last.
func (p *Problem) RoleOrderIndex(code string) int {
	if i, ok := p.roleIndex[code]; ok {
		return i
	}
	return len(p.Roles)
}

// TeamSize is the number of players one team requires.
func (p *Problem) TeamSize() int {
	total := 0
	for _, n := range p.Composition {
		total += n
	}
	return total
}
