package models

import (
	"github.com/avpv/volleyrank-sub002/internal/optimizer"
)

// RoleInput declares a position and its scoring weight.
type RoleInput struct {
	Code   string  `json:"code" binding:"required"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight" binding:"omitempty,gte=0"`
	Order  int     `json:"order"`
}

// PlayerInput is one pool member as submitted by the client. Ratings are
// per-role; missing entries fall back to the engine default.
type PlayerInput struct {
	ID      string             `json:"id" binding:"required"`
	Name    string             `json:"name"`
	Roles   []string           `json:"roles" binding:"required,min=1"`
	Ratings map[string]float64 `json:"ratings"`
}

// OptimizeRequest is the payload for synchronous and async optimization.
// Roles may be omitted when every weight is 1.0 and display order does not
// matter. Seed zero means "derive one from the clock".
type OptimizeRequest struct {
	TeamCount   int            `json:"team_count" binding:"required,min=1"`
	Composition map[string]int `json:"composition" binding:"required"`
	Roles       []RoleInput    `json:"roles"`
	Players     []PlayerInput  `json:"players" binding:"required,min=1,dive"`
	Algorithms  []string       `json:"algorithms"`
	Seed        int64          `json:"seed"`
}

// ValidateRequest checks feasibility without running a search.
type ValidateRequest struct {
	TeamCount   int            `json:"team_count" binding:"required,min=1"`
	Composition map[string]int `json:"composition" binding:"required"`
	Players     []PlayerInput  `json:"players" binding:"required,dive"`
}

// JobResponse acknowledges an accepted async optimization.
type JobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ToEngineRequest converts the transport shape into engine types.
func (r *OptimizeRequest) ToEngineRequest() optimizer.Request {
	return optimizer.Request{
		Composition: r.Composition,
		TeamCount:   r.TeamCount,
		Roles:       toEngineRoles(r.Roles),
		Players:     ToEnginePlayers(r.Players),
		Algorithms:  r.Algorithms,
		Seed:        r.Seed,
	}
}

func toEngineRoles(roles []RoleInput) []optimizer.Role {
	out := make([]optimizer.Role, 0, len(roles))
	for _, r := range roles {
		name := r.Name
		if name == "" {
			name = r.Code
		}
		out = append(out, optimizer.Role{
			Code:   r.Code,
			Name:   name,
			Weight: r.Weight,
			Order:  r.Order,
		})
	}
	return out
}

// ToEnginePlayers is shared by the optimize and validate paths.
func ToEnginePlayers(players []PlayerInput) []optimizer.Player {
	out := make([]optimizer.Player, 0, len(players))
	for _, p := range players {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		out = append(out, optimizer.Player{
			ID:      p.ID,
			Name:    name,
			Roles:   p.Roles,
			Ratings: p.Ratings,
		})
	}
	return out
}
