package optimizer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Evaluator scores solutions. Lower is better, zero is a perfectly even
// split. It carries no mutable state and is safe for concurrent use.
type Evaluator struct {
	VarianceWeight float64
	PositionWeight float64

	weights map[string]float64
}

func NewEvaluator(roles []Role, varianceWeight, positionWeight float64) *Evaluator {
	e := &Evaluator{
		VarianceWeight: varianceWeight,
		PositionWeight: positionWeight,
		weights:        make(map[string]float64, len(roles)),
	}
	for _, r := range roles {
		w := r.Weight
		if w <= 0 {
			w = 1.0
		}
		e.weights[r.Code] = w
	}
	return e
}

// RoleWeight returns the configured weight for a role, defaulting to 1.0.
func (e *Evaluator) RoleWeight(code string) float64 {
	if w, ok := e.weights[code]; ok {
		return w
	}
	return 1.0
}

// TeamStrength is the weighted mean rating of a team's assignments. An empty
// team has zero strength.
func (e *Evaluator) TeamStrength(t *Team) float64 {
	if t == nil || len(t.Assignments) == 0 {
		return 0
	}
	var sum, wsum float64
	for _, a := range t.Assignments {
		w := e.RoleWeight(a.Role)
		sum += a.Rating * w
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// TeamStrengths computes the strength of every team in order.
func (e *Evaluator) TeamStrengths(s *Solution) []float64 {
	strengths := make([]float64, len(s.Teams))
	for i, t := range s.Teams {
		strengths[i] = e.TeamStrength(t)
	}
	return strengths
}

// PositionImbalance sums, per role, the spread between the strongest and
// weakest team on that role's weighted rating total.
func (e *Evaluator) PositionImbalance(s *Solution) float64 {
	totals := make(map[string][]float64)
	for ti, t := range s.Teams {
		for _, a := range t.Assignments {
			arr, ok := totals[a.Role]
			if !ok {
				arr = make([]float64, len(s.Teams))
				totals[a.Role] = arr
			}
			arr[ti] += a.Rating * e.RoleWeight(a.Role)
		}
	}
	// Float addition is not associative, so the spreads must accumulate in
	// a fixed role order for identical solutions to score bit-identically.
	codes := make([]string, 0, len(totals))
	for code := range totals {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	imbalance := 0.0
	for _, code := range codes {
		arr := totals[code]
		imbalance += floats.Max(arr) - floats.Min(arr)
	}
	return imbalance
}

// Score collapses a solution to a single comparable number:
// strength spread, plus standard deviation scaled by VarianceWeight, plus
// positional imbalance scaled by PositionWeight. Degenerate solutions score
// +Inf so they lose every comparison.
func (e *Evaluator) Score(s *Solution) float64 {
	if s == nil || len(s.Teams) == 0 || s.TotalAssignments() == 0 {
		return math.Inf(1)
	}
	strengths := e.TeamStrengths(s)
	for _, v := range strengths {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1)
		}
	}

	spread := floats.Max(strengths) - floats.Min(strengths)
	deviation := math.Sqrt(stat.PopVariance(strengths, nil))

	score := spread + deviation*e.VarianceWeight
	if e.PositionWeight > 0 {
		score += e.PositionImbalance(s) * e.PositionWeight
	}
	if math.IsNaN(score) {
		return math.Inf(1)
	}
	return score
}

// Balance is the human-facing summary of how even a solution is.
type Balance struct {
	Difference    float64   `json:"difference"`
	Variance      float64   `json:"variance"`
	StdDev        float64   `json:"std_dev"`
	TeamStrengths []float64 `json:"team_strengths"`
}

func (e *Evaluator) Balance(s *Solution) Balance {
	strengths := e.TeamStrengths(s)
	if len(strengths) == 0 {
		return Balance{TeamStrengths: []float64{}}
	}
	variance := stat.PopVariance(strengths, nil)
	return Balance{
		Difference:    floats.Max(strengths) - floats.Min(strengths),
		Variance:      variance,
		StdDev:        math.Sqrt(variance),
		TeamStrengths: strengths,
	}
}
