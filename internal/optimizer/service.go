package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options carries every engine tunable. Zero values are replaced by
// DefaultOptions at construction, so a partially filled struct is fine.
type Options struct {
	Seed       int64    `json:"seed"`
	Algorithms []string `json:"algorithms,omitempty"`

	VarianceWeight float64 `json:"variance_weight"`
	PositionWeight float64 `json:"position_weight"`

	LocalSearchIterations int `json:"local_search_iterations"`
	RefineIterations      int `json:"refine_iterations"`

	AnnealingIterations  int     `json:"annealing_iterations"`
	AnnealingInitialTemp float64 `json:"annealing_initial_temp"`
	AnnealingCooling     float64 `json:"annealing_cooling"`
	AnnealingReheatAfter int     `json:"annealing_reheat_after"`

	TabuIterations     int `json:"tabu_iterations"`
	TabuTenure         int `json:"tabu_tenure"`
	TabuNeighbors      int `json:"tabu_neighbors"`
	TabuRestarts       int `json:"tabu_restarts"`
	TabuDiversifyAfter int `json:"tabu_diversify_after"`

	GAPopulation      int     `json:"ga_population"`
	GAGenerations     int     `json:"ga_generations"`
	GAEliteCount      int     `json:"ga_elite_count"`
	GATournamentSize  int     `json:"ga_tournament_size"`
	GAMutationRate    float64 `json:"ga_mutation_rate"`
	GAStagnationLimit int     `json:"ga_stagnation_limit"`

	ACOAnts        int     `json:"aco_ants"`
	ACOIterations  int     `json:"aco_iterations"`
	ACOAlpha       float64 `json:"aco_alpha"`
	ACOBeta        float64 `json:"aco_beta"`
	ACOEvaporation float64 `json:"aco_evaporation"`
	ACODeposit     float64 `json:"aco_deposit"`

	CPBacktrackLimit int `json:"cp_backtrack_limit"`
}

func DefaultOptions() Options {
	return Options{
		VarianceWeight:        1.0,
		PositionWeight:        0.5,
		LocalSearchIterations: 3000,
		RefineIterations:      1500,
		AnnealingIterations:   5000,
		AnnealingInitialTemp:  60.0,
		AnnealingCooling:      0.995,
		AnnealingReheatAfter:  400,
		TabuIterations:        1500,
		TabuTenure:            40,
		TabuNeighbors:         8,
		TabuRestarts:          3,
		TabuDiversifyAfter:    150,
		GAPopulation:          30,
		GAGenerations:         120,
		GAEliteCount:          4,
		GATournamentSize:      3,
		GAMutationRate:        0.3,
		GAStagnationLimit:     20,
		ACOAnts:               12,
		ACOIterations:         60,
		ACOAlpha:              1.0,
		ACOBeta:               2.0,
		ACOEvaporation:        0.1,
		ACODeposit:            100.0,
		CPBacktrackLimit:      50000,
	}
}

// mergeDefaults fills zero-valued tunables so callers can override only what
// they care about.
func mergeDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.VarianceWeight == 0 {
		opts.VarianceWeight = def.VarianceWeight
	}
	if opts.PositionWeight == 0 {
		opts.PositionWeight = def.PositionWeight
	}
	if opts.LocalSearchIterations == 0 {
		opts.LocalSearchIterations = def.LocalSearchIterations
	}
	if opts.RefineIterations == 0 {
		opts.RefineIterations = def.RefineIterations
	}
	if opts.AnnealingIterations == 0 {
		opts.AnnealingIterations = def.AnnealingIterations
	}
	if opts.AnnealingInitialTemp == 0 {
		opts.AnnealingInitialTemp = def.AnnealingInitialTemp
	}
	if opts.AnnealingCooling == 0 {
		opts.AnnealingCooling = def.AnnealingCooling
	}
	if opts.AnnealingReheatAfter == 0 {
		opts.AnnealingReheatAfter = def.AnnealingReheatAfter
	}
	if opts.TabuIterations == 0 {
		opts.TabuIterations = def.TabuIterations
	}
	if opts.TabuTenure == 0 {
		opts.TabuTenure = def.TabuTenure
	}
	if opts.TabuNeighbors == 0 {
		opts.TabuNeighbors = def.TabuNeighbors
	}
	if opts.TabuRestarts == 0 {
		opts.TabuRestarts = def.TabuRestarts
	}
	if opts.TabuDiversifyAfter == 0 {
		opts.TabuDiversifyAfter = def.TabuDiversifyAfter
	}
	if opts.GAPopulation == 0 {
		opts.GAPopulation = def.GAPopulation
	}
	if opts.GAGenerations == 0 {
		opts.GAGenerations = def.GAGenerations
	}
	if opts.GAEliteCount == 0 {
		opts.GAEliteCount = def.GAEliteCount
	}
	if opts.GATournamentSize == 0 {
		opts.GATournamentSize = def.GATournamentSize
	}
	if opts.GAMutationRate == 0 {
		opts.GAMutationRate = def.GAMutationRate
	}
	if opts.GAStagnationLimit == 0 {
		opts.GAStagnationLimit = def.GAStagnationLimit
	}
	if opts.ACOAnts == 0 {
		opts.ACOAnts = def.ACOAnts
	}
	if opts.ACOIterations == 0 {
		opts.ACOIterations = def.ACOIterations
	}
	if opts.ACOAlpha == 0 {
		opts.ACOAlpha = def.ACOAlpha
	}
	if opts.ACOBeta == 0 {
		opts.ACOBeta = def.ACOBeta
	}
	if opts.ACOEvaporation == 0 {
		opts.ACOEvaporation = def.ACOEvaporation
	}
	if opts.ACODeposit == 0 {
		opts.ACODeposit = def.ACODeposit
	}
	if opts.CPBacktrackLimit == 0 {
		opts.CPBacktrackLimit = def.CPBacktrackLimit
	}
	return opts
}

// Request is one optimization job.
type Request struct {
	RequestID   string
	Composition map[string]int
	TeamCount   int
	Roles       []Role
	Players     []Player
	Algorithms  []string
	Seed        int64
}

// PlacedPlayer is one roster line in the response.
type PlacedPlayer struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Rating float64 `json:"rating"`
}

type TeamResult struct {
	Strength float64        `json:"strength"`
	Players  []PlacedPlayer `json:"players"`
}

// Result is the full optimization outcome. Seed is echoed so callers can
// reproduce the run exactly.
type Result struct {
	RequestID     string       `json:"request_id"`
	Teams         []TeamResult `json:"teams"`
	Balance       Balance      `json:"balance"`
	UnusedPlayers []Player     `json:"unused_players"`
	Algorithm     string       `json:"algorithm"`
	Seed          int64        `json:"seed"`
	Statistics    []Stats      `json:"statistics"`
	DurationMs    int64        `json:"duration_ms"`
	Cached        bool         `json:"cached"`
}

type ValidationError struct {
	Role      string `json:"role,omitempty"`
	Required  int    `json:"required,omitempty"`
	Available int    `json:"available,omitempty"`
	Message   string `json:"message"`
}

type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// ValidationFailure wraps validation errors so handlers can map them to a
// client error instead of a server error.
type ValidationFailure struct {
	Result ValidationResult
}

func (e *ValidationFailure) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors))
	for _, ve := range e.Result.Errors {
		msgs = append(msgs, ve.Message)
	}
	return "invalid composition: " + strings.Join(msgs, "; ")
}

// ProgressEvent is a live status update for one request.
type ProgressEvent struct {
	RequestID string  `json:"request_id"`
	Stage     string  `json:"stage"`
	Algorithm string  `json:"algorithm,omitempty"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Score     float64 `json:"score,omitempty"`
}

// ProgressSink receives progress events. Publish is called from multiple
// goroutines and must not block the search.
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// TeamOptimizer runs the whole pipeline: validate, seed, race the algorithm
// ensemble, refine the winner, shape the result.
type TeamOptimizer struct {
	opts     Options
	log      *logrus.Logger
	progress ProgressSink
}

func NewTeamOptimizer(opts Options, log *logrus.Logger, progress ProgressSink) *TeamOptimizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TeamOptimizer{opts: mergeDefaults(opts), log: log, progress: progress}
}

// Options returns the effective tunables after defaulting.
func (o *TeamOptimizer) Options() Options {
	return o.opts
}

func (o *TeamOptimizer) publish(ev ProgressEvent) {
	if o.progress != nil {
		o.progress.Publish(ev)
	}
}

// canonical algorithm IDs, in result tie-break order.
var algorithmIDs = []string{"local_search", "annealing", "tabu", "genetic", "ant_colony", "constraint"}

var algorithmAliases = map[string]string{
	"ls":                     "local_search",
	"localsearch":            "local_search",
	"hill_climbing":          "local_search",
	"sa":                     "annealing",
	"simulated_annealing":    "annealing",
	"tabu_search":            "tabu",
	"ga":                     "genetic",
	"genetic_algorithm":      "genetic",
	"aco":                    "ant_colony",
	"ant":                    "ant_colony",
	"cp":                     "constraint",
	"constraint_programming": "constraint",
}

func normalizeAlgorithmID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, "-", "_")
	if mapped, ok := algorithmAliases[id]; ok {
		return mapped
	}
	return id
}

func (o *TeamOptimizer) newAlgorithm(id string) Algorithm {
	switch id {
	case "local_search":
		return &LocalSearch{Iterations: o.opts.LocalSearchIterations}
	case "annealing":
		return &Annealing{
			Iterations:  o.opts.AnnealingIterations,
			InitialTemp: o.opts.AnnealingInitialTemp,
			Cooling:     o.opts.AnnealingCooling,
			ReheatAfter: o.opts.AnnealingReheatAfter,
		}
	case "tabu":
		return &TabuSearch{
			Iterations:     o.opts.TabuIterations,
			Tenure:         o.opts.TabuTenure,
			Neighbors:      o.opts.TabuNeighbors,
			Restarts:       o.opts.TabuRestarts,
			DiversifyAfter: o.opts.TabuDiversifyAfter,
		}
	case "genetic":
		return &Genetic{
			PopulationSize:  o.opts.GAPopulation,
			Generations:     o.opts.GAGenerations,
			EliteCount:      o.opts.GAEliteCount,
			TournamentSize:  o.opts.GATournamentSize,
			MutationRate:    o.opts.GAMutationRate,
			StagnationLimit: o.opts.GAStagnationLimit,
		}
	case "ant_colony":
		return &AntColony{
			Ants:             o.opts.ACOAnts,
			Iterations:       o.opts.ACOIterations,
			Alpha:            o.opts.ACOAlpha,
			Beta:             o.opts.ACOBeta,
			Evaporation:      o.opts.ACOEvaporation,
			Deposit:          o.opts.ACODeposit,
			InitialPheromone: 1.0,
			MinPheromone:     0.01,
			MaxPheromone:     100.0,
			ElitistWeight:    2.0,
		}
	case "constraint":
		return &ConstraintSolver{BacktrackLimit: o.opts.CPBacktrackLimit}
	}
	return nil
}

// AlgorithmInfo pairs the request ID callers pass with the display name.
type AlgorithmInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (o *TeamOptimizer) Algorithms() []AlgorithmInfo {
	infos := make([]AlgorithmInfo, 0, len(algorithmIDs))
	for _, id := range algorithmIDs {
		infos = append(infos, AlgorithmInfo{ID: id, Name: o.newAlgorithm(id).Name()})
	}
	return infos
}

// buildAlgorithms resolves the requested subset, ignoring unknown names.
// An empty or fully unknown selection means "run everything".
func (o *TeamOptimizer) buildAlgorithms(requested []string) []Algorithm {
	selected := make(map[string]bool, len(requested))
	for _, raw := range requested {
		id := normalizeAlgorithmID(raw)
		if o.newAlgorithm(id) == nil {
			o.log.WithField("algorithm", raw).Warn("Unknown algorithm requested, skipping")
			continue
		}
		selected[id] = true
	}

	algos := make([]Algorithm, 0, len(algorithmIDs))
	for _, id := range algorithmIDs {
		if len(selected) == 0 || selected[id] {
			algos = append(algos, o.newAlgorithm(id))
		}
	}
	return algos
}

// Validate checks whether the pool can populate teamCount teams under the
// composition. It collects every problem rather than stopping at the first.
func (o *TeamOptimizer) Validate(composition map[string]int, teamCount int, players []Player) ValidationResult {
	errs := []ValidationError{}

	if teamCount < 1 {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("team count must be at least 1, got %d", teamCount),
		})
	}

	teamSize := 0
	for _, n := range composition {
		if n > 0 {
			teamSize += n
		}
	}
	if teamSize == 0 {
		errs = append(errs, ValidationError{
			Message: "composition must require at least one player per team",
		})
	}

	if teamCount >= 1 {
		roles := make([]string, 0, len(composition))
		for role, n := range composition {
			if n > 0 {
				roles = append(roles, role)
			}
		}
		sort.Strings(roles)
		for _, role := range roles {
			need := composition[role] * teamCount
			avail := 0
			for i := range players {
				if players[i].CanPlay(role) {
					avail++
				}
			}
			if avail < need {
				errs = append(errs, ValidationError{
					Role:      role,
					Required:  need,
					Available: avail,
					Message:   fmt.Sprintf("position %s needs %d players, only %d available", role, need, avail),
				})
			}
		}

		total := teamSize * teamCount
		if len(players) < total {
			errs = append(errs, ValidationError{
				Required:  total,
				Available: len(players),
				Message:   fmt.Sprintf("%d teams need %d players total, only %d available", teamCount, total, len(players)),
			})
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Optimize runs the full pipeline. It returns *ValidationFailure for
// unsatisfiable requests and otherwise always produces a result, even when
// the context expires mid-search: algorithms surrender their best-so-far.
func (o *TeamOptimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := o.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"team_count": req.TeamCount,
		"players":    len(req.Players),
	})
	log.Info("Starting team optimization")

	o.publish(ProgressEvent{RequestID: requestID, Stage: "validating"})
	validation := o.Validate(req.Composition, req.TeamCount, req.Players)
	if !validation.IsValid {
		log.WithField("errors", len(validation.Errors)).Warn("Optimization request rejected by validation")
		return nil, &ValidationFailure{Result: validation}
	}

	seed := req.Seed
	if seed == 0 {
		seed = o.opts.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ev := NewEvaluator(req.Roles, o.opts.VarianceWeight, o.opts.PositionWeight)
	prob := NewProblem(req.Composition, req.TeamCount, req.Roles, req.Players, ev, log)

	o.publish(ProgressEvent{RequestID: requestID, Stage: "generating"})
	generators := DefaultGenerators()
	seedSols := make([]*Solution, 0, len(generators))
	for i, g := range generators {
		rng := rand.New(rand.NewSource(seed + 1 + int64(i)))
		seedSols = append(seedSols, g.Generate(prob, rng))
	}

	requested := req.Algorithms
	if len(requested) == 0 {
		requested = o.opts.Algorithms
	}
	algos := o.buildAlgorithms(requested)

	type taskResult struct {
		sol   *Solution
		stats Stats
		err   error
	}
	results := make([]taskResult, len(algos))

	o.publish(ProgressEvent{RequestID: requestID, Stage: "searching", Total: len(algos)})
	var wg sync.WaitGroup
	var completed int32
	for i, alg := range algos {
		wg.Add(1)
		go func(idx int, alg Algorithm) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = taskResult{err: fmt.Errorf("%s panicked: %v", alg.Name(), r)}
					log.WithField("algorithm", alg.Name()).Errorf("Algorithm panicked: %v", r)
				}
				n := atomic.AddInt32(&completed, 1)
				o.publish(ProgressEvent{
					RequestID: requestID,
					Stage:     "algorithm_completed",
					Algorithm: alg.Name(),
					Completed: int(n),
					Total:     len(algos),
					Score:     results[idx].stats.BestScore,
				})
			}()
			rng := rand.New(rand.NewSource(seed + 100 + int64(idx)))
			sol, stats, err := alg.Solve(ctx, prob.Clone(), cloneSolutions(seedSols), rng)
			results[idx] = taskResult{sol: sol, stats: stats, err: err}
		}(i, alg)
	}
	wg.Wait()

	statistics := make([]Stats, 0, len(algos)+1)
	var winner *Solution
	winnerScore := math.Inf(1)
	winnerName := ""
	for _, res := range results {
		if res.err != nil {
			log.WithError(res.err).Warn("Algorithm task failed")
			continue
		}
		if res.sol == nil {
			continue
		}
		statistics = append(statistics, res.stats)
		name := res.stats.Algorithm
		if res.stats.FellBack {
			// The solver abandoned its own strategy, so the result must
			// not claim its name.
			name = "Greedy"
		}
		if score := ev.Score(res.sol); score < winnerScore {
			winner, winnerScore, winnerName = res.sol, score, name
		}
	}
	if winner == nil {
		log.Error("Every algorithm task failed, returning greedy seed")
		winner = seedSols[0].Clone()
		winnerScore = ev.Score(winner)
		winnerName = "Greedy"
	}

	if o.opts.RefineIterations > 0 {
		o.publish(ProgressEvent{RequestID: requestID, Stage: "refining", Completed: len(algos), Total: len(algos)})
		refiner := &LocalSearch{Iterations: o.opts.RefineIterations}
		rng := rand.New(rand.NewSource(seed + 997))
		refined, refineStats, err := refiner.Solve(ctx, prob.Clone(), []*Solution{winner}, rng)
		if err == nil && refined != nil {
			refineStats.Algorithm = "Refinement"
			statistics = append(statistics, refineStats)
			if score := ev.Score(refined); score <= winnerScore {
				winner, winnerScore = refined, score
			}
		}
	}

	winner.SortForPresentation(prob)

	teams := make([]TeamResult, len(winner.Teams))
	for i, t := range winner.Teams {
		tr := TeamResult{
			Strength: ev.TeamStrength(t),
			Players:  make([]PlacedPlayer, 0, len(t.Assignments)),
		}
		for _, a := range t.Assignments {
			tr.Players = append(tr.Players, PlacedPlayer{
				ID:     a.Player.ID,
				Name:   a.Player.Name,
				Role:   a.Role,
				Rating: a.Rating,
			})
		}
		teams[i] = tr
	}

	unusedPtrs := winner.UnusedPlayers(prob.Players)
	unused := make([]Player, 0, len(unusedPtrs))
	for _, pl := range unusedPtrs {
		unused = append(unused, *pl)
	}

	result := &Result{
		RequestID:     requestID,
		Teams:         teams,
		Balance:       ev.Balance(winner),
		UnusedPlayers: unused,
		Algorithm:     winnerName,
		Seed:          seed,
		Statistics:    statistics,
		DurationMs:    time.Since(start).Milliseconds(),
	}

	log.WithFields(logrus.Fields{
		"algorithm":   winnerName,
		"score":       winnerScore,
		"duration_ms": result.DurationMs,
	}).Info("Team optimization completed")
	o.publish(ProgressEvent{
		RequestID: requestID,
		Stage:     "completed",
		Completed: len(algos),
		Total:     len(algos),
		Score:     winnerScore,
	})
	return result, nil
}

func cloneSolutions(sols []*Solution) []*Solution {
	out := make([]*Solution, len(sols))
	for i, s := range sols {
		out[i] = s.Clone()
	}
	return out
}
