package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avpv/volleyrank-sub002/internal/models"
	"github.com/avpv/volleyrank-sub002/internal/optimizer"
	"github.com/avpv/volleyrank-sub002/internal/services"
	"github.com/avpv/volleyrank-sub002/pkg/config"
	"github.com/avpv/volleyrank-sub002/pkg/logger"
	"github.com/avpv/volleyrank-sub002/pkg/utils"
)

// TeamsHandler exposes the optimization engine over HTTP.
type TeamsHandler struct {
	engine *optimizer.TeamOptimizer
	cache  *services.OptimizationCache
	jobs   *services.JobStore
	cfg    *config.Config
	logger *logrus.Logger
}

func NewTeamsHandler(engine *optimizer.TeamOptimizer, cache *services.OptimizationCache, jobs *services.JobStore, cfg *config.Config, log *logrus.Logger) *TeamsHandler {
	return &TeamsHandler{
		engine: engine,
		cache:  cache,
		jobs:   jobs,
		cfg:    cfg,
		logger: log,
	}
}

// OptimizeTeams handles POST /api/v1/teams/optimize. Identical requests are
// answered from cache when one is configured.
func (h *TeamsHandler) OptimizeTeams(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request payload", err.Error())
		return
	}

	var cacheKey string
	if h.cache != nil {
		key, err := h.cache.Key(req)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to build cache key")
		} else {
			cacheKey = key
			var cached optimizer.Result
			hit, err := h.cache.Get(c.Request.Context(), key, &cached)
			if err != nil {
				h.logger.WithError(err).Warn("Cache lookup failed")
			} else if hit {
				cached.Cached = true
				utils.SendSuccess(c, cached)
				return
			}
		}
	}

	timeout := time.Duration(h.cfg.OptimizationTimeout) * time.Second
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	result, err := h.engine.Optimize(ctx, req.ToEngineRequest())
	if err != nil {
		var vf *optimizer.ValidationFailure
		if errors.As(err, &vf) {
			utils.SendError(c, http.StatusBadRequest,
				utils.NewAppError(utils.ErrCodeInfeasible, "Composition is not satisfiable", vf.Error()))
			return
		}
		h.logger.WithError(err).Error("Optimization failed")
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeOptimization, "Optimization failed", err.Error()))
		return
	}

	if h.cache != nil && cacheKey != "" {
		if err := h.cache.Set(c.Request.Context(), cacheKey, result); err != nil {
			logger.WithOptimization(result.RequestID).WithError(err).Warn("Failed to cache optimization result")
		}
	}

	utils.SendSuccess(c, result)
}

// ValidateComposition handles POST /api/v1/teams/validate. It reports every
// feasibility problem without running any search.
func (h *TeamsHandler) ValidateComposition(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request payload", err.Error())
		return
	}
	result := h.engine.Validate(req.Composition, req.TeamCount, models.ToEnginePlayers(req.Players))
	utils.SendSuccess(c, result)
}

// OptimizeTeamsAsync handles POST /api/v1/teams/optimize/async. The job ID
// doubles as the WebSocket subscription key for progress streaming.
func (h *TeamsHandler) OptimizeTeamsAsync(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request payload", err.Error())
		return
	}

	job := h.jobs.Create()
	go h.runJob(job.ID, req)

	utils.SendAccepted(c, models.JobResponse{JobID: job.ID, Status: string(services.JobPending)})
}

func (h *TeamsHandler) runJob(jobID string, req models.OptimizeRequest) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithJob(jobID).Errorf("Optimization job panicked: %v", r)
			h.jobs.Fail(jobID, "internal error")
		}
	}()

	timeout := time.Duration(h.cfg.OptimizationTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h.jobs.MarkRunning(jobID)

	engineReq := req.ToEngineRequest()
	engineReq.RequestID = jobID
	result, err := h.engine.Optimize(ctx, engineReq)
	if err != nil {
		h.jobs.Fail(jobID, err.Error())
		return
	}
	h.jobs.Complete(jobID, result)
}

// GetOptimizationJob handles GET /api/v1/teams/jobs/:id.
func (h *TeamsHandler) GetOptimizationJob(c *gin.Context) {
	job, ok := h.jobs.Get(c.Param("id"))
	if !ok {
		utils.SendNotFound(c, "Job not found")
		return
	}
	utils.SendSuccess(c, job)
}

// ListAlgorithms handles GET /api/v1/algorithms.
func (h *TeamsHandler) ListAlgorithms(c *gin.Context) {
	utils.SendSuccess(c, gin.H{
		"algorithms": h.engine.Algorithms(),
		"defaults":   h.engine.Options(),
	})
}
