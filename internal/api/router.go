package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avpv/volleyrank-sub002/internal/api/handlers"
	"github.com/avpv/volleyrank-sub002/internal/api/middleware"
	"github.com/avpv/volleyrank-sub002/internal/optimizer"
	"github.com/avpv/volleyrank-sub002/internal/services"
	"github.com/avpv/volleyrank-sub002/internal/websocket"
	"github.com/avpv/volleyrank-sub002/pkg/config"
)

// SetupRoutes wires every API endpoint onto the given group. The cache may
// be nil when Redis is disabled or unreachable; handlers degrade gracefully.
func SetupRoutes(group *gin.RouterGroup, engine *optimizer.TeamOptimizer, cache *services.OptimizationCache, jobs *services.JobStore, hub *websocket.Hub, cfg *config.Config, logger *logrus.Logger) {
	teamsHandler := handlers.NewTeamsHandler(engine, cache, jobs, cfg, logger)
	adminHandler := handlers.NewAdminHandler(cache, logger)

	// Team optimization endpoints
	teams := group.Group("/teams")
	if cfg.AuthEnabled {
		teams.Use(middleware.OptionalAuth(cfg.JWTSecret))
	}
	{
		teams.POST("/optimize", teamsHandler.OptimizeTeams)
		teams.POST("/optimize/async", teamsHandler.OptimizeTeamsAsync)
		teams.POST("/validate", teamsHandler.ValidateComposition)
		teams.GET("/jobs/:id", teamsHandler.GetOptimizationJob)
	}

	// Algorithm discovery
	group.GET("/algorithms", teamsHandler.ListAlgorithms)

	// Admin endpoints always require a token, regardless of AuthEnabled,
	// unless auth is explicitly turned off for local development.
	admin := group.Group("/admin")
	if cfg.AuthEnabled {
		admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	}
	{
		admin.POST("/cache/flush", adminHandler.FlushCache)
	}
}
