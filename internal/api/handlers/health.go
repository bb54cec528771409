package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avpv/volleyrank-sub002/internal/services"
	"github.com/avpv/volleyrank-sub002/internal/websocket"
)

type HealthHandler struct {
	cache *services.OptimizationCache
	jobs  *services.JobStore
	hub   *websocket.Hub
}

func NewHealthHandler(cache *services.OptimizationCache, jobs *services.JobStore, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{
		cache: cache,
		jobs:  jobs,
		hub:   hub,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "volleyrank",
	})
}

// GetReady reports component status. The engine has no hard dependencies, so
// readiness stays 200 even with the cache degraded; the body tells the story.
func (h *HealthHandler) GetReady(c *gin.Context) {
	components := gin.H{}

	if h.cache != nil {
		components["cache"] = h.cache.Status()
	} else {
		components["cache"] = "disabled"
	}
	if h.jobs != nil {
		components["jobs"] = h.jobs.Stats()
	}
	if h.hub != nil {
		components["websocket_connections"] = h.hub.GetConnectionCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
