package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avpv/volleyrank-sub002/internal/services"
	"github.com/avpv/volleyrank-sub002/pkg/utils"
)

// AdminHandler groups operator-only endpoints.
type AdminHandler struct {
	cache  *services.OptimizationCache
	logger *logrus.Logger
}

func NewAdminHandler(cache *services.OptimizationCache, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{cache: cache, logger: logger}
}

// FlushCache handles POST /api/v1/admin/cache/flush.
func (h *AdminHandler) FlushCache(c *gin.Context) {
	if h.cache == nil {
		utils.SendSuccess(c, gin.H{"flushed": false, "reason": "cache disabled"})
		return
	}
	if err := h.cache.Flush(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Cache flush failed")
		utils.SendInternalError(c, "Failed to flush cache")
		return
	}
	h.logger.Info("Optimization cache flushed")
	utils.SendSuccess(c, gin.H{"flushed": true})
}
