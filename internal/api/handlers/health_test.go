package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avpv/volleyrank-sub002/internal/services"
)

func TestGetHealth(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	r := gin.New()
	r.GET("/health", h.GetHealth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "volleyrank", body["service"])

	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestGetReadyWithoutCache(t *testing.T) {
	nullLogger, _ := logtest.NewNullLogger()
	jobs := services.NewJobStore(time.Hour, nullLogger)
	jobs.Create()

	h := NewHealthHandler(nil, jobs, nil)
	r := gin.New()
	r.GET("/ready", h.GetReady)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, w.Code, "a degraded cache never blocks readiness")
	var body struct {
		Status     string `json:"status"`
		Components struct {
			Cache interface{}    `json:"cache"`
			Jobs  map[string]int `json:"jobs"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "disabled", body.Components.Cache)
	assert.Equal(t, 1, body.Components.Jobs[string(services.JobPending)])
}

func TestFlushCacheWhenDisabled(t *testing.T) {
	nullLogger, _ := logtest.NewNullLogger()
	h := NewAdminHandler(nil, nullLogger)
	r := gin.New()
	r.POST("/admin/cache/flush", h.FlushCache)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/cache/flush", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Flushed bool   `json:"flushed"`
			Reason  string `json:"reason"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.False(t, env.Data.Flushed)
	assert.Equal(t, "cache disabled", env.Data.Reason)
}
