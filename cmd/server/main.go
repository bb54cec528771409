package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avpv/volleyrank-sub002/internal/api"
	"github.com/avpv/volleyrank-sub002/internal/api/handlers"
	"github.com/avpv/volleyrank-sub002/internal/api/middleware"
	"github.com/avpv/volleyrank-sub002/internal/optimizer"
	"github.com/avpv/volleyrank-sub002/internal/services"
	"github.com/avpv/volleyrank-sub002/internal/websocket"
	"github.com/avpv/volleyrank-sub002/pkg/config"
	"github.com/avpv/volleyrank-sub002/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to Redis. The engine works without it, so an unreachable cache
	// downgrades to a warning instead of refusing to start.
	var cache *services.OptimizationCache
	if cfg.CacheEnabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warnf("Invalid Redis URL, caching disabled: %v", err)
		} else {
			redisClient := redis.NewClient(opt)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				log.Warnf("Redis unreachable, caching disabled: %v", err)
				redisClient.Close()
			} else {
				cache = services.NewOptimizationCache(redisClient, cfg.CacheTTL, log)
				defer redisClient.Close()
			}
			cancel()
		}
	}

	// Job store with background cleanup
	jobs := services.NewJobStore(cfg.JobTTL, log)
	if err := jobs.StartCleanup(cfg.JobCleanupInterval); err != nil {
		log.Errorf("Failed to start job cleanup: %v", err)
	}
	defer jobs.StopCleanup()

	// WebSocket hub doubles as the engine's progress sink
	hub := websocket.NewHub(log)
	go hub.Run()

	engine := optimizer.NewTeamOptimizer(engineOptions(cfg), log, hub)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))
	router.Use(middleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))

	// Health endpoints at root level
	healthHandler := handlers.NewHealthHandler(cache, jobs, hub)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, engine, cache, jobs, hub, cfg, log)

	// Progress streaming at root level, keyed by request or job ID
	router.GET("/ws/optimizations/:request_id", hub.HandleWebSocket)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// engineOptions maps configuration onto engine tunables, keeping the engine
// package free of any config dependency.
func engineOptions(cfg *config.Config) optimizer.Options {
	return optimizer.Options{
		Seed:                  cfg.OptimizerSeed,
		Algorithms:            cfg.EnabledAlgorithms,
		VarianceWeight:        cfg.VarianceWeight,
		PositionWeight:        cfg.PositionWeight,
		LocalSearchIterations: cfg.LocalSearchIterations,
		RefineIterations:      cfg.RefineIterations,
		AnnealingIterations:   cfg.AnnealingIterations,
		AnnealingInitialTemp:  cfg.AnnealingInitialTemp,
		AnnealingCooling:      cfg.AnnealingCooling,
		AnnealingReheatAfter:  cfg.AnnealingReheatAfter,
		TabuIterations:        cfg.TabuIterations,
		TabuTenure:            cfg.TabuTenure,
		TabuNeighbors:         cfg.TabuNeighbors,
		TabuRestarts:          cfg.TabuRestarts,
		TabuDiversifyAfter:    cfg.TabuDiversifyAfter,
		GAPopulation:          cfg.GAPopulation,
		GAGenerations:         cfg.GAGenerations,
		GAEliteCount:          cfg.GAEliteCount,
		GATournamentSize:      cfg.GATournamentSize,
		GAMutationRate:        cfg.GAMutationRate,
		GAStagnationLimit:     cfg.GAStagnationLimit,
		ACOAnts:               cfg.ACOAnts,
		ACOIterations:         cfg.ACOIterations,
		ACOAlpha:              cfg.ACOAlpha,
		ACOBeta:               cfg.ACOBeta,
		ACOEvaporation:        cfg.ACOEvaporation,
		ACODeposit:            cfg.ACODepositAmount,
		CPBacktrackLimit:      cfg.CPBacktrackLimit,
	}
}
