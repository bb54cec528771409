package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis
	RedisURL     string        `mapstructure:"REDIS_URL"`
	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	// JWT
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	AuthEnabled bool   `mapstructure:"AUTH_ENABLED"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Rate limiting
	RateLimitPerSecond float64 `mapstructure:"RATE_LIMIT_PER_SECOND"`
	RateLimitBurst     int     `mapstructure:"RATE_LIMIT_BURST"`

	// Optimization
	OptimizationTimeout int      `mapstructure:"OPTIMIZATION_TIMEOUT"` // seconds
	EnabledAlgorithms   []string `mapstructure:"ENABLED_ALGORITHMS"`
	OptimizerSeed       int64    `mapstructure:"OPTIMIZER_SEED"` // 0 = time-derived

	// Objective weights
	VarianceWeight float64 `mapstructure:"VARIANCE_WEIGHT"`
	PositionWeight float64 `mapstructure:"POSITION_WEIGHT"`

	// Local search / refinement
	LocalSearchIterations int `mapstructure:"LOCAL_SEARCH_ITERATIONS"`
	RefineIterations      int `mapstructure:"REFINE_ITERATIONS"`

	// Simulated annealing
	AnnealingIterations  int     `mapstructure:"ANNEALING_ITERATIONS"`
	AnnealingInitialTemp float64 `mapstructure:"ANNEALING_INITIAL_TEMP"`
	AnnealingCooling     float64 `mapstructure:"ANNEALING_COOLING"`
	AnnealingReheatAfter int     `mapstructure:"ANNEALING_REHEAT_AFTER"`

	// Tabu search
	TabuIterations     int `mapstructure:"TABU_ITERATIONS"`
	TabuTenure         int `mapstructure:"TABU_TENURE"`
	TabuNeighbors      int `mapstructure:"TABU_NEIGHBORS"`
	TabuRestarts       int `mapstructure:"TABU_RESTARTS"`
	TabuDiversifyAfter int `mapstructure:"TABU_DIVERSIFY_AFTER"`

	// Genetic algorithm
	GAPopulation      int     `mapstructure:"GA_POPULATION"`
	GAGenerations     int     `mapstructure:"GA_GENERATIONS"`
	GAEliteCount      int     `mapstructure:"GA_ELITE_COUNT"`
	GATournamentSize  int     `mapstructure:"GA_TOURNAMENT_SIZE"`
	GAMutationRate    float64 `mapstructure:"GA_MUTATION_RATE"`
	GAStagnationLimit int     `mapstructure:"GA_STAGNATION_LIMIT"`

	// Ant colony
	ACOAnts          int     `mapstructure:"ACO_ANTS"`
	ACOIterations    int     `mapstructure:"ACO_ITERATIONS"`
	ACOAlpha         float64 `mapstructure:"ACO_ALPHA"`
	ACOBeta          float64 `mapstructure:"ACO_BETA"`
	ACOEvaporation   float64 `mapstructure:"ACO_EVAPORATION"`
	ACODepositAmount float64 `mapstructure:"ACO_DEPOSIT_AMOUNT"`

	// Constraint programming
	CPBacktrackLimit int `mapstructure:"CP_BACKTRACK_LIMIT"`

	// Async jobs
	JobTTL             time.Duration `mapstructure:"JOB_TTL"`
	JobCleanupInterval time.Duration `mapstructure:"JOB_CLEANUP_INTERVAL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_TTL", "15m")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("AUTH_ENABLED", false)
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("RATE_LIMIT_PER_SECOND", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("OPTIMIZATION_TIMEOUT", 30)
	viper.SetDefault("ENABLED_ALGORITHMS", "") // empty = all
	viper.SetDefault("OPTIMIZER_SEED", 0)
	viper.SetDefault("VARIANCE_WEIGHT", 1.0)
	viper.SetDefault("POSITION_WEIGHT", 0.5)
	viper.SetDefault("LOCAL_SEARCH_ITERATIONS", 3000)
	viper.SetDefault("REFINE_ITERATIONS", 1500)
	viper.SetDefault("ANNEALING_ITERATIONS", 5000)
	viper.SetDefault("ANNEALING_INITIAL_TEMP", 60.0)
	viper.SetDefault("ANNEALING_COOLING", 0.995)
	viper.SetDefault("ANNEALING_REHEAT_AFTER", 400)
	viper.SetDefault("TABU_ITERATIONS", 1500)
	viper.SetDefault("TABU_TENURE", 40)
	viper.SetDefault("TABU_NEIGHBORS", 8)
	viper.SetDefault("TABU_RESTARTS", 3)
	viper.SetDefault("TABU_DIVERSIFY_AFTER", 150)
	viper.SetDefault("GA_POPULATION", 30)
	viper.SetDefault("GA_GENERATIONS", 120)
	viper.SetDefault("GA_ELITE_COUNT", 4)
	viper.SetDefault("GA_TOURNAMENT_SIZE", 3)
	viper.SetDefault("GA_MUTATION_RATE", 0.3)
	viper.SetDefault("GA_STAGNATION_LIMIT", 20)
	viper.SetDefault("ACO_ANTS", 12)
	viper.SetDefault("ACO_ITERATIONS", 60)
	viper.SetDefault("ACO_ALPHA", 1.0)
	viper.SetDefault("ACO_BETA", 2.0)
	viper.SetDefault("ACO_EVAPORATION", 0.1)
	viper.SetDefault("ACO_DEPOSIT_AMOUNT", 100.0)
	viper.SetDefault("CP_BACKTRACK_LIMIT", 50000)
	viper.SetDefault("JOB_TTL", "1h")
	viper.SetDefault("JOB_CLEANUP_INTERVAL", "10m")

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	// Parse enabled algorithms from comma-separated string
	if algStr := viper.GetString("ENABLED_ALGORITHMS"); algStr != "" {
		config.EnabledAlgorithms = strings.Split(algStr, ",")
	} else {
		config.EnabledAlgorithms = nil
	}

	return &config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
