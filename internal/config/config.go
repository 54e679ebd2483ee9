package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/utils"
)

// Aggregation holds the Index classification thresholds. The defaults match
// the live rule: at least 10 suitable votes and a strict majority of the
// suitability vote.
type Aggregation struct {
	IndexMinSuitableVotes int     `yaml:"index_min_suitable_votes"`
	IndexSuitableRatio    float64 `yaml:"index_suitable_ratio"`
	RecomputeConcurrency  int     `yaml:"recompute_concurrency"`
}

type Config struct {
	Port          string        `yaml:"port"`
	JWTSecretKey  string        `yaml:"jwt_secret_key"`
	RedisAddr     string        `yaml:"redis_addr"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl"`
	Aggregation   Aggregation   `yaml:"aggregation"`
}

func Default() Config {
	return Config{
		Port: "8080",
		Aggregation: Aggregation{
			IndexMinSuitableVotes: 10,
			IndexSuitableRatio:    0.5,
			RecomputeConcurrency:  8,
		},
		StatsCacheTTL: 5 * time.Minute,
	}
}

// Load reads the optional YAML file named by AGI_CONFIG_PATH, then lets the
// environment override individual fields.
func Load(log *logger.Logger) (Config, error) {
	cfg := Default()

	if path := os.Getenv("AGI_CONFIG_PATH"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.JWTSecretKey = utils.GetEnv("JWT_SECRET_KEY", cfg.JWTSecretKey, log)
	cfg.RedisAddr = utils.GetEnv("REDIS_ADDR", cfg.RedisAddr, log)
	cfg.Aggregation.IndexMinSuitableVotes = utils.GetEnvAsInt("INDEX_MIN_SUITABLE_VOTES", cfg.Aggregation.IndexMinSuitableVotes, log)
	cfg.Aggregation.IndexSuitableRatio = utils.GetEnvAsFloat("INDEX_SUITABLE_RATIO", cfg.Aggregation.IndexSuitableRatio, log)
	cfg.Aggregation.RecomputeConcurrency = utils.GetEnvAsInt("RECOMPUTE_CONCURRENCY", cfg.Aggregation.RecomputeConcurrency, log)
	if ttlSeconds := utils.GetEnvAsInt("STATS_CACHE_TTL_SECONDS", 0, log); ttlSeconds > 0 {
		cfg.StatsCacheTTL = time.Duration(ttlSeconds) * time.Second
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Aggregation.IndexMinSuitableVotes < 1 {
		return fmt.Errorf("index_min_suitable_votes must be >= 1, got %d", c.Aggregation.IndexMinSuitableVotes)
	}
	if c.Aggregation.IndexSuitableRatio < 0 || c.Aggregation.IndexSuitableRatio >= 1 {
		return fmt.Errorf("index_suitable_ratio must be in [0,1), got %v", c.Aggregation.IndexSuitableRatio)
	}
	if c.Aggregation.RecomputeConcurrency < 1 {
		return fmt.Errorf("recompute_concurrency must be >= 1, got %d", c.Aggregation.RecomputeConcurrency)
	}
	return nil
}
