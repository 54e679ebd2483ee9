package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	redisclient "github.com/agiindex/agi-index-backend/internal/clients/redis"
	"github.com/agiindex/agi-index-backend/internal/config"
	"github.com/agiindex/agi-index-backend/internal/db"
	"github.com/agiindex/agi-index-backend/internal/handlers"
	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/middleware"
	"github.com/agiindex/agi-index-backend/internal/observability"
	"github.com/agiindex/agi-index-backend/internal/repos"
	"github.com/agiindex/agi-index-backend/internal/server"
	"github.com/agiindex/agi-index-backend/internal/services"
	"github.com/agiindex/agi-index-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "agi-index-backend",
		Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	questionRepo := repos.NewQuestionRepo(thePG, log)
	voteRepo := repos.NewVoteRepo(thePG, log)
	profileRepo := repos.NewProfileRepo(thePG, log)
	statsRepo := repos.NewStatsRepo(thePG, log)

	// Stats cache (optional)
	var statsCache redisclient.StatsCache
	if cfg.RedisAddr != "" {
		statsCache, err = redisclient.NewStatsCache(log, cfg.RedisAddr, cfg.StatsCacheTTL)
		if err != nil {
			log.Warn("Could not init stats cache, serving snapshots from the database", "error", err)
			statsCache = nil
		} else {
			defer statsCache.Close()
		}
	}

	// Services
	log.Info("Setting up services...")
	voteService := services.NewVoteService(thePG, log, cfg.Aggregation, questionRepo, voteRepo, profileRepo)
	questionService := services.NewQuestionService(thePG, log, cfg.Aggregation, questionRepo, voteRepo, profileRepo)
	statsService := services.NewStatsService(thePG, log, questionRepo, voteRepo, statsRepo, statsCache)

	// Handlers
	log.Info("Setting up handlers...")
	voteHandler := handlers.NewVoteHandler(voteService)
	questionHandler := handlers.NewQuestionHandler(questionService, statsService)
	statsHandler := handlers.NewStatsHandler(statsService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, cfg.JWTSecretKey, profileRepo)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		QuestionHandler: questionHandler,
		VoteHandler:     voteHandler,
		StatsHandler:    statsHandler,
		AllowOrigins:    splitOrigins(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)),
	})

	log.Info("Server listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
