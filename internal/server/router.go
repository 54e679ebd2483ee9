package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/agiindex/agi-index-backend/internal/handlers"
	"github.com/agiindex/agi-index-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	QuestionHandler *handlers.QuestionHandler
	VoteHandler     *handlers.VoteHandler
	StatsHandler    *handlers.StatsHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("agi-index-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/questions", cfg.QuestionHandler.List)
		api.GET("/questions/:id/counters", cfg.QuestionHandler.GetCounters)
		api.GET("/stats", cfg.StatsHandler.Current)
		api.GET("/stats/history", cfg.StatsHandler.History)
	}

	authed := router.Group("/api")
	authed.Use(cfg.AuthMiddleware.RequireAuth())
	{
		authed.POST("/questions", cfg.QuestionHandler.Submit)
		authed.POST("/questions/:id/vote", cfg.VoteHandler.SubmitVote)
		authed.GET("/questions/:id/vote", cfg.VoteHandler.GetUserVote)
	}

	admin := router.Group("/api/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	{
		admin.POST("/questions/:id/status", cfg.QuestionHandler.SetStatus)
		admin.POST("/questions/:id/recompute", cfg.QuestionHandler.Recompute)
		admin.POST("/recompute", cfg.QuestionHandler.RecomputeAll)
		admin.POST("/stats/recompute", cfg.StatsHandler.Recompute)
		admin.POST("/stats/history/:date", cfg.StatsHandler.AppendDaily)
	}

	return router
}
