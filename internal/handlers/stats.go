package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (sh *StatsHandler) Current(c *gin.Context) {
	stats, err := sh.statsService.Current(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (sh *StatsHandler) Recompute(c *gin.Context) {
	stats, err := sh.statsService.Recompute(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (sh *StatsHandler) AppendDaily(c *gin.Context) {
	date := c.Param("date")
	metric, err := sh.statsService.AppendDaily(c.Request.Context(), date)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"metric": metric})
}

func (sh *StatsHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(c, apierr.Validation("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	metrics, err := sh.statsService.History(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"metrics": metrics})
}
