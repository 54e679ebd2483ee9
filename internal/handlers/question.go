package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/services"
)

type QuestionHandler struct {
	questionService services.QuestionService
	statsService    services.StatsService
}

func NewQuestionHandler(questionService services.QuestionService, statsService services.StatsService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, statsService: statsService}
}

type submitQuestionRequest struct {
	Content      string         `json:"content"`
	Category     string         `json:"category"`
	Translations datatypes.JSON `json:"translations"`
}

func (qh *QuestionHandler) Submit(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	var req submitQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	question, err := qh.questionService.Submit(c.Request.Context(), userID, req.Content, req.Category, req.Translations)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"question": question})
}

func (qh *QuestionHandler) List(c *gin.Context) {
	var filter services.QuestionListFilter
	if raw := c.Query("indexed"); raw != "" {
		indexed, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, apierr.Validation("indexed must be a boolean"))
			return
		}
		filter.Indexed = &indexed
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	questions, err := qh.questionService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

func (qh *QuestionHandler) GetCounters(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid question id"))
		return
	}
	counters, err := qh.questionService.GetCounters(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, counters)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (qh *QuestionHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid question id"))
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	question, err := qh.questionService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

func (qh *QuestionHandler) Recompute(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid question id"))
		return
	}
	question, err := qh.questionService.Recompute(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

// RecomputeAll rebuilds every question's counters bottom-up, then refreshes
// the global snapshot from the repaired counters.
func (qh *QuestionHandler) RecomputeAll(c *gin.Context) {
	count, err := qh.questionService.RecomputeAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	stats, err := qh.statsService.Recompute(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions_recomputed": count, "stats": stats})
}
