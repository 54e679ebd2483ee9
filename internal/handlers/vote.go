package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/requestdata"
	"github.com/agiindex/agi-index-backend/internal/services"
)

type VoteHandler struct {
	voteService services.VoteService
}

func NewVoteHandler(voteService services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

func (vh *VoteHandler) SubmitVote(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid question id"))
		return
	}
	var intent services.VoteIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	vote, question, err := vh.voteService.SubmitVote(c.Request.Context(), userID, questionID, intent)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"vote": vote, "question": question})
}

func (vh *VoteHandler) GetUserVote(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid question id"))
		return
	}
	vote, err := vh.voteService.GetUserVote(c.Request.Context(), userID, questionID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"vote": vote})
}

func authedUser(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.New(401, "unauthorized", nil))
		return uuid.Nil, false
	}
	return rd.UserID, true
}
