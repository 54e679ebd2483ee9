package types

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the account record owned by the (external) auth system.
// Only the participation counters are maintained here.
type Profile struct {
	ID                         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nickname                   *string   `gorm:"column:nickname" json:"nickname,omitempty"`
	IsAdmin                    bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	TotalVoteCount             int       `gorm:"column:total_vote_count;not null;default:0" json:"total_vote_count"`
	TotalQuestionCount         int       `gorm:"column:total_question_count;not null;default:0" json:"total_question_count"`
	TotalApprovedQuestionCount int       `gorm:"column:total_approved_question_count;not null;default:0" json:"total_approved_question_count"`
	CreatedAt                  time.Time `gorm:"not null" json:"created_at"`
}

func (Profile) TableName() string { return "profiles" }
