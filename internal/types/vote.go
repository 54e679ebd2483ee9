package types

import (
	"time"

	"github.com/google/uuid"
)

// Vote is the one record per (user, question) pair. Nil pointers mean the
// voter expressed no opinion on that axis; a resubmission overwrites the row.
type Vote struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_question" json:"user_id"`
	QuestionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_question;index" json:"question_id"`
	Question         *Question `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	IsSuitable       *bool     `gorm:"column:is_suitable" json:"is_suitable"`
	IsAchieved       *bool     `gorm:"column:is_achieved" json:"is_achieved"`
	Weight           *float64  `gorm:"column:weight" json:"weight,omitempty"`
	UnsuitableReason *string   `gorm:"column:unsuitable_reason" json:"unsuitable_reason,omitempty"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (Vote) TableName() string { return "votes" }
