package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CategoryLinguistic = "linguistic"
	CategoryMultimodal = "multimodal"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Question carries the derived vote counters alongside the content. The
// counters are owned by the aggregation service; nothing else writes them.
type Question struct {
	ID                       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID                 *uuid.UUID     `gorm:"type:uuid;index" json:"author_id,omitempty"`
	Content                  string         `gorm:"column:content;not null" json:"content"`
	Category                 string         `gorm:"column:category;not null;index" json:"category"`
	Status                   string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	Translations             datatypes.JSON `gorm:"type:jsonb;column:translations" json:"translations,omitempty"`
	VoteCount                int            `gorm:"column:vote_count;not null;default:0" json:"vote_count"`
	SuitableCount            int            `gorm:"column:suitable_count;not null;default:0" json:"suitable_count"`
	UnsuitableCount          int            `gorm:"column:unsuitable_count;not null;default:0" json:"unsuitable_count"`
	AchievedCount            int            `gorm:"column:achieved_count;not null;default:0" json:"achieved_count"`
	NotAchievedCount         int            `gorm:"column:not_achieved_count;not null;default:0" json:"not_achieved_count"`
	CurrentWeight            float64        `gorm:"column:current_weight;not null;default:1" json:"current_weight"`
	IsIndexed                bool           `gorm:"column:is_indexed;not null;default:false;index" json:"is_indexed"`
	IsAchieved               bool           `gorm:"column:is_achieved;not null;default:false" json:"is_achieved"`
	DominantUnsuitableReason *string        `gorm:"column:dominant_unsuitable_reason" json:"dominant_unsuitable_reason,omitempty"`
	CreatedAt                time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "questions" }

func ValidCategory(category string) bool {
	return category == CategoryLinguistic || category == CategoryMultimodal
}

func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusApproved || status == StatusRejected
}
