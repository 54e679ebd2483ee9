package types

import "time"

// AGIStats is the single reusable current-snapshot row (id is always 1).
// Every field is a deterministic function of the questions and votes tables.
type AGIStats struct {
	ID                     int       `gorm:"primaryKey" json:"id"`
	OverallRate            float64   `gorm:"column:overall_rate;not null;default:0" json:"overall_rate"`
	LinguisticRate         float64   `gorm:"column:linguistic_rate;not null;default:0" json:"linguistic_rate"`
	MultimodalRate         float64   `gorm:"column:multimodal_rate;not null;default:0" json:"multimodal_rate"`
	LinguisticCount        int       `gorm:"column:linguistic_count;not null;default:0" json:"linguistic_count"`
	MultimodalCount        int       `gorm:"column:multimodal_count;not null;default:0" json:"multimodal_count"`
	TotalVotes             int       `gorm:"column:total_votes;not null;default:0" json:"total_votes"`
	TotalUsers             int       `gorm:"column:total_users;not null;default:0" json:"total_users"`
	IndexQuestionCount     int       `gorm:"column:index_question_count;not null;default:0" json:"index_question_count"`
	CandidateQuestionCount int       `gorm:"column:candidate_question_count;not null;default:0" json:"candidate_question_count"`
	UpdatedAt              time.Time `gorm:"not null" json:"updated_at"`
}

func (AGIStats) TableName() string { return "agi_stats" }

// DailyMetric is the append-only history row keyed by date (YYYY-MM-DD).
// Rows are never rewritten once published.
type DailyMetric struct {
	Date                   string    `gorm:"column:date;primaryKey" json:"date"`
	OverallRate            float64   `gorm:"column:overall_rate;not null;default:0" json:"overall_rate"`
	LinguisticRate         float64   `gorm:"column:linguistic_rate;not null;default:0" json:"linguistic_rate"`
	MultimodalRate         float64   `gorm:"column:multimodal_rate;not null;default:0" json:"multimodal_rate"`
	LinguisticCount        int       `gorm:"column:linguistic_count;not null;default:0" json:"linguistic_count"`
	MultimodalCount        int       `gorm:"column:multimodal_count;not null;default:0" json:"multimodal_count"`
	TotalVotes             int       `gorm:"column:total_votes;not null;default:0" json:"total_votes"`
	TotalUsers             int       `gorm:"column:total_users;not null;default:0" json:"total_users"`
	IndexQuestionCount     int       `gorm:"column:index_question_count;not null;default:0" json:"index_question_count"`
	CandidateQuestionCount int       `gorm:"column:candidate_question_count;not null;default:0" json:"candidate_question_count"`
	CreatedAt              time.Time `gorm:"not null" json:"created_at"`
}

func (DailyMetric) TableName() string { return "daily_metrics" }
