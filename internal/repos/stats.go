package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// currentStatsID is the fixed primary key of the single reusable snapshot row.
const currentStatsID = 1

type StatsRepo interface {
	GetCurrent(ctx context.Context, tx *gorm.DB) (*types.AGIStats, error)
	SaveCurrent(ctx context.Context, tx *gorm.DB, stats *types.AGIStats) error
	GetDaily(ctx context.Context, tx *gorm.DB, date string) (*types.DailyMetric, error)
	InsertDaily(ctx context.Context, tx *gorm.DB, metric *types.DailyMetric) error
	ListDaily(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DailyMetric, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return &statsRepo{db: db, log: baseLog.With("repo", "StatsRepo")}
}

func (r *statsRepo) GetCurrent(ctx context.Context, tx *gorm.DB) (*types.AGIStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.AGIStats
	if err := transaction.WithContext(ctx).Where("id = ?", currentStatsID).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *statsRepo) SaveCurrent(ctx context.Context, tx *gorm.DB, stats *types.AGIStats) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	stats.ID = currentStatsID
	stats.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(stats).Error
}

func (r *statsRepo) GetDaily(ctx context.Context, tx *gorm.DB, date string) (*types.DailyMetric, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.DailyMetric
	if err := transaction.WithContext(ctx).Where("date = ?", date).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// InsertDaily is append-only: the history table never rewrites a published
// date. Duplicate handling happens in the service before the insert.
func (r *statsRepo) InsertDaily(ctx context.Context, tx *gorm.DB, metric *types.DailyMetric) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(metric).Error
}

func (r *statsRepo) ListDaily(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DailyMetric, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Order("date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*types.DailyMetric
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
