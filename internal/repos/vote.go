package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/types"
)

type ReasonCount struct {
	Reason string
	Count  int64
}

type VoteRepo interface {
	GetByUserAndQuestion(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (*types.Vote, error)
	Upsert(ctx context.Context, tx *gorm.DB, vote *types.Vote) (*types.Vote, error)
	Update(ctx context.Context, tx *gorm.DB, vote *types.Vote) (*types.Vote, error)
	ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.Vote, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	CountDistinctUsers(ctx context.Context, tx *gorm.DB) (int64, error)
	UnsuitableReasonCounts(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]ReasonCount, error)
}

type voteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoteRepo(db *gorm.DB, baseLog *logger.Logger) VoteRepo {
	return &voteRepo{db: db, log: baseLog.With("repo", "VoteRepo")}
}

func (r *voteRepo) GetByUserAndQuestion(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (*types.Vote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || questionID == uuid.Nil {
		return nil, nil
	}
	var result types.Vote
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// Upsert inserts a first vote. The conflict clause covers the race where two
// first submissions for the same (user, question) land concurrently: the
// loser degrades to an overwrite of the winner's row.
func (r *voteRepo) Upsert(ctx context.Context, tx *gorm.DB, vote *types.Vote) (*types.Vote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	vote.UpdatedAt = time.Now().UTC()
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_suitable",
				"is_achieved",
				"weight",
				"unsuitable_reason",
				"updated_at",
			}),
		}).
		Create(vote).Error; err != nil {
		return nil, err
	}
	return vote, nil
}

// Update overwrites the opinion columns of an existing vote row in place. A
// revote never inserts; the (user, question) pair keeps its original row id.
func (r *voteRepo) Update(ctx context.Context, tx *gorm.DB, vote *types.Vote) (*types.Vote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	vote.UpdatedAt = time.Now().UTC()
	if err := transaction.WithContext(ctx).
		Model(&types.Vote{}).
		Where("id = ?", vote.ID).
		Select("is_suitable", "is_achieved", "weight", "unsuitable_reason", "updated_at").
		Updates(vote).Error; err != nil {
		return nil, err
	}
	return vote, nil
}

func (r *voteRepo) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.Vote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Vote
	if questionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("question_id = ?", questionID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *voteRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).Model(&types.Vote{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *voteRepo) CountDistinctUsers(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Vote{}).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *voteRepo) UnsuitableReasonCounts(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]ReasonCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []ReasonCount
	if err := transaction.WithContext(ctx).
		Model(&types.Vote{}).
		Select("unsuitable_reason AS reason, COUNT(*) AS count").
		Where("question_id = ? AND is_suitable = ? AND unsuitable_reason IS NOT NULL", questionID, false).
		Group("unsuitable_reason").
		Order("count DESC, reason ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
