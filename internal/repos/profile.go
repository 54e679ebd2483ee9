package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/types"
)

type ProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.Profile) (*types.Profile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Profile, error)
	IncrementVoteCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	IncrementQuestionCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	IncrementApprovedQuestionCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.Profile) (*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var result types.Profile
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *profileRepo) IncrementVoteCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.increment(ctx, tx, id, "total_vote_count")
}

func (r *profileRepo) IncrementQuestionCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.increment(ctx, tx, id, "total_question_count")
}

func (r *profileRepo) IncrementApprovedQuestionCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.increment(ctx, tx, id, "total_approved_question_count")
}

// Atomic in-database increment; never read-then-write from the client.
func (r *profileRepo) increment(ctx context.Context, tx *gorm.DB, id uuid.UUID, column string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Profile{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}
