package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// CounterColumns are the derived fields the aggregator owns on a question
// row. SaveCounters updates exactly this set and nothing else.
var CounterColumns = []string{
	"vote_count",
	"suitable_count",
	"unsuitable_count",
	"achieved_count",
	"not_achieved_count",
	"is_indexed",
	"is_achieved",
	"dominant_unsuitable_reason",
	"updated_at",
}

type QuestionFilter struct {
	Status   *string
	Indexed  *bool
	Category *string
}

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error)
	List(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error)
	SaveCounters(ctx context.Context, tx *gorm.DB, question *types.Question) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	return r.get(ctx, tx, id, false)
}

// GetByIDForUpdate takes a row lock so concurrent votes on the same question
// serialize their counter read-modify-write.
func (r *questionRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	return r.get(ctx, tx, id, true)
}

func (r *questionRepo) get(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock bool) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(ctx)
	if lock {
		q = withRowLock(q)
	}
	var result types.Question
	if err := q.Where("id = ?", id).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *questionRepo) List(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Indexed != nil {
		q = q.Where("is_indexed = ?", *filter.Indexed)
	}
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	var results []*types.Question
	if err := q.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) SaveCounters(ctx context.Context, tx *gorm.DB, question *types.Question) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", question.ID).
		Select(CounterColumns).
		Updates(question).Error
}

func (r *questionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// withRowLock adds FOR UPDATE on postgres. The sqlite driver used by the
// test harness has no row locks; its writes serialize on the database lock.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
