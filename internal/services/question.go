package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agiindex/agi-index-backend/internal/aggregate"
	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/config"
	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/repos"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// QuestionCounters is the read model display surfaces consume.
type QuestionCounters struct {
	SuitableCount      int  `json:"suitable_count"`
	UnsuitableCount    int  `json:"unsuitable_count"`
	AchievedCount      int  `json:"achieved_count"`
	NotAchievedCount   int  `json:"not_achieved_count"`
	VoteCount          int  `json:"vote_count"`
	IsIndexed          bool `json:"is_indexed"`
	IsAchieved         bool `json:"is_achieved"`
	AchievedPercentage int  `json:"achieved_percentage"`
}

type QuestionListFilter struct {
	Indexed  *bool
	Category *string
}

type QuestionService interface {
	Submit(ctx context.Context, authorID uuid.UUID, content, category string, translations datatypes.JSON) (*types.Question, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.Question, error)
	List(ctx context.Context, filter QuestionListFilter) ([]*types.Question, error)
	GetCounters(ctx context.Context, id uuid.UUID) (*QuestionCounters, error)

	// Recompute rebuilds one question's counters bottom-up from its vote
	// rows. It is the reference the incremental path must agree with, and
	// doubles as the repair action when they diverge.
	Recompute(ctx context.Context, id uuid.UUID) (*types.Question, error)
	// Verify recomputes and reports divergence from the stored counters as
	// a consistency error. The stored row is repaired either way.
	Verify(ctx context.Context, id uuid.UUID) error
	RecomputeAll(ctx context.Context) (int, error)
}

type questionService struct {
	db           *gorm.DB
	log          *logger.Logger
	thresholds   aggregate.Thresholds
	concurrency  int
	questionRepo repos.QuestionRepo
	voteRepo     repos.VoteRepo
	profileRepo  repos.ProfileRepo
}

func NewQuestionService(db *gorm.DB, log *logger.Logger, cfg config.Aggregation, questionRepo repos.QuestionRepo, voteRepo repos.VoteRepo, profileRepo repos.ProfileRepo) QuestionService {
	return &questionService{
		db:  db,
		log: log.With("service", "QuestionService"),
		thresholds: aggregate.Thresholds{
			MinSuitableVotes: cfg.IndexMinSuitableVotes,
			SuitableRatio:    cfg.IndexSuitableRatio,
		},
		concurrency:  cfg.RecomputeConcurrency,
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		profileRepo:  profileRepo,
	}
}

func (s *questionService) Submit(ctx context.Context, authorID uuid.UUID, content, category string, translations datatypes.JSON) (*types.Question, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierr.Validation("content is required")
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if !types.ValidCategory(category) {
		return nil, apierr.Validation("unknown category %q", category)
	}

	var created *types.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.profileRepo.GetByID(ctx, tx, authorID)
		if err != nil {
			return err
		}
		if profile == nil {
			return apierr.NotFound("user %s not found", authorID)
		}
		question := &types.Question{
			AuthorID:      &authorID,
			Content:       content,
			Category:      category,
			Status:        types.StatusPending,
			Translations:  translations,
			CurrentWeight: 1,
		}
		if created, err = s.questionRepo.Create(ctx, tx, question); err != nil {
			return err
		}
		return s.profileRepo.IncrementQuestionCount(ctx, tx, authorID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Question submitted", "question_id", created.ID, "category", created.Category)
	return created, nil
}

// SetStatus applies the external moderation decision. The moderation itself
// (who decides, on what grounds) lives outside this service.
func (s *questionService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.Question, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != types.StatusApproved && status != types.StatusRejected {
		return nil, apierr.Validation("status must be approved or rejected, got %q", status)
	}

	var updated *types.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.questionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if question == nil {
			return apierr.NotFound("question %s not found", id)
		}
		if question.Status == status {
			updated = question
			return nil
		}
		wasApproved := question.Status == types.StatusApproved
		if err := s.questionRepo.UpdateStatus(ctx, tx, id, status); err != nil {
			return err
		}
		question.Status = status
		updated = question
		if status == types.StatusApproved && !wasApproved && question.AuthorID != nil {
			return s.profileRepo.IncrementApprovedQuestionCount(ctx, tx, *question.AuthorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Question status updated", "question_id", id, "status", status)
	return updated, nil
}

func (s *questionService) List(ctx context.Context, filter QuestionListFilter) ([]*types.Question, error) {
	status := types.StatusApproved
	return s.questionRepo.List(ctx, nil, repos.QuestionFilter{
		Status:   &status,
		Indexed:  filter.Indexed,
		Category: filter.Category,
	})
}

func (s *questionService) GetCounters(ctx context.Context, id uuid.UUID) (*QuestionCounters, error) {
	question, err := s.questionRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apierr.NotFound("question %s not found", id)
	}
	return countersView(question), nil
}

func (s *questionService) Recompute(ctx context.Context, id uuid.UUID) (*types.Question, error) {
	var result *types.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, fresh, err := s.recomputeLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		applyCounters(question, fresh, s.thresholds)
		dominant, err := dominantReason(ctx, tx, s.voteRepo, id)
		if err != nil {
			return err
		}
		question.DominantUnsuitableReason = dominant
		if err := s.questionRepo.SaveCounters(ctx, tx, question); err != nil {
			return err
		}
		result = question
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *questionService) Verify(ctx context.Context, id uuid.UUID) error {
	var divergence *apierr.Error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, fresh, err := s.recomputeLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		stored := countersOf(question)
		if stored != fresh {
			divergence = apierr.Consistency("question %s counters diverged: stored %+v, recomputed %+v", id, stored, fresh)
			s.log.Error("Counter divergence detected, repairing", "question_id", id, "stored", stored, "recomputed", fresh)
		}
		applyCounters(question, fresh, s.thresholds)
		dominant, err := dominantReason(ctx, tx, s.voteRepo, id)
		if err != nil {
			return err
		}
		question.DominantUnsuitableReason = dominant
		return s.questionRepo.SaveCounters(ctx, tx, question)
	})
	if err != nil {
		return err
	}
	if divergence != nil {
		return divergence
	}
	return nil
}

func (s *questionService) recomputeLocked(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, aggregate.Counters, error) {
	question, err := s.questionRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, aggregate.Counters{}, err
	}
	if question == nil {
		return nil, aggregate.Counters{}, apierr.NotFound("question %s not found", id)
	}
	votes, err := s.voteRepo.ListByQuestion(ctx, tx, id)
	if err != nil {
		return nil, aggregate.Counters{}, err
	}
	var fresh aggregate.Counters
	for _, v := range votes {
		fresh = fresh.Apply(v.IsSuitable, v.IsAchieved)
	}
	return question, fresh, nil
}

func (s *questionService) RecomputeAll(ctx context.Context) (int, error) {
	questions, err := s.questionRepo.List(ctx, nil, repos.QuestionFilter{})
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, q := range questions {
		id := q.ID
		g.Go(func() error {
			_, err := s.Recompute(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	s.log.Info("Recomputed all question counters", "count", len(questions))
	return len(questions), nil
}

func countersView(q *types.Question) *QuestionCounters {
	c := countersOf(q)
	return &QuestionCounters{
		SuitableCount:      q.SuitableCount,
		UnsuitableCount:    q.UnsuitableCount,
		AchievedCount:      q.AchievedCount,
		NotAchievedCount:   q.NotAchievedCount,
		VoteCount:          q.VoteCount,
		IsIndexed:          q.IsIndexed,
		IsAchieved:         q.IsAchieved,
		AchievedPercentage: aggregate.AchievedPercent(c),
	}
}
