package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agiindex/agi-index-backend/internal/aggregate"
	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/config"
	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/repos"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// VoteIntent is the raw submission body before normalization.
type VoteIntent struct {
	IsSuitable       *bool   `json:"is_suitable"`
	IsAchieved       *bool   `json:"is_achieved"`
	UnsuitableReason *string `json:"unsuitable_reason"`
}

type VoteService interface {
	// SubmitVote normalizes and upserts one vote and folds its delta into
	// the question's counters, all inside a single transaction. The whole
	// unit is retryable: every attempt re-reads the previous vote and the
	// current counters under a row lock.
	SubmitVote(ctx context.Context, userID, questionID uuid.UUID, intent VoteIntent) (*types.Vote, *types.Question, error)
	GetUserVote(ctx context.Context, userID, questionID uuid.UUID) (*types.Vote, error)
}

type voteService struct {
	db           *gorm.DB
	log          *logger.Logger
	thresholds   aggregate.Thresholds
	questionRepo repos.QuestionRepo
	voteRepo     repos.VoteRepo
	profileRepo  repos.ProfileRepo
}

func NewVoteService(db *gorm.DB, log *logger.Logger, cfg config.Aggregation, questionRepo repos.QuestionRepo, voteRepo repos.VoteRepo, profileRepo repos.ProfileRepo) VoteService {
	return &voteService{
		db:  db,
		log: log.With("service", "VoteService"),
		thresholds: aggregate.Thresholds{
			MinSuitableVotes: cfg.IndexMinSuitableVotes,
			SuitableRatio:    cfg.IndexSuitableRatio,
		},
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		profileRepo:  profileRepo,
	}
}

func (s *voteService) SubmitVote(ctx context.Context, userID, questionID uuid.UUID, intent VoteIntent) (*types.Vote, *types.Question, error) {
	if userID == uuid.Nil {
		return nil, nil, apierr.NotFound("user not found")
	}
	if questionID == uuid.Nil {
		return nil, nil, apierr.NotFound("question not found")
	}

	var (
		savedVote     *types.Vote
		savedQuestion *types.Question
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.profileRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if profile == nil {
			return apierr.NotFound("user %s not found", userID)
		}

		// Lock the question row for the whole read-modify-write so two
		// concurrent votes never apply their deltas over the same base.
		question, err := s.questionRepo.GetByIDForUpdate(ctx, tx, questionID)
		if err != nil {
			return err
		}
		if question == nil || question.Status != types.StatusApproved {
			return apierr.NotFound("question %s not found or not approved", questionID)
		}

		ballot, err := aggregate.Normalize(question.IsIndexed, aggregate.Ballot{
			IsSuitable:       intent.IsSuitable,
			IsAchieved:       intent.IsAchieved,
			UnsuitableReason: intent.UnsuitableReason,
		})
		if err != nil {
			return apierr.Validation("invalid vote: %v", err)
		}

		prev, err := s.voteRepo.GetByUserAndQuestion(ctx, tx, userID, questionID)
		if err != nil {
			return err
		}

		next := &types.Vote{
			UserID:           userID,
			QuestionID:       questionID,
			IsSuitable:       ballot.IsSuitable,
			IsAchieved:       ballot.IsAchieved,
			UnsuitableReason: ballot.UnsuitableReason,
		}
		if prev != nil {
			next.ID = prev.ID
			next.Weight = prev.Weight
			savedVote, err = s.voteRepo.Update(ctx, tx, next)
		} else {
			savedVote, err = s.voteRepo.Upsert(ctx, tx, next)
		}
		if err != nil {
			return err
		}

		counters := countersOf(question)
		var prevSuitable, prevAchieved *bool
		if prev != nil {
			prevSuitable, prevAchieved = prev.IsSuitable, prev.IsAchieved
		}
		counters = aggregate.Step(counters, prevSuitable, prevAchieved, ballot.IsSuitable, ballot.IsAchieved)
		applyCounters(question, counters, s.thresholds)

		dominant, err := dominantReason(ctx, tx, s.voteRepo, questionID)
		if err != nil {
			return err
		}
		question.DominantUnsuitableReason = dominant

		if err := s.questionRepo.SaveCounters(ctx, tx, question); err != nil {
			return err
		}
		savedQuestion = question

		if prev == nil {
			if err := s.profileRepo.IncrementVoteCount(ctx, tx, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var ae *apierr.Error
		if !errors.As(err, &ae) {
			s.log.Warn("SubmitVote transaction failed", "question_id", questionID, "user_id", userID, "error", err)
		}
		return nil, nil, err
	}

	s.log.Debug("Vote recorded", "question_id", questionID, "user_id", userID, "indexed", savedQuestion.IsIndexed)
	return savedVote, savedQuestion, nil
}

func (s *voteService) GetUserVote(ctx context.Context, userID, questionID uuid.UUID) (*types.Vote, error) {
	vote, err := s.voteRepo.GetByUserAndQuestion(ctx, nil, userID, questionID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, apierr.NotFound("no vote by this user on question %s", questionID)
	}
	return vote, nil
}

func countersOf(q *types.Question) aggregate.Counters {
	return aggregate.Counters{
		Suitable:    q.SuitableCount,
		Unsuitable:  q.UnsuitableCount,
		Achieved:    q.AchievedCount,
		NotAchieved: q.NotAchievedCount,
	}
}

func applyCounters(q *types.Question, c aggregate.Counters, t aggregate.Thresholds) {
	q.SuitableCount = c.Suitable
	q.UnsuitableCount = c.Unsuitable
	q.AchievedCount = c.Achieved
	q.NotAchievedCount = c.NotAchieved
	q.VoteCount = c.VoteCount()
	q.IsIndexed = t.Indexed(c)
	q.IsAchieved = aggregate.AchievedFlag(c, q.IsAchieved)
}

// dominantReason picks the modal unsuitable_reason among the question's
// current unsuitable votes; ties break lexically via the repo ordering.
func dominantReason(ctx context.Context, tx *gorm.DB, voteRepo repos.VoteRepo, questionID uuid.UUID) (*string, error) {
	counts, err := voteRepo.UnsuitableReasonCounts(ctx, tx, questionID)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	reason := counts[0].Reason
	return &reason, nil
}
