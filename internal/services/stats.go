package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/agiindex/agi-index-backend/internal/aggregate"
	"github.com/agiindex/agi-index-backend/internal/apierr"
	redisclient "github.com/agiindex/agi-index-backend/internal/clients/redis"
	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/repos"
	"github.com/agiindex/agi-index-backend/internal/types"
)

type StatsService interface {
	// Recompute rolls the whole approved question/vote population into the
	// single current snapshot row. Pure function of the tables; running it
	// twice with no writes in between produces the same values.
	Recompute(ctx context.Context) (*types.AGIStats, error)
	Current(ctx context.Context) (*types.AGIStats, error)

	// AppendDaily freezes the current roll-up under a date key. Dates are
	// write-once; a second append for the same date is a conflict.
	AppendDaily(ctx context.Context, date string) (*types.DailyMetric, error)
	History(ctx context.Context, limit int) ([]*types.DailyMetric, error)
}

type statsService struct {
	db           *gorm.DB
	log          *logger.Logger
	questionRepo repos.QuestionRepo
	voteRepo     repos.VoteRepo
	statsRepo    repos.StatsRepo
	cache        redisclient.StatsCache
}

// NewStatsService wires the roller. cache may be nil; the snapshot then
// lives only in the database row.
func NewStatsService(db *gorm.DB, log *logger.Logger, questionRepo repos.QuestionRepo, voteRepo repos.VoteRepo, statsRepo repos.StatsRepo, cache redisclient.StatsCache) StatsService {
	return &statsService{
		db:           db,
		log:          log.With("service", "StatsService"),
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		statsRepo:    statsRepo,
		cache:        cache,
	}
}

func (s *statsService) Recompute(ctx context.Context) (*types.AGIStats, error) {
	var stats *types.AGIStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rolled, err := s.rollup(ctx, tx)
		if err != nil {
			return err
		}
		if err := s.statsRepo.SaveCurrent(ctx, tx, rolled); err != nil {
			return err
		}
		stats = rolled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, stats)
	s.log.Info("Global stats recomputed",
		"overall_rate", stats.OverallRate,
		"index_questions", stats.IndexQuestionCount,
		"candidate_questions", stats.CandidateQuestionCount,
		"total_votes", stats.TotalVotes,
	)
	return stats, nil
}

func (s *statsService) Current(ctx context.Context) (*types.AGIStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("Stats cache read failed, falling back to database", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	stats, err := s.statsRepo.GetCurrent(ctx, nil)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return s.Recompute(ctx)
	}
	return stats, nil
}

func (s *statsService) AppendDaily(ctx context.Context, date string) (*types.DailyMetric, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apierr.Validation("date must be YYYY-MM-DD, got %q", date)
	}

	var metric *types.DailyMetric
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.statsRepo.GetDaily(ctx, tx, date)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict("a snapshot for %s already exists", date)
		}
		current, err := s.statsRepo.GetCurrent(ctx, tx)
		if err != nil {
			return err
		}
		if current == nil {
			if current, err = s.rollup(ctx, tx); err != nil {
				return err
			}
			if err := s.statsRepo.SaveCurrent(ctx, tx, current); err != nil {
				return err
			}
		}
		metric = &types.DailyMetric{
			Date:                   date,
			OverallRate:            current.OverallRate,
			LinguisticRate:         current.LinguisticRate,
			MultimodalRate:         current.MultimodalRate,
			LinguisticCount:        current.LinguisticCount,
			MultimodalCount:        current.MultimodalCount,
			TotalVotes:             current.TotalVotes,
			TotalUsers:             current.TotalUsers,
			IndexQuestionCount:     current.IndexQuestionCount,
			CandidateQuestionCount: current.CandidateQuestionCount,
			CreatedAt:              time.Now().UTC(),
		}
		return s.statsRepo.InsertDaily(ctx, tx, metric)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Historical snapshot appended", "date", date)
	return metric, nil
}

func (s *statsService) History(ctx context.Context, limit int) ([]*types.DailyMetric, error) {
	return s.statsRepo.ListDaily(ctx, nil, limit)
}

// rollup computes the snapshot from the tables. Rejected and pending
// questions are invisible to every count and rate.
func (s *statsService) rollup(ctx context.Context, tx *gorm.DB) (*types.AGIStats, error) {
	approved := types.StatusApproved
	questions, err := s.questionRepo.List(ctx, tx, repos.QuestionFilter{Status: &approved})
	if err != nil {
		return nil, err
	}
	tallies := make([]aggregate.QuestionTally, 0, len(questions))
	for _, q := range questions {
		tallies = append(tallies, aggregate.QuestionTally{
			Category:    q.Category,
			Indexed:     q.IsIndexed,
			Achieved:    q.AchievedCount,
			NotAchieved: q.NotAchievedCount,
		})
	}
	summary := aggregate.Rollup(tallies, types.CategoryLinguistic, types.CategoryMultimodal)

	totalVotes, err := s.voteRepo.CountAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.voteRepo.CountDistinctUsers(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &types.AGIStats{
		OverallRate:            summary.OverallRate,
		LinguisticRate:         summary.LinguisticRate,
		MultimodalRate:         summary.MultimodalRate,
		LinguisticCount:        summary.LinguisticCount,
		MultimodalCount:        summary.MultimodalCount,
		TotalVotes:             int(totalVotes),
		TotalUsers:             int(totalUsers),
		IndexQuestionCount:     summary.IndexQuestionCount,
		CandidateQuestionCount: summary.CandidateQuestionCount,
	}, nil
}

func (s *statsService) publish(ctx context.Context, stats *types.AGIStats) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, stats); err != nil {
		s.log.Warn("Failed to publish stats snapshot to cache", "error", err)
	}
}
