package services

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agiindex/agi-index-backend/internal/config"
	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/repos"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// newTestDB opens an in-memory sqlite database with the full schema. The
// single-connection pool keeps every session on the same in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
		&types.Profile{},
		&types.Question{},
		&types.Vote{},
		&types.AGIStats{},
		&types.DailyMetric{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type testEnv struct {
	db           *gorm.DB
	log          *logger.Logger
	questionRepo repos.QuestionRepo
	voteRepo     repos.VoteRepo
	profileRepo  repos.ProfileRepo
	statsRepo    repos.StatsRepo
	votes        VoteService
	questions    QuestionService
	stats        StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger()
	questionRepo := repos.NewQuestionRepo(db, log)
	voteRepo := repos.NewVoteRepo(db, log)
	profileRepo := repos.NewProfileRepo(db, log)
	statsRepo := repos.NewStatsRepo(db, log)
	agg := config.Default().Aggregation
	return &testEnv{
		db:           db,
		log:          log,
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		profileRepo:  profileRepo,
		statsRepo:    statsRepo,
		votes:        NewVoteService(db, log, agg, questionRepo, voteRepo, profileRepo),
		questions:    NewQuestionService(db, log, agg, questionRepo, voteRepo, profileRepo),
		stats:        NewStatsService(db, log, questionRepo, voteRepo, statsRepo, nil),
	}
}

func (e *testEnv) newProfile(t *testing.T) uuid.UUID {
	t.Helper()
	profile := &types.Profile{ID: uuid.New()}
	if err := e.db.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile.ID
}

func (e *testEnv) newProfiles(t *testing.T, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = e.newProfile(t)
	}
	return ids
}

func (e *testEnv) newQuestion(t *testing.T, category, status string) *types.Question {
	t.Helper()
	question := &types.Question{
		ID:            uuid.New(),
		Content:       "Can a machine pass this benchmark?",
		Category:      category,
		Status:        status,
		CurrentWeight: 1,
	}
	if err := e.db.Create(question).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	return question
}

func (e *testEnv) reloadQuestion(t *testing.T, id uuid.UUID) *types.Question {
	t.Helper()
	var q types.Question
	if err := e.db.Where("id = ?", id).First(&q).Error; err != nil {
		t.Fatalf("reload question: %v", err)
	}
	return &q
}

func bp(v bool) *bool     { return &v }
func sp(v string) *string { return &v }
