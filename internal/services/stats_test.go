package services

import (
	"context"
	"testing"

	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/types"
)

// seedStatsPopulation builds the fixture the roll-up tests share: a
// linguistic index question at 6/10 achieved, a multimodal index question at
// 3/12, and a multimodal candidate whose achievement votes must stay out of
// every rate.
func seedStatsPopulation(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	users := env.newProfiles(t, 12)

	linguistic := env.newQuestion(t, types.CategoryLinguistic, types.StatusApproved)
	for i := 0; i < 10; i++ {
		achieved := i < 6
		if _, _, err := env.votes.SubmitVote(ctx, users[i], linguistic.ID, VoteIntent{IsSuitable: bp(true), IsAchieved: bp(achieved)}); err != nil {
			t.Fatalf("linguistic vote %d: %v", i, err)
		}
	}

	multimodal := env.newQuestion(t, types.CategoryMultimodal, types.StatusApproved)
	for i := 0; i < 12; i++ {
		achieved := i < 3
		if _, _, err := env.votes.SubmitVote(ctx, users[i], multimodal.ID, VoteIntent{IsSuitable: bp(true), IsAchieved: bp(achieved)}); err != nil {
			t.Fatalf("multimodal vote %d: %v", i, err)
		}
	}

	candidate := env.newQuestion(t, types.CategoryMultimodal, types.StatusApproved)
	for i := 0; i < 3; i++ {
		if _, _, err := env.votes.SubmitVote(ctx, users[i], candidate.ID, VoteIntent{IsSuitable: bp(true), IsAchieved: bp(true)}); err != nil {
			t.Fatalf("candidate vote %d: %v", i, err)
		}
	}

	// Pending and rejected questions are invisible to the roll-up.
	env.newQuestion(t, types.CategoryLinguistic, types.StatusPending)
	env.newQuestion(t, types.CategoryLinguistic, types.StatusRejected)
}

func TestStatsRecompute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedStatsPopulation(t, env)

	stats, err := env.stats.Recompute(ctx)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if stats.LinguisticRate != 60.0 {
		t.Fatalf("linguistic_rate = %v, want 60.0", stats.LinguisticRate)
	}
	if stats.MultimodalRate != 25.0 {
		t.Fatalf("multimodal_rate = %v, want 25.0", stats.MultimodalRate)
	}
	// 9 achieved over 22 achievement opinions, volume-weighted. A category
	// average would say 42.5.
	if stats.OverallRate != 40.9 {
		t.Fatalf("overall_rate = %v, want 40.9", stats.OverallRate)
	}
	if stats.IndexQuestionCount != 2 || stats.CandidateQuestionCount != 1 {
		t.Fatalf("index/candidate = %d/%d, want 2/1", stats.IndexQuestionCount, stats.CandidateQuestionCount)
	}
	if stats.LinguisticCount != 1 || stats.MultimodalCount != 2 {
		t.Fatalf("linguistic/multimodal = %d/%d, want 1/2", stats.LinguisticCount, stats.MultimodalCount)
	}
	if stats.TotalVotes != 25 {
		t.Fatalf("total_votes = %d, want 25", stats.TotalVotes)
	}
	if stats.TotalUsers != 12 {
		t.Fatalf("total_users = %d, want 12 (distinct voters, not vote rows)", stats.TotalUsers)
	}

	// No writes in between, so a second run lands on the same values.
	again, err := env.stats.Recompute(ctx)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	a, b := *again, *stats
	a.UpdatedAt = b.UpdatedAt
	if a != b {
		t.Fatalf("recompute not deterministic: %+v vs %+v", again, stats)
	}
}

func TestStatsCurrentFallsBackToRecompute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedStatsPopulation(t, env)

	// No snapshot row exists yet; Current must compute one on demand.
	stats, err := env.stats.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if stats.OverallRate != 40.9 {
		t.Fatalf("overall_rate = %v, want 40.9", stats.OverallRate)
	}

	var stored types.AGIStats
	if err := env.db.First(&stored).Error; err != nil {
		t.Fatalf("snapshot row should be persisted: %v", err)
	}
	if stored.OverallRate != 40.9 {
		t.Fatalf("stored overall_rate = %v, want 40.9", stored.OverallRate)
	}
}

func TestAppendDaily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedStatsPopulation(t, env)

	if _, err := env.stats.Recompute(ctx); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	metric, err := env.stats.AppendDaily(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("AppendDaily: %v", err)
	}
	if metric.Date != "2026-08-31" {
		t.Fatalf("date = %q", metric.Date)
	}
	if metric.OverallRate != 40.9 || metric.TotalVotes != 25 {
		t.Fatalf("snapshot did not freeze current values: %+v", metric)
	}

	// Dates are write-once.
	if _, err := env.stats.AppendDaily(ctx, "2026-08-31"); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("duplicate date: error = %v, want %s", err, apierr.CodeConflict)
	}

	if _, err := env.stats.AppendDaily(ctx, "08/31/2026"); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("malformed date: error = %v, want %s", err, apierr.CodeValidation)
	}

	history, err := env.stats.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Date != "2026-08-31" {
		t.Fatalf("history = %+v", history)
	}
}

func TestAppendDailyComputesSnapshotWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedStatsPopulation(t, env)

	// No Recompute beforehand: the append rolls up on the spot.
	metric, err := env.stats.AppendDaily(ctx, "2026-09-01")
	if err != nil {
		t.Fatalf("AppendDaily without snapshot: %v", err)
	}
	if metric.OverallRate != 40.9 {
		t.Fatalf("overall_rate = %v, want 40.9", metric.OverallRate)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, date := range []string{"2026-08-30", "2026-08-28", "2026-08-29"} {
		if _, err := env.stats.AppendDaily(ctx, date); err != nil {
			t.Fatalf("AppendDaily %s: %v", date, err)
		}
	}

	history, err := env.stats.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len = %d, want 3", len(history))
	}
	for i, want := range []string{"2026-08-28", "2026-08-29", "2026-08-30"} {
		if history[i].Date != want {
			t.Fatalf("history[%d] = %s, want %s (ascending by date)", i, history[i].Date, want)
		}
	}

	limited, err := env.stats.History(ctx, 2)
	if err != nil {
		t.Fatalf("History with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited len = %d, want 2", len(limited))
	}
}
