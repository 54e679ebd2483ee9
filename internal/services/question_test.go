package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/agiindex/agi-index-backend/internal/apierr"
	"github.com/agiindex/agi-index-backend/internal/types"
)

func TestSubmitQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	authorID := env.newProfile(t)

	question, err := env.questions.Submit(ctx, authorID, "  Can the system translate idioms faithfully?  ", "Linguistic", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if question.Content != "Can the system translate idioms faithfully?" {
		t.Fatalf("content not trimmed: %q", question.Content)
	}
	if question.Category != types.CategoryLinguistic {
		t.Fatalf("category = %q, want %q", question.Category, types.CategoryLinguistic)
	}
	if question.Status != types.StatusPending {
		t.Fatalf("new questions must start pending, got %q", question.Status)
	}

	var profile types.Profile
	if err := env.db.Where("id = ?", authorID).First(&profile).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if profile.TotalQuestionCount != 1 {
		t.Fatalf("total_question_count = %d, want 1", profile.TotalQuestionCount)
	}
	if profile.TotalApprovedQuestionCount != 0 {
		t.Fatalf("pending submission must not count as approved")
	}
}

func TestSubmitQuestionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	authorID := env.newProfile(t)

	if _, err := env.questions.Submit(ctx, authorID, "   ", types.CategoryLinguistic, nil); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("blank content: error = %v, want %s", err, apierr.CodeValidation)
	}
	if _, err := env.questions.Submit(ctx, authorID, "valid content", "philosophical", nil); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("unknown category: error = %v, want %s", err, apierr.CodeValidation)
	}
	if _, err := env.questions.Submit(ctx, uuid.New(), "valid content", types.CategoryLinguistic, nil); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("unknown author: error = %v, want %s", err, apierr.CodeNotFound)
	}
}

func TestSetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	authorID := env.newProfile(t)

	question, err := env.questions.Submit(ctx, authorID, "Does it compose novel melodies?", types.CategoryMultimodal, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	updated, err := env.questions.SetStatus(ctx, question.ID, "approved")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != types.StatusApproved {
		t.Fatalf("status = %q, want approved", updated.Status)
	}

	// Approving twice is idempotent on the author counter.
	if _, err := env.questions.SetStatus(ctx, question.ID, "approved"); err != nil {
		t.Fatalf("repeat SetStatus: %v", err)
	}
	var profile types.Profile
	if err := env.db.Where("id = ?", authorID).First(&profile).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if profile.TotalApprovedQuestionCount != 1 {
		t.Fatalf("total_approved_question_count = %d, want 1", profile.TotalApprovedQuestionCount)
	}

	if _, err := env.questions.SetStatus(ctx, question.ID, "pending"); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("pending is not a moderation decision: error = %v", err)
	}
	if _, err := env.questions.SetStatus(ctx, uuid.New(), "approved"); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("unknown question: error = %v, want %s", err, apierr.CodeNotFound)
	}
}

func TestListFiltersApprovedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	approved := env.newQuestion(t, types.CategoryLinguistic, types.StatusApproved)
	env.newQuestion(t, types.CategoryLinguistic, types.StatusPending)
	env.newQuestion(t, types.CategoryMultimodal, types.StatusRejected)
	multi := env.newQuestion(t, types.CategoryMultimodal, types.StatusApproved)

	all, err := env.questions.List(ctx, QuestionListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2 (approved only)", len(all))
	}

	category := types.CategoryMultimodal
	filtered, err := env.questions.List(ctx, QuestionListFilter{Category: &category})
	if err != nil {
		t.Fatalf("List by category: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != multi.ID {
		t.Fatalf("category filter returned wrong rows")
	}

	indexed := false
	candidates, err := env.questions.List(ctx, QuestionListFilter{Indexed: &indexed})
	if err != nil {
		t.Fatalf("List by indexed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("indexed=false should match both approved questions, got %d", len(candidates))
	}
	_ = approved
}

func TestGetCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	question := env.newQuestion(t, types.CategoryLinguistic, types.StatusApproved)
	users := env.newProfiles(t, 3)

	intents := []VoteIntent{
		{IsSuitable: bp(true), IsAchieved: bp(true)},
		{IsSuitable: bp(true), IsAchieved: bp(false)},
		{IsSuitable: bp(true), IsAchieved: bp(true)},
	}
	for i, intent := range intents {
		if _, _, err := env.votes.SubmitVote(ctx, users[i], question.ID, intent); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}

	counters, err := env.questions.GetCounters(ctx, question.ID)
	if err != nil {
		t.Fatalf("GetCounters: %v", err)
	}
	if counters.SuitableCount != 3 || counters.VoteCount != 3 {
		t.Fatalf("counters = %+v", counters)
	}
	if counters.AchievedPercentage != 67 {
		t.Fatalf("achieved_percentage = %d, want 67", counters.AchievedPercentage)
	}

	if _, err := env.questions.GetCounters(ctx, uuid.New()); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("unknown question: error = %v, want %s", err, apierr.CodeNotFound)
	}
}

func TestVerifyRepairsDivergedCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	question := env.newQuestion(t, types.CategoryLinguistic, types.StatusApproved)
	users := env.newProfiles(t, 4)

	for _, userID := range users {
		if _, _, err := env.votes.SubmitVote(ctx, userID, question.ID, VoteIntent{IsSuitable: bp(true), IsAchieved: bp(true)}); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := env.questions.Verify(ctx, question.ID); err != nil {
		t.Fatalf("Verify on consistent counters: %v", err)
	}

	// Corrupt the stored counters behind the aggregator's back.
	if err := env.db.Model(&types.Question{}).Where("id = ?", question.ID).
		Update("suitable_count", 99).Error; err != nil {
		t.Fatalf("corrupt counters: %v", err)
	}

	err := env.questions.Verify(ctx, question.ID)
	if !apierr.IsCode(err, apierr.CodeConsistency) {
		t.Fatalf("Verify on corrupted counters: error = %v, want %s", err, apierr.CodeConsistency)
	}

	// Verify repairs as a side effect, so a second pass is clean.
	repaired := env.reloadQuestion(t, question.ID)
	if repaired.SuitableCount != 4 {
		t.Fatalf("suitable_count = %d after repair, want 4", repaired.SuitableCount)
	}
	if err := env.questions.Verify(ctx, question.ID); err != nil {
		t.Fatalf("Verify after repair: %v", err)
	}
}

func TestRecomputeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := env.newProfiles(t, 5)

	questions := []*types.Question{
		env.newQuestion(t, types.CategoryLinguistic, types.StatusApproved),
		env.newQuestion(t, types.CategoryMultimodal, types.StatusApproved),
		env.newQuestion(t, types.CategoryLinguistic, types.StatusPending),
	}
	for _, q := range questions[:2] {
		if q.Status != types.StatusApproved {
			continue
		}
		for _, userID := range users {
			if _, _, err := env.votes.SubmitVote(ctx, userID, q.ID, VoteIntent{IsSuitable: bp(true), IsAchieved: bp(true)}); err != nil {
				t.Fatalf("vote: %v", err)
			}
		}
	}

	// Corrupt both voted questions.
	for _, q := range questions[:2] {
		if err := env.db.Model(&types.Question{}).Where("id = ?", q.ID).
			Updates(map[string]any{"suitable_count": 0, "vote_count": 0}).Error; err != nil {
			t.Fatalf("corrupt counters: %v", err)
		}
	}

	count, err := env.questions.RecomputeAll(ctx)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if count != 3 {
		t.Fatalf("recomputed %d questions, want 3", count)
	}
	for _, q := range questions[:2] {
		reloaded := env.reloadQuestion(t, q.ID)
		if reloaded.SuitableCount != 5 || reloaded.VoteCount != 5 {
			t.Fatalf("question %s not repaired: %+v", q.ID, reloaded)
		}
	}
}
