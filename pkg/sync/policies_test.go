package sync

import (
	"testing"
	"time"

	"github.com/cuemby/vaultd/pkg/types"
)

func TestCanTransitionProject(t *testing.T) {
	tests := []struct {
		name string
		from types.ProjectStatus
		to   types.ProjectStatus
		want bool
	}{
		{"proposed to active", types.ProjectStatusProposed, types.ProjectStatusActive, true},
		{"proposed to completed direct", types.ProjectStatusProposed, types.ProjectStatusCompleted, false},
		{"active to on hold", types.ProjectStatusActive, types.ProjectStatusOnHold, true},
		{"on hold back to active", types.ProjectStatusOnHold, types.ProjectStatusActive, true},
		{"active to completed", types.ProjectStatusActive, types.ProjectStatusCompleted, true},
		{"completed to cancelled direct", types.ProjectStatusCompleted, types.ProjectStatusCancelled, false},
		{"completed back to on hold", types.ProjectStatusCompleted, types.ProjectStatusOnHold, true},
		{"cancelled can be revived", types.ProjectStatusCancelled, types.ProjectStatusActive, true},
		{"cancelled cannot reach on hold directly", types.ProjectStatusCancelled, types.ProjectStatusOnHold, false},
		{"same status always allowed", types.ProjectStatusActive, types.ProjectStatusActive, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitionProject(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionProject(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNextTaskOccurrenceDaily(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	task := &types.Task{ID: "t1", Status: types.TaskStatusDone, Recurrence: "daily", DueAt: now.Unix()}

	next, ok := NextTaskOccurrence(task, now)
	if !ok {
		t.Fatal("expected a next occurrence")
	}
	if next.ID == task.ID {
		t.Error("next occurrence should have a new ID")
	}
	if next.ParentTaskID != task.ID {
		t.Errorf("next parent task id = %s, want %s", next.ParentTaskID, task.ID)
	}
	if next.Status != types.TaskStatusOpen {
		t.Errorf("next status = %s, want open", next.Status)
	}
	if want := task.DueAt + 86400; next.DueAt != want {
		t.Errorf("next due at = %d, want %d", next.DueAt, want)
	}
}

func TestNextTaskOccurrenceNotDone(t *testing.T) {
	task := &types.Task{ID: "t1", Status: types.TaskStatusOpen, Recurrence: "daily"}
	if _, ok := NextTaskOccurrence(task, time.Now()); ok {
		t.Error("expected no occurrence for an unfinished task")
	}
}

func TestNextTaskOccurrenceUnrecognizedRule(t *testing.T) {
	task := &types.Task{ID: "t1", Status: types.TaskStatusDone, Recurrence: "FREQ=YEARLY"}
	if _, ok := NextTaskOccurrence(task, time.Now()); ok {
		t.Error("expected no occurrence for a frequency this build does not support")
	}
}

func TestNextTaskOccurrenceRRuleInterval(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	task := &types.Task{ID: "t1", Status: types.TaskStatusDone, Recurrence: "FREQ=DAILY;INTERVAL=2", DueAt: now.Unix()}

	next, ok := NextTaskOccurrence(task, now)
	if !ok {
		t.Fatal("expected a next occurrence")
	}
	if want := task.DueAt + 2*86400; next.DueAt != want {
		t.Errorf("next due at = %d, want %d", next.DueAt, want)
	}
}

func TestReviewKnowledgeCardNewCardSeedsStability(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	card := &types.KnowledgeCard{ID: "c1"}

	log := ReviewKnowledgeCard(card, 4, now)
	if card.State != types.KnowledgeCardStateReview {
		t.Fatalf("state after first easy review = %s, want review", card.State)
	}
	if card.Stability != fsrsRatingStability[4] {
		t.Fatalf("stability = %f, want %f", card.Stability, fsrsRatingStability[4])
	}
	if log.Rating != 4 || log.CardID != card.ID {
		t.Errorf("unexpected review log: %+v", log)
	}
}

func TestReviewKnowledgeCardNewCardAgainGoesToLearning(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	card := &types.KnowledgeCard{ID: "c1"}

	ReviewKnowledgeCard(card, 1, now)
	if card.State != types.KnowledgeCardStateLearning {
		t.Fatalf("state after first again = %s, want learning", card.State)
	}
	if card.Stability != fsrsRatingStability[1] {
		t.Fatalf("stability = %f, want %f", card.Stability, fsrsRatingStability[1])
	}
}

func TestReviewKnowledgeCardPassingRatingGrowsStability(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	card := &types.KnowledgeCard{ID: "c1", State: types.KnowledgeCardStateReview, Stability: 7, Difficulty: 0.3, UpdatedAt: now.Add(-7 * 24 * time.Hour).Unix()}

	ReviewKnowledgeCard(card, 3, now)
	if card.Stability <= 7 {
		t.Errorf("stability %f did not grow past 7", card.Stability)
	}
	if card.State != types.KnowledgeCardStateReview {
		t.Errorf("state = %s, want review", card.State)
	}
}

func TestReviewKnowledgeCardLapseHalvesStabilityAndCountsLapse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	card := &types.KnowledgeCard{ID: "c1", State: types.KnowledgeCardStateReview, Stability: 20, Difficulty: 0.3, Lapses: 1, UpdatedAt: now.Add(-10 * 24 * time.Hour).Unix()}

	log := ReviewKnowledgeCard(card, 1, now)
	if card.Stability != 10 {
		t.Fatalf("stability after lapse = %f, want 10", card.Stability)
	}
	if card.Lapses != 2 {
		t.Fatalf("lapses = %d, want 2", card.Lapses)
	}
	if card.State != types.KnowledgeCardStateRelearning {
		t.Errorf("state after lapse = %s, want relearning", card.State)
	}
	if log.Rating != 1 {
		t.Errorf("log rating = %d, want 1", log.Rating)
	}
}

func TestReviewKnowledgeCardDifficultyClamped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	card := &types.KnowledgeCard{ID: "c1", State: types.KnowledgeCardStateReview, Stability: 5, Difficulty: 0.95, UpdatedAt: now.Add(-24 * time.Hour).Unix()}

	for i := 0; i < 5; i++ {
		ReviewKnowledgeCard(card, 4, now)
	}
	if card.Difficulty > 1 {
		t.Errorf("difficulty %f exceeded clamp of 1", card.Difficulty)
	}
}

func TestCompleteHabitDailyStreak(t *testing.T) {
	h := &types.Habit{ID: "h1", Frequency: "daily"}
	day0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	CompleteHabit(h, day0)
	if h.CurrentStreak != 1 {
		t.Fatalf("first completion streak = %d, want 1", h.CurrentStreak)
	}

	day1 := day0.Add(24 * time.Hour)
	CompleteHabit(h, day1)
	if h.CurrentStreak != 2 {
		t.Fatalf("consecutive day streak = %d, want 2", h.CurrentStreak)
	}

	gap := day1.Add(72 * time.Hour)
	CompleteHabit(h, gap)
	if h.CurrentStreak != 1 {
		t.Fatalf("streak after gap = %d, want reset to 1", h.CurrentStreak)
	}
	if h.LongestStreak != 2 {
		t.Errorf("longest streak = %d, want 2", h.LongestStreak)
	}
}

func TestCompleteHabitWeeklyAllowsSevenDayGap(t *testing.T) {
	h := &types.Habit{ID: "h1", Frequency: "weekly"}
	day0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	CompleteHabit(h, day0)
	CompleteHabit(h, day0.Add(7*24*time.Hour))
	if h.CurrentStreak != 2 {
		t.Fatalf("weekly streak after 7 day gap = %d, want 2", h.CurrentStreak)
	}

	CompleteHabit(h, day0.Add(7*24*time.Hour+8*24*time.Hour))
	if h.CurrentStreak != 1 {
		t.Fatalf("weekly streak after 8 day gap = %d, want reset to 1", h.CurrentStreak)
	}
}

func TestCompleteHabitSameDayNoDoubleCount(t *testing.T) {
	h := &types.Habit{ID: "h1", Frequency: "daily"}
	day0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	CompleteHabit(h, day0)
	CompleteHabit(h, day0.Add(2*time.Hour))
	if h.CurrentStreak != 1 {
		t.Errorf("same-day completion changed streak to %d, want 1", h.CurrentStreak)
	}
}
