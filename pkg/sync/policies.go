package sync

import (
	"strings"
	"time"

	"github.com/cuemby/vaultd/pkg/types"
)

// policies.go holds the small pieces of domain logic that turn a bare
// store row into a rule-following entity: project lifecycle transitions,
// task recurrence, knowledge-card spaced repetition and habit streaks.
// None of it touches the store directly; callers read a row, call the
// matching function, and write the result back.
//
// Project transitions and task recurrence live in pkg/types (CanTransitionProject,
// NextTaskOccurrence) because pkg/store needs to call them directly and
// pkg/store cannot import pkg/sync. The wrappers below keep this package's
// existing call sites working.

// CanTransitionProject reports whether a project may move from one status
// to another.
func CanTransitionProject(from, to types.ProjectStatus) bool {
	return types.CanTransitionProject(from, to)
}

// NextTaskOccurrence returns the next instance of a recurring task once the
// current one is marked done, or (nil, false) if t isn't a completed
// recurring task.
func NextTaskOccurrence(t *types.Task, now time.Time) (*types.Task, bool) {
	return types.NextTaskOccurrence(t, ulidNow(), now)
}

// fsrsRatingStability seeds a brand-new card's stability by first rating,
// following the fixed warm-up table used before any review history exists.
var fsrsRatingStability = map[int]float64{
	1: 1.0,
	2: 3.0,
	3: 7.0,
	4: 7.0,
}

// ReviewKnowledgeCard grades a card on a 1 (again) - 4 (easy) scale using an
// FSRS-derived scheduler, updates its state, stability, difficulty and
// lapse count in place, and returns the ReviewLog entry for the grading.
//
// A brand-new card (State == "" or KnowledgeCardStateNew) takes its initial
// stability straight from fsrsRatingStability and moves to "learning" on a
// lapse-grade rating or "review" otherwise. A reviewed card's difficulty
// drifts by rating, its ease is derived from difficulty, and its stability
// either grows by the ease-scaled interval (rating >= 2) or is halved and
// counted as a lapse (rating == 1, "again").
func ReviewKnowledgeCard(card *types.KnowledgeCard, rating int, now time.Time) *types.ReviewLog {
	if rating < 1 {
		rating = 1
	}
	if rating > 4 {
		rating = 4
	}

	if card.State == "" {
		card.State = types.KnowledgeCardStateNew
	}

	if card.State == types.KnowledgeCardStateNew {
		card.Stability = fsrsRatingStability[rating]
		card.Difficulty = clamp01(0.3 + float64(4-rating)*0.15)
		if rating == 1 {
			card.State = types.KnowledgeCardStateLearning
		} else {
			card.State = types.KnowledgeCardStateReview
		}
	} else {
		intervalDays := 1.0
		if card.DueAt != 0 && card.UpdatedAt != 0 && card.DueAt > card.UpdatedAt {
			intervalDays = float64(card.DueAt-card.UpdatedAt) / 86400
		}
		if intervalDays < 1 {
			intervalDays = 1
		}

		card.Difficulty = clamp01(card.Difficulty + float64(rating-3)*0.1)
		ease := 2.5 - 0.8*card.Difficulty + 0.28*card.Difficulty*card.Difficulty

		if rating >= 2 {
			card.Stability = card.Stability * (1 + (ease-1)*intervalDays)
			if card.State == types.KnowledgeCardStateLearning {
				card.State = types.KnowledgeCardStateReview
			}
		} else {
			card.Stability = card.Stability * 0.5
			card.Lapses++
			card.State = types.KnowledgeCardStateRelearning
		}
	}

	if card.Stability < 0.5 {
		card.Stability = 0.5
	}

	card.DueAt = now.AddDate(0, 0, int(card.Stability+0.5)).Unix()
	card.UpdatedAt = now.Unix()

	return &types.ReviewLog{
		ID:         ulidNow(),
		CardID:     card.ID,
		Rating:     rating,
		ReviewedAt: now.Unix(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CompleteHabit records a completion against h, updating its streak in
// place per its Frequency's gap rule:
//
//   - daily: a gap of exactly one day extends the streak; any longer gap
//     resets it to 1.
//   - weekly: a gap of up to seven days extends the streak; beyond that
//     it resets to 1.
//
// Completing more than once on the same day leaves the streak unchanged.
func CompleteHabit(h *types.Habit, now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)

	if h.LastCompleted == 0 {
		h.CurrentStreak = 1
	} else {
		last := time.Unix(h.LastCompleted, 0).UTC().Truncate(24 * time.Hour)
		gapDays := int(today.Sub(last).Hours() / 24)

		if strings.EqualFold(h.Frequency, "weekly") {
			switch {
			case gapDays > 0 && gapDays <= 7:
				h.CurrentStreak++
			case gapDays > 7:
				h.CurrentStreak = 1
			}
		} else {
			switch {
			case gapDays == 1:
				h.CurrentStreak++
			case gapDays > 1:
				h.CurrentStreak = 1
			}
		}
	}

	if h.CurrentStreak > h.LongestStreak {
		h.LongestStreak = h.CurrentStreak
	}
	h.LastCompleted = now.Unix()
	h.UpdatedAt = now.Unix()
}
