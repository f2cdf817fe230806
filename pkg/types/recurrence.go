package types

import (
	"strconv"
	"strings"
	"time"
)

// NextTaskOccurrence computes the successor of a completed recurring task.
// It returns (nil, false) when t is not done or carries no recurrence rule.
// The caller is responsible for checking that a successor has not already
// been materialized before persisting the result.
//
// Recurrence accepts either the legacy DAILY/WEEKLY/MONTHLY shorthand or a
// subset of RFC 5545 (FREQ=DAILY|WEEKLY|MONTHLY;INTERVAL=n), matching the
// two code paths the original task scheduler tried in order.
func NextTaskOccurrence(t *Task, newID string, now time.Time) (*Task, bool) {
	if t.Status != TaskStatusDone || strings.TrimSpace(t.Recurrence) == "" {
		return nil, false
	}

	freq, interval, ok := parseRecurrence(t.Recurrence)
	if !ok {
		return nil, false
	}

	base := time.Unix(t.DueAt, 0).UTC()
	if t.DueAt == 0 {
		base = now.UTC()
	}

	var next time.Time
	switch freq {
	case "DAILY":
		next = base.AddDate(0, 0, interval)
	case "WEEKLY":
		next = base.AddDate(0, 0, 7*interval)
	case "MONTHLY":
		next = base.AddDate(0, interval, 0)
	default:
		return nil, false
	}

	ts := now.Unix()
	return &Task{
		ID:           newID,
		SpaceID:      t.SpaceID,
		ProjectID:    t.ProjectID,
		ParentTaskID: t.ID,
		Title:        t.Title,
		Notes:        t.Notes,
		Status:       TaskStatusOpen,
		Priority:     t.Priority,
		DueAt:        next.Unix(),
		Recurrence:   t.Recurrence,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, true
}

// parseRecurrence accepts the legacy bare "DAILY"/"WEEKLY"/"MONTHLY" literal
// first, falling back to a minimal "FREQ=...;INTERVAL=n" RRULE reading.
// Interval defaults to 1 and unrecognized frequencies report ok=false.
func parseRecurrence(rule string) (freq string, interval int, ok bool) {
	rule = strings.TrimSpace(strings.ToUpper(rule))

	switch rule {
	case "DAILY", "WEEKLY", "MONTHLY":
		return rule, 1, true
	}

	if !strings.Contains(rule, "=") {
		return "", 0, false
	}

	interval = 1
	for _, part := range strings.Split(rule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "FREQ":
			freq = strings.TrimSpace(kv[1])
		case "INTERVAL":
			if n, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && n > 0 {
				interval = n
			}
		}
	}

	switch freq {
	case "DAILY", "WEEKLY", "MONTHLY":
		return freq, interval, true
	default:
		return "", 0, false
	}
}
