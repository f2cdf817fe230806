package sync

import (
	"testing"

	"github.com/cuemby/vaultd/pkg/types"
)

func TestGatherSinceCollectsAcrossSpaces(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutSpace(&types.Space{ID: "space-2", Name: "work", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("PutSpace() error = %v", err)
	}

	n1 := &types.Note{ID: "note-1", SpaceID: "space-1", Title: "a", Body: "a", CreatedAt: 100, UpdatedAt: 100}
	n2 := &types.Note{ID: "note-2", SpaceID: "space-2", Title: "b", Body: "b", CreatedAt: 200, UpdatedAt: 200}
	if err := s.PutNote(n1); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}
	if err := s.PutNote(n2); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	g := NewGatherer(s)
	deltas, err := g.GatherSince(0)
	if err != nil {
		t.Fatalf("GatherSince() error = %v", err)
	}

	var ids []string
	for _, d := range deltas {
		if d.EntityType == EntityNote {
			ids = append(ids, d.EntityID)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("GatherSince() note deltas = %v, want both notes across both spaces", ids)
	}
}

func TestGatherSinceOnlyReturnsNewerThanWatermark(t *testing.T) {
	s := openTestStore(t)
	n1 := &types.Note{ID: "note-1", SpaceID: "space-1", Title: "old", Body: "a", CreatedAt: 100, UpdatedAt: 100}
	n2 := &types.Note{ID: "note-2", SpaceID: "space-1", Title: "new", Body: "b", CreatedAt: 300, UpdatedAt: 300}
	if err := s.PutNote(n1); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}
	if err := s.PutNote(n2); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	g := NewGatherer(s)
	deltas, err := g.GatherSince(200)
	if err != nil {
		t.Fatalf("GatherSince() error = %v", err)
	}
	if len(deltas) != 1 || deltas[0].EntityID != "note-2" {
		t.Fatalf("GatherSince(200) = %+v, want only note-2", deltas)
	}
}
