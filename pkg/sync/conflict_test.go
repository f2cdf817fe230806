package sync

import (
	"testing"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

func TestResolverQueueDoesNotAutoResolve(t *testing.T) {
	s := openTestStore(t)
	r := NewResolver(s)

	remote := noteDelta(OperationUpdate, "note-1", "space-1", "remote-edit", 50)
	if err := r.Queue("device-1", remote, []byte(`{"title":"local-edit"}`)); err != nil {
		t.Fatalf("Queue() error = %v", err)
	}

	conflicts, err := s.ListPendingConflicts("device-1")
	if err != nil {
		t.Fatalf("ListPendingConflicts() error = %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("ListPendingConflicts() = %d, want 1", len(conflicts))
	}
	if conflicts[0].Resolution != types.ConflictResolutionPending {
		t.Errorf("conflict.Resolution = %v, want Pending, Queue must never auto-resolve", conflicts[0].Resolution)
	}
}

func TestResolverResolveLocalWins(t *testing.T) {
	s := openTestStore(t)
	a := NewApplier(s, "device-1")
	r := NewResolver(s)

	if _, err := a.ApplyDelta(noteDelta(OperationCreate, "note-1", "space-1", "local-edit", 200)); err != nil {
		t.Fatalf("seed create: %v", err)
	}
	if _, err := a.ApplyDelta(noteDelta(OperationUpdate, "note-1", "space-1", "remote-edit", 50)); err != nil {
		t.Fatalf("conflicting update: %v", err)
	}

	conflicts, err := s.ListPendingConflicts("device-1")
	if err != nil || len(conflicts) != 1 {
		t.Fatalf("ListPendingConflicts() = (%v, %v), want 1 pending", conflicts, err)
	}

	if err := r.Resolve(conflicts[0].ID, types.ConflictResolutionLocalWins, nil); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	got, err := s.GetNote("note-1")
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.Title != "local-edit" {
		t.Errorf("GetNote().Title = %q, want local-edit preserved", got.Title)
	}

	if _, err := s.GetSyncConflict(conflicts[0].ID); err != store.ErrNotFound {
		t.Errorf("GetSyncConflict() err = %v, want ErrNotFound once resolved", err)
	}
}

func TestResolverResolveRemoteWins(t *testing.T) {
	s := openTestStore(t)
	a := NewApplier(s, "device-1")
	r := NewResolver(s)

	if _, err := a.ApplyDelta(noteDelta(OperationCreate, "note-1", "space-1", "local-edit", 200)); err != nil {
		t.Fatalf("seed create: %v", err)
	}
	if _, err := a.ApplyDelta(noteDelta(OperationUpdate, "note-1", "space-1", "remote-edit", 50)); err != nil {
		t.Fatalf("conflicting update: %v", err)
	}
	conflicts, _ := s.ListPendingConflicts("device-1")
	if len(conflicts) != 1 {
		t.Fatalf("want 1 pending conflict, got %d", len(conflicts))
	}

	if err := r.Resolve(conflicts[0].ID, types.ConflictResolutionRemoteWins, nil); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	got, err := s.GetNote("note-1")
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.Title != "remote-edit" {
		t.Errorf("GetNote().Title = %q, want remote-edit", got.Title)
	}
}

func TestResolverResolveMergedRequiresData(t *testing.T) {
	s := openTestStore(t)
	a := NewApplier(s, "device-1")
	r := NewResolver(s)

	if _, err := a.ApplyDelta(noteDelta(OperationCreate, "note-1", "space-1", "local-edit", 200)); err != nil {
		t.Fatalf("seed create: %v", err)
	}
	if _, err := a.ApplyDelta(noteDelta(OperationUpdate, "note-1", "space-1", "remote-edit", 50)); err != nil {
		t.Fatalf("conflicting update: %v", err)
	}
	conflicts, _ := s.ListPendingConflicts("device-1")
	if len(conflicts) != 1 {
		t.Fatalf("want 1 pending conflict, got %d", len(conflicts))
	}

	if err := r.Resolve(conflicts[0].ID, types.ConflictResolutionMerged, nil); err == nil {
		t.Fatalf("Resolve() with Merged and no data should error")
	}
}
