package store

import (
	"testing"

	"github.com/cuemby/vaultd/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", types.DeviceProfileStandard)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRunsMigrations(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow(`SELECT version FROM schema_meta`).Scan(&version); err != nil {
		t.Fatalf("query schema_meta: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("schema_meta version = %d, want %d", version, schemaVersion)
	}
}

func TestNoteRoundtrip(t *testing.T) {
	s := openTestStore(t)

	n := &types.Note{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SpaceID:   "space-1",
		Title:     "groceries",
		Body:      "milk, eggs",
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}
	if err := s.PutNote(n); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	got, err := s.GetNote(n.ID)
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.Title != n.Title || got.Body != n.Body {
		t.Errorf("GetNote() = %+v, want title/body from %+v", got, n)
	}
}

func TestNotePreservesCreatedAtOnUpsert(t *testing.T) {
	s := openTestStore(t)

	n := &types.Note{ID: "note-1", SpaceID: "s", Title: "a", Body: "b", CreatedAt: 1000, UpdatedAt: 1000}
	if err := s.PutNote(n); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	update := &types.Note{ID: "note-1", SpaceID: "s", Title: "a2", Body: "b2", CreatedAt: 9999, UpdatedAt: 2000}
	if err := s.PutNote(update); err != nil {
		t.Fatalf("PutNote() update error = %v", err)
	}

	got, err := s.GetNote("note-1")
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want original 1000 preserved across upsert", got.CreatedAt)
	}
	if got.Title != "a2" {
		t.Errorf("Title = %q, want updated value", got.Title)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetNote("missing"); err != ErrNotFound {
		t.Errorf("GetNote() error = %v, want %v", err, ErrNotFound)
	}
}

func TestNotesUpdatedSinceFiltersBySpaceAndWatermark(t *testing.T) {
	s := openTestStore(t)

	notes := []*types.Note{
		{ID: "n1", SpaceID: "a", Title: "1", CreatedAt: 100, UpdatedAt: 100},
		{ID: "n2", SpaceID: "a", Title: "2", CreatedAt: 200, UpdatedAt: 200},
		{ID: "n3", SpaceID: "b", Title: "3", CreatedAt: 300, UpdatedAt: 300},
	}
	for _, n := range notes {
		if err := s.PutNote(n); err != nil {
			t.Fatalf("PutNote() error = %v", err)
		}
	}

	got, err := s.NotesUpdatedSince("a", 150)
	if err != nil {
		t.Fatalf("NotesUpdatedSince() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "n2" {
		t.Errorf("NotesUpdatedSince() = %+v, want only n2", got)
	}
}

func TestDeviceTrustUpsert(t *testing.T) {
	s := openTestStore(t)

	dt := &types.DeviceTrust{
		DeviceID:      "dev-1",
		DeviceName:    "laptop",
		PublicKeyHash: "abc123",
		TrustLevel:    types.TrustLevelOnFirstUse,
		FirstSeenAt:   1,
		LastSeenAt:    1,
	}
	if err := s.PutDeviceTrust(dt); err != nil {
		t.Fatalf("PutDeviceTrust() error = %v", err)
	}

	dt.TrustLevel = types.TrustLevelVerified
	dt.LastSeenAt = 2
	if err := s.PutDeviceTrust(dt); err != nil {
		t.Fatalf("PutDeviceTrust() update error = %v", err)
	}

	got, err := s.GetDeviceTrust("dev-1")
	if err != nil {
		t.Fatalf("GetDeviceTrust() error = %v", err)
	}
	if got.TrustLevel != types.TrustLevelVerified {
		t.Errorf("TrustLevel = %v, want %v", got.TrustLevel, types.TrustLevelVerified)
	}
}

func TestEvictLLMCacheLRU(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		e := &types.LLMCacheEntry{
			Key:        string(rune('a' + i)),
			Provider:   "openai",
			Model:      "gpt",
			Response:   "hi",
			CreatedAt:  int64(i),
			LastUsedAt: int64(i),
		}
		if err := s.PutLLMCacheEntry(e); err != nil {
			t.Fatalf("PutLLMCacheEntry() error = %v", err)
		}
	}

	n, err := s.EvictLLMCacheLRU(2)
	if err != nil {
		t.Fatalf("EvictLLMCacheLRU() error = %v", err)
	}
	if n != 3 {
		t.Errorf("EvictLLMCacheLRU() evicted %d rows, want 3", n)
	}

	if _, err := s.GetLLMCacheEntry(string(rune('a'))); err != ErrNotFound {
		t.Errorf("expected oldest entry evicted, got err=%v", err)
	}
	if _, err := s.GetLLMCacheEntry(string(rune('a' + 4))); err != nil {
		t.Errorf("expected newest entry retained, got err=%v", err)
	}
}

func TestNoteSealedAtRestWhenDEKSet(t *testing.T) {
	s := openTestStore(t)
	s.SetDEK([]byte("0123456789abcdef0123456789abcdef"))

	n := &types.Note{ID: "note-1", SpaceID: "s", Title: "groceries", Body: "milk, eggs", CreatedAt: 1, UpdatedAt: 1}
	if err := s.PutNote(n); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	var rawTitle string
	if err := s.db.QueryRow(`SELECT title FROM notes WHERE id=?`, n.ID).Scan(&rawTitle); err != nil {
		t.Fatalf("query raw title: %v", err)
	}
	if rawTitle == n.Title {
		t.Errorf("title stored in plaintext = %q, want ciphertext when a DEK is set", rawTitle)
	}

	got, err := s.GetNote(n.ID)
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.Title != n.Title {
		t.Errorf("GetNote().Title = %q, want %q after unseal", got.Title, n.Title)
	}
}

func TestSearchNotesFindsSealedContent(t *testing.T) {
	s := openTestStore(t)
	s.SetDEK([]byte("0123456789abcdef0123456789abcdef"))

	if err := s.PutNote(&types.Note{ID: "note-1", SpaceID: "s", Title: "groceries", Body: "milk, eggs, bread", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}
	if err := s.PutNote(&types.Note{ID: "note-2", SpaceID: "s", Title: "recipe", Body: "pasta with garlic", CreatedAt: 2, UpdatedAt: 2}); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}

	got, err := s.SearchNotes("milk")
	if err != nil {
		t.Fatalf("SearchNotes() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "note-1" {
		t.Fatalf("SearchNotes(\"milk\") = %+v, want only note-1", got)
	}
	if got[0].Body != "milk, eggs, bread" {
		t.Errorf("SearchNotes() returned unsealed body = %q", got[0].Body)
	}
}

func TestSearchNotesDeletedNoteIsUnindexed(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutNote(&types.Note{ID: "note-1", SpaceID: "s", Title: "groceries", Body: "milk", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("PutNote() error = %v", err)
	}
	if err := s.DeleteNote("note-1"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	got, err := s.SearchNotes("milk")
	if err != nil {
		t.Fatalf("SearchNotes() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SearchNotes() = %+v, want none after delete", got)
	}
}

func TestPutProjectRejectsInvalidTransition(t *testing.T) {
	s := openTestStore(t)
	p := &types.Project{ID: "proj-1", SpaceID: "s", Name: "launch", Status: types.ProjectStatusProposed, CreatedAt: 1, UpdatedAt: 1}
	if err := s.PutProject(p); err != nil {
		t.Fatalf("PutProject() error = %v", err)
	}

	p.Status = types.ProjectStatusCompleted
	if err := s.PutProject(p); err != ErrInvalidStatusTransition {
		t.Fatalf("PutProject() err = %v, want ErrInvalidStatusTransition for proposed->completed", err)
	}

	got, err := s.GetProject("proj-1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Status != types.ProjectStatusProposed {
		t.Errorf("GetProject().Status = %v, rejected transition must not write", got.Status)
	}

	p.Status = types.ProjectStatusActive
	if err := s.PutProject(p); err != nil {
		t.Fatalf("PutProject() error = %v, proposed->active should be allowed", err)
	}
}

func TestTimeEntryRequiresExactlyOneParent(t *testing.T) {
	s := openTestStore(t)

	none := &types.TimeEntry{ID: "te-1", SpaceID: "s", StartedAt: 1, CreatedAt: 1, UpdatedAt: 1}
	if err := s.PutTimeEntry(none); err != ErrConstraintViolation {
		t.Fatalf("PutTimeEntry() err = %v, want ErrConstraintViolation with no parent set", err)
	}

	both := &types.TimeEntry{ID: "te-2", SpaceID: "s", TaskID: "task-1", ProjectID: "proj-1", StartedAt: 1, CreatedAt: 1, UpdatedAt: 1}
	if err := s.PutTimeEntry(both); err != ErrConstraintViolation {
		t.Fatalf("PutTimeEntry() err = %v, want ErrConstraintViolation with two parents set", err)
	}

	ok := &types.TimeEntry{ID: "te-3", SpaceID: "s", TaskID: "task-1", StartedAt: 1, CreatedAt: 1, UpdatedAt: 1}
	if err := s.PutTimeEntry(ok); err != nil {
		t.Fatalf("PutTimeEntry() error = %v, want a single parent accepted", err)
	}
}

func TestPutTaskMaterializesRecurrenceOnce(t *testing.T) {
	s := openTestStore(t)
	task := &types.Task{
		ID: "task-1", SpaceID: "s", Title: "water plants", Status: types.TaskStatusOpen,
		Recurrence: "DAILY", DueAt: 1000, CreatedAt: 1000, UpdatedAt: 1000,
	}
	if err := s.PutTask(task); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}

	task.Status = types.TaskStatusDone
	task.UpdatedAt = 1100
	if err := s.PutTask(task); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM tasks WHERE parent_task_id=?`, task.ID).Scan(&count); err != nil {
		t.Fatalf("query children: %v", err)
	}
	if count != 1 {
		t.Fatalf("children of %s = %d, want exactly 1", task.ID, count)
	}

	// Re-saving the same done task must not create a second successor.
	if err := s.PutTask(task); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM tasks WHERE parent_task_id=?`, task.ID).Scan(&count); err != nil {
		t.Fatalf("query children: %v", err)
	}
	if count != 1 {
		t.Fatalf("children of %s after resave = %d, want still 1", task.ID, count)
	}
}
