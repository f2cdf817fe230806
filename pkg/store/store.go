package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cuemby/vaultd/pkg/crypto"
	"github.com/cuemby/vaultd/pkg/types"
)

// Store wraps a single vault's SQLite connection pool.
type Store struct {
	db      *sql.DB
	profile types.DeviceProfile

	dekMu sync.RWMutex
	dek   []byte // vault DEK, installed post-Open by pkg/vault; nil until unlocked
}

// SetDEK installs the vault's data-encryption key so content columns are
// sealed/unsealed on every write and read. Called by pkg/vault right after
// Open succeeds; a Store with no DEK installed stores content in the clear,
// which is the state cmd/vault-migrate's raw inspection tool relies on.
func (s *Store) SetDEK(dek []byte) {
	s.dekMu.Lock()
	defer s.dekMu.Unlock()
	s.dek = dek
}

func (s *Store) seal(plaintext string) (string, error) {
	s.dekMu.RLock()
	dek := s.dek
	s.dekMu.RUnlock()
	if dek == nil {
		return plaintext, nil
	}
	return crypto.EncryptString(dek, plaintext)
}

func (s *Store) unseal(stored string) (string, error) {
	s.dekMu.RLock()
	dek := s.dek
	s.dekMu.RUnlock()
	if dek == nil {
		return stored, nil
	}
	out, err := crypto.DecryptString(dek, stored)
	if err != nil {
		return "", err
	}
	return out, nil
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Open opens (creating if necessary) the SQLite file at path, applies
// pragma tuning for profile, and runs any pending migrations.
func Open(path string, profile types.DeviceProfile) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection avoids SQLITE_BUSY; it also serializes every
	// read and write, so reads do not run concurrently with each other or
	// with a write.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, profile: profile}
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applyPragmas() error {
	cfg := ForProfile(s.profile)
	stmts := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", cfg.JournalMode),
		fmt.Sprintf("PRAGMA synchronous=%d", cfg.Synchronous),
		fmt.Sprintf("PRAGMA cache_size=%d", cfg.CacheSize),
		fmt.Sprintf("PRAGMA mmap_size=%d", cfg.MmapSize),
		fmt.Sprintf("PRAGMA page_size=%d", cfg.PageSize),
		fmt.Sprintf("PRAGMA temp_store=%d", cfg.TempStore),
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout),
		fmt.Sprintf("PRAGMA auto_vacuum=%d", cfg.AutoVacuum),
	}
	if cfg.ForeignKeys {
		stmts = append(stmts, "PRAGMA foreign_keys=ON")
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	var count int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_meta'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check schema_meta: %w", err)
	}

	current := 0
	if count > 0 {
		if err := s.db.QueryRow(`SELECT version FROM schema_meta LIMIT 1`).Scan(&current); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("read schema version: %w", err)
		}
	}
	if current > schemaVersion {
		return ErrSchemaMismatch
	}

	for i := current; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}
	}
	if count == 0 {
		if _, err := s.db.Exec(`INSERT INTO schema_meta(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	} else if current < schemaVersion {
		if _, err := s.db.Exec(`UPDATE schema_meta SET version = ?`, schemaVersion); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw connection pool for packages (sync gatherer/applier)
// that need entity-specific SQL beyond this file's CRUD helpers.
func (s *Store) DB() *sql.DB {
	return s.db
}

func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if isConstraintErr(err) {
		return ErrConstraintViolation
	}
	return err
}

// --- Space ---

func (s *Store) PutSpace(sp *types.Space) error {
	_, err := s.db.Exec(`
		INSERT INTO spaces (id, name, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, color=excluded.color, updated_at=excluded.updated_at`,
		sp.ID, sp.Name, sp.Color, sp.CreatedAt, sp.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) ListSpaces() ([]*types.Space, error) {
	rows, err := s.db.Query(`SELECT id, name, color, created_at, updated_at FROM spaces ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Space
	for rows.Next() {
		sp := &types.Space{}
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Color, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// --- Note ---

// PutNote upserts a note. Title and body are sealed with the vault DEK
// before hitting disk; the FTS index is fed the plaintext first since it
// has no way to search ciphertext.
func (s *Store) PutNote(n *types.Note) error {
	if _, err := s.db.Exec(`DELETE FROM notes_fts WHERE note_id=?`, n.ID); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO notes_fts (note_id, title, body) VALUES (?, ?, ?)`, n.ID, n.Title, n.Body); err != nil {
		return err
	}

	title, err := s.seal(n.Title)
	if err != nil {
		return err
	}
	body, err := s.seal(n.Body)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO notes (id, space_id, parent_id, title, body, pinned, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM notes WHERE id=?1), ?8), ?9)
		ON CONFLICT(id) DO UPDATE SET
			space_id=excluded.space_id, parent_id=excluded.parent_id, title=excluded.title,
			body=excluded.body, pinned=excluded.pinned, archived=excluded.archived, updated_at=excluded.updated_at`,
		n.ID, n.SpaceID, nullable(n.ParentID), title, body, n.Pinned, n.Archived, n.CreatedAt, n.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) GetNote(id string) (*types.Note, error) {
	n := &types.Note{}
	var parentID sql.NullString
	var title, body string
	err := s.db.QueryRow(`SELECT id, space_id, parent_id, title, body, pinned, archived, created_at, updated_at FROM notes WHERE id=?`, id).
		Scan(&n.ID, &n.SpaceID, &parentID, &title, &body, &n.Pinned, &n.Archived, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.ParentID = parentID.String
	if n.Title, err = s.unseal(title); err != nil {
		return nil, err
	}
	if n.Body, err = s.unseal(body); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) DeleteNote(id string) error {
	if _, err := s.db.Exec(`DELETE FROM notes_fts WHERE note_id=?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM notes WHERE id=?`, id)
	return err
}

func (s *Store) NotesUpdatedSince(spaceID string, since int64) ([]*types.Note, error) {
	rows, err := s.db.Query(`SELECT id, space_id, parent_id, title, body, pinned, archived, created_at, updated_at
		FROM notes WHERE space_id=? AND updated_at > ? ORDER BY updated_at`, spaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Note
	for rows.Next() {
		n := &types.Note{}
		var parentID sql.NullString
		var title, body string
		if err := rows.Scan(&n.ID, &n.SpaceID, &parentID, &title, &body, &n.Pinned, &n.Archived, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.ParentID = parentID.String
		if n.Title, err = s.unseal(title); err != nil {
			return nil, err
		}
		if n.Body, err = s.unseal(body); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SearchNotes runs a full-text query against note title/body and returns
// matching notes ordered by FTS5's default bm25 relevance rank. The index
// holds plaintext regardless of whether notes are sealed at rest.
func (s *Store) SearchNotes(query string) ([]*types.Note, error) {
	rows, err := s.db.Query(`SELECT note_id FROM notes_fts WHERE notes_fts MATCH ? ORDER BY rank`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*types.Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.GetNote(id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// --- Task ---

// PutTask upserts a task with title/notes sealed under the vault DEK. If
// this write transitions the task into TaskStatusDone and the task carries
// a recurrence rule, a single successor task is materialized with
// ParentTaskID set, unless one has already been created for it.
func (s *Store) PutTask(t *types.Task) error {
	var prevStatus sql.NullString
	if err := s.db.QueryRow(`SELECT status FROM tasks WHERE id=?`, t.ID).Scan(&prevStatus); err != nil && err != sql.ErrNoRows {
		return err
	}

	title, err := s.seal(t.Title)
	if err != nil {
		return err
	}
	notes, err := s.seal(t.Notes)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO tasks (id, space_id, project_id, parent_task_id, title, notes, status, priority, due_at, recurrence, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM tasks WHERE id=?1), ?12), ?13)
		ON CONFLICT(id) DO UPDATE SET
			space_id=excluded.space_id, project_id=excluded.project_id, parent_task_id=excluded.parent_task_id,
			title=excluded.title, notes=excluded.notes, status=excluded.status, priority=excluded.priority,
			due_at=excluded.due_at, recurrence=excluded.recurrence, completed_at=excluded.completed_at, updated_at=excluded.updated_at`,
		t.ID, t.SpaceID, nullable(t.ProjectID), nullable(t.ParentTaskID), title, notes, string(t.Status), string(t.Priority),
		t.DueAt, t.Recurrence, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return wrapErr(err)
	}

	if t.Status == types.TaskStatusDone && (!prevStatus.Valid || types.TaskStatus(prevStatus.String) != types.TaskStatusDone) {
		if err := s.materializeRecurrence(t); err != nil {
			return err
		}
	}
	return nil
}

// materializeRecurrence creates the successor of a just-completed recurring
// task, skipping if a child already exists for it.
func (s *Store) materializeRecurrence(t *types.Task) error {
	var existing int
	if err := s.db.QueryRow(`SELECT count(*) FROM tasks WHERE parent_task_id=?`, t.ID).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	next, ok := types.NextTaskOccurrence(t, newULID(), time.Now())
	if !ok {
		return nil
	}
	return s.PutTask(next)
}

func (s *Store) GetTask(id string) (*types.Task, error) {
	t := &types.Task{}
	var projectID, parentTaskID sql.NullString
	var status, priority, title, notes string
	err := s.db.QueryRow(`SELECT id, space_id, project_id, parent_task_id, title, notes, status, priority, due_at, recurrence, completed_at, created_at, updated_at
		FROM tasks WHERE id=?`, id).
		Scan(&t.ID, &t.SpaceID, &projectID, &parentTaskID, &title, &notes, &status, &priority, &t.DueAt, &t.Recurrence, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ProjectID = projectID.String
	t.ParentTaskID = parentTaskID.String
	t.Status = types.TaskStatus(status)
	t.Priority = types.TaskPriority(priority)
	if t.Title, err = s.unseal(title); err != nil {
		return nil, err
	}
	if t.Notes, err = s.unseal(notes); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) DeleteTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id=?`, id)
	return err
}

func (s *Store) TasksUpdatedSince(spaceID string, since int64) ([]*types.Task, error) {
	rows, err := s.db.Query(`SELECT id, space_id, project_id, parent_task_id, title, notes, status, priority, due_at, recurrence, completed_at, created_at, updated_at
		FROM tasks WHERE space_id=? AND updated_at > ? ORDER BY updated_at`, spaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		t := &types.Task{}
		var projectID, parentTaskID sql.NullString
		var status, priority, title, notes string
		if err := rows.Scan(&t.ID, &t.SpaceID, &projectID, &parentTaskID, &title, &notes, &status, &priority, &t.DueAt, &t.Recurrence, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.ProjectID = projectID.String
		t.ParentTaskID = parentTaskID.String
		t.Status = types.TaskStatus(status)
		t.Priority = types.TaskPriority(priority)
		if t.Title, err = s.unseal(title); err != nil {
			return nil, err
		}
		if t.Notes, err = s.unseal(notes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Project ---

// PutProject upserts a project with name/description sealed under the
// vault DEK. If a row with this ID already exists, the status change is
// checked against the lifecycle graph and rejected with
// ErrInvalidStatusTransition before anything is written.
func (s *Store) PutProject(p *types.Project) error {
	var prevStatus sql.NullString
	if err := s.db.QueryRow(`SELECT status FROM projects WHERE id=?`, p.ID).Scan(&prevStatus); err != nil && err != sql.ErrNoRows {
		return err
	}
	if prevStatus.Valid && !types.CanTransitionProject(types.ProjectStatus(prevStatus.String), p.Status) {
		return ErrInvalidStatusTransition
	}

	name, err := s.seal(p.Name)
	if err != nil {
		return err
	}
	description, err := s.seal(p.Description)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO projects (id, space_id, name, description, status, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM projects WHERE id=?1), ?8), ?9)
		ON CONFLICT(id) DO UPDATE SET
			space_id=excluded.space_id, name=excluded.name, description=excluded.description, status=excluded.status,
			started_at=excluded.started_at, completed_at=excluded.completed_at, updated_at=excluded.updated_at`,
		p.ID, p.SpaceID, name, description, string(p.Status), p.StartedAt, p.CompletedAt, p.CreatedAt, p.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) DeleteProject(id string) error {
	_, err := s.db.Exec(`DELETE FROM projects WHERE id=?`, id)
	return err
}

func (s *Store) GetProject(id string) (*types.Project, error) {
	p := &types.Project{}
	var status, name, description string
	err := s.db.QueryRow(`SELECT id, space_id, name, description, status, started_at, completed_at, created_at, updated_at
		FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.SpaceID, &name, &description, &status, &p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = types.ProjectStatus(status)
	if p.Name, err = s.unseal(name); err != nil {
		return nil, err
	}
	if p.Description, err = s.unseal(description); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ProjectsUpdatedSince(spaceID string, since int64) ([]*types.Project, error) {
	rows, err := s.db.Query(`SELECT id, space_id, name, description, status, started_at, completed_at, created_at, updated_at
		FROM projects WHERE space_id=? AND updated_at > ? ORDER BY updated_at`, spaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p := &types.Project{}
		var status, name, description string
		if err := rows.Scan(&p.ID, &p.SpaceID, &name, &description, &status, &p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Status = types.ProjectStatus(status)
		if p.Name, err = s.unseal(name); err != nil {
			return nil, err
		}
		if p.Description, err = s.unseal(description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Domain entities (generic JSON-payload rows) ---

// PutDomainEntity upserts a domain specialization row. payload is the
// plaintext JSON encoding of the kind-specific struct; it is sealed with
// the vault DEK before being written.
func (s *Store) PutDomainEntity(kind, id, spaceID, payload string, createdAt, updatedAt int64) error {
	sealed, err := s.seal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO domain_entities (id, space_id, kind, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, COALESCE((SELECT created_at FROM domain_entities WHERE id=?1), ?5), ?6)
		ON CONFLICT(id) DO UPDATE SET space_id=excluded.space_id, kind=excluded.kind, payload=excluded.payload, updated_at=excluded.updated_at`,
		id, spaceID, kind, sealed, createdAt, updatedAt)
	return wrapErr(err)
}

func (s *Store) GetDomainEntity(id string) (kind, payload string, createdAt, updatedAt int64, err error) {
	var sealed string
	err = s.db.QueryRow(`SELECT kind, payload, created_at, updated_at FROM domain_entities WHERE id=?`, id).
		Scan(&kind, &sealed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		err = ErrNotFound
		return
	}
	if err != nil {
		return
	}
	payload, err = s.unseal(sealed)
	return
}

func (s *Store) DeleteDomainEntity(id string) error {
	_, err := s.db.Exec(`DELETE FROM domain_entities WHERE id=?`, id)
	return err
}

type DomainEntityRow struct {
	ID        string
	SpaceID   string
	Kind      string
	Payload   string
	CreatedAt int64
	UpdatedAt int64
}

func (s *Store) DomainEntitiesUpdatedSince(spaceID, kind string, since int64) ([]DomainEntityRow, error) {
	rows, err := s.db.Query(`SELECT id, space_id, kind, payload, created_at, updated_at
		FROM domain_entities WHERE space_id=? AND kind=? AND updated_at > ? ORDER BY updated_at`, spaceID, kind, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DomainEntityRow
	for rows.Next() {
		var r DomainEntityRow
		var sealed string
		if err := rows.Scan(&r.ID, &r.SpaceID, &r.Kind, &sealed, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if r.Payload, err = s.unseal(sealed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- TimeEntry ---

func (s *Store) PutTimeEntry(te *types.TimeEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO time_entries (id, space_id, task_id, project_id, note_id, started_at, ended_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM time_entries WHERE id=?1), ?9), ?10)
		ON CONFLICT(id) DO UPDATE SET
			space_id=excluded.space_id, task_id=excluded.task_id, project_id=excluded.project_id, note_id=excluded.note_id,
			started_at=excluded.started_at, ended_at=excluded.ended_at, notes=excluded.notes, updated_at=excluded.updated_at`,
		te.ID, te.SpaceID, nullable(te.TaskID), nullable(te.ProjectID), nullable(te.NoteID),
		te.StartedAt, te.EndedAt, te.Notes, te.CreatedAt, te.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) GetTimeEntry(id string) (*types.TimeEntry, error) {
	te := &types.TimeEntry{}
	var taskID, projectID, noteID sql.NullString
	err := s.db.QueryRow(`SELECT id, space_id, task_id, project_id, note_id, started_at, ended_at, notes, created_at, updated_at
		FROM time_entries WHERE id=?`, id).
		Scan(&te.ID, &te.SpaceID, &taskID, &projectID, &noteID, &te.StartedAt, &te.EndedAt, &te.Notes, &te.CreatedAt, &te.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	te.TaskID, te.ProjectID, te.NoteID = taskID.String, projectID.String, noteID.String
	return te, nil
}

func (s *Store) DeleteTimeEntry(id string) error {
	_, err := s.db.Exec(`DELETE FROM time_entries WHERE id=?`, id)
	return err
}

func (s *Store) TimeEntriesUpdatedSince(spaceID string, since int64) ([]*types.TimeEntry, error) {
	rows, err := s.db.Query(`SELECT id, space_id, task_id, project_id, note_id, started_at, ended_at, notes, created_at, updated_at
		FROM time_entries WHERE space_id=? AND updated_at > ? ORDER BY updated_at`, spaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.TimeEntry
	for rows.Next() {
		te := &types.TimeEntry{}
		var taskID, projectID, noteID sql.NullString
		if err := rows.Scan(&te.ID, &te.SpaceID, &taskID, &projectID, &noteID, &te.StartedAt, &te.EndedAt, &te.Notes, &te.CreatedAt, &te.UpdatedAt); err != nil {
			return nil, err
		}
		te.TaskID, te.ProjectID, te.NoteID = taskID.String, projectID.String, noteID.String
		out = append(out, te)
	}
	return out, rows.Err()
}

// --- KnowledgeCard ---

func (s *Store) PutKnowledgeCard(c *types.KnowledgeCard) error {
	front, err := s.seal(c.Front)
	if err != nil {
		return err
	}
	back, err := s.seal(c.Back)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO knowledge_cards (id, space_id, front, back, state, stability, difficulty, lapses, due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM knowledge_cards WHERE id=?1), ?10), ?11)
		ON CONFLICT(id) DO UPDATE SET
			space_id=excluded.space_id, front=excluded.front, back=excluded.back, state=excluded.state,
			stability=excluded.stability, difficulty=excluded.difficulty, lapses=excluded.lapses,
			due_at=excluded.due_at, updated_at=excluded.updated_at`,
		c.ID, c.SpaceID, front, back, string(c.State), c.Stability, c.Difficulty, c.Lapses, c.DueAt, c.CreatedAt, c.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) GetKnowledgeCard(id string) (*types.KnowledgeCard, error) {
	c := &types.KnowledgeCard{}
	var state, front, back string
	err := s.db.QueryRow(`SELECT id, space_id, front, back, state, stability, difficulty, lapses, due_at, created_at, updated_at
		FROM knowledge_cards WHERE id=?`, id).
		Scan(&c.ID, &c.SpaceID, &front, &back, &state, &c.Stability, &c.Difficulty, &c.Lapses, &c.DueAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.State = types.KnowledgeCardState(state)
	if c.Front, err = s.unseal(front); err != nil {
		return nil, err
	}
	if c.Back, err = s.unseal(back); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) DeleteKnowledgeCard(id string) error {
	_, err := s.db.Exec(`DELETE FROM knowledge_cards WHERE id=?`, id)
	return err
}

func (s *Store) KnowledgeCardsUpdatedSince(spaceID string, since int64) ([]*types.KnowledgeCard, error) {
	rows, err := s.db.Query(`SELECT id, space_id, front, back, state, stability, difficulty, lapses, due_at, created_at, updated_at
		FROM knowledge_cards WHERE space_id=? AND updated_at > ? ORDER BY updated_at`, spaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.KnowledgeCard
	for rows.Next() {
		c := &types.KnowledgeCard{}
		var state, front, back string
		if err := rows.Scan(&c.ID, &c.SpaceID, &front, &back, &state, &c.Stability, &c.Difficulty, &c.Lapses, &c.DueAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.State = types.KnowledgeCardState(state)
		if c.Front, err = s.unseal(front); err != nil {
			return nil, err
		}
		if c.Back, err = s.unseal(back); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutReviewLog records a single grading of a KnowledgeCard.
func (s *Store) PutReviewLog(l *types.ReviewLog) error {
	_, err := s.db.Exec(`INSERT INTO review_logs (id, card_id, rating, reviewed_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.CardID, l.Rating, l.ReviewedAt)
	return wrapErr(err)
}

// SpaceExists reports whether a space with this ID has been created
// locally, used by the sync applier to drop deltas for spaces this vault
// has never seen.
func (s *Store) SpaceExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT count(*) FROM spaces WHERE id=?`, id).Scan(&count)
	return count > 0, err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
