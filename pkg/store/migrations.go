package store

// schemaVersion is the current migration level this build expects.
// Open refuses to operate against a vault whose schema_version is newer.
const schemaVersion = 1

var migrations = []string{
	migration001,
}

const migration001 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS spaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	color TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS vault_config (
	schema_version INTEGER NOT NULL,
	device_profile TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	parent_id TEXT,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	pinned INTEGER NOT NULL DEFAULT 0,
	archived INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_space_updated ON notes(space_id, updated_at);

-- notes_fts is a standalone (not external-content) FTS5 index: note
-- title/body are sealed at rest in the notes table, so the index keeps
-- its own plaintext copy populated by the store at write time instead of
-- pulling from the notes table's rowid, which would index ciphertext.
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	note_id UNINDEXED, title, body
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	project_id TEXT,
	parent_task_id TEXT,
	title TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	due_at INTEGER NOT NULL DEFAULT 0,
	recurrence TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_space_updated ON tasks(space_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	started_at INTEGER NOT NULL DEFAULT 0,
	completed_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_space_updated ON projects(space_id, updated_at);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	name TEXT NOT NULL,
	color TEXT,
	UNIQUE(space_id, name)
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id TEXT NOT NULL,
	tag_id TEXT NOT NULL,
	PRIMARY KEY (note_id, tag_id)
);

CREATE TABLE IF NOT EXISTS task_tags (
	task_id TEXT NOT NULL,
	tag_id TEXT NOT NULL,
	PRIMARY KEY (task_id, tag_id)
);

-- Exactly one of task_id/project_id/note_id identifies what the entry was
-- tracked against; the CHECK enforces that at the schema level rather than
-- relying on every caller to validate it.
CREATE TABLE IF NOT EXISTS time_entries (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	task_id TEXT,
	project_id TEXT,
	note_id TEXT,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	CHECK (
		(task_id IS NOT NULL) + (project_id IS NOT NULL) + (note_id IS NOT NULL) = 1
	)
);
CREATE INDEX IF NOT EXISTS idx_time_entries_space_updated ON time_entries(space_id, updated_at);

CREATE TABLE IF NOT EXISTS knowledge_cards (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	front TEXT NOT NULL,
	back TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'new',
	stability REAL NOT NULL DEFAULT 0,
	difficulty REAL NOT NULL DEFAULT 0,
	lapses INTEGER NOT NULL DEFAULT 0,
	due_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_space_updated ON knowledge_cards(space_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_cards_due ON knowledge_cards(due_at);

CREATE TABLE IF NOT EXISTS review_logs (
	id TEXT PRIMARY KEY,
	card_id TEXT NOT NULL,
	rating INTEGER NOT NULL,
	reviewed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);

-- Domain specializations (health metrics, finances, recipes, trips,
-- habits, goals, calendar events, music, social) share one table keyed
-- by a kind discriminator. Payload is the AEAD-sealed JSON encoding of
-- the specific Go struct for that kind; structural columns (id,
-- space_id, kind, timestamps) stay plaintext for indexing and for the
-- sync gatherer's "updated_at > since" scan.
CREATE TABLE IF NOT EXISTS domain_entities (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domain_entities_kind_updated ON domain_entities(space_id, kind, updated_at);

CREATE TABLE IF NOT EXISTS llm_cache (
	key TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	response TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_llm_cache_last_used ON llm_cache(last_used_at);

-- Device/sync bookkeeping tables are local to this vault file and are
-- never themselves gathered as sync deltas.
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	public_key BLOB NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL,
	paired_at INTEGER NOT NULL,
	last_seen_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS device_trust (
	device_id TEXT PRIMARY KEY,
	device_name TEXT NOT NULL,
	public_key_hash TEXT NOT NULL,
	trust_level TEXT NOT NULL,
	first_seen_at INTEGER NOT NULL,
	last_seen_at INTEGER NOT NULL,
	sync_count INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_device_trust_level ON device_trust(trust_level);

CREATE TABLE IF NOT EXISTS sync_history (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0,
	pushed INTEGER NOT NULL DEFAULT 0,
	pulled INTEGER NOT NULL DEFAULT 0,
	conflicts INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_history_device ON sync_history(device_id, started_at);

CREATE TABLE IF NOT EXISTS sync_conflicts (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	local_data BLOB NOT NULL,
	remote_data BLOB NOT NULL,
	resolution TEXT NOT NULL,
	detected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_conflicts_device ON sync_conflicts(device_id, detected_at);

-- device_secrets holds each paired device's X25519 shared secret,
-- sealed under the vault DEK like any other confidential payload; the
-- daemon's transport.KeyProvider unseals it on demand.
CREATE TABLE IF NOT EXISTS device_secrets (
	device_id TEXT PRIMARY KEY,
	sealed_secret BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_tasks (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	state TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_tasks_device_state ON sync_tasks(device_id, state);
`
