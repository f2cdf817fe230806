package types

// Space is a top-level partition of the vault. Most user content and all
// sync activity is scoped to exactly one space; a vault may hold several
// (e.g. "personal" and "work") sharing one encrypted store.
type Space struct {
	ID        string
	Name      string
	Color     string
	CreatedAt int64
	UpdatedAt int64
}

// VaultConfig is the single-row table describing how this vault file was
// keyed and tuned. It mirrors config.json but is also kept inside the
// encrypted database so a lost/corrupted config.json can be rebuilt from
// the vault itself.
type VaultConfig struct {
	SchemaVersion int
	DeviceProfile DeviceProfile
	CreatedAt     int64
}

// DeviceProfile selects the SQLite pragma tuning applied on open. See
// pkg/store for the concrete pragma values per profile.
type DeviceProfile string

const (
	DeviceProfileHighPerformance DeviceProfile = "high_performance"
	DeviceProfileStandard        DeviceProfile = "standard"
	DeviceProfileMobile          DeviceProfile = "mobile"
	DeviceProfileLowEnd          DeviceProfile = "low_end"
)

// Note is a freeform text entry, optionally nested under a parent note.
type Note struct {
	ID        string
	SpaceID   string
	ParentID  string // empty if top-level
	Title     string
	Body      string
	Pinned    bool
	Archived  bool
	CreatedAt int64
	UpdatedAt int64 `json:"updated_at"` // gathered as "modified_at" in the original schema
}

// Task is a single actionable item, optionally linked to a Project.
type Task struct {
	ID           string
	SpaceID      string
	ProjectID    string // empty if not attached to a project
	ParentTaskID string // set on the materialized successor of a recurring task
	Title        string
	Notes        string
	Status       TaskStatus
	Priority     TaskPriority
	DueAt        int64  // 0 if unset
	Recurrence   string // DAILY/WEEKLY/MONTHLY shorthand or an RFC 5545 RRULE, empty if one-off
	CompletedAt  int64  // 0 if not completed
	CreatedAt    int64
	UpdatedAt    int64
}

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusDoing     TaskStatus = "doing"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusCancelled TaskStatus = "cancelled"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Project groups tasks and notes under a lifecycle that moves forward
// through a fixed set of states; see pkg/sync's project policy for the
// allowed transition graph.
type Project struct {
	ID          string
	SpaceID     string
	Name        string
	Description string
	Status      ProjectStatus
	StartedAt   int64 // 0 if not yet started
	CompletedAt int64 // 0 if not completed
	CreatedAt   int64
	UpdatedAt   int64
}

type ProjectStatus string

const (
	ProjectStatusProposed  ProjectStatus = "proposed"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// projectTransitions is the allowed forward-movement graph for Project.Status.
// A transition to the same state is always permitted and checked separately.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusProposed:  {ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCancelled},
	ProjectStatusActive:    {ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled},
	ProjectStatusOnHold:    {ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled},
	ProjectStatusCompleted: {ProjectStatusActive, ProjectStatusOnHold},
	ProjectStatusCancelled: {ProjectStatusProposed, ProjectStatusActive},
}

// CanTransitionProject reports whether a Project may move from "from" to
// "to". Staying in the same state is always allowed.
func CanTransitionProject(from, to ProjectStatus) bool {
	if from == to {
		return true
	}
	for _, next := range projectTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Tag is a space-scoped label attachable to notes and tasks via the
// NoteTag/TaskTag join rows.
type Tag struct {
	ID      string
	SpaceID string
	Name    string
	Color   string
}

// NoteTag is the many-to-many join between Note and Tag.
type NoteTag struct {
	NoteID string
	TagID  string
}

// TaskTag is the many-to-many join between Task and Tag.
type TaskTag struct {
	TaskID string
	TagID  string
}

// TimeEntry tracks a span of work, attributed to exactly one of a Task, a
// Project, or a Note.
type TimeEntry struct {
	ID        string
	SpaceID   string
	TaskID    string // set if tracked against a task
	ProjectID string // set if tracked against a project
	NoteID    string // set if tracked against a note
	StartedAt int64
	EndedAt   int64 // 0 while running
	Notes     string
	CreatedAt int64
	UpdatedAt int64
}

// KnowledgeCardState is the lifecycle stage of a KnowledgeCard in the
// FSRS-derived scheduler.
type KnowledgeCardState string

const (
	KnowledgeCardStateNew        KnowledgeCardState = "new"
	KnowledgeCardStateLearning   KnowledgeCardState = "learning"
	KnowledgeCardStateReview     KnowledgeCardState = "review"
	KnowledgeCardStateRelearning KnowledgeCardState = "relearning"
)

// KnowledgeCard is a spaced-repetition flashcard. Scheduling fields follow
// the FSRS-derived formula implemented in pkg/sync's review policy.
type KnowledgeCard struct {
	ID         string
	SpaceID    string
	Front      string
	Back       string
	State      KnowledgeCardState
	Stability  float64 // estimated days until recall probability drops to ~90%
	Difficulty float64 // 0-1, higher is harder
	Lapses     int
	DueAt      int64
	CreatedAt  int64
	UpdatedAt  int64
}

// ReviewLog records a single grading of a KnowledgeCard.
type ReviewLog struct {
	ID         string
	CardID     string
	Rating     int // 1 (again) - 4 (easy)
	ReviewedAt int64
}

// HealthMetric is a single timestamped measurement (weight, heart rate,
// steps, sleep minutes, ...); Kind distinguishes the measurement type.
type HealthMetric struct {
	ID         string
	SpaceID    string
	Kind       string
	Value      float64
	Unit       string
	RecordedAt int64
	CreatedAt  int64
	UpdatedAt  int64
}

// Transaction is a single ledger entry in a personal-finance register.
type Transaction struct {
	ID          string
	SpaceID     string
	Account     string
	Category    string
	AmountCents int64
	Currency    string
	Memo        string
	OccurredAt  int64
	CreatedAt   int64
	UpdatedAt   int64
}

// Recipe is a cooking recipe with ingredients and steps stored as
// newline-delimited text, matching how the original import pipeline
// represents them.
type Recipe struct {
	ID          string
	SpaceID     string
	Title       string
	Ingredients string
	Steps       string
	Servings    int
	CreatedAt   int64
	UpdatedAt   int64
}

// Trip is a travel itinerary container; individual legs are kept as notes
// linked by ParentID convention rather than a separate table.
type Trip struct {
	ID        string
	SpaceID   string
	Name      string
	StartsAt  int64
	EndsAt    int64
	CreatedAt int64
	UpdatedAt int64
}

// Habit is a recurring behavior tracked via daily completion, with streak
// bookkeeping following the gap rules in pkg/sync's habit policy.
type Habit struct {
	ID            string
	SpaceID       string
	Name          string
	Frequency     string // "daily" or "weekly"; anything else is treated as daily
	TargetPerWeek int
	CurrentStreak int
	LongestStreak int
	LastCompleted int64 // 0 if never completed
	CreatedAt     int64
	UpdatedAt     int64
}

// Goal is a longer-horizon objective, optionally measured by a numeric
// target.
type Goal struct {
	ID          string
	SpaceID     string
	Name        string
	TargetValue float64
	CurrentValue float64
	DueAt       int64 // 0 if open-ended
	Status      GoalStatus
	CreatedAt   int64
	UpdatedAt   int64
}

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusAchieved  GoalStatus = "achieved"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// CalendarEvent is a scheduled appointment, importable from and exportable
// to CalDAV.
type CalendarEvent struct {
	ID          string
	SpaceID     string
	Title       string
	Location    string
	StartsAt    int64
	EndsAt      int64
	AllDay      bool
	RRule       string // empty if not recurring
	CreatedAt   int64
	UpdatedAt   int64
}

// Track is a single music track reference in the local library.
type Track struct {
	ID        string
	SpaceID   string
	Title     string
	Artist    string
	Album     string
	DurationS int
	FilePath  string
	CreatedAt int64
	UpdatedAt int64
}

// Playlist is an ordered collection of Track IDs. Order is stored as a
// JSON array of track IDs rather than a join table with a position
// column, matching the original's denormalized playlist representation.
type Playlist struct {
	ID        string
	SpaceID   string
	Name      string
	TrackIDs  []string
	CreatedAt int64
	UpdatedAt int64
}

// SocialAccount is a connected social media account used by the social
// timeline and scheduled-post features.
type SocialAccount struct {
	ID          string
	SpaceID     string
	Platform    string
	Handle      string
	AccessToken []byte // sealed with the vault DEK, never synced in plaintext
	CreatedAt   int64
	UpdatedAt   int64
}

// SocialPost is a draft or published post tied to a SocialAccount.
// (AccountID, PlatformPostID) is unique so re-importing a timeline cannot
// duplicate a post.
type SocialPost struct {
	ID             string
	SpaceID        string
	AccountID      string
	PlatformPostID string // empty for local drafts not yet published
	CategoryID     string
	Body           string
	ScheduledAt    int64 // 0 if not scheduled
	PublishedAt    int64 // 0 if not yet published
	CreatedAt      int64
	UpdatedAt      int64
}

// SocialCategory groups posts for the scheduling calendar view.
type SocialCategory struct {
	ID      string
	SpaceID string
	Name    string
	Color   string
}

// SocialSyncHistory records one timeline-fetch run against a
// SocialAccount; kept distinct from the device-level SyncHistory which
// tracks peer sync, not external-platform polling.
type SocialSyncHistory struct {
	ID          string
	AccountID   string
	FetchedAt   int64
	PostsFound  int
	Error       string // empty on success
}

// SocialWebviewSession caches the authenticated webview cookie jar used to
// scrape a platform timeline without a public API; the blob is sealed with
// the vault DEK and never transmitted over sync.
type SocialWebviewSession struct {
	ID          string
	AccountID   string
	CookieJar   []byte
	ExpiresAt   int64
	CreatedAt   int64
}

// LLMCacheEntry memoizes a prompt/response pair keyed by a content hash,
// with simple LRU eviction by LastUsedAt once the cache exceeds its
// configured entry budget.
type LLMCacheEntry struct {
	Key        string // hash of (provider, model, prompt)
	Provider   string
	Model      string
	Response   string
	TokensUsed int
	CreatedAt  int64
	LastUsedAt int64
}

// Device is a paired peer this vault has exchanged keys with.
type Device struct {
	ID         string
	Name       string
	PublicKey  []byte // X25519 public key
	Address    string // last-known "host:port" for the sync transport, empty if unknown
	Platform   string
	PairedAt   int64
	LastSeenAt int64
}

// DeviceTrust is the TOFU trust record for a Device, keyed by the device's
// ID and the hash of the public key last seen for it.
type DeviceTrust struct {
	DeviceID      string
	DeviceName    string
	PublicKeyHash string // sha256 hex of the device's current public key
	TrustLevel    TrustLevel
	FirstSeenAt   int64
	LastSeenAt    int64
	SyncCount     int
	Notes         string
}

// TrustLevel is the outcome of a TOFU verification; only
// TrustOnFirstUse and Verified allow a sync exchange to proceed.
type TrustLevel string

const (
	TrustLevelOnFirstUse TrustLevel = "trust_on_first_use"
	TrustLevelVerified   TrustLevel = "verified"
	TrustLevelKeyChanged TrustLevel = "key_changed"
	TrustLevelRevoked    TrustLevel = "revoked"
)

// AllowsSync reports whether a device at this trust level may exchange
// deltas; KeyChanged and Revoked both require explicit user action first.
func (t TrustLevel) AllowsSync() bool {
	return t == TrustLevelOnFirstUse || t == TrustLevelVerified
}

// SyncHistory is one completed (or failed) sync exchange with a peer
// device, kept for the status UI and for computing "last successful
// sync" per device.
type SyncHistory struct {
	ID           string
	DeviceID     string
	StartedAt    int64
	FinishedAt   int64
	Pushed       int
	Pulled       int
	Conflicts    int
	Error        string // empty on success
}

// SyncConflict records an incoming change the applier did not apply
// because the stored row was at least as new and differed from it.
// Resolution stays Pending while the conflict is open; Resolver.Resolve
// deletes the row once the chosen side has been written.
type SyncConflict struct {
	ID         string
	DeviceID   string
	EntityType string
	EntityID   string
	LocalData  []byte // JSON snapshot at detection time
	RemoteData []byte
	Resolution ConflictResolution
	DetectedAt int64
}

// ConflictResolution is how a SyncConflict was settled.
type ConflictResolution string

const (
	ConflictResolutionLocalWins  ConflictResolution = "local_wins"
	ConflictResolutionRemoteWins ConflictResolution = "remote_wins"
	ConflictResolutionMerged     ConflictResolution = "merged"
	ConflictResolutionPending    ConflictResolution = "pending"
)

// SyncTask is a queued unit of sync work (e.g. "push to device X",
// "pull from relay"); pkg/reconciler drains this queue, running at most
// one queued task per device per cycle.
type SyncTask struct {
	ID        string
	DeviceID  string
	Kind      SyncTaskKind
	State     SyncTaskState
	Attempts  int
	LastError string
	CreatedAt int64
	UpdatedAt int64
}

type SyncTaskKind string

const (
	SyncTaskKindPush SyncTaskKind = "push"
	SyncTaskKindPull SyncTaskKind = "pull"
	SyncTaskKindFull SyncTaskKind = "full"
)

type SyncTaskState string

const (
	SyncTaskStateQueued    SyncTaskState = "queued"
	SyncTaskStateRunning   SyncTaskState = "running"
	SyncTaskStateDone      SyncTaskState = "done"
	SyncTaskStateFailed    SyncTaskState = "failed"
)
