/*
Package types defines the core data structures used throughout vaultd.

This package contains the entity model persisted by the encrypted vault and
exchanged during peer sync: spaces, user-content rows (notes, tasks,
projects, time entries, knowledge cards, domain specializations) and the
device-local sync bookkeeping rows (device, device trust, sync history,
sync conflict, sync task).

Every identifier is a ULID rendered as its canonical 26-character string
form, except relay bearer tokens, which are 32 random bytes hex-encoded. Unless
a field name says otherwise, timestamps are Unix seconds. Every synced row
carries CreatedAt and a monotone UpdatedAt that doubles as the sync
watermark: the gatherer selects rows by "UpdatedAt > since" per space, so a
write must never set UpdatedAt to a value at or before the row's previous
value.

# Entity families

User content (synced, space-scoped):
  - Note, Task, Project, Tag with NoteTag/TaskTag join rows
  - TimeEntry, KnowledgeCard and its ReviewLog
  - Domain specializations: HealthMetric, Transaction, Recipe, Trip, Habit,
    Goal, CalendarEvent, Track, Playlist, SocialAccount, SocialPost,
    SocialCategory

Vault-level (not synced as deltas, local to the vault file):
  - Space, VaultConfig

Device and sync bookkeeping (local to a device, never pushed as deltas):
  - Device, DeviceTrust, SyncHistory, SyncConflict, SyncTask, LLMCacheEntry

# Conventions

Enums are typed strings with a const block, matching the rest of the
entity's JSON shape on the wire. Optional associations use a pointer or a
zero-value sentinel ("" for an unset parent ID) rather than a separate
"has X" boolean. Slices and maps are nil until populated; callers must not
assume a non-nil empty slice.

Structs carry no `db` tags; pkg/store maps columns to fields by hand. The
only `json` tag is Note.UpdatedAt's ("updated_at"); every other field
encodes under its Go field name.
*/
package types
