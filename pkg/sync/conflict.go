package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
	"github.com/cuemby/vaultd/pkg/vaultmetrics"
)

// Resolver queues conflicting edits between a local and a remote delta for
// manual resolution; it never picks a winner on its own.
//
// Conflict detection does not consult vector clocks: the applier queues a
// conflict when an incoming Create/Update is not strictly newer than the
// stored row and its data differs from the stored row's. Detect offers a
// separate check against a lastSyncAt time; the apply path does not call
// it.
type Resolver struct {
	store *store.Store
}

// NewResolver returns a Resolver writing detected conflicts to st.
func NewResolver(st *store.Store) *Resolver {
	return &Resolver{store: st}
}

// Detect reports whether local and remote both changed the same entity
// since lastSyncAt.
func (r *Resolver) Detect(local, remote SyncDelta, lastSyncAt int64) bool {
	return local.EntityID == remote.EntityID &&
		local.Timestamp > lastSyncAt &&
		remote.Timestamp > lastSyncAt
}

// Queue persists a conflict with Resolution set to Pending. It is the only
// way the applier records a conflict; nothing in this package auto-picks a
// winner.
func (r *Resolver) Queue(deviceID string, d SyncDelta, localData []byte) error {
	conflict := &types.SyncConflict{
		ID:         ulidNow(),
		DeviceID:   deviceID,
		EntityType: string(d.EntityType),
		EntityID:   d.EntityID,
		LocalData:  localData,
		RemoteData: d.Data,
		Resolution: types.ConflictResolutionPending,
		DetectedAt: time.Now().Unix(),
	}
	if err := r.store.PutSyncConflict(conflict); err != nil {
		return err
	}
	vaultmetrics.SyncConflictsTotal.Inc()
	return nil
}

// Resolve settles a previously queued conflict: LocalWins/RemoteWins apply
// the stored local or remote blob, Merged applies the caller-supplied
// merged blob. In all three cases the winning blob is written as a fresh
// Update (timestamped now, so it clears the entity's own LWW gate) and the
// conflict record is removed once the write succeeds.
func (r *Resolver) Resolve(conflictID string, choice types.ConflictResolution, merged []byte) error {
	c, err := r.store.GetSyncConflict(conflictID)
	if err != nil {
		return err
	}

	var winning []byte
	switch choice {
	case types.ConflictResolutionLocalWins:
		winning = c.LocalData
	case types.ConflictResolutionRemoteWins:
		winning = c.RemoteData
	case types.ConflictResolutionMerged:
		if len(merged) == 0 {
			return fmt.Errorf("sync: merged resolution requires merged data")
		}
		winning = merged
	default:
		return fmt.Errorf("sync: cannot resolve conflict to %q", choice)
	}

	now := time.Now().Unix()
	var fields map[string]json.RawMessage
	if !isDomainKind(EntityType(c.EntityType)) && json.Unmarshal(winning, &fields) == nil {
		// Typed rows are written with the UpdatedAt carried in the blob, so
		// restamp it to keep the entity's watermark moving forward.
		stamp, _ := json.Marshal(now)
		for _, k := range []string{"UpdatedAt", "updated_at"} {
			if _, ok := fields[k]; ok {
				fields[k] = stamp
			}
		}
		winning, _ = json.Marshal(fields)
	}

	applier := NewApplier(r.store, c.DeviceID)
	if _, err := applier.ApplyDelta(SyncDelta{
		EntityType: EntityType(c.EntityType),
		EntityID:   c.EntityID,
		Operation:  OperationUpdate,
		Data:       winning,
		Timestamp:  now,
	}); err != nil {
		return err
	}

	return r.store.DeleteSyncConflict(c.ID)
}
