package sync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

// Applier writes a peer's deltas into the local store. Dispatch is by
// EntityType, the same shape as a raft.FSM.Apply command switch: each
// kind has its own small apply function, and an unrecognized kind is a
// hard error rather than a silent no-op.
//
// Every Create/Update is timestamp-gated against the stored row rather
// than written blindly: a delta only lands if it is strictly newer than
// what is already there. When it isn't, and the stored row differs from
// what the delta carries, that is a genuine conflict, queued via the
// Resolver rather than resolved automatically.
type Applier struct {
	store    *store.Store
	resolver *Resolver
	deviceID string
}

// NewApplier returns an Applier writing to st on behalf of deviceID, the
// peer whose envelope is being applied; deviceID is attributed to any
// conflict this apply run queues.
func NewApplier(st *store.Store, deviceID string) *Applier {
	return &Applier{store: st, resolver: NewResolver(st), deviceID: deviceID}
}

// ErrUnknownEntityType is returned when a delta names an entity_type
// this build does not know how to apply.
type ErrUnknownEntityType struct {
	EntityType EntityType
}

func (e *ErrUnknownEntityType) Error() string {
	return fmt.Sprintf("sync: unknown entity_type %q", e.EntityType)
}

// ApplyDelta applies a single delta, dispatching on its EntityType.
// dropped is non-empty (and err nil) when the delta was deliberately not
// applied: an unknown space_id, a duplicate of what's already stored, a
// newly queued conflict, or a rejected project status transition. err is
// reserved for failures the caller should treat as a hard stop.
func (a *Applier) ApplyDelta(d SyncDelta) (dropped string, err error) {
	if d.Operation == OperationCreate && d.SpaceID == "" {
		return "", ErrInvalidData
	}

	if d.SpaceID != "" {
		exists, err := a.store.SpaceExists(d.SpaceID)
		if err != nil {
			return "", err
		}
		if !exists {
			return fmt.Sprintf("%s %s: unknown space_id %q", d.EntityType, d.EntityID, d.SpaceID), nil
		}
	}

	if d.Operation == OperationDelete {
		return a.applyDelete(d)
	}

	switch d.EntityType {
	case EntityNote:
		return a.applyNote(d)
	case EntityTask:
		return a.applyTask(d)
	case EntityProject:
		return a.applyProject(d)
	case EntityTimeEntry:
		return a.applyTimeEntry(d)
	case EntityKnowledgeCard:
		return a.applyKnowledgeCard(d)
	default:
		if isDomainKind(d.EntityType) {
			return a.applyDomainEntity(d)
		}
		return "", &ErrUnknownEntityType{EntityType: d.EntityType}
	}
}

// ApplyDeltas applies a batch in order, stopping at the first hard error
// so the caller can retry from the failed delta. Individually dropped
// deltas (duplicates, queued conflicts, unknown spaces) do not abort the
// batch; their reasons are collected and returned alongside the count of
// deltas actually written.
func (a *Applier) ApplyDeltas(deltas []SyncDelta) (applied int, dropped []string, err error) {
	for _, d := range deltas {
		reason, err := a.ApplyDelta(d)
		if err != nil {
			return applied, dropped, err
		}
		if reason != "" {
			dropped = append(dropped, reason)
			continue
		}
		applied++
	}
	return applied, dropped, nil
}

// resolve is the shared Create/Update gate: apply immediately if there is
// no stored row or the delta is strictly newer, otherwise treat an
// identical stored row as a harmless duplicate and anything else as a
// conflict to queue.
func (a *Applier) resolve(entityType EntityType, id, spaceID string, timestamp int64, remoteData []byte, found bool, existingUpdatedAt int64, existingData []byte, write func() error) (string, error) {
	if !found || timestamp > existingUpdatedAt {
		if err := write(); err != nil {
			if errors.Is(err, store.ErrInvalidStatusTransition) {
				return fmt.Sprintf("%s %s: invalid status transition", entityType, id), nil
			}
			return "", err
		}
		return "", nil
	}

	if bytes.Equal(bytes.TrimSpace(existingData), bytes.TrimSpace(remoteData)) {
		return fmt.Sprintf("%s %s: duplicate of stored version", entityType, id), nil
	}

	if err := a.resolver.Queue(a.deviceID, SyncDelta{
		EntityType: entityType,
		EntityID:   id,
		Operation:  OperationUpdate,
		Data:       remoteData,
		Timestamp:  timestamp,
		SpaceID:    spaceID,
	}, existingData); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s: conflict queued for resolution", entityType, id), nil
}

func (a *Applier) applyDelete(d SyncDelta) (string, error) {
	switch d.EntityType {
	case EntityNote:
		existing, err := a.store.GetNote(d.EntityID)
		if err == store.ErrNotFound {
			return fmt.Sprintf("note %s: already absent", d.EntityID), nil
		}
		if err != nil {
			return "", err
		}
		if existing.UpdatedAt > d.Timestamp {
			return fmt.Sprintf("note %s: local version newer than delete", d.EntityID), nil
		}
		return "", a.store.DeleteNote(d.EntityID)

	case EntityTask:
		existing, err := a.store.GetTask(d.EntityID)
		if err == store.ErrNotFound {
			return fmt.Sprintf("task %s: already absent", d.EntityID), nil
		}
		if err != nil {
			return "", err
		}
		if existing.UpdatedAt > d.Timestamp {
			return fmt.Sprintf("task %s: local version newer than delete", d.EntityID), nil
		}
		return "", a.store.DeleteTask(d.EntityID)

	case EntityProject:
		existing, err := a.store.GetProject(d.EntityID)
		if err == store.ErrNotFound {
			return fmt.Sprintf("project %s: already absent", d.EntityID), nil
		}
		if err != nil {
			return "", err
		}
		if existing.UpdatedAt > d.Timestamp {
			return fmt.Sprintf("project %s: local version newer than delete", d.EntityID), nil
		}
		return "", a.store.DeleteProject(d.EntityID)

	case EntityTimeEntry:
		existing, err := a.store.GetTimeEntry(d.EntityID)
		if err == store.ErrNotFound {
			return fmt.Sprintf("time_entry %s: already absent", d.EntityID), nil
		}
		if err != nil {
			return "", err
		}
		if existing.UpdatedAt > d.Timestamp {
			return fmt.Sprintf("time_entry %s: local version newer than delete", d.EntityID), nil
		}
		return "", a.store.DeleteTimeEntry(d.EntityID)

	case EntityKnowledgeCard:
		existing, err := a.store.GetKnowledgeCard(d.EntityID)
		if err == store.ErrNotFound {
			return fmt.Sprintf("knowledge_card %s: already absent", d.EntityID), nil
		}
		if err != nil {
			return "", err
		}
		if existing.UpdatedAt > d.Timestamp {
			return fmt.Sprintf("knowledge_card %s: local version newer than delete", d.EntityID), nil
		}
		return "", a.store.DeleteKnowledgeCard(d.EntityID)

	default:
		if isDomainKind(d.EntityType) {
			_, _, _, updatedAt, err := a.store.GetDomainEntity(d.EntityID)
			if err == store.ErrNotFound {
				return fmt.Sprintf("%s %s: already absent", d.EntityType, d.EntityID), nil
			}
			if err != nil {
				return "", err
			}
			if updatedAt > d.Timestamp {
				return fmt.Sprintf("%s %s: local version newer than delete", d.EntityType, d.EntityID), nil
			}
			return "", a.store.DeleteDomainEntity(d.EntityID)
		}
		return "", &ErrUnknownEntityType{EntityType: d.EntityType}
	}
}

func (a *Applier) applyNote(d SyncDelta) (string, error) {
	var n types.Note
	if err := json.Unmarshal(d.Data, &n); err != nil {
		return "", fmt.Errorf("%w: unmarshal note delta: %v", ErrInvalidData, err)
	}
	if n.SpaceID == "" {
		n.SpaceID = d.SpaceID
	}

	existing, err := a.store.GetNote(n.ID)
	found := true
	var existingUpdatedAt int64
	var existingData []byte
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	} else {
		existingUpdatedAt = existing.UpdatedAt
		existingData, _ = json.Marshal(existing)
	}

	return a.resolve(EntityNote, n.ID, d.SpaceID, d.Timestamp, d.Data, found, existingUpdatedAt, existingData, func() error {
		return a.store.PutNote(&n)
	})
}

func (a *Applier) applyTask(d SyncDelta) (string, error) {
	var t types.Task
	if err := json.Unmarshal(d.Data, &t); err != nil {
		return "", fmt.Errorf("%w: unmarshal task delta: %v", ErrInvalidData, err)
	}
	if t.SpaceID == "" {
		t.SpaceID = d.SpaceID
	}

	existing, err := a.store.GetTask(t.ID)
	found := true
	var existingUpdatedAt int64
	var existingData []byte
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	} else {
		existingUpdatedAt = existing.UpdatedAt
		existingData, _ = json.Marshal(existing)
	}

	return a.resolve(EntityTask, t.ID, d.SpaceID, d.Timestamp, d.Data, found, existingUpdatedAt, existingData, func() error {
		return a.store.PutTask(&t)
	})
}

func (a *Applier) applyProject(d SyncDelta) (string, error) {
	var p types.Project
	if err := json.Unmarshal(d.Data, &p); err != nil {
		return "", fmt.Errorf("%w: unmarshal project delta: %v", ErrInvalidData, err)
	}
	if p.SpaceID == "" {
		p.SpaceID = d.SpaceID
	}

	existing, err := a.store.GetProject(p.ID)
	found := true
	var existingUpdatedAt int64
	var existingData []byte
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	} else {
		existingUpdatedAt = existing.UpdatedAt
		existingData, _ = json.Marshal(existing)
	}

	return a.resolve(EntityProject, p.ID, d.SpaceID, d.Timestamp, d.Data, found, existingUpdatedAt, existingData, func() error {
		return a.store.PutProject(&p)
	})
}

func (a *Applier) applyTimeEntry(d SyncDelta) (string, error) {
	var te types.TimeEntry
	if err := json.Unmarshal(d.Data, &te); err != nil {
		return "", fmt.Errorf("%w: unmarshal time_entry delta: %v", ErrInvalidData, err)
	}
	if te.SpaceID == "" {
		te.SpaceID = d.SpaceID
	}

	existing, err := a.store.GetTimeEntry(te.ID)
	found := true
	var existingUpdatedAt int64
	var existingData []byte
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	} else {
		existingUpdatedAt = existing.UpdatedAt
		existingData, _ = json.Marshal(existing)
	}

	return a.resolve(EntityTimeEntry, te.ID, d.SpaceID, d.Timestamp, d.Data, found, existingUpdatedAt, existingData, func() error {
		return a.store.PutTimeEntry(&te)
	})
}

func (a *Applier) applyKnowledgeCard(d SyncDelta) (string, error) {
	var c types.KnowledgeCard
	if err := json.Unmarshal(d.Data, &c); err != nil {
		return "", fmt.Errorf("%w: unmarshal knowledge_card delta: %v", ErrInvalidData, err)
	}
	if c.SpaceID == "" {
		c.SpaceID = d.SpaceID
	}

	existing, err := a.store.GetKnowledgeCard(c.ID)
	found := true
	var existingUpdatedAt int64
	var existingData []byte
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	} else {
		existingUpdatedAt = existing.UpdatedAt
		existingData, _ = json.Marshal(existing)
	}

	return a.resolve(EntityKnowledgeCard, c.ID, d.SpaceID, d.Timestamp, d.Data, found, existingUpdatedAt, existingData, func() error {
		return a.store.PutKnowledgeCard(&c)
	})
}

func (a *Applier) applyDomainEntity(d SyncDelta) (string, error) {
	_, payload, _, updatedAt, err := a.store.GetDomainEntity(d.EntityID)
	found := true
	if err == store.ErrNotFound {
		found = false
	} else if err != nil {
		return "", err
	}

	return a.resolve(d.EntityType, d.EntityID, d.SpaceID, d.Timestamp, d.Data, found, updatedAt, []byte(payload), func() error {
		return a.store.PutDomainEntity(string(d.EntityType), d.EntityID, d.SpaceID, string(d.Data), d.Timestamp, d.Timestamp)
	})
}

func isDomainKind(t EntityType) bool {
	for _, k := range domainEntityKinds {
		if string(t) == k {
			return true
		}
	}
	return false
}
