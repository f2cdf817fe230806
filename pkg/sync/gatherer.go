package sync

import (
	"encoding/json"
	"sort"

	"github.com/cuemby/vaultd/pkg/store"
)

// Gatherer collects local changes made since a given watermark into a
// flat, timestamp-sorted slice of deltas ready to send to a peer.
type Gatherer struct {
	store *store.Store
}

// NewGatherer returns a Gatherer reading from st.
func NewGatherer(st *store.Store) *Gatherer {
	return &Gatherer{store: st}
}

// GatherSince returns every delta across every space this vault knows
// about with UpdatedAt > since, across every entity kind, sorted by
// timestamp ascending so the applier can replay them in the order they
// actually happened. Sync is vault-to-vault, not space-scoped, so a
// device id here would never match anything; every local space is
// enumerated and gathered.
func (g *Gatherer) GatherSince(since int64) ([]SyncDelta, error) {
	spaces, err := g.store.ListSpaces()
	if err != nil {
		return nil, err
	}

	var deltas []SyncDelta
	for _, sp := range spaces {
		spaceDeltas, err := g.gatherSpaceSince(sp.ID, since)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, spaceDeltas...)
	}

	sort.Slice(deltas, func(i, j int) bool {
		a, b := deltas[i], deltas[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		return a.EntityID < b.EntityID
	})
	return deltas, nil
}

// gatherSpaceSince collects every delta for a single space.
func (g *Gatherer) gatherSpaceSince(spaceID string, since int64) ([]SyncDelta, error) {
	var deltas []SyncDelta

	notes, err := g.store.NotesUpdatedSince(spaceID, since)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		d, err := deltaFor(EntityNote, n.ID, spaceID, n.UpdatedAt, n)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	tasks, err := g.store.TasksUpdatedSince(spaceID, since)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		d, err := deltaFor(EntityTask, t.ID, spaceID, t.UpdatedAt, t)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	projects, err := g.store.ProjectsUpdatedSince(spaceID, since)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		d, err := deltaFor(EntityProject, p.ID, spaceID, p.UpdatedAt, p)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	for _, kind := range domainEntityKinds {
		rows, err := g.store.DomainEntitiesUpdatedSince(spaceID, kind, since)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			deltas = append(deltas, SyncDelta{
				EntityType: EntityType(kind),
				EntityID:   r.ID,
				Operation:  OperationUpdate,
				Data:       json.RawMessage(r.Payload),
				Timestamp:  r.UpdatedAt,
				SpaceID:    spaceID,
			})
		}
	}

	entries, err := g.store.TimeEntriesUpdatedSince(spaceID, since)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		d, err := deltaFor(EntityTimeEntry, e.ID, spaceID, e.UpdatedAt, e)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	cards, err := g.store.KnowledgeCardsUpdatedSince(spaceID, since)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		d, err := deltaFor(EntityKnowledgeCard, c.ID, spaceID, c.UpdatedAt, c)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	sort.Slice(deltas, func(i, j int) bool {
		a, b := deltas[i], deltas[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		return a.EntityID < b.EntityID
	})
	return deltas, nil
}

func deltaFor(entityType EntityType, id, spaceID string, updatedAt int64, v interface{}) (SyncDelta, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return SyncDelta{}, err
	}
	return SyncDelta{
		EntityType: entityType,
		EntityID:   id,
		Operation:  OperationUpdate,
		Data:       data,
		Timestamp:  updatedAt,
		SpaceID:    spaceID,
	}, nil
}

// domainEntityKinds lists every "kind" discriminator stored in the
// domain_entities table, gathered alongside the typed tables above.
var domainEntityKinds = []string{
	"health_metric", "transaction", "recipe", "trip", "habit", "goal",
	"calendar_event", "track", "playlist", "social_account", "social_post",
	"social_category",
}
