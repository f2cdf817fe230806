package store

import (
	"database/sql"

	"github.com/cuemby/vaultd/pkg/types"
)

// --- Device ---

func (s *Store) PutDevice(d *types.Device) error {
	_, err := s.db.Exec(`
		INSERT INTO devices (id, name, public_key, address, platform, paired_at, last_seen_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, public_key=excluded.public_key, address=excluded.address, platform=excluded.platform, last_seen_at=excluded.last_seen_at`,
		d.ID, d.Name, d.PublicKey, d.Address, d.Platform, d.PairedAt, d.LastSeenAt)
	return wrapErr(err)
}

func (s *Store) GetDevice(id string) (*types.Device, error) {
	d := &types.Device{}
	err := s.db.QueryRow(`SELECT id, name, public_key, address, platform, paired_at, last_seen_at FROM devices WHERE id=?`, id).
		Scan(&d.ID, &d.Name, &d.PublicKey, &d.Address, &d.Platform, &d.PairedAt, &d.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// SetDeviceAddress updates a device's last-known sync address without
// touching its trust or pairing metadata.
func (s *Store) SetDeviceAddress(id, address string) error {
	_, err := s.db.Exec(`UPDATE devices SET address=? WHERE id=?`, address, id)
	return err
}

func (s *Store) ListDevices() ([]*types.Device, error) {
	rows, err := s.db.Query(`SELECT id, name, public_key, address, platform, paired_at, last_seen_at FROM devices ORDER BY paired_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Device
	for rows.Next() {
		d := &types.Device{}
		if err := rows.Scan(&d.ID, &d.Name, &d.PublicKey, &d.Address, &d.Platform, &d.PairedAt, &d.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDevice(id string) error {
	_, err := s.db.Exec(`DELETE FROM devices WHERE id=?`, id)
	return err
}

// --- Device secrets ---

// PutDeviceSecret stores the (already-sealed) shared secret agreed
// during pairing with deviceID.
func (s *Store) PutDeviceSecret(deviceID string, sealedSecret []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO device_secrets (device_id, sealed_secret) VALUES (?, ?)
		ON CONFLICT(device_id) DO UPDATE SET sealed_secret=excluded.sealed_secret`,
		deviceID, sealedSecret)
	return wrapErr(err)
}

// GetDeviceSecret returns the sealed shared secret for deviceID.
func (s *Store) GetDeviceSecret(deviceID string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRow(`SELECT sealed_secret FROM device_secrets WHERE device_id=?`, deviceID).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sealed, err
}

// --- DeviceTrust ---

func (s *Store) GetDeviceTrust(deviceID string) (*types.DeviceTrust, error) {
	dt := &types.DeviceTrust{}
	var level string
	err := s.db.QueryRow(`SELECT device_id, device_name, public_key_hash, trust_level, first_seen_at, last_seen_at, sync_count, notes
		FROM device_trust WHERE device_id=?`, deviceID).
		Scan(&dt.DeviceID, &dt.DeviceName, &dt.PublicKeyHash, &level, &dt.FirstSeenAt, &dt.LastSeenAt, &dt.SyncCount, &dt.Notes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	dt.TrustLevel = types.TrustLevel(level)
	return dt, nil
}

func (s *Store) PutDeviceTrust(dt *types.DeviceTrust) error {
	_, err := s.db.Exec(`
		INSERT INTO device_trust (device_id, device_name, public_key_hash, trust_level, first_seen_at, last_seen_at, sync_count, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			device_name=excluded.device_name, public_key_hash=excluded.public_key_hash, trust_level=excluded.trust_level,
			last_seen_at=excluded.last_seen_at, sync_count=excluded.sync_count, notes=excluded.notes`,
		dt.DeviceID, dt.DeviceName, dt.PublicKeyHash, string(dt.TrustLevel), dt.FirstSeenAt, dt.LastSeenAt, dt.SyncCount, dt.Notes)
	return wrapErr(err)
}

func (s *Store) ListDeviceTrust() ([]*types.DeviceTrust, error) {
	rows, err := s.db.Query(`SELECT device_id, device_name, public_key_hash, trust_level, first_seen_at, last_seen_at, sync_count, notes FROM device_trust`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.DeviceTrust
	for rows.Next() {
		dt := &types.DeviceTrust{}
		var level string
		if err := rows.Scan(&dt.DeviceID, &dt.DeviceName, &dt.PublicKeyHash, &level, &dt.FirstSeenAt, &dt.LastSeenAt, &dt.SyncCount, &dt.Notes); err != nil {
			return nil, err
		}
		dt.TrustLevel = types.TrustLevel(level)
		out = append(out, dt)
	}
	return out, rows.Err()
}

// --- SyncHistory ---

func (s *Store) PutSyncHistory(h *types.SyncHistory) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_history (id, device_id, started_at, finished_at, pushed, pulled, conflicts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET finished_at=excluded.finished_at, pushed=excluded.pushed, pulled=excluded.pulled,
			conflicts=excluded.conflicts, error=excluded.error`,
		h.ID, h.DeviceID, h.StartedAt, h.FinishedAt, h.Pushed, h.Pulled, h.Conflicts, h.Error)
	return wrapErr(err)
}

func (s *Store) LastSyncHistory(deviceID string) (*types.SyncHistory, error) {
	h := &types.SyncHistory{}
	err := s.db.QueryRow(`SELECT id, device_id, started_at, finished_at, pushed, pulled, conflicts, error
		FROM sync_history WHERE device_id=? ORDER BY started_at DESC LIMIT 1`, deviceID).
		Scan(&h.ID, &h.DeviceID, &h.StartedAt, &h.FinishedAt, &h.Pushed, &h.Pulled, &h.Conflicts, &h.Error)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// --- SyncConflict ---

func (s *Store) PutSyncConflict(c *types.SyncConflict) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_conflicts (id, device_id, entity_type, entity_id, local_data, remote_data, resolution, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DeviceID, c.EntityType, c.EntityID, c.LocalData, c.RemoteData, string(c.Resolution), c.DetectedAt)
	return wrapErr(err)
}

func (s *Store) GetSyncConflict(id string) (*types.SyncConflict, error) {
	c := &types.SyncConflict{}
	var resolution string
	err := s.db.QueryRow(`SELECT id, device_id, entity_type, entity_id, local_data, remote_data, resolution, detected_at
		FROM sync_conflicts WHERE id=?`, id).
		Scan(&c.ID, &c.DeviceID, &c.EntityType, &c.EntityID, &c.LocalData, &c.RemoteData, &resolution, &c.DetectedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Resolution = types.ConflictResolution(resolution)
	return c, nil
}

func (s *Store) DeleteSyncConflict(id string) error {
	_, err := s.db.Exec(`DELETE FROM sync_conflicts WHERE id=?`, id)
	return err
}

func (s *Store) ListPendingConflicts(deviceID string) ([]*types.SyncConflict, error) {
	rows, err := s.db.Query(`SELECT id, device_id, entity_type, entity_id, local_data, remote_data, resolution, detected_at
		FROM sync_conflicts WHERE device_id=? AND resolution=? ORDER BY detected_at`, deviceID, string(types.ConflictResolutionPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SyncConflict
	for rows.Next() {
		c := &types.SyncConflict{}
		var resolution string
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.EntityType, &c.EntityID, &c.LocalData, &c.RemoteData, &resolution, &c.DetectedAt); err != nil {
			return nil, err
		}
		c.Resolution = types.ConflictResolution(resolution)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- SyncTask ---

func (s *Store) PutSyncTask(t *types.SyncTask) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_tasks (id, device_id, kind, state, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state=excluded.state, attempts=excluded.attempts, last_error=excluded.last_error, updated_at=excluded.updated_at`,
		t.ID, t.DeviceID, string(t.Kind), string(t.State), t.Attempts, t.LastError, t.CreatedAt, t.UpdatedAt)
	return wrapErr(err)
}

func (s *Store) NextQueuedSyncTask(deviceID string) (*types.SyncTask, error) {
	t := &types.SyncTask{}
	var kind, state string
	err := s.db.QueryRow(`SELECT id, device_id, kind, state, attempts, last_error, created_at, updated_at
		FROM sync_tasks WHERE device_id=? AND state=? ORDER BY created_at LIMIT 1`, deviceID, string(types.SyncTaskStateQueued)).
		Scan(&t.ID, &t.DeviceID, &kind, &state, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Kind = types.SyncTaskKind(kind)
	t.State = types.SyncTaskState(state)
	return t, nil
}

// --- LLMCacheEntry ---

func (s *Store) PutLLMCacheEntry(e *types.LLMCacheEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO llm_cache (key, provider, model, response, tokens_used, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET response=excluded.response, tokens_used=excluded.tokens_used, last_used_at=excluded.last_used_at`,
		e.Key, e.Provider, e.Model, e.Response, e.TokensUsed, e.CreatedAt, e.LastUsedAt)
	return wrapErr(err)
}

func (s *Store) GetLLMCacheEntry(key string) (*types.LLMCacheEntry, error) {
	e := &types.LLMCacheEntry{}
	err := s.db.QueryRow(`SELECT key, provider, model, response, tokens_used, created_at, last_used_at FROM llm_cache WHERE key=?`, key).
		Scan(&e.Key, &e.Provider, &e.Model, &e.Response, &e.TokensUsed, &e.CreatedAt, &e.LastUsedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// EvictLLMCacheLRU deletes the least-recently-used entries beyond
// maxEntries, keyed by LastUsedAt.
func (s *Store) EvictLLMCacheLRU(maxEntries int) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM llm_cache WHERE key IN (
			SELECT key FROM llm_cache ORDER BY last_used_at DESC LIMIT -1 OFFSET ?
		)`, maxEntries)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
