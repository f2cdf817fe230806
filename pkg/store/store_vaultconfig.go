package store

import (
	"database/sql"

	"github.com/cuemby/vaultd/pkg/types"
)

// PutVaultConfig writes the single vault_config row, replacing any
// previous one.
func (s *Store) PutVaultConfig(vc *types.VaultConfig) error {
	if _, err := s.db.Exec(`DELETE FROM vault_config`); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO vault_config (schema_version, device_profile, created_at) VALUES (?, ?, ?)`,
		vc.SchemaVersion, string(vc.DeviceProfile), vc.CreatedAt)
	return wrapErr(err)
}

// GetVaultConfig reads the single vault_config row.
func (s *Store) GetVaultConfig() (*types.VaultConfig, error) {
	vc := &types.VaultConfig{}
	var profile string
	err := s.db.QueryRow(`SELECT schema_version, device_profile, created_at FROM vault_config LIMIT 1`).
		Scan(&vc.SchemaVersion, &profile, &vc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	vc.DeviceProfile = types.DeviceProfile(profile)
	return vc, nil
}

// PutConfigBackup and GetConfigBackup round-trip a JSON snapshot of
// config.json inside the vault itself, so a lost or corrupted config.json
// can be repaired from the database. See pkg/vault's backup.go.
func (s *Store) PutConfigBackup(blob string) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS _vaultd_vault_config (id INTEGER PRIMARY KEY CHECK (id = 0), blob TEXT NOT NULL)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO _vaultd_vault_config (id, blob) VALUES (0, ?) ON CONFLICT(id) DO UPDATE SET blob=excluded.blob`, blob)
	return wrapErr(err)
}

func (s *Store) GetConfigBackup() (string, error) {
	var blob string
	err := s.db.QueryRow(`SELECT blob FROM _vaultd_vault_config WHERE id = 0`).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return blob, err
}
