package vault

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

// backupConfigToStore mirrors config.json into the single-row
// _vaultd_vault_config table so a future Unlock can rebuild it if the on-disk copy is
// lost or corrupted. Grounded on the reference vault's config-repair
// behavior: the database itself is the source of truth of last resort.
func backupConfigToStore(st *store.Store, fc fileConfig) error {
	blob, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal config backup: %w", err)
	}
	return st.PutConfigBackup(string(blob))
}

// repairConfigFromStore opens the vault's vault.sqlite3 directly (pragmas only,
// no key material needed since row payloads are sealed independently of
// the SQLite connection) and reads back the last config.json backup
// written by backupConfigToStore, then rewrites config.json from it.
func repairConfigFromStore(dir string) (fileConfig, error) {
	st, err := store.Open(filepath.Join(dir, dataFileName), types.DeviceProfileStandard)
	if err != nil {
		return fileConfig{}, err
	}
	defer st.Close()

	blob, err := st.GetConfigBackup()
	if err != nil {
		return fileConfig{}, ErrConfigCorrupt
	}

	var fc fileConfig
	if err := json.Unmarshal([]byte(blob), &fc); err != nil {
		return fileConfig{}, ErrConfigCorrupt
	}

	if err := writeConfig(filepath.Join(dir, configFileName), fc); err != nil {
		return fileConfig{}, err
	}
	return fc, nil
}
