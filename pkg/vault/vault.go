package vault

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	vcrypto "github.com/cuemby/vaultd/pkg/crypto"
	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

const (
	configFileName = "config.json"
	dataFileName   = "vault.sqlite3"
)

// CipherParams records the key-derivation and cipher parameters a vault
// was created with. These are carried for informational round-tripping
// with the reference vault format; see pkg/store's doc comment for why
// mattn/go-sqlite3 does not itself apply them as SQLCipher pragmas.
type CipherParams struct {
	Compat    int    `json:"compat"`
	PageSize  int    `json:"page_size"`
	KDFIter   int    `json:"kdf_iter"`
	HMAC      string `json:"hmac"`
	KDF       string `json:"kdf"`
}

// fileConfig is the on-disk shape of config.json.
type fileConfig struct {
	Salt      string              `json:"salt"`       // hex
	WrappedDEK string             `json:"wrapped_dek"` // hex
	Cipher    CipherParams        `json:"cipher"`
	Profile   types.DeviceProfile `json:"device_profile"`
}

func defaultCipherParams() CipherParams {
	return CipherParams{
		Compat:   4,
		PageSize: 4096,
		KDFIter:  vcrypto.KeyDerivationIterations,
		HMAC:     "HMAC_SHA512",
		KDF:      "PBKDF2_HMAC_SHA512",
	}
}

// Vault is an opened vault: its unwrapped DEK and the store keyed by it.
// The DEK is held exactly once per open vault, behind dekMu, so Lock
// zeroing it can never race with a concurrent sealing/unsealing call
// reading it through DEK.
type Vault struct {
	dir   string
	dekMu sync.RWMutex
	dek   []byte
	Store *store.Store
}

// Create initializes a new vault directory at dir, protected by
// password. Returns the newly created, already-open Vault and the ten
// recovery codes generated alongside it (shown to the user exactly
// once).
func Create(dir, password string, profile types.DeviceProfile) (*Vault, []string, error) {
	cfgPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return nil, nil, ErrAlreadyExists
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	salt, err := vcrypto.GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	dek, err := vcrypto.GenerateDEK()
	if err != nil {
		return nil, nil, err
	}
	recoveryCodes, err := vcrypto.GenerateRecoveryCodes()
	if err != nil {
		return nil, nil, err
	}

	kek := vcrypto.DeriveKey(password, salt)
	wrapped, err := vcrypto.WrapDEK(kek, dek)
	if err != nil {
		return nil, nil, err
	}

	fc := fileConfig{
		Salt:       hex.EncodeToString(salt),
		WrappedDEK: hex.EncodeToString(wrapped),
		Cipher:     defaultCipherParams(),
		Profile:    profile,
	}
	if err := writeConfig(cfgPath, fc); err != nil {
		return nil, nil, err
	}

	st, err := store.Open(filepath.Join(dir, dataFileName), profile)
	if err != nil {
		return nil, nil, err
	}
	st.SetDEK(dek)
	if err := st.PutVaultConfig(&types.VaultConfig{
		SchemaVersion: 1,
		DeviceProfile: profile,
		CreatedAt:     time.Now().Unix(),
	}); err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := backupConfigToStore(st, fc); err != nil {
		st.Close()
		return nil, nil, err
	}

	return &Vault{dir: dir, dek: dek, Store: st}, recoveryCodes, nil
}

// Unlock opens an existing vault directory, deriving the KEK from
// password and unwrapping the stored DEK. Falls back to the in-database
// backup copy of config.json if the on-disk file is missing or corrupt,
// per the reference vault's backup-repair behavior.
func Unlock(dir, password string) (*Vault, error) {
	cfgPath := filepath.Join(dir, configFileName)
	fc, err := readConfig(cfgPath)
	if err != nil {
		repaired, rerr := repairConfigFromStore(dir)
		if rerr != nil {
			return nil, err
		}
		fc = repaired
	}

	salt, err := hex.DecodeString(fc.Salt)
	if err != nil {
		return nil, ErrConfigCorrupt
	}
	wrapped, err := hex.DecodeString(fc.WrappedDEK)
	if err != nil {
		return nil, ErrConfigCorrupt
	}

	kek := vcrypto.DeriveKey(password, salt)
	dek, err := vcrypto.UnwrapDEK(kek, wrapped)
	if err != nil {
		return nil, ErrWrongPassword
	}

	st, err := store.Open(filepath.Join(dir, dataFileName), fc.Profile)
	if err != nil {
		return nil, err
	}
	st.SetDEK(dek)

	// A successful unlock backs up config.json into the store so a
	// lost or corrupted config.json can be rebuilt from the vault
	// itself on a later unlock attempt.
	if err := backupConfigToStore(st, fc); err != nil {
		st.Close()
		return nil, err
	}

	return &Vault{dir: dir, dek: dek, Store: st}, nil
}

// Lock closes the vault's store connection and drops the in-memory DEK.
// The caller must not retain dek-derived ciphers past this call.
func (v *Vault) Lock() error {
	v.dekMu.Lock()
	for i := range v.dek {
		v.dek[i] = 0
	}
	v.dekMu.Unlock()
	return v.Store.Close()
}

// DEK returns the unwrapped data-encryption key for sealing/opening row
// payloads. Callers must not persist or log this value.
func (v *Vault) DEK() []byte {
	v.dekMu.RLock()
	defer v.dekMu.RUnlock()
	return v.dek
}

func writeConfig(path string, fc fileConfig) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileConfig{}, ErrNotFound
		}
		return fileConfig{}, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, ErrConfigCorrupt
	}
	return fc, nil
}
