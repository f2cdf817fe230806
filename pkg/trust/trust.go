package trust

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

// Store is the subset of *store.Store the trust verifier needs.
type Store interface {
	GetDeviceTrust(deviceID string) (*types.DeviceTrust, error)
	PutDeviceTrust(dt *types.DeviceTrust) error
}

// Verifier applies TOFU verification against a vault's device_trust
// table.
type Verifier struct {
	store Store
}

// New returns a Verifier backed by store.
func New(s *store.Store) *Verifier {
	return &Verifier{store: s}
}

// HashPublicKey returns the hex SHA-256 digest of a device's public key,
// the value compared across sync attempts to detect a changed identity.
func HashPublicKey(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

// VerifyDevice checks deviceID's current publicKey against any recorded
// trust record and returns the resulting TrustLevel. The branch order
// matters: a Revoked record is never silently upgraded back to trusted
// just because the key happens to still match.
func (v *Verifier) VerifyDevice(deviceID, deviceName string, publicKey []byte) (types.TrustLevel, error) {
	hash := HashPublicKey(publicKey)
	now := time.Now().Unix()

	existing, err := v.store.GetDeviceTrust(deviceID)
	if err == store.ErrNotFound {
		dt := &types.DeviceTrust{
			DeviceID:      deviceID,
			DeviceName:    deviceName,
			PublicKeyHash: hash,
			TrustLevel:    types.TrustLevelOnFirstUse,
			FirstSeenAt:   now,
			LastSeenAt:    now,
			SyncCount:     0,
		}
		if err := v.store.PutDeviceTrust(dt); err != nil {
			return "", err
		}
		return types.TrustLevelOnFirstUse, nil
	}
	if err != nil {
		return "", err
	}

	if existing.TrustLevel == types.TrustLevelRevoked {
		return types.TrustLevelRevoked, nil
	}

	if existing.PublicKeyHash != hash {
		existing.TrustLevel = types.TrustLevelKeyChanged
		existing.PublicKeyHash = hash
		existing.LastSeenAt = now
		if err := v.store.PutDeviceTrust(existing); err != nil {
			return "", err
		}
		return types.TrustLevelKeyChanged, nil
	}

	existing.LastSeenAt = now
	existing.SyncCount++
	if err := v.store.PutDeviceTrust(existing); err != nil {
		return "", err
	}
	return existing.TrustLevel, nil
}

// Revoke marks a device as permanently untrusted; it will never again be
// auto-upgraded by VerifyDevice even if its key matches.
func (v *Verifier) Revoke(deviceID string) error {
	dt, err := v.store.GetDeviceTrust(deviceID)
	if err != nil {
		return err
	}
	dt.TrustLevel = types.TrustLevelRevoked
	return v.store.PutDeviceTrust(dt)
}

// Approve upgrades a device from TrustOnFirstUse or KeyChanged to
// Verified, the explicit user action required after a KeyChanged flag.
func (v *Verifier) Approve(deviceID string) error {
	dt, err := v.store.GetDeviceTrust(deviceID)
	if err != nil {
		return err
	}
	dt.TrustLevel = types.TrustLevelVerified
	return v.store.PutDeviceTrust(dt)
}
