package trust

import (
	"testing"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

type fakeStore struct {
	records map[string]*types.DeviceTrust
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*types.DeviceTrust)}
}

func (f *fakeStore) GetDeviceTrust(deviceID string) (*types.DeviceTrust, error) {
	dt, ok := f.records[deviceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *dt
	return &cp, nil
}

func (f *fakeStore) PutDeviceTrust(dt *types.DeviceTrust) error {
	cp := *dt
	f.records[dt.DeviceID] = &cp
	return nil
}

func TestVerifyDeviceFirstSeen(t *testing.T) {
	v := &Verifier{store: newFakeStore()}

	level, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a"))
	if err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	if level != types.TrustLevelOnFirstUse {
		t.Errorf("VerifyDevice() = %v, want %v", level, types.TrustLevelOnFirstUse)
	}
}

func TestVerifyDeviceSameKeyUpdatesLastSeen(t *testing.T) {
	s := newFakeStore()
	v := &Verifier{store: s}

	if _, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a")); err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	level, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a"))
	if err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	if level != types.TrustLevelOnFirstUse {
		t.Errorf("VerifyDevice() on repeat = %v, want level unchanged (%v)", level, types.TrustLevelOnFirstUse)
	}
	if s.records["dev-1"].SyncCount != 1 {
		t.Errorf("SyncCount = %d, want 1", s.records["dev-1"].SyncCount)
	}
}

func TestVerifyDeviceKeyChanged(t *testing.T) {
	v := &Verifier{store: newFakeStore()}

	if _, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a")); err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	level, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-b"))
	if err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	if level != types.TrustLevelKeyChanged {
		t.Errorf("VerifyDevice() with new key = %v, want %v", level, types.TrustLevelKeyChanged)
	}
}

func TestVerifyDeviceRevokedStaysRevoked(t *testing.T) {
	v := &Verifier{store: newFakeStore()}

	if _, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a")); err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	if err := v.Revoke("dev-1"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	level, err := v.VerifyDevice("dev-1", "laptop", []byte("pubkey-a"))
	if err != nil {
		t.Fatalf("VerifyDevice() error = %v", err)
	}
	if level != types.TrustLevelRevoked {
		t.Errorf("VerifyDevice() on revoked device = %v, want %v", level, types.TrustLevelRevoked)
	}
}

func TestTrustLevelAllowsSync(t *testing.T) {
	cases := []struct {
		level types.TrustLevel
		want  bool
	}{
		{types.TrustLevelOnFirstUse, true},
		{types.TrustLevelVerified, true},
		{types.TrustLevelKeyChanged, false},
		{types.TrustLevelRevoked, false},
	}
	for _, tt := range cases {
		if got := tt.level.AllowsSync(); got != tt.want {
			t.Errorf("%v.AllowsSync() = %v, want %v", tt.level, got, tt.want)
		}
	}
}
