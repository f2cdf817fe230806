package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vaultd/pkg/crypto"
	vsync "github.com/cuemby/vaultd/pkg/sync"
)

// putRaw inserts env directly into the bucket, bypassing Send's
// submission-time expiry check, so tests can exercise pruneExpired.
func putRaw(t *testing.T, s *Store, env RelayEnvelope) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(pendingBucketPrefix + env.ToDevice))
		if err != nil {
			return err
		}
		return b.Put(queueKey(env.Timestamp, env.ID), data)
	})
	require.NoError(t, err)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.bolt")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSendFetchRoundTrip(t *testing.T) {
	s := newTestStore(t)

	env := RelayEnvelope{ID: "e1", FromDevice: "a", ToDevice: "b", Ciphertext: []byte("x"), Timestamp: time.Now().Unix()}
	require.NoError(t, s.Send(env))

	count, err := s.PendingCount("b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.Fetch("b", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)

	count, err = s.PendingCount("b")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "fetch removes delivered envelopes")
}

func TestStoreFetchIsFIFO(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"e1", "e2", "e3"} {
		env := RelayEnvelope{ID: id, ToDevice: "b", Timestamp: base.Add(time.Duration(i) * time.Second).Unix()}
		require.NoError(t, s.Send(env))
	}

	got, err := s.Fetch("b", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)

	count, _ := s.PendingCount("b")
	assert.Equal(t, 1, count)
}

func TestStoreRejectsOversizedMessage(t *testing.T) {
	s := newTestStore(t)
	env := RelayEnvelope{ID: "e1", ToDevice: "b", Ciphertext: make([]byte, maxCiphertextSize+1), Timestamp: time.Now().Unix()}
	assert.ErrorIs(t, s.Send(env), ErrMessageTooLarge)
}

func TestStoreRejectsExpiredMessage(t *testing.T) {
	s := newTestStore(t)
	env := RelayEnvelope{ID: "e1", ToDevice: "b", Timestamp: time.Now().Add(-48 * time.Hour).Unix()}
	assert.ErrorIs(t, s.Send(env), ErrMessageExpired)
}

func TestStorePrunesExpiredBeforeCapCheck(t *testing.T) {
	s := newTestStore(t)

	// A batch of already-expired envelopes occupies the queue; once
	// pruned on the next Send, a fresh batch up to the cap should still
	// fit even though the raw insert count exceeded the cap at one
	// point in time.
	for i := 0; i < maxPendingPerDevice; i++ {
		stale := RelayEnvelope{ID: fmt.Sprintf("stale-%d", i), ToDevice: "b", Timestamp: time.Now().Add(-25 * time.Hour).Unix()}
		putRaw(t, s, stale)
	}

	for i := 0; i < maxPendingPerDevice; i++ {
		env := RelayEnvelope{ID: fmt.Sprintf("fresh-%d", i), ToDevice: "b", Timestamp: time.Now().Unix()}
		require.NoError(t, s.Send(env))
	}
	count, err := s.PendingCount("b")
	require.NoError(t, err)
	assert.Equal(t, maxPendingPerDevice, count)
}

func TestStoreTooManyPending(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < maxPendingPerDevice; i++ {
		env := RelayEnvelope{ID: fmt.Sprintf("n-%d", i), ToDevice: "b", Timestamp: time.Now().Unix()}
		require.NoError(t, s.Send(env))
	}
	overflow := RelayEnvelope{ID: "overflow", ToDevice: "b", Timestamp: time.Now().Unix()}
	assert.ErrorIs(t, s.Send(overflow), ErrTooManyPending)
}

func TestRegisterAndValidateToken(t *testing.T) {
	s := newTestStore(t)
	token, err := s.Register("device-a", "hash-a")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	deviceID, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "device-a", deviceID)

	_, err = s.ValidateToken("not-a-real-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSealForRecipientRoundTrip(t *testing.T) {
	recipientPriv, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	payload := []byte(`{"hello":"world"}`)
	ciphertext, ephemeralPub, nonce, err := sealForRecipient(recipientPub, payload)
	require.NoError(t, err)

	plaintext, err := openFromSender(recipientPriv, ephemeralPub, ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, payload, plaintext)
}

func TestSealForRecipientWrongKeyFails(t *testing.T) {
	_, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	wrongPriv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, ephemeralPub, nonce, err := sealForRecipient(recipientPub, []byte("secret"))
	require.NoError(t, err)

	_, err = openFromSender(wrongPriv, ephemeralPub, ciphertext, nonce)
	assert.Error(t, err)
}

func TestServerEndToEnd(t *testing.T) {
	s := newTestStore(t)
	srv := NewServer(s, zerolog.Nop())
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	recipientPriv, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	sender := NewClient(httpSrv.URL, "device-a")
	require.NoError(t, sender.Register("hash-a"))

	out := vsync.Envelope{FromDeviceID: "device-a", Deltas: []vsync.SyncDelta{
		{EntityType: vsync.EntityNote, EntityID: "n1", Operation: vsync.OperationCreate, Timestamp: 123, SpaceID: "space-1"},
	}}
	require.NoError(t, sender.Send("device-b", recipientPub, out))

	receiver := NewClient(httpSrv.URL, "device-b")
	require.NoError(t, receiver.Register("hash-b"))

	envs, err := receiver.Fetch(recipientPriv, 10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "device-a", envs[0].FromDeviceID)
	require.Len(t, envs[0].Deltas, 1)
	assert.Equal(t, "n1", envs[0].Deltas[0].EntityID)
}

func TestServerSendRequiresAuth(t *testing.T) {
	s := newTestStore(t)
	srv := NewServer(s, zerolog.Nop())
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	body, _ := json.Marshal(RelayEnvelope{ID: "e1", ToDevice: "b", Timestamp: time.Now().Unix()})
	resp, err := http.Post(httpSrv.URL+"/send", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServerRegisterMissingDeviceID(t *testing.T) {
	s := newTestStore(t)
	srv := NewServer(s, zerolog.Nop())
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	resp, err := http.Post(httpSrv.URL+"/register", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOpenOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "nested", "relay.bolt"))
	if err == nil {
		s.Close()
	}
	// bbolt creates intermediate nothing; a missing parent directory is
	// expected to fail rather than silently succeed.
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "nested"))
	assert.True(t, os.IsNotExist(statErr))
}
