package relay

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// maxCiphertextSize bounds a single envelope's sealed payload.
	maxCiphertextSize = 10 << 20 // 10 MiB

	// maxEnvelopeAge is how long an envelope may sit undelivered before
	// it is dropped, both on submission and during queue pruning.
	maxEnvelopeAge = 24 * time.Hour

	// maxPendingPerDevice caps how many envelopes a single recipient may
	// have queued at once, checked after expired entries are pruned.
	maxPendingPerDevice = 100
)

var (
	bucketRegistrations = []byte("registrations")
	pendingBucketPrefix = "pending:"
)

// Store is the bbolt-backed queue of registered devices and their
// pending envelopes: one bucket per recipient device ID, plus a single
// registrations bucket mapping bearer token to device ID.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the relay's bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("relay: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRegistrations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register issues a new bearer token for deviceID, recording its
// claimed public key hash alongside it. Re-registering a device
// replaces its previous token.
func (s *Store) Register(deviceID, publicKeyHash string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("relay: generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	reg := registration{DeviceID: deviceID, PublicKeyHash: publicKeyHash, CreatedAt: time.Now().Unix()}
	data, err := json.Marshal(reg)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRegistrations)
		return b.Put([]byte(token), data)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

type registration struct {
	DeviceID      string `json:"device_id"`
	PublicKeyHash string `json:"public_key_hash"`
	CreatedAt     int64  `json:"created_at"`
}

// ValidateToken returns the device ID a bearer token was issued to.
func (s *Store) ValidateToken(token string) (string, error) {
	var reg registration
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRegistrations)
		data := b.Get([]byte(token))
		if data == nil {
			return ErrInvalidToken
		}
		return json.Unmarshal(data, &reg)
	})
	if err != nil {
		return "", err
	}
	return reg.DeviceID, nil
}

// Send admits env into its recipient's pending queue, enforcing size,
// age, and queue-depth limits. Expired entries already in the queue are
// pruned before the depth check so a backlog of stale envelopes never
// blocks delivery of fresh ones.
func (s *Store) Send(env RelayEnvelope) error {
	if len(env.Ciphertext) > maxCiphertextSize {
		return ErrMessageTooLarge
	}
	now := time.Now()
	if now.Sub(time.Unix(env.Timestamp, 0)) > maxEnvelopeAge {
		return ErrMessageExpired
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := []byte(pendingBucketPrefix + env.ToDevice)
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		if err := pruneExpired(b, now); err != nil {
			return err
		}
		if b.Stats().KeyN >= maxPendingPerDevice {
			return ErrTooManyPending
		}

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return b.Put(queueKey(env.Timestamp, env.ID), data)
	})
}

// Fetch returns up to limit of deviceID's oldest pending envelopes,
// removing them from the queue (at-most-once delivery: a crash between
// fetch and client-side processing loses the envelope).
func (s *Store) Fetch(deviceID string, limit int) ([]RelayEnvelope, error) {
	var out []RelayEnvelope
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := []byte(pendingBucketPrefix + deviceID)
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if err := pruneExpired(b, time.Now()); err != nil {
			return err
		}

		c := b.Cursor()
		var keys [][]byte
		for k, v := c.First(); k != nil && (limit <= 0 || len(out) < limit); k, v = c.Next() {
			var env RelayEnvelope
			if err := json.Unmarshal(v, &env); err != nil {
				return err
			}
			out = append(out, env)
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// PendingCount returns the number of envelopes currently queued for
// deviceID, after pruning any that have expired.
func (s *Store) PendingCount(deviceID string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := []byte(pendingBucketPrefix + deviceID)
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if err := pruneExpired(b, time.Now()); err != nil {
			return err
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// pruneExpired deletes every entry in b whose envelope timestamp is
// older than maxEnvelopeAge relative to now. Must run inside a writable
// transaction.
func pruneExpired(b *bolt.Bucket, now time.Time) error {
	c := b.Cursor()
	var stale [][]byte
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var env RelayEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			return err
		}
		if now.Sub(time.Unix(env.Timestamp, 0)) > maxEnvelopeAge {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// queueKey orders a bucket's cursor oldest-first: an 8-byte big-endian
// timestamp so Next() walks envelopes in arrival order, followed by the
// envelope's own ID to keep same-timestamp keys distinct.
func queueKey(timestamp int64, id string) []byte {
	k := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(k[:8], uint64(timestamp))
	copy(k[8:], id)
	return k
}
