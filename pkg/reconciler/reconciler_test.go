package reconciler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
)

type stubSyncer struct {
	err   error
	calls []string
}

func (s *stubSyncer) SyncDevice(d *types.Device) error {
	s.calls = append(s.calls, d.ID)
	return s.err
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", types.DeviceProfileStandard)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func putDevice(t *testing.T, s *store.Store, id string) *types.Device {
	t.Helper()
	d := &types.Device{ID: id, Name: id, PairedAt: time.Now().Unix()}
	require.NoError(t, s.PutDevice(d))
	return d
}

func queueTask(t *testing.T, s *store.Store, deviceID string) *types.SyncTask {
	t.Helper()
	task := &types.SyncTask{
		ID:        deviceID + "-task",
		DeviceID:  deviceID,
		Kind:      types.SyncTaskKindFull,
		State:     types.SyncTaskStateQueued,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
	require.NoError(t, s.PutSyncTask(task))
	return task
}

func TestReconcileDeviceDrainsQueuedTaskOnSuccess(t *testing.T) {
	s := openTestStore(t)
	d := putDevice(t, s, "device-1")
	queueTask(t, s, d.ID)

	syncer := &stubSyncer{}
	r := NewReconciler(s, syncer, time.Minute)

	require.NoError(t, r.reconcileDevice(d))
	require.Equal(t, []string{d.ID}, syncer.calls)

	_, err := s.NextQueuedSyncTask(d.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconcileDeviceMarksTaskFailedOnError(t *testing.T) {
	s := openTestStore(t)
	d := putDevice(t, s, "device-2")
	queueTask(t, s, d.ID)

	syncer := &stubSyncer{err: errors.New("unreachable")}
	r := NewReconciler(s, syncer, time.Minute)

	require.NoError(t, r.reconcileDevice(d))

	// The task is no longer queued (it failed); it would need to be
	// re-queued before the reconciler picks it up again.
	_, err := s.NextQueuedSyncTask(d.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconcileDeviceNoopWithoutQueuedTask(t *testing.T) {
	s := openTestStore(t)
	d := putDevice(t, s, "device-3")

	syncer := &stubSyncer{}
	r := NewReconciler(s, syncer, time.Minute)

	require.NoError(t, r.reconcileDevice(d))
	require.Empty(t, syncer.calls)
}

func TestStartStopReconciler(t *testing.T) {
	s := openTestStore(t)
	r := NewReconciler(s, &stubSyncer{}, time.Millisecond)
	r.Start()
	time.Sleep(5 * time.Millisecond)
	r.Stop()
}
