package reconciler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
	"github.com/cuemby/vaultd/pkg/vaultlog"
	"github.com/cuemby/vaultd/pkg/vaultmetrics"
)

// Syncer is the subset of pkg/sync's Agent the reconciler drives: one
// full exchange with a device, the same call a scheduled or manual
// sync would make.
type Syncer interface {
	SyncDevice(d *types.Device) error
}

// Reconciler drains each device's queued sync tasks on a fixed
// interval, retrying the ones a previous cycle marked failed only if
// something re-queues them first.
type Reconciler struct {
	store    *store.Store
	syncer   Syncer
	interval time.Duration
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewReconciler returns a Reconciler draining st's sync_tasks queue by
// calling syncer for each device with a queued task, checking every
// interval.
func NewReconciler(st *store.Store, syncer Syncer, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    st,
		syncer:   syncer,
		interval: interval,
		logger:   vaultlog.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) reconcile() {
	started := time.Now()
	defer func() {
		vaultmetrics.ReconcileDuration.Observe(time.Since(started).Seconds())
		vaultmetrics.ReconcileCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	devices, err := r.store.ListDevices()
	if err != nil {
		r.logger.Error().Err(err).Msg("list devices for reconciliation")
		return
	}

	for _, d := range devices {
		if err := r.reconcileDevice(d); err != nil {
			r.logger.Error().Err(err).Str("device_id", d.ID).Msg("reconcile device sync task failed")
		}
	}
}

// reconcileDevice pops d's next queued task, if any, and drives one
// sync attempt for it. A device with no queued task is left untouched.
func (r *Reconciler) reconcileDevice(d *types.Device) error {
	task, err := r.store.NextQueuedSyncTask(d.ID)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("next queued task for %s: %w", d.ID, err)
	}

	task.State = types.SyncTaskStateRunning
	task.UpdatedAt = time.Now().Unix()
	if err := r.store.PutSyncTask(task); err != nil {
		return fmt.Errorf("mark task %s running: %w", task.ID, err)
	}

	r.logger.Info().Str("device_id", d.ID).Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("draining queued sync task")

	syncErr := r.syncer.SyncDevice(d)

	task.UpdatedAt = time.Now().Unix()
	if syncErr != nil {
		task.State = types.SyncTaskStateFailed
		task.Attempts++
		task.LastError = syncErr.Error()
		r.logger.Warn().Str("device_id", d.ID).Str("task_id", task.ID).Int("attempts", task.Attempts).Err(syncErr).Msg("queued sync task failed")
	} else {
		task.State = types.SyncTaskStateDone
	}

	if err := r.store.PutSyncTask(task); err != nil {
		return fmt.Errorf("record task %s outcome: %w", task.ID, err)
	}
	return nil
}
