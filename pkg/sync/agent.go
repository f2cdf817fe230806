package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vaultd/pkg/events"
	"github.com/cuemby/vaultd/pkg/store"
	"github.com/cuemby/vaultd/pkg/types"
	"github.com/cuemby/vaultd/pkg/vaultlog"
)

// ErrDeviceNotTrusted is returned when a device's current trust level
// does not permit a sync exchange (KeyChanged or Revoked).
var ErrDeviceNotTrusted = fmt.Errorf("sync: device trust level does not allow sync")

// AgentState is a step in one device's sync state machine.
type AgentState string

const (
	AgentIdle        AgentState = "idle"
	AgentConnecting  AgentState = "connecting"
	AgentConnected   AgentState = "connected"
	AgentExchanging  AgentState = "exchanging"
	AgentApplying    AgentState = "applying"
	AgentRecording   AgentState = "recording"
	AgentFailed      AgentState = "failed"
)

// Transport is the subset of pkg/transport's connection behavior the
// agent needs: send a local envelope, receive the peer's.
type Transport interface {
	Exchange(deviceID string, out Envelope) (in Envelope, err error)
}

// Agent periodically syncs a vault against its paired devices.
// syncAllDevices visits them one at a time, so a slow or failing peer
// delays the peers after it in the same pass, and nothing prevents two
// SyncDevice calls for the same device from running at once.
type Agent struct {
	store     *store.Store
	transport Transport
	broker    *events.Broker
	interval  time.Duration
	deviceID  string

	logger zerolog.Logger
	mu     sync.Mutex
	states map[string]AgentState
	stopCh chan struct{}
}

// NewAgent returns an Agent for the local deviceID, syncing st against
// peers reachable through transport, polling every interval.
func NewAgent(st *store.Store, transport Transport, broker *events.Broker, deviceID string, interval time.Duration) *Agent {
	return &Agent{
		store:     st,
		transport: transport,
		broker:    broker,
		interval:  interval,
		deviceID:  deviceID,
		logger:    vaultlog.WithComponent("sync_agent"),
		states:    make(map[string]AgentState),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the agent's background polling loop.
func (a *Agent) Start() {
	go a.run()
}

// Stop stops the agent.
func (a *Agent) Stop() {
	close(a.stopCh)
}

func (a *Agent) run() {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info().Msg("sync agent started")
	for {
		select {
		case <-ticker.C:
			a.syncAllDevices()
		case <-a.stopCh:
			a.logger.Info().Msg("sync agent stopped")
			return
		}
	}
}

func (a *Agent) syncAllDevices() {
	devices, err := a.store.ListDevices()
	if err != nil {
		a.logger.Error().Err(err).Msg("list devices for sync")
		return
	}
	for _, d := range devices {
		if err := a.SyncDevice(d); err != nil {
			a.logger.Error().Err(err).Str("device_id", d.ID).Msg("sync with device failed")
		}
	}
}

func (a *Agent) setState(deviceID string, s AgentState) {
	a.mu.Lock()
	a.states[deviceID] = s
	a.mu.Unlock()
}

// State returns the current state machine step for deviceID.
func (a *Agent) State(deviceID string) AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.states[deviceID]; ok {
		return s
	}
	return AgentIdle
}

// SyncDevice drives one full exchange with d: gather local changes,
// connect, exchange envelopes, apply the peer's deltas, record the
// result, return to Idle. Any failure transitions to Failed and is
// recorded in sync_history with its error.
func (a *Agent) SyncDevice(d *types.Device) error {
	deviceID := d.ID
	started := time.Now().Unix()
	a.publish(deviceID, events.PhaseConnecting, 0.1)
	a.setState(deviceID, AgentConnecting)

	if dt, err := a.store.GetDeviceTrust(deviceID); err == nil && !dt.TrustLevel.AllowsSync() {
		return a.fail(deviceID, started, ErrDeviceNotTrusted)
	}

	last, err := a.store.LastSyncHistory(deviceID)
	since := int64(0)
	if err == nil {
		since = last.FinishedAt
	} else if err != store.ErrNotFound {
		return a.fail(deviceID, started, err)
	}

	gatherer := NewGatherer(a.store)
	local, err := gatherer.GatherSince(since)
	if err != nil {
		return a.fail(deviceID, started, err)
	}

	a.setState(deviceID, AgentConnected)
	a.publish(deviceID, events.PhaseExchanging, 0.4)
	a.setState(deviceID, AgentExchanging)

	remoteEnv, err := a.transport.Exchange(deviceID, Envelope{FromDeviceID: a.deviceID, Deltas: local})
	if err != nil {
		return a.fail(deviceID, started, fmt.Errorf("exchange with %s: %w", deviceID, err))
	}

	a.publish(deviceID, events.PhaseApplying, 0.7)
	a.setState(deviceID, AgentApplying)

	applier := NewApplier(a.store, deviceID)
	applied, dropped, err := applier.ApplyDeltas(remoteEnv.Deltas)
	if err != nil {
		return a.fail(deviceID, started, fmt.Errorf("apply deltas from %s: %w", deviceID, err))
	}
	for _, reason := range dropped {
		a.logger.Debug().Str("device_id", deviceID).Str("reason", reason).Msg("delta not applied")
	}

	a.publish(deviceID, events.PhaseRecording, 0.9)
	a.setState(deviceID, AgentRecording)

	hist := &types.SyncHistory{
		ID:         ulidNow(),
		DeviceID:   deviceID,
		StartedAt:  started,
		FinishedAt: time.Now().Unix(),
		Pushed:     len(local),
		Pulled:     applied,
	}
	if err := a.store.PutSyncHistory(hist); err != nil {
		return a.fail(deviceID, started, err)
	}

	a.setState(deviceID, AgentIdle)
	a.publish(deviceID, events.PhaseDone, 1.0)
	return nil
}

// HandleIncoming answers a connection a peer dialed into us: apply the
// deltas it sent, gather what we owe it since the last time we synced
// with it, and record the exchange the same way an outbound SyncDevice
// call would. Used as the HandleFunc passed to transport.Listen.
func (a *Agent) HandleIncoming(deviceID string, in Envelope) (Envelope, error) {
	started := time.Now().Unix()

	dt, err := a.store.GetDeviceTrust(deviceID)
	if err == nil && !dt.TrustLevel.AllowsSync() {
		return Envelope{}, a.fail(deviceID, started, ErrDeviceNotTrusted)
	}

	a.setState(deviceID, AgentApplying)

	applier := NewApplier(a.store, deviceID)
	applied, dropped, err := applier.ApplyDeltas(in.Deltas)
	if err != nil {
		return Envelope{}, a.fail(deviceID, started, fmt.Errorf("apply deltas from %s: %w", deviceID, err))
	}
	for _, reason := range dropped {
		a.logger.Debug().Str("device_id", deviceID).Str("reason", reason).Msg("delta not applied")
	}

	last, err := a.store.LastSyncHistory(deviceID)
	since := int64(0)
	if err == nil {
		since = last.FinishedAt
	} else if err != store.ErrNotFound {
		return Envelope{}, a.fail(deviceID, started, err)
	}

	gatherer := NewGatherer(a.store)
	local, err := gatherer.GatherSince(since)
	if err != nil {
		return Envelope{}, a.fail(deviceID, started, err)
	}

	a.setState(deviceID, AgentRecording)
	hist := &types.SyncHistory{
		ID:         ulidNow(),
		DeviceID:   deviceID,
		StartedAt:  started,
		FinishedAt: time.Now().Unix(),
		Pushed:     len(local),
		Pulled:     applied,
	}
	if err := a.store.PutSyncHistory(hist); err != nil {
		return Envelope{}, a.fail(deviceID, started, err)
	}
	a.setState(deviceID, AgentIdle)

	return Envelope{FromDeviceID: a.deviceID, Deltas: local}, nil
}

func (a *Agent) fail(deviceID string, started int64, cause error) error {
	a.setState(deviceID, AgentFailed)
	hist := &types.SyncHistory{
		ID:         ulidNow(),
		DeviceID:   deviceID,
		StartedAt:  started,
		FinishedAt: time.Now().Unix(),
		Error:      cause.Error(),
	}
	_ = a.store.PutSyncHistory(hist)

	a.broker.Publish(&events.SyncProgress{
		DeviceID: deviceID,
		Phase:    events.PhaseFailed,
		Error:    cause.Error(),
	})
	return cause
}

func (a *Agent) publish(deviceID string, phase events.Phase, fraction float64) {
	a.broker.Publish(&events.SyncProgress{
		DeviceID: deviceID,
		Phase:    phase,
		Fraction: fraction,
	})
}
