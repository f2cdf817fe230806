/*
Package sync implements vaultd's delta-based peer sync: gathering local
changes into SyncDelta envelopes, applying a peer's deltas to the local
store, detecting and resolving conflicts, and the background agent that
drives one device through the Idle -> Connecting -> Connected ->
Exchanging -> Applying -> Recording -> Idle state machine (or -> Failed
on error).

Deltas never carry vector clocks across the wire in this implementation;
conflict detection instead compares each side's UpdatedAt watermark
against the last successful sync time recorded in sync_history, per the
explicit "no vector-clock conflict detection" design decision.
*/
package sync
