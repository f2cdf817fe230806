/*
Package reconciler drains each device's queued sync tasks.

Tasks reach the sync_tasks table through store.PutSyncTask. Apart from
the reconciler recording the outcome of tasks it has picked up, nothing
in this module writes that table, so the queue holds whatever callers of
PutSyncTask put there. The reconciler is the background loop that works
through those tasks.

# Architecture

The reconciler runs a level-triggered loop on a fixed interval, the same
shape regardless of how many tasks are actually queued:

	┌───────────────────────────────────────────┐
	│           Reconciliation Loop              │
	│            (every interval)                │
	└────────────────┬────────────────────────────┘
	                 │
	      for each known device
	                 │
	                 ▼
	     NextQueuedSyncTask(device)
	                 │
	          found? ─┴─ no → skip device
	                 │
	                yes
	                 │
	                 ▼
	        mark task Running
	                 │
	                 ▼
	       agent.SyncDevice(device)
	                 │
	        success ─┴─ failure
	           │            │
	           ▼            ▼
	     mark Done    increment Attempts,
	                  record LastError,
	                  mark Failed

A task left in the Failed state is not retried automatically, and
nothing in this module moves it back to Queued. The reconciler only ever
drains what is already
sitting in the Queued state, it never decides on its own that a device
needs a task created for it.

Like the task queue it drains, the reconciler keeps no state of its own
between cycles: a crash or restart loses nothing beyond the in-flight
cycle, because everything it acts on lives in sync_tasks.
*/
package reconciler
