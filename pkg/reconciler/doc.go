// Package reconciler periodically re-drives entities parked at a recorded
// intent status — Creating, Starting, Stopping, Deleting, Recovering —
// whose fleet-side effect may not have completed after a crash or a
// transient fleet failure. It never repeats the check-and-stage or
// record-intent steps of a mutation; those are already durable. It only
// retries the fleet step and, on success, advances the entity to its
// terminal status.
package reconciler
