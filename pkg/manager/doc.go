// Package manager implements the group manager's public API: one
// asynchronous operation per lifecycle verb, each driving the same
// cache → storage → fleet sequence through InfoStore, the storage adapter,
// and the fleet controller, with compensating rollback when storage or
// the fleet step fails.
//
// Every operation follows the same three steps:
//
//  1. Check-and-stage: look the entity up in the cache and validate its
//     status against the operation's precondition. A violation fails
//     immediately with no state changed.
//  2. Record intent durably: write the entity's intermediate status
//     (Creating, Starting, Stopping, Deleting, Recovering) to storage.
//     A storage failure surfaces as an error with cache and fleet untouched.
//  3. Enact and finalize: issue the fleet command for the affected nodes.
//     On success, advance to the terminal status and persist it. On fleet
//     failure, the error surfaces and the entity is left at the
//     intermediate status — a recorded intent for the reconciler to
//     re-drive.
//
// Callers never block: every method returns immediately after scheduling
// its first step, and results are delivered to the caller's callback
// whenever the chain of storage/fleet completions finishes.
package manager
