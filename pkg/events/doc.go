/*
Package events provides an in-memory broker for group and node lifecycle
events.

The manager publishes one Event per completed operation (group created,
node started, node stopped, and so on) once the three-step mutation
protocol finalizes. Subscribers — an admin CLI tailing activity, a
future webhook forwarder — receive a non-blocking stream of events
without holding up the operation that raised them:

	Publisher → Event Channel (buffer: 100)
	     ↓
	Broadcast Loop
	     ↓
	Subscriber Channels (buffer: 50 each, dropped if full)

This is distinct from pkg/notify, which propagates the current
GroupInfo snapshot to chain-registered downstream services for state
reconciliation. events instead carries a lighter append-only activity
log for operational visibility. Delivery is best-effort: a slow
subscriber skips events rather than blocking the broadcast loop.
*/
package events
