// Package notify propagates updated group topology to the downstream RPC
// and Gateway services registered for a chain. Resolution of a service name
// to its live endpoints is delegated to a ServiceResolver (the external
// service-discovery collaborator); delivery itself is fire-and-forget per
// endpoint, and an endpoint failure is logged, never surfaced to the caller
// that triggered the notification.
package notify
