// Package health provides readiness and liveness probes for the group
// manager process itself: is the durable storage file reachable, is the
// fleet facility endpoint answering, is a configured external self-check
// command passing. It does not model node or container health — that
// belongs to the fleet facility and surfaces through ChainNodeInfo.Status,
// not through this package.
package health
