// Package infostore is the in-memory cache sitting in front of durable
// storage: chain, group, and node metadata keyed by ID, guarded by a single
// RWMutex. Manager consults it before every decision and stages every
// mutation through it before committing to storage, so a concurrent read
// never observes a half-written chain/group/node relationship.
//
// Apart from Init, which reads storage once at cold start to rebuild the
// cache, the cache never talks to storage or the fleet itself. Manager
// drives the cache → storage → fleet sequence; infostore only guarantees
// that its own
// maps stay internally consistent (a GroupInfo never outlives its entry in
// the owning ChainInfo's group list) and that every successful mutation
// triggers the registered change notification, without blocking the caller
// on notification delivery.
package infostore
