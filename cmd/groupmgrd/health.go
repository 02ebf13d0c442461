package main

import (
	"context"
	"time"

	"github.com/chainfleet/groupmgr/pkg/health"
	"github.com/chainfleet/groupmgr/pkg/storage"
)

// storageChecker reports whether the durable bbolt store is still reachable.
type storageChecker struct {
	store *storage.BoltTabularStore
}

func (c storageChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	if err := c.store.Ping(); err != nil {
		return health.Result{Healthy: false, Message: err.Error(), CheckedAt: start, Duration: time.Since(start)}
	}
	return health.Result{Healthy: true, Message: "ok", CheckedAt: start, Duration: time.Since(start)}
}

func (c storageChecker) Type() health.CheckType {
	return health.CheckTypeExec
}
