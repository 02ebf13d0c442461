package reconciler

import (
	"sync"
	"time"

	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/manager"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/rs/zerolog"
)

// Reconciler drives the recorded-intent re-resolution loop.
type Reconciler struct {
	manager  *manager.Manager
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

// New builds a Reconciler ticking every interval.
func New(mgr *manager.Manager, interval time.Duration) *Reconciler {
	return &Reconciler{
		manager:  mgr,
		interval: interval,
		logger:   log.WithComponent("reconciler"),
	}
}

// Start begins the reconciliation loop in its own goroutine.
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.stopCh != nil {
		r.mu.Unlock()
		return
	}
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	go r.run(stopCh)
}

// Stop halts the reconciliation loop. Safe to call multiple times.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	r.stopCh = nil
}

func (r *Reconciler) run(stopCh chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")
	r.runOnce()

	for {
		select {
		case <-ticker.C:
			r.runOnce()
		case <-stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) runOnce() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	groups, nodes := r.manager.RecordedIntents()
	metrics.RecordedIntentsOutstanding.Set(float64(len(groups) + len(nodes)))

	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group *types.GroupInfo) {
			defer wg.Done()
			r.redriveGroup(group)
		}(group)
	}
	for _, node := range nodes {
		wg.Add(1)
		go func(node *types.ChainNodeInfo) {
			defer wg.Done()
			r.redriveNode(node)
		}(node)
	}
	wg.Wait()
}

func (r *Reconciler) redriveGroup(group *types.GroupInfo) {
	errCh := make(chan error, 1)
	r.manager.RedriveGroup(group, func(err error) { errCh <- err })
	if err := <-errCh; err != nil {
		r.logger.Warn().Err(err).
			Str("chain_id", group.ChainID).Str("group_id", group.GroupID).
			Str("status", group.Status.String()).
			Msg("reconciler: group redrive did not complete, will retry next cycle")
	}
}

func (r *Reconciler) redriveNode(node *types.ChainNodeInfo) {
	errCh := make(chan error, 1)
	r.manager.RedriveNode(node, func(err error) { errCh <- err })
	if err := <-errCh; err != nil {
		r.logger.Warn().Err(err).
			Str("chain_id", node.ChainID).Str("group_id", node.GroupID).Str("node_name", node.NodeName).
			Str("status", node.Status.String()).
			Msg("reconciler: node redrive did not complete, will retry next cycle")
	}
}
