package manager

import (
	"fmt"

	"github.com/chainfleet/groupmgr/pkg/fleet"
	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// groupRedrive and nodeRedrive describe what it takes to finish a recorded
// intent: which fleet command completes it, and which status to persist
// once the fleet call succeeds.
type redrive struct {
	command  fleet.LogicalCommand
	terminal types.Status
}

func groupRedrive(status types.Status) (redrive, bool) {
	switch status {
	case types.StatusCreating:
		return redrive{fleet.Create, types.StatusCreated}, true
	case types.StatusDeleting:
		return redrive{fleet.Remove, types.StatusDeleted}, true
	case types.StatusRecovering:
		return redrive{fleet.Create, types.StatusCreated}, true
	default:
		return redrive{}, false
	}
}

func nodeRedrive(status types.Status) (redrive, bool) {
	switch status {
	case types.StatusCreating, types.StatusRecovering:
		return redrive{fleet.Create, types.StatusCreated}, true
	case types.StatusDeleting:
		return redrive{fleet.Remove, types.StatusDeleted}, true
	case types.StatusStarting:
		return redrive{fleet.Start, types.StatusStarted}, true
	case types.StatusStopping:
		return redrive{fleet.Stop, types.StatusStopped}, true
	default:
		return redrive{}, false
	}
}

// RedriveGroup re-issues the fleet step for a group parked at a recorded
// intent status, then advances it to the terminal status on success. It
// does not repeat the check-and-stage or record-intent steps, since those
// are already durable — only the fleet step may not have completed.
func (m *Manager) RedriveGroup(group *types.GroupInfo, cb func(error)) {
	redrive, ok := groupRedrive(group.Status)
	if !ok {
		cb(fmt.Errorf("redrive group: status %s is not a recorded intent", group.Status))
		return
	}
	logger := log.WithGroup(group.ChainID, group.GroupID)

	if err := m.fleet.Dispatch(redrive.command, group.Nodes); err != nil {
		logger.Warn().Err(err).Msg("redrive group: fleet dispatch still failing")
		cb(err)
		return
	}
	m.storage.AsyncSetGroupStatus(group.ChainID, group.GroupID, redrive.terminal, func(err error) {
		if err != nil {
			cb(err)
			return
		}
		m.cache.UpdateGroupCache(group.WithStatus(redrive.terminal), true)
		cb(nil)
	})
}

// RedriveNode re-issues the fleet step for a node parked at a recorded
// intent status.
func (m *Manager) RedriveNode(node *types.ChainNodeInfo, cb func(error)) {
	redrive, ok := nodeRedrive(node.Status)
	if !ok {
		cb(fmt.Errorf("redrive node: status %s is not a recorded intent", node.Status))
		return
	}
	logger := log.WithNode(node.ChainID, node.GroupID, node.NodeName)

	nodes := map[string]*types.ChainNodeInfo{node.NodeName: node}
	if err := m.fleet.Dispatch(redrive.command, nodes); err != nil {
		logger.Warn().Err(err).Msg("redrive node: fleet dispatch still failing")
		cb(err)
		return
	}
	final := node.WithStatus(redrive.terminal)
	m.storage.AsyncSetNodeInfo(node.ChainID, node.GroupID, final, func(err error) {
		if err != nil {
			cb(err)
			return
		}
		m.cache.RevertGroupNodeCache(node.ChainID, node.GroupID, node.NodeName, final)
		cb(nil)
	})
}

// RecordedIntents exposes the underlying cache's outstanding recorded
// intents, for the reconciler to poll.
func (m *Manager) RecordedIntents() (groups []*types.GroupInfo, nodes []*types.ChainNodeInfo) {
	return m.cache.RecordedIntents()
}
