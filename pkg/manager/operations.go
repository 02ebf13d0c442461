package manager

import (
	"github.com/chainfleet/groupmgr/pkg/events"
	"github.com/chainfleet/groupmgr/pkg/fleet"
	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// recordOperation increments the per-verb, per-outcome mutation counter and
// observes the operation's end-to-end duration. outcome is one of "ok",
// "precondition_failed", "storage_failed", "fleet_failed".
func recordOperation(verb string, timer *metrics.Timer, outcome string) {
	metrics.OperationsTotal.WithLabelValues(verb, outcome).Inc()
	timer.ObserveDurationVec(metrics.OperationDuration, verb)
}

// CreateGroup inserts a new group. Precondition: the group must not already
// exist. Each node is stamped with the group's chainID and groupID. On
// success the group and every one of its nodes lands in Created, in both
// storage and the cache.
func (m *Manager) CreateGroup(groupInfo *types.GroupInfo, cb func(error)) {
	chainID, groupID := groupInfo.ChainID, groupInfo.GroupID
	logger := log.WithGroup(chainID, groupID)
	timer := metrics.NewTimer()

	// Step 1: check-and-stage.
	if _, err := m.cache.GetGroupInfo(chainID, groupID); err == nil {
		recordOperation("create", timer, "precondition_failed")
		cb(grouperrors.NewGroupAlreadyExists(chainID, groupID))
		return
	}
	baseChain, chainErr := m.cache.GetChainInfo(chainID)
	chainPreexisted := chainErr == nil
	if !chainPreexisted {
		baseChain = &types.ChainInfo{ChainID: chainID, Status: types.StatusCreated}
	}
	newChain := baseChain.WithGroup(groupID)

	staged := groupInfo.Clone()
	staged.Status = types.StatusCreating
	for name, node := range staged.Nodes {
		stagedNode := node.WithStatus(types.StatusCreating)
		stagedNode.ChainID, stagedNode.GroupID = chainID, groupID
		staged.Nodes[name] = stagedNode
	}

	m.cache.PutChain(newChain)
	m.cache.PutGroup(staged)

	// Step 2: record intent durably.
	m.storage.AsyncInsertGroupInfo(newChain, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("create group: storage insert failed, rolling back cache")
			m.cache.RevertGroupCache(chainID, groupID, nil)
			if chainPreexisted {
				m.cache.RevertChainCache(chainID, baseChain)
			} else {
				m.cache.RevertChainCache(chainID, nil)
			}
			recordOperation("create", timer, "storage_failed")
			cb(grouperrors.NewCreateGroupFailed(chainID, groupID, err))
			return
		}

		// Step 3: enact and finalize.
		if err := m.fleet.Dispatch(fleet.Create, staged.Nodes); err != nil {
			logger.Error().Err(err).Msg("create group: fleet dispatch failed, entity left at recorded intent")
			recordOperation("create", timer, "fleet_failed")
			cb(grouperrors.NewCreateGroupFailed(chainID, groupID, err))
			return
		}

		final := staged.WithStatus(types.StatusCreated)
		for name, node := range final.Nodes {
			final.Nodes[name] = node.WithStatus(types.StatusCreated)
		}
		m.storage.AsyncSetGroupStatus(chainID, groupID, types.StatusCreated, func(err error) {
			if err != nil {
				recordOperation("create", timer, "storage_failed")
				cb(grouperrors.NewCreateGroupFailed(chainID, groupID, err))
				return
			}
			for _, node := range final.Nodes {
				nodeErrCh := make(chan error, 1)
				m.storage.AsyncSetNodeInfo(chainID, groupID, node, func(err error) { nodeErrCh <- err })
				if err := <-nodeErrCh; err != nil {
					recordOperation("create", timer, "storage_failed")
					cb(grouperrors.NewCreateGroupFailed(chainID, groupID, err))
					return
				}
			}
			m.cache.UpdateGroupCache(final, true)
			m.publish(events.EventGroupCreated, chainID, groupID, "", "group created")
			recordOperation("create", timer, "ok")
			cb(nil)
		})
	})
}

// ExpandGroupNode adds a node to an existing group. Precondition: the group
// must exist and the node must not.
func (m *Manager) ExpandGroupNode(chainID, groupID string, node *types.ChainNodeInfo, cb func(error)) {
	logger := log.WithNode(chainID, groupID, node.NodeName)
	timer := metrics.NewTimer()

	group, err := m.cache.GetGroupInfo(chainID, groupID)
	if err != nil {
		recordOperation("expand", timer, "precondition_failed")
		cb(err)
		return
	}
	if _, exists := group.Nodes[node.NodeName]; exists {
		recordOperation("expand", timer, "precondition_failed")
		cb(grouperrors.NewNodeAlreadyExists(chainID, groupID, node.NodeName))
		return
	}

	staged := node.WithStatus(types.StatusCreating)
	stagedGroup := group.WithNode(staged)
	m.cache.UpdateGroupCache(stagedGroup, true)

	m.storage.AsyncInsertNodeInfo(chainID, groupID, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("expand group node: storage insert failed, rolling back cache")
			m.cache.RevertGroupNodeCache(chainID, groupID, node.NodeName, nil)
			recordOperation("expand", timer, "storage_failed")
			cb(grouperrors.NewExpandGroupNodeFailed(chainID, groupID, node.NodeName, err))
			return
		}

		nodes := map[string]*types.ChainNodeInfo{staged.NodeName: staged}
		if err := m.fleet.Dispatch(fleet.Create, nodes); err != nil {
			logger.Error().Err(err).Msg("expand group node: fleet dispatch failed, entity left at recorded intent")
			recordOperation("expand", timer, "fleet_failed")
			cb(grouperrors.NewExpandGroupNodeFailed(chainID, groupID, node.NodeName, err))
			return
		}

		final := staged.WithStatus(types.StatusCreated)
		m.storage.AsyncSetNodeInfo(chainID, groupID, final, func(err error) {
			if err != nil {
				recordOperation("expand", timer, "storage_failed")
				cb(grouperrors.NewExpandGroupNodeFailed(chainID, groupID, node.NodeName, err))
				return
			}
			m.cache.UpdateGroupCache(group.WithNode(final), true)
			m.publish(events.EventNodeExpanded, chainID, groupID, final.NodeName, "node added to group")
			recordOperation("expand", timer, "ok")
			cb(nil)
		})
	})
}

// RemoveGroup tears a group down. Precondition: the group must exist and
// not already be Deleted. The affected fleet node set is every node in the
// group.
func (m *Manager) RemoveGroup(chainID, groupID string, cb func(error)) {
	logger := log.WithGroup(chainID, groupID)
	timer := metrics.NewTimer()

	group, err := m.cache.GetGroupInfo(chainID, groupID)
	if err != nil {
		recordOperation("remove", timer, "precondition_failed")
		cb(err)
		return
	}
	if group.Status == types.StatusDeleted {
		recordOperation("remove", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(group.Status))
		return
	}

	previous := group.Clone()
	staged := group.WithStatus(types.StatusDeleting)
	m.cache.UpdateGroupCache(staged, true)

	m.storage.AsyncSetGroupStatus(chainID, groupID, types.StatusDeleting, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("remove group: storage write failed, rolling back cache")
			m.cache.UpdateGroupCache(previous, true)
			recordOperation("remove", timer, "storage_failed")
			cb(err)
			return
		}

		if err := m.fleet.Dispatch(fleet.Remove, group.Nodes); err != nil {
			logger.Error().Err(err).Msg("remove group: fleet dispatch failed, entity left at recorded intent")
			recordOperation("remove", timer, "fleet_failed")
			cb(err)
			return
		}

		m.storage.AsyncSetGroupStatus(chainID, groupID, types.StatusDeleted, func(err error) {
			if err != nil {
				recordOperation("remove", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.UpdateGroupCache(staged.WithStatus(types.StatusDeleted), true)
			m.publish(events.EventGroupDeleted, chainID, groupID, "", "group deleted")
			recordOperation("remove", timer, "ok")
			cb(nil)
		})
	})
}

// RemoveGroupNode tears a single node down. Precondition: the node must
// exist.
func (m *Manager) RemoveGroupNode(chainID, groupID, nodeName string, cb func(error)) {
	logger := log.WithNode(chainID, groupID, nodeName)
	timer := metrics.NewTimer()

	node, err := m.cache.GetNodeInfo(chainID, groupID, nodeName)
	if err != nil {
		recordOperation("remove", timer, "precondition_failed")
		cb(err)
		return
	}

	previous := node.Clone()
	staged := node.WithStatus(types.StatusDeleting)
	m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, staged)

	m.storage.AsyncSetNodeInfo(chainID, groupID, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("remove group node: storage write failed, rolling back cache")
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, previous)
			recordOperation("remove", timer, "storage_failed")
			cb(err)
			return
		}

		nodes := map[string]*types.ChainNodeInfo{nodeName: previous}
		if err := m.fleet.Dispatch(fleet.Remove, nodes); err != nil {
			logger.Error().Err(err).Msg("remove group node: fleet dispatch failed, entity left at recorded intent")
			recordOperation("remove", timer, "fleet_failed")
			cb(err)
			return
		}

		final := staged.WithStatus(types.StatusDeleted)
		m.storage.AsyncSetNodeInfo(chainID, groupID, final, func(err error) {
			if err != nil {
				recordOperation("remove", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, final)
			m.publish(events.EventNodeRemoved, chainID, groupID, nodeName, "node removed")
			recordOperation("remove", timer, "ok")
			cb(nil)
		})
	})
}

// RecoverGroup restores a Deleted group back to Created. Precondition:
// group status must be exactly Deleted.
func (m *Manager) RecoverGroup(chainID, groupID string, cb func(error)) {
	logger := log.WithGroup(chainID, groupID)
	timer := metrics.NewTimer()

	group, err := m.cache.GetGroupInfo(chainID, groupID)
	if err != nil {
		recordOperation("recover", timer, "precondition_failed")
		cb(err)
		return
	}
	if group.Status != types.StatusDeleted {
		recordOperation("recover", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(group.Status))
		return
	}

	previous := group.Clone()
	staged := group.WithStatus(types.StatusRecovering)
	m.cache.UpdateGroupCache(staged, true)

	m.storage.AsyncSetGroupStatus(chainID, groupID, types.StatusRecovering, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("recover group: storage write failed, rolling back cache")
			m.cache.UpdateGroupCache(previous, true)
			recordOperation("recover", timer, "storage_failed")
			cb(err)
			return
		}

		if err := m.fleet.Dispatch(fleet.Create, group.Nodes); err != nil {
			logger.Error().Err(err).Msg("recover group: fleet dispatch failed, entity left at recorded intent")
			recordOperation("recover", timer, "fleet_failed")
			cb(err)
			return
		}

		m.storage.AsyncSetGroupStatus(chainID, groupID, types.StatusCreated, func(err error) {
			if err != nil {
				recordOperation("recover", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.UpdateGroupCache(staged.WithStatus(types.StatusCreated), true)
			m.publish(events.EventGroupRecovered, chainID, groupID, "", "group recovered")
			recordOperation("recover", timer, "ok")
			cb(nil)
		})
	})
}

// RecoverGroupNode restores a Deleted node back to Created. Precondition:
// the owning group must be Created and the node must be Deleted.
func (m *Manager) RecoverGroupNode(chainID, groupID, nodeName string, cb func(error)) {
	logger := log.WithNode(chainID, groupID, nodeName)
	timer := metrics.NewTimer()

	group, err := m.cache.GetGroupInfo(chainID, groupID)
	if err != nil {
		recordOperation("recover", timer, "precondition_failed")
		cb(err)
		return
	}
	if group.Status != types.StatusCreated {
		recordOperation("recover", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(group.Status))
		return
	}
	node, exists := group.Nodes[nodeName]
	if !exists {
		recordOperation("recover", timer, "precondition_failed")
		cb(grouperrors.NewNodeNotExists(chainID, groupID, nodeName))
		return
	}
	if node.Status != types.StatusDeleted {
		recordOperation("recover", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(node.Status))
		return
	}

	previous := node.Clone()
	staged := node.WithStatus(types.StatusRecovering)
	m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, staged)

	m.storage.AsyncSetNodeInfo(chainID, groupID, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("recover group node: storage write failed, rolling back cache")
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, previous)
			recordOperation("recover", timer, "storage_failed")
			cb(err)
			return
		}

		nodes := map[string]*types.ChainNodeInfo{nodeName: staged}
		if err := m.fleet.Dispatch(fleet.Create, nodes); err != nil {
			logger.Error().Err(err).Msg("recover group node: fleet dispatch failed, entity left at recorded intent")
			recordOperation("recover", timer, "fleet_failed")
			cb(err)
			return
		}

		final := staged.WithStatus(types.StatusCreated)
		m.storage.AsyncSetNodeInfo(chainID, groupID, final, func(err error) {
			if err != nil {
				recordOperation("recover", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, final)
			m.publish(events.EventNodeRecovered, chainID, groupID, nodeName, "node recovered")
			recordOperation("recover", timer, "ok")
			cb(nil)
		})
	})
}

// StartNode starts a stopped or freshly created node. Precondition: node
// status must be Created or Stopped.
//
// The source this is modeled on checks `status != Created || status !=
// Stopped`, which is tautologically true for every status and so never
// rejects anything. This implementation uses the intended check: status
// must be a member of {Created, Stopped}.
func (m *Manager) StartNode(chainID, groupID, nodeName string, cb func(error)) {
	logger := log.WithNode(chainID, groupID, nodeName)
	timer := metrics.NewTimer()

	node, err := m.cache.GetNodeInfo(chainID, groupID, nodeName)
	if err != nil {
		recordOperation("start", timer, "precondition_failed")
		cb(err)
		return
	}
	if node.Status != types.StatusCreated && node.Status != types.StatusStopped {
		recordOperation("start", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(node.Status))
		return
	}

	previous := node.Clone()
	staged := node.WithStatus(types.StatusStarting)
	m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, staged)

	m.storage.AsyncSetNodeInfo(chainID, groupID, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("start node: storage write failed, rolling back cache")
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, previous)
			recordOperation("start", timer, "storage_failed")
			cb(err)
			return
		}

		nodes := map[string]*types.ChainNodeInfo{nodeName: staged}
		if err := m.fleet.Dispatch(fleet.Start, nodes); err != nil {
			logger.Error().Err(err).Msg("start node: fleet dispatch failed, entity left at recorded intent")
			recordOperation("start", timer, "fleet_failed")
			cb(err)
			return
		}

		final := staged.WithStatus(types.StatusStarted)
		m.storage.AsyncSetNodeInfo(chainID, groupID, final, func(err error) {
			if err != nil {
				recordOperation("start", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, final)
			m.publish(events.EventNodeStarted, chainID, groupID, nodeName, "node started")
			recordOperation("start", timer, "ok")
			cb(nil)
		})
	})
}

// StopNode stops a running node. Precondition: node status must be Started.
func (m *Manager) StopNode(chainID, groupID, nodeName string, cb func(error)) {
	logger := log.WithNode(chainID, groupID, nodeName)
	timer := metrics.NewTimer()

	node, err := m.cache.GetNodeInfo(chainID, groupID, nodeName)
	if err != nil {
		recordOperation("stop", timer, "precondition_failed")
		cb(err)
		return
	}
	if node.Status != types.StatusStarted {
		recordOperation("stop", timer, "precondition_failed")
		cb(grouperrors.NewOperationNotAllowed(node.Status))
		return
	}

	previous := node.Clone()
	staged := node.WithStatus(types.StatusStopping)
	m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, staged)

	m.storage.AsyncSetNodeInfo(chainID, groupID, staged, func(err error) {
		if err != nil {
			logger.Error().Err(err).Msg("stop node: storage write failed, rolling back cache")
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, previous)
			recordOperation("stop", timer, "storage_failed")
			cb(err)
			return
		}

		nodes := map[string]*types.ChainNodeInfo{nodeName: staged}
		if err := m.fleet.Dispatch(fleet.Stop, nodes); err != nil {
			logger.Error().Err(err).Msg("stop node: fleet dispatch failed, entity left at recorded intent")
			recordOperation("stop", timer, "fleet_failed")
			cb(err)
			return
		}

		final := staged.WithStatus(types.StatusStopped)
		m.storage.AsyncSetNodeInfo(chainID, groupID, final, func(err error) {
			if err != nil {
				recordOperation("stop", timer, "storage_failed")
				cb(err)
				return
			}
			m.cache.RevertGroupNodeCache(chainID, groupID, nodeName, final)
			m.publish(events.EventNodeStopped, chainID, groupID, nodeName, "node stopped")
			recordOperation("stop", timer, "ok")
			cb(nil)
		})
	})
}
