package manager

import (
	"github.com/chainfleet/groupmgr/pkg/events"
	"github.com/chainfleet/groupmgr/pkg/fleet"
	"github.com/chainfleet/groupmgr/pkg/infostore"
	"github.com/chainfleet/groupmgr/pkg/storage"
	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/google/uuid"
)

// Manager is the group manager's public API surface.
type Manager struct {
	cache   *infostore.InfoStore
	storage *storage.GroupStorage
	fleet   *fleet.Controller
	events  *events.Broker
}

// New wires a Manager over an already-initialized InfoStore (Init must have
// been called before the Manager accepts traffic).
func New(cache *infostore.InfoStore, store *storage.GroupStorage, fleetCtl *fleet.Controller) *Manager {
	return &Manager{cache: cache, storage: store, fleet: fleetCtl}
}

// SetEventBroker attaches a broker that receives one Event per finalized
// operation. Optional: a Manager with no broker attached publishes nothing.
func (m *Manager) SetEventBroker(b *events.Broker) {
	m.events = b
}

// publish emits a lifecycle event if a broker is attached. No-op otherwise.
func (m *Manager) publish(typ events.EventType, chainID, groupID, nodeName, message string) {
	if m.events == nil {
		return
	}
	m.events.Publish(&events.Event{
		ID:       uuid.NewString(),
		Type:     typ,
		ChainID:  chainID,
		GroupID:  groupID,
		NodeName: nodeName,
		Message:  message,
	})
}

// GetChainList returns every known chainID.
func (m *Manager) GetChainList(cb func([]string, error)) {
	go cb(m.cache.GetChainList(), nil)
}

// GetGroupList returns every groupID belonging to chainID.
func (m *Manager) GetGroupList(chainID string, cb func([]string, error)) {
	go func() {
		ids, err := m.cache.GetGroupList(chainID)
		cb(ids, err)
	}()
}

// GetGroupInfo returns the group's current state.
func (m *Manager) GetGroupInfo(chainID, groupID string, cb func(*types.GroupInfo, error)) {
	go func() {
		group, err := m.cache.GetGroupInfo(chainID, groupID)
		cb(group, err)
	}()
}

// GetNodeInfo returns a single node's current state.
func (m *Manager) GetNodeInfo(chainID, groupID, nodeName string, cb func(*types.ChainNodeInfo, error)) {
	go func() {
		node, err := m.cache.GetNodeInfo(chainID, groupID, nodeName)
		cb(node, err)
	}()
}

// syncErr lets the package's *Sync convenience wrappers block on an async
// callback without duplicating channel plumbing at every call site. It is
// not part of the core async contract; callers that want true
// fire-and-forget semantics should use the callback-based methods directly.
func syncErr(fn func(cb func(error))) error {
	ch := make(chan error, 1)
	fn(func(err error) { ch <- err })
	return <-ch
}

// CreateGroupSync blocks until CreateGroup completes.
func (m *Manager) CreateGroupSync(groupInfo *types.GroupInfo) error {
	return syncErr(func(cb func(error)) { m.CreateGroup(groupInfo, cb) })
}

// RemoveGroupSync blocks until RemoveGroup completes.
func (m *Manager) RemoveGroupSync(chainID, groupID string) error {
	return syncErr(func(cb func(error)) { m.RemoveGroup(chainID, groupID, cb) })
}

// StartNodeSync blocks until StartNode completes.
func (m *Manager) StartNodeSync(chainID, groupID, nodeName string) error {
	return syncErr(func(cb func(error)) { m.StartNode(chainID, groupID, nodeName, cb) })
}

// StopNodeSync blocks until StopNode completes.
func (m *Manager) StopNodeSync(chainID, groupID, nodeName string) error {
	return syncErr(func(cb func(error)) { m.StopNode(chainID, groupID, nodeName, cb) })
}
