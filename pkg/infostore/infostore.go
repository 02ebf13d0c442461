package infostore

import (
	"sync"

	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// ChangeNotifier is notified after a cache mutation commits. Implementations
// must not block; InfoStore invokes it on its own goroutine and never waits
// on it before returning a mutation to its caller.
type ChangeNotifier interface {
	NotifyGroupChange(group *types.GroupInfo)
}

// NotifierFunc adapts a plain function to ChangeNotifier.
type NotifierFunc func(group *types.GroupInfo)

func (f NotifierFunc) NotifyGroupChange(group *types.GroupInfo) { f(group) }

// InfoStore is the group manager's in-memory cache.
type InfoStore struct {
	mu sync.RWMutex

	chains map[string]*types.ChainInfo
	groups map[string]map[string]*types.GroupInfo // chainID -> groupID -> *GroupInfo

	notifier ChangeNotifier
}

// New returns an empty InfoStore. Call SetNotifier before any mutation if
// downstream services need to observe cache changes.
func New() *InfoStore {
	return &InfoStore{
		chains: make(map[string]*types.ChainInfo),
		groups: make(map[string]map[string]*types.GroupInfo),
	}
}

// SetNotifier installs the change notifier. Not safe to call concurrently
// with mutations; call it once during startup wiring.
func (s *InfoStore) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

func (s *InfoStore) notify(group *types.GroupInfo) {
	if s.notifier == nil || group == nil {
		return
	}
	snapshot := group.Clone()
	go s.notifier.NotifyGroupChange(snapshot)
}

// GetChainList returns every known chainID.
func (s *InfoStore) GetChainList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.chains))
	for id := range s.chains {
		ids = append(ids, id)
	}
	return ids
}

// GetChainInfo returns a cloned snapshot of a chain, or a GroupNotExists
// error (from grouperrors.NewGroupNotExists) if unknown. Chains use the same
// not-found code family as groups; the distinction is carried in the
// message, not a new code.
func (s *InfoStore) GetChainInfo(chainID string) (*types.ChainInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.chains[chainID]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("chain").Inc()
		return nil, grouperrors.NewGroupNotExists(chainID, "")
	}
	metrics.CacheHitsTotal.WithLabelValues("chain").Inc()
	return chain.Clone(), nil
}

// GetGroupList returns every groupID registered under chainID.
func (s *InfoStore) GetGroupList(chainID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.chains[chainID]
	if !ok {
		return nil, grouperrors.NewGroupNotExists(chainID, "")
	}
	return append([]string(nil), chain.GroupIDs...), nil
}

// GetGroupInfo returns a cloned snapshot of a group.
func (s *InfoStore) GetGroupInfo(chainID, groupID string) (*types.GroupInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[chainID][groupID]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("group").Inc()
		return nil, grouperrors.NewGroupNotExists(chainID, groupID)
	}
	metrics.CacheHitsTotal.WithLabelValues("group").Inc()
	return group.Clone(), nil
}

// GetNodeInfo returns a cloned snapshot of a single node within a group.
func (s *InfoStore) GetNodeInfo(chainID, groupID, nodeName string) (*types.ChainNodeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[chainID][groupID]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("node").Inc()
		return nil, grouperrors.NewGroupNotExists(chainID, groupID)
	}
	node, ok := group.Nodes[nodeName]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("node").Inc()
		return nil, grouperrors.NewNodeNotExists(chainID, groupID, nodeName)
	}
	metrics.CacheHitsTotal.WithLabelValues("node").Inc()
	return node.Clone(), nil
}

// PutChain installs or overwrites a chain's cache entry wholesale. Used by
// Init to seed the cache from storage at cold start, and by operations that
// rewrite a chain's group list (add/remove a groupID).
func (s *InfoStore) PutChain(chain *types.ChainInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[chain.ChainID] = chain.Clone()
	metrics.ChainsTotal.Set(float64(len(s.chains)))
}

// PutGroup installs or overwrites a group's cache entry wholesale, and
// fires the change notification. UpdateGroupCache rather than PutGroup is
// preferred for reconciliation writers that must not clobber a newer
// in-flight mutation; PutGroup always wins.
func (s *InfoStore) PutGroup(group *types.GroupInfo) {
	s.mu.Lock()
	if s.groups[group.ChainID] == nil {
		s.groups[group.ChainID] = make(map[string]*types.GroupInfo)
	}
	s.groups[group.ChainID][group.GroupID] = group.Clone()
	s.mu.Unlock()
	s.notify(group)
}

// UpdateGroupCache applies group to the cache. When enforce is false, the
// write is skipped if a cache entry already exists for (ChainID, GroupID),
// so a stale re-read of storage never overwrites a mutation the Manager has
// staged more recently. When enforce is true the write always applies;
// every caller in this module (Manager operations, the reconciler's
// redrive through Manager, and Init) passes true.
func (s *InfoStore) UpdateGroupCache(group *types.GroupInfo, enforce bool) {
	s.mu.Lock()
	if !enforce {
		if _, exists := s.groups[group.ChainID][group.GroupID]; exists {
			s.mu.Unlock()
			return
		}
	}
	if s.groups[group.ChainID] == nil {
		s.groups[group.ChainID] = make(map[string]*types.GroupInfo)
	}
	s.groups[group.ChainID][group.GroupID] = group.Clone()
	s.mu.Unlock()
	s.notify(group)
}

// RevertChainCache restores a chain's cache entry to previous, or deletes it
// entirely when previous is nil. Manager calls this with nil when a
// CreateGroup that implicitly created the chain then fails its storage
// step, so the chain doesn't linger in the cache with an empty group list.
func (s *InfoStore) RevertChainCache(chainID string, previous *types.ChainInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous == nil {
		delete(s.chains, chainID)
		return
	}
	s.chains[chainID] = previous.Clone()
}

// RevertGroupCache restores a group's cache entry to previous, or deletes it
// entirely when previous is nil. Manager calls this when a storage write
// that followed a speculative cache update fails, undoing the cache step of
// the cache → storage → fleet protocol.
func (s *InfoStore) RevertGroupCache(chainID, groupID string, previous *types.GroupInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous == nil {
		delete(s.groups[chainID], groupID)
		return
	}
	if s.groups[chainID] == nil {
		s.groups[chainID] = make(map[string]*types.GroupInfo)
	}
	s.groups[chainID][groupID] = previous.Clone()
}

// RevertGroupNodeCache restores a single node within a cached group to
// previous, or removes it when previous is nil. Used to undo a speculative
// node mutation (ExpandGroupNode, RemoveGroupNode, StartNode, StopNode)
// after a storage or fleet step fails.
func (s *InfoStore) RevertGroupNodeCache(chainID, groupID, nodeName string, previous *types.ChainNodeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[chainID][groupID]
	if !ok {
		return
	}
	clone := group.Clone()
	if previous == nil {
		delete(clone.Nodes, nodeName)
	} else {
		clone.Nodes[nodeName] = previous.Clone()
	}
	s.groups[chainID][groupID] = clone
}

// RecordedIntents returns every group and node currently parked in a
// recorded-intent status (Creating, Starting, Stopping, Deleting,
// Recovering) across the whole cache, for the reconciler to re-drive.
func (s *InfoStore) RecordedIntents() (groups []*types.GroupInfo, nodes []*types.ChainNodeInfo) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, byGroup := range s.groups {
		for _, group := range byGroup {
			if group.Status.IsRecordedIntent() {
				groups = append(groups, group.Clone())
			}
			for _, node := range group.Nodes {
				if node.Status.IsRecordedIntent() {
					nodes = append(nodes, node.Clone())
				}
			}
		}
	}
	return groups, nodes
}
