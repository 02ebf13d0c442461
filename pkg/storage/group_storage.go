// Package storage implements the schema, encoding, and batch row operations
// of the durable storage adapter: the t_chain / t_meta_chain_*_g_* /
// t_chain_*_g_* tables, layered on top of the TabularStore primary-key
// contract.
package storage

import (
	"fmt"
	"strconv"

	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// GroupStorage is the durable storage adapter. Every operation exposes an
// async callback; internally it runs synchronously against the TabularStore
// and dispatches the callback on its own goroutine, preserving the async
// contract at the boundary without a callback pyramid.
type GroupStorage struct {
	store TabularStore
}

// NewGroupStorage wraps a TabularStore with the group manager's schema.
func NewGroupStorage(store TabularStore) *GroupStorage {
	return &GroupStorage{store: store}
}

func timed(op string, fn func() error) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StorageOperationDuration, op)
	return fn()
}

// AsyncCreateChainTable creates t_chain. If seed carries a non-empty group
// list or service list, it atomically chains into AsyncSetChainInfo to
// persist the seed row in the same call.
func (s *GroupStorage) AsyncCreateChainTable(seed *types.ChainInfo, cb func(error)) {
	go func() {
		err := timed("create_chain_table", func() error {
			return s.store.CreateTable(chainTable, []string{fieldChainID, fieldStatus, fieldInfos})
		})
		if err != nil {
			cb(err)
			return
		}
		if seed != nil && (len(seed.GroupIDs) > 0 || len(seed.Services) > 0) {
			s.AsyncSetChainInfo(seed, cb)
			return
		}
		cb(nil)
	}()
}

// AsyncSetChainInfo upserts a chain's row.
func (s *GroupStorage) AsyncSetChainInfo(chainInfo *types.ChainInfo, cb func(error)) {
	go func() {
		err := timed("set_chain_info", func() error {
			return s.store.SetRow(chainTable, chainInfo.ChainID, chainRow(chainInfo))
		})
		cb(err)
	}()
}

// AsyncGetChainList returns every chainID currently persisted.
func (s *GroupStorage) AsyncGetChainList(cb func([]string, error)) {
	go func() {
		var keys []string
		err := timed("get_chain_list", func() error {
			var err error
			keys, err = s.store.GetPrimaryKeys(chainTable)
			return err
		})
		cb(keys, err)
	}()
}

// AsyncGetChainInfos fetches and decodes ChainInfo rows for chainIDs.
func (s *GroupStorage) AsyncGetChainInfos(chainIDs []string, cb func([]*types.ChainInfo, error)) {
	go func() {
		var infos []*types.ChainInfo
		err := timed("get_chain_infos", func() error {
			rows, err := s.store.GetRows(chainTable, chainIDs)
			if err != nil {
				return err
			}
			for i, row := range rows {
				if row == nil {
					continue
				}
				info, err := decodeChainRow(chainIDs[i], row)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return nil
		})
		cb(infos, err)
	}()
}

// AsyncInsertGroupInfo composes the three steps spec §4.3 requires: update
// the chain row, create the group meta table and its three rows, then
// create the group node table and its node rows. Any step's failure
// short-circuits with that step's error.
func (s *GroupStorage) AsyncInsertGroupInfo(chainInfo *types.ChainInfo, groupInfo *types.GroupInfo, cb func(error)) {
	logger := log.WithGroup(groupInfo.ChainID, groupInfo.GroupID)
	go func() {
		if err := timed("insert_group_chain_row", func() error {
			return s.store.SetRow(chainTable, chainInfo.ChainID, chainRow(chainInfo))
		}); err != nil {
			logger.Error().Err(err).Msg("insert group info: update chain row failed")
			cb(fmt.Errorf("update chain row: %w", err))
			return
		}

		meta := metaTableName(groupInfo.ChainID, groupInfo.GroupID)
		if err := timed("insert_group_meta_table", func() error {
			if err := s.store.CreateTable(meta, []string{fieldMetaKey, fieldMetaValue}); err != nil {
				return err
			}
			return s.store.SetRows(meta, metaRows(groupInfo))
		}); err != nil {
			logger.Error().Err(err).Msg("insert group info: meta table failed")
			cb(fmt.Errorf("create group meta table: %w", err))
			return
		}

		nodes := nodeTableName(groupInfo.ChainID, groupInfo.GroupID)
		if err := timed("insert_group_node_table", func() error {
			if err := s.store.CreateTable(nodes, []string{
				fieldNodeName, fieldNodeType, fieldNodeDeployInfo, fieldNodeID, fieldNodeConfig, fieldNodeStatus,
			}); err != nil {
				return err
			}
			return s.store.SetRows(nodes, nodeRows(groupInfo))
		}); err != nil {
			logger.Error().Err(err).Msg("insert group info: node table failed")
			cb(fmt.Errorf("create group node table: %w", err))
			return
		}

		cb(nil)
	}()
}

// AsyncGetGroupInfo reads the group's meta table and node table and
// reassembles a GroupInfo.
func (s *GroupStorage) AsyncGetGroupInfo(chainID, groupID string, cb func(*types.GroupInfo, error)) {
	go func() {
		var result *types.GroupInfo
		err := timed("get_group_info", func() error {
			meta := metaTableName(chainID, groupID)
			rows, err := s.store.GetRows(meta, []string{metaKeyIni, metaKeyGenesis, metaKeyStatus})
			if err != nil {
				return err
			}
			if rows[2] == nil {
				return grouperrors.NewGroupNotExists(chainID, groupID)
			}

			group := &types.GroupInfo{
				ChainID: chainID,
				GroupID: groupID,
				Nodes:   map[string]*types.ChainNodeInfo{},
			}
			if rows[0] != nil {
				group.IniConfig = string(rows[0][fieldMetaValue])
			}
			if rows[1] != nil {
				group.GenesisConfig = string(rows[1][fieldMetaValue])
			}
			group.Status = types.ParseStatus(string(rows[2][fieldMetaValue]))

			nodeTable := nodeTableName(chainID, groupID)
			names, err := s.store.GetPrimaryKeys(nodeTable)
			if err != nil {
				return err
			}
			nodeRowsList, err := s.store.GetRows(nodeTable, names)
			if err != nil {
				return err
			}
			for i, row := range nodeRowsList {
				if row == nil {
					continue
				}
				node, err := decodeNodeRow(chainID, groupID, names[i], row)
				if err != nil {
					return err
				}
				group.Nodes[node.NodeName] = node
			}

			result = group
			return nil
		})
		cb(result, err)
	}()
}

// AsyncSetGroupStatus updates the group's "status" meta row.
func (s *GroupStorage) AsyncSetGroupStatus(chainID, groupID string, status types.Status, cb func(error)) {
	go func() {
		err := timed("set_group_status", func() error {
			return s.store.SetRow(metaTableName(chainID, groupID), metaKeyStatus, Row{
				fieldMetaKey:   []byte(metaKeyStatus),
				fieldMetaValue: []byte(status.String()),
			})
		})
		cb(err)
	}()
}

// AsyncInsertNodeInfo upserts a new node row into the group's node table.
// Consistent with every reader, the table name is always derived as
// (chainID, groupID) — see AsyncSetNodeInfo for the bug this fixes.
func (s *GroupStorage) AsyncInsertNodeInfo(chainID, groupID string, node *types.ChainNodeInfo, cb func(error)) {
	go func() {
		err := timed("insert_node_info", func() error {
			return s.store.SetRow(nodeTableName(chainID, groupID), node.NodeName, nodeRow(node))
		})
		cb(err)
	}()
}

// AsyncSetNodeInfo upserts an existing node row.
//
// The source this adapter is modeled on computes this table name as
// getGroupTableName(groupID, chainID) — arguments swapped relative to every
// other reader/writer of the node table. That is a bug, not an
// intentional alternate addressing scheme; this implementation always uses
// (chainID, groupID), matching AsyncInsertNodeInfo and AsyncGetGroupInfo.
func (s *GroupStorage) AsyncSetNodeInfo(chainID, groupID string, node *types.ChainNodeInfo, cb func(error)) {
	go func() {
		err := timed("set_node_info", func() error {
			return s.store.SetRow(nodeTableName(chainID, groupID), node.NodeName, nodeRow(node))
		})
		cb(err)
	}()
}

// --- row encoding helpers ---

func chainRow(c *types.ChainInfo) Row {
	return Row{
		fieldChainID: []byte(c.ChainID),
		fieldStatus:  []byte(c.Status.String()),
		fieldInfos:   EncodeChainInfos(c.GroupIDs, c.Services),
	}
}

func decodeChainRow(chainID string, row Row) (*types.ChainInfo, error) {
	groupIDs, services, err := DecodeChainInfos(row[fieldInfos])
	if err != nil {
		return nil, fmt.Errorf("decode chain row %s: %w", chainID, err)
	}
	return &types.ChainInfo{
		ChainID:  chainID,
		Status:   types.ParseStatus(string(row[fieldStatus])),
		GroupIDs: groupIDs,
		Services: services,
	}, nil
}

func metaRows(g *types.GroupInfo) map[string]Row {
	return map[string]Row{
		metaKeyIni:     {fieldMetaKey: []byte(metaKeyIni), fieldMetaValue: []byte(g.IniConfig)},
		metaKeyGenesis: {fieldMetaKey: []byte(metaKeyGenesis), fieldMetaValue: []byte(g.GenesisConfig)},
		metaKeyStatus:  {fieldMetaKey: []byte(metaKeyStatus), fieldMetaValue: []byte(g.Status.String())},
	}
}

func nodeRows(g *types.GroupInfo) map[string]Row {
	rows := make(map[string]Row, len(g.Nodes))
	for name, node := range g.Nodes {
		rows[name] = nodeRow(node)
	}
	return rows
}

func nodeRow(n *types.ChainNodeInfo) Row {
	return Row{
		fieldNodeName:       []byte(n.NodeName),
		fieldNodeType:       []byte(strconv.Itoa(n.NodeType)),
		fieldNodeDeployInfo: EncodeDeployInfo(n.DeployInfo),
		fieldNodeID:         []byte(n.NodeID),
		fieldNodeConfig:     []byte(n.IniConfig),
		fieldNodeStatus:     []byte(n.Status.String()),
	}
}

func decodeNodeRow(chainID, groupID, nodeName string, row Row) (*types.ChainNodeInfo, error) {
	deployInfo, err := DecodeDeployInfo(row[fieldNodeDeployInfo])
	if err != nil {
		return nil, fmt.Errorf("decode node row %s/%s/%s: %w", chainID, groupID, nodeName, err)
	}
	nodeType, err := strconv.Atoi(string(row[fieldNodeType]))
	if err != nil {
		return nil, fmt.Errorf("decode node row %s/%s/%s type: %w", chainID, groupID, nodeName, err)
	}
	return &types.ChainNodeInfo{
		ChainID:    chainID,
		GroupID:    groupID,
		NodeName:   nodeName,
		Status:     types.ParseStatus(string(row[fieldNodeStatus])),
		NodeType:   nodeType,
		NodeID:     string(row[fieldNodeID]),
		IniConfig:  string(row[fieldNodeConfig]),
		DeployInfo: deployInfo,
	}, nil
}
