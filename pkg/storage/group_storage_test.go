package storage

import (
	"path/filepath"
	"testing"

	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroupStorage(t *testing.T) *GroupStorage {
	t.Helper()
	db, err := NewBoltTabularStore(filepath.Join(t.TempDir(), "groupmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewGroupStorage(db)
}

func await[T any](fn func(cb func(T, error))) (T, error) {
	resultCh := make(chan struct {
		val T
		err error
	}, 1)
	fn(func(v T, err error) {
		resultCh <- struct {
			val T
			err error
		}{v, err}
	})
	r := <-resultCh
	return r.val, r.err
}

func awaitErr(fn func(cb func(error))) error {
	errCh := make(chan error, 1)
	fn(func(err error) { errCh <- err })
	return <-errCh
}

func TestGroupStorageCreateChainTableAndSeed(t *testing.T) {
	gs := newTestGroupStorage(t)

	seed := &types.ChainInfo{ChainID: "c1", Status: types.StatusCreated, GroupIDs: []string{"g1"}, Services: []string{"rpc_c1"}}
	err := awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(seed, cb) })
	require.NoError(t, err)

	chains, err := await[[]string](func(cb func([]string, error)) { gs.AsyncGetChainList(cb) })
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, chains)

	infos, err := await[[]*types.ChainInfo](func(cb func([]*types.ChainInfo, error)) { gs.AsyncGetChainInfos([]string{"c1"}, cb) })
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, seed.GroupIDs, infos[0].GroupIDs)
	assert.Equal(t, seed.Services, infos[0].Services)
	assert.Equal(t, types.StatusCreated, infos[0].Status)
}

func TestGroupStorageCreateChainTableTwiceFails(t *testing.T) {
	gs := newTestGroupStorage(t)

	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) }))
	err := awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) })
	require.Error(t, err)
	assert.ErrorIs(t, err, grouperrors.ErrTableExists)
}

func TestGroupStorageInsertAndGetGroupInfo(t *testing.T) {
	gs := newTestGroupStorage(t)
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) }))

	chainInfo := &types.ChainInfo{ChainID: "c1", Status: types.StatusCreated, GroupIDs: []string{"g1"}}
	group := &types.GroupInfo{
		ChainID:       "c1",
		GroupID:       "g1",
		Status:        types.StatusCreating,
		IniConfig:     "[group]\nepoch_sealer_num=1",
		GenesisConfig: "[group]\nid=1",
		Nodes: map[string]*types.ChainNodeInfo{
			"n1": {
				ChainID: "c1", GroupID: "g1", NodeName: "n1",
				Status: types.StatusCreating, NodeType: 1, NodeID: "node-1",
				DeployInfo: map[string]string{"rpc": "10.0.0.1"},
			},
		},
	}

	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncInsertGroupInfo(chainInfo, group, cb) }))

	got, err := await[*types.GroupInfo](func(cb func(*types.GroupInfo, error)) { gs.AsyncGetGroupInfo("c1", "g1", cb) })
	require.NoError(t, err)
	assert.Equal(t, types.StatusCreating, got.Status)
	assert.Equal(t, group.IniConfig, got.IniConfig)
	assert.Equal(t, group.GenesisConfig, got.GenesisConfig)
	require.Contains(t, got.Nodes, "n1")
	assert.Equal(t, "node-1", got.Nodes["n1"].NodeID)
	assert.Equal(t, "10.0.0.1", got.Nodes["n1"].DeployInfo["rpc"])
}

func TestGroupStorageGetGroupInfoMissing(t *testing.T) {
	gs := newTestGroupStorage(t)
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) }))

	_, err := await[*types.GroupInfo](func(cb func(*types.GroupInfo, error)) { gs.AsyncGetGroupInfo("c1", "missing", cb) })
	require.Error(t, err)
	var groupErr *grouperrors.GroupError
	require.ErrorAs(t, err, &groupErr)
	assert.Equal(t, grouperrors.CodeGroupNotExists, groupErr.Code)
}

func TestGroupStorageSetGroupStatus(t *testing.T) {
	gs := newTestGroupStorage(t)
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) }))

	chainInfo := &types.ChainInfo{ChainID: "c1", Status: types.StatusCreated, GroupIDs: []string{"g1"}}
	group := &types.GroupInfo{ChainID: "c1", GroupID: "g1", Status: types.StatusCreating, Nodes: map[string]*types.ChainNodeInfo{}}
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncInsertGroupInfo(chainInfo, group, cb) }))

	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncSetGroupStatus("c1", "g1", types.StatusCreated, cb) }))

	got, err := await[*types.GroupInfo](func(cb func(*types.GroupInfo, error)) { gs.AsyncGetGroupInfo("c1", "g1", cb) })
	require.NoError(t, err)
	assert.Equal(t, types.StatusCreated, got.Status)
}

func TestGroupStorageInsertAndSetNodeInfoSameTable(t *testing.T) {
	gs := newTestGroupStorage(t)
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncCreateChainTable(nil, cb) }))

	chainInfo := &types.ChainInfo{ChainID: "c1", Status: types.StatusCreated, GroupIDs: []string{"g1"}}
	group := &types.GroupInfo{ChainID: "c1", GroupID: "g1", Status: types.StatusCreating, Nodes: map[string]*types.ChainNodeInfo{}}
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncInsertGroupInfo(chainInfo, group, cb) }))

	node := &types.ChainNodeInfo{ChainID: "c1", GroupID: "g1", NodeName: "n2", Status: types.StatusCreating, NodeType: 0}
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncInsertNodeInfo("c1", "g1", node, cb) }))

	updated := node.WithStatus(types.StatusCreated)
	require.NoError(t, awaitErr(func(cb func(error)) { gs.AsyncSetNodeInfo("c1", "g1", updated, cb) }))

	got, err := await[*types.GroupInfo](func(cb func(*types.GroupInfo, error)) { gs.AsyncGetGroupInfo("c1", "g1", cb) })
	require.NoError(t, err)
	require.Contains(t, got.Nodes, "n2")
	assert.Equal(t, types.StatusCreated, got.Nodes["n2"].Status)
}
