package reconciler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chainfleet/groupmgr/pkg/fleet"
	"github.com/chainfleet/groupmgr/pkg/infostore"
	"github.com/chainfleet/groupmgr/pkg/manager"
	"github.com/chainfleet/groupmgr/pkg/storage"
	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFleetClient struct {
	calls int
}

func (f *fakeFleetClient) AddTaskReq(req fleet.TaskRequest) (int, error) {
	f.calls++
	return 0, nil
}

func TestReconcilerRedrivesRecordedIntentGroup(t *testing.T) {
	db, err := storage.NewBoltTabularStore(filepath.Join(t.TempDir(), "groupmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewGroupStorage(db)
	cache := infostore.New()
	require.NoError(t, cache.Init(store))

	client := &fakeFleetClient{}
	mgr := manager.New(cache, store, fleet.NewController(client, "alice"))

	chain := &types.ChainInfo{ChainID: "c1", Status: types.StatusCreated, GroupIDs: []string{"g1"}}
	group := &types.GroupInfo{
		ChainID: "c1", GroupID: "g1", Status: types.StatusCreating,
		Nodes: map[string]*types.ChainNodeInfo{"n1": {ChainID: "c1", GroupID: "g1", NodeName: "n1", Status: types.StatusCreating}},
	}
	createErrCh := make(chan error, 1)
	store.AsyncCreateChainTable(chain, func(err error) { createErrCh <- err })
	require.NoError(t, <-createErrCh)
	insertErrCh := make(chan error, 1)
	store.AsyncInsertGroupInfo(chain, group, func(err error) { insertErrCh <- err })
	require.NoError(t, <-insertErrCh)
	cache.UpdateGroupCache(group, true)

	r := New(mgr, 20*time.Millisecond)
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		got, err := cache.GetGroupInfo("c1", "g1")
		return err == nil && got.Status == types.StatusCreated
	}, time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, client.calls, 1)
}

func TestReconcilerStartStopIdempotent(t *testing.T) {
	cache := infostore.New()
	mgr := manager.New(cache, nil, nil)
	r := New(mgr, time.Hour)
	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
