package fleet

import (
	"errors"
	"testing"

	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastReq    TaskRequest
	resultCode int
	err        error
}

func (f *fakeClient) AddTaskReq(req TaskRequest) (int, error) {
	f.lastReq = req
	return f.resultCode, f.err
}

func oneNode() map[string]*types.ChainNodeInfo {
	return map[string]*types.ChainNodeInfo{
		"n1": {
			ChainID: "c1", GroupID: "g1", NodeName: "n1",
			DeployInfo: map[string]string{"rpc": "10.0.0.1"},
		},
	}
}

func TestDispatchCreateMapsToPatch(t *testing.T) {
	client := &fakeClient{resultCode: 0}
	c := NewController(client, "alice")

	err := c.Dispatch(Create, oneNode())
	require.NoError(t, err)

	require.Len(t, client.lastReq.Items, 1)
	item := client.lastReq.Items[0]
	assert.Equal(t, "c1g1n1", item.Application)
	assert.Equal(t, CommandPatch, item.Command)
	assert.Equal(t, "rpc", item.ServerName)
	assert.Equal(t, "10.0.0.1", item.NodeName)
	assert.True(t, client.lastReq.Serial)
	assert.Equal(t, "alice", client.lastReq.UserName)
}

func TestDispatchCommandMapping(t *testing.T) {
	cases := map[LogicalCommand]Command{
		Create: CommandPatch,
		Remove: CommandUninstall,
		Start:  CommandStart,
		Stop:   CommandStop,
	}
	for logical, want := range cases {
		client := &fakeClient{resultCode: 0}
		c := NewController(client, "alice")
		require.NoError(t, c.Dispatch(logical, oneNode()))
		require.Len(t, client.lastReq.Items, 1)
		assert.Equal(t, want, client.lastReq.Items[0].Command)
	}
}

func TestDispatchTransportError(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	c := NewController(client, "alice")
	err := c.Dispatch(Start, oneNode())
	require.Error(t, err)
}

func TestDispatchNonZeroResultCode(t *testing.T) {
	client := &fakeClient{resultCode: 17}
	c := NewController(client, "alice")
	err := c.Dispatch(Stop, oneNode())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "17")
}
