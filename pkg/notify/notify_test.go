package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointString(t *testing.T) {
	e := Endpoint{ObjectName: "rpc_c1", Host: "10.0.0.1", Port: 20200}
	assert.Equal(t, "rpc_c1@tcp -h 10.0.0.1 -p 20200", e.String())
}

func TestStaticResolverUnknownService(t *testing.T) {
	r := NewStaticResolver(nil)
	_, err := r.Resolve("rpc_c1")
	require.Error(t, err)
}

type fakeChainProvider struct {
	chain *types.ChainInfo
	err   error
}

func (f *fakeChainProvider) GetChainInfo(chainID string) (*types.ChainInfo, error) {
	return f.chain, f.err
}

type recordingClient struct {
	mu        sync.Mutex
	delivered []Endpoint
}

func (c *recordingClient) NotifyGroupInfo(endpoint Endpoint, group *types.GroupInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, endpoint)
	return nil
}

func (c *recordingClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

func TestFanoutDeliversToAllEndpoints(t *testing.T) {
	chain := &types.ChainInfo{ChainID: "c1", Services: []string{"rpc_c1", "gateway_c1"}}
	resolver := NewStaticResolver(map[string][]Endpoint{
		"rpc_c1":     {{ObjectName: "rpc_c1", Host: "10.0.0.1", Port: 1}},
		"gateway_c1": {{ObjectName: "gateway_c1", Host: "10.0.0.2", Port: 2}, {ObjectName: "gateway_c1", Host: "10.0.0.3", Port: 2}},
	})
	client := &recordingClient{}
	fanout := NewFanout(&fakeChainProvider{chain: chain}, resolver, client)

	fanout.NotifyGroupChange(&types.GroupInfo{ChainID: "c1", GroupID: "g1", Status: types.StatusCreated})

	require.Eventually(t, func() bool { return client.count() == 3 }, time.Second, time.Millisecond)
}

func TestFanoutSkipsUnknownChain(t *testing.T) {
	client := &recordingClient{}
	fanout := NewFanout(&fakeChainProvider{err: assertErr{}}, NewStaticResolver(nil), client)

	fanout.NotifyGroupChange(&types.GroupInfo{ChainID: "missing", GroupID: "g1"})

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, client.count())
}

type assertErr struct{}

func (assertErr) Error() string { return "chain not found" }
