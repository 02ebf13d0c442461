package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusCreating, "Creating"},
		{StatusCreated, "Created"},
		{StatusStarting, "Starting"},
		{StatusStarted, "Started"},
		{StatusStopping, "Stopping"},
		{StatusStopped, "Stopped"},
		{StatusDeleting, "Deleting"},
		{StatusDeleted, "Deleted"},
		{StatusRecovering, "Recovering"},
		{Status(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestStatusIsRecordedIntent(t *testing.T) {
	intent := []Status{StatusCreating, StatusStarting, StatusStopping, StatusDeleting, StatusRecovering}
	for _, s := range intent {
		assert.True(t, s.IsRecordedIntent(), s.String())
	}

	terminal := []Status{StatusCreated, StatusStarted, StatusStopped, StatusDeleted}
	for _, s := range terminal {
		assert.False(t, s.IsRecordedIntent(), s.String())
	}
}

func TestChainInfoWithGroup(t *testing.T) {
	c := &ChainInfo{ChainID: "c1", GroupIDs: []string{"g1"}}

	withG2 := c.WithGroup("g2")
	assert.True(t, withG2.HasGroup("g1"))
	assert.True(t, withG2.HasGroup("g2"))
	assert.False(t, c.HasGroup("g2"), "original must be unmodified")

	same := withG2.WithGroup("g1")
	assert.Equal(t, []string{"g1", "g2"}, same.GroupIDs)

	without := withG2.WithoutGroup("g1")
	assert.Equal(t, []string{"g2"}, without.GroupIDs)
}

func TestGroupInfoWithNode(t *testing.T) {
	g := &GroupInfo{ChainID: "c1", GroupID: "g1", Nodes: map[string]*ChainNodeInfo{}}
	node := &ChainNodeInfo{ChainID: "c1", GroupID: "g1", NodeName: "n1", Status: StatusCreating}

	withNode := g.WithNode(node)
	assert.Len(t, withNode.Nodes, 1)
	assert.Equal(t, StatusCreating, withNode.Nodes["n1"].Status)
	assert.Len(t, g.Nodes, 0, "original must be unmodified")

	started := withNode.WithNode(node.WithStatus(StatusCreated))
	assert.Equal(t, StatusCreated, started.Nodes["n1"].Status)
	assert.Equal(t, StatusCreating, withNode.Nodes["n1"].Status, "earlier copy unaffected")

	removed := started.WithoutNode("n1")
	assert.Len(t, removed.Nodes, 0)
}

func TestApplicationName(t *testing.T) {
	node := &ChainNodeInfo{ChainID: "c1", GroupID: "g1", NodeName: "n1"}
	assert.Equal(t, "c1g1n1", node.ApplicationName())
	assert.Equal(t, "c1g1n1", ApplicationName("c1", "g1", "n1"))
}
