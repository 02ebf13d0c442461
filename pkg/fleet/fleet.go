package fleet

import (
	"fmt"

	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// Command is a fleet-facility deployment verb.
type Command string

const (
	CommandPatch     Command = "PATCH"
	CommandUninstall Command = "UNINSTALL"
	CommandStart     Command = "START"
	CommandStop      Command = "STOP"
)

// LogicalCommand is the Manager-facing verb; Dispatch maps it to a Command.
type LogicalCommand int

const (
	Create LogicalCommand = iota
	Remove
	Start
	Stop
)

func (c LogicalCommand) fleetCommand() Command {
	switch c {
	case Create:
		return CommandPatch
	case Remove:
		return CommandUninstall
	case Start:
		return CommandStart
	case Stop:
		return CommandStop
	default:
		return CommandPatch
	}
}

func (c LogicalCommand) String() string {
	switch c {
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// TaskItem is one unit of deployment work: install/start/stop/uninstall one
// service of one node on one host.
type TaskItem struct {
	Application string
	ServerName  string
	NodeName    string // the deployIP this service instance runs on
	Command     Command
	Parameters  map[string]string
	UserName    string
}

// TaskRequest is the unit submitted to the fleet facility in one call.
type TaskRequest struct {
	UserName string
	Serial   bool
	Items    []TaskItem
}

// Client is the fleet facility boundary.
type Client interface {
	AddTaskReq(req TaskRequest) (int, error)
}

// Controller dispatches logical commands against a set of nodes.
type Controller struct {
	client   Client
	userName string
}

// NewController builds a Controller that authenticates fleet requests as
// userName (sourced from the security.userName configuration option).
func NewController(client Client, userName string) *Controller {
	return &Controller{client: client, userName: userName}
}

// Dispatch issues command for every node in nodes, one TaskItem per
// (node, deployInfo entry) pair, as a single serial TaskRequest.
func (c *Controller) Dispatch(command LogicalCommand, nodes map[string]*types.ChainNodeInfo) error {
	req := TaskRequest{
		UserName: c.userName,
		Serial:   true,
	}
	for _, node := range nodes {
		application := node.ApplicationName()
		for serviceName, deployIP := range node.DeployInfo {
			req.Items = append(req.Items, TaskItem{
				Application: application,
				ServerName:  serviceName,
				NodeName:    deployIP,
				Command:     command.fleetCommand(),
				UserName:    c.userName,
			})
		}
	}

	code, err := c.client.AddTaskReq(req)
	if err != nil {
		metrics.FleetTasksTotal.WithLabelValues(command.String(), "transport_failed").Inc()
		return fmt.Errorf("fleet add task request: %w", err)
	}
	if err := interpretResultCode(code); err != nil {
		metrics.FleetTasksTotal.WithLabelValues(command.String(), "rejected").Inc()
		return err
	}
	metrics.FleetTasksTotal.WithLabelValues(command.String(), "ok").Inc()
	return nil
}

// interpretResultCode converts the fleet facility's integer result code
// into an error, or nil for success. 0 is success; any other code is
// surfaced as an opaque fleet error carrying the code for diagnostics.
func interpretResultCode(code int) error {
	if code == 0 {
		return nil
	}
	return fmt.Errorf("fleet facility rejected task request, result code %d", code)
}
