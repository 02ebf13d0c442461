package notify

import (
	"fmt"

	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// Endpoint is a resolved downstream service instance.
type Endpoint struct {
	ObjectName string
	Host       string
	Port       int
}

// String renders the endpoint address in the wire format downstream
// services expect: "{objectName}@tcp -h {host} -p {port}".
func (e Endpoint) String() string {
	return fmt.Sprintf("%s@tcp -h %s -p %d", e.ObjectName, e.Host, e.Port)
}

// ServiceResolver resolves a registered service name (as recorded on
// ChainInfo.Services) to its live endpoints. The concrete service-discovery
// backend is an external collaborator; this is the boundary the core talks
// across.
type ServiceResolver interface {
	Resolve(serviceName string) ([]Endpoint, error)
}

// NotifyClient delivers an updated GroupInfo to one resolved endpoint.
type NotifyClient interface {
	NotifyGroupInfo(endpoint Endpoint, group *types.GroupInfo) error
}

// ChainInfoProvider is the narrow slice of InfoStore that Fanout needs: the
// registered service list for a chain. Kept as a local interface so this
// package doesn't import infostore.
type ChainInfoProvider interface {
	GetChainInfo(chainID string) (*types.ChainInfo, error)
}

// StaticResolver resolves service names from a fixed, in-memory table. Used
// where service discovery is configured rather than dynamic.
type StaticResolver struct {
	endpoints map[string][]Endpoint
}

// NewStaticResolver builds a resolver over a fixed serviceName -> endpoints
// table.
func NewStaticResolver(endpoints map[string][]Endpoint) *StaticResolver {
	return &StaticResolver{endpoints: endpoints}
}

func (r *StaticResolver) Resolve(serviceName string) ([]Endpoint, error) {
	endpoints, ok := r.endpoints[serviceName]
	if !ok {
		return nil, fmt.Errorf("notify: no endpoints registered for service %q", serviceName)
	}
	return endpoints, nil
}

// LoggingNotifyClient logs every delivery instead of making a network call.
// A production deployment supplies its own NotifyClient talking the
// downstream RPC/Gateway wire protocol; that protocol is an external
// collaborator out of this module's scope.
type LoggingNotifyClient struct{}

func (LoggingNotifyClient) NotifyGroupInfo(endpoint Endpoint, group *types.GroupInfo) error {
	log.WithGroup(group.ChainID, group.GroupID).Info().
		Str("endpoint", endpoint.String()).
		Str("status", group.Status.String()).
		Msg("notifyGroupInfo delivered")
	return nil
}

// Fanout implements infostore.ChangeNotifier: on every cache mutation it
// resolves the chain's registered services and delivers the updated
// GroupInfo to each endpoint, one goroutine per endpoint, never blocking
// and never failing the triggering operation.
type Fanout struct {
	chains   ChainInfoProvider
	resolver ServiceResolver
	client   NotifyClient
}

// NewFanout builds a Fanout. client is typically LoggingNotifyClient unless
// the deployment supplies a real downstream transport.
func NewFanout(chains ChainInfoProvider, resolver ServiceResolver, client NotifyClient) *Fanout {
	return &Fanout{chains: chains, resolver: resolver, client: client}
}

// NotifyGroupChange fans group out to every endpoint of every service
// registered for group.ChainID. No ordering is guaranteed between
// endpoints.
func (f *Fanout) NotifyGroupChange(group *types.GroupInfo) {
	logger := log.WithGroup(group.ChainID, group.GroupID)

	chain, err := f.chains.GetChainInfo(group.ChainID)
	if err != nil {
		logger.Warn().Err(err).Msg("notify: chain not found, skipping fan-out")
		return
	}

	for _, serviceName := range chain.Services {
		endpoints, err := f.resolver.Resolve(serviceName)
		if err != nil {
			logger.Warn().Err(err).Str("service", serviceName).Msg("notify: resolve failed")
			metrics.NotificationsTotal.WithLabelValues(serviceName, "resolve_failed").Inc()
			continue
		}
		for _, endpoint := range endpoints {
			go f.deliver(serviceName, endpoint, group)
		}
	}
}

func (f *Fanout) deliver(serviceName string, endpoint Endpoint, group *types.GroupInfo) {
	if err := f.client.NotifyGroupInfo(endpoint, group); err != nil {
		log.WithGroup(group.ChainID, group.GroupID).Warn().
			Err(err).Str("service", serviceName).Str("endpoint", endpoint.String()).
			Msg("notify: delivery failed")
		metrics.NotificationsTotal.WithLabelValues(serviceName, "failed").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues(serviceName, "ok").Inc()
}
