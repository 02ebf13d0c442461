package main

import (
	"github.com/chainfleet/groupmgr/pkg/config"
	"github.com/chainfleet/groupmgr/pkg/infostore"
	"github.com/chainfleet/groupmgr/pkg/notify"
	"github.com/chainfleet/groupmgr/pkg/types"
)

// registerConfiguredServices seeds each configured chain's ChainInfo.Services
// with the RPC/Gateway service names config.Load parsed, so the notifier's
// fan-out (pkg/notify.Fanout) has something to resolve on every mutation.
// A later CreateGroup on one of these chains finds the seeded entry and
// keeps its Services, since WithGroup only appends the new groupID to the
// existing ChainInfo. A chain that CreateGroup creates from scratch starts
// with no services.
func registerConfiguredServices(cache *infostore.InfoStore, opts *config.Options) {
	for chainID, names := range opts.ServiceNamesByChain() {
		if len(names) == 0 {
			continue
		}
		chain, err := cache.GetChainInfo(chainID)
		if err != nil {
			chain = &types.ChainInfo{ChainID: chainID, Status: types.StatusCreated}
		}
		chain.Services = mergeServiceNames(chain.Services, names)
		cache.PutChain(chain)
	}
}

func mergeServiceNames(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		seen[name] = struct{}{}
	}
	merged := append([]string(nil), existing...)
	for _, name := range additions {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	return merged
}

// staticEndpoints renders config.Options.Notify.Endpoints into the
// map[string][]notify.Endpoint shape notify.NewStaticResolver expects.
func staticEndpoints(opts *config.Options) map[string][]notify.Endpoint {
	configured := opts.Endpoints()
	endpoints := make(map[string][]notify.Endpoint, len(configured))
	for serviceName, entries := range configured {
		for _, entry := range entries {
			endpoints[serviceName] = append(endpoints[serviceName], notify.Endpoint{
				ObjectName: serviceName,
				Host:       entry.Host,
				Port:       entry.Port,
			})
		}
	}
	return endpoints
}
