// Package config holds the typed representation of the options the group
// manager recognizes at startup, and a YAML loader for them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options is the recognized set of startup configuration values.
type Options struct {
	// Security holds the identity sent with every fleet task.
	Security struct {
		UserName string `yaml:"userName"`
	} `yaml:"security"`

	// Service maps chainID -> serviceName for each downstream kind.
	Service struct {
		RPC     map[string]string `yaml:"RPC"`
		Gateway map[string]string `yaml:"Gateway"`
	} `yaml:"service"`

	Storage struct {
		StoragePath string `yaml:"storage_path"`
	} `yaml:"storage"`

	Fleet struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"fleet"`

	// Notify holds the static serviceName -> endpoints table used when no
	// real service-discovery system is wired (see notify.StaticResolver).
	Notify struct {
		Endpoints map[string][]EndpointConfig `yaml:"endpoints"`
	} `yaml:"notify"`
}

// EndpointConfig is one statically configured downstream endpoint for a
// registered RPC/Gateway service name.
type EndpointConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UserName returns the configured fleet identity string.
func (o *Options) UserName() string {
	return o.Security.UserName
}

// RPCServiceName returns the RPC service name registered for chainID, if any.
func (o *Options) RPCServiceName(chainID string) (string, bool) {
	name, ok := o.Service.RPC[chainID]
	return name, ok
}

// GatewayServiceName returns the Gateway service name registered for chainID, if any.
func (o *Options) GatewayServiceName(chainID string) (string, bool) {
	name, ok := o.Service.Gateway[chainID]
	return name, ok
}

// ServiceNamesByChain returns every chainID that has at least one RPC or
// Gateway service registered, mapped to the list of service names
// registered for it. Used at startup to seed each chain's ChainInfo.Services
// so the notifier's fan-out has something to resolve.
func (o *Options) ServiceNamesByChain() map[string][]string {
	chainIDs := make(map[string]struct{})
	for chainID := range o.Service.RPC {
		chainIDs[chainID] = struct{}{}
	}
	for chainID := range o.Service.Gateway {
		chainIDs[chainID] = struct{}{}
	}

	result := make(map[string][]string, len(chainIDs))
	for chainID := range chainIDs {
		var names []string
		if name, ok := o.RPCServiceName(chainID); ok {
			names = append(names, name)
		}
		if name, ok := o.GatewayServiceName(chainID); ok {
			names = append(names, name)
		}
		result[chainID] = names
	}
	return result
}

// Endpoints returns the static serviceName -> endpoints table configured
// under notify.endpoints, as-is; cmd/groupmgrd converts it to notify.Endpoint
// values.
func (o *Options) Endpoints() map[string][]EndpointConfig {
	return o.Notify.Endpoints
}

// StoragePath returns the opaque path passed through to the storage backend.
func (o *Options) StoragePath() string {
	if o.Storage.StoragePath == "" {
		return "data/"
	}
	return o.Storage.StoragePath
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if opts.Service.RPC == nil {
		opts.Service.RPC = map[string]string{}
	}
	if opts.Service.Gateway == nil {
		opts.Service.Gateway = map[string]string{}
	}
	return &opts, nil
}
