package infra

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Endpoint is a deployed database endpoint as reported by the provisioning
// stack. The connectivity layer treats this as a read-only oracle: it never
// provisions anything itself.
type Endpoint struct {
	Host     string `json:"endpoint"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Type     string `json:"type"`
	Cloud    string `json:"cloud"`
}

// EndpointOracle answers "what is the deployed endpoint for this source".
type EndpointOracle interface {
	DeployedEndpoint(cloud, dbType string) (Endpoint, bool)
}

// ClusterManager answers whether the local workload cluster is reachable.
// Used only to gate profile generation for cluster-scoped sources.
type ClusterManager interface {
	Reachable() bool
}

// StackOutputs reads deployed endpoints from a provisioning-stack outputs
// file. The file is re-read on every lookup so a redeploy is picked up
// without restarting.
type StackOutputs struct {
	Path string
}

// DeployedEndpoint looks up the endpoint keyed "<cloud>_<type>" in the
// outputs file. A missing or unparsable file means no endpoint.
func (s *StackOutputs) DeployedEndpoint(cloud, dbType string) (Endpoint, bool) {
	outputs, err := s.load()
	if err != nil {
		return Endpoint{}, false
	}
	ep, ok := outputs[fmt.Sprintf("%s_%s", cloud, dbType)]
	if !ok || ep.Host == "" {
		return Endpoint{}, false
	}
	return ep, true
}

func (s *StackOutputs) load() (map[string]Endpoint, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var outputs map[string]Endpoint
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, errors.Wrapf(err, "parse stack outputs %s", s.Path)
	}
	return outputs, nil
}

// KubeconfigCluster reports the cluster reachable when its kubeconfig exists.
type KubeconfigCluster struct {
	KubeconfigPath string
}

func (k *KubeconfigCluster) Reachable() bool {
	if k.KubeconfigPath == "" {
		return false
	}
	_, err := os.Stat(k.KubeconfigPath)
	return err == nil
}
