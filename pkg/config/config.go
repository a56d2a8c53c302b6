package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds process-wide configuration, populated from DATACONNECT_*
// environment variables.
type Settings struct {
	DataPath string `envconfig:"DATA_PATH" default:""`

	// KubeconfigPath, when set, gates credential-only cloud sources on the
	// workload cluster being reachable.
	KubeconfigPath string `envconfig:"KUBECONFIG_PATH" default:""`

	// Tunnel establishment
	DialTimeout       time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	PortScanAttempts  int           `envconfig:"PORT_SCAN_ATTEMPTS" default:"100"`
	PreflightAttempts int           `envconfig:"PREFLIGHT_ATTEMPTS" default:"1"`
	PreflightBackoff  time.Duration `envconfig:"PREFLIGHT_BACKOFF" default:"2s"`
	BastionSSHPort    int           `envconfig:"BASTION_SSH_PORT" default:"22"`

	// Health monitoring
	MonitorInterval time.Duration `envconfig:"MONITOR_INTERVAL" default:"60s"`
	LivenessTimeout time.Duration `envconfig:"LIVENESS_TIMEOUT" default:"5s"`
	LivenessStrikes int           `envconfig:"LIVENESS_STRIKES" default:"2"`
}

// Load populates a Settings from the environment. The data path defaults to
// ~/.dataconnect when unset.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("DATACONNECT", &s); err != nil {
		return Settings{}, err
	}
	if s.DataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, err
		}
		s.DataPath = filepath.Join(home, ".dataconnect")
	}
	return s, nil
}

// TunnelsDir is where tunnel descriptors are persisted.
func (s Settings) TunnelsDir() string { return filepath.Join(s.DataPath, "tunnels") }

// ProfilesDir is where connection profiles are persisted.
func (s Settings) ProfilesDir() string { return filepath.Join(s.DataPath, "profiles") }

// HistoryPath is the sqlite file recording tunnel session history.
func (s Settings) HistoryPath() string { return filepath.Join(s.DataPath, "history.db") }

// StackOutputsPath is the infrastructure stack-outputs file consulted for
// deployed database endpoints.
func (s Settings) StackOutputsPath() string {
	return filepath.Join(s.DataPath, "infra", "stack-outputs.json")
}
