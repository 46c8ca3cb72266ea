package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level broker configuration loaded from file/env.
type Config struct {
	DataDir  string `json:"dataDir" yaml:"dataDir"`
	GRPCAddr string `json:"grpcAddr" yaml:"grpcAddr"`
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// Fsync is "always", "interval", or "never".
	Fsync string `json:"fsync" yaml:"fsync"`
	// LogLevel / LogFormat configure pkg/log ("debug".."error"; "text"/"json").
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`

	Broker      Broker      `json:"broker" yaml:"broker"`
	Cluster     Cluster     `json:"cluster" yaml:"cluster"`
	Replication Replication `json:"replication" yaml:"replication"`
	Retention   Retention   `json:"retention" yaml:"retention"`
	// CompressMinBytes enables s2 compression of record values at or above
	// this size. Zero disables compression.
	CompressMinBytes int `json:"compressMinBytes" yaml:"compressMinBytes"`
}

// Broker identifies this broker to the cluster.
type Broker struct {
	ID   string `json:"id" yaml:"id"`
	Host string `json:"host" yaml:"host"`
	Port int32  `json:"port" yaml:"port"`
}

// Cluster selects the coordination backend.
type Cluster struct {
	// Mode is "static" (fixed peer list) or "etcd".
	Mode string `json:"mode" yaml:"mode"`
	// Peers is the full broker list for static mode; it must include this
	// broker.
	Peers []Broker `json:"peers" yaml:"peers"`
	// EtcdEndpoints are the etcd client endpoints for etcd mode.
	EtcdEndpoints []string `json:"etcdEndpoints" yaml:"etcdEndpoints"`
	// EtcdSessionTTL is the broker liveness lease in seconds.
	EtcdSessionTTL int `json:"etcdSessionTtl" yaml:"etcdSessionTtl"`
}

// Replication tunes the leader's view of follower health.
type Replication struct {
	// ReplicaLagMax is the offset lag at which a follower leaves the ISR.
	ReplicaLagMax int64 `json:"replicaLagMax" yaml:"replicaLagMax"`
	// ReplicaTimeoutMs is the silence window before a follower is OFFLINE.
	ReplicaTimeoutMs int64 `json:"replicaTimeoutMs" yaml:"replicaTimeoutMs"`
	// TickMs is the ISR re-evaluation interval.
	TickMs int64 `json:"tickMs" yaml:"tickMs"`
}

// Retention sets stream defaults; per-stream config overrides these.
type Retention struct {
	MaxAgeMs      int64 `json:"maxAgeMs" yaml:"maxAgeMs"`
	MaxBytes      int64 `json:"maxBytes" yaml:"maxBytes"`
	IntervalMs    int64 `json:"intervalMs" yaml:"intervalMs"`
	TrimBatchSize int   `json:"trimBatchSize" yaml:"trimBatchSize"`
}

// Default returns built-in defaults for a single-broker deployment.
func Default() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		GRPCAddr: ":9190",
		HTTPAddr: ":9191",
		Fsync:    "always",
		LogLevel: "info",
		Broker:   Broker{ID: "strand-0", Host: "127.0.0.1", Port: 9190},
		Cluster:  Cluster{Mode: "static"},
		Replication: Replication{
			ReplicaLagMax:    1024,
			ReplicaTimeoutMs: 5000,
			TickMs:           1000,
		},
		Retention: Retention{
			IntervalMs: 30_000,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot start with.
func (c Config) Validate() error {
	if c.Broker.ID == "" {
		return fmt.Errorf("config: broker.id is required")
	}
	switch c.Cluster.Mode {
	case "static":
		// a missing peer list means single-broker: the broker peers itself
	case "etcd":
		if len(c.Cluster.EtcdEndpoints) == 0 {
			return fmt.Errorf("config: cluster.etcdEndpoints required in etcd mode")
		}
	default:
		return fmt.Errorf("config: unknown cluster.mode %q", c.Cluster.Mode)
	}
	switch c.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
	return nil
}
