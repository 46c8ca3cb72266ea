package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays STRAND_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("STRAND_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STRAND_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("STRAND_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STRAND_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("STRAND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STRAND_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("STRAND_BROKER_ID"); v != "" {
		cfg.Broker.ID = v
	}
	if v := os.Getenv("STRAND_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("STRAND_BROKER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = int32(n)
		}
	}
	if v := os.Getenv("STRAND_CLUSTER_MODE"); v != "" {
		cfg.Cluster.Mode = v
	}
	if v := os.Getenv("STRAND_ETCD_ENDPOINTS"); v != "" {
		cfg.Cluster.EtcdEndpoints = splitList(v)
	}
	if v := os.Getenv("STRAND_REPLICA_LAG_MAX"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Replication.ReplicaLagMax = n
		}
	}
	if v := os.Getenv("STRAND_REPLICA_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Replication.ReplicaTimeoutMs = n
		}
	}
	if v := os.Getenv("STRAND_RETENTION_MAX_AGE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Retention.MaxAgeMs = n
		}
	}
	if v := os.Getenv("STRAND_RETENTION_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Retention.MaxBytes = n
		}
	}
	if v := os.Getenv("STRAND_COMPRESS_MIN_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CompressMinBytes = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
