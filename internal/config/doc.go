// Package config provides loading and environment overlay for Strand broker
// configuration. It exposes a Default() baseline, file loading (JSON or
// YAML by extension), and a STRAND_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/strand.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
