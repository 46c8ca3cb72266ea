// Package serverrun boots a broker: it loads configuration, opens the
// runtime, and serves the gRPC and HTTP endpoints until the context is
// cancelled.
package serverrun
