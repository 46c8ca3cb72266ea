// Package client holds the CLI commands that talk to a running broker over
// its gRPC API: stream create, publish, subscribe, and metadata.
package client
