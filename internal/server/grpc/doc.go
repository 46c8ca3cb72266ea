// Package grpcserver exposes the Strand client API over gRPC: stream
// creation, publish, server-streamed subscribe, and metadata fetch. It is a
// thin mapping layer; all semantics live in the runtime and its partition
// engines.
package grpcserver
