// Package httpserver is the admin and observability surface: health,
// cluster metadata, stream management, a filtered SSE tail for debugging,
// and the Prometheus scrape endpoint. Clients consuming streams at volume
// should use the gRPC API instead.
package httpserver
