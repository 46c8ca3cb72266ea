// Package runtime wires one broker process together: storage, the
// coordinator, the replication bus, the stream directory, the partition
// engines this broker hosts, and the retention sweeper. Servers (gRPC, HTTP)
// sit on top of a Runtime and never touch the collaborators directly.
package runtime
