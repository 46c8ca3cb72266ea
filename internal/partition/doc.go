// Package partition runs one stream partition end to end: the leader append
// path, replication fanout to followers, the in-sync replica set, the
// high-water mark, publish acknowledgements, and subscriber readers.
//
// A Partition learns its role from the cluster Coordinator. The leader pushes
// appended records to each follower over the transport bus and advances the
// high-water mark to the lowest watermark across the in-sync set; followers
// apply records in strict offset order and report their watermarks back.
// Leadership changes arrive as epoch-stamped assignments, and both sides drop
// their uncommitted tail before taking up the new epoch, so committed records
// are never lost and never reordered.
package partition
