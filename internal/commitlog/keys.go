package commitlog

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - p/{stream}/{part_be4}/m            (meta: next offset)
// - p/{stream}/{part_be4}/h            (high-water mark)
// - p/{stream}/{part_be4}/e/{off_be8}  (records)

var (
	sep        = byte('/')
	partPrefix = []byte("p/")
	metaSuffix = []byte("/m")
	hwmSuffix  = []byte("/h")
	entrySeg   = []byte("/e/")
)

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func keyPartition(stream string, partition uint32) []byte {
	k := make([]byte, 0, len(stream)+16)
	k = append(k, partPrefix...)
	k = append(k, stream...)
	k = append(k, sep)
	k = appendBE4(k, partition)
	return k
}

// keyMeta builds the partition metadata key.
func keyMeta(stream string, partition uint32) []byte {
	return append(keyPartition(stream, partition), metaSuffix...)
}

// keyHWM builds the high-water-mark key.
func keyHWM(stream string, partition uint32) []byte {
	return append(keyPartition(stream, partition), hwmSuffix...)
}

// keyEntry builds the record key with a big-endian offset for ordering.
func keyEntry(stream string, partition uint32, offset uint64) []byte {
	k := append(keyPartition(stream, partition), entrySeg...)
	return appendBE8(k, offset)
}

// offsetFromEntryKey extracts the trailing big-endian offset.
func offsetFromEntryKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
