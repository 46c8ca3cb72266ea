package commitlog

import "encoding/binary"

// MarshalRecord frames a record, offset included, for transport between
// brokers. The payload reuses the storage framing (crc32c-checked) prefixed
// with the big-endian offset; values are never compressed on the wire, the
// receiving log applies its own compression policy on write.
func MarshalRecord(r Record) []byte {
	out := appendBE8(make([]byte, 0, 40+len(r.Key)+len(r.Value)), uint64(r.Offset))
	return append(out, encodeRecord(r, 0)...)
}

// UnmarshalRecord parses a MarshalRecord payload. Returns false on any
// corruption.
func UnmarshalRecord(b []byte) (Record, bool) {
	if len(b) < 8 {
		return Record{}, false
	}
	rec, ok := decodeRecord(b[8:])
	if !ok {
		return Record{}, false
	}
	rec.Offset = int64(binary.BigEndian.Uint64(b[:8]))
	return rec, true
}
