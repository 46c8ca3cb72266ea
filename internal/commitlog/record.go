package commitlog

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/s2"
)

// AckPolicy mirrors the wire-level ack policy; it rides along with each
// record so the ack can be emitted after replication, but it is publish
// metadata, not durable ack state.
type AckPolicy uint8

const (
	AckLeader AckPolicy = iota
	AckAll
	AckNone
)

// Record is one log entry. Offset is assigned by the partition leader;
// Timestamp is the leader's receipt time in milliseconds.
type Record struct {
	Offset        int64
	Timestamp     int64
	Key           []byte
	Value         []byte
	Headers       map[string][]byte
	Subject       string
	Reply         string
	AckInbox      string
	CorrelationID string
	AckPolicy     AckPolicy
}

// Stored framing:
//
//	flags(1) | ts_be8 | policy(1) |
//	uv(len key) key | uv(len subject) subject | uv(len reply) reply |
//	uv(len ackInbox) ackInbox | uv(len correlationId) correlationId |
//	uv(nHeaders) { uv(len k) k uv(len v) v }* |
//	uv(len value) value | crc32c(everything preceding)
//
// flags bit0: value is s2-compressed.

const flagValueS2 = 0x01

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func appendUvarint(dst []byte, v uint64) []byte {
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}

func appendBytesField(dst, b []byte) []byte {
	dst = appendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func appendStringField(dst []byte, s string) []byte {
	dst = appendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// encodeRecord frames a record. Values of at least compressMin bytes are
// s2-compressed; compressMin <= 0 disables compression.
func encodeRecord(r Record, compressMin int) []byte {
	value := r.Value
	var flags byte
	if compressMin > 0 && len(value) >= compressMin {
		if c := s2.Encode(nil, value); len(c) < len(value) {
			value = c
			flags |= flagValueS2
		}
	}

	out := make([]byte, 0, 32+len(r.Key)+len(value))
	out = append(out, flags)
	out = appendBE8(out, uint64(r.Timestamp))
	out = append(out, byte(r.AckPolicy))
	out = appendBytesField(out, r.Key)
	out = appendStringField(out, r.Subject)
	out = appendStringField(out, r.Reply)
	out = appendStringField(out, r.AckInbox)
	out = appendStringField(out, r.CorrelationID)
	out = appendUvarint(out, uint64(len(r.Headers)))
	for k, v := range r.Headers {
		out = appendStringField(out, k)
		out = appendBytesField(out, v)
	}
	out = appendBytesField(out, value)

	crc := crc32.Update(0, castagnoli, out)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

type recReader struct {
	b   []byte
	pos int
	bad bool
}

func (r *recReader) uvarint() uint64 {
	v, n := binary.Uvarint(r.b[r.pos:])
	if n <= 0 {
		r.bad = true
		return 0
	}
	r.pos += n
	return v
}

func (r *recReader) bytes() []byte {
	n := int(r.uvarint())
	if r.bad || r.pos+n > len(r.b) {
		r.bad = true
		return nil
	}
	out := append([]byte(nil), r.b[r.pos:r.pos+n]...)
	r.pos += n
	return out
}

// decodeRecord parses a framed record; offset comes from the key, not the
// value. Returns false on any corruption (length or crc mismatch).
func decodeRecord(b []byte) (Record, bool) {
	if len(b) < 1+8+1+4 {
		return Record{}, false
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return Record{}, false
	}

	flags := body[0]
	r := recReader{b: body, pos: 1}
	ts := binary.BigEndian.Uint64(body[1:9])
	r.pos += 8
	policy := AckPolicy(body[r.pos])
	r.pos++

	var rec Record
	rec.Timestamp = int64(ts)
	rec.AckPolicy = policy
	rec.Key = r.bytes()
	rec.Subject = string(r.bytes())
	rec.Reply = string(r.bytes())
	rec.AckInbox = string(r.bytes())
	rec.CorrelationID = string(r.bytes())
	nh := r.uvarint()
	if r.bad || nh > uint64(len(body)) {
		return Record{}, false
	}
	if nh > 0 {
		rec.Headers = make(map[string][]byte, nh)
		for i := uint64(0); i < nh; i++ {
			k := string(r.bytes())
			v := r.bytes()
			if r.bad {
				return Record{}, false
			}
			rec.Headers[k] = v
		}
	}
	rec.Value = r.bytes()
	if r.bad {
		return Record{}, false
	}
	if flags&flagValueS2 != 0 {
		dec, err := s2.Decode(nil, rec.Value)
		if err != nil {
			return Record{}, false
		}
		rec.Value = dec
	}
	return rec, true
}
