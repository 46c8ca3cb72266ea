package partition

import (
	"encoding/binary"

	"github.com/rzbill/strand/internal/commitlog"
)

// Replication frame, leader -> follower:
//
//	ver(1)=1 | epoch_be8 | uv(len leader) leader | uv(hwm+1) |
//	uv(count) { uv(len rec) rec }*
//
// Records use the commitlog wire framing (offset + crc32c-checked body). A
// frame with zero records propagates a high-water-mark advance. Watermark
// reports and catch-up requests are small JSON control messages.

const frameVersion = 1

type replFrame struct {
	Epoch   uint64
	Leader  string
	HWM     int64
	Records []commitlog.Record
}

type watermarkReport struct {
	Replica   string `json:"replica"`
	Epoch     uint64 `json:"epoch"`
	Watermark int64  `json:"watermark"`
}

type fetchRequest struct {
	Replica string `json:"replica"`
	Epoch   uint64 `json:"epoch"`
	From    int64  `json:"from"`
}

func appendUvarint(dst []byte, v uint64) []byte {
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}

func encodeFrame(f replFrame) []byte {
	out := make([]byte, 0, 32+len(f.Leader))
	out = append(out, frameVersion)
	var e [8]byte
	binary.BigEndian.PutUint64(e[:], f.Epoch)
	out = append(out, e[:]...)
	out = appendUvarint(out, uint64(len(f.Leader)))
	out = append(out, f.Leader...)
	out = appendUvarint(out, uint64(f.HWM+1))
	out = appendUvarint(out, uint64(len(f.Records)))
	for i := range f.Records {
		rec := commitlog.MarshalRecord(f.Records[i])
		out = appendUvarint(out, uint64(len(rec)))
		out = append(out, rec...)
	}
	return out
}

func decodeFrame(b []byte) (replFrame, bool) {
	var f replFrame
	if len(b) < 1+8 || b[0] != frameVersion {
		return f, false
	}
	f.Epoch = binary.BigEndian.Uint64(b[1:9])
	pos := 9

	next := func() (uint64, bool) {
		v, n := binary.Uvarint(b[pos:])
		if n <= 0 {
			return 0, false
		}
		pos += n
		return v, true
	}

	n, ok := next()
	if !ok || pos+int(n) > len(b) {
		return f, false
	}
	f.Leader = string(b[pos : pos+int(n)])
	pos += int(n)

	h, ok := next()
	if !ok {
		return f, false
	}
	f.HWM = int64(h) - 1

	count, ok := next()
	if !ok || count > uint64(len(b)) {
		return f, false
	}
	f.Records = make([]commitlog.Record, 0, count)
	for i := uint64(0); i < count; i++ {
		rl, ok := next()
		if !ok || pos+int(rl) > len(b) {
			return f, false
		}
		rec, ok := commitlog.UnmarshalRecord(b[pos : pos+int(rl)])
		if !ok {
			return f, false
		}
		pos += int(rl)
		f.Records = append(f.Records, rec)
	}
	return f, true
}
