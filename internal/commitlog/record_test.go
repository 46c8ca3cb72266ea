package commitlog

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	in := Record{
		Timestamp:     1234567,
		Key:           []byte("k"),
		Value:         []byte("payload"),
		Headers:       map[string][]byte{"trace": []byte("abc")},
		Subject:       "orders.2",
		Reply:         "inbox.reply",
		AckInbox:      "inbox.ack",
		CorrelationID: "cid-1",
		AckPolicy:     AckAll,
	}
	out, ok := decodeRecord(encodeRecord(in, 0))
	if !ok {
		t.Fatalf("decode failed")
	}
	if out.Timestamp != in.Timestamp || out.AckPolicy != in.AckPolicy {
		t.Fatalf("scalar mismatch: %+v", out)
	}
	if !bytes.Equal(out.Key, in.Key) || !bytes.Equal(out.Value, in.Value) {
		t.Fatalf("bytes mismatch: %+v", out)
	}
	if out.Subject != in.Subject || out.Reply != in.Reply || out.AckInbox != in.AckInbox || out.CorrelationID != in.CorrelationID {
		t.Fatalf("string mismatch: %+v", out)
	}
	if !bytes.Equal(out.Headers["trace"], []byte("abc")) {
		t.Fatalf("headers mismatch: %+v", out.Headers)
	}
}

func TestRecordCompression(t *testing.T) {
	value := bytes.Repeat([]byte("abcdefgh"), 512)
	in := Record{Timestamp: 1, Value: value}

	plain := encodeRecord(in, 0)
	compressed := encodeRecord(in, 64)
	if len(compressed) >= len(plain) {
		t.Fatalf("expected compressed framing to be smaller: %d vs %d", len(compressed), len(plain))
	}
	out, ok := decodeRecord(compressed)
	if !ok {
		t.Fatalf("decode compressed failed")
	}
	if !bytes.Equal(out.Value, value) {
		t.Fatalf("compressed round trip mismatch")
	}
}

func TestRecordCorruptionDetected(t *testing.T) {
	b := encodeRecord(Record{Timestamp: 1, Value: []byte("v")}, 0)
	b[len(b)/2] ^= 0xff
	if _, ok := decodeRecord(b); ok {
		t.Fatalf("expected crc failure")
	}
	if _, ok := decodeRecord(b[:4]); ok {
		t.Fatalf("expected short-buffer failure")
	}
}
