package id

import "testing"

func TestNextMonotonic(t *testing.T) {
	g := NewGenerator()
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		cur := g.Next()
		if prev.Compare(cur) >= 0 {
			t.Fatalf("ids not increasing: %s then %s", prev, cur)
		}
		prev = cur
	}
}

func TestClockBackwards(t *testing.T) {
	g := NewGenerator()
	orig := NowMs
	defer func() { NowMs = orig }()

	now := int64(1_000_000)
	NowMs = func() int64 { return now }
	a := g.Next()
	now = 999_999 // clock regressed
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected increasing ids across clock regression: %s then %s", a, b)
	}
	if b.TimeMs() != 1_000_000 {
		t.Fatalf("expected reused lastMs, got %d", b.TimeMs())
	}
}

func TestFromBytes(t *testing.T) {
	g := NewGenerator()
	a := g.Next()
	back, err := FromBytes(a.Bytes())
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if a.Compare(back) != 0 {
		t.Fatalf("round trip mismatch: %s vs %s", a, back)
	}
	if _, err := FromBytes([]byte("short")); err != ErrBadLength {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}
