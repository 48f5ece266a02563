package bmff

import "testing"

func TestCursorU(t *testing.T) {
	// 0b10110100 0b11001010
	c := NewCursor([]byte{0xb4, 0xca}, 0)
	tests := []struct {
		n    uint
		want uint64
	}{
		{4, 0xb},
		{4, 0x4},
		{1, 1},
		{3, 4},
		{4, 0xa},
	}
	for i, tt := range tests {
		got, err := c.U(tt.n)
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != tt.want {
			t.Errorf("read %d: U(%d) = %#x, want %#x", i, tt.n, got, tt.want)
		}
	}
	if !c.AtEnd() {
		t.Errorf("cursor not at end after consuming all bits")
	}
}

func TestCursorUPastEnd(t *testing.T) {
	c := NewCursor([]byte{0xff}, 0)
	if _, err := c.U(16); err != ErrEOF {
		t.Errorf("U(16) on 1 byte: got err %v, want ErrEOF", err)
	}
}

func TestCursorS(t *testing.T) {
	// -1 as a 4-bit two's complement value is 0b1111.
	c := NewCursor([]byte{0xf0}, 0)
	got, err := c.S(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -1 {
		t.Errorf("S(4) = %d, want -1", got)
	}
}

func TestCursorBytesRequiresAlignment(t *testing.T) {
	c := NewCursor([]byte{0xff, 0x00}, 0)
	if _, err := c.U(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Bytes(1); err != ErrMisaligned {
		t.Errorf("Bytes after a 4-bit read: got err %v, want ErrMisaligned", err)
	}
}

func TestCursorOffsetTracksBase(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4}, 100)
	if off := c.Offset(); off != 100 {
		t.Fatalf("initial Offset() = %d, want 100", off)
	}
	if _, err := c.Bytes(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off := c.Offset(); off != 102 {
		t.Errorf("Offset() after consuming 2 bytes = %d, want 102", off)
	}
}

func TestCursorFixed1616(t *testing.T) {
	// 1.0 in 16.16 fixed point is 0x00010000.
	c := NewCursor([]byte{0x00, 0x01, 0x00, 0x00}, 0)
	fp, err := c.Fixed(16, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fp.Float64(); got != 1.0 {
		t.Errorf("Float64() = %v, want 1.0", got)
	}
}

func TestCursorUtf8UntilNul(t *testing.T) {
	c := NewCursor([]byte{'h', 'i', 0, 'x'}, 0)
	s, err := c.Utf8UntilNul()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "hi" {
		t.Errorf("Utf8UntilNul() = %q, want %q", s, "hi")
	}
	if c.Remaining() != 1 {
		t.Errorf("Remaining() after NUL = %d, want 1", c.Remaining())
	}
}

func TestCursorPascalString(t *testing.T) {
	c := NewCursor([]byte{3, 'a', 'b', 'c', 'z'}, 0)
	s, err := c.PascalString()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "abc" {
		t.Errorf("PascalString() = %q, want %q", s, "abc")
	}
	if c.Remaining() != 1 {
		t.Errorf("Remaining() after PascalString = %d, want 1", c.Remaining())
	}
}

func TestCursorSubScopesAbsoluteOffset(t *testing.T) {
	c := NewCursor([]byte{0, 0, 1, 2, 3, 4}, 1000)
	if _, err := c.Bytes(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, err := c.Sub(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Offset() != 1002 {
		t.Errorf("sub.Offset() = %d, want 1002", sub.Offset())
	}
	if sub.Len() != 3 {
		t.Errorf("sub.Len() = %d, want 3", sub.Len())
	}
	if c.Remaining() != 1 {
		t.Errorf("parent Remaining() after Sub = %d, want 1", c.Remaining())
	}
}
