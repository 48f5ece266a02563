package emit

import (
	"bytes"
	"strings"
	"testing"
)

func newPlainEmitter(opts Options) (*Emitter, *bytes.Buffer) {
	var buf bytes.Buffer
	opts.Color = ColorOff
	return New(&buf, opts), &buf
}

func TestEnterLeaveIndentation(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	em.Enter("moov", "MovieBox", 0x8, 0x10, 0x100)
	em.Field("timescale", "1000", "")
	em.Leave()
	em.Field("after", "1", "")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "    timescale") {
		t.Errorf("field inside scope not indented by 4 spaces: %q", lines[1])
	}
	if strings.HasPrefix(lines[2], " ") {
		t.Errorf("field after Leave still indented: %q", lines[2])
	}
}

func TestEnterOffsetsAndLengths(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	em.Enter("ftyp", "FileType", 0x0, 0x8, 0x14)
	got := strings.TrimRight(buf.String(), "\n")
	want := "[ftyp] FileType @ 0x0, 0x8 .. 0x14 (12)"
	if got != want {
		t.Errorf("Enter() line = %q, want %q", got, want)
	}
}

func TestEnterSuppressesOffsetsAndLengths(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowOffsets = false
	opts.ShowLengths = false
	em, buf := newPlainEmitter(opts)
	em.Enter("ftyp", "FileType", 0x0, 0x8, 0x14)
	got := strings.TrimRight(buf.String(), "\n")
	want := "[ftyp] FileType"
	if got != want {
		t.Errorf("Enter() line = %q, want %q", got, want)
	}
}

func TestFieldDescription(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	em.Field("language", "und", "Undetermined")
	got := strings.TrimRight(buf.String(), "\n")
	want := "language = und (Undetermined)"
	if got != want {
		t.Errorf("Field() = %q, want %q", got, want)
	}
}

func TestFieldDescriptionSuppressed(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowDescriptions = false
	em, buf := newPlainEmitter(opts)
	em.Field("language", "und", "Undetermined")
	got := strings.TrimRight(buf.String(), "\n")
	want := "language = und"
	if got != want {
		t.Errorf("Field() = %q, want %q", got, want)
	}
}

func TestDefaultFieldElision(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	em.DefaultField("matrix", "identity", true, "")
	if buf.Len() != 0 {
		t.Errorf("default-value field emitted despite ShowDefaults=false: %q", buf.String())
	}

	opts := DefaultOptions()
	opts.ShowDefaults = true
	em2, buf2 := newPlainEmitter(opts)
	em2.DefaultField("matrix", "identity", true, "")
	if buf2.Len() == 0 {
		t.Errorf("default-value field suppressed despite ShowDefaults=true")
	}
}

func TestTableTruncationAndSummary(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRows = 3
	em, buf := newPlainEmitter(opts)

	total := 0
	em.Table(10, 0, func(i int) string {
		total += i
		return "row"
	}, func() string {
		return "[samples = 10]"
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// 3 printed rows + "..." + summary line.
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if lines[3] != "..." {
		t.Errorf("truncation marker = %q, want %q", lines[3], "...")
	}
	if lines[4] != "[samples = 10]" {
		t.Errorf("summary line = %q, want %q", lines[4], "[samples = 10]")
	}
	if total != 45 {
		t.Errorf("row callback ran for total %d, want every index visited (sum 45)", total)
	}
}

func TestTableNoTruncationWithinLimit(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	em.Table(2, 0, func(i int) string { return "row" }, nil)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (no truncation, no summary):\n%s", len(lines), buf.String())
	}
}

func TestHexdumpLineWidthAndAddress(t *testing.T) {
	em, buf := newPlainEmitter(DefaultOptions())
	data := []byte{0x41, 0x42, 0x43}
	em.Hexdump(data, 0x10, 0)
	got := strings.TrimRight(buf.String(), "\n")
	if !strings.Contains(got, "00000010") {
		t.Errorf("hexdump line missing base address: %q", got)
	}
	if !strings.Contains(got, "41 42 43") {
		t.Errorf("hexdump line missing hex bytes: %q", got)
	}
	if !strings.Contains(got, "ABC") {
		t.Errorf("hexdump line missing ASCII column: %q", got)
	}
}

func TestDepthTracksNesting(t *testing.T) {
	em, _ := newPlainEmitter(DefaultOptions())
	if em.Depth() != 0 {
		t.Fatalf("initial Depth() = %d, want 0", em.Depth())
	}
	em.Enter("moov", "MovieBox", 0, 0, 0)
	em.Enter("trak", "TrackBox", 0, 0, 0)
	if em.Depth() != 2 {
		t.Errorf("Depth() after two Enter calls = %d, want 2", em.Depth())
	}
	em.Leave()
	em.Leave()
	if em.Depth() != 0 {
		t.Errorf("Depth() after matching Leave calls = %d, want 0", em.Depth())
	}
}
