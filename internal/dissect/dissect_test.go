package dissect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func newPlainEmitter() (*emit.Emitter, *bytes.Buffer) {
	var out bytes.Buffer
	opts := emit.DefaultOptions()
	opts.Color = emit.ColorOff
	return emit.New(&out, opts), &out
}

// cmafInitSegmentFtyp is the 20-byte ftyp fragment from the CMAF init
// segment scenario: major_brand 'iso6', minor_version 0, one compatible
// brand 'cmfc'.
var cmafInitSegmentFtyp = []byte{
	0x00, 0x00, 0x00, 0x14, 0x66, 0x74, 0x79, 0x70,
	0x69, 0x73, 0x6f, 0x36, 0x00, 0x00, 0x00, 0x00,
	0x63, 0x6d, 0x66, 0x63,
}

func TestRunCMAFInitSegmentFtyp(t *testing.T) {
	em, out := newPlainEmitter()
	r := bytes.NewReader(cmafInitSegmentFtyp)
	if err := Run(r, em, 0); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"[ftyp] FileType @ 0x0, 0x8 .. 0x14 (12)",
		"major_brand = 'iso6'",
		"minor_version = 00000000",
		"- compatible: 'cmfc'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q; full output:\n%s", want, got)
		}
	}
}

// unknownThenFtyp exercises the "unknown four-CC" scenario: a box of
// type zzzz with a 16-byte payload, followed by a well-formed ftyp
// sibling. Parsing must survive the unknown box and continue.
func unknownThenFtyp() []byte {
	zzzz := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("zzzz")...)
	zzzz = append(zzzz, bytes.Repeat([]byte{0xAB}, 16)...)
	return append(zzzz, cmafInitSegmentFtyp...)
}

func TestRunUnknownFourCCThenSibling(t *testing.T) {
	em, out := newPlainEmitter()
	r := bytes.NewReader(unknownThenFtyp())
	if err := Run(r, em, 0); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "ab ab ab ab") {
		t.Errorf("unknown box payload not hex-dumped; output:\n%s", got)
	}
	if !strings.Contains(got, "major_brand = 'iso6'") {
		t.Errorf("sibling ftyp after unknown box was not parsed; output:\n%s", got)
	}
}

func TestRunOffsetsShiftedForSecondTopLevelBox(t *testing.T) {
	em, out := newPlainEmitter()
	r := bytes.NewReader(unknownThenFtyp())
	if err := Run(r, em, 0); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	// The zzzz box occupies bytes [0, 0x18); the ftyp sibling starts at 0x18.
	if !strings.Contains(out.String(), "@ 0x18, 0x20 .. 0x2c") {
		t.Errorf("second top-level box offsets not shifted past the first box; output:\n%s", out.String())
	}
}

func TestRunMdatReportedOpaque(t *testing.T) {
	mdat := append([]byte{0x00, 0x00, 0x00, 0x0c}, []byte("mdat")...)
	mdat = append(mdat, []byte{1, 2, 3, 4}...)

	em, out := newPlainEmitter()
	r := bytes.NewReader(mdat)
	if err := Run(r, em, 0); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "MediaDataBox") || !strings.Contains(got, "dataLen = 4") {
		t.Errorf("mdat not reported as opaque with its data length; output:\n%s", got)
	}
}
