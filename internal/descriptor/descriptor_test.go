package descriptor

import (
	"bytes"
	"strings"
	"testing"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func newPlainEmitter() (*emit.Emitter, *bytes.Buffer) {
	var buf bytes.Buffer
	opts := emit.DefaultOptions()
	opts.Color = emit.ColorOff
	return emit.New(&buf, opts), &buf
}

// buildESDescriptor assembles a minimal ES_Descriptor(0x03) containing a
// DecoderConfigDescriptor(0x04) with objectTypeIndication 0x6B (MPEG-1
// Audio) and streamType 5 (AudioStream), followed by an SLConfigDescriptor
// (0x06) using the predefined value 0x02.
func buildESDescriptor() []byte {
	slConfig := []byte{0x06, 0x01, 0x02} // tag, len=1, predefined=0x02

	decoderConfig := []byte{
		0x04, 0x0d, // tag, len=13
		0x6b,                   // objectTypeIndication
		0x15,                   // streamType(6)=5<<2, upStream(1)=0, reserved(1)=1
		0x00, 0x00, 0x00,       // bufferSizeDB
		0x00, 0x00, 0x00, 0x00, // maxBitrate
		0x00, 0x00, 0x00, 0x00, // avgBitrate
	}

	payload := []byte{0x00, 0x01} // ES_ID
	payload = append(payload, 0x00) // streamDependenceFlag/URL_Flag/OCRstreamFlag/streamPriority
	payload = append(payload, decoderConfig...)
	payload = append(payload, slConfig...)

	es := []byte{0x03, byte(len(payload))}
	es = append(es, payload...)
	return es
}

func TestParseDescriptorsESDSChain(t *testing.T) {
	data := buildESDescriptor()
	cur := bmff.NewCursor(data, 0)
	em, buf := newPlainEmitter()

	if err := ParseDescriptors(&cur, em); err != nil {
		t.Fatalf("ParseDescriptors: unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[3] ES_Descriptor",
		"[4] DecoderConfigDescriptor",
		"[6] SLConfigDescriptor",
		"objectTypeIndication = 107 (MPEG-1 Audio (usually MP3))",
		"streamType = 5 (AudioStream)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q; full output:\n%s", want, out)
		}
	}
}

func TestParseDescriptorUnknownTagHexDumps(t *testing.T) {
	// tag 0x20 (unregistered, in the range rendered as reserved for ISO use),
	// length 2, payload AA BB.
	data := []byte{0x20, 0x02, 0xAA, 0xBB}
	cur := bmff.NewCursor(data, 0)
	em, buf := newPlainEmitter()

	if err := ParseDescriptor(&cur, em); err != nil {
		t.Fatalf("ParseDescriptor: unexpected error: %v", err)
	}
	if !cur.AtEnd() {
		t.Errorf("cursor not fully consumed after unknown descriptor")
	}
	if !strings.Contains(buf.String(), "aa bb") {
		t.Errorf("unknown descriptor payload not hex-dumped:\n%s", buf.String())
	}
}

func TestParseDescriptorForbiddenTag(t *testing.T) {
	data := []byte{0x00, 0x00}
	cur := bmff.NewCursor(data, 0)
	em, _ := newPlainEmitter()
	if err := ParseDescriptor(&cur, em); err == nil {
		t.Errorf("ParseDescriptor with forbidden tag 0x00: expected error, got nil")
	}
}

func TestReadVarLengthMultiByte(t *testing.T) {
	// 0x81 0x00 encodes 128 (continuation bit set on the first byte).
	data := []byte{0x81, 0x00}
	cur := bmff.NewCursor(data, 0)
	size, err := readVarLength(&cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 128 {
		t.Errorf("readVarLength() = %d, want 128", size)
	}
}

func TestFormatObjectTypeAndStreamType(t *testing.T) {
	if got := FormatObjectType(0x6B); got != "MPEG-1 Audio (usually MP3)" {
		t.Errorf("FormatObjectType(0x6B) = %q", got)
	}
	if got := FormatObjectType(0x00); got != "forbidden" {
		t.Errorf("FormatObjectType(0x00) = %q, want forbidden", got)
	}
	if got := FormatStreamType(0x05); got != "AudioStream" {
		t.Errorf("FormatStreamType(0x05) = %q, want AudioStream", got)
	}
}
