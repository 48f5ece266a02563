package boxes

import (
	"bytes"
	"encoding/binary"
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

func encodeBE32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func box(typ string, versionFlags uint32, isFullBox bool, payload []byte) []byte {
	var body []byte
	if isFullBox {
		body = append(body, encodeBE32(versionFlags)...)
	}
	body = append(body, payload...)
	size := 8 + len(body)
	out := append(encodeBE32(uint32(size)), []byte(typ)...)
	out = append(out, body...)
	return out
}

func TestDispatchTfhdDefaultBaseIsMoof(t *testing.T) {
	Init()
	// flags = 0x020020 (default-base-is-moof | default_sample_flags_present)
	payload := append(encodeBE32(1), encodeBE32(0x01010000)...) // track_ID=1, default_sample_flags
	buf := box("tfhd", 0x00020020, true, payload)

	r := bmff.NewReader(buf)
	if !r.Next() {
		t.Fatalf("Reader.Next() failed to read constructed tfhd box")
	}
	em, out := newPlainEmitter()
	if _, err := Dispatch(bmff.TypeTraf, &r, em, Context{}); err != nil {
		t.Fatalf("Dispatch: unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"track_ID = 1",
		"default-base-is-moof",
		"depends_on=1",
		"non-sync",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("tfhd output missing %q; full output:\n%s", want, got)
		}
	}
}

func TestDispatchPsshWidevine(t *testing.T) {
	Init()
	systemID := []byte{0xed, 0xef, 0x8b, 0xa9, 0x79, 0xd6, 0x4a, 0xce, 0xa3, 0xc8, 0x27, 0xdc, 0xd5, 0x1d, 0x21, 0xed}
	payload := append(append([]byte{}, systemID...), encodeBE32(0)...) // dataSize=0
	buf := box("pssh", 0, true, payload)

	r := bmff.NewReader(buf)
	if !r.Next() {
		t.Fatalf("Reader.Next() failed to read constructed pssh box")
	}
	em, out := newPlainEmitter()
	if _, err := Dispatch(bmff.BoxType{}, &r, em, Context{}); err != nil {
		t.Fatalf("Dispatch: unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Widevine") {
		t.Errorf("pssh output missing Widevine annotation; full output:\n%s", got)
	}
}

func TestDispatchOffsetShiftViaContext(t *testing.T) {
	Init()
	buf := box("free", 0, false, []byte{1, 2, 3, 4})

	r := bmff.NewReader(buf)
	if !r.Next() {
		t.Fatalf("Reader.Next() failed")
	}
	em, out := newPlainEmitter()
	ctx := Context{}.WithBase(0x1000)
	if _, err := Dispatch(bmff.BoxType{}, &r, em, ctx); err != nil {
		t.Fatalf("Dispatch: unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "0x1000") {
		t.Errorf("Dispatch did not shift header offset by ctx.base; output:\n%s", out.String())
	}
}

func TestLookupFallsBackFromQualifiedToGeneral(t *testing.T) {
	synthetic := bmff.BoxType{'t', 's', 't', '1'}
	register(synthetic, "SyntheticBox", func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		return ctx, nil
	})
	if _, ok := lookup(bmff.TypeMoov, synthetic); !ok {
		t.Errorf("lookup should fall back to the unqualified registration")
	}
}

func TestDispatchSttsRowLimitAndSummary(t *testing.T) {
	Init()
	entries := [][2]uint32{{10, 100}, {20, 200}, {5, 50}, {7, 70}, {3, 30}}
	payload := encodeBE32(uint32(len(entries)))
	for _, e := range entries {
		payload = append(payload, encodeBE32(e[0])...)
		payload = append(payload, encodeBE32(e[1])...)
	}
	buf := box("stts", 0, true, payload)

	r := bmff.NewReader(buf)
	if !r.Next() {
		t.Fatalf("Reader.Next() failed")
	}
	opts := emit.DefaultOptions()
	opts.Color = emit.ColorOff
	opts.MaxRows = 3
	var out bytes.Buffer
	em := emit.New(&out, opts)
	if _, err := Dispatch(bmff.TypeStbl, &r, em, Context{}); err != nil {
		t.Fatalf("Dispatch: unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "...") {
		t.Errorf("expected truncation marker for 5 entries with MaxRows=3; output:\n%s", got)
	}
	if !strings.Contains(got, "[samples = 45, time = 5830]") {
		t.Errorf("aggregate summary incorrect; output:\n%s", got)
	}
	if strings.Contains(got, "[4] sample_count") {
		t.Errorf("row beyond the truncation limit was printed; output:\n%s", got)
	}
}

func TestUnknownBoxTypeHexDumps(t *testing.T) {
	Init()
	buf := box("zzzz", 0, false, bytes.Repeat([]byte{0xAB}, 16))

	r := bmff.NewReader(buf)
	if !r.Next() {
		t.Fatalf("Reader.Next() failed")
	}
	em, out := newPlainEmitter()
	if _, err := Dispatch(bmff.BoxType{}, &r, em, Context{}); err != nil {
		t.Fatalf("Dispatch: unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "ab ab ab ab") {
		t.Errorf("unknown box type not hex-dumped; output:\n%s", out.String())
	}
}
