package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

// qtMetadataKey builds the BoxType for a QuickTime/iTunes metadata item key
// whose first byte is the copyright-sign byte 0xa9, e.g. ©nam. These are
// not expressible as ASCII string literals, unlike the rest of box.go's
// table, so they live next to the parser that needs them instead.
func qtMetadataKey(b2, b3, b4 byte) bmff.BoxType {
	return bmff.BoxType{0xa9, b2, b3, b4}
}

var qtMetadataNames = map[bmff.BoxType]string{
	qtMetadataKey('n', 'a', 'm'): "Title",
	qtMetadataKey('A', 'R', 'T'): "Artist",
	qtMetadataKey('a', 'l', 'b'): "Album",
	qtMetadataKey('d', 'a', 'y'): "Release date",
	qtMetadataKey('t', 'o', 'o'): "Encoder",
	qtMetadataKey('c', 'm', 't'): "Comment",
	qtMetadataKey('g', 'e', 'n'): "Genre",
	qtMetadataKey('w', 'r', 't'): "Composer",
	qtMetadataKey('e', 'n', 'c'): "Encoded by",
}

// iTunes well-known data-box well-known-type values (the 32-bit "type
// indicator" field), per the iTunes metadata conventions.
var wellKnownDataTypes = map[uint32]string{
	0:  "reserved (implicit type, usually UTF-8)",
	1:  "UTF-8 text",
	2:  "UTF-16BE text",
	13: "JPEG image",
	14: "PNG image",
	21: "signed integer (big-endian)",
	22: "unsigned integer (big-endian)",
	23: "32-bit float (big-endian)",
	24: "64-bit float (big-endian)",
}

func registerQuickTimeMetadata() {
	container(bmff.TypeIlst, "ItemListBox")
	register(bmff.TypeData, "DataBox", parseQtData)

	for key, name := range qtMetadataNames {
		k := key
		register(k, "MetadataItemBox", func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
			em.Note(name)
			r.Enter()
			newCtx, err := DescendChildren(r, em, ctx, k)
			r.Exit()
			return newCtx, err
		})
	}
}

// parseQtData parses the iTunes-style "data" atom nested inside an ilst
// metadata item: a 32-bit well-known type indicator, a 32-bit locale
// (a 16-bit country/region indicator plus a 16-bit language code packed
// the same 5+5+5 way as mdhd's language, resolved via describeLanguage),
// then the raw value bytes.
func parseQtData(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 8 {
		return ctx, fmt.Errorf("data box too short: %d bytes", len(data))
	}
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	typeIndicator, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("type_indicator", fmt.Sprintf("%d", typeIndicator), describeDataType(uint32(typeIndicator)))
	country, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	lang, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Field("locale", fmt.Sprintf("country=%d lang=%d", country, lang), describeLanguage(uint16(lang)))

	value, err := cur.Bytes(cur.Remaining())
	if err != nil {
		return ctx, err
	}
	switch typeIndicator {
	case 1:
		em.Field("value", fmt.Sprintf("%q", value), "")
	case 21:
		v := bigEndianInt(value)
		if n := len(value); n > 0 && n < 8 && value[0]&0x80 != 0 {
			v -= int64(1) << (8 * uint(n))
		}
		em.Field("value", fmt.Sprintf("%d", v), "")
	case 22:
		em.Field("value", fmt.Sprintf("%d", bigEndianInt(value)), "")
	default:
		em.Field("value", fmt.Sprintf("(%d bytes)", len(value)), "")
		if len(value) > 0 {
			em.Hexdump(value, cur.Offset()-int64(len(value)), 0)
		}
	}
	return ctx, nil
}

func describeDataType(t uint32) string {
	if name, ok := wellKnownDataTypes[t]; ok {
		return name
	}
	return ""
}

func bigEndianInt(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}
