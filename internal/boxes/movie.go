package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerMovieHeaders() {
	register(bmff.TypeFtyp, "FileType", parseFtyp)
	register(bmff.TypeStyp, "SegmentType", parseFtyp)
	register(bmff.TypeMvhd, "MovieHeaderBox", parseMvhd)
	register(bmff.TypeTkhd, "TrackHeaderBox", parseTkhd)
	register(bmff.TypeMdhd, "MediaHeaderBox", parseMdhd)
	register(bmff.TypeHdlr, "HandlerBox", parseHdlr)
	register(bmff.TypeElng, "ExtendedLanguageBox", parseElng)
	register(bmff.TypeElst, "EditListBox", parseElst)
	register(bmff.TypeVmhd, "VideoMediaHeaderBox", parseVmhd)
	register(bmff.TypeSmhd, "SoundMediaHeaderBox", parseSmhd)
	register(bmff.TypeHmhd, "HintMediaHeaderBox", parseGenericFullBoxFields)
	register(bmff.TypeSthd, "SubtitleMediaHeaderBox", parseGenericFullBoxFields)
	register(bmff.TypeNmhd, "NullMediaHeaderBox", parseGenericFullBoxFields)
	register(bmff.TypeMdat, "MediaDataBox", parseMdat)
	register(bmff.TypeFree, "FreeSpaceBox", parseFreeSpace)
	register(bmff.TypeSkip, "FreeSpaceBox", parseFreeSpace)
}

func fourCC(b []byte) string {
	return fmt.Sprintf("'%s'", string(b))
}

func parseFtyp(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 8 {
		return ctx, fmt.Errorf("ftyp too short: %d bytes", len(data))
	}
	f := bmff.ReadFtyp(data)
	em.Field("major_brand", fourCC(f.MajorBrand[:]), "")
	em.Field("minor_version", fmt.Sprintf("%08x", f.MinorVersion), "")
	for _, c := range f.Compatible {
		em.ListItem("compatible", fourCC(c[:]))
	}
	return ctx, nil
}

func parseMvhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	ctime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("creation_time", fmt.Sprintf("%d", ctime), "")
	mtime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("modification_time", fmt.Sprintf("%d", mtime), "")
	timescale, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("timescale", fmt.Sprintf("%d", timescale), "")
	duration, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("duration", fmt.Sprintf("%d", duration), durationDesc(duration, uint32(timescale)))

	rate, err := cur.Fixed(16, 16)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("rate", fmt.Sprintf("%.4f", rate.Float64()), rate.Int == 1 && rate.Frac == 0, "")

	vol, err := cur.Fixed(8, 8)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("volume", fmt.Sprintf("%.2f", vol.Float64()), vol.Int == 1 && vol.Frac == 0, "")

	if err := cur.Skip(16 + 32*2); err != nil { // reserved(16)+reserved(32)x2
		return ctx, err
	}
	if err := skipIdentityMatrix(&cur, em); err != nil {
		return ctx, err
	}
	if err := cur.Skip(32 * 6); err != nil { // pre_defined[6]
		return ctx, err
	}
	nextTrackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("next_track_ID", fmt.Sprintf("%d", nextTrackID), "")

	newCtx := ctx
	newCtx.Timescale = uint32(timescale)
	newCtx.HasTimescale = true
	drainTrailing(&cur, em, "mvhd")
	return newCtx, nil
}

func parseTkhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	ctime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("creation_time", fmt.Sprintf("%d", ctime), "")
	mtime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("modification_time", fmt.Sprintf("%d", mtime), "")
	trackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("track_ID", fmt.Sprintf("%d", trackID), "")
	if err := cur.Skip(32); err != nil { // reserved
		return ctx, err
	}
	duration, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("duration", fmt.Sprintf("%d", duration), "")
	if err := cur.Skip(32 * 2); err != nil { // reserved[2]
		return ctx, err
	}
	layer, err := cur.S(16)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("layer", fmt.Sprintf("%d", layer), layer == 0, "")
	altGroup, err := cur.S(16)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("alternate_group", fmt.Sprintf("%d", altGroup), altGroup == 0, "")
	vol, err := cur.Fixed(8, 8)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("volume", fmt.Sprintf("%.2f", vol.Float64()), vol.Int == 1 && vol.Frac == 0, "")
	if err := cur.Skip(16); err != nil { // reserved
		return ctx, err
	}
	if err := skipIdentityMatrix(&cur, em); err != nil {
		return ctx, err
	}
	w, err := cur.Fixed(16, 16)
	if err != nil {
		return ctx, err
	}
	em.Field("width", fmt.Sprintf("%.2f", w.Float64()), "")
	h, err := cur.Fixed(16, 16)
	if err != nil {
		return ctx, err
	}
	em.Field("height", fmt.Sprintf("%.2f", h.Float64()), "")
	drainTrailing(&cur, em, "tkhd")
	return ctx, nil
}

// skipIdentityMatrix reads the 3x3 16.16/2.30 transformation matrix and
// prints it only if it differs from the identity matrix (ShowDefaults
// overrides elision). The ISO/IEC 14496-12 default is
// {0x10000,0,0, 0,0x10000,0, 0,0,0x40000000}.
func skipIdentityMatrix(cur *bmff.Cursor, em *emit.Emitter) error {
	var vals [9]int32
	for i := range vals {
		v, err := cur.S(32)
		if err != nil {
			return err
		}
		vals[i] = int32(v)
	}
	isIdentity := vals == [9]int32{0x10000, 0, 0, 0, 0x10000, 0, 0, 0, 0x40000000}
	var parts [9]string
	for i, v := range vals {
		if i%3 == 2 {
			parts[i] = fmt.Sprintf("%.4f", float64(v)/(1<<30))
		} else {
			parts[i] = fmt.Sprintf("%.4f", float64(v)/(1<<16))
		}
	}
	em.DefaultField("matrix", fmt.Sprintf("%v", parts), isIdentity, "")
	return nil
}

func parseMdhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	ctime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("creation_time", fmt.Sprintf("%d", ctime), "")
	mtime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("modification_time", fmt.Sprintf("%d", mtime), "")
	timescale, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("timescale", fmt.Sprintf("%d", timescale), "")
	duration, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("duration", fmt.Sprintf("%d", duration), durationDesc(duration, uint32(timescale)))

	pad, err := cur.U(1)
	if err != nil {
		return ctx, err
	}
	if pad != 0 {
		em.Warn("mdhd pad bit is set (reserved, must be 0)")
	}
	lang, err := cur.U(15)
	if err != nil {
		return ctx, err
	}
	em.Field("language", fmt.Sprintf("%d", lang), describeLanguage(uint16(lang)))
	if err := cur.Skip(16); err != nil { // pre_defined
		return ctx, err
	}

	newCtx := ctx
	newCtx.Timescale = uint32(timescale)
	newCtx.HasTimescale = true
	drainTrailing(&cur, em, "mdhd")
	return newCtx, nil
}

// describeLanguage decodes the packed 5+5+5-bit ISO-639-2/T language code
// used by mdhd (and, via the same scheme, QTFF metadata locale fields).
func describeLanguage(packed uint16) string {
	if packed == 0 {
		return "Undetermined"
	}
	var letters [3]byte
	for i := 2; i >= 0; i-- {
		letters[i] = byte((packed&0x1f)+0x60)
		packed >>= 5
	}
	return string(letters[:])
}

func parseHdlr(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if err := cur.Skip(32); err != nil { // pre_defined
		return ctx, err
	}
	typeBytes, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	var handlerType bmff.BoxType
	copy(handlerType[:], typeBytes)
	em.Field("handler_type", fourCC(typeBytes), describeHandlerType(handlerType))
	if err := cur.Skip(32 * 3); err != nil { // reserved[3]
		return ctx, err
	}
	name, _ := cur.Utf8UntilNul()
	em.Field("name", fmt.Sprintf("%q", name), "")

	newCtx := ctx
	newCtx.HandlerType = handlerType
	newCtx.HasHandlerType = true
	return newCtx, nil
}

func describeHandlerType(t bmff.BoxType) string {
	switch t.String() {
	case "vide":
		return "Video track"
	case "soun":
		return "Audio track"
	case "hint":
		return "Hint track"
	case "meta":
		return "Metadata track"
	case "text":
		return "Text track"
	case "subt":
		return "Subtitle track"
	case "auxv":
		return "Auxiliary video track"
	case "mdir":
		return "Metadata (iTunes)"
	}
	return ""
}

func parseElng(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	tag, err := cur.Utf8UntilNul()
	if err != nil {
		return ctx, err
	}
	em.Field("extended_language", tag, "")
	return ctx, nil
}

func parseElst(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewElstIter(r.Data(), r.Version())
	em.Table(int(it.Count()), 0, func(i int) string {
		e, _ := it.Next()
		return fmt.Sprintf("[%d] segment_duration=%d media_time=%d media_rate=%d.%d",
			i, e.SegmentDuration, e.MediaTime, e.MediaRateInt, e.MediaRateFrac)
	}, nil)
	return ctx, nil
}

func parseVmhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	mode, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Field("graphicsmode", fmt.Sprintf("%d", mode), "")
	for i := 0; i < 3; i++ {
		v, err := cur.U(16)
		if err != nil {
			return ctx, err
		}
		em.Field(fmt.Sprintf("opcolor[%d]", i), fmt.Sprintf("%d", v), "")
	}
	return ctx, nil
}

func parseSmhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	balance, err := cur.Fixed(8, 8)
	if err != nil {
		return ctx, err
	}
	em.DefaultField("balance", fmt.Sprintf("%.2f", balance.Float64()), balance.Int == 0 && balance.Frac == 0, "")
	return ctx, nil
}

func parseGenericFullBoxFields(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	if len(r.Data()) > 0 {
		em.Hexdump(r.Data(), int64(r.DataOffset()), 0)
	}
	return ctx, nil
}

func parseMdat(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	em.Field("dataLen", fmt.Sprintf("%d", len(r.Data())), "")
	return ctx, nil
}

func parseFreeSpace(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	em.Field("dataLen", fmt.Sprintf("%d", len(r.Data())), "")
	return ctx, nil
}

func durationDesc(duration uint64, timescale uint32) string {
	if timescale == 0 || duration == 0 {
		return ""
	}
	seconds := float64(duration) / float64(timescale)
	return fmt.Sprintf("%.3fs", seconds)
}
