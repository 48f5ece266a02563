package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/descriptor"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerSampleEntries() {
	register(bmff.TypeAvc1, "AVCSampleEntry", parseVisualSampleEntry)
	register(bmff.TypeAvc2, "AVC2SampleEntry", parseVisualSampleEntry)
	register(bmff.TypeAvc3, "AVC3SampleEntry", parseVisualSampleEntry)
	register(bmff.TypeAvc4, "AVC4SampleEntry", parseVisualSampleEntry)
	register(bmff.TypeSvc1, "SVCSampleEntry", parseVisualSampleEntry)
	register(bmff.TypeHvc1, "HEVCSampleEntry", parseVisualSampleEntry)
	register(bmff.TypeHev1, "HEVCSampleEntry", parseVisualSampleEntry)
	register(bmff.TypeAv01, "AV1SampleEntry", parseVisualSampleEntry)
	register(bmff.TypeMp4v, "MP4VisualSampleEntry", parseVisualSampleEntry)
	register(bmff.TypeEncv, "EncryptedVisualSampleEntry", parseVisualSampleEntry)

	register(bmff.TypeMp4a, "MP4AudioSampleEntry", parseAudioSampleEntry)
	register(bmff.TypeEnca, "EncryptedAudioSampleEntry", parseAudioSampleEntry)
	register(bmff.TypeOpus, "OpusSampleEntry", parseAudioSampleEntry)

	register(bmff.TypeMp4s, "MpegSampleEntry", parseMp4s)

	register(bmff.TypeAvcC, "AVCConfigurationBox", parseAvcC)
	register(bmff.TypeSvcC, "SVCConfigurationBox", parseAvcC)
	register(bmff.TypeHvcC, "HEVCConfigurationBox", parseHvcC)
	register(bmff.TypeAv1C, "AV1ConfigurationBox", parseAv1C)
	register(bmff.TypeDOps, "OpusSpecificBox", parseDOps)
	register(bmff.TypeEsds, "ESDBox", parseEsds)
	register(bmff.TypeIods, "ObjectDescriptorBox", parseEsds)
	register(bmff.TypeBtrt, "BitRateBox", parseBtrt)
	register(bmff.TypePasp, "PixelAspectRatioBox", parsePasp)
	register(bmff.TypeClap, "CleanApertureBox", parseClap)
	register(bmff.TypeColr, "ColourInformationBox", parseColr)

	register(bmff.TypeMetx, "XMLMetadataSampleEntry", textSampleEntryParser("content_encoding", "namespace", "schema_location"))
	register(bmff.TypeMett, "TextMetadataSampleEntry", textSampleEntryParser("content_encoding", "mime_format"))
	register(bmff.TypeUrim, "URIMetaSampleEntry", textSampleEntryParser())
	register(bmff.TypeStxt, "SimpleTextSampleEntry", textSampleEntryParser("content_encoding", "mime_format"))
	register(bmff.TypeSbtt, "SubtitleSampleEntry", textSampleEntryParser("content_encoding", "mime_format"))
	register(bmff.TypeStpp, "XMLSubtitleSampleEntry", textSampleEntryParser("namespace", "schema_location", "auxiliary_mime_types"))
}

func parseVisualSampleEntry(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 78 {
		return ctx, fmt.Errorf("visual sample entry too short: %d bytes", len(data))
	}
	v := bmff.ReadVisualSampleEntry(data)
	em.Field("data_reference_index", fmt.Sprintf("%d", v.DataReferenceIndex), "")
	em.Field("width", fmt.Sprintf("%d", v.Width), "")
	em.Field("height", fmt.Sprintf("%d", v.Height), "")
	em.Field("horizresolution", fmt.Sprintf("%.2f", fixed1616(v.HResolution)), "")
	em.Field("vertresolution", fmt.Sprintf("%.2f", fixed1616(v.VResolution)), "")
	em.Field("frame_count", fmt.Sprintf("%d", v.FrameCount), "")
	if v.CompressorName != "" {
		em.Field("compressorname", fmt.Sprintf("%q", v.CompressorName), "")
	}
	em.Field("depth", fmt.Sprintf("%d", v.Depth), "")

	r.Enter()
	r.Skip(v.ChildOffset)
	newCtx, err := DescendChildren(r, em, ctx, r.Type())
	r.Exit()
	return newCtx, err
}

func fixed1616(v uint32) float64 {
	return float64(v) / 65536.0
}

func parseAudioSampleEntry(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 28 {
		return ctx, fmt.Errorf("audio sample entry too short: %d bytes", len(data))
	}
	a := bmff.ReadAudioSampleEntry(data)
	em.Field("data_reference_index", fmt.Sprintf("%d", a.DataReferenceIndex), "")
	em.Field("channelcount", fmt.Sprintf("%d", a.ChannelCount), "")
	em.Field("samplesize", fmt.Sprintf("%d", a.SampleSize), "")
	em.Field("samplerate", fmt.Sprintf("%.2f", fixed1616(a.SampleRate)), "")

	childOffset := a.ChildOffset
	if uint16(data[8])<<8|uint16(data[9]) == 1 && len(data) >= childOffset+16 {
		for i, name := range []string{"samplesPerPacket", "bytesPerPacket", "bytesPerFrame", "bytesPerSample"} {
			off := childOffset + 4*i
			em.Field(name, fmt.Sprintf("%d", be32(data[off:off+4])), "")
		}
		childOffset += 16
	}

	r.Enter()
	r.Skip(childOffset)
	newCtx, err := DescendChildren(r, em, ctx, r.Type())
	r.Exit()
	return newCtx, err
}

// parseMp4s handles the systems-stream sample entry (mp4s), which shares
// the base SampleEntry layout (reserved[6]+data_reference_index) but has
// no further fixed fields before its esds child.
func parseMp4s(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 8 {
		return ctx, fmt.Errorf("mp4s sample entry too short: %d bytes", len(data))
	}
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	if err := cur.Skip(6 * 8); err != nil {
		return ctx, err
	}
	idx, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Field("data_reference_index", fmt.Sprintf("%d", idx), "")

	r.Enter()
	r.Skip(8)
	newCtx, err := DescendChildren(r, em, ctx, r.Type())
	r.Exit()
	return newCtx, err
}

// textSampleEntryParser builds a parser for the text/subtitle/metadata
// sample entries (metx, mett, urim, stxt, sbtt, stpp), which all share
// the base SampleEntry header (reserved[6]+data_reference_index)
// followed by a fixed sequence of NUL-terminated UTF-8 strings named by
// fieldNames, then an optional child box sequence (e.g. a trailing
// btrt). urim carries no strings at all.
func textSampleEntryParser(fieldNames ...string) func(*bmff.Reader, *emit.Emitter, Context) (Context, error) {
	return func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		data := r.Data()
		if len(data) < 8 {
			return ctx, fmt.Errorf("text/metadata sample entry too short: %d bytes", len(data))
		}
		cur := bmff.NewCursor(data, int64(r.DataOffset()))
		if err := cur.Skip(6 * 8); err != nil {
			return ctx, err
		}
		idx, err := cur.U(16)
		if err != nil {
			return ctx, err
		}
		em.Field("data_reference_index", fmt.Sprintf("%d", idx), "")

		for _, name := range fieldNames {
			s, err := cur.Utf8UntilNul()
			if err != nil {
				return ctx, err
			}
			em.Field(name, fmt.Sprintf("%q", s), "")
		}

		consumed := int(cur.Offset()) - r.DataOffset()
		r.Enter()
		r.Skip(consumed)
		newCtx, err := DescendChildren(r, em, ctx, r.Type())
		r.Exit()
		return newCtx, err
	}
}

func parseAvcC(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 7 {
		return ctx, fmt.Errorf("avcC too short")
	}
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	version, _ := cur.U(8)
	profile, _ := cur.U(8)
	profileCompat, _ := cur.U(8)
	level, _ := cur.U(8)
	em.Field("configurationVersion", fmt.Sprintf("%d", version), "")
	em.Field("AVCProfileIndication", fmt.Sprintf("%d", profile), "")
	em.Field("profile_compatibility", fmt.Sprintf("%#02x", profileCompat), "")
	em.Field("AVCLevelIndication", fmt.Sprintf("%d", level), "")
	if err := cur.Skip(6); err != nil { // reserved
		return ctx, err
	}
	lengthSizeMinusOne, err := cur.U(2)
	if err != nil {
		return ctx, err
	}
	em.Field("lengthSizeMinusOne", fmt.Sprintf("%d", lengthSizeMinusOne), fmt.Sprintf("NALUnitLength field is %d byte(s)", lengthSizeMinusOne+1))

	if err := cur.Skip(3); err != nil { // reserved
		return ctx, err
	}
	if err := parseParameterSetArray(&cur, em, "sps", 5); err != nil {
		return ctx, err
	}
	if err := parseParameterSetArray(&cur, em, "pps", 8); err != nil {
		return ctx, err
	}
	if !cur.AtEnd() {
		rest, _ := cur.Bytes(cur.Remaining())
		em.Hexdump(rest, cur.Offset()-int64(len(rest)), 0)
	}
	return ctx, nil
}

func parseParameterSetArray(cur *bmff.Cursor, em *emit.Emitter, label string, countBits uint) error {
	count, err := cur.U(countBits)
	if err != nil {
		return err
	}
	em.Table(int(count), 0, func(i int) string {
		size, _ := cur.U(16)
		b, err := cur.Bytes(int(size))
		if err != nil {
			return fmt.Sprintf("[%d] <truncated %s>", i, label)
		}
		return fmt.Sprintf("[%d] %s (%d bytes) %x", i, label, len(b), b)
	}, nil)
	return nil
}

func parseHvcC(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 23 {
		return ctx, fmt.Errorf("hvcC too short")
	}
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	version, _ := cur.U(8)
	em.Field("configurationVersion", fmt.Sprintf("%d", version), "")
	cur.Skip(2) // general_profile_space
	cur.Skip(1) // general_tier_flag
	profileIdc, _ := cur.U(5)
	em.Field("general_profile_idc", fmt.Sprintf("%d", profileIdc), "")
	compatFlags, _ := cur.U(32)
	em.Field("general_profile_compatibility_flags", fmt.Sprintf("%#08x", compatFlags), "")
	constraintFlags, _ := cur.Bytes(6)
	em.Field("general_constraint_indicator_flags", fmt.Sprintf("%x", constraintFlags), "")
	levelIdc, _ := cur.U(8)
	em.Field("general_level_idc", fmt.Sprintf("%d", levelIdc), "")
	cur.Skip(4) // reserved
	minSpatialSegIdc, _ := cur.U(12)
	em.Field("min_spatial_segmentation_idc", fmt.Sprintf("%d", minSpatialSegIdc), "")
	cur.Skip(6) // reserved
	parallelismType, _ := cur.U(2)
	em.Field("parallelismType", fmt.Sprintf("%d", parallelismType), "")
	cur.Skip(6) // reserved
	chromaFormat, _ := cur.U(2)
	em.Field("chromaFormat", fmt.Sprintf("%d", chromaFormat), "")
	cur.Skip(5) // reserved
	bitDepthLuma, _ := cur.U(3)
	em.Field("bitDepthLumaMinus8", fmt.Sprintf("%d", bitDepthLuma), "")
	cur.Skip(5) // reserved
	bitDepthChroma, _ := cur.U(3)
	em.Field("bitDepthChromaMinus8", fmt.Sprintf("%d", bitDepthChroma), "")
	avgFrameRate, _ := cur.U(16)
	em.Field("avgFrameRate", fmt.Sprintf("%d", avgFrameRate), "")
	cur.Skip(2) // constantFrameRate
	numTemporalLayers, _ := cur.U(3)
	em.Field("numTemporalLayers", fmt.Sprintf("%d", numTemporalLayers), "")
	cur.Skip(1) // temporalIdNested
	lengthSizeMinusOne, err := cur.U(2)
	if err != nil {
		return ctx, err
	}
	em.Field("lengthSizeMinusOne", fmt.Sprintf("%d", lengthSizeMinusOne), fmt.Sprintf("NALUnitLength field is %d byte(s)", lengthSizeMinusOne+1))

	numArrays, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	for a := uint64(0); a < numArrays; a++ {
		cur.Skip(1) // array_completeness
		cur.Skip(1) // reserved
		nalType, _ := cur.U(6)
		numNalus, _ := cur.U(16)
		em.Note(fmt.Sprintf("nal_unit_array[%d]: NAL_unit_type=%d, %d unit(s)", a, nalType, numNalus))
		for n := uint64(0); n < numNalus; n++ {
			size, _ := cur.U(16)
			b, err := cur.Bytes(int(size))
			if err != nil {
				em.Warn("truncated NAL unit in hvcC")
				return ctx, nil
			}
			em.ListItem(fmt.Sprintf("nal_unit_array[%d][%d]", a, n), fmt.Sprintf("(%d bytes) %x", len(b), b))
		}
	}
	return ctx, nil
}

func parseAv1C(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 4 {
		return ctx, fmt.Errorf("av1C too short")
	}
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	cur.Skip(8) // marker + version
	seqProfile, _ := cur.U(3)
	seqLevelIdx0, _ := cur.U(5)
	em.Field("seq_profile", fmt.Sprintf("%d", seqProfile), "")
	em.Field("seq_level_idx_0", fmt.Sprintf("%d", seqLevelIdx0), "")
	seqTier0, _ := cur.U(1)
	highBitdepth, _ := cur.U(1)
	twelveBit, _ := cur.U(1)
	monochrome, _ := cur.U(1)
	chromaSubsamplingX, _ := cur.U(1)
	chromaSubsamplingY, _ := cur.U(1)
	chromaSamplePosition, _ := cur.U(2)
	em.Field("seq_tier_0", fmt.Sprintf("%d", seqTier0), "")
	em.Field("high_bitdepth", fmt.Sprintf("%d", highBitdepth), "")
	em.Field("twelve_bit", fmt.Sprintf("%d", twelveBit), "")
	em.Field("monochrome", fmt.Sprintf("%d", monochrome), "")
	em.Field("chroma_subsampling_x", fmt.Sprintf("%d", chromaSubsamplingX), "")
	em.Field("chroma_subsampling_y", fmt.Sprintf("%d", chromaSubsamplingY), "")
	em.Field("chroma_sample_position", fmt.Sprintf("%d", chromaSamplePosition), "")
	cur.Skip(8) // reserved(3) + initial_presentation_delay fields(5)
	if !cur.AtEnd() {
		rest, _ := cur.Bytes(cur.Remaining())
		em.Field("configOBUs", fmt.Sprintf("(%d bytes)", len(rest)), "")
		em.Hexdump(rest, cur.Offset()-int64(len(rest)), 0)
	}
	return ctx, nil
}

func parseDOps(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	version, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Field("Version", fmt.Sprintf("%d", version), "")
	outputChannelCount, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Field("OutputChannelCount", fmt.Sprintf("%d", outputChannelCount), "")
	preSkip, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Field("PreSkip", fmt.Sprintf("%d", preSkip), "")
	inputSampleRate, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("InputSampleRate", fmt.Sprintf("%d", inputSampleRate), "")
	outputGain, err := cur.S(16)
	if err != nil {
		return ctx, err
	}
	em.Field("OutputGain", fmt.Sprintf("%d", outputGain), "Q7.8 dB")
	mappingFamily, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Field("ChannelMappingFamily", fmt.Sprintf("%d", mappingFamily), "")
	if mappingFamily != 0 && !cur.AtEnd() {
		rest, _ := cur.Bytes(cur.Remaining())
		em.Field("ChannelMappingTable", fmt.Sprintf("(%d bytes)", len(rest)), "")
	}
	return ctx, nil
}

func parseEsds(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if err := descriptor.ParseDescriptors(&cur, em); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func parseBtrt(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	bufferSizeDB, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("bufferSizeDB", fmt.Sprintf("%d", bufferSizeDB), "")
	maxBitrate, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("maxBitrate", fmt.Sprintf("%d", maxBitrate), "")
	avgBitrate, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("avgBitrate", fmt.Sprintf("%d", avgBitrate), "")
	return ctx, nil
}

func parsePasp(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	hSpacing, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("hSpacing", fmt.Sprintf("%d", hSpacing), "")
	vSpacing, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("vSpacing", fmt.Sprintf("%d", vSpacing), "")
	return ctx, nil
}

func parseClap(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	fields := []string{"cleanApertureWidth", "cleanApertureHeight", "horizOff", "vertOff"}
	for _, name := range fields {
		num, err := cur.S(32)
		if err != nil {
			return ctx, err
		}
		den, err := cur.S(32)
		if err != nil {
			return ctx, err
		}
		em.Field(name, fmt.Sprintf("%d/%d", num, den), "")
	}
	return ctx, nil
}

func parseColr(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	colourType, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	em.Field("colour_type", fourCC(colourType), "")
	switch string(colourType) {
	case "nclx", "nclc":
		primaries, _ := cur.U(16)
		transfer, _ := cur.U(16)
		matrix, _ := cur.U(16)
		em.Field("colour_primaries", fmt.Sprintf("%d", primaries), "")
		em.Field("transfer_characteristics", fmt.Sprintf("%d", transfer), "")
		em.Field("matrix_coefficients", fmt.Sprintf("%d", matrix), "")
		if string(colourType) == "nclx" {
			rangeFlag, _ := cur.U(1)
			em.Field("full_range_flag", fmt.Sprintf("%d", rangeFlag), "")
		}
	case "rICC", "prof":
		if !cur.AtEnd() {
			rest, _ := cur.Bytes(cur.Remaining())
			em.Field("profile", fmt.Sprintf("(%d bytes)", len(rest)), "")
		}
	}
	return ctx, nil
}
