package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerFragmentBoxes() {
	// mvex, moof, traf, mfra are plain containers already registered by
	// registerContainers(); only their leaf children are registered here.
	register(bmff.TypeMehd, "MovieExtendsHeaderBox", parseMehd)
	register(bmff.TypeTrex, "TrackExtendsBox", parseTrex)
	register(bmff.TypeLeva, "LevelAssignmentBox", parseLeva)

	register(bmff.TypeMfhd, "MovieFragmentHeaderBox", parseMfhd)
	register(bmff.TypeTfhd, "TrackFragmentHeaderBox", parseTfhd)
	register(bmff.TypeTfdt, "TrackFragmentBaseMediaDecodeTimeBox", parseTfdt)
	register(bmff.TypeTrun, "TrackRunBox", parseTrun)

	register(bmff.TypeTfra, "TrackFragmentRandomAccessBox", parseTfra)
	register(bmff.TypeMfro, "MovieFragmentRandomAccessOffsetBox", parseMfro)

	register(bmff.TypeSidx, "SegmentIndexBox", parseSidx)
	register(bmff.TypeSsix, "SubsegmentIndexBox", parseSsix)
	register(bmff.TypeEmsg, "EventMessageBox", parseEmsg)
	register(bmff.TypePrft, "ProducerReferenceTimeBox", parsePrft)
}

func parseMehd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	dur, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("fragment_duration", fmt.Sprintf("%d", dur), durationDesc(dur, ctx.Timescale))
	return ctx, nil
}

func parseTrex(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	trackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("track_ID", fmt.Sprintf("%d", trackID), "")
	descIdx, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("default_sample_description_index", fmt.Sprintf("%d", descIdx), "")
	dur, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("default_sample_duration", fmt.Sprintf("%d", dur), "")
	size, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("default_sample_size", fmt.Sprintf("%d", size), "")
	flags, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("default_sample_flags", fmt.Sprintf("0x%06x", flags), describeSampleFlags(uint32(flags)))
	return ctx, nil
}

func parseLeva(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	count, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Table(int(count), 0, func(i int) string {
		trackID, _ := cur.U(32)
		assignType, _ := cur.U(8)
		line := fmt.Sprintf("[%d] level_assignment_track_id=%d assignment_type=%d", i, trackID, assignType)
		switch assignType {
		case 0:
			gi, _ := cur.Bytes(4)
			line += fmt.Sprintf(" grouping_type=%s", fourCC(gi))
		case 1:
			gi, _ := cur.Bytes(4)
			gtp, _ := cur.U(32)
			line += fmt.Sprintf(" grouping_type=%s grouping_type_parameter=%d", fourCC(gi), gtp)
		case 4:
			// sub_track_id only, already consumed trackID+type
			subTrackID, _ := cur.U(32)
			line += fmt.Sprintf(" sub_track_id=%d", subTrackID)
		}
		return line
	}, nil)
	return ctx, nil
}

func parseMfhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	seq, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("sequence_number", fmt.Sprintf("%d", seq), "")
	return ctx, nil
}

// describeSampleFlags decodes a sample_flags/default_sample_flags word into
// the leading/depends-on/is-depended-on/has-redundancy/padding/sync/
// degradation_priority subfields defined for trun and tfhd.
func describeSampleFlags(flags uint32) string {
	isLeading := (flags >> 26) & 3
	dependsOn := (flags >> 24) & 3
	isDependedOn := (flags >> 22) & 3
	hasRedundancy := (flags >> 20) & 3
	padding := (flags >> 17) & 7
	isNonSync := (flags >> 16) & 1
	degradation := flags & 0xffff
	sync := "sync"
	if isNonSync != 0 {
		sync = "non-sync"
	}
	return fmt.Sprintf("is_leading=%d depends_on=%d is_depended_on=%d has_redundancy=%d padding=%d %s degradation_priority=%d",
		isLeading, dependsOn, isDependedOn, hasRedundancy, padding, sync, degradation)
}

func parseTfhd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	flags := r.Flags()
	trackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("track_ID", fmt.Sprintf("%d", trackID), "")

	if flags&bmff.TfhdBaseDataOffsetPresent != 0 {
		v, err := cur.U(64)
		if err != nil {
			return ctx, err
		}
		em.Field("base_data_offset", fmt.Sprintf("%d", v), "")
	}
	if flags&bmff.TfhdSampleDescriptionIndexPresent != 0 {
		v, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("sample_description_index", fmt.Sprintf("%d", v), "")
	}
	if flags&bmff.TfhdDefaultSampleDurationPresent != 0 {
		v, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("default_sample_duration", fmt.Sprintf("%d", v), "")
	}
	if flags&bmff.TfhdDefaultSampleSizePresent != 0 {
		v, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("default_sample_size", fmt.Sprintf("%d", v), "")
	}
	if flags&bmff.TfhdDefaultSampleFlagsPresent != 0 {
		v, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("default_sample_flags", fmt.Sprintf("0x%06x", v), describeSampleFlags(uint32(v)))
	}
	if flags&bmff.TfhdDurationIsEmpty != 0 {
		em.Note("duration-is-empty")
	}
	if flags&bmff.TfhdDefaultBaseIsMoof != 0 {
		em.Note("default-base-is-moof flag set")
	}
	return ctx, nil
}

func parseTfdt(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	v, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("baseMediaDecodeTime", fmt.Sprintf("%d", v), durationDesc(v, ctx.Timescale))
	return ctx, nil
}

func parseTrun(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	flags := r.Flags()
	it := bmff.NewTrunIter(r.Data(), flags)
	if flags&bmff.TrunDataOffsetPresent != 0 {
		em.Field("data_offset", fmt.Sprintf("%d", it.DataOffset()), "")
	}
	if flags&bmff.TrunFirstSampleFlagsPresent != 0 {
		em.Field("first_sample_flags", fmt.Sprintf("0x%06x", it.FirstSampleFlags()), describeSampleFlags(it.FirstSampleFlags()))
	}
	var totalDuration, totalSize uint64
	em.Table(int(it.Count()), 0, func(i int) string {
		e, _ := it.Next()
		totalDuration += uint64(e.Duration)
		totalSize += uint64(e.Size)
		line := fmt.Sprintf("[%d]", i)
		if flags&bmff.TrunSampleDurationPresent != 0 {
			line += fmt.Sprintf(" sample_duration=%d", e.Duration)
		}
		if flags&bmff.TrunSampleSizePresent != 0 {
			line += fmt.Sprintf(" sample_size=%d", e.Size)
		}
		if flags&bmff.TrunSampleFlagsPresent != 0 {
			line += fmt.Sprintf(" sample_flags=0x%06x", e.Flags)
		}
		if flags&bmff.TrunSampleCompositionTimeOffsetPresent != 0 {
			line += fmt.Sprintf(" sample_composition_time_offset=%d", e.CompositionTimeOffset)
		}
		return line
	}, func() string {
		return fmt.Sprintf("[samples = %d, duration = %d, bytes = %d]", it.Count(), totalDuration, totalSize)
	})
	return ctx, nil
}

func parseTfra(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	trackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("track_ID", fmt.Sprintf("%d", trackID), "")
	lengthSizeInfo, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	trafNumberSize := 1 + (lengthSizeInfo>>4)&3
	trunNumberSize := 1 + (lengthSizeInfo>>2)&3
	sampleNumberSize := 1 + lengthSizeInfo&3
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	em.Table(int(count), 0, func(i int) string {
		t, _ := cur.U(width)
		moofOff, _ := cur.U(width)
		trafNum, _ := cur.U(uint(trafNumberSize) * 8)
		trunNum, _ := cur.U(uint(trunNumberSize) * 8)
		sampleNum, _ := cur.U(uint(sampleNumberSize) * 8)
		return fmt.Sprintf("[%d] time=%d moof_offset=%d traf_number=%d trun_number=%d sample_number=%d",
			i, t, moofOff, trafNum, trunNum, sampleNum)
	}, nil)
	return ctx, nil
}

func parseMfro(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	size, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("size", fmt.Sprintf("%d", size), "total size of the enclosing mfra box")
	return ctx, nil
}

func parseSidx(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	refID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("reference_ID", fmt.Sprintf("%d", refID), "")
	timescale, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("timescale", fmt.Sprintf("%d", timescale), "")
	width := uint(32)
	if r.Version() != 0 {
		width = 64
	}
	earliestTime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("earliest_presentation_time", fmt.Sprintf("%d", earliestTime), "")
	firstOffset, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("first_offset", fmt.Sprintf("%d", firstOffset), "")
	if err := cur.Skip(16); err != nil { // reserved
		return ctx, err
	}
	count, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Table(int(count), 0, func(i int) string {
		v, _ := cur.U(32)
		refType := v >> 31
		refSize := v & 0x7fffffff
		dur, _ := cur.U(32)
		v2, _ := cur.U(32)
		startsWithSAP := v2 >> 31
		sapType := (v2 >> 28) & 7
		sapDelta := v2 & 0x0fffffff
		return fmt.Sprintf("[%d] reference_type=%d referenced_size=%d subsegment_duration=%d starts_with_SAP=%d SAP_type=%d SAP_delta_time=%d",
			i, refType, refSize, dur, startsWithSAP, sapType, sapDelta)
	}, nil)
	return ctx, nil
}

func parseSsix(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	subsegCount, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Table(int(subsegCount), 0, func(i int) string {
		rangeCount, _ := cur.U(32)
		var ranges []string
		for rc := uint64(0); rc < rangeCount; rc++ {
			level, _ := cur.U(8)
			rangeSize, _ := cur.U(24)
			ranges = append(ranges, fmt.Sprintf("%d:%d", level, rangeSize))
		}
		return fmt.Sprintf("[%d] ranges=%v", i, ranges)
	}, nil)
	return ctx, nil
}

func parseEmsg(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if r.Version() == 1 {
		timescale, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("timescale", fmt.Sprintf("%d", timescale), "")
		presentationTimeDelta, err := cur.U(64)
		if err != nil {
			return ctx, err
		}
		em.Field("presentation_time", fmt.Sprintf("%d", presentationTimeDelta), "")
		eventDuration, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("event_duration", fmt.Sprintf("%d", eventDuration), "")
		id, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("id", fmt.Sprintf("%d", id), "")
		schemeIDURI, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("scheme_id_uri", schemeIDURI, "")
		value, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("value", value, "")
	} else {
		schemeIDURI, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("scheme_id_uri", schemeIDURI, "")
		value, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("value", value, "")
		timescale, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("timescale", fmt.Sprintf("%d", timescale), "")
		presentationTimeDelta, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("presentation_time_delta", fmt.Sprintf("%d", presentationTimeDelta), "")
		eventDuration, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("event_duration", fmt.Sprintf("%d", eventDuration), "")
		id, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("id", fmt.Sprintf("%d", id), "")
	}
	if !cur.AtEnd() {
		em.Field("message_data", fmt.Sprintf("(%d bytes)", cur.Remaining()), "")
	}
	return ctx, nil
}

func parsePrft(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	refTrackID, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("reference_track_ID", fmt.Sprintf("%d", refTrackID), "")
	ntpTimestamp, err := cur.U(64)
	if err != nil {
		return ctx, err
	}
	em.Field("ntp_timestamp", fmt.Sprintf("%d", ntpTimestamp), "")
	width := uint(32)
	if r.Version() == 1 {
		width = 64
	}
	mediaTime, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("media_time", fmt.Sprintf("%d", mediaTime), "")
	return ctx, nil
}
