package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerSampleTableBoxes() {
	register(bmff.TypeStts, "TimeToSampleBox", parseStts)
	register(bmff.TypeCtts, "CompositionOffsetBox", parseCtts)
	register(bmff.TypeCslg, "CompositionToDecodeBox", parseCslg)
	register(bmff.TypeStsc, "SampleToChunkBox", parseStsc)
	register(bmff.TypeStsz, "SampleSizeBox", parseStsz)
	register(bmff.TypeStz2, "CompactSampleSizeBox", parseStz2)
	register(bmff.TypeStco, "ChunkOffsetBox", parseStco)
	register(bmff.TypeCo64, "ChunkLargeOffsetBox", parseCo64)
	register(bmff.TypeStss, "SyncSampleBox", parseUint32Table("sample_number"))
	register(bmff.TypeStsh, "ShadowSyncSampleBox", parseStsh)
	register(bmff.TypeSdtp, "IndependentAndDisposableSamplesBox", parseSdtp)
	register(bmff.TypePadb, "PaddingBitsBox", parsePadb)
	register(bmff.TypeStdp, "DegradationPriorityBox", parseUint16Table("priority"))
	register(bmff.TypeSbgp, "SampleToGroupBox", parseSbgp)
	register(bmff.TypeSgpd, "SampleGroupDescriptionBox", parseSgpd)
	register(bmff.TypeSubs, "SubSampleInformationBox", parseSubs)
	register(bmff.TypeSaiz, "SampleAuxiliaryInformationSizesBox", parseSaiz)
	register(bmff.TypeSaio, "SampleAuxiliaryInformationOffsetsBox", parseSaio)
	register(bmff.TypeSenc, "SampleEncryptionBox", parseSenc)
}

func parseStts(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewSttsIter(r.Data())
	var totalSamples, totalTime uint64
	em.Table(int(it.Count()), 0, func(i int) string {
		e, _ := it.Next()
		totalSamples += uint64(e.Count)
		totalTime += uint64(e.Count) * uint64(e.Duration)
		return fmt.Sprintf("[%d] sample_count=%d sample_delta=%d", i, e.Count, e.Duration)
	}, func() string {
		return fmt.Sprintf("[samples = %d, time = %d]", totalSamples, totalTime)
	})
	return ctx, nil
}

func parseCtts(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewCttsIter(r.Data(), r.Version())
	em.Table(int(it.Count()), 0, func(i int) string {
		e, _ := it.Next()
		return fmt.Sprintf("[%d] sample_count=%d sample_offset=%d", i, e.Count, e.Offset)
	}, nil)
	return ctx, nil
}

func parseCslg(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	names := []string{
		"compositionToDTSShift", "leastDecodeToDisplayDelta", "greatestDecodeToDisplayDelta",
		"compositionStartTime", "compositionEndTime",
	}
	for _, name := range names {
		v, err := cur.S(32)
		if err != nil {
			return ctx, err
		}
		em.Field(name, fmt.Sprintf("%d", v), "")
	}
	return ctx, nil
}

func parseStsc(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewStscIter(r.Data())
	em.Table(int(it.Count()), 0, func(i int) string {
		e, _ := it.Next()
		return fmt.Sprintf("[%d] first_chunk=%d samples_per_chunk=%d sample_description_index=%d",
			i, e.FirstChunk, e.SamplesPerChunk, e.SampleDescriptionId)
	}, nil)
	return ctx, nil
}

func parseStsz(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 8 {
		return ctx, fmt.Errorf("stsz too short")
	}
	sampleSize := be32(data[0:4])
	it := bmff.NewStszIter(data)
	em.Field("sample_size", fmt.Sprintf("%d", sampleSize), "")
	if sampleSize != 0 {
		em.Field("sample_count", fmt.Sprintf("%d", it.Count()), "")
		return ctx, nil
	}
	var total uint64
	em.Table(int(it.Count()), 0, func(i int) string {
		size, _ := it.Next()
		total += uint64(size)
		return fmt.Sprintf("[%d] entry_size=%d", i, size)
	}, func() string {
		return fmt.Sprintf("[samples = %d, bytes = %d]", it.Count(), total)
	})
	return ctx, nil
}

func parseStz2(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if err := cur.Skip(24); err != nil { // reserved
		return ctx, err
	}
	fieldSize, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("field_size", fmt.Sprintf("%d", fieldSize), "")
	var total uint64
	em.Table(int(count), 0, func(i int) string {
		v, _ := cur.U(uint(fieldSize))
		total += v
		return fmt.Sprintf("[%d] entry_size=%d", i, v)
	}, func() string {
		return fmt.Sprintf("[samples = %d, bytes = %d]", count, total)
	})
	return ctx, nil
}

func parseStco(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewUint32Iter(r.Data())
	em.Table(int(it.Count()), 0, func(i int) string {
		v, _ := it.Next()
		return fmt.Sprintf("[%d] chunk_offset=%d", i, v)
	}, nil)
	return ctx, nil
}

func parseCo64(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	it := bmff.NewCo64Iter(r.Data())
	em.Table(int(it.Count()), 0, func(i int) string {
		v, _ := it.Next()
		return fmt.Sprintf("[%d] chunk_offset=%d", i, v)
	}, nil)
	return ctx, nil
}

func parseUint32Table(label string) ParseFunc {
	return func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		it := bmff.NewUint32Iter(r.Data())
		em.Table(int(it.Count()), 0, func(i int) string {
			v, _ := it.Next()
			return fmt.Sprintf("[%d] %s=%d", i, label, v)
		}, nil)
		return ctx, nil
	}
}

func parseUint16Table(label string) ParseFunc {
	return func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
		count, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Table(int(count), 0, func(i int) string {
			v, _ := cur.U(16)
			return fmt.Sprintf("[%d] %s=%d", i, label, v)
		}, nil)
		return ctx, nil
	}
}

func parseStsh(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Table(int(count), 0, func(i int) string {
		shadowed, _ := cur.U(32)
		syncSample, _ := cur.U(32)
		return fmt.Sprintf("[%d] shadowed_sample_number=%d sync_sample_number=%d", i, shadowed, syncSample)
	}, nil)
	return ctx, nil
}

func parseSdtp(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	em.Table(len(data), 0, func(i int) string {
		b := data[i]
		return fmt.Sprintf("[%d] is_leading=%d sample_depends_on=%d sample_is_depended_on=%d sample_has_redundancy=%d",
			i, (b>>6)&3, (b>>4)&3, (b>>2)&3, b&3)
	}, nil)
	return ctx, nil
}

func parsePadb(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	entries := (count + 1) / 2
	em.Table(int(entries), 0, func(i int) string {
		if err := cur.Skip(1); err != nil { // reserved
			return ""
		}
		pad1, _ := cur.U(3)
		if err := cur.Skip(1); err != nil {
			return ""
		}
		pad2, _ := cur.U(3)
		return fmt.Sprintf("[%d] pad1=%d pad2=%d", i, pad1, pad2)
	}, nil)
	return ctx, nil
}

func parseSbgp(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	groupingType, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	em.Field("grouping_type", fourCC(groupingType), "")
	if r.Version() == 1 {
		param, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("grouping_type_parameter", fmt.Sprintf("%d", param), "")
	}
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Table(int(count), 0, func(i int) string {
		sampleCount, _ := cur.U(32)
		groupDescIdx, _ := cur.U(32)
		return fmt.Sprintf("[%d] sample_count=%d group_description_index=%d", i, sampleCount, groupDescIdx)
	}, nil)
	return ctx, nil
}

// knownSgpdEntrySizes covers the grouping types with a well-understood
// fixed record layout; anything else renders generically (REDESIGN FLAGS:
// the original raised NotImplementedError for version>=2 unknown types).
var knownSgpdEntrySizes = map[string]int{
	"roll": 2, // rollDistance, int16
}

func parseSgpd(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	groupingType, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	gt := string(groupingType)
	em.Field("grouping_type", fourCC(groupingType), "")

	var defaultLength uint64
	if r.Version() == 1 {
		defaultLength, err = cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("default_length", fmt.Sprintf("%d", defaultLength), "")
	}
	if r.Version() >= 2 {
		defaultSampleDescIdx, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Field("default_sample_description_index", fmt.Sprintf("%d", defaultSampleDescIdx), "")
	}
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}

	fixedSize, known := knownSgpdEntrySizes[gt]
	em.Table(int(count), 0, func(i int) string {
		entryLen := int(defaultLength)
		if known {
			entryLen = fixedSize
		}
		if r.Version() == 1 && defaultLength == 0 {
			l, _ := cur.U(32)
			entryLen = int(l)
		}
		b, err := cur.Bytes(entryLen)
		if err != nil {
			return fmt.Sprintf("[%d] <truncated>", i)
		}
		return fmt.Sprintf("[%d] (%d bytes) %x", i, len(b), b)
	}, nil)
	return ctx, nil
}

func parseSubs(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	entryCount, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Table(int(entryCount), 0, func(i int) string {
		sampleDelta, _ := cur.U(32)
		subsampleCount, _ := cur.U(16)
		var b []byte
		for s := uint64(0); s < subsampleCount; s++ {
			if r.Version() == 1 {
				cur.Skip(32)
			} else {
				cur.Skip(16)
			}
			cur.Skip(8)  // priority
			cur.Skip(8)  // discardable
			cur.Skip(32) // codec_specific_parameters
		}
		_ = b
		return fmt.Sprintf("[%d] sample_delta=%d subsample_count=%d", i, sampleDelta, subsampleCount)
	}, nil)
	return ctx, nil
}

func parseSaiz(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	it := bmff.NewSaizIter(data, r.Flags())
	if r.Flags()&1 != 0 && len(data) >= 8 {
		auxType := data[0:4]
		auxParam := be32(data[4:8])
		em.Field("aux_info_type", fourCC(auxType), "")
		em.Field("aux_info_type_parameter", fmt.Sprintf("%d", auxParam), "")
	}
	em.Table(int(it.Count()), 0, func(i int) string {
		sz, _ := it.Next()
		return fmt.Sprintf("[%d] size=%d", i, sz)
	}, nil)
	return ctx, nil
}

func parseSaio(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if r.Flags()&1 != 0 && len(data) >= 8 {
		em.Field("aux_info_type", fourCC(data[0:4]), "")
		em.Field("aux_info_type_parameter", fmt.Sprintf("%d", be32(data[4:8])), "")
	}
	it := bmff.NewSaioIter(data, r.Version(), r.Flags())
	em.Table(int(it.Count()), 0, func(i int) string {
		off, _ := it.Next()
		return fmt.Sprintf("[%d] offset=%d", i, off)
	}, nil)
	return ctx, nil
}

func parseSenc(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	cur := bmff.NewCursor(data, int64(r.DataOffset()))
	count, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	ivSize, ok := ctx.IVSize()
	if !ok {
		em.Warn("no Per_Sample_IV_Size known (no tenc in scope and no --senc-per-sample-iv); hex-dumping")
		em.Hexdump(cur.PeekRemaining(), cur.Offset(), 0)
		return ctx, nil
	}
	useSubsamples := r.Flags()&0x2 != 0
	em.Table(int(count), 0, func(i int) string {
		iv, err := cur.Bytes(int(ivSize))
		if err != nil {
			return fmt.Sprintf("[%d] <truncated>", i)
		}
		line := fmt.Sprintf("[%d] InitializationVector=%x", i, iv)
		if useSubsamples {
			subCount, _ := cur.U(16)
			line += fmt.Sprintf(" subsample_count=%d", subCount)
			for s := uint64(0); s < subCount; s++ {
				cur.Skip(16) // clear_bytes
				cur.Skip(32) // encrypted_bytes
			}
		}
		return line
	}, nil)
	return ctx, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
