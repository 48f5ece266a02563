// Package descriptor decodes MPEG-4 Part 1 descriptor chains (ISO/IEC
// 14496-1), the "tag + varint size + payload" records nested inside esds
// and iods boxes. It is not itself an ISOBMFF box grammar, but the box
// registry in internal/boxes calls into it whenever it meets an esds/iods
// payload.
package descriptor

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

// Handler decodes one descriptor's payload, already scoped to its
// declared size by ParseDescriptor. It may recurse via ParseDescriptors
// for descriptors that nest children (ES_Descriptor, InitialObjectDescriptor, …).
type Handler func(cur *bmff.Cursor, em *emit.Emitter) error

type entry struct {
	name    string
	handler Handler
}

// registry maps a descriptor tag byte to its display name and handler.
// Tags not present here are rendered as a hex dump with their tag and
// declared length, per the "unknown descriptor" policy.
var registry map[uint8]entry

func init() {
	registry = map[uint8]entry{
		0x02: {"InitialObjectDescriptor", parseInitialObjectDescriptor},
		0x03: {"ES_Descriptor", parseESDescriptor},
		0x04: {"DecoderConfigDescriptor", parseDecoderConfigDescriptor},
		0x05: {"DecoderSpecificInfo", parseOpaque},
		0x06: {"SLConfigDescriptor", parseSLConfigDescriptor},
		0x0e: {"ES_ID_Inc", parseESIDInc},
		0x0f: {"ES_ID_Ref", parseESIDRef},
		0x10: {"MP4InitialObjectDescriptor", parseInitialObjectDescriptor},
	}
}

// ParseDescriptors reads descriptors from cur until cur is exhausted,
// emitting each as a nested scope. Used both at the top level of esds/iods
// and by handlers whose grammar ends in a child-descriptor list.
func ParseDescriptors(cur *bmff.Cursor, em *emit.Emitter) error {
	for !cur.AtEnd() {
		if err := ParseDescriptor(cur, em); err != nil {
			return err
		}
	}
	return nil
}

// ParseDescriptor reads one tag+size+payload descriptor from cur and
// dispatches it to its registered handler, or hex-dumps it if the tag is
// unknown.
func ParseDescriptor(cur *bmff.Cursor, em *emit.Emitter) error {
	hdrOff := cur.Offset()

	tagVal, err := cur.U(8)
	if err != nil {
		return fmt.Errorf("descriptor tag: %w", err)
	}
	tag := uint8(tagVal)
	if tag == 0x00 || tag == 0xff {
		return fmt.Errorf("forbidden descriptor tag %#02x at offset %#x", tag, hdrOff)
	}

	size, err := readVarLength(cur)
	if err != nil {
		return fmt.Errorf("descriptor %#02x size: %w", tag, err)
	}

	payloadStart := cur.Offset()
	sub, err := cur.Sub(int(size))
	if err != nil {
		return fmt.Errorf("descriptor %#02x payload (declared %d bytes): %w", tag, size, err)
	}
	payloadEnd := payloadStart + int64(size)

	e, known := registry[tag]
	name := e.name
	if !known {
		if tag < 0x80 {
			name = "reserved for ISO use"
		} else {
			name = "user private"
		}
	}

	em.Enter(fmt.Sprintf("%d", tag), name, hdrOff, payloadStart, payloadEnd)
	if known {
		if err := e.handler(&sub, em); err != nil {
			em.ErrorWithDump(err.Error(), sub.PeekRemaining(), sub.Offset())
		}
	} else {
		em.Hexdump(sub.PeekRemaining(), payloadStart, 0)
		sub.Skip(uint(sub.Remaining() * 8))
	}
	if !sub.AtEnd() {
		em.Warn(fmt.Sprintf("%d trailing byte(s) in descriptor %#02x", sub.Remaining(), tag))
		if rest, err := sub.Bytes(sub.Remaining()); err == nil {
			em.Hexdump(rest, sub.Offset(), 0)
		}
	}
	em.Leave()
	return nil
}

// readVarLength reads the ISO/IEC 14496-1 descriptor length field: up to
// four bytes, each contributing 7 bits, continuation signaled by the MSB.
func readVarLength(cur *bmff.Cursor) (uint32, error) {
	var size uint32
	for i := 0; i < 4; i++ {
		b, err := cur.U(8)
		if err != nil {
			return 0, err
		}
		size = size<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return size, nil
		}
	}
	return size, nil
}

func parseOpaque(cur *bmff.Cursor, em *emit.Emitter) error {
	data, err := cur.Bytes(cur.Remaining())
	if err != nil {
		return err
	}
	em.Hexdump(data, cur.Offset()-int64(len(data)), 0)
	return nil
}

func parseESDescriptor(cur *bmff.Cursor, em *emit.Emitter) error {
	esID, err := cur.U(16)
	if err != nil {
		return err
	}
	em.Field("ES_ID", fmt.Sprintf("%d", esID), "")

	streamDep, err := cur.U(1)
	if err != nil {
		return err
	}
	urlFlag, err := cur.U(1)
	if err != nil {
		return err
	}
	ocrFlag, err := cur.U(1)
	if err != nil {
		return err
	}
	prio, err := cur.U(5)
	if err != nil {
		return err
	}
	em.Field("streamPriority", fmt.Sprintf("%d", prio), "")

	if streamDep != 0 {
		v, err := cur.U(16)
		if err != nil {
			return err
		}
		em.Field("dependsOn_ES_ID", fmt.Sprintf("%d", v), "")
	}
	if urlFlag != 0 {
		n, err := cur.U(8)
		if err != nil {
			return err
		}
		b, err := cur.Bytes(int(n))
		if err != nil {
			return err
		}
		em.Field("URL", string(b), "")
	}
	if ocrFlag != 0 {
		v, err := cur.U(16)
		if err != nil {
			return err
		}
		em.Field("OCR_ES_ID", fmt.Sprintf("%d", v), "")
	}
	return ParseDescriptors(cur, em)
}

func parseDecoderConfigDescriptor(cur *bmff.Cursor, em *emit.Emitter) error {
	oti, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("objectTypeIndication", fmt.Sprintf("%d", oti), FormatObjectType(uint8(oti)))

	streamType, err := cur.U(6)
	if err != nil {
		return err
	}
	em.Field("streamType", fmt.Sprintf("%d", streamType), FormatStreamType(uint8(streamType)))

	upstream, err := cur.U(1)
	if err != nil {
		return err
	}
	em.Field("upStream", fmt.Sprintf("%d", upstream), "")
	if err := cur.Skip(1); err != nil { // reserved
		return err
	}
	bufSize, err := cur.U(24)
	if err != nil {
		return err
	}
	em.Field("bufferSizeDB", fmt.Sprintf("%d", bufSize), "")

	maxBitrate, err := cur.U(32)
	if err != nil {
		return err
	}
	em.Field("maxBitrate", fmt.Sprintf("%d", maxBitrate), "")
	avgBitrate, err := cur.U(32)
	if err != nil {
		return err
	}
	em.Field("avgBitrate", fmt.Sprintf("%d", avgBitrate), "")

	return ParseDescriptors(cur, em)
}

func parseSLConfigDescriptor(cur *bmff.Cursor, em *emit.Emitter) error {
	predefined, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("predefined", fmt.Sprintf("%#02x", predefined), FormatSLPredefined(uint8(predefined)))
	if predefined != 0 {
		return nil
	}

	flags := [8]string{
		"useAccessUnitStartFlag", "useAccessUnitEndFlag", "useRandomAccessPointFlag",
		"hasRandomAccessUnitsOnlyFlag", "usePaddingFlag", "useTimeStampsFlag",
		"useIdleFlag", "durationFlag",
	}
	var bits [8]uint64
	for i, name := range flags {
		b, err := cur.U(1)
		if err != nil {
			return err
		}
		bits[i] = b
		em.Field(name, fmt.Sprintf("%d", b), "")
	}
	durationFlag := bits[7] != 0

	tsRes, err := cur.U(32)
	if err != nil {
		return err
	}
	em.Field("timeStampResolution", fmt.Sprintf("%d", tsRes), "")
	ocrRes, err := cur.U(32)
	if err != nil {
		return err
	}
	em.Field("OCRResolution", fmt.Sprintf("%d", ocrRes), "")

	tsLen, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("timeStampLength", fmt.Sprintf("%d", tsLen), "")
	ocrLen, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("OCRLength", fmt.Sprintf("%d", ocrLen), "")
	auLen, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("AU_Length", fmt.Sprintf("%d", auLen), "")
	instBitrateLen, err := cur.U(8)
	if err != nil {
		return err
	}
	em.Field("instantBitrateLength", fmt.Sprintf("%d", instBitrateLen), "")

	degPrioLen, err := cur.U(4)
	if err != nil {
		return err
	}
	em.Field("degradationPriorityLength", fmt.Sprintf("%d", degPrioLen), "")
	auSeqLen, err := cur.U(5)
	if err != nil {
		return err
	}
	em.Field("AU_seqNumLength", fmt.Sprintf("%d", auSeqLen), "")
	pktSeqLen, err := cur.U(5)
	if err != nil {
		return err
	}
	em.Field("packetSeqNumLength", fmt.Sprintf("%d", pktSeqLen), "")
	if err := cur.Skip(2); err != nil { // reserved, must be 0b11
		return err
	}

	if durationFlag {
		ts, err := cur.U(32)
		if err != nil {
			return err
		}
		em.Field("timeScale", fmt.Sprintf("%d", ts), "")
		aud, err := cur.U(16)
		if err != nil {
			return err
		}
		em.Field("accessUnitDuration", fmt.Sprintf("%d", aud), "")
		cud, err := cur.U(16)
		if err != nil {
			return err
		}
		em.Field("compositionUnitDuration", fmt.Sprintf("%d", cud), "")
	}
	return nil
}

func parseESIDInc(cur *bmff.Cursor, em *emit.Emitter) error {
	v, err := cur.U(32)
	if err != nil {
		return err
	}
	em.Field("Track_ID", fmt.Sprintf("%d", v), "")
	return nil
}

func parseESIDRef(cur *bmff.Cursor, em *emit.Emitter) error {
	v, err := cur.U(16)
	if err != nil {
		return err
	}
	em.Field("ref_index", fmt.Sprintf("%d", v), "")
	return nil
}

func parseInitialObjectDescriptor(cur *bmff.Cursor, em *emit.Emitter) error {
	odID, err := cur.U(10)
	if err != nil {
		return err
	}
	em.Field("ObjectDescriptorID", fmt.Sprintf("%d", odID), "")
	urlFlag, err := cur.U(1)
	if err != nil {
		return err
	}
	inlineFlag, err := cur.U(1)
	if err != nil {
		return err
	}
	em.Field("includeInlineProfileLevelFlag", fmt.Sprintf("%d", inlineFlag), "")
	if err := cur.Skip(4); err != nil { // reserved
		return err
	}

	if urlFlag != 0 {
		n, err := cur.U(8)
		if err != nil {
			return err
		}
		b, err := cur.Bytes(int(n))
		if err != nil {
			return err
		}
		em.Field("URLstring", string(b), "")
	} else {
		for _, name := range []string{
			"ODProfileLevelIndication", "sceneProfileLevelIndication",
			"audioProfileLevelIndication", "visualProfileLevelIndication",
			"graphicsProfileLevelIndication",
		} {
			v, err := cur.U(8)
			if err != nil {
				return err
			}
			em.Field(name, fmt.Sprintf("%d", v), "")
		}
	}
	return ParseDescriptors(cur, em)
}
