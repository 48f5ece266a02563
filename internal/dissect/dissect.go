// Package dissect drives the top-level box loop: it scans a stream's
// top-level boxes with bmff.Scanner, decides which ones need to be loaded
// into memory for recursive decoding, and hands each loaded box to the
// internal/boxes registry. Opaque boxes (mdat, free, skip) are reported
// by size alone without being read into memory.
package dissect

import (
	"fmt"
	"io"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/boxes"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

// opaqueTopLevelTypes are top-level boxes never loaded into memory: their
// payload is either genuinely large (mdat) or uninteresting padding
// (free/skip). They are reported by size alone.
var opaqueTopLevelTypes = map[bmff.BoxType]bool{
	bmff.TypeMdat: true,
	bmff.TypeFree: true,
	bmff.TypeSkip: true,
}

// Run dissects every top-level box in rs, writing the rendered tree via em.
// It returns a non-nil error only for a low-level I/O or seek failure while
// scanning box headers, or when not even the first box header can be read;
// a truncated final box's body and per-box parse
// errors are reported inline through em and do not propagate, per the
// recoverable-error policy. sencIVSize, when nonzero, seeds the initial
// context's --senc-per-sample-iv override so senc boxes with no preceding
// tenc in scope can still be decoded.
func Run(rs io.ReadSeeker, em *emit.Emitter, sencIVSize int) error {
	boxes.Init()
	sc := bmff.NewScanner(rs)
	ctx := boxes.Context{}
	if sencIVSize > 0 {
		ctx.SencIVSizeOverride = uint8(sencIVSize)
		ctx.HasSencIVOverride = true
	}
	scanned := false
	for sc.Next() {
		e := sc.Entry()
		scanned = true
		if opaqueTopLevelTypes[e.Type] {
			reportOpaque(em, e)
			continue
		}

		size := e.Size
		if size < 8 || size > 1<<32 {
			em.Warn(fmt.Sprintf("%s: implausible box size %d at offset %#x, skipping", e.Type, size, e.Offset))
			continue
		}
		buf := make([]byte, size)
		if err := sc.ReadBox(buf); err != nil {
			// A truncated final box is reported, not treated as fatal: dump
			// whatever bytes actually made it into the file and stop, since
			// there is nothing more to scan past a short read.
			n := readTruncated(rs, e.Offset, buf)
			em.ErrorWithDump(fmt.Sprintf("%s: truncated box at offset %#x (declared %d bytes, %d available): %v", e.Type, e.Offset, size, n, err), buf[:n], e.Offset)
			break
		}

		r := bmff.NewReader(buf)
		if !r.Next() {
			em.Warn(fmt.Sprintf("%s: malformed top-level box at offset %#x", e.Type, e.Offset))
			continue
		}
		// Reader's offsets are relative to buf; shift them to the box's
		// true position in the stream so --offsets reflects file position.
		shift := e.Offset
		newCtx, err := boxes.Dispatch(r.Type(), &r, em, ctx.WithBase(shift))
		if err != nil {
			em.ErrorWithDump(err.Error(), r.Data(), shift+int64(r.DataOffset()))
			continue
		}
		ctx = newCtx
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !scanned {
		return fmt.Errorf("no readable box header at the start of the input")
	}
	return nil
}

// readTruncated seeks to offset and fills buf as far as the stream allows,
// returning the number of bytes actually read. Used when a box's declared
// size exceeds what remains in the stream.
func readTruncated(rs io.ReadSeeker, offset int64, buf []byte) int {
	if _, err := rs.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	n, _ := io.ReadFull(rs, buf)
	return n
}

func reportOpaque(em *emit.Emitter, e bmff.ScanEntry) {
	payloadStart := e.Offset + int64(e.HeaderSize)
	payloadEnd := e.Offset + e.Size
	em.Enter(e.Type.String(), opaqueName(e.Type), e.Offset, payloadStart, payloadEnd)
	em.Field("dataLen", fmt.Sprintf("%d", e.DataSize()), "")
	em.Leave()
}

func opaqueName(t bmff.BoxType) string {
	switch t.String() {
	case "mdat":
		return "MediaDataBox"
	case "free", "skip":
		return "FreeSpaceBox"
	}
	return ""
}
