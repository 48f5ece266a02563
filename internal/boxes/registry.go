// Package boxes implements the ISOBMFF box registry: a table mapping box
// types (optionally qualified by parent type) to parser functions, plus
// the recursive descent that drives container boxes.
package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

// ParseFunc renders one box's fields (and, for containers, its children)
// given a Reader positioned at that box, and returns the context to use
// for this box's later siblings (most parsers return ctx unchanged).
type ParseFunc func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error)

type regEntry struct {
	name  string
	parse ParseFunc
}

type regKey struct {
	parent bmff.BoxType
	typ    bmff.BoxType
}

// wildcardParent is the zero BoxType. lookup gives it no special meaning;
// entries that match any parent live in general instead.
var wildcardParent = bmff.BoxType{}

var qualified = map[regKey]regEntry{}
var general = map[bmff.BoxType]regEntry{}

// register adds an unqualified entry, matched regardless of parent type.
func register(t bmff.BoxType, name string, fn ParseFunc) {
	general[t] = regEntry{name: name, parse: fn}
}

// registerQualified adds an entry that only matches when the box's parent
// is exactly parent (used for dref's "url "/"urn " data-entry variants).
func registerQualified(parent, t bmff.BoxType, name string, fn ParseFunc) {
	qualified[regKey{parent: parent, typ: t}] = regEntry{name: name, parse: fn}
}

// lookup resolves a box's registry entry: first by (parent, type), then
// by type alone. ok is false if nothing is registered.
func lookup(parent, t bmff.BoxType) (regEntry, bool) {
	if e, found := qualified[regKey{parent: parent, typ: t}]; found {
		return e, true
	}
	if e, found := general[t]; found {
		return e, true
	}
	return regEntry{}, false
}

// Dispatch renders one box positioned at r (header already consumed,
// r.Data() is its payload) under the given parent type, emitting its
// header line, its fields (via the registered parser, or a hex-dump
// fallback for unknown types), and returning the context visible to its
// later siblings. Offsets in the header line are shifted by ctx's base
// (see Context.WithBase), so a box loaded into its own buffer still
// reports its true position in the original stream.
func Dispatch(parent bmff.BoxType, r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	typ := r.Type()
	hdrOff := ctx.base + int64(r.Offset())
	payloadStart := ctx.base + int64(r.DataOffset())
	payloadEnd := payloadStart + int64(len(r.Data()))

	entry, known := lookup(parent, typ)
	name := entry.name
	if !known {
		name = guessUnknownName(r)
	}

	em.Enter(typ.String(), name, hdrOff, payloadStart, payloadEnd)
	if bmff.IsFullBox(typ) {
		em.Field("version", fmt.Sprintf("%d", r.Version()), "")
		em.Field("flags", fmt.Sprintf("%06x", r.Flags()), "")
	}
	var err error
	newCtx := ctx
	if known {
		newCtx, err = entry.parse(r, em, ctx)
	} else {
		renderUnknown(r, em, ctx)
	}
	if err != nil {
		em.ErrorWithDump(fmt.Sprintf("%s at offset %#x: %v", typ.String(), hdrOff, err), r.Data(), payloadStart)
	}
	em.Leave()
	return newCtx, nil
}

// guessUnknownName labels an unregistered box type, noting full-box-ness
// so the header line is still informative.
func guessUnknownName(r *bmff.Reader) string {
	if bmff.IsFullBox(r.Type()) {
		return "(unknown full box)"
	}
	return "(unknown box)"
}

// renderUnknown hex-dumps an unregistered box's payload. If the payload
// looks like it might itself be a sequence of boxes (its first child's
// declared size is plausible), it is descended as a generic container
// instead, per the "probable container" probe in the error-handling design.
func renderUnknown(r *bmff.Reader, em *emit.Emitter, ctx Context) {
	data := r.Data()
	if looksLikeContainer(data) {
		em.Note("(unrecognized box; contents look like a box sequence)")
		r.Enter()
		for r.Next() {
			// Handler type/timescale do not matter for a speculative probe
			// descent, but the offset base must still carry through.
			Dispatch(r.Type(), r, em, Context{}.WithBase(ctx.base))
		}
		r.Exit()
		return
	}
	em.Hexdump(data, ctx.base+int64(r.DataOffset()), 0)
}

// looksLikeContainer heuristically checks whether data's first 8 bytes
// parse as a plausible box header whose declared size fits within data.
func looksLikeContainer(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	size := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	if size == 0 || size == 1 {
		return len(data) >= 16
	}
	return int64(size) <= int64(len(data))
}

// DescendChildren iterates r's children (r must already be positioned for
// Next after Enter/Skip), dispatching each one under parentType and
// threading ctx across siblings.
func DescendChildren(r *bmff.Reader, em *emit.Emitter, ctx Context, parentType bmff.BoxType) (Context, error) {
	for r.Next() {
		var err error
		ctx, err = Dispatch(parentType, r, em, ctx)
		if err != nil {
			return ctx, fmt.Errorf("%s: %w", parentType, err)
		}
	}
	return ctx, nil
}

// container registers t as a plain container: enter, descend children
// under t, exit. Used for boxes with no preamble before their children.
func container(t bmff.BoxType, name string) {
	register(t, name, func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		r.Enter()
		newCtx, err := DescendChildren(r, em, ctx, t)
		r.Exit()
		if t == bmff.TypeTrak {
			return ctx, err
		}
		return newCtx, err
	})
}

// countedContainer registers t as a container preceded by a 4-byte
// entry_count (stsd, dref): the count is emitted, then children descend.
func countedContainer(t bmff.BoxType, name string) {
	register(t, name, func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		count := r.EntryCount()
		em.Field("entry_count", fmt.Sprintf("%d", count), "")
		r.Enter()
		r.Skip(4)
		newCtx, err := DescendChildren(r, em, ctx, t)
		r.Exit()
		return newCtx, err
	})
}
