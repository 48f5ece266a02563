package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerMetaBoxes() {
	register(bmff.TypeCprt, "CopyrightBox", parseCprt)
	register(bmff.TypeIloc, "ItemLocationBox", parseIloc)
	register(bmff.TypePitm, "PrimaryItemBox", parsePitm)
	register(bmff.TypeIpro, "ItemProtectionBox", parseIpro)
	register(bmff.TypeInfe, "ItemInfoEntry", parseInfe)
	register(bmff.TypeIinf, "ItemInfoBox", parseIinf)
	register(bmff.TypeIdat, "ItemDataBox", parseIdat)
	register(bmff.TypeID32, "ID3v2Box", parseID32)
}

func parseCprt(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	pad, err := cur.U(1)
	if err != nil {
		return ctx, err
	}
	_ = pad
	lang, err := cur.U(15)
	if err != nil {
		return ctx, err
	}
	em.Field("language", fmt.Sprintf("%d", lang), describeLanguage(uint16(lang)))
	notice, err := cur.Utf8UntilNul()
	if err != nil {
		return ctx, err
	}
	em.Field("notice", fmt.Sprintf("%q", notice), "")
	return ctx, nil
}

func parseIloc(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	offsetSize, err := cur.U(4)
	if err != nil {
		return ctx, err
	}
	lengthSize, err := cur.U(4)
	if err != nil {
		return ctx, err
	}
	baseOffsetSize, err := cur.U(4)
	if err != nil {
		return ctx, err
	}
	var indexSize uint64
	if r.Version() == 1 || r.Version() == 2 {
		indexSize, err = cur.U(4)
		if err != nil {
			return ctx, err
		}
	} else {
		if err := cur.Skip(4); err != nil { // reserved
			return ctx, err
		}
	}
	em.Field("offset_size", fmt.Sprintf("%d", offsetSize), "")
	em.Field("length_size", fmt.Sprintf("%d", lengthSize), "")
	em.Field("base_offset_size", fmt.Sprintf("%d", baseOffsetSize), "")

	var itemCount uint64
	if r.Version() == 2 {
		itemCount, err = cur.U(32)
	} else {
		itemCount, err = cur.U(16)
	}
	if err != nil {
		return ctx, err
	}

	em.Table(int(itemCount), 0, func(i int) string {
		var itemID uint64
		if r.Version() == 2 {
			itemID, _ = cur.U(32)
		} else {
			itemID, _ = cur.U(16)
		}
		if r.Version() == 1 || r.Version() == 2 {
			cur.Skip(12) // reserved(12)
			cur.Skip(4)  // construction_method
		}
		dataRefIdx, _ := cur.U(16)
		baseOffset, _ := cur.U(uint(baseOffsetSize) * 8)
		extentCount, _ := cur.U(16)
		line := fmt.Sprintf("[%d] item_ID=%d data_reference_index=%d base_offset=%d extent_count=%d",
			i, itemID, dataRefIdx, baseOffset, extentCount)
		for e := uint64(0); e < extentCount; e++ {
			if (r.Version() == 1 || r.Version() == 2) && indexSize > 0 {
				cur.Skip(uint(indexSize) * 8)
			}
			extOffset, _ := cur.U(uint(offsetSize) * 8)
			extLength, _ := cur.U(uint(lengthSize) * 8)
			line += fmt.Sprintf(" extent[%d]={offset=%d,length=%d}", e, extOffset, extLength)
		}
		return line
	}, nil)
	return ctx, nil
}

func parsePitm(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(16)
	if r.Version() != 0 {
		width = 32
	}
	id, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("item_ID", fmt.Sprintf("%d", id), "")
	return ctx, nil
}

func parseIpro(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 2 {
		return ctx, fmt.Errorf("ipro too short")
	}
	count := uint16(data[0])<<8 | uint16(data[1])
	em.Field("protection_count", fmt.Sprintf("%d", count), "")
	r.Enter()
	r.Skip(2)
	newCtx, err := DescendChildren(r, em, ctx, bmff.TypeIpro)
	r.Exit()
	return newCtx, err
}

func parseInfe(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if r.Version() == 0 || r.Version() == 1 {
		itemID, err := cur.U(16)
		if err != nil {
			return ctx, err
		}
		em.Field("item_ID", fmt.Sprintf("%d", itemID), "")
		protIdx, err := cur.U(16)
		if err != nil {
			return ctx, err
		}
		em.Field("item_protection_index", fmt.Sprintf("%d", protIdx), "")
		if r.Version() == 1 && !cur.AtEnd() {
			extType, _ := cur.Bytes(4)
			em.Field("extension_type", fourCC(extType), "")
		}
		return ctx, nil
	}
	var itemID uint64
	var err error
	if r.Version() == 2 {
		itemID, err = cur.U(16)
	} else {
		itemID, err = cur.U(32)
	}
	if err != nil {
		return ctx, err
	}
	em.Field("item_ID", fmt.Sprintf("%d", itemID), "")
	protIdx, err := cur.U(16)
	if err != nil {
		return ctx, err
	}
	em.Field("item_protection_index", fmt.Sprintf("%d", protIdx), "")
	itemType, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	em.Field("item_type", fourCC(itemType), describeItemType(string(itemType)))
	name, err := cur.Utf8UntilNul()
	if err != nil {
		return ctx, err
	}
	em.Field("item_name", fmt.Sprintf("%q", name), "")
	if string(itemType) == "mime" && !cur.AtEnd() {
		mime, _ := cur.Utf8UntilNul()
		em.Field("content_type", mime, "")
	}
	return ctx, nil
}

func describeItemType(t string) string {
	switch t {
	case "mime":
		return "MIME media type item"
	case "uri ":
		return "URI item"
	case "hvc1":
		return "HEVC image item"
	case "av01":
		return "AV1 image item"
	case "grid":
		return "derived grid image item"
	case "Exif":
		return "EXIF metadata item"
	}
	return ""
}

func parseIinf(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	width := uint(16)
	if r.Version() != 0 {
		width = 32
	}
	count, err := cur.U(width)
	if err != nil {
		return ctx, err
	}
	em.Field("entry_count", fmt.Sprintf("%d", count), "")
	r.Enter()
	if r.Version() != 0 {
		r.Skip(4)
	} else {
		r.Skip(2)
	}
	newCtx, err := DescendChildren(r, em, ctx, bmff.TypeIinf)
	r.Exit()
	return newCtx, err
}

func parseIdat(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	em.Hexdump(r.Data(), int64(r.DataOffset()), 0)
	return ctx, nil
}

func parseID32(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if err := cur.Skip(1); err != nil { // pad
		return ctx, err
	}
	lang, err := cur.U(15)
	if err != nil {
		return ctx, err
	}
	em.Field("language", fmt.Sprintf("%d", lang), describeLanguage(uint16(lang)))
	if !cur.AtEnd() {
		rest, _ := cur.Bytes(cur.Remaining())
		em.Field("ID3v2data", fmt.Sprintf("(%d bytes)", len(rest)), "")
		em.Hexdump(rest, cur.Offset()-int64(len(rest)), 0)
	}
	return ctx, nil
}
