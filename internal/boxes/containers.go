package boxes

import (
	"fmt"

	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerContainers() {
	container(bmff.TypeMoov, "MovieBox")
	container(bmff.TypeTrak, "TrackBox")
	container(bmff.TypeEdts, "EditBox")
	container(bmff.TypeMdia, "MediaBox")
	container(bmff.TypeMinf, "MediaInformationBox")
	container(bmff.TypeStbl, "SampleTableBox")
	container(bmff.TypeDinf, "DataInformationBox")
	container(bmff.TypeUdta, "UserDataBox")
	container(bmff.TypeMvex, "MovieExtendsBox")
	container(bmff.TypeMoof, "MovieFragmentBox")
	container(bmff.TypeTraf, "TrackFragmentBox")
	container(bmff.TypeTref, "TrackReferenceBox")
	container(bmff.TypeTrgr, "TrackGroupBox")
	container(bmff.TypeMfra, "MovieFragmentRandomAccessBox")
	container(bmff.TypeSinf, "ProtectionSchemeInfoBox")
	container(bmff.TypeSchi, "SchemeInformationBox")
	container(bmff.TypeRinf, "RestrictedSchemeInfoBox")
	container(bmff.TypeWave, "SoundDescriptionExtension")
	container(bmff.TypeIref, "ItemReferenceBox")
	container(bmff.TypeIprp, "ItemPropertiesBox")
	container(bmff.TypeIpco, "ItemPropertyContainerBox")

	countedContainer(bmff.TypeDref, "DataReferenceBox")
	countedContainer(bmff.TypeStsd, "SampleDescriptionBox")

	registerQualified(bmff.TypeDref, bmff.TypeUrl, "DataEntryUrlBox", parseDataEntryUrl)
	registerQualified(bmff.TypeDref, bmff.TypeUrn, "DataEntryUrnBox", parseDataEntryUrn)

	// meta is a FullBox whose payload is itself a sequence of child boxes.
	register(bmff.TypeMeta, "MetaBox", func(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
		r.Enter()
		_, err := DescendChildren(r, em, ctx, bmff.TypeMeta)
		r.Exit()
		return ctx, err
	})
}

func parseDataEntryUrl(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if r.Flags()&1 != 0 {
		em.Note("self-contained (no location field)")
		return ctx, nil
	}
	loc, err := cur.Utf8UntilNul()
	if err != nil {
		return ctx, err
	}
	em.Field("location", loc, "")
	return ctx, nil
}

func parseDataEntryUrn(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if r.Flags()&1 != 0 {
		em.Note("self-contained (no name/location fields)")
		return ctx, nil
	}
	name, err := cur.Utf8UntilNul()
	if err != nil {
		return ctx, err
	}
	em.Field("name", name, "")
	if !cur.AtEnd() {
		loc, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("location", loc, "")
	}
	return ctx, nil
}

// drainTrailing reports and hex-dumps any bytes left in cur once a
// grammar believes it has consumed everything it declares.
func drainTrailing(cur *bmff.Cursor, em *emit.Emitter, boxName string) {
	if cur.AtEnd() {
		return
	}
	n := cur.Remaining()
	em.Warn(fmt.Sprintf("%d trailing byte(s) in %s", n, boxName))
	if b, err := cur.Bytes(n); err == nil {
		em.Hexdump(b, cur.Offset()-int64(n), 0)
	}
}
