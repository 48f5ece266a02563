package boxes

import (
	"fmt"

	"github.com/google/uuid"
	bmff "github.com/mildsunrise/mp4dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
)

func registerDRMBoxes() {
	// sinf, schi, rinf are plain containers already registered by
	// registerContainers(); their children are registered below.
	register(bmff.TypeFrma, "OriginalFormatBox", parseFrma)
	register(bmff.TypeSchm, "SchemeTypeBox", parseSchm)
	register(bmff.TypeTenc, "TrackEncryptionBox", parseTenc)
	register(bmff.TypePssh, "ProtectionSystemSpecificHeaderBox", parsePssh)
	register(bmff.TypeUuid, "UUIDBox", parseUUIDBox)
}

// wellKnownSystemIDs maps DRM system IDs (as used in pssh boxes) to the
// scheme name, grounded on the protection_systems table.
var wellKnownSystemIDs = map[string]string{
	"edef8ba9-79d6-4ace-a3c8-27dcd51d21ed": "Widevine Content Protection",
	"9a04f079-9840-4286-ab92-e65be0885f95": "Microsoft PlayReady",
	"f239e769-efa3-4850-9c16-a903c6932efb": "Adobe Primetime",
	"94ce86fb-07ff-4f43-adb8-93d2fa968ca2": "FairPlay",
	"e2719d58-a985-b3c9-781a-b030af78d30e": "ClearKey (DASH-IF)",
	"1077efec-c0b2-4d02-ace3-3c1e52e2fb4b": "ClearKey (Common)",
	"279fe473-512c-48fe-ade8-d176fee6b40f": "Adobe Access",
	"5e629af5-38da-4063-8977-97ffbd9902d4": "Marlin",
	"616c7469-6361-7374-2d50-726f74656374": "Alticast",
	"adb41c24-2dbf-4a6d-958b-4457c0d27b95": "Nagra",
}

func describeSystemID(b []byte) string {
	if len(b) != 16 {
		return ""
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return ""
	}
	if name, ok := wellKnownSystemIDs[id.String()]; ok {
		return name
	}
	return "unknown DRM system"
}

func parseFrma(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 4 {
		return ctx, fmt.Errorf("frma too short")
	}
	em.Field("data_format", fourCC(data[0:4]), "")
	return ctx, nil
}

func parseSchm(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	schemeType, err := cur.Bytes(4)
	if err != nil {
		return ctx, err
	}
	em.Field("scheme_type", fourCC(schemeType), describeSchemeType(string(schemeType)))
	schemeVersion, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	em.Field("scheme_version", fmt.Sprintf("%08x", schemeVersion), "")
	if r.Flags()&1 != 0 {
		uri, err := cur.Utf8UntilNul()
		if err != nil {
			return ctx, err
		}
		em.Field("scheme_uri", uri, "")
	}
	return ctx, nil
}

func describeSchemeType(t string) string {
	switch t {
	case "cenc":
		return "AES-CTR full sample/subsample encryption"
	case "cbc1":
		return "AES-CBC full sample/subsample encryption"
	case "cens":
		return "AES-CTR pattern encryption"
	case "cbcs":
		return "AES-CBC pattern encryption"
	}
	return ""
}

func parseTenc(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	if err := cur.Skip(8); err != nil { // reserved
		return ctx, err
	}
	var cryptByteBlock, skipByteBlock uint64
	if r.Version() != 0 {
		cryptByteBlock, _ = cur.U(4)
		skipByteBlock, _ = cur.U(4)
		em.Field("default_crypt_byte_block", fmt.Sprintf("%d", cryptByteBlock), "")
		em.Field("default_skip_byte_block", fmt.Sprintf("%d", skipByteBlock), "")
	} else {
		if err := cur.Skip(8); err != nil {
			return ctx, err
		}
	}
	isProtected, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Field("default_isProtected", fmt.Sprintf("%d", isProtected), "")
	ivSize, err := cur.U(8)
	if err != nil {
		return ctx, err
	}
	em.Field("default_Per_Sample_IV_Size", fmt.Sprintf("%d", ivSize), "")
	kid, err := cur.Bytes(16)
	if err != nil {
		return ctx, err
	}
	em.Field("default_KID", fmt.Sprintf("%x", kid), "")

	newCtx := ctx
	if isProtected != 0 && ivSize == 0 {
		constIVSize, err := cur.U(8)
		if err == nil {
			em.Field("default_constant_IV_size", fmt.Sprintf("%d", constIVSize), "")
			if constIV, err := cur.Bytes(int(constIVSize)); err == nil {
				em.Field("default_constant_IV", fmt.Sprintf("%x", constIV), "")
			}
		}
	} else {
		newCtx.TencDefaultIVSize = uint8(ivSize)
		newCtx.HasTencDefaultIV = true
	}
	return newCtx, nil
}

func parsePssh(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	cur := bmff.NewCursor(r.Data(), int64(r.DataOffset()))
	systemID, err := cur.Bytes(16)
	if err != nil {
		return ctx, err
	}
	em.Field("SystemID", formatUUID(systemID), describeSystemID(systemID))
	if r.Version() > 0 {
		kidCount, err := cur.U(32)
		if err != nil {
			return ctx, err
		}
		em.Table(int(kidCount), 0, func(i int) string {
			kid, _ := cur.Bytes(16)
			return fmt.Sprintf("[%d] KID=%x", i, kid)
		}, nil)
	}
	dataSize, err := cur.U(32)
	if err != nil {
		return ctx, err
	}
	data, err := cur.Bytes(int(dataSize))
	if err != nil {
		return ctx, err
	}
	em.Field("DataSize", fmt.Sprintf("%d", dataSize), "")
	if dataSize > 0 {
		em.Hexdump(data, cur.Offset()-int64(dataSize), 0)
	}
	return ctx, nil
}

// wellKnownBoxUUIDs maps secondary "uuid" box usages (not pssh SystemIDs)
// to a human name, e.g. the legacy Smooth Streaming/PIFF sample encryption
// box, which predates standardized senc/saio/saiz.
var wellKnownBoxUUIDs = map[string]string{
	"a2394f52-5a9b-4f14-a244-6c427c648df4": "PIFF Sample Encryption Box",
	"d08a4f18-10f3-4a82-b6c8-32d8aba183d3": "PIFF Protection System Specific Header Box",
	"6d1d9b05-42d5-44e6-80e2-141daff757b2": "PIFF Track Encryption Box",
}

// parseUUIDBox handles a top-level "uuid" box. The Reader does not special
// case uuid's 16-byte extended type, so Data() begins with it followed by
// the box's real payload.
func parseUUIDBox(r *bmff.Reader, em *emit.Emitter, ctx Context) (Context, error) {
	data := r.Data()
	if len(data) < 16 {
		em.Hexdump(data, int64(r.DataOffset()), 0)
		return ctx, nil
	}
	idBytes := data[0:16]
	payload := data[16:]
	if name, ok := wellKnownBoxUUIDs[formatUUID(idBytes)]; ok {
		em.Field("usertype", formatUUID(idBytes), name)
	} else {
		em.Field("usertype", formatUUID(idBytes), "unrecognized extended type")
	}
	if len(payload) > 0 {
		em.Hexdump(payload, int64(r.DataOffset())+16, 0)
	}
	return ctx, nil
}

func formatUUID(b []byte) string {
	if len(b) != 16 {
		return ""
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return ""
	}
	return id.String()
}
