// Package bmff implements streaming decoding primitives for the ISO Base
// Media File Format (ISO/IEC 14496-12): box type identifiers, a top-level
// Scanner for enumerating boxes in a stream without buffering them, a
// bit-level Cursor for decoding box payloads, and a handful of table
// iterators for the sample-table boxes that carry large per-sample records.
package bmff

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// box4cc builds a BoxType from a 4-character string literal.
func box4cc(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

// Known box types. This list follows ISO/IEC 14496-12, -14, -15, 23001-7,
// 23008-12, the Opus-in-ISOBMFF and AV1-in-ISOBMFF community
// specifications, and a handful of ad-hoc MP4RA registrations.
var (
	TypeFtyp = box4cc("ftyp")
	TypeStyp = box4cc("styp") // Segment type box (used in fragmented MP4)
	TypeMdat = box4cc("mdat")
	TypePdin = box4cc("pdin")
	TypeFree = box4cc("free")
	TypeSkip = box4cc("skip")
	TypeUuid = box4cc("uuid")

	// Movie boxes
	TypeMoov = box4cc("moov")
	TypeMvhd = box4cc("mvhd")
	TypeTrak = box4cc("trak")
	TypeTkhd = box4cc("tkhd")
	TypeTref = box4cc("tref")
	TypeTrgr = box4cc("trgr")
	TypeEdts = box4cc("edts")
	TypeElst = box4cc("elst")
	TypeMdia = box4cc("mdia")
	TypeMdhd = box4cc("mdhd")
	TypeHdlr = box4cc("hdlr")
	TypeElng = box4cc("elng")
	TypeMinf = box4cc("minf")
	TypeVmhd = box4cc("vmhd")
	TypeSmhd = box4cc("smhd")
	TypeHmhd = box4cc("hmhd")
	TypeSthd = box4cc("sthd")
	TypeNmhd = box4cc("nmhd")
	TypeDinf = box4cc("dinf")
	TypeDref = box4cc("dref")
	TypeUrl  = box4cc("url ")
	TypeUrn  = box4cc("urn ")

	// Sample table boxes
	TypeStbl = box4cc("stbl")
	TypeStsd = box4cc("stsd")
	TypeStts = box4cc("stts")
	TypeCtts = box4cc("ctts")
	TypeCslg = box4cc("cslg")
	TypeStsc = box4cc("stsc")
	TypeStsz = box4cc("stsz")
	TypeStz2 = box4cc("stz2")
	TypeStco = box4cc("stco")
	TypeCo64 = box4cc("co64")
	TypeStss = box4cc("stss")
	TypeStsh = box4cc("stsh")
	TypePadb = box4cc("padb")
	TypeStdp = box4cc("stdp")
	TypeSdtp = box4cc("sdtp")
	TypeSbgp = box4cc("sbgp")
	TypeSgpd = box4cc("sgpd")
	TypeSubs = box4cc("subs")
	TypeSaiz = box4cc("saiz")
	TypeSaio = box4cc("saio")
	TypeSenc = box4cc("senc")

	// Fragment boxes
	TypeMvex = box4cc("mvex")
	TypeMehd = box4cc("mehd")
	TypeTrex = box4cc("trex")
	TypeLeva = box4cc("leva")
	TypeMoof = box4cc("moof")
	TypeMfhd = box4cc("mfhd")
	TypeTraf = box4cc("traf")
	TypeTfhd = box4cc("tfhd")
	TypeTfdt = box4cc("tfdt")
	TypeTrun = box4cc("trun")
	TypeMfra = box4cc("mfra")
	TypeTfra = box4cc("tfra")
	TypeMfro = box4cc("mfro")
	TypeSidx = box4cc("sidx") // Segment index box
	TypeSsix = box4cc("ssix")
	TypeEmsg = box4cc("emsg") // Event message box
	TypePrft = box4cc("prft")

	// Metadata / item boxes
	TypeMeta = box4cc("meta")
	TypeUdta = box4cc("udta")
	TypeCprt = box4cc("cprt")
	TypeIloc = box4cc("iloc")
	TypePitm = box4cc("pitm")
	TypeIpro = box4cc("ipro")
	TypeInfe = box4cc("infe")
	TypeIinf = box4cc("iinf")
	TypeIdat = box4cc("idat")
	TypeIref = box4cc("iref")
	TypeIprp = box4cc("iprp")
	TypeIpco = box4cc("ipco")
	TypeID32 = box4cc("ID32")
	TypeIlst = box4cc("ilst")
	TypeData = box4cc("data")

	// DRM / protection boxes
	TypeSinf = box4cc("sinf")
	TypeFrma = box4cc("frma")
	TypeSchm = box4cc("schm")
	TypeSchi = box4cc("schi")
	TypeRinf = box4cc("rinf")
	TypeTenc = box4cc("tenc")
	TypePssh = box4cc("pssh")

	// Sample entry boxes
	TypeAvc1 = box4cc("avc1")
	TypeAvc2 = box4cc("avc2")
	TypeAvc3 = box4cc("avc3")
	TypeAvc4 = box4cc("avc4")
	TypeAvcC = box4cc("avcC")
	TypeSvcC = box4cc("svcC")
	TypeSvc1 = box4cc("svc1")
	TypeHvc1 = box4cc("hvc1")
	TypeHev1 = box4cc("hev1")
	TypeHvcC = box4cc("hvcC")
	TypeAv01 = box4cc("av01")
	TypeAv1C = box4cc("av1C")
	TypeEncv = box4cc("encv")
	TypeEnca = box4cc("enca")
	TypeMp4v = box4cc("mp4v")
	TypeMp4a = box4cc("mp4a")
	TypeMp4s = box4cc("mp4s")
	TypeOpus = box4cc("Opus")
	TypeDOps = box4cc("dOps")
	TypeEsds = box4cc("esds")
	TypeIods = box4cc("iods")
	TypeBtrt = box4cc("btrt") // MPEG-4 Bit rate box
	TypePasp = box4cc("pasp") // Pixel aspect ratio box
	TypeClap = box4cc("clap")
	TypeColr = box4cc("colr")
	TypeWave = box4cc("wave")

	// Text / subtitle / generic metadata sample entries
	TypeMetx = box4cc("metx")
	TypeMett = box4cc("mett")
	TypeUrim = box4cc("urim")
	TypeStxt = box4cc("stxt")
	TypeSbtt = box4cc("sbtt")
	TypeStpp = box4cc("stpp")
)

// fullBoxTypes is the set of box types whose payload begins with a 1-byte
// version and 3-byte flags field (ISO/IEC 14496-12 "FullBox").
var fullBoxTypes = map[BoxType]bool{
	TypePdin: true,
	TypeMvhd: true, TypeTkhd: true, TypeElst: true,
	TypeMdhd: true, TypeHdlr: true, TypeElng: true,
	TypeVmhd: true, TypeSmhd: true, TypeHmhd: true, TypeSthd: true, TypeNmhd: true,
	TypeDref: true, TypeUrl: true, TypeUrn: true,
	TypeStsd: true, TypeStdp: true, TypeStts: true, TypeCtts: true, TypeCslg: true,
	TypeStss: true, TypeStsh: true, TypeSdtp: true,
	TypeStsz: true, TypeStz2: true, TypeStsc: true, TypeStco: true, TypeCo64: true,
	TypePadb: true, TypeSubs: true, TypeSaiz: true, TypeSaio: true, TypeSenc: true,
	TypeMehd: true, TypeTrex: true, TypeLeva: true,
	TypeMfhd: true, TypeTfhd: true, TypeTfdt: true, TypeTrun: true,
	TypeTfra: true, TypeMfro: true, TypeSidx: true, TypeSsix: true, TypeEmsg: true, TypePrft: true,
	TypeSbgp: true, TypeSgpd: true,
	TypeMeta: true, TypeCprt: true,
	TypeIloc: true, TypePitm: true, TypeIpro: true, TypeInfe: true, TypeIinf: true, TypeIref: true,
	TypeSchm: true,
	TypeTenc: true,
	TypePssh: true,
	TypeEsds: true,
	TypeIods: true,
	TypeID32: true,
}

// IsFullBox returns true if the box type has version and flags fields.
func IsFullBox(t BoxType) bool {
	return fullBoxTypes[t]
}

// containerBoxTypes is the set of box types whose payload is itself a
// sequence of child boxes, possibly after a small fixed preamble that the
// registered parser consumes before delegating to the generic child loop
// (e.g. stsd/dref's entry_count, meta's version+flags).
var containerBoxTypes = map[BoxType]bool{
	TypeMoov: true, TypeTrak: true, TypeEdts: true, TypeMdia: true,
	TypeMinf: true, TypeDinf: true, TypeStbl: true, TypeUdta: true,
	TypeMeta: true, TypeMvex: true, TypeMoof: true, TypeTraf: true,
	TypeTref: true, TypeTrgr: true, TypeMfra: true,
	TypeSinf: true, TypeSchi: true, TypeIpro: true, TypeRinf: true,
	TypeIref: true, TypeIprp: true, TypeIpco: true, TypeWave: true,
	TypeIlst: true,
	TypeStsd: true,
	TypeDref: true,
}

// IsContainerBox returns true if the box type is a container that holds
// child boxes, possibly after a fixed-size preamble.
func IsContainerBox(t BoxType) bool {
	return containerBoxTypes[t]
}

// sampleEntryContainerTypes is the set of sample-entry box types that
// themselves hold a child box sequence after their fixed-size header
// (e.g. avcC nested inside avc1).
var sampleEntryContainerTypes = map[BoxType]bool{
	TypeAvc1: true, TypeAvc2: true, TypeAvc3: true, TypeAvc4: true,
	TypeEncv: true, TypeHvc1: true, TypeHev1: true, TypeAv01: true, TypeSvc1: true, TypeMp4v: true,
	TypeMp4a: true, TypeEnca: true, TypeOpus: true,
	TypeMetx: true, TypeMett: true, TypeUrim: true, TypeStxt: true, TypeSbtt: true, TypeStpp: true,
}

// IsSampleEntryContainer returns true if t is a sample-entry box type that
// carries a child box sequence after its fixed header.
func IsSampleEntryContainer(t BoxType) bool {
	return sampleEntryContainerTypes[t]
}
