package descriptor

// objectType describes one MPEG-4 Part 1 objectTypeIndication value.
type objectType struct {
	name      string
	withdrawn bool
}

// objectTypes mirrors the ISO/IEC 14496-1 objectTypeIndication registry.
// Entries carry the short display form where the original table defines
// one, falling back to the long name otherwise.
var objectTypes = map[uint8]objectType{
	0x01: {name: "Systems ISO/IEC 14496-1"},
	0x02: {name: "Systems ISO/IEC 14496-1"},
	0x03: {name: "Interaction Stream"},
	0x04: {name: "Extended BIFS"},
	0x05: {name: "AFX Stream"},
	0x06: {name: "Font Data Stream"},
	0x07: {name: "Synthetised Texture"},
	0x08: {name: "Text Stream"},
	0x09: {name: "LASeR Stream"},
	0x0A: {name: "Simple Aggregation Format (SAF) Stream"},
	0x20: {name: "MPEG-4 Video"},
	0x21: {name: "H.264 / AVC"},
	0x22: {name: "H.264 / AVC (PPS / SPS)"},
	0x23: {name: "H.265 / HEVC"},
	0x40: {name: "AAC"},
	0x60: {name: "MPEG-2 Video (Simple Profile)"},
	0x61: {name: "MPEG-2 Video (Main Profile)"},
	0x62: {name: "MPEG-2 Video (SNR Profile)"},
	0x63: {name: "MPEG-2 Video (Spatial Profile)"},
	0x64: {name: "MPEG-2 Video (High Profile)"},
	0x65: {name: "MPEG-2 Video (422 Profile)"},
	0x66: {name: "MPEG-2 AAC"},
	0x67: {name: "MPEG-2 AAC-LC"},
	0x68: {name: "MPEG-2 AAC-SSR"},
	0x69: {name: "MPEG-2 BC Audio"},
	0x6A: {name: "MPEG-1 Video"},
	0x6B: {name: "MPEG-1 Audio (usually MP3)"},
	0x6C: {name: "JPEG"},
	0x6D: {name: "PNG"},
	0x6E: {name: "JPEG 2000"},
	0xA0: {name: "EVRC Voice"},
	0xA1: {name: "SMV Voice"},
	0xA2: {name: "CMF"},
	0xA3: {name: "SMPTE VC-1 Video"},
	0xA4: {name: "Dirac Video Coder"},
	0xA5: {name: "AC-3", withdrawn: true},
	0xA6: {name: "Enhanced AC-3", withdrawn: true},
	0xA7: {name: "DRA Audio"},
	0xA8: {name: "ITU G.719 Audio"},
	0xA9: {name: "Core Substream"},
	0xAA: {name: "Core Substream + Extension Substream"},
	0xAB: {name: "Extension Substream containing only XLL"},
	0xAC: {name: "Extension Substream containing only LBR"},
	0xAD: {name: "Opus"},
	0xAE: {name: "AC-4", withdrawn: true},
	0xAF: {name: "Auro-Cx 3D audio"},
	0xB0: {name: "RealVideo Codec 11"},
	0xB1: {name: "VP9"},
	0xB2: {name: "DTS-UHD profile 2"},
	0xB3: {name: "DTS-UHD profile 3 or higher"},
	0xE1: {name: "13K Voice"},
}

// FormatObjectType describes an objectTypeIndication value for display,
// following ISO/IEC 14496-1's object type registry.
func FormatObjectType(oti uint8) string {
	switch {
	case oti == 0x00:
		return "forbidden"
	case oti == 0xFF:
		return "no object type specified"
	}
	if e, ok := objectTypes[oti]; ok {
		desc := e.name
		if e.withdrawn {
			desc += " (withdrawn, unused, do not use)"
		}
		return desc
	}
	if oti < 0xC0 {
		return "reserved for ISO use"
	}
	return "user private"
}

// streamTypes mirrors the ISO/IEC 14496-1 streamType registry.
var streamTypes = map[uint8]string{
	0x01: "ObjectDescriptorStream",
	0x02: "ClockReferenceStream",
	0x03: "SceneDescriptionStream",
	0x04: "VisualStream",
	0x05: "AudioStream",
	0x06: "MPEG7Stream",
	0x07: "IPMPStream",
	0x08: "ObjectContentInfoStream",
	0x09: "MPEGJStream",
	0x0A: "Interaction Stream",
	0x0B: "IPMPToolStream",
	0x0C: "FontDataStream",
	0x0D: "StreamingText",
}

// FormatStreamType describes a streamType value for display.
func FormatStreamType(sti uint8) string {
	if sti == 0x00 {
		return "forbidden"
	}
	if name, ok := streamTypes[sti]; ok {
		return name
	}
	if sti < 0x20 {
		return "reserved for ISO use"
	}
	return "user private"
}

// FormatSLPredefined describes an SLConfigDescriptor predefined value.
func FormatSLPredefined(v uint8) string {
	switch v {
	case 0x00:
		return "Custom"
	case 0x01:
		return "null SL packet header"
	case 0x02:
		return "Reserved for use in MP4 files"
	}
	return "Reserved for ISO use"
}
