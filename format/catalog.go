package format

import "strings"

// Format is the closed set of audio container formats the service recognizes.
// Every format-dependent decision (MIME type, bitrate assumption, provider
// support, byte-splittability) is an exhaustive switch over this type, so
// adding a format is a compile-time checked change.
type Format int

const (
	Unknown Format = iota
	MP3
	WAV
	M4A
	MP4
	OGG
	OGA
	FLAC
	WEBM
	MPEG
	MPGA
	AAC
	WMA
	AMR
	ThreeGP
)

// All lists every known format except Unknown, in extension-scan order.
// Longer extensions come first so ".mpga" is not shadowed by shorter matches.
var All = []Format{WEBM, MPGA, MPEG, FLAC, ThreeGP, MP3, WAV, M4A, MP4, OGA, OGG, AAC, WMA, AMR}

func (f Format) Extension() string {
	switch f {
	case MP3:
		return "mp3"
	case WAV:
		return "wav"
	case M4A:
		return "m4a"
	case MP4:
		return "mp4"
	case OGG:
		return "ogg"
	case OGA:
		return "oga"
	case FLAC:
		return "flac"
	case WEBM:
		return "webm"
	case MPEG:
		return "mpeg"
	case MPGA:
		return "mpga"
	case AAC:
		return "aac"
	case WMA:
		return "wma"
	case AMR:
		return "amr"
	case ThreeGP:
		return "3gp"
	default:
		return ""
	}
}

func (f Format) MIMEType() string {
	switch f {
	case MP3, MPEG, MPGA:
		return "audio/mpeg"
	case WAV:
		return "audio/wav"
	case M4A, MP4:
		return "audio/mp4"
	case OGG, OGA:
		return "audio/ogg"
	case FLAC:
		return "audio/flac"
	case WEBM:
		return "audio/webm"
	case AAC:
		return "audio/aac"
	case WMA:
		return "audio/x-ms-wma"
	case AMR:
		return "audio/amr"
	case ThreeGP:
		return "audio/3gpp"
	default:
		return "application/octet-stream"
	}
}

// AssumedBitrateKbps is the bitrate used by the duration heuristic. These are
// typical encoding rates, not measurements; estimated durations derived from
// them must never be treated as authoritative.
func (f Format) AssumedBitrateKbps() int {
	switch f {
	case WAV:
		return 1411
	case FLAC:
		return 900
	case OGG, OGA:
		return 96
	case AMR, ThreeGP:
		return 12
	case MP3, M4A, MP4, WEBM, MPEG, MPGA, AAC, WMA, Unknown:
		return 128
	default:
		return 128
	}
}

// ProviderSupported reports whether the STT provider accepts the container
// as-is. Everything else needs the transcode service first.
func (f Format) ProviderSupported() bool {
	switch f {
	case MP3, WAV, M4A, MP4, OGG, OGA, FLAC, WEBM, MPEG, MPGA:
		return true
	case AAC, WMA, AMR, ThreeGP, Unknown:
		return false
	default:
		return false
	}
}

func (f Format) NeedsConversion() bool {
	return !f.ProviderSupported()
}

// ByteSplittable reports whether chunks produced by cutting the container at
// arbitrary byte offsets are still decodable. Only frame-resynchronizable MP3
// and headerless-after-the-first-44-bytes WAV qualify; splitting any other
// container mid-stream can hand the provider unplayable data.
func (f Format) ByteSplittable() bool {
	switch f {
	case MP3, WAV:
		return true
	default:
		return false
	}
}

func (f Format) String() string {
	if f == Unknown {
		return "unknown"
	}
	return f.Extension()
}

// FromExtension resolves a bare extension (no dot, any case).
func FromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	for _, f := range All {
		if f.Extension() == ext {
			return f, true
		}
	}
	return Unknown, false
}

// FromURL scans the lower-cased URL for a known extension substring. Query
// strings and signed-URL suffixes are common, so this is a contains scan, not
// a path.Ext parse.
func FromURL(url string) (Format, bool) {
	u := strings.ToLower(url)
	for _, f := range All {
		if strings.Contains(u, "."+f.Extension()) {
			return f, true
		}
	}
	return Unknown, false
}

// FromContentType matches a Content-Type header value against known MIME
// substrings.
func FromContentType(contentType string) (Format, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg") || strings.Contains(ct, "mp3"):
		return MP3, true
	case strings.Contains(ct, "wav"):
		return WAV, true
	case strings.Contains(ct, "m4a"):
		return M4A, true
	case strings.Contains(ct, "mp4"):
		return MP4, true
	case strings.Contains(ct, "ogg") || strings.Contains(ct, "opus"):
		return OGG, true
	case strings.Contains(ct, "flac"):
		return FLAC, true
	case strings.Contains(ct, "webm"):
		return WEBM, true
	case strings.Contains(ct, "aac"):
		return AAC, true
	case strings.Contains(ct, "wma"):
		return WMA, true
	case strings.Contains(ct, "amr"):
		return AMR, true
	case strings.Contains(ct, "3gpp") || strings.Contains(ct, "3gp"):
		return ThreeGP, true
	default:
		return Unknown, false
	}
}

// SupportedExtensions lists the extensions the provider accepts directly,
// for error payloads that tell callers what to convert to.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(All))
	for _, f := range All {
		if f.ProviderSupported() {
			exts = append(exts, f.Extension())
		}
	}
	return exts
}
