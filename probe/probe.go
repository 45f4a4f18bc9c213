package probe

import (
	"github.com/atelierops/transcription-service/format"
)

// Profile is everything strategy selection needs to know about a recording.
// Derived once, read-only afterwards.
type Profile struct {
	Format               format.Format
	Extension            string
	MIMEType             string
	SizeBytes            int64
	EstimatedDurationSec float64
	ProviderSupported    bool
	NeedsConversion      bool

	// Defaulted is set when neither the URL nor the Content-Type identified
	// the format and we fell back to webm (the common browser-recorded
	// container).
	Defaulted bool
}

func (p Profile) EstimatedDurationMin() float64 {
	return p.EstimatedDurationSec / 60
}

// Probe determines the audio profile from the source URL, the download's
// Content-Type header, and the byte size. It is a pure function: no I/O, no
// error paths, worst case the webm default.
//
// The duration estimate divides the file's bits by the format's assumed
// bitrate. It exists for chunk-offset estimation and response metadata only;
// callers must not treat it as measured.
func Probe(sourceURL, contentType string, sizeBytes int64) Profile {
	f, defaulted := detect(sourceURL, contentType)

	var durationSec float64
	if sizeBytes > 0 {
		bits := float64(sizeBytes) * 8
		durationSec = bits / (float64(f.AssumedBitrateKbps()) * 1000)
	}

	return Profile{
		Format:               f,
		Extension:            f.Extension(),
		MIMEType:             f.MIMEType(),
		SizeBytes:            sizeBytes,
		EstimatedDurationSec: durationSec,
		ProviderSupported:    f.ProviderSupported(),
		NeedsConversion:      f.NeedsConversion(),
		Defaulted:            defaulted,
	}
}

// detect prefers the URL extension over the Content-Type header: signed URLs
// keep their real extension, while storage proxies routinely report generic
// or wrong MIME types.
func detect(sourceURL, contentType string) (format.Format, bool) {
	if f, ok := format.FromURL(sourceURL); ok {
		return f, false
	}
	if f, ok := format.FromContentType(contentType); ok {
		return f, false
	}
	return format.WEBM, true
}
