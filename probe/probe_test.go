package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelierops/transcription-service/format"
)

func TestProbePrefersURLExtension(t *testing.T) {
	// storage proxies lie about content types; the signed URL keeps the truth
	p := Probe("https://cdn.example.com/rec.mp3?sig=abc", "application/octet-stream", 1024)
	assert.Equal(t, format.MP3, p.Format)
	assert.Equal(t, "mp3", p.Extension)
	assert.Equal(t, "audio/mpeg", p.MIMEType)
	assert.False(t, p.NeedsConversion)
	assert.False(t, p.Defaulted)
}

func TestProbeFallsBackToContentType(t *testing.T) {
	p := Probe("https://cdn.example.com/download?id=42", "audio/ogg", 1024)
	assert.Equal(t, format.OGG, p.Format)
	assert.False(t, p.Defaulted)
}

func TestProbeDefaultsToWebm(t *testing.T) {
	p := Probe("https://cdn.example.com/download?id=42", "application/octet-stream", 1024)
	assert.Equal(t, format.WEBM, p.Format)
	assert.True(t, p.Defaulted)
	assert.True(t, p.ProviderSupported)
}

func TestProbeIsDeterministic(t *testing.T) {
	a := Probe("https://x.example.com/a.wav", "audio/wav", 5<<20)
	b := Probe("https://x.example.com/a.wav", "audio/wav", 5<<20)
	assert.Equal(t, a, b)
}

func TestProbeDurationHeuristic(t *testing.T) {
	// 10MB mp3 at the assumed 128kbps: 10*1024*1024*8 / 128000 = 655.36s
	p := Probe("https://x.example.com/a.mp3", "", 10*1024*1024)
	assert.InDelta(t, 655.36, p.EstimatedDurationSec, 0.01)
	assert.InDelta(t, 655.36/60, p.EstimatedDurationMin(), 0.01)

	empty := Probe("https://x.example.com/a.mp3", "", 0)
	assert.Zero(t, empty.EstimatedDurationSec)
}

func TestProbeUnsupportedFormat(t *testing.T) {
	p := Probe("https://x.example.com/voicemail.aac", "", 2048)
	assert.Equal(t, format.AAC, p.Format)
	assert.True(t, p.NeedsConversion)
	assert.False(t, p.ProviderSupported)
}
