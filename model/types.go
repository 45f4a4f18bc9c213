package model

// Flag types attached to low-quality transcript segments.
const (
	FlagLowConfidence = "low_confidence"
	FlagUnclearAudio  = "unclear_audio"
)

// AudioSource describes the recording a caller asked us to transcribe.
// Request-scoped; discarded once the response is written.
type AudioSource struct {
	URL              string
	DeclaredFileName string
	DeclaredSize     int64
}

// TranscriptionSegment is one provider-reported utterance span within a
// single chunk. Times are chunk-relative until the merge step shifts them.
type TranscriptionSegment struct {
	StartSec     float64
	EndSec       float64
	Text         string
	Confidence   *float64
	NoSpeechProb *float64
}

// ChunkResult is the outcome of transcribing one chunk. Failed chunks keep
// their slot (with an error message in place of text) so merge ordering
// never depends on which chunks happened to succeed.
type ChunkResult struct {
	Index           int
	Text            string
	Language        string
	DurationSeconds float64
	Segments        []TranscriptionSegment
	Succeeded       bool
	ErrorMessage    string

	// OffsetSec is the chunk's start time within the full recording.
	// Exact for service-produced chunks, estimated for byte-range chunks.
	OffsetSec float64
}

// FlaggedSegment is a low-quality span expressed against the full recording
// timeline. Derived during merge, never persisted.
type FlaggedSegment struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Text            string  `json:"text"`
	ConfidenceScore float64 `json:"confidence_score"`
	FlagType        string  `json:"flag_type"`
	ChunkIndex      int     `json:"chunk_index"`
}

// Result is the terminal artifact handed back to the HTTP layer.
type Result struct {
	Transcript           string
	AudioDurationSeconds float64
	LanguageDetected     string
	ChunksTotal          int
	ChunksSucceeded      int
	QualityScore         int
	FlaggedSegments      []FlaggedSegment
	Errors               []string

	FileSizeBytes        int64
	Format               string
	EstimatedDurationMin float64
}
