package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/transcription-service/model"
)

func fptr(v float64) *float64 { return &v }

func seg(start, end float64, text string, conf, noSpeech *float64) model.TranscriptionSegment {
	return model.TranscriptionSegment{StartSec: start, EndSec: end, Text: text, Confidence: conf, NoSpeechProb: noSpeech}
}

func TestAnalyzeFlagsLowConfidence(t *testing.T) {
	segments := []model.TranscriptionSegment{
		seg(0, 4, "clear speech", fptr(0.92), fptr(0.01)),
		seg(4, 9, "mumbled bit", fptr(0.31), fptr(0.02)),
	}
	flagged := Analyze(segments, 0, 0)
	require.Len(t, flagged, 1)
	assert.Equal(t, model.FlagLowConfidence, flagged[0].FlagType)
	assert.Equal(t, "mumbled bit", flagged[0].Text)
	assert.Equal(t, 0.31, flagged[0].ConfidenceScore)
}

func TestAnalyzeFlagsUnclearAudio(t *testing.T) {
	segments := []model.TranscriptionSegment{
		seg(0, 3, "hvac noise", fptr(0.85), fptr(0.72)),
	}
	flagged := Analyze(segments, 2, 0)
	require.Len(t, flagged, 1)
	assert.Equal(t, model.FlagUnclearAudio, flagged[0].FlagType)
	assert.Equal(t, 2, flagged[0].ChunkIndex)
}

func TestAnalyzeNoSpeechWinsOverLowConfidence(t *testing.T) {
	segments := []model.TranscriptionSegment{
		seg(0, 3, "both thresholds trip", fptr(0.2), fptr(0.9)),
	}
	flagged := Analyze(segments, 0, 0)
	require.Len(t, flagged, 1)
	assert.Equal(t, model.FlagUnclearAudio, flagged[0].FlagType)
}

func TestAnalyzeShiftsTimesByChunkOffset(t *testing.T) {
	segments := []model.TranscriptionSegment{
		seg(12.5, 17.0, "late in chunk", fptr(0.1), fptr(0.0)),
	}
	flagged := Analyze(segments, 3, 600)
	require.Len(t, flagged, 1)
	assert.InDelta(t, 612.5, flagged[0].Start, 1e-9)
	assert.InDelta(t, 617.0, flagged[0].End, 1e-9)
}

func TestAnalyzeIgnoresMissingScores(t *testing.T) {
	// provider gave no per-segment scores at all
	segments := []model.TranscriptionSegment{
		seg(0, 5, "no scores reported", nil, nil),
	}
	assert.Empty(t, Analyze(segments, 0, 0))
}

func TestAnalyzeThresholdBoundaries(t *testing.T) {
	// exactly at the thresholds is not flagged
	segments := []model.TranscriptionSegment{
		seg(0, 1, "borderline conf", fptr(0.5), fptr(0.0)),
		seg(1, 2, "borderline noise", fptr(0.9), fptr(0.5)),
	}
	assert.Empty(t, Analyze(segments, 0, 0))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score(0, 0))
	assert.Equal(t, 100, Score(0, 50))
	assert.Equal(t, 0, Score(10, 10))
	assert.Equal(t, 50, Score(5, 10))
	assert.Equal(t, 90, Score(1, 10))
	// never negative, even with a broken denominator
	assert.Equal(t, 0, Score(5, 0))
	assert.Equal(t, 0, Score(200, 100))
}

func TestScoreChunked(t *testing.T) {
	assert.Equal(t, 100, ScoreChunked(0))
	assert.Equal(t, 95, ScoreChunked(1))
	assert.Equal(t, 50, ScoreChunked(10))
	assert.Equal(t, 0, ScoreChunked(20))
	assert.Equal(t, 0, ScoreChunked(500))
}
