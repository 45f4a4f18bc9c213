package quality

import (
	"math"

	"github.com/atelierops/transcription-service/model"
)

// Flagging thresholds. A segment below the confidence floor reads as garbled
// speech; one above the no-speech ceiling is probably not speech at all.
const (
	confidenceFloor = 0.5
	noSpeechCeiling = 0.5
)

// Analyze flags low-quality segments from one chunk. Timestamps are shifted
// by chunkOffsetSec so flags are expressed against the full recording, not
// the chunk. The no-speech check wins when both thresholds trip.
func Analyze(segments []model.TranscriptionSegment, chunkIndex int, chunkOffsetSec float64) []model.FlaggedSegment {
	var flagged []model.FlaggedSegment
	for _, seg := range segments {
		flagType := ""
		if seg.Confidence != nil && *seg.Confidence < confidenceFloor {
			flagType = model.FlagLowConfidence
		}
		if seg.NoSpeechProb != nil && *seg.NoSpeechProb > noSpeechCeiling {
			flagType = model.FlagUnclearAudio
		}
		if flagType == "" {
			continue
		}

		confidence := 0.0
		if seg.Confidence != nil {
			confidence = *seg.Confidence
		}
		flagged = append(flagged, model.FlaggedSegment{
			Start:           seg.StartSec + chunkOffsetSec,
			End:             seg.EndSec + chunkOffsetSec,
			Text:            seg.Text,
			ConfidenceScore: confidence,
			FlagType:        flagType,
			ChunkIndex:      chunkIndex,
		})
	}
	return flagged
}

// Score is the single-request formula: the flagged share of all segments,
// subtracted from 100. Exactly 100 only when nothing is flagged.
func Score(flaggedCount, totalSegments int) int {
	if flaggedCount == 0 {
		return 100
	}
	denom := totalSegments
	if denom < 1 {
		denom = 1
	}
	score := 100 - float64(flaggedCount)/float64(denom)*100
	return int(math.Max(0, math.Floor(score)))
}

// ScoreChunked is the multi-chunk formula: a flat 5-point penalty per flag.
// Multi-chunk results have no reliable total-segment denominator across
// heterogeneous chunk lengths, so the two paths deliberately score at
// different granularity.
func ScoreChunked(flaggedCount int) int {
	if flaggedCount == 0 {
		return 100
	}
	score := 100 - flaggedCount*5
	if score < 0 {
		return 0
	}
	return score
}
