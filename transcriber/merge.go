package transcriber

import (
	"sort"
	"strings"

	"github.com/atelierops/transcription-service/apierr"
	"github.com/atelierops/transcription-service/logger"
	"github.com/atelierops/transcription-service/model"
	"github.com/atelierops/transcription-service/probe"
	"github.com/atelierops/transcription-service/quality"
)

// merge assembles ordered chunk results into the final transcript, runs the
// quality pass with full-recording time offsets, and decides overall
// success. Completion order under concurrency is not guaranteed, so results
// are re-sorted by index before anything touches them.
func (o *Orchestrator) merge(log *logger.Logger, p probe.Profile, results []model.ChunkResult, serviceDur float64) (*model.Result, error) {
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	var (
		texts         []string
		chunkErrors   []string
		flagged       []model.FlaggedSegment
		totalSegments int
		succeeded     int
		audioDur      float64
		language      string
	)
	for _, res := range results {
		if !res.Succeeded {
			chunkErrors = append(chunkErrors, res.ErrorMessage)
			continue
		}
		succeeded++
		if res.Text != "" {
			texts = append(texts, res.Text)
		}
		if language == "" {
			language = res.Language
		}
		audioDur += res.DurationSeconds
		totalSegments += len(res.Segments)
		flagged = append(flagged, quality.Analyze(res.Segments, res.Index, res.OffsetSec)...)
	}

	if succeeded == 0 {
		// all chunks failed: surface the first chunk's classification so the
		// caller gets a retry-vs-convert hint instead of a generic failure
		msg := "transcription failed for every chunk"
		if len(chunkErrors) > 0 {
			msg = chunkErrors[0]
		}
		return nil, apierr.New(apierr.CodeUnexpected, msg).
			WithDetails(map[string]any{"errors": chunkErrors, "chunks_total": len(results)})
	}

	score := 0
	if len(results) == 1 {
		score = quality.Score(len(flagged), totalSegments)
	} else {
		score = quality.ScoreChunked(len(flagged))
	}

	if serviceDur > 0 {
		audioDur = serviceDur
	}
	if language == "" {
		log.Debug("provider reported no language for any chunk")
	}

	return &model.Result{
		Transcript:           strings.Join(texts, "\n\n"),
		AudioDurationSeconds: audioDur,
		LanguageDetected:     language,
		ChunksTotal:          len(results),
		ChunksSucceeded:      succeeded,
		QualityScore:         score,
		FlaggedSegments:      flagged,
		Errors:               chunkErrors,
		FileSizeBytes:        p.SizeBytes,
		Format:               p.Format.String(),
		EstimatedDurationMin: p.EstimatedDurationMin(),
	}, nil
}
