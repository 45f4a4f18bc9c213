package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atelierops/transcription-service/apierr"
	"github.com/atelierops/transcription-service/chunk"
	"github.com/atelierops/transcription-service/format"
	"github.com/atelierops/transcription-service/logger"
	"github.com/atelierops/transcription-service/model"
	"github.com/atelierops/transcription-service/probe"
	"github.com/atelierops/transcription-service/stt"
	"github.com/atelierops/transcription-service/transcode"
)

const (
	defaultMaxChunkBytes   = 24 * 1024 * 1024
	defaultConcurrency     = 3
	defaultDownloadTimeout = 120 * time.Second
	defaultChunkTimeout    = 90 * time.Second

	// Parameters handed to the transcode service: ten-minute chunks with a
	// two-second overlap so boundary words land in at least one chunk, and a
	// low-bitrate mp3 target to stay far under the provider byte ceiling.
	serviceChunkDurationSec = 600
	serviceOverlapSec       = 2
	serviceOutputFormat     = "mp3"
	serviceTargetBitrate    = "64k"

	rateLimitRetryDelay = 2 * time.Second
)

// STT is the per-chunk speech-to-text call.
type STT interface {
	Transcribe(ctx context.Context, audio []byte, fileName, language string) (*stt.Payload, error)
}

// Splitter is the external transcode/split service. Nil means not configured.
type Splitter interface {
	SplitAndNormalize(ctx context.Context, req transcode.Request) (*transcode.Result, error)
}

// Request is one transcription job.
type Request struct {
	AudioURL    string
	Language    string
	RecordingID string
}

// Options configures an Orchestrator; zero values take defaults.
type Options struct {
	STT             STT
	Splitter        Splitter
	HTTPClient      *http.Client
	MaxChunkBytes   int64
	Concurrency     int
	DownloadTimeout time.Duration
	ChunkTimeout    time.Duration

	// RetryDelay is the pause before the single rate-limit retry.
	RetryDelay time.Duration
	Log        *logger.Logger
}

// Orchestrator drives a transcription job end to end: download, probe,
// strategy selection, per-chunk STT calls, and the ordered merge.
type Orchestrator struct {
	stt             STT
	splitter        Splitter
	httpc           *http.Client
	maxChunkBytes   int64
	concurrency     int
	downloadTimeout time.Duration
	chunkTimeout    time.Duration
	retryDelay      time.Duration
	log             *logger.Logger
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		stt:             opts.STT,
		splitter:        opts.Splitter,
		httpc:           opts.HTTPClient,
		maxChunkBytes:   opts.MaxChunkBytes,
		concurrency:     opts.Concurrency,
		downloadTimeout: opts.DownloadTimeout,
		chunkTimeout:    opts.ChunkTimeout,
		retryDelay:      opts.RetryDelay,
		log:             opts.Log,
	}
	if o.httpc == nil {
		o.httpc = &http.Client{}
	}
	if o.maxChunkBytes <= 0 {
		o.maxChunkBytes = defaultMaxChunkBytes
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	if o.downloadTimeout <= 0 {
		o.downloadTimeout = defaultDownloadTimeout
	}
	if o.chunkTimeout <= 0 {
		o.chunkTimeout = defaultChunkTimeout
	}
	if o.retryDelay <= 0 {
		o.retryDelay = rateLimitRetryDelay
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return o
}

// Transcribe runs one job. Request-level failures return a taxonomy error
// and no result; chunk-level failures are tolerated and surfaced inside the
// result as long as at least one chunk succeeded.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) (*model.Result, error) {
	jobID := req.RecordingID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	log := o.log.With("job_id", jobID)

	log.Info("downloading source audio", "url", req.AudioURL)
	audio, contentType, err := o.download(ctx, req.AudioURL)
	if err != nil {
		return nil, err
	}

	profile := probe.Probe(req.AudioURL, contentType, int64(len(audio)))
	log.Info("probed source audio",
		"format", profile.Format.String(),
		"size_bytes", profile.SizeBytes,
		"estimated_duration_sec", profile.EstimatedDurationSec,
		"needs_conversion", profile.NeedsConversion,
		"format_defaulted", profile.Defaulted)

	var (
		results  []model.ChunkResult
		audioDur float64
	)
	switch {
	case profile.NeedsConversion && o.splitter == nil:
		return nil, apierr.New(apierr.CodeInvalidFormat,
			fmt.Sprintf("audio format %q is not supported by the transcription provider", profile.Format)).
			WithDetails(map[string]any{"supported_formats": format.SupportedExtensions()}).
			WithSuggestion("Convert the recording to mp3 or wav and try again.")

	case profile.NeedsConversion || (profile.SizeBytes > o.maxChunkBytes && o.splitter != nil):
		results, audioDur, err = o.serviceChunked(ctx, log, req, profile, jobID)

	case profile.SizeBytes > o.maxChunkBytes:
		if !profile.Format.ByteSplittable() {
			return nil, apierr.New(apierr.CodeFileTooLarge,
				fmt.Sprintf("file is %d bytes, over the %d byte provider limit, and %q cannot be split at byte boundaries",
					profile.SizeBytes, o.maxChunkBytes, profile.Format)).
				WithSuggestion("Re-encode the recording as mp3, or configure the transcode service.")
		}
		results, err = o.byteChunked(ctx, log, req, profile, audio)

	default:
		results, err = o.direct(ctx, log, req, profile, audio)
	}
	if err != nil {
		return nil, err
	}

	result, err := o.merge(log, profile, results, audioDur)
	if err != nil {
		return nil, err
	}
	log.Info("transcription done",
		"chunks_total", result.ChunksTotal,
		"chunks_succeeded", result.ChunksSucceeded,
		"quality_score", result.QualityScore,
		"flagged", len(result.FlaggedSegments))
	return result, nil
}

// download fetches the source audio with a bounded timeout.
func (o *Orchestrator) download(ctx context.Context, url string) ([]byte, string, error) {
	dctx, cancel := context.WithTimeout(ctx, o.downloadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(dctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", apierr.Wrap(err, apierr.CodeDownloadFailed, "invalid audio URL")
	}
	resp, err := o.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", apierr.Wrap(err, apierr.CodeTimeout, "downloading the audio timed out").
				WithSuggestion("Host the recording somewhere faster, or upload a smaller file.")
		}
		return nil, "", apierr.Wrap(err, apierr.CodeDownloadFailed, "could not download the audio")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", apierr.New(apierr.CodeDownloadFailed,
			fmt.Sprintf("audio host responded with status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", apierr.Wrap(err, apierr.CodeTimeout, "downloading the audio timed out")
		}
		return nil, "", apierr.Wrap(err, apierr.CodeDownloadFailed, "could not read the audio body")
	}
	if len(body) == 0 {
		return nil, "", apierr.New(apierr.CodeEmptyAudio, "the audio URL returned an empty body")
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// direct transcribes the whole blob as a single chunk.
func (o *Orchestrator) direct(ctx context.Context, log *logger.Logger, req Request, p probe.Profile, audio []byte) ([]model.ChunkResult, error) {
	log.Info("strategy selected", "strategy", "direct")
	res := o.transcribeChunk(ctx, log, audio, "audio."+p.Extension, req.Language, 0)
	res.OffsetSec = 0
	return []model.ChunkResult{res}, nil
}

// byteChunked slices the blob into even byte ranges and fans the pieces out
// to the provider. Only reached for byte-splittable formats.
func (o *Orchestrator) byteChunked(ctx context.Context, log *logger.Logger, req Request, p probe.Profile, audio []byte) ([]model.ChunkResult, error) {
	ranges, err := chunk.Plan(p.SizeBytes, o.maxChunkBytes)
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeUnexpected, "planning byte chunks")
	}
	log.Info("strategy selected", "strategy", "byte_chunked", "chunks", len(ranges))

	results := make([]model.ChunkResult, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			name := fmt.Sprintf("chunk-%d.%s", r.Index, p.Extension)
			// chunk failures are data, not control flow; never abort siblings
			results[r.Index] = o.transcribeChunk(gctx, log, audio[r.StartByte:r.EndByte], name, req.Language, r.Index)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, apierr.Wrap(ctx.Err(), apierr.CodeTimeout, "transcription canceled")
	}

	// Byte ranges carry no time information, so offsets are reconstructed
	// cumulatively from reported chunk durations; failed chunks contribute a
	// size-proportional share of the probe estimate to keep later offsets
	// roughly aligned.
	offset := 0.0
	for i := range results {
		results[i].OffsetSec = offset
		if results[i].Succeeded {
			offset += results[i].DurationSeconds
		} else if p.SizeBytes > 0 {
			offset += p.EstimatedDurationSec * float64(ranges[i].Size()) / float64(p.SizeBytes)
		}
	}
	return results, nil
}

// serviceChunked delegates re-encoding and time-accurate splitting to the
// transcode service, then transcribes whatever it produced.
func (o *Orchestrator) serviceChunked(ctx context.Context, log *logger.Logger, req Request, p probe.Profile, jobID string) ([]model.ChunkResult, float64, error) {
	log.Info("strategy selected", "strategy", "service_chunked")
	tcRes, err := o.splitter.SplitAndNormalize(ctx, transcode.Request{
		SourceURL:        req.AudioURL,
		JobID:            jobID,
		ChunkDurationSec: serviceChunkDurationSec,
		OverlapSec:       serviceOverlapSec,
		OutputFormat:     serviceOutputFormat,
		TargetBitrate:    serviceTargetBitrate,
	})
	if err != nil {
		return nil, 0, err
	}

	var sourceDur float64
	if tcRes.SourceInfo != nil {
		sourceDur = tcRes.SourceInfo.DurationSec
	}

	// Short recordings only needed conversion, not splitting.
	if len(tcRes.Chunks) == 0 {
		if tcRes.NormalizedURL == "" {
			return nil, 0, apierr.New(apierr.CodeServiceError, "transcode service returned neither chunks nor a normalized URL")
		}
		audio, _, err := o.download(ctx, tcRes.NormalizedURL)
		if err != nil {
			return nil, 0, err
		}
		res := o.transcribeChunk(ctx, log, audio, "audio."+serviceOutputFormat, req.Language, 0)
		res.OffsetSec = 0
		return []model.ChunkResult{res}, sourceDur, nil
	}

	results := make([]model.ChunkResult, len(tcRes.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, tc := range tcRes.Chunks {
		i, tc := i, tc
		g.Go(func() error {
			audio, _, err := o.download(gctx, tc.URL)
			if err != nil {
				results[i] = model.ChunkResult{
					Index:        i,
					Succeeded:    false,
					ErrorMessage: fmt.Sprintf("[chunk %d failed: %s]", i+1, apierr.From(err).Message),
					OffsetSec:    tc.StartSec,
				}
				return nil
			}
			name := fmt.Sprintf("chunk-%d.%s", i, serviceOutputFormat)
			res := o.transcribeChunk(gctx, log, audio, name, req.Language, i)
			res.OffsetSec = tc.StartSec
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, 0, apierr.Wrap(ctx.Err(), apierr.CodeTimeout, "transcription canceled")
	}
	return results, sourceDur, nil
}

// transcribeChunk runs one bounded STT call, retrying once after a delay when
// the provider is rate limiting. Failures become a failed ChunkResult with a
// placeholder message so ordering survives.
func (o *Orchestrator) transcribeChunk(ctx context.Context, log *logger.Logger, audio []byte, fileName, language string, index int) model.ChunkResult {
	payload, err := o.callSTT(ctx, audio, fileName, language)
	if err != nil && apierr.CodeOf(err) == apierr.CodeRateLimited {
		log.Warn("provider rate limited, retrying chunk", "chunk", index, "delay", o.retryDelay)
		select {
		case <-time.After(o.retryDelay):
			payload, err = o.callSTT(ctx, audio, fileName, language)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		log.Warn("chunk transcription failed", "chunk", index, "error", err)
		return model.ChunkResult{
			Index:        index,
			Succeeded:    false,
			ErrorMessage: fmt.Sprintf("[chunk %d failed: %s]", index+1, apierr.From(err).Message),
		}
	}
	log.Debug("chunk transcribed", "chunk", index,
		"duration_sec", payload.DurationSeconds, "segments", len(payload.Segments))
	return model.ChunkResult{
		Index:           index,
		Text:            payload.Text,
		Language:        payload.Language,
		DurationSeconds: payload.DurationSeconds,
		Segments:        payload.Segments,
		Succeeded:       true,
	}
}

func (o *Orchestrator) callSTT(ctx context.Context, audio []byte, fileName, language string) (*stt.Payload, error) {
	cctx, cancel := context.WithTimeout(ctx, o.chunkTimeout)
	defer cancel()
	return o.stt.Transcribe(cctx, audio, fileName, language)
}
