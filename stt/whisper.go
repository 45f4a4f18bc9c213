package stt

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atelierops/transcription-service/apierr"
	"github.com/atelierops/transcription-service/logger"
	"github.com/atelierops/transcription-service/model"
)

const DefaultModel = "whisper-1"

// vocabularyPrompts bias the provider toward architecture-project terms for
// languages we have a curated list for. Keyed by the caller's language hint.
var vocabularyPrompts = map[string]string{
	"en": "Site meeting for an architecture project: facade, cladding, mullion, parapet, RFI, punch list, change order, as-built drawings, schematic design, design development, millwork, curtain wall.",
	"es": "Reunión de obra de un proyecto de arquitectura: fachada, revestimiento, carpintería, planos as-built, anteproyecto, orden de cambio, acta de obra.",
}

// Payload is the provider's verbose transcription of a single audio blob.
type Payload struct {
	Text            string
	Language        string
	DurationSeconds float64
	Segments        []model.TranscriptionSegment
}

// Client submits single audio blobs to the speech-to-text provider. It keeps
// no state between calls; each Transcribe is one multipart request.
type Client struct {
	api   *openai.Client
	model string
	log   *logger.Logger
}

// New builds a provider client. baseURL overrides the provider endpoint
// (self-hosted gateways, tests); empty means the provider default.
func New(apiKey, baseURL, modelID string, log *logger.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelID == "" {
		modelID = DefaultModel
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: modelID,
		log:   log.With("client", "stt"),
	}
}

// Transcribe sends one chunk and asks for the richest response format the
// provider offers: full text plus per-segment timestamps, log-probabilities
// and no-speech scores. fileName only needs a correct extension; the provider
// uses it to pick a decoder.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName, language string) (*Payload, error) {
	req := openai.AudioRequest{
		Model:    c.model,
		Reader:   bytes.NewReader(audio),
		FilePath: fileName,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if prompt, ok := vocabularyPrompts[strings.ToLower(language)]; ok {
		req.Prompt = prompt
	}

	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		c.log.Warn("transcription call failed", "file", fileName, "bytes", len(audio), "error", err)
		return nil, classify(err)
	}

	segments := make([]model.TranscriptionSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		conf := math.Exp(s.AvgLogprob)
		noSpeech := s.NoSpeechProb
		segments = append(segments, model.TranscriptionSegment{
			StartSec:     s.Start,
			EndSec:       s.End,
			Text:         strings.TrimSpace(s.Text),
			Confidence:   &conf,
			NoSpeechProb: &noSpeech,
		})
	}

	return &Payload{
		Text:            strings.TrimSpace(resp.Text),
		Language:        resp.Language,
		DurationSeconds: resp.Duration,
		Segments:        segments,
	}, nil
}

// classify maps provider failures onto the service taxonomy so callers can
// branch (retry later vs. convert the file vs. give up).
func classify(err error) *apierr.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return apierr.Wrap(err, apierr.CodeUnauthorized, "speech-to-text provider rejected credentials")
		case apiErr.HTTPStatusCode == 429:
			return apierr.Wrap(err, apierr.CodeRateLimited, "speech-to-text provider is rate limiting").
				WithSuggestion("Retry in a few minutes.")
		case apiErr.HTTPStatusCode == 400 || apiErr.HTTPStatusCode == 415:
			if strings.Contains(msg, "decod") || strings.Contains(msg, "corrupt") {
				return apierr.Wrap(err, apierr.CodeDecodeError, "provider could not decode the audio payload")
			}
			return apierr.Wrap(err, apierr.CodeInvalidFormat, "provider rejected the audio format")
		}
		return apierr.Wrap(err, apierr.CodeUnexpected, "speech-to-text provider error")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Wrap(err, apierr.CodeTimeout, "speech-to-text call timed out")
	}
	return apierr.Wrap(err, apierr.CodeUnexpected, "speech-to-text call failed")
}
