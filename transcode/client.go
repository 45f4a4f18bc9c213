package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/atelierops/transcription-service/apierr"
	"github.com/atelierops/transcription-service/logger"
)

const splitPath = "/v1/split"

// Request asks the transcode service to re-encode a recording and, when it
// is long enough, split it on real time boundaries.
type Request struct {
	SourceURL        string `json:"sourceUrl"`
	JobID            string `json:"jobId"`
	ChunkDurationSec int    `json:"chunkDurationSec"`
	OverlapSec       int    `json:"overlapSec"`
	OutputFormat     string `json:"outputFormat"`
	TargetBitrate    string `json:"targetBitrate"`
}

// Chunk is one time-bounded slice of the normalized recording, hosted by the
// transcode service.
type Chunk struct {
	URL      string  `json:"url"`
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
}

type SourceInfo struct {
	DurationSec float64 `json:"durationSec"`
}

// Result is either a list of chunks (long recordings) or a single
// normalized URL (short recordings that only needed format conversion).
type Result struct {
	Success       bool        `json:"success"`
	Chunks        []Chunk     `json:"chunks,omitempty"`
	NormalizedURL string      `json:"normalizedUrl,omitempty"`
	SourceInfo    *SourceInfo `json:"sourceInfo,omitempty"`
}

// Client talks to the external transcode/split service. There is no further
// fallback behind it: if the service is unreachable the request is dead.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *logger.Logger
}

func New(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Minute},
		log:     log.With("client", "transcode"),
	}
}

// SplitAndNormalize submits the job and waits for the service to finish
// re-encoding. Connect failures map to SERVICE_UNAVAILABLE; non-2xx
// responses map to SERVICE_ERROR with the raw body as detail.
func (c *Client) SplitAndNormalize(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeUnexpected, "encoding transcode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+splitPath, bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeUnexpected, "building transcode request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Info("submitting transcode job", "job_id", req.JobID, "source_url", req.SourceURL)
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeServiceUnavailable, "transcode service unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeServiceError, "reading transcode response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.Wrap(
			errors.Errorf("transcode service returned %d: %s", resp.StatusCode, string(raw)),
			apierr.CodeServiceError,
			fmt.Sprintf("transcode service failed with status %d", resp.StatusCode),
		).WithDetails(map[string]any{"status": resp.StatusCode, "body": string(raw)})
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apierr.Wrap(err, apierr.CodeServiceError, "decoding transcode response")
	}
	if !result.Success {
		return nil, apierr.Wrap(
			errors.New("transcode service reported failure"),
			apierr.CodeServiceError,
			"transcode service reported failure",
		).WithDetails(map[string]any{"body": string(raw)})
	}

	c.log.Info("transcode job done", "job_id", req.JobID,
		"chunks", len(result.Chunks), "normalized", result.NormalizedURL != "")
	return &result, nil
}
