package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/transcription-service/config"
	"github.com/atelierops/transcription-service/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "3000",
		AppEnv:           "test",
		OpenAIAPIKey:     "test-key",
		STTModel:         "whisper-1",
		MaxChunkBytes:    24 * 1024 * 1024,
		ChunkConcurrency: 3,
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)

	var decoded map[string]any
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(respBody, &decoded))
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	app := newApp(testConfig(), logger.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTranscribeRequiresAudioURL(t *testing.T) {
	app := newApp(testConfig(), logger.NewNop())
	resp, body := postJSON(t, app, "/transcribe", map[string]any{"language": "en"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "MISSING_URL", body["error_code"])
}

func TestTranscribeRejectsBadToken(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceJWTSecret = "platform-secret"
	app := newApp(cfg, logger.NewNop())

	resp, body := postJSON(t, app, "/transcribe",
		map[string]any{"audio_url": "https://example.com/a.mp3"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error_code"])

	resp, body = postJSON(t, app, "/transcribe",
		map[string]any{"audio_url": "https://example.com/a.mp3"},
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error_code"])
}

func TestTranscribeAcceptsValidToken(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(bytes.Repeat([]byte("a"), 2048))
	}))
	defer source.Close()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task": "transcribe", "language": "english", "duration": 3.5,
			"text": "punch list review",
			"segments": []map[string]any{
				{"id": 0, "start": 0.0, "end": 3.5, "text": " punch list review", "avg_logprob": -0.1, "no_speech_prob": 0.02},
			},
		})
	}))
	defer provider.Close()

	cfg := testConfig()
	cfg.ServiceJWTSecret = "platform-secret"
	cfg.STTBaseURL = provider.URL + "/v1"
	app := newApp(cfg, logger.NewNop())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "pm-platform"}).
		SignedString([]byte("platform-secret"))
	require.NoError(t, err)

	resp, body := postJSON(t, app, "/transcribe",
		map[string]any{"audio_url": source.URL + "/rec.mp3", "language": "en", "recording_id": "rec-1"},
		map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "punch list review", body["transcription"])
	assert.Equal(t, float64(1), body["chunks_count"])
	assert.Equal(t, float64(1), body["chunks_successful"])
	assert.Equal(t, "english", body["language_detected"])
	assert.Equal(t, float64(100), body["quality_score"])
	assert.Equal(t, float64(0), body["flagged_count"])
	assert.InDelta(t, 3.5, body["audio_duration_seconds"], 1e-9)

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mp3", metadata["format"])
}

func TestTranscribeSurfacesOrchestratorErrors(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/aac")
		_, _ = w.Write([]byte("aac-bytes"))
	}))
	defer source.Close()

	app := newApp(testConfig(), logger.NewNop())
	resp, body := postJSON(t, app, "/transcribe",
		map[string]any{"audio_url": source.URL + "/voicemail.aac"}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FORMAT", body["error_code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["supported_formats"], "mp3")
	assert.NotEmpty(t, body["suggestion"])
}
