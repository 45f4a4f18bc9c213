package main

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"

	"github.com/atelierops/transcription-service/apierr"
	"github.com/atelierops/transcription-service/config"
	"github.com/atelierops/transcription-service/logger"
	"github.com/atelierops/transcription-service/model"
	"github.com/atelierops/transcription-service/stt"
	"github.com/atelierops/transcription-service/transcode"
	"github.com/atelierops/transcription-service/transcriber"
)

type transcribeRequest struct {
	AudioURL    string `json:"audio_url"`
	Language    string `json:"language"`
	RecordingID string `json:"recording_id"`
}

type transcribeMetadata struct {
	Format               string  `json:"format"`
	EstimatedDurationMin float64 `json:"estimated_duration_min"`
}

type transcribeResponse struct {
	Success              bool                   `json:"success"`
	Transcription        string                 `json:"transcription"`
	DurationSeconds      float64                `json:"duration_seconds"`
	FileSizeMB           float64                `json:"file_size_mb"`
	ChunksCount          int                    `json:"chunks_count"`
	ChunksSuccessful     int                    `json:"chunks_successful"`
	AudioDurationSeconds float64                `json:"audio_duration_seconds"`
	LanguageDetected     string                 `json:"language_detected"`
	FlaggedSegments      []model.FlaggedSegment `json:"flagged_segments"`
	FlaggedCount         int                    `json:"flagged_count"`
	QualityScore         int                    `json:"quality_score"`
	Metadata             transcribeMetadata     `json:"metadata"`
	Errors               []string               `json:"errors,omitempty"`
}

type errorResponse struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error"`
	ErrorCode  string         `json:"error_code"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to environment variables")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	app := newApp(cfg, zlog)

	addr := ":" + cfg.Port
	zlog.Info("transcription service listening", "addr", addr,
		"transcode_configured", cfg.TranscodeServiceURL != "")
	if err := app.Listen(addr); err != nil {
		zlog.Fatal("server stopped", "error", err)
	}
}

func newApp(cfg *config.Config, zlog *logger.Logger) *fiber.App {
	sttClient := stt.New(cfg.OpenAIAPIKey, cfg.STTBaseURL, cfg.STTModel, zlog)

	var splitter transcriber.Splitter
	if cfg.TranscodeServiceURL != "" {
		splitter = transcode.New(cfg.TranscodeServiceURL, cfg.TranscodeServiceToken, zlog)
	}

	orch := transcriber.New(transcriber.Options{
		STT:           sttClient,
		Splitter:      splitter,
		MaxChunkBytes: cfg.MaxChunkBytes,
		Concurrency:   cfg.ChunkConcurrency,
		Log:           zlog,
	})

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "transcription-service", "status": "ok"})
	})

	app.Post("/transcribe", requireServiceToken(cfg.ServiceJWTSecret), handleTranscribe(orch, zlog))

	return app
}

// requireServiceToken validates the bearer HMAC token the calling platform
// attaches to service-to-service requests. A blank secret disables the check
// (local development, or when the platform terminates auth upstream).
func requireServiceToken(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		raw := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if raw == "" || raw == c.Get("Authorization") {
			return writeError(c, apierr.New(apierr.CodeUnauthorized, "missing bearer token"))
		}
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return writeError(c, apierr.New(apierr.CodeUnauthorized, "invalid bearer token"))
		}
		return c.Next()
	}
}

func handleTranscribe(orch *transcriber.Orchestrator, zlog *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req transcribeRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, apierr.Wrap(err, apierr.CodeMissingURL, "request body must be JSON with an audio_url"))
		}
		if strings.TrimSpace(req.AudioURL) == "" {
			return writeError(c, apierr.New(apierr.CodeMissingURL, "audio_url is required"))
		}

		started := nowSeconds()
		result, err := orch.Transcribe(c.UserContext(), transcriber.Request{
			AudioURL:    req.AudioURL,
			Language:    req.Language,
			RecordingID: req.RecordingID,
		})
		if err != nil {
			apiErr := apierr.From(err)
			zlog.Warn("transcription request failed",
				"recording_id", req.RecordingID, "error_code", apiErr.Code, "error", err)
			return writeError(c, apiErr)
		}

		flagged := result.FlaggedSegments
		if flagged == nil {
			flagged = []model.FlaggedSegment{}
		}
		return c.JSON(transcribeResponse{
			Success:              true,
			Transcription:        result.Transcript,
			DurationSeconds:      round2(nowSeconds() - started),
			FileSizeMB:           round2(float64(result.FileSizeBytes) / (1024 * 1024)),
			ChunksCount:          result.ChunksTotal,
			ChunksSuccessful:     result.ChunksSucceeded,
			AudioDurationSeconds: round2(result.AudioDurationSeconds),
			LanguageDetected:     result.LanguageDetected,
			FlaggedSegments:      flagged,
			FlaggedCount:         len(flagged),
			QualityScore:         result.QualityScore,
			Metadata: transcribeMetadata{
				Format:               result.Format,
				EstimatedDurationMin: round2(result.EstimatedDurationMin),
			},
			Errors: result.Errors,
		})
	}
}

func writeError(c *fiber.Ctx, apiErr *apierr.Error) error {
	return c.Status(apiErr.Code.HTTPStatus()).JSON(errorResponse{
		Success:    false,
		Error:      apiErr.Message,
		ErrorCode:  string(apiErr.Code),
		Details:    apiErr.Details,
		Suggestion: apiErr.Suggestion,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
