package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "whisper-1", cfg.STTModel)
	assert.Equal(t, int64(24*1024*1024), cfg.MaxChunkBytes)
	assert.Equal(t, 3, cfg.ChunkConcurrency)
	assert.Empty(t, cfg.TranscodeServiceURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAX_CHUNK_BYTES", "1048576")
	t.Setenv("CHUNK_CONCURRENCY", "8")
	t.Setenv("TRANSCODE_SERVICE_URL", "https://transcode.internal")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), cfg.MaxChunkBytes)
	assert.Equal(t, 8, cfg.ChunkConcurrency)
	assert.Equal(t, "https://transcode.internal", cfg.TranscodeServiceURL)
}

func TestFromEnvIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAX_CHUNK_BYTES", "not-a-number")
	t.Setenv("CHUNK_CONCURRENCY", "-2")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(24*1024*1024), cfg.MaxChunkBytes)
	assert.Equal(t, 3, cfg.ChunkConcurrency)
}
