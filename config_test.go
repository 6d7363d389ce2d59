package storyassist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"MODEL_NAME", "MODEL_TYPE", "OLLAMA_BASE_URL", "GEMINI_API",
		"TEMPERATURE", "MAX_LENGTH", "API_HOST", "API_PORT", "LOG_LEVEL",
		"DATABASE_URL", "JIRA_URL", "JIRA_TOKEN", "STORYASSIST_CONFIG",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "llama3.2-vision", cfg.ModelName)
	assert.Equal(t, "ollama", cfg.ModelType)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 2048, cfg.MaxLength)
	assert.Equal(t, "0.0.0.0", cfg.APIHost)
	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MODEL_TYPE", "gemini")
	t.Setenv("MODEL_NAME", "gemini-2.0-flash")
	t.Setenv("GEMINI_API", "secret")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("MAX_LENGTH", "4096")
	t.Setenv("API_PORT", "9000")
	t.Setenv("STORYASSIST_CONFIG", "")
	require.NoError(t, os.Unsetenv("STORYASSIST_CONFIG"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.ModelType)
	assert.Equal(t, "gemini-2.0-flash", cfg.ModelName)
	assert.Equal(t, "secret", cfg.GeminiAPIKey)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 4096, cfg.MaxLength)
	assert.Equal(t, 9000, cfg.APIPort)
}

func TestLoadConfigInvalidEnvIgnored(t *testing.T) {
	t.Setenv("TEMPERATURE", "hot")
	t.Setenv("MAX_LENGTH", "-1")
	t.Setenv("API_PORT", "zero")
	t.Setenv("STORYASSIST_CONFIG", "")
	require.NoError(t, os.Unsetenv("STORYASSIST_CONFIG"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 2048, cfg.MaxLength)
	assert.Equal(t, 8000, cfg.APIPort)
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"model_name: mistral\nlog_level: debug\napi_port: 8080\n"), 0o644))

	t.Setenv("MODEL_NAME", "llama3.2-vision")
	t.Setenv("STORYASSIST_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.ModelName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "ollama", cfg.ModelType)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("STORYASSIST_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}
