package storyassist

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from environment variables, with
// an optional YAML file overlay.
type Config struct {
	ModelName     string  `yaml:"model_name"`
	ModelType     string  `yaml:"model_type"` // "ollama" or "gemini"
	OllamaBaseURL string  `yaml:"ollama_base_url"`
	GeminiAPIKey  string  `yaml:"gemini_api_key"`
	Temperature   float64 `yaml:"temperature"`
	MaxLength     int     `yaml:"max_length"`
	APIHost       string  `yaml:"api_host"`
	APIPort       int     `yaml:"api_port"`
	LogLevel      string  `yaml:"log_level"`
	DatabaseURL   string  `yaml:"database_url"`
	JiraURL       string  `yaml:"jira_url"`
	JiraToken     string  `yaml:"jira_token"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. If STORYASSIST_CONFIG names a YAML file, its values override the
// environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		ModelName:     envOr("MODEL_NAME", "llama3.2-vision"),
		ModelType:     envOr("MODEL_TYPE", "ollama"),
		OllamaBaseURL: envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
		GeminiAPIKey:  os.Getenv("GEMINI_API"),
		Temperature:   0.7,
		MaxLength:     2048,
		APIHost:       envOr("API_HOST", "0.0.0.0"),
		APIPort:       8000,
		LogLevel:      envOr("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JiraURL:       os.Getenv("JIRA_URL"),
		JiraToken:     os.Getenv("JIRA_TOKEN"),
	}

	if t := os.Getenv("TEMPERATURE"); t != "" {
		if parsed, err := strconv.ParseFloat(t, 64); err == nil {
			cfg.Temperature = parsed
		}
	}
	if ml := os.Getenv("MAX_LENGTH"); ml != "" {
		if parsed, err := strconv.Atoi(ml); err == nil && parsed > 0 {
			cfg.MaxLength = parsed
		}
	}
	if p := os.Getenv("API_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			cfg.APIPort = parsed
		}
	}

	if path := os.Getenv("STORYASSIST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("storyassist: read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("storyassist: parse config file: %w", err)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
