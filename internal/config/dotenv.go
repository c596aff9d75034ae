package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Addr                   string
	AllowedOrigins         []string
	LobbyCapacity          int
	StartingEvents         int
	NarratorTimeoutSeconds int
	OpenAIAPIKey           string
	OpenAIModel            string
	ImageAPIURL            string
	ImageAPIKey            string
	SpeechAPIKey           string
	SpeechBaseURL          string
	SpeechVoiceModel       string
}

func Default() Config {
	return Config{
		Addr: ":8080",
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:3001",
		},
		LobbyCapacity:          3,
		StartingEvents:         10,
		NarratorTimeoutSeconds: 90,
		OpenAIModel:            "gpt-4o-mini",
		SpeechBaseURL:          "https://api.elevenlabs.io",
		SpeechVoiceModel:       "eleven_turbo_v2_5",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Addr = ":" + raw
	}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		parts := strings.Split(raw, ",")
		origins := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if raw := os.Getenv("LOBBY_CAPACITY"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LobbyCapacity = value
		}
	}
	if raw := os.Getenv("STORY_EVENTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StartingEvents = value
		}
	}
	if raw := os.Getenv("NARRATOR_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.NarratorTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("OPENAI_API_KEY"); raw != "" {
		cfg.OpenAIAPIKey = raw
	}
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	if raw := os.Getenv("IMAGE_API_URL"); raw != "" {
		cfg.ImageAPIURL = raw
	}
	if raw := os.Getenv("IMAGE_API_KEY"); raw != "" {
		cfg.ImageAPIKey = raw
	}
	if raw := os.Getenv("SPEECH_API_KEY"); raw != "" {
		cfg.SpeechAPIKey = raw
	}
	if raw := os.Getenv("SPEECH_BASE_URL"); raw != "" {
		cfg.SpeechBaseURL = raw
	}
	if raw := os.Getenv("SPEECH_VOICE_MODEL"); raw != "" {
		cfg.SpeechVoiceModel = raw
	}
	return cfg
}
