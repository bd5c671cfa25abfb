package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	Ollama  OllamaConfig
	Display DisplayConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
}

type StorageConfig struct {
	DataDir string
}

type GeminiConfig struct {
	APIKey     string
	ChatModel  string
	VoiceModel string
	VoiceName  string
}

// OllamaConfig configures the local text-only fallback used when no Gemini
// key is set. An empty ChatModel disables it.
type OllamaConfig struct {
	BaseURL   string
	ChatModel string
}

type DisplayConfig struct {
	// Timezone is an IANA name or "Local".
	Timezone string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       4100,
			MCPEnabled: true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Gemini: GeminiConfig{
			ChatModel:  "gemini-2.5-flash",
			VoiceModel: "gemini-2.5-flash-native-audio-preview-09-2025",
			VoiceName:  "Puck",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Display: DisplayConfig{
			Timezone: "Local",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.feelbuddy.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/feelbuddy/config.json
// and secrets fall back to a secrets file under $XDG_DATA_HOME/feelbuddy.
//
// Environment variables (FEELBUDDY_*) override backend values on all
// platforms. A missing Gemini API key is not an error; Buddy is simply
// unavailable until one is configured.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadWith(b ConfigBackend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MissingGeminiKeyHint tells the user where the Gemini API key can be set.
func MissingGeminiKeyHint() string {
	return "set FEELBUDDY_GEMINI_API_KEY or run 'feelbuddy config set gemini.api_key <key>'" + apiKeyHint()
}

// Location resolves the display timezone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Display.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid display.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// LogLevel maps log.level to a slog level. Unknown values mean info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
