package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the Keychain interface.
type mockKeychain struct {
	values map[string]string
	err    error
}

func newMockKeychain() *mockKeychain {
	return &mockKeychain{values: make(map[string]string)}
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[service+"/"+account] = value
	return nil
}

// memBackend is an in-memory ConfigBackend.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
	bools   map[string]bool
}

func newMemBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}, bools: map[string]bool{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) GetBool(key string) (bool, bool, error) {
	v, ok := m.bools[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error { m.strings[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.ints[key] = val; return nil }
func (m *memBackend) SetBool(key string, val bool) error { m.bools[key] = val; return nil }
func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	delete(m.bools, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied with an empty backend.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend(), newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if !cfg.Server.MCPEnabled {
		t.Error("Server.MCPEnabled should default to true")
	}
	if cfg.Gemini.ChatModel != "gemini-2.5-flash" {
		t.Errorf("Gemini.ChatModel = %q", cfg.Gemini.ChatModel)
	}
	if cfg.Gemini.VoiceName != "Puck" {
		t.Errorf("Gemini.VoiceName = %q, want Puck", cfg.Gemini.VoiceName)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" || cfg.Ollama.ChatModel != "" {
		t.Errorf("Ollama = %+v, want local URL and no model", cfg.Ollama)
	}
	if cfg.Display.Timezone != "Local" {
		t.Errorf("Display.Timezone = %q, want Local", cfg.Display.Timezone)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir should have a default")
	}
}

// TestMissingGeminiKeyIsNotFatal verifies the daemon can start without a key.
func TestMissingGeminiKeyIsNotFatal(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend(), newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.Gemini.APIKey)
	}
	if !strings.Contains(MissingGeminiKeyHint(), "FEELBUDDY_GEMINI_API_KEY") {
		t.Error("hint should name the env var")
	}
}

// TestBackendValues verifies that backend values replace defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.bools["server.mcp_enabled"] = false
	b.strings["storage.data_dir"] = "/tmp/feelbuddy-test"
	b.strings["gemini.voice_name"] = "Kore"
	b.strings["ollama.chat_model"] = "llama3.2"
	b.strings["display.timezone"] = "Asia/Kolkata"
	b.strings["log.level"] = "debug"

	cfg, err := loadWith(b, newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.MCPEnabled {
		t.Error("Server.MCPEnabled should be false")
	}
	if cfg.Storage.DataDir != "/tmp/feelbuddy-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Gemini.VoiceName != "Kore" {
		t.Errorf("Gemini.VoiceName = %q", cfg.Gemini.VoiceName)
	}
	if cfg.Ollama.ChatModel != "llama3.2" {
		t.Errorf("Ollama.ChatModel = %q", cfg.Ollama.ChatModel)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Kolkata" {
		t.Errorf("Location = %v, %v", loc, err)
	}
	if cfg.LogLevel().String() != "DEBUG" {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel())
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.ints["server.port"] = 5000
	t.Setenv("FEELBUDDY_SERVER_PORT", "6000")
	t.Setenv("FEELBUDDY_GEMINI_API_KEY", "env-key")
	t.Setenv("FEELBUDDY_SERVER_MCP_ENABLED", "nope")

	kc := newMockKeychain()
	kc.values["feelbuddy/gemini_api_key"] = "keychain-key"

	cfg, err := loadWith(b, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Gemini.APIKey)
	}
	if !cfg.Server.MCPEnabled {
		t.Error("unparseable bool should keep the default")
	}
}

// TestKeychainFallback verifies the keychain is consulted when no API key is in env.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := newMockKeychain()
	kc.values["feelbuddy/gemini_api_key"] = "keychain-secret"

	cfg, err := loadWith(newMemBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "keychain-secret" {
		t.Errorf("APIKey = %q, want %q", cfg.Gemini.APIKey, "keychain-secret")
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.strings["display.timezone"] = "Mars/Olympus"
	if _, err := loadWith(b, newMockKeychain()); err == nil {
		t.Error("expected error for unknown timezone")
	}

	b = newMemBackend()
	b.ints["server.port"] = 70000
	if _, err := loadWith(b, newMockKeychain()); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestLocalTimezone(t *testing.T) {
	for _, tz := range []string{"", "Local", "local"} {
		loc, err := Config{Display: DisplayConfig{Timezone: tz}}.Location()
		if err != nil || loc != time.Local {
			t.Errorf("Location(%q) = %v, %v; want time.Local", tz, loc, err)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()
	kc := newMockKeychain()

	if err := setKeyWith(b, kc, "server.port", "4200"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if b.ints["server.port"] != 4200 {
		t.Errorf("port = %d", b.ints["server.port"])
	}
	if err := setKeyWith(b, kc, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, kc, "server.mcp_enabled", "0"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if v, ok := b.bools["server.mcp_enabled"]; !ok || v {
		t.Errorf("bool stored as %v (present %v), want false", v, ok)
	}
	if err := setKeyWith(b, kc, "gemini.api_key", "sekret"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if kc.values["feelbuddy/gemini_api_key"] != "sekret" {
		t.Error("secret should be stored in the keychain")
	}
	if _, ok := b.strings["gemini.api_key"]; ok {
		t.Error("secret must not be written to the backend")
	}
	if err := setKeyWith(b, kc, "nope.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "sekret"

	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "sekret") {
			t.Errorf("secret leaked in %s", k.Key)
		}
		if k.Key == "gemini.api_key" && k.Value != "(set)" {
			t.Errorf("gemini.api_key shown as %q", k.Value)
		}
	}
	if len(ValidKeys()) != len(specs) {
		t.Error("ValidKeys should list every key")
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feelbuddy", "config.json")

	b := newFileBackend(path)
	if err := b.SetInt("server.port", 4300); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := b.SetString("gemini.voice_name", "Charon"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetBool("server.mcp_enabled", false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.GetInt("server.port")
	if err != nil || !ok || port != 4300 {
		t.Errorf("GetInt = %d, %v, %v", port, ok, err)
	}
	name, ok, _ := reloaded.GetString("gemini.voice_name")
	if !ok || name != "Charon" {
		t.Errorf("GetString = %q, %v", name, ok)
	}
	enabled, ok, err := reloaded.GetBool("server.mcp_enabled")
	if err != nil || !ok || enabled {
		t.Errorf("GetBool = %v, %v, %v", enabled, ok, err)
	}

	if err := reloaded.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newFileBackend(path).GetInt("server.port"); ok {
		t.Error("deleted key should be gone")
	}
}

func TestGetAPIToken(t *testing.T) {
	t.Setenv("FEELBUDDY_API_TOKEN", "")
	kc := newMockKeychain()

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}
	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken (again): %v", err)
	}
	if first != second {
		t.Error("token should be stable once generated")
	}

	t.Setenv("FEELBUDDY_API_TOKEN", "from-env")
	if tok, _ := GetAPIToken(kc); tok != "from-env" {
		t.Errorf("env token should win, got %q", tok)
	}

	t.Setenv("FEELBUDDY_API_TOKEN", "")
	if _, err := GetAPIToken(&mockKeychain{err: errors.New("locked")}); err == nil {
		t.Error("expected error when the token cannot be stored")
	}
}
