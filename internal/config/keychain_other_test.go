//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSecretsFileRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := keychainGet(keychainService, "gemini_api_key"); err == nil {
		t.Fatal("expected error before anything is stored")
	}
	if err := keychainSet(keychainService, "gemini_api_key", "k1"); err != nil {
		t.Fatalf("keychainSet: %v", err)
	}
	if err := keychainSet(keychainService, "api_token", "t1"); err != nil {
		t.Fatalf("keychainSet: %v", err)
	}

	got, err := NewKeychain().Get(keychainService, "gemini_api_key")
	if err != nil || got != "k1" {
		t.Errorf("Get = %q, %v; want k1", got, err)
	}

	info, err := os.Stat(secretsFilePath())
	if err != nil {
		t.Fatalf("secrets file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("secrets file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestSecretsFileCorruptIsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	p := filepath.Join(dir, "feelbuddy", "secrets.json")
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := keychainSet(keychainService, "api_token", "t1"); err == nil {
		t.Fatal("expected error for corrupt secrets file")
	}
	data, _ := os.ReadFile(p)
	if string(data) != "{not json" {
		t.Errorf("corrupt file was rewritten: %q", data)
	}
}
