package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const (
	tokenAccount = "api_token"
	tokenEnv     = "FEELBUDDY_API_TOKEN"
)

// GetAPIToken returns the bearer token protecting the local HTTP API. The
// token is generated on first use and kept in the keychain so the daemon
// and the CLI agree on it. FEELBUDDY_API_TOKEN takes precedence.
func GetAPIToken(kc Keychain) (string, error) {
	if tok := os.Getenv(tokenEnv); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(keychainService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := kc.Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
