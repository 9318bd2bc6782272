// keyring.go provides secure credential storage using the operating
// system's native keyring (Linux: Secret Service, macOS: Keychain,
// Windows: Credential Manager).
//
// Priority for resolving the backend API key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (OPENAI_API_KEY / SMMBOT_API_KEY)
//  3. .env file (loaded by godotenv)
//  4. config.yaml value (least secure, plaintext on disk)
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "smmbot"

	// keyringAPIKey is the key name for the backend API key.
	keyringAPIKey = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty
// string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__smmbot_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// StoreAPIKey saves the backend API key to the OS keyring.
func StoreAPIKey(value string) error {
	return StoreKeyring(keyringAPIKey, value)
}

// DeleteAPIKey removes the backend API key from the OS keyring.
func DeleteAPIKey() error {
	return DeleteKeyring(keyringAPIKey)
}

// ResolveAPIKey fills cfg.Gen.APIKey using the priority chain:
// keyring, then environment, then the value already in the config.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if val := GetKeyring(keyringAPIKey); val != "" {
		cfg.Gen.APIKey = val
		logger.Debug("API key loaded from OS keyring")
		return
	}

	for _, env := range []string{"SMMBOT_API_KEY", "OPENAI_API_KEY"} {
		if val := os.Getenv(env); val != "" {
			cfg.Gen.APIKey = val
			logger.Debug("API key loaded from environment", "var", env)
			return
		}
	}

	if cfg.Gen.APIKey != "" && !isEnvReference(cfg.Gen.APIKey) {
		logger.Debug("API key loaded from config")
		return
	}

	logger.Warn("no API key found. Set one with: smmbot config set-key")
}

// ReadPassword prompts for a secret without echoing it.
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}
