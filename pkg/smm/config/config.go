// Package config loads bot configuration from YAML files with secure
// credential management via the OS keyring, environment variables and
// .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bukhantcev/stavfitness26/pkg/smm/bot"
	"github.com/bukhantcev/stavfitness26/pkg/smm/channels/discord"
	"github.com/bukhantcev/stavfitness26/pkg/smm/channels/telegram"
	"github.com/bukhantcev/stavfitness26/pkg/smm/gen"
)

// Config is the root configuration.
type Config struct {
	// Channel selects the chat transport: "telegram" or "discord".
	Channel string `yaml:"channel"`

	Telegram telegram.Config `yaml:"telegram"`
	Discord  discord.Config  `yaml:"discord"`

	// Bot holds the workflow settings (admins, publish target).
	Bot bot.Config `yaml:"bot"`

	// Gen configures the generation backend.
	Gen gen.Config `yaml:"gen"`

	// Timezone for the daily autopost job (IANA name, default Local).
	Timezone string `yaml:"timezone"`

	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	// Path to the sqlite file.
	Path string `yaml:"path"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Channel: "telegram",
		Bot: bot.Config{
			DefaultDailyTime: "10:00",
		},
		Gen: gen.DefaultConfig(),
		Database: DatabaseConfig{
			Path: "data/smmbot.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?error}
// references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}`)

// LoadFromFile reads a YAML config file. It loads .env files first,
// expands environment variable references, then overlays the YAML onto
// defaults. A ${VAR:?message} reference with VAR unset is an error.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment variables: %w", err)
	}

	cfg, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveRelativePaths(cfg, path)
	return cfg, nil
}

// Parse parses YAML bytes, overlaying onto DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML with owner-only permissions,
// replacing a plaintext API key with an env reference when the
// environment already carries it.
func SaveToFile(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.Gen.APIKey = sanitizeSecret(cfg.Gen.APIKey, "OPENAI_API_KEY")

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches standard locations for a config file.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"smmbot.yaml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the parts a running bot cannot do without.
func (c *Config) Validate() error {
	switch c.Channel {
	case "telegram":
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required when channel is telegram")
		}
	case "discord":
		if c.Discord.Token == "" {
			return fmt.Errorf("discord.token is required when channel is discord")
		}
	default:
		return fmt.Errorf("unknown channel %q, expected telegram or discord", c.Channel)
	}
	if len(c.Bot.Admins) == 0 {
		return fmt.Errorf("bot.admins must list at least one admin ID")
	}
	return nil
}

// ---------- Internal ----------

// loadEnvFiles loads .env files without overwriting existing env vars.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} style references with environment
// values. ${VAR:-default} falls back when unset; ${VAR:?message} makes
// an unset VAR a hard error; a bare ${VAR} keeps the placeholder.
func expandEnvVars(input string) (string, error) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, modifier, operand := sub[1], sub[2], sub[3]

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		switch modifier {
		case "-":
			return operand
		case "?":
			msg := operand
			if msg == "" {
				msg = "required environment variable not set"
			}
			missing = append(missing, name+": "+msg)
			return match
		}
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("config error: %s", strings.Join(missing, "; "))
	}
	return result, nil
}

// resolveRelativePaths anchors relative paths at the config file's
// directory so startup does not depend on the working directory.
func resolveRelativePaths(cfg *Config, configPath string) {
	configDir := filepath.Dir(configPath)
	cfg.Database.Path = resolvePath(cfg.Database.Path, configDir)
}

func resolvePath(path, configDir string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}

// sanitizeSecret replaces a real secret with an env var reference for
// safe storage in config files.
func sanitizeSecret(value, envVar string) string {
	if value == "" || isEnvReference(value) {
		return value
	}
	if os.Getenv(envVar) == value {
		return "${" + envVar + "}"
	}
	return value
}

func isEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}
