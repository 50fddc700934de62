// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Store  StoreConfig
	Drive  DriveConfig
	Audio  AudioConfig
	Server ServerConfig
	Auth   AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds local chapter database configuration.
type StoreConfig struct {
	// Path is the Badger database directory (default: ~/Lectern/db).
	Path string
}

// DriveConfig holds remote folder storage configuration.
type DriveConfig struct {
	// Backend selects the storage implementation (currently "fs").
	Backend string
	// Root is the root directory for the fs backend.
	Root string
	// RequestsPerSecond throttles outbound storage calls (default: 8).
	RequestsPerSecond float64
	// Burst is the token bucket burst size (default: 4).
	Burst int
}

// AudioConfig holds speech generation configuration.
type AudioConfig struct {
	// VoiceID is the default synthesis voice.
	VoiceID string
	// RulesVersion tags the pronunciation rule set in audio signatures.
	RulesVersion string
	// FormatVersion tags the audio container format in audio signatures.
	FormatVersion string
	// ExistenceCheckBatch bounds the concurrent cached-audio existence checks (default: 8).
	ExistenceCheckBatch int
	// TTSEndpoint is the speech synthesis service base URL. Empty disables
	// audio generation; scans and conversions still work.
	TTSEndpoint string
	// TTSAPIKey authenticates against the synthesis service.
	TTSAPIKey string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	// SessionTokenKey is the PASETO v4 symmetric key as hex (64 chars).
	SessionTokenKey string
	// SessionDuration is how long a session token stays valid (default: 720h).
	SessionDuration time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storePath := flag.String("store-path", "", "Path for the chapter database")
	driveBackend := flag.String("drive-backend", "", "Remote storage backend (fs)")
	driveRoot := flag.String("drive-root", "", "Root directory for the fs storage backend")
	driveRPS := flag.String("drive-rps", "", "Outbound storage requests per second (default: 8)")
	driveBurst := flag.String("drive-burst", "", "Outbound storage burst size (default: 4)")
	voiceID := flag.String("voice", "", "Default synthesis voice ID")
	sessionKey := flag.String("session-key", "", "Session token key (64 hex chars)")
	sessionDuration := flag.String("session-duration", "", "Session token lifetime (e.g., 720h)")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Path: getConfigValue(*storePath, "STORE_PATH", ""),
		},
		Drive: DriveConfig{
			Backend:           getConfigValue(*driveBackend, "DRIVE_BACKEND", "fs"),
			Root:              getConfigValue(*driveRoot, "DRIVE_ROOT", ""),
			RequestsPerSecond: getFloatConfigValue(*driveRPS, "DRIVE_RPS", 8),
			Burst:             getIntConfigValue(*driveBurst, "DRIVE_BURST", 4),
		},
		Audio: AudioConfig{
			VoiceID:             getConfigValue(*voiceID, "VOICE_ID", "en-us-standard"),
			RulesVersion:        getConfigValue("", "RULES_VERSION", "r2"),
			FormatVersion:       getConfigValue("", "AUDIO_FORMAT_VERSION", "mp3v1"),
			ExistenceCheckBatch: getIntConfigValue("", "AUDIO_EXISTENCE_BATCH", 8),
			TTSEndpoint:         getConfigValue("", "TTS_ENDPOINT", ""),
			TTSAPIKey:           getConfigValue("", "TTS_API_KEY", ""),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Auth: AuthConfig{
			SessionTokenKey: getConfigValue(*sessionKey, "SESSION_TOKEN_KEY", ""),
		},
	}

	// Parse durations.
	sessionDurationStr := getConfigValue(*sessionDuration, "SESSION_DURATION", "720h")
	parsed, err := time.ParseDuration(sessionDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration %q: %w", sessionDurationStr, err)
	}
	cfg.Auth.SessionDuration = parsed

	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	cfg.Server.ReadTimeout, err = time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	cfg.Server.WriteTimeout, err = time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	cfg.Server.IdleTimeout, err = time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}

	// Expand and default paths.
	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}
	if err := cfg.expandDriveRoot(); err != nil {
		return nil, fmt.Errorf("invalid drive root: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Drive.Backend != "fs" {
		return fmt.Errorf("invalid drive backend: %s (only fs is supported)", c.Drive.Backend)
	}

	if c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	if c.Drive.RequestsPerSecond <= 0 {
		return errors.New("drive requests per second must be positive")
	}

	// Drive.Root can be empty - a folder can be provided per request.
	// Session key is optional in development; auth.NewSessionValidator enforces it.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStorePath expands ~ and makes the path absolute, defaulting to ~/Lectern/db.
func (c *Config) expandStorePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Lectern", "db")

	expanded, err := expandPath(c.Store.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Store.Path = expanded
	return nil
}

// expandDriveRoot expands ~ and makes the path absolute.
// If empty, leaves it empty so a folder can be supplied per request.
func (c *Config) expandDriveRoot() error {
	if c.Drive.Root == "" {
		return nil
	}

	expanded, err := expandPath(c.Drive.Root, "")
	if err != nil {
		return err
	}
	c.Drive.Root = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
