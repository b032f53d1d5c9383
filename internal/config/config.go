package config

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL        = "http://127.0.0.1:5000"
	DefaultDBDriver      = "sqlite"
	DefaultDBFileName    = ".labhub.db"
	DefaultLogLevel      = "info"
	DefaultDataDirName   = "data"
	DefaultPublicBaseURL = "https://localhost:5000/static"
	DefaultSessionTTL    = "24h"

	DefaultMediaMaxUploadBytes     int64 = 100 * 1024 * 1024
	DefaultMediaMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultMediaMaxImages                = 10

	DefaultLogMaxSizeMB   = 50
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAgeDays  = 28
	configFileName        = ".labhub.toml"
	configDirEnvKey       = "LABHUB_CONFIG_DIR"
	trustProjectEnvKey    = "LABHUB_TRUST_PROJECT_CONFIG"
	allowedMediaEnvKey    = "LABHUB_ALLOWED_MEDIA_TYPES"
	defaultDotEnvFileName = ".env"
)

// DefaultAllowedMediaTypes are the upload types accepted when none are configured.
var DefaultAllowedMediaTypes = []string{
	"image/jpeg",
	"image/png",
	"video/mp4",
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
}

// MediaConfig controls where uploads land and what is accepted.
type MediaConfig struct {
	DataDir            string   `toml:"data_dir"`
	PublicBaseURL      string   `toml:"public_base_url"`
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes  []string `toml:"allowed_media_types"`
	MaxImages          int      `toml:"max_images"`
}

// AuthConfig controls bearer sessions.
type AuthConfig struct {
	SessionTTL string `toml:"session_ttl"`
}

// Config defines runtime configuration for labhub.
type Config struct {
	APIURL                   string      `toml:"api_url"`
	DBDriver                 string      `toml:"db_driver"`
	DBPath                   string      `toml:"db_path"`
	DBDSN                    string      `toml:"db_dsn"`
	LogLevel                 string      `toml:"log_level"`
	LogFile                  string      `toml:"log_file"`
	LogMaxSizeMB             int         `toml:"log_max_size_mb"`
	LogMaxBackups            int         `toml:"log_max_backups"`
	LogMaxAgeDays            int         `toml:"log_max_age_days"`
	Media                    MediaConfig `toml:"media"`
	Auth                     AuthConfig  `toml:"auth"`
	TrustedProjectConfigPath string      `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:        DefaultAPIURL,
		DBDriver:      DefaultDBDriver,
		LogLevel:      DefaultLogLevel,
		LogMaxSizeMB:  DefaultLogMaxSizeMB,
		LogMaxBackups: DefaultLogMaxBackups,
		LogMaxAgeDays: DefaultLogMaxAgeDays,
		Media: MediaConfig{
			PublicBaseURL:      DefaultPublicBaseURL,
			MaxUploadBytes:     DefaultMediaMaxUploadBytes,
			MultipartMaxMemory: DefaultMediaMultipartMaxMemory,
			AllowedMediaTypes:  append([]string(nil), DefaultAllowedMediaTypes...),
			MaxImages:          DefaultMediaMaxImages,
		},
		Auth: AuthConfig{SessionTTL: DefaultSessionTTL},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path (".env" when empty) into the
// process environment. Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = defaultDotEnvFileName
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_driver",
	"db_path",
	"db_dsn",
	"log_level",
	"log_file",
	"log_max_size_mb",
	"log_max_backups",
	"log_max_age_days",
	"media.data_dir",
	"media.public_base_url",
	"media.max_upload_bytes",
	"media.multipart_max_memory",
	"media.allowed_media_types",
	"media.max_images",
	"auth.session_ttl",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_driver":
		return c.DBDriver, nil
	case "db_path":
		return c.DBPath, nil
	case "db_dsn":
		return c.DBDSN, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	case "log_max_size_mb":
		return strconv.Itoa(c.LogMaxSizeMB), nil
	case "log_max_backups":
		return strconv.Itoa(c.LogMaxBackups), nil
	case "log_max_age_days":
		return strconv.Itoa(c.LogMaxAgeDays), nil
	case "media.data_dir":
		return c.Media.DataDir, nil
	case "media.public_base_url":
		return c.Media.PublicBaseURL, nil
	case "media.max_upload_bytes":
		return strconv.FormatInt(c.Media.MaxUploadBytes, 10), nil
	case "media.multipart_max_memory":
		return strconv.FormatInt(c.Media.MultipartMaxMemory, 10), nil
	case "media.allowed_media_types":
		return strings.Join(c.Media.AllowedMediaTypes, ","), nil
	case "media.max_images":
		return strconv.Itoa(c.Media.MaxImages), nil
	case "auth.session_ttl":
		return c.Auth.SessionTTL, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SessionTTL parses auth.session_ttl, falling back to the default.
func (c *Config) SessionTTL() time.Duration {
	fallback, _ := time.ParseDuration(DefaultSessionTTL)
	ttl, err := time.ParseDuration(strings.TrimSpace(c.Auth.SessionTTL))
	if err != nil || ttl <= 0 {
		return fallback
	}
	return ttl
}

// DBTarget returns the connection target for the configured driver.
func (c *Config) DBTarget() string {
	if strings.EqualFold(c.DBDriver, "postgres") {
		return c.DBDSN
	}
	return c.DBPath
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv("LABHUB_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("LABHUB_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dsn := os.Getenv("LABHUB_DB_DSN"); dsn != "" {
		cfg.DBDSN = dsn
		if os.Getenv("LABHUB_DB_DRIVER") == "" {
			cfg.DBDriver = "postgres"
		}
	}
	if driver := os.Getenv("LABHUB_DB_DRIVER"); driver != "" {
		cfg.DBDriver = driver
	}
	if dataDir := os.Getenv("LABHUB_DATA_DIR"); dataDir != "" {
		cfg.Media.DataDir = dataDir
	}
	if baseURL := os.Getenv("LABHUB_PUBLIC_BASE_URL"); baseURL != "" {
		cfg.Media.PublicBaseURL = baseURL
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaEnvKey)); raw != "" {
		cfg.Media.AllowedMediaTypes = splitCSV(raw)
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.Media.DataDir == "" {
			cfg.Media.DataDir = filepath.Join(cwd, DefaultDataDirName)
		}
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "media.max_upload_bytes", "media.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "media.max_images", "log_max_size_mb", "log_max_backups", "log_max_age_days":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "media.allowed_media_types":
		return splitCSV(value), nil
	case "db_driver":
		switch strings.ToLower(value) {
		case "sqlite", "postgres":
			return strings.ToLower(value), nil
		default:
			return nil, fmt.Errorf("db_driver must be sqlite or postgres")
		}
	case "auth.session_ttl":
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" {
		c.DBDriver = DefaultDBDriver
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.LogMaxBackups <= 0 {
		c.LogMaxBackups = DefaultLogMaxBackups
	}
	if c.LogMaxAgeDays <= 0 {
		c.LogMaxAgeDays = DefaultLogMaxAgeDays
	}
	if strings.TrimSpace(c.Media.PublicBaseURL) == "" {
		c.Media.PublicBaseURL = DefaultPublicBaseURL
	}
	c.Media.PublicBaseURL = strings.TrimRight(c.Media.PublicBaseURL, "/")
	if c.Media.MaxUploadBytes <= 0 {
		c.Media.MaxUploadBytes = DefaultMediaMaxUploadBytes
	}
	if c.Media.MultipartMaxMemory <= 0 {
		c.Media.MultipartMaxMemory = DefaultMediaMultipartMaxMemory
	}
	if c.Media.MaxImages <= 0 {
		c.Media.MaxImages = DefaultMediaMaxImages
	}
	c.Media.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Media.AllowedMediaTypes)
	if len(c.Media.AllowedMediaTypes) == 0 {
		c.Media.AllowedMediaTypes = append([]string(nil), DefaultAllowedMediaTypes...)
	}
}

// normalizeConfiguredMediaTypes lower-cases, drops parameters and duplicates,
// and keeps the configured order.
func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
