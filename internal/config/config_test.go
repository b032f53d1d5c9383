package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// isolateEnv points HOME at an empty dir, clears overrides and chdirs into a
// fresh workspace, which it returns.
func isolateEnv(t *testing.T) (homeDir, workspace string) {
	t.Helper()
	homeDir = t.TempDir()
	workspace = t.TempDir()

	for _, key := range []string{
		configDirEnvKey, trustProjectEnvKey, allowedMediaEnvKey,
		"LABHUB_API_URL", "LABHUB_DB", "LABHUB_DB_DSN", "LABHUB_DB_DRIVER",
		"LABHUB_DATA_DIR", "LABHUB_PUBLIC_BASE_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", homeDir)

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}
	return homeDir, workspace
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.DBDriver)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Media.MaxUploadBytes != 100*1024*1024 {
		t.Fatalf("expected 100 MiB upload limit, got %d", cfg.Media.MaxUploadBytes)
	}
	if cfg.Media.MaxImages != 10 {
		t.Fatalf("expected 10 max images, got %d", cfg.Media.MaxImages)
	}
	if !reflect.DeepEqual(cfg.Media.AllowedMediaTypes, DefaultAllowedMediaTypes) {
		t.Fatalf("unexpected allowed media types: %v", cfg.Media.AllowedMediaTypes)
	}
	if cfg.Media.PublicBaseURL != "https://localhost:5000/static" {
		t.Fatalf("unexpected public base url %q", cfg.Media.PublicBaseURL)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[media]
data_dir = "/srv/labhub"
max_images = 4
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Media.DataDir != "/srv/labhub" {
		t.Fatalf("expected data dir override, got %q", cfg.Media.DataDir)
	}
	if cfg.Media.MaxImages != 4 {
		t.Fatalf("expected max_images 4, got %d", cfg.Media.MaxImages)
	}
	if cfg.Media.PublicBaseURL != DefaultPublicBaseURL {
		t.Fatalf("expected untouched default base url, got %q", cfg.Media.PublicBaseURL)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.labhub.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_driver",
		"db_path",
		"db_dsn",
		"log_level",
		"log_file",
		"media.data_dir",
		"media.public_base_url",
		"media.allowed_media_types",
		"auth.session_ttl",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:   "http://test:1234",
		DBDriver: "postgres",
		DBDSN:    "postgres://lab@db/labhub",
		LogLevel: "warn",
		Media: MediaConfig{
			MaxUploadBytes:    123,
			AllowedMediaTypes: []string{"image/png", "video/mp4"},
			MaxImages:         3,
		},
		Auth: AuthConfig{SessionTTL: "2h"},
	}

	cases := map[string]string{
		"api_url":                   "http://test:1234",
		"db_driver":                 "postgres",
		"db_dsn":                    "postgres://lab@db/labhub",
		"log_level":                 "warn",
		"media.max_upload_bytes":    "123",
		"media.allowed_media_types": "image/png,video/mp4",
		"media.max_images":          "3",
		"auth.session_ttl":          "2h",
	}
	for key, want := range cases {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
	if cfg.DBTarget() != "postgres://lab@db/labhub" {
		t.Fatalf("expected dsn as postgres target, got %q", cfg.DBTarget())
	}
}

func TestSessionTTL(t *testing.T) {
	cfg := Default()
	if cfg.SessionTTL() != 24*time.Hour {
		t.Fatalf("expected 24h default, got %v", cfg.SessionTTL())
	}
	cfg.Auth.SessionTTL = "90m"
	if cfg.SessionTTL() != 90*time.Minute {
		t.Fatalf("expected 90m, got %v", cfg.SessionTTL())
	}
	cfg.Auth.SessionTTL = "soon"
	if cfg.SessionTTL() != 24*time.Hour {
		t.Fatalf("expected fallback on invalid ttl, got %v", cfg.SessionTTL())
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "api_url", "http://lab:1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://lab:1" {
		t.Fatalf("expected 'http://lab:1', got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\napi_url = \"http://keep\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetKeyInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := SetKey(path, "nope", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err := SetKey(path, "db_driver", "mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if err := SetKey(path, "media.max_images", "0"); err == nil {
		t.Fatal("expected error for non-positive max_images")
	}
	if err := SetKey(path, "auth.session_ttl", "forever"); err == nil {
		t.Fatal("expected error for invalid ttl")
	}
}

func TestSetNestedMediaKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.toml")
	if err := SetKey(path, "media.allowed_media_types", "image/png, video/mp4"); err != nil {
		t.Fatalf("set allowed types: %v", err)
	}
	if err := SetKey(path, "media.max_upload_bytes", "2048"); err != nil {
		t.Fatalf("set max upload: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Media.AllowedMediaTypes, []string{"image/png", "video/mp4"}) {
		t.Fatalf("unexpected allowed types: %v", cfg.Media.AllowedMediaTypes)
	}
	if cfg.Media.MaxUploadBytes != 2048 {
		t.Fatalf("expected 2048, got %d", cfg.Media.MaxUploadBytes)
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadDefaultsPathsToWorkspace(t *testing.T) {
	_, workspace := isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected workspace db path, got %q", cfg.DBPath)
	}
	if cfg.Media.DataDir != filepath.Join(workspace, DefaultDataDirName) {
		t.Fatalf("expected workspace data dir, got %q", cfg.Media.DataDir)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	_, workspace := isolateEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, configFileName), []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0644); err != nil {
		t.Fatalf("write override config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("api_url = \"http://ignored\"\n"), 0644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	t.Setenv(configDirEnvKey, configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LABHUB_API_URL", "http://example.com:8080")
	t.Setenv("LABHUB_DB", "/tmp/override.db")
	t.Setenv("LABHUB_DATA_DIR", "/tmp/media")
	t.Setenv("LABHUB_PUBLIC_BASE_URL", "https://labs.example.edu/static/")
	t.Setenv(allowedMediaEnvKey, "image/png; charset=binary, IMAGE/PNG, audio/wav")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.Media.DataDir != "/tmp/media" {
		t.Fatalf("expected env override for data dir, got %q", cfg.Media.DataDir)
	}
	if cfg.Media.PublicBaseURL != "https://labs.example.edu/static" {
		t.Fatalf("expected trimmed base url, got %q", cfg.Media.PublicBaseURL)
	}
	if !reflect.DeepEqual(cfg.Media.AllowedMediaTypes, []string{"image/png", "audio/wav"}) {
		t.Fatalf("unexpected normalized media types: %v", cfg.Media.AllowedMediaTypes)
	}
}

func TestEnvDSNSelectsPostgres(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LABHUB_DB_DSN", "postgres://lab@localhost/labhub")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", cfg.DBDriver)
	}
	if cfg.DBTarget() != "postgres://lab@localhost/labhub" {
		t.Fatalf("unexpected target %q", cfg.DBTarget())
	}
}

func TestLoadFallsBackToDefaultLogLevelWhenConfiguredEmpty(t *testing.T) {
	homeDir, _ := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("log_level = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	homeDir, workspace := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("log_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("log_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected global log level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	homeDir, workspace := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("log_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("log_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	t.Setenv(trustProjectEnvKey, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected project log level 'debug', got %q", cfg.LogLevel)
	}
	expectedPath := filepath.Join(workspace, configFileName)
	if cfg.TrustedProjectConfigPath != expectedPath {
		t.Fatalf("expected trusted project config path %q, got %q", expectedPath, cfg.TrustedProjectConfigPath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	_, workspace := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(workspace, ".env"), []byte("LABHUB_API_URL=http://from-dotenv\nLABHUB_DB=/tmp/dotenv.db\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	os.Unsetenv("LABHUB_API_URL")
	t.Setenv("LABHUB_DB", "/tmp/real.db")

	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LABHUB_API_URL") })

	if got := os.Getenv("LABHUB_API_URL"); got != "http://from-dotenv" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("LABHUB_DB"); got != "/tmp/real.db" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env should not error: %v", err)
	}
}
