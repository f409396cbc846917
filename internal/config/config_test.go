package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != DefaultName {
		t.Errorf("name: got %q, want %q", cfg.Name, DefaultName)
	}
	if cfg.PathPrefix != DefaultPathPrefix {
		t.Errorf("path_prefix: got %q, want %q", cfg.PathPrefix, DefaultPathPrefix)
	}
	if cfg.Profile != "development" {
		t.Errorf("profile: got %q, want development", cfg.Profile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level: got %q, want info", cfg.LogLevel)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", cfg.Stream.Interval, DefaultStreamInterval)
	}
}

func TestLoad_FullFile(t *testing.T) {
	p := writeConfig(t, `name: telemetry-gw
path_prefix: /telemetry
profile: production
log_level: debug
port: 9090
efd:
  instance: usdf_efd
auth:
  mode: apikey
  key_env: MY_KEY
  header: x-wirnn-key
stream:
  topics: ["lsst.sal.ATDome.position"]
  interval: 10s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "telemetry-gw" {
		t.Errorf("name: got %q", cfg.Name)
	}
	if cfg.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Port)
	}
	if cfg.EFD.Instance != "usdf_efd" {
		t.Errorf("efd.instance: got %q", cfg.EFD.Instance)
	}
	if cfg.Auth.EffectiveHeader() != "x-wirnn-key" {
		t.Errorf("header: got %q, want x-wirnn-key", cfg.Auth.EffectiveHeader())
	}
	if cfg.Stream.Interval != 10*time.Second {
		t.Errorf("stream.interval: got %v, want 10s", cfg.Stream.Interval)
	}
	if len(cfg.Stream.Topics) != 1 {
		t.Errorf("stream.topics: got %v", cfg.Stream.Topics)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeConfig(t, `name: from-file
profile: development
`)
	t.Setenv("WIRNN_SERVICE_NAME", "from-env")
	t.Setenv("WIRNN_SERVICE_PATH_PREFIX", "/env-prefix")
	t.Setenv("WIRNN_SERVICE_PROFILE", "production")
	t.Setenv("WIRNN_SERVICE_LOG_LEVEL", "ERROR")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name: got %q, want from-env", cfg.Name)
	}
	if cfg.PathPrefix != "/env-prefix" {
		t.Errorf("path_prefix: got %q, want /env-prefix", cfg.PathPrefix)
	}
	if cfg.Profile != "production" {
		t.Errorf("profile: got %q, want production", cfg.Profile)
	}
	// Log level is normalised to lowercase.
	if cfg.LogLevel != "error" {
		t.Errorf("log_level: got %q, want error", cfg.LogLevel)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_WIRNN_KEY", "supersecret")
	p := writeConfig(t, `auth:
  mode: apikey
  key_env: TEST_WIRNN_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_UnknownProfile(t *testing.T) {
	p := writeConfig(t, `profile: staging`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
}

func TestLoad_UnknownLogLevel(t *testing.T) {
	p := writeConfig(t, `log_level: chatty`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown log level, got nil")
	}
}

func TestLoad_BadPathPrefix(t *testing.T) {
	p := writeConfig(t, `path_prefix: no-slash`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for prefix without leading slash, got nil")
	}
}

func TestLoad_UnknownAuthMode(t *testing.T) {
	p := writeConfig(t, `auth:
  mode: oauth2
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown auth mode, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
