package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigCSV_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfigCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("LoadConfigCSV() error = %v", err)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("expected MaxRetries=0 by default, got %d", cfg.MaxRetries)
	}
	if cfg.EnableHTTP2 {
		t.Error("expected HTTP/2 disabled by default")
	}
	if cfg.ProgressChunkBytes() != 20*1024 {
		t.Errorf("expected 20 KiB progress chunks, got %d", cfg.ProgressChunkBytes())
	}
}

func TestLoadConfigCSV_ParsesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	content := "key,value\n" +
		"server_url,http://localhost:8080\n" +
		"projects_dir,/tmp/projects\n" +
		"proxy_mode,basic\n" +
		"proxy_host,proxy.local\n" +
		"proxy_port,3128\n" +
		"max_retries,3\n" +
		"enable_http2,true\n" +
		"progress_chunk_kb,64\n" +
		"workers,4\n" +
		"hide_nxt_sensor_info,true\n" +
		"token,secret\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigCSV(path)
	if err != nil {
		t.Fatalf("LoadConfigCSV() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ProjectsDir != "/tmp/projects" {
		t.Errorf("ProjectsDir = %q", cfg.ProjectsDir)
	}
	if cfg.ProxyMode != "basic" || cfg.ProxyHost != "proxy.local" || cfg.ProxyPort != 3128 {
		t.Errorf("proxy = %s %s:%d", cfg.ProxyMode, cfg.ProxyHost, cfg.ProxyPort)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if !cfg.EnableHTTP2 {
		t.Error("EnableHTTP2 should be true")
	}
	if cfg.ProgressChunkBytes() != 64*1024 {
		t.Errorf("ProgressChunkBytes = %d", cfg.ProgressChunkBytes())
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if !cfg.HideNXTSensorInfo || cfg.HideEV3SensorInfo {
		t.Errorf("sensor notices = nxt:%v ev3:%v", cfg.HideNXTSensorInfo, cfg.HideEV3SensorInfo)
	}
	if cfg.Token != "" {
		t.Error("token from config file must be ignored")
	}
}

func TestSaveConfigCSV_RoundTripKeepsSecretsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.csv")
	cfg := Default()
	cfg.ServerURL = "http://example.test"
	cfg.Token = "secret-token"
	cfg.ProxyPassword = "hunter2"
	cfg.MaxRetries = 2

	if err := SaveConfigCSV(cfg, path); err != nil {
		t.Fatalf("SaveConfigCSV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"secret-token", "hunter2"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("saved config contains secret %q", secret)
		}
	}

	loaded, err := LoadConfigCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ServerURL != cfg.ServerURL || loaded.MaxRetries != 2 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestMergeWithFlags_Priority(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", "")
	t.Setenv(EnvServerURL, "env.example.test")
	t.Setenv(EnvToken, "env-token")

	cfg := Default()
	cfg.MergeWithFlags("", "", "", "")
	if cfg.ServerURL != "https://env.example.test" {
		t.Errorf("ServerURL = %q, want https scheme added to env value", cfg.ServerURL)
	}
	if cfg.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.Token)
	}

	cfg.MergeWithFlags("http://flag.test/", "flag-token", "", "/flag/projects")
	if cfg.ServerURL != "http://flag.test" {
		t.Errorf("ServerURL = %q, want flag value without trailing slash", cfg.ServerURL)
	}
	if cfg.Token != "flag-token" {
		t.Errorf("Token = %q, want flag-token", cfg.Token)
	}
	if cfg.ProjectsDir != "/flag/projects" {
		t.Errorf("ProjectsDir = %q", cfg.ProjectsDir)
	}
}

func TestMergeWithFlags_TokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", "")
	t.Setenv(EnvToken, "")

	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := WriteTokenFile(tokenPath, "  file-token \n"); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.MergeWithFlags("", "", tokenPath, "")
	if cfg.Token != "file-token" {
		t.Errorf("Token = %q, want file-token", cfg.Token)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CATROID_USERNAME=dotenv-user\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvUsername, "")
	os.Unsetenv(EnvUsername)

	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Username != "dotenv-user" {
		t.Errorf("Username = %q, want dotenv-user", cfg.Username)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty server", func(c *Config) { c.ServerURL = "" }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"too many workers", func(c *Config) { c.Workers = 99 }, true},
		{"bad proxy mode", func(c *Config) { c.ProxyMode = "socks" }, true},
		{"ntlm proxy", func(c *Config) { c.ProxyMode = "ntlm" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ProjectsDir = "/tmp/p"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestURLHelpers(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = "http://share.test"
	if got := cfg.UploadURL(); got != "http://share.test/api/upload/upload.json" {
		t.Errorf("UploadURL() = %q", got)
	}
	if got := cfg.DownloadURL("42"); got != "http://share.test/api/download/42.catrobat" {
		t.Errorf("DownloadURL() = %q", got)
	}
}
