package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvServerURL   = "CATROID_SERVER_URL"
	EnvToken       = "CATROID_TOKEN"
	EnvUsername    = "CATROID_USERNAME"
	EnvProjectsDir = "CATROID_PROJECTS_DIR"
	EnvMaxRetries  = "CATROID_MAX_RETRIES"
	EnvDisableH2   = "DISABLE_HTTP2"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Variables that are already set are not overridden. Missing
// files are not an error.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays CATROID_* environment variables on the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvProjectsDir); v != "" {
		c.ProjectsDir = v
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if os.Getenv(EnvDisableH2) == "true" {
		c.EnableHTTP2 = false
	}
}
