// Package config provides configuration management for catroid-share.
package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/catrobat/catroid-share/internal/constants"
)

// Config represents the sharing client configuration
type Config struct {
	// Sharing service endpoints
	ServerURL      string
	UploadPath     string
	DownloadPath   string
	CheckTokenPath string
	LibraryURL     string

	// Credentials sent as form fields
	Username string
	Token    string

	// Local project storage
	ProjectsDir string

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// Transport settings
	// MaxRetries is 0 by default: a failed request surfaces immediately.
	MaxRetries      int
	EnableHTTP2     bool
	ProgressChunkKB int

	// Transfer runner
	Workers int

	// Sensor configuration notices shown when a project with LEGO robot
	// bricks is opened
	HideNXTSensorInfo bool
	HideEV3SensorInfo bool
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ServerURL:       constants.DefaultServerURL,
		UploadPath:      constants.DefaultUploadPath,
		DownloadPath:    constants.DefaultDownloadPath,
		CheckTokenPath:  constants.DefaultCheckTokenPath,
		LibraryURL:      constants.DefaultServerURL + constants.DefaultLibraryPath,
		ProjectsDir:     defaultProjectsDir(),
		ProxyMode:       "no-proxy",
		MaxRetries:      0,
		EnableHTTP2:     false,
		ProgressChunkKB: constants.ProgressChunkSize / 1024,
		Workers:         constants.DefaultWorkers,
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "server_url":
			cfg.ServerURL = value
		case "upload_path":
			cfg.UploadPath = value
		case "download_path":
			cfg.DownloadPath = value
		case "check_token_path":
			cfg.CheckTokenPath = value
		case "library_url":
			cfg.LibraryURL = value
		case "username":
			cfg.Username = value
		case "token":
			// SECURITY: tokens belong in CATROID_TOKEN or the token file
			if value != "" {
				log.Warn().Str("file", path).Msg("token in config file is ignored, use the CATROID_TOKEN env var or --token-file")
			}
		case "projects_dir":
			cfg.ProjectsDir = value
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			if value != "" {
				log.Warn().Str("file", path).Msg("proxy_password in config file is ignored, set it at runtime")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = parseBool(value)
		case "max_retries":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.MaxRetries = v
			}
		case "enable_http2":
			cfg.EnableHTTP2 = parseBool(value)
		case "progress_chunk_kb":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProgressChunkKB = v
			}
		case "workers":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.Workers = v
			}
		case "hide_nxt_sensor_info":
			cfg.HideNXTSensorInfo = parseBool(value)
		case "hide_ev3_sensor_info":
			cfg.HideEV3SensorInfo = parseBool(value)
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// token and proxy_password are never written
	records := [][]string{
		{"server_url", cfg.ServerURL},
		{"upload_path", cfg.UploadPath},
		{"download_path", cfg.DownloadPath},
		{"check_token_path", cfg.CheckTokenPath},
		{"library_url", cfg.LibraryURL},
		{"username", cfg.Username},
		{"projects_dir", cfg.ProjectsDir},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"max_retries", strconv.Itoa(cfg.MaxRetries)},
		{"enable_http2", strconv.FormatBool(cfg.EnableHTTP2)},
		{"progress_chunk_kb", strconv.Itoa(cfg.ProgressChunkKB)},
		{"workers", strconv.Itoa(cfg.Workers)},
		{"hide_nxt_sensor_info", strconv.FormatBool(cfg.HideNXTSensorInfo)},
		{"hide_ev3_sensor_info", strconv.FormatBool(cfg.HideEV3SensorInfo)},
	}

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

// MergeWithFlags merges config with command-line flags and environment variables
// Priority (highest to lowest):
//  1. command line flags
//  2. CATROID_* environment variables (including a .env file)
//  3. --token-file / default token file
//  4. config file and defaults
func (c *Config) MergeWithFlags(serverURL, token, tokenFilePath, projectsDir string) {
	if defaultTokenPath := GetDefaultTokenPath(); defaultTokenPath != "" {
		if t, err := ReadTokenFile(defaultTokenPath); err == nil && t != "" {
			c.Token = t
		}
	}
	if tokenFilePath != "" {
		if t, err := ReadTokenFile(tokenFilePath); err == nil && t != "" {
			c.Token = t
		}
	}

	c.ApplyEnv()

	if serverURL != "" {
		c.ServerURL = serverURL
	}
	if token != "" {
		c.Token = token
	}
	if projectsDir != "" {
		c.ProjectsDir = projectsDir
	}

	if c.ServerURL != "" && !strings.HasPrefix(c.ServerURL, "http") {
		c.ServerURL = "https://" + c.ServerURL
	}
	c.ServerURL = strings.TrimSuffix(c.ServerURL, "/")
}

// UploadURL returns the absolute upload endpoint.
func (c *Config) UploadURL() string {
	return c.ServerURL + c.UploadPath
}

// DownloadURL returns the absolute download URL of a shared project.
func (c *Config) DownloadURL(projectID string) string {
	return c.ServerURL + c.DownloadPath + projectID + constants.CatrobatExtension
}

// CheckTokenURL returns the absolute token check endpoint.
func (c *Config) CheckTokenURL() string {
	return c.ServerURL + c.CheckTokenPath
}

// ProgressChunkBytes returns the progress notification granularity in bytes.
func (c *Config) ProgressChunkBytes() int64 {
	if c.ProgressChunkKB <= 0 {
		return constants.ProgressChunkSize
	}
	return int64(c.ProgressChunkKB) * 1024
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.ProjectsDir == "" {
		return fmt.Errorf("projects directory is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Workers < constants.MinWorkers || c.Workers > constants.MaxWorkers {
		return fmt.Errorf("workers must be between %d and %d, got %d",
			constants.MinWorkers, constants.MaxWorkers, c.Workers)
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("unsupported proxy mode: %s", c.ProxyMode)
	}
	return nil
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// ConfigDir is the directory name under the user config dir
const ConfigDir = "catroid-share"

// getConfigDir returns the platform-appropriate config directory.
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Catrobat", "Share")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

func defaultProjectsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Catroid", "projects")
	}
	return "projects"
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return "config.csv"
	}
	return filepath.Join(configDir, "config.csv")
}

// GetDefaultTokenPath returns the default token file path
func GetDefaultTokenPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "token")
}

// ReadTokenFile reads an upload token from a file
// The file should contain only the token (whitespace is trimmed)
// Warns if file permissions are too open (not 0600 on Unix systems)
func ReadTokenFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}

	mode := info.Mode().Perm()
	if runtime.GOOS != "windows" && mode&0077 != 0 {
		fmt.Fprintf(os.Stderr, "Warning: Token file %s has insecure permissions %04o. Consider using 'chmod 600 %s'\n", path, mode, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}

// WriteTokenFile writes an upload token to a file with secure permissions (0600)
func WriteTokenFile(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("cannot write empty token")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}
