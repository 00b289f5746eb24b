package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Default values applied by DefaultConfig.
const (
	DefaultDumpDir     = "./dump"
	DefaultDevToolsURL = "http://127.0.0.1:9222"
	DefaultLogLevel    = "info"
)

// RepoDirName is the per-project config directory searched by LoadWithRepo.
const RepoDirName = ".dirdump"

// Config holds application configuration.
type Config struct {
	// DumpDir is the root of the dump tree. Relative paths are resolved
	// against the working directory.
	DumpDir string `json:"dump_dir,omitempty"`

	// DumpRequestContent enables persisting request bodies as "name (request)" files.
	// Off by default; response bodies are always persisted.
	DumpRequestContent bool `json:"dump_request_content,omitempty"`

	// UnsafeConcurrentWrites drops the single write-serialization point.
	// Concurrent captures of the same URL may then store an identical payload twice.
	UnsafeConcurrentWrites bool `json:"unsafe_concurrent_writes,omitempty"`

	// DevToolsURL is the Chrome remote debugging endpoint used by `capture`.
	DevToolsURL string `json:"devtools_url,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFile enables a rotated JSON log file in addition to stderr.
	LogFile string `json:"log_file,omitempty"`

	LogMaxSizeMB  int `json:"log_max_size_mb,omitempty"`
	LogMaxBackups int `json:"log_max_backups,omitempty"`
	LogMaxAgeDays int `json:"log_max_age_days,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DumpDir:     DefaultDumpDir,
		DevToolsURL: DefaultDevToolsURL,
		LogLevel:    DefaultLogLevel,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dirdump.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.dirdump) and repo (.dirdump) directories.
// Repo config is found by walking upward from startDir to find the nearest .dirdump/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .dirdump/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.DumpDir = firstString(overlay.DumpDir, base.DumpDir)
	result.DevToolsURL = firstString(overlay.DevToolsURL, base.DevToolsURL)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFile = firstString(overlay.LogFile, base.LogFile)

	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.LogMaxSizeMB = firstInt(overlay.LogMaxSizeMB, base.LogMaxSizeMB)
	result.LogMaxBackups = firstInt(overlay.LogMaxBackups, base.LogMaxBackups)
	result.LogMaxAgeDays = firstInt(overlay.LogMaxAgeDays, base.LogMaxAgeDays)

	// Booleans: overlay wins if true, else base
	result.DumpRequestContent = base.DumpRequestContent || overlay.DumpRequestContent
	result.UnsafeConcurrentWrites = base.UnsafeConcurrentWrites || overlay.UnsafeConcurrentWrites

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
