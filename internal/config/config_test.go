package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRepoConfig(t *testing.T, root, body string) string {
	t.Helper()
	dir := filepath.Join(root, RepoDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DumpDir != DefaultDumpDir {
		t.Errorf("DumpDir = %q, want %q", cfg.DumpDir, DefaultDumpDir)
	}
	if cfg.DevToolsURL != DefaultDevToolsURL {
		t.Errorf("DevToolsURL = %q, want %q", cfg.DevToolsURL, DefaultDevToolsURL)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.DumpRequestContent || cfg.UnsafeConcurrentWrites {
		t.Error("boolean options should default to false")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	body := `{"dump_dir": "/var/dump", "dump_request_content": true, "log_level": "debug", "log_max_size_mb": 50}`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DumpDir != "/var/dump" {
		t.Errorf("DumpDir = %q, want %q", cfg.DumpDir, "/var/dump")
	}
	if !cfg.DumpRequestContent {
		t.Error("DumpRequestContent = false, want true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogMaxSizeMB != 50 {
		t.Errorf("LogMaxSizeMB = %d, want 50", cfg.LogMaxSizeMB)
	}
	// Untouched default survives.
	if cfg.DevToolsURL != DefaultDevToolsURL {
		t.Errorf("DevToolsURL = %q, want default", cfg.DevToolsURL)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["dump_persist", "dump_fetch"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "dump_persist" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "dump_persist")
	}
	if cfg.DisabledTools[1] != "dump_fetch" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "dump_fetch")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"dump_dir": "/global/dump", "log_file": "/tmp/d.log", "disabled_tools": ["dump_persist"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	writeRepoConfig(t, repoRoot, `{"dump_dir": "./captures", "disabled_tools": ["dump_fetch"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.DumpDir != "./captures" {
		t.Errorf("DumpDir = %q, want ./captures (repo override)", cfg.DumpDir)
	}
	// Global scalar kept when repo is silent
	if cfg.LogFile != "/tmp/d.log" {
		t.Errorf("LogFile = %q, want /tmp/d.log", cfg.LogFile)
	}
	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	globalConfig := `{"devtools_url": "http://10.0.0.2:9222", "disabled_tools": ["dump_persist"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.DevToolsURL != "http://10.0.0.2:9222" {
		t.Errorf("DevToolsURL = %q", cfg.DevToolsURL)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "dump_persist" {
		t.Errorf("DisabledTools = %v, want [dump_persist]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_OnlyRepo(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeRepoConfig(t, repoRoot, `{"unsafe_concurrent_writes": true}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if !cfg.UnsafeConcurrentWrites {
		t.Error("UnsafeConcurrentWrites = false, want true")
	}
	// Default value preserved
	if cfg.DumpDir != DefaultDumpDir {
		t.Errorf("DumpDir = %q, want %q (default)", cfg.DumpDir, DefaultDumpDir)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.DumpDir != DefaultDumpDir {
		t.Errorf("DumpDir = %q, want %q", cfg.DumpDir, DefaultDumpDir)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_InvalidRepoConfig(t *testing.T) {
	repoRoot := t.TempDir()
	writeRepoConfig(t, repoRoot, `{"dump_dir": `)

	if _, err := LoadWithRepo(t.TempDir(), repoRoot); err == nil {
		t.Fatal("LoadWithRepo() expected error for malformed repo config")
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{DumpDir: "./dump", DBMaxOpenConns: 5, LogLevel: "info"}
	overlay := &Config{DumpDir: "./other", LogLevel: "  "}

	result := Merge(base, overlay)

	if result.DumpDir != "./other" {
		t.Errorf("DumpDir = %q, want ./other (overlay)", result.DumpDir)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info (blank overlay ignored)", result.LogLevel)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{DumpRequestContent: true}
	overlay := &Config{UnsafeConcurrentWrites: true}

	result := Merge(base, overlay)

	if !result.DumpRequestContent {
		t.Error("DumpRequestContent should be true (base OR overlay)")
	}
	if !result.UnsafeConcurrentWrites {
		t.Error("UnsafeConcurrentWrites should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"dump_persist", "dump_fetch"}}
	overlay := &Config{DisabledTools: []string{"dump_fetch", " dump_stats "}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"dump_persist", "dump_fetch", "dump_stats"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeRepoConfig(t, tmpDir, `{}`)

	found := FindRepoConfig(tmpDir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.dirdump/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	configPath := writeRepoConfig(t, tmpDir, `{}`)

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	found := FindRepoConfig(t.TempDir())
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	tmpDir := t.TempDir()
	globalDir := t.TempDir()
	writeRepoConfig(t, tmpDir, `{"disabled_tools": ["dump_persist"]}`)

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "dump_persist" {
		t.Errorf("DisabledTools = %v, want [dump_persist]", cfg.DisabledTools)
	}
}
