package config

import (
	"os"
	"path/filepath"
	"testing"
)

var (
	testBlocked = []string{"rm", "shred"}
	testTrusted = []string{"github.com"}
)

// isolate points every directory on the search chain at empty temp dirs
// so the developer's real config cannot leak into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INIT_CWD", dir)
	t.Setenv("PWD", dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))
	for _, v := range []string{
		"OPENCODE_BLOCK_COMMANDS", "OPENCODE_ALLOW_COMMANDS",
		"SHELLSHIELD_THRESHOLD", "SHELLSHIELD_MAX_SUBSHELL_DEPTH",
		"SHELLSHIELD_MODE", "SHELLSHIELD_CONTEXT_PATH",
	} {
		t.Setenv(v, "") // register restore
		os.Unsetenv(v)
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default(testBlocked, testTrusted)
	if !cfg.Blocked["rm"] || !cfg.Blocked["shred"] {
		t.Error("default blocked set incomplete")
	}
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("threshold = %d, want %d", cfg.Threshold, DefaultThreshold)
	}
	if cfg.MaxSubshellDepth != DefaultMaxSubshellDepth {
		t.Errorf("depth = %d, want %d", cfg.MaxSubshellDepth, DefaultMaxSubshellDepth)
	}
	if cfg.Mode != ModeEnforce {
		t.Errorf("mode = %q, want enforce", cfg.Mode)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	content := `{
  "blocked": ["terraform"],
  "allowed": ["rm"],
  "trustedDomains": ["internal.example.com"],
  "threshold": 10,
  "maxSubshellDepth": 3,
  "mode": "permissive",
  "customRules": [{"pattern": "docker\\s+rm", "suggestion": "use docker stop"}],
  "contextPath": "/tmp/ctx.jsonl",
  "someFutureKey": {"ignored": true}
}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(testBlocked, testTrusted)

	if !cfg.Blocked["terraform"] || !cfg.Blocked["rm"] {
		t.Error("file blocked entries must extend the defaults")
	}
	if !cfg.Allowed["rm"] {
		t.Error("allowed entry missing")
	}
	if cfg.Threshold != 10 || cfg.MaxSubshellDepth != 3 {
		t.Errorf("numeric values not applied: %+v", cfg)
	}
	if cfg.Mode != ModePermissive {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if len(cfg.CustomRules) != 1 || cfg.CustomRules[0].Suggestion != "use docker stop" {
		t.Errorf("custom rules = %+v", cfg.CustomRules)
	}
	if cfg.ContextPath != "/tmp/ctx.jsonl" {
		t.Errorf("context path = %q", cfg.ContextPath)
	}
	if len(cfg.TrustedDomains) != len(testTrusted)+1 {
		t.Errorf("trusted domains = %v", cfg.TrustedDomains)
	}
}

func TestLoad_InvalidValuesIgnored(t *testing.T) {
	dir := isolate(t)
	content := `{"threshold": "not-a-number", "mode": "yolo", "blocked": ["dropdb"]}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(testBlocked, testTrusted)
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("invalid threshold must keep default, got %d", cfg.Threshold)
	}
	if cfg.Mode != ModeEnforce {
		t.Errorf("invalid mode must keep default, got %q", cfg.Mode)
	}
	if !cfg.Blocked["dropdb"] {
		t.Error("valid keys must still apply when siblings are invalid")
	}
}

func TestLoad_BrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{{"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(testBlocked, testTrusted)
	if cfg.Threshold != DefaultThreshold || !cfg.Blocked["rm"] {
		t.Errorf("broken file must degrade to defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	content := `{"threshold": 10, "mode": "permissive"}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SHELLSHIELD_THRESHOLD", "75")
	t.Setenv("SHELLSHIELD_MODE", "interactive")
	t.Setenv("OPENCODE_BLOCK_COMMANDS", "dropdb,fdisk")
	t.Setenv("OPENCODE_ALLOW_COMMANDS", "rm")

	cfg := Load(testBlocked, testTrusted)
	if cfg.Threshold != 75 {
		t.Errorf("env threshold must win over file, got %d", cfg.Threshold)
	}
	if cfg.Mode != ModeInteractive {
		t.Errorf("env mode must win over file, got %q", cfg.Mode)
	}
	if !cfg.Blocked["dropdb"] || !cfg.Blocked["fdisk"] {
		t.Error("csv blocked append missing")
	}
	if !cfg.Allowed["rm"] {
		t.Error("csv allowed append missing")
	}
}

func TestLoad_Packs(t *testing.T) {
	dir := isolate(t)
	packsDir := filepath.Join(dir, "home", ConfigDirName, "packs")
	if err := os.MkdirAll(packsDir, 0700); err != nil {
		t.Fatalf("mkdir packs: %v", err)
	}

	pack := `name: db-safety
description: guard database clients
version: "1.0"
blocked:
  - dropdb
customRules:
  - pattern: 'DROP\s+TABLE'
    suggestion: use a migration instead
`
	if err := os.WriteFile(filepath.Join(packsDir, "db.yaml"), []byte(pack), 0600); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	disabled := "name: off\nblocked: [killall]\n"
	if err := os.WriteFile(filepath.Join(packsDir, "_off.yaml"), []byte(disabled), 0600); err != nil {
		t.Fatalf("write disabled pack: %v", err)
	}

	cfg := Load(testBlocked, testTrusted)
	if !cfg.Blocked["dropdb"] {
		t.Error("pack blocked entry missing")
	}
	if cfg.Blocked["killall"] {
		t.Error("underscore-prefixed pack must be skipped")
	}
	if len(cfg.CustomRules) != 1 || cfg.CustomRules[0].Suggestion != "use a migration instead" {
		t.Errorf("pack custom rules = %+v", cfg.CustomRules)
	}
}

func TestSkipRequested(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "On", "enable", "Enabled"} {
		t.Setenv("SHELLSHIELD_SKIP", v)
		if !SkipRequested() {
			t.Errorf("SkipRequested with %q = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		t.Setenv("SHELLSHIELD_SKIP", v)
		if SkipRequested() {
			t.Errorf("SkipRequested with %q = true", v)
		}
	}
}

func TestAuditLogPath(t *testing.T) {
	t.Setenv("SHELLSHIELD_AUDIT_PATH", "/tmp/custom-audit.log")
	if got := AuditLogPath(); got != "/tmp/custom-audit.log" {
		t.Errorf("AuditLogPath = %q", got)
	}

	t.Setenv("SHELLSHIELD_AUDIT_PATH", "")
	t.Setenv("HOME", "/home/dev")
	want := filepath.Join("/home/dev", ConfigDirName, "audit.log")
	if got := AuditLogPath(); got != want {
		t.Errorf("AuditLogPath = %q, want %q", got, want)
	}
}
