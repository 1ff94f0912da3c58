// Package config loads the analyzer configuration: built-in defaults,
// the first .shellshield.json found on the search chain, YAML rule packs,
// and finally environment overrides (environment wins over file values).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigFileName is searched for on the directory chain.
	ConfigFileName = ".shellshield.json"

	// ConfigDirName under $HOME holds the audit log and rule packs.
	ConfigDirName = ".shellshield"

	DefaultThreshold        = 50
	DefaultMaxSubshellDepth = 5
)

// Modes map the analyzer verdict to caller behavior.
const (
	ModeEnforce     = "enforce"
	ModeInteractive = "interactive"
	ModePermissive  = "permissive"
)

// CustomRule is a user-supplied regex with the suggestion shown on match.
type CustomRule struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Suggestion string `json:"suggestion" yaml:"suggestion"`
}

// Config is immutable once loaded; the analyzer and every recursive
// subshell analysis share one instance.
type Config struct {
	Blocked          map[string]bool
	Allowed          map[string]bool
	TrustedDomains   []string
	Threshold        int
	MaxSubshellDepth int
	Mode             string
	CustomRules      []CustomRule
	ContextPath      string

	// Source records which file supplied the base values, for --doctor.
	Source string
}

// Default returns the built-in configuration.
func Default(defaultBlocked, defaultTrusted []string) *Config {
	cfg := &Config{
		Blocked:          map[string]bool{},
		Allowed:          map[string]bool{},
		TrustedDomains:   append([]string{}, defaultTrusted...),
		Threshold:        DefaultThreshold,
		MaxSubshellDepth: DefaultMaxSubshellDepth,
		Mode:             ModeEnforce,
	}
	for _, b := range defaultBlocked {
		cfg.Blocked[b] = true
	}
	return cfg
}

// Load builds the effective configuration: defaults, then the first
// config file on the search chain, then rule packs, then environment.
// Loading never fails — a broken file degrades to defaults.
func Load(defaultBlocked, defaultTrusted []string) *Config {
	cfg := Default(defaultBlocked, defaultTrusted)

	if path := findConfigFile(); path != "" {
		applyFile(cfg, path)
	}

	if home, err := os.UserHomeDir(); err == nil {
		applyPacks(cfg, filepath.Join(home, ConfigDirName, "packs"))
	}

	applyEnv(cfg)
	return cfg
}

// findConfigFile walks the search chain and returns the first existing
// .shellshield.json: $INIT_CWD, $PWD, the process cwd, the invoking
// binary's directory and its parent, then $HOME.
func findConfigFile() string {
	var dirs []string
	if d := os.Getenv("INIT_CWD"); d != "" {
		dirs = append(dirs, d)
	}
	if d := os.Getenv("PWD"); d != "" {
		dirs = append(dirs, d)
	}
	if d, err := os.Getwd(); err == nil {
		dirs = append(dirs, d)
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Dir(exeDir))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	seen := map[string]bool{}
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		path := filepath.Join(d, ConfigFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// applyFile merges one JSON config file into cfg. Keys are decoded
// individually so a single bad value doesn't discard the rest of the
// file; unknown keys are ignored.
func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		debugf("config: read %s: %v", path, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		debugf("config: parse %s: %v", path, err)
		return
	}
	cfg.Source = path

	decode := func(key string, dst interface{}) bool {
		msg, ok := raw[key]
		if !ok {
			return false
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			debugf("config: %s: invalid %q value: %v", path, key, err)
			return false
		}
		return true
	}

	var blocked, allowed, trusted []string
	if decode("blocked", &blocked) {
		for _, b := range blocked {
			cfg.Blocked[strings.ToLower(strings.TrimSpace(b))] = true
		}
	}
	if decode("allowed", &allowed) {
		for _, a := range allowed {
			cfg.Allowed[strings.ToLower(strings.TrimSpace(a))] = true
		}
	}
	if decode("trustedDomains", &trusted) {
		cfg.TrustedDomains = append(cfg.TrustedDomains, trusted...)
	}

	var threshold uint32
	if decode("threshold", &threshold) && threshold > 0 {
		cfg.Threshold = int(threshold)
	}
	var depth uint32
	if decode("maxSubshellDepth", &depth) && depth > 0 {
		cfg.MaxSubshellDepth = int(depth)
	}

	var mode string
	if decode("mode", &mode) && validMode(mode) {
		cfg.Mode = mode
	}

	var rules []CustomRule
	if decode("customRules", &rules) {
		cfg.CustomRules = append(cfg.CustomRules, rules...)
	}

	var ctxPath string
	if decode("contextPath", &ctxPath) {
		cfg.ContextPath = ctxPath
	}
}

func validMode(m string) bool {
	switch m {
	case ModeEnforce, ModeInteractive, ModePermissive:
		return true
	}
	return false
}

// envOverrides is processed by envconfig; environment beats file values.
type envOverrides struct {
	BlockCommands    []string `envconfig:"OPENCODE_BLOCK_COMMANDS"`
	AllowCommands    []string `envconfig:"OPENCODE_ALLOW_COMMANDS"`
	Threshold        uint32   `envconfig:"SHELLSHIELD_THRESHOLD"`
	MaxSubshellDepth uint32   `envconfig:"SHELLSHIELD_MAX_SUBSHELL_DEPTH"`
	Mode             string   `envconfig:"SHELLSHIELD_MODE"`
	ContextPath      string   `envconfig:"SHELLSHIELD_CONTEXT_PATH"`
}

func applyEnv(cfg *Config) {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		debugf("config: env overrides: %v", err)
		return
	}

	for _, b := range env.BlockCommands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			cfg.Blocked[b] = true
		}
	}
	for _, a := range env.AllowCommands {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			cfg.Allowed[a] = true
		}
	}
	if env.Threshold > 0 {
		cfg.Threshold = int(env.Threshold)
	}
	if env.MaxSubshellDepth > 0 {
		cfg.MaxSubshellDepth = int(env.MaxSubshellDepth)
	}
	if validMode(env.Mode) {
		cfg.Mode = env.Mode
	}
	if env.ContextPath != "" {
		cfg.ContextPath = env.ContextPath
	}
}

// SkipRequested reports whether SHELLSHIELD_SKIP asks for a full bypass.
func SkipRequested() bool {
	switch strings.ToLower(os.Getenv("SHELLSHIELD_SKIP")) {
	case "1", "true", "yes", "on", "enable", "enabled":
		return true
	}
	return false
}

// AuditLogPath resolves the audit log destination.
func AuditLogPath() string {
	if p := os.Getenv("SHELLSHIELD_AUDIT_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ConfigDirName, "audit.log")
}

func debugf(format string, args ...interface{}) {
	if os.Getenv("DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "[shellshield] "+format+"\n", args...)
	}
}
