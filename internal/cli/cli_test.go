package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shellshield/shellshield/internal/analyzer"
	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/gitstatus"
	"github.com/shellshield/shellshield/internal/logger"
	"github.com/shellshield/shellshield/internal/patterns"
	"github.com/shellshield/shellshield/internal/shellctx"
)

func TestParseTypeLine(t *testing.T) {
	tests := []struct {
		line string
		name string
		kind string
		body string
		ok   bool
	}{
		{"ll is aliased to `ls -la'", "ll", "alias", "ls -la", true},
		{"deploy is a function", "deploy", "function", "", true},
		{"cd is a shell builtin", "cd", "builtin", "", true},
		{"ls is /bin/ls", "ls", "file", "/bin/ls", true},
		{"random output", "", "", "", false},
		{"", "", "", "", false},
	}

	for _, tt := range tests {
		name, kind, body, ok := parseTypeLine(tt.line)
		if ok != tt.ok || name != tt.name || kind != tt.kind || body != tt.body {
			t.Errorf("parseTypeLine(%q) = (%q, %q, %q, %v), want (%q, %q, %q, %v)",
				tt.line, name, kind, body, ok, tt.name, tt.kind, tt.body, tt.ok)
		}
	}
}

func TestPrintInitSnippet_UnknownShell(t *testing.T) {
	if err := printInitSnippet("powershell"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func newTestGate(t *testing.T, mode string) *gate {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHELLSHIELD_AUDIT_PATH", filepath.Join(t.TempDir(), "audit.log"))

	cfg := config.Default(patterns.DefaultBlockedCommands, patterns.DefaultTrustedDomains)
	cfg.Mode = mode
	a := analyzer.New(cfg, shellctx.Snapshot{}, &gitstatus.StaticChecker{})
	return newGateWith(cfg, a)
}

func TestGateStdin_AllowsBenignHookPayload(t *testing.T) {
	g := newTestGate(t, config.ModeEnforce)
	defer g.Close()

	// must return (not exit) for an allowed command
	g.GateStdin(strings.NewReader(`{"tool_input":{"command":"ls -la"}}`))
	g.GateStdin(strings.NewReader(`{"command":"git status"}`))
	g.GateStdin(strings.NewReader(""))
	g.GateStdin(strings.NewReader("this is not json"))
}

func TestGate_PermissiveModeWarnsButAllows(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHELLSHIELD_AUDIT_PATH", auditPath)

	cfg := config.Default(patterns.DefaultBlockedCommands, patterns.DefaultTrustedDomains)
	cfg.Mode = config.ModePermissive
	a := analyzer.New(cfg, shellctx.Snapshot{}, &gitstatus.StaticChecker{})
	g := newGateWith(cfg, a)

	// a blocked decision in permissive mode must come back instead of exiting
	g.Gate("rm -rf /", "check")
	g.Close()

	events, err := logger.Read(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(events) != 1 || events[0].Decision != "warn" {
		t.Fatalf("events = %+v, want one warn", events)
	}
	if events[0].Reason == "" || events[0].Suggestion == "" {
		t.Error("audit event must carry reason and suggestion")
	}
}

func TestGatePaste_AllowsCleanLines(t *testing.T) {
	g := newTestGate(t, config.ModeEnforce)
	defer g.Close()

	g.GatePaste(strings.NewReader("ls -la\r\n\r\ngit status\n"))
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.jsonl")

	input := "cleanup is aliased to `rm -rf ./build'\nls is /bin/ls\n"
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = old }()
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	if err := writeSnapshot(path); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	snap, err := shellctx.Load(path)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	e, ok := snap.Lookup("cleanup")
	if !ok || e.Kind != "alias" || e.Body != "rm -rf ./build" {
		t.Fatalf("cleanup entry = %+v ok=%v", e, ok)
	}
	if len(e.ReferencedTokens) == 0 {
		t.Error("referenced tokens should be derived from the alias body")
	}
}
