package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shellshield/shellshield/internal/analyzer"
	"github.com/shellshield/shellshield/internal/approval"
	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/logger"
	"github.com/shellshield/shellshield/internal/validate"
)

var (
	blockTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	labelStyle      = lipgloss.NewStyle().Faint(true)
)

// gate applies the mode mapping to analyzer decisions and records every
// verdict in the audit log.
type gate struct {
	cfg   *config.Config
	a     *analyzer.Analyzer
	audit *logger.AuditLogger
}

func newGateWith(cfg *config.Config, a *analyzer.Analyzer) *gate {
	g := &gate{cfg: cfg, a: a}
	if path := config.AuditLogPath(); path != "" {
		if audit, err := logger.New(path); err == nil {
			g.audit = audit
		}
		// a failed audit logger is silently dropped: the gate must not
		// fail open or closed because logging is unavailable
	}
	return g
}

func (g *gate) Close() {
	if g.audit != nil {
		_ = g.audit.Close()
	}
}

// Gate analyzes one command and exits 2 on block. The allow path returns
// so callers can process further input.
func (g *gate) Gate(command, source string) {
	decision := g.a.Analyze(command)

	if !decision.Blocked {
		g.log(command, decision, "allowed", source)
		return
	}

	switch g.cfg.Mode {
	case config.ModePermissive:
		g.printWarn(decision)
		g.log(command, decision, "warn", source)
		return

	case config.ModeInteractive:
		res := approval.Ask(approval.Prompt{
			Command:    command,
			Reason:     decision.Reason,
			Suggestion: decision.Suggestion,
		})
		if res.Approved {
			g.log(command, decision, "approved", source)
			return
		}
		g.printBlock(decision)
		g.log(command, decision, "blocked", source)
		g.exit(2)

	default: // enforce
		g.printBlock(decision)
		g.log(command, decision, "blocked", source)
		g.exit(2)
	}
}

// GatePaste analyzes each non-empty line; the first block exits 2.
func (g *gate) GatePaste(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, line := range strings.FieldsFunc(scanner.Text(), func(r rune) bool { return r == '\r' }) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			g.Gate(line, "paste")
		}
	}
}

// hookInput is the tool-hook JSON shape. Coding-agent hooks send
// {"tool_input":{"command":"..."}}; simpler hooks send {"command":"..."}.
type hookInput struct {
	Command   string `json:"command"`
	ToolInput struct {
		Command string `json:"command"`
	} `json:"tool_input"`
}

// GateStdin reads the tool-hook payload. Empty stdin allows; an
// unparseable payload fails open with a warning.
func (g *gate) GateStdin(r io.Reader) {
	data, err := io.ReadAll(r)
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return
	}

	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(os.Stderr, "[shellshield] warning: could not parse hook input: %v\n", err)
		return
	}

	command := input.ToolInput.Command
	if command == "" {
		command = input.Command
	}
	if command == "" {
		return
	}
	g.Gate(command, "stdin")
}

// GateRemote gates a remote script URL the operator intends to pipe to a
// shell, combining the URL risk score with a full analysis of the
// equivalent pipeline.
func (g *gate) GateRemote(rawurl string) {
	score, reasons := validate.ScoreURLRisk(rawurl, g.cfg.TrustedDomains)
	if score > 0 {
		var codes []string
		for _, r := range reasons {
			codes = append(codes, fmt.Sprintf("%s(+%d)", r.Code, r.Points))
		}
		fmt.Fprintf(os.Stderr, "%s url risk %d/100: %s\n",
			labelStyle.Render("[shellshield]"), score, strings.Join(codes, " "))
	}
	g.Gate(fmt.Sprintf("curl -fsSL %s | sh", rawurl), "run")
}

func (g *gate) printBlock(d analyzer.Decision) {
	fmt.Fprintf(os.Stderr, "%s command blocked by rule %s\n",
		blockTitleStyle.Render("BLOCKED:"), d.Rule)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("reason:"), d.Reason)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("suggestion:"), d.Suggestion)
}

func (g *gate) printWarn(d analyzer.Decision) {
	fmt.Fprintf(os.Stderr, "%s %s (%s) — allowed in permissive mode\n",
		warnTitleStyle.Render("WARNING:"), d.Reason, d.Rule)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("suggestion:"), d.Suggestion)
}

func (g *gate) log(command string, d analyzer.Decision, verdict, source string) {
	if g.audit == nil {
		return
	}
	cwd, _ := os.Getwd()
	_ = g.audit.Log(logger.Event{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Command:    command,
		Blocked:    d.Blocked,
		Decision:   verdict,
		Mode:       g.cfg.Mode,
		Source:     source,
		Rule:       d.Rule,
		Reason:     d.Reason,
		Suggestion: d.Suggestion,
		Cwd:        cwd,
	})
}

func (g *gate) exit(code int) {
	g.Close()
	os.Exit(code)
}
