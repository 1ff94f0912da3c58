// Package cli is the command-line front end: flag parsing, the stdin
// tool-hook, mode mapping, and the operator-facing subfeatures (--init,
// --doctor, --stats, --why, --snapshot). The analyzer itself stays
// front-end agnostic.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellshield/shellshield/internal/analyzer"
	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/gitstatus"
	"github.com/shellshield/shellshield/internal/patterns"
	"github.com/shellshield/shellshield/internal/shellctx"
)

var (
	checkCommand string
	pasteMode    bool
	initShell    string
	doctorMode   bool
	statsMode    bool
	whyMode      bool
	snapshotPath string
	runURL       string
)

var rootCmd = &cobra.Command{
	Use:   "shellshield",
	Short: "ShellShield - pre-execution gate for shell commands",
	Long: `ShellShield analyzes a candidate shell command before the shell runs it
and decides whether to allow, warn, or block, with a structured reason and
a safer alternative. It is a defense-in-depth layer, not a sandbox: the
host shell acts on the exit code (0 allow, 2 block).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          rootCommand,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&checkCommand, "check", "", "Analyze a single command and exit")
	flags.BoolVar(&pasteMode, "paste", false, "Analyze each line read from stdin (bracketed paste)")
	flags.StringVar(&initShell, "init", "", "Print the shell integration snippet (bash, zsh, fish)")
	flags.BoolVar(&doctorMode, "doctor", false, "Print the effective configuration and environment")
	flags.BoolVar(&statsMode, "stats", false, "Summarize the audit log")
	flags.BoolVar(&whyMode, "why", false, "Explain the most recent block")
	flags.StringVar(&snapshotPath, "snapshot", "", "Write a shell-context snapshot from `type` output on stdin")
	flags.StringVar(&runURL, "run", "", "Gate a remote script URL before it is piped to a shell")
}

// Execute runs the CLI. Exit codes: 0 allow/bypass/no-input, 2 block
// (raised inside the handlers), 1 usage errors.
func Execute() error {
	return rootCmd.Execute()
}

func rootCommand(cmd *cobra.Command, args []string) error {
	if config.SkipRequested() {
		return nil
	}

	switch {
	case initShell != "":
		return printInitSnippet(initShell)
	case doctorMode:
		return runDoctor()
	case statsMode:
		return runStats()
	case whyMode:
		return runWhy()
	case snapshotPath != "":
		return writeSnapshot(snapshotPath)
	}

	g, err := newGate()
	if err != nil {
		// environment faults fail open; the gate must not brick the shell
		fmt.Fprintf(os.Stderr, "[shellshield] warning: %v\n", err)
		return nil
	}
	defer g.Close()

	switch {
	case checkCommand != "":
		g.Gate(checkCommand, "check")
	case runURL != "":
		g.GateRemote(runURL)
	case pasteMode:
		g.GatePaste(os.Stdin)
	default:
		g.GateStdin(os.Stdin)
	}
	return nil
}

// newGate wires the analyzer with the loaded configuration, the optional
// shell-context snapshot, and the batched git checker.
func newGate() (*gate, error) {
	cfg := config.Load(patterns.DefaultBlockedCommands, patterns.DefaultTrustedDomains)

	snap, err := shellctx.Load(cfg.ContextPath)
	if err != nil {
		// unreadable snapshot skips the override check only
		fmt.Fprintf(os.Stderr, "[shellshield] warning: shell context: %v\n", err)
		snap = shellctx.Snapshot{}
	}

	a := analyzer.New(cfg, snap, &gitstatus.ExecChecker{})
	return newGateWith(cfg, a), nil
}
