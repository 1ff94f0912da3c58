// Package approval prompts the operator in interactive mode. On a
// non-TTY stdin the prompt auto-denies, which keeps the interactive mode
// fail-closed under automation.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Result records the operator's choice.
type Result struct {
	Approved   bool
	UserAction string
}

// Prompt describes the blocked command shown to the operator.
type Prompt struct {
	Command    string
	Reason     string
	Suggestion string
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask shows the blocked command and reads a y/n answer from stdin.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{Approved: false, UserAction: "auto_deny_non_interactive"}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Command:    %s\n", p.Command)
	fmt.Fprintf(os.Stderr, "Reason:     %s\n", p.Reason)
	fmt.Fprintf(os.Stderr, "Suggestion: %s\n", p.Suggestion)
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "Run anyway? [y/n]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}
		switch strings.TrimSpace(strings.ToLower(input)) {
		case "y", "yes":
			return Result{Approved: true, UserAction: "approve_once"}
		case "n", "no":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(os.Stderr, "Please answer 'y' or 'n'.")
		}
	}
}
