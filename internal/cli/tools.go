package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/logger"
	"github.com/shellshield/shellshield/internal/patterns"
	"github.com/shellshield/shellshield/internal/shellctx"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// printInitSnippet emits the preexec integration for the given shell.
func printInitSnippet(shell string) error {
	switch shell {
	case "bash":
		fmt.Print(`# shellshield integration for bash (add to ~/.bashrc)
shellshield_preexec() {
  shellshield --check "$BASH_COMMAND" || return 2
}
trap 'shellshield_preexec' DEBUG
shopt -s extdebug
`)
	case "zsh":
		fmt.Print(`# shellshield integration for zsh (add to ~/.zshrc)
shellshield_preexec() {
  shellshield --check "$1" || {
    echo "command rejected" >&2
    kill -INT $$
  }
}
autoload -Uz add-zsh-hook
add-zsh-hook preexec shellshield_preexec
`)
	case "fish":
		fmt.Print(`# shellshield integration for fish (add to ~/.config/fish/config.fish)
function shellshield_preexec --on-event fish_preexec
  shellshield --check "$argv" ; or commandline -f cancel-commandline
end
`)
	default:
		return fmt.Errorf("unsupported shell %q (bash, zsh, fish)", shell)
	}
	return nil
}

// runDoctor prints the effective configuration so operators can see
// which file and environment values won.
func runDoctor() error {
	cfg := config.Load(patterns.DefaultBlockedCommands, patterns.DefaultTrustedDomains)

	fmt.Println(headerStyle.Render("shellshield doctor"))
	source := cfg.Source
	if source == "" {
		source = "(built-in defaults)"
	}
	fmt.Printf("config file:        %s\n", source)
	fmt.Printf("mode:               %s\n", cfg.Mode)
	fmt.Printf("threshold:          %d\n", cfg.Threshold)
	fmt.Printf("max subshell depth: %d\n", cfg.MaxSubshellDepth)
	fmt.Printf("blocked:            %s\n", strings.Join(sortedKeys(cfg.Blocked), ", "))
	fmt.Printf("allowed:            %s\n", strings.Join(sortedKeys(cfg.Allowed), ", "))
	fmt.Printf("trusted domains:    %s\n", strings.Join(cfg.TrustedDomains, ", "))
	fmt.Printf("custom rules:       %d\n", len(cfg.CustomRules))
	fmt.Printf("context path:       %s\n", cfg.ContextPath)
	fmt.Printf("audit log:          %s\n", config.AuditLogPath())

	if cfg.ContextPath != "" {
		snap, err := shellctx.Load(cfg.ContextPath)
		if err != nil {
			fmt.Printf("shell context:      unreadable (%v)\n", err)
		} else {
			fmt.Printf("shell context:      %d entries\n", len(snap))
		}
	}
	return nil
}

// runStats summarizes the audit log by decision, rule, and source.
func runStats() error {
	events, err := logger.Read(config.AuditLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no audit log yet")
			return nil
		}
		return err
	}

	decisions := map[string]int{}
	rules := map[string]int{}
	sources := map[string]int{}
	for _, e := range events {
		decisions[e.Decision]++
		sources[e.Source]++
		if e.Rule != "" {
			rules[e.Rule]++
		}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("shellshield stats — %d commands", len(events))))
	printCounts("by decision", decisions)
	printCounts("by rule", rules)
	printCounts("by source", sources)
	return nil
}

func printCounts(title string, counts map[string]int) {
	fmt.Printf("\n%s\n", title)
	for _, k := range sortedKeysByCount(counts) {
		fmt.Printf("  %-24s %d\n", k, counts[k])
	}
}

// runWhy replays the most recent block from the audit log.
func runWhy() error {
	events, err := logger.Read(config.AuditLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no audit log yet")
			return nil
		}
		return err
	}

	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if !e.Blocked {
			continue
		}
		fmt.Println(headerStyle.Render("most recent block"))
		fmt.Printf("time:       %s\n", e.Timestamp)
		fmt.Printf("command:    %s\n", e.Command)
		fmt.Printf("rule:       %s\n", e.Rule)
		fmt.Printf("reason:     %s\n", e.Reason)
		fmt.Printf("suggestion: %s\n", e.Suggestion)
		return nil
	}
	fmt.Println("no blocks recorded")
	return nil
}

// writeSnapshot converts `type <cmd>` output on stdin into the JSON-lines
// snapshot format the analyzer reads. Expected input: blocks of
// "NAME is aliased to `BODY'", "NAME is a function\n<body...>",
// "NAME is a shell builtin", or "NAME is /path/to/file".
func writeSnapshot(path string) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending *shellctx.Entry
	var body strings.Builder

	flush := func() {
		if pending == nil {
			return
		}
		if body.Len() > 0 {
			pending.Body = body.String()
		}
		_ = enc.Encode(pending)
		pending = nil
		body.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		name, kind, inline, ok := parseTypeLine(line)
		if ok {
			flush()
			pending = &shellctx.Entry{Name: name, Kind: kind, Body: inline}
			continue
		}
		if pending != nil && pending.Kind == "function" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return scanner.Err()
}

func parseTypeLine(line string) (name, kind, body string, ok bool) {
	fields := strings.SplitN(line, " is ", 2)
	if len(fields) != 2 || strings.ContainsAny(fields[0], " \t") {
		return "", "", "", false
	}
	name, rest := fields[0], fields[1]
	switch {
	case strings.HasPrefix(rest, "aliased to "):
		body = strings.Trim(strings.TrimPrefix(rest, "aliased to "), "`'")
		return name, "alias", body, true
	case rest == "a function" || strings.HasPrefix(rest, "a shell function"):
		return name, "function", "", true
	case rest == "a shell builtin":
		return name, "builtin", "", true
	case strings.HasPrefix(rest, "/"):
		return name, "file", rest, true
	}
	return "", "", "", false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
