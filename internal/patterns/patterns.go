// Package patterns holds the compiled regular expressions and constant
// sets shared by the analyzer rules. Everything here is immutable after
// init; rules must not modify these tables.
package patterns

import "regexp"

// MaxInputLength bounds every regex match and the analyzer input itself.
// Longer inputs are rejected with COMMAND TOO LONG by the raw-threat rule;
// no regex match runs on them.
const MaxInputLength = 10_000

// DefaultBlockedCommands is the built-in destructive command set.
// Config files and environment overrides extend it.
var DefaultBlockedCommands = []string{
	"rm",
	"rmdir",
	"shred",
	"dd",
	"mkfs",
}

// DefaultTrustedDomains are hosts allowed as pipe-to-shell script sources.
var DefaultTrustedDomains = []string{
	"raw.githubusercontent.com",
	"gist.githubusercontent.com",
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"sh.rustup.rs",
	"get.docker.com",
	"get.helm.sh",
	"deb.nodesource.com",
	"dl.google.com",
}

// CriticalPaths are locations whose deletion or modification would damage
// the OS install. Entries are lowercase, slash-separated, no trailing slash.
// Windows paths appear both rooted and bare because commands frequently
// reference System32 without a drive prefix.
var CriticalPaths = map[string]bool{
	"/":     true,
	"/bin":  true,
	"/boot": true,
	"/dev":  true,
	"/etc":  true,
	"/home": true,
	"/lib":  true,
	"/lib64": true,
	"/opt":  true,
	"/proc": true,
	"/root": true,
	"/sbin": true,
	"/srv":  true,
	"/sys":  true,
	"/usr":  true,
	"/var":  true,

	"c:/windows":            true,
	"c:/windows/system32":   true,
	"c:/program files":      true,
	"c:/program files (x86)": true,
	"c:/users":              true,
	"windows":               true,
	"windows/system32":      true,
	"system32":              true,
	"program files":         true,
}

// SensitivePathPatterns match per-user files an attacker would overwrite to
// gain persistence. Patterns keep their leading ~; a path under $HOME is
// rewritten to its ~ form before matching.
var SensitivePathPatterns = []string{
	"~/.ssh/*",
	"~/.bashrc",
	"~/.zshrc",
	"~/.profile",
	"~/.gitconfig",
}

// ShellInterpreters are programs whose stdin or -c argument is executed
// as shell code.
var ShellInterpreters = map[string]bool{
	"sh":   true,
	"bash": true,
	"zsh":  true,
	"dash": true,
	"ksh":  true,
	"fish": true,
	"csh":  true,
	"tcsh": true,
}

// CodeInterpreters execute scripts piped to stdin in their own language.
var CodeInterpreters = map[string]bool{
	"python":  true,
	"python2": true,
	"python3": true,
	"perl":    true,
	"ruby":    true,
	"node":    true,
	"bun":     true,
	"php":     true,
	"lua":     true,
}

// Executors are the builtins that run a file or string handed to them.
// IsExecutor joins them with ShellInterpreters and CodeInterpreters for the
// find -exec check and the download-and-exec correlation.
var Executors = map[string]bool{
	".":      true,
	"source": true,
	"exec":   true,
	"eval":   true,
}

// AdditionalDestructive extends the blocked set only inside find -exec
// arguments, where even an unconfigured rm is never a legitimate target.
var AdditionalDestructive = map[string]bool{
	"rm":    true,
	"shred": true,
	"dd":    true,
	"mkfs":  true,
}

// SystemctlDestructiveSubcommands stop or neuter services.
var SystemctlDestructiveSubcommands = map[string]bool{
	"stop":         true,
	"disable":      true,
	"mask":         true,
	"reset-failed": true,
	"isolate":      true,
	"kill":         true,
}

// CommandPrefixes are wrappers that do not count as the effective command.
var CommandPrefixes = map[string]bool{
	"sudo":    true,
	"xargs":   true,
	"command": true,
	"env":     true,
}

// IsExecutor reports whether name runs a file or script handed to it.
func IsExecutor(name string) bool {
	return ShellInterpreters[name] || CodeInterpreters[name] || Executors[name]
}

// Bounded-repetition regexes used by the raw-threat rule. Every quantifier
// is capped so worst-case match time stays linear in the input.
var (
	// PowerShell encoded payloads.
	EncodedCommandPattern = regexp.MustCompile(`(?i)\bpowershell(\.exe)?[^|]{0,200}-e(nc|ncodedcommand)?\s`)

	// eval $(curl ...) / eval `wget ...`
	EvalDownloadPattern = regexp.MustCompile("(?i)\\beval\\s{0,10}(\\$\\(|`)\\s{0,10}(curl|wget)\\b")

	// $(curl ...) or `wget ...` fed into an interpreter.
	SubstDownloadToInterpreterPattern = regexp.MustCompile("(?i)\\b(sh|bash|zsh|python3?|perl|ruby|node)[^|]{0,200}(\\$\\(|`)\\s{0,10}(curl|wget)\\b")

	// base64 -d | sh
	Base64ToShellPattern = regexp.MustCompile(`(?i)\bbase64\s{1,10}(-d|--decode)[^|]{0,500}\|\s{0,10}(sh|bash|zsh)\b`)

	// xxd -r -p | sh
	XxdToShellPattern = regexp.MustCompile(`(?i)\bxxd\s{1,10}-r[^|]{0,500}\|\s{0,10}(sh|bash|zsh)\b`)

	// curl/wget piped into a non-shell interpreter. Shell targets are
	// handled structurally by the token walk, which knows the trusted
	// domain allowlist; keeping shells out of this pattern keeps the two
	// paths from disagreeing on the same input.
	DownloadToInterpreterPattern = regexp.MustCompile(`(?i)\b(curl|wget)[^|]{0,500}\|\s{0,10}(python3?|python2|perl|ruby|node|bun|php)\b`)

	// sed/awk/openssl/tar output piped into a shell.
	TransformToShellPattern = regexp.MustCompile(`(?i)\b(sed|awk|openssl|tar)\s[^|]{0,500}\|\s{0,10}(sh|bash|zsh)\b`)

	// Process substitution over a downloader.
	ProcSubstDownloadPattern = regexp.MustCompile(`(?i)<\(\s{0,10}(curl|wget)\b`)

	// Nested shell -c invocations, counted by the deep-subshell check.
	ShellDashCPattern = regexp.MustCompile(`(?i)\b(sh|bash|zsh|dash)\s{1,10}(-[a-z]{0,10}\s{1,10}){0,3}-c\b`)

	// Destructive verbs consulted only alongside the nesting count.
	DestructiveVerbPattern = regexp.MustCompile(`(?i)\b(rm|rmdir|shred|mkfs|dd|truncate)\b`)

	// Hostname candidates for the homograph scan: URLs and bare dotted hosts.
	HostCandidatePattern = regexp.MustCompile(`(?:[a-zA-Z][a-zA-Z0-9+.-]{0,20}://)?[^\s/"'<>|;&]{1,253}\.[^\s/"'<>|;&.]{2,63}`)

	// Shell variable references, longest form first.
	VarRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]{0,63})(?::-([^}]{0,200}))?\}|\$([A-Za-z_][A-Za-z0-9_]{0,63})`)

	// Leading K=V assignment words.
	AssignmentPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]{0,63})=(.{0,1000})$`)
)
