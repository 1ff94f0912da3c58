package analyzer

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/shellshield/shellshield/internal/pathcheck"
	"github.com/shellshield/shellshield/internal/patterns"
	"github.com/shellshield/shellshield/internal/tokenizer"
	"github.com/shellshield/shellshield/internal/validate"
)

// coreAstRule walks the token stream command by command: it tracks leading
// variable assignments, sees through sudo/xargs/command/env prefixes,
// resolves the effective command name, and applies the token-aware checks
// (blocklist semantics, pipe-to-shell, download-and-exec, critical paths,
// volume threshold, git guard, subshell recursion).
type coreAstRule struct{}

func (r *coreAstRule) Name() string { return RuleCoreAst }
func (r *coreAstRule) Phase() Phase { return PhasePost }

// redirect is one redirection with its consumed path target.
type redirect struct {
	op     string
	target string
}

// segment is one command between boundary operators.
type segment struct {
	words     []string
	redirects []redirect
	next      string // operator that closed this segment, "" at end of input
}

// downloadInfo tracks a curl/wget invocation's output files until a later
// command executes one of them.
type downloadInfo struct {
	targets []string
	armed   bool // a control operator has passed since the download
}

func (r *coreAstRule) Check(ctx *Context) *Decision {
	// process substitution feeding a downloader straight into a command
	for i, t := range ctx.Tokens {
		if t.Kind == tokenizer.Operator && t.Text == "<(" && i+1 < len(ctx.Tokens) {
			inner := strings.TrimSpace(ctx.Tokens[i+1].Text)
			if strings.HasPrefix(inner, "curl") || strings.HasPrefix(inner, "wget") {
				return &Decision{
					Blocked:    true,
					Reason:     ReasonProcessSubst,
					Suggestion: "download the script to a file, review it, then run it",
				}
			}
		}
	}

	segs := splitSegments(ctx.Tokens)
	vars := map[string]string{}
	var downloads []downloadInfo

	for si := range segs {
		if d := r.checkSegment(ctx, segs, si, vars, &downloads); d != nil {
			return d
		}
		if tokenizer.IsControl(segs[si].next) && !tokenizer.IsPipe(segs[si].next) {
			for i := range downloads {
				downloads[i].armed = true
			}
		}
	}
	return nil
}

// splitSegments groups words between boundary operators and folds
// redirection targets and process substitutions into their segment.
func splitSegments(toks []tokenizer.Token) []segment {
	var segs []segment
	cur := segment{}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == tokenizer.Word {
			cur.words = append(cur.words, t.Text)
			continue
		}

		switch {
		case tokenizer.IsControl(t.Text):
			cur.next = t.Text
			segs = append(segs, cur)
			cur = segment{}
		case tokenizer.IsRedirect(t.Text):
			rd := redirect{op: t.Text}
			if i+1 < len(toks) && toks[i+1].Kind == tokenizer.Word {
				rd.target = toks[i+1].Text
				i++
			}
			cur.redirects = append(cur.redirects, rd)
		case tokenizer.IsProcessSubst(t.Text):
			if i+1 < len(toks) && toks[i+1].Kind == tokenizer.Word {
				cur.words = append(cur.words, t.Text+toks[i+1].Text+")")
				i++
			}
		}
	}
	segs = append(segs, cur)
	return segs
}

func (r *coreAstRule) checkSegment(ctx *Context, segs []segment, si int, vars map[string]string, downloads *[]downloadInfo) *Decision {
	seg := segs[si]
	words := seg.words

	// leading NAME=value assignments populate the variable map
	i := 0
	for i < len(words) {
		if m := patterns.AssignmentPattern.FindStringSubmatch(words[i]); m != nil {
			vars[m[1]] = expandVars(m[2], vars)
			i++
			continue
		}
		break
	}
	if i >= len(words) {
		return checkSensitiveTargets(nil, seg.redirects, vars)
	}

	// sudo/xargs/command/env do not count as the effective command; their
	// own flags and env-style assignments are skipped too
	for i < len(words) && patterns.CommandPrefixes[strings.ToLower(expandVars(words[i], vars))] {
		i++
		for i < len(words) {
			if m := patterns.AssignmentPattern.FindStringSubmatch(words[i]); m != nil {
				vars[m[1]] = expandVars(m[2], vars)
				i++
				continue
			}
			if strings.HasPrefix(expandVars(words[i], vars), "-") {
				i++
				continue
			}
			break
		}
	}
	if i >= len(words) {
		return nil
	}

	resolved := resolveName(words[i], vars)
	args := words[i+1:]

	// tracked deletes are recoverable
	if resolved == "git" && len(args) > 0 && expandVars(args[0], vars) == "rm" {
		return nil
	}

	if ctx.Config.Allowed[resolved] {
		return nil
	}

	if entry, ok := ctx.Shell.Overrides(resolved, ctx.Config.Blocked); ok {
		return &Decision{
			Blocked: true,
			Reason:  ReasonShellContext,
			Suggestion: fmt.Sprintf(
				"'%s' is a %s running a blocked command; inspect with `type %s`, bypass with `\\%s` or `command %s`",
				resolved, entry.Kind, resolved, resolved, resolved),
		}
	}

	if d := r.dispatch(ctx, segs, si, resolved, args, vars, downloads); d != nil {
		return d
	}

	if d := checkDownloadExec(resolved, words[i:], vars, *downloads); d != nil {
		return d
	}

	// commands with dedicated semantics above never reach the generic
	// blocklist verdict: dd without of=, a non-recursive chmod, or a
	// systemctl status stay allowed even when the name is listed
	if !specialCased(resolved) {
		if d := checkBlockedCommand(ctx, resolved, args, vars); d != nil {
			return d
		}
	}

	return checkSensitiveTargets(args, seg.redirects, vars)
}

func specialCased(resolved string) bool {
	switch resolved {
	case "dd", "mv", "cp", "chmod", "chown", "chgrp", "systemctl", "find", "curl", "wget":
		return true
	}
	return patterns.ShellInterpreters[resolved]
}

// dispatch applies the per-command special cases.
func (r *coreAstRule) dispatch(ctx *Context, segs []segment, si int, resolved string, args []string, vars map[string]string, downloads *[]downloadInfo) *Decision {
	switch resolved {
	case "dd":
		return checkDd(args, vars)
	case "mv", "cp":
		return checkCopyMove(resolved, args, vars)
	case "chmod", "chown", "chgrp":
		return checkRecursiveOwnership(resolved, args, vars)
	case "systemctl":
		return checkSystemctl(args, vars)
	case "find":
		return checkFind(ctx, args, vars)
	case "curl", "wget":
		return checkDownloader(ctx, segs, si, resolved, args, vars, downloads)
	}

	if patterns.ShellInterpreters[resolved] {
		return checkShellCommand(ctx, resolved, args, vars)
	}
	return nil
}

func checkDd(args []string, vars map[string]string) *Decision {
	for _, a := range args {
		if strings.HasPrefix(expandVars(a, vars), "of=") {
			return &Decision{
				Blocked:    true,
				Reason:     "Destructive command 'dd' detected",
				Suggestion: "verify the of= target before writing with dd",
			}
		}
	}
	return nil
}

func checkCopyMove(cmd string, args []string, vars map[string]string) *Decision {
	for _, t := range fileTargets(args, vars) {
		if pathcheck.IsCriticalPath(t) {
			return &Decision{
				Blocked:    true,
				Reason:     ReasonCriticalPath,
				Suggestion: fmt.Sprintf("'%s' targets the protected path %s; pick a non-system destination", cmd, t),
			}
		}
	}
	return nil
}

func checkRecursiveOwnership(cmd string, args []string, vars map[string]string) *Decision {
	recursive := false
	for _, a := range args {
		ea := expandVars(a, vars)
		if ea == "--recursive" {
			recursive = true
		}
		if strings.HasPrefix(ea, "-") && !strings.HasPrefix(ea, "--") && strings.ContainsRune(ea, 'R') {
			recursive = true
		}
	}
	if !recursive {
		return nil
	}
	for _, t := range fileTargets(args, vars) {
		if pathcheck.IsCriticalPath(t) {
			return &Decision{
				Blocked:    true,
				Reason:     ReasonCriticalPath,
				Suggestion: fmt.Sprintf("recursive %s over %s would alter system files; scope it to a project directory", cmd, t),
			}
		}
	}
	return nil
}

func checkSystemctl(args []string, vars map[string]string) *Decision {
	for _, a := range args {
		ea := expandVars(a, vars)
		if strings.HasPrefix(ea, "-") {
			continue
		}
		if patterns.SystemctlDestructiveSubcommands[strings.ToLower(ea)] {
			return &Decision{
				Blocked:    true,
				Reason:     fmt.Sprintf("Destructive command 'systemctl %s' detected", strings.ToLower(ea)),
				Suggestion: "confirm the unit name and run it manually if the service change is intended",
			}
		}
		break // only the first non-flag word is the subcommand
	}
	return nil
}

func checkFind(ctx *Context, args []string, vars map[string]string) *Decision {
	for j, a := range args {
		ea := expandVars(a, vars)
		switch ea {
		case "-delete":
			return &Decision{
				Blocked:    true,
				Reason:     "Destructive 'find -delete' detected",
				Suggestion: "run the find without -delete first to preview the matches",
			}
		case "-exec", "-execdir", "-ok":
			if j+1 >= len(args) {
				continue
			}
			target := baseName(expandVars(args[j+1], vars))
			if ctx.Config.Blocked[target] || patterns.AdditionalDestructive[target] || patterns.IsExecutor(target) {
				return &Decision{
					Blocked:    true,
					Reason:     fmt.Sprintf("Destructive 'find %s %s' detected", ea, target),
					Suggestion: "collect the matches first and review them before acting on the list",
				}
			}
		}
	}
	return nil
}

// checkShellCommand handles a shell interpreter as the effective command:
// recursive analysis of -c bodies and inline process substitution that
// survived quoting.
func checkShellCommand(ctx *Context, resolved string, args []string, vars map[string]string) *Decision {
	if resolved == "bash" || resolved == "sh" || resolved == "zsh" {
		for _, a := range args {
			ea := expandVars(a, vars)
			if strings.Contains(ea, "<(curl") || strings.Contains(ea, "<(wget") {
				return &Decision{
					Blocked:    true,
					Reason:     ReasonProcessSubst,
					Suggestion: "download the script to a file, review it, then run it",
				}
			}
		}
	}

	for j, a := range args {
		ea := expandVars(a, vars)
		isDashC := ea == "-c" ||
			(strings.HasPrefix(ea, "-") && !strings.HasPrefix(ea, "--") && strings.HasSuffix(ea, "c"))
		if !isDashC || j+1 >= len(args) {
			continue
		}
		inner := expandVars(args[j+1], vars)
		if d := ctx.Recurse(inner); d.Blocked {
			return &d
		}
		break
	}
	return nil
}

// insecure certificate-bypass flags on downloaders.
var insecureFlags = map[string]bool{
	"-k":                     true,
	"--insecure":             true,
	"--no-check-certificate": true,
}

func checkDownloader(ctx *Context, segs []segment, si int, resolved string, args []string, vars map[string]string, downloads *[]downloadInfo) *Decision {
	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = expandVars(a, vars)
	}

	var urls []string
	for _, a := range expanded {
		if isURL(a) {
			urls = append(urls, a)
		}
	}

	// embedded credentials leak into process listings and logs
	for _, u := range urls {
		if parsed, err := url.Parse(u); err == nil && parsed.User != nil {
			return &Decision{
				Blocked:    true,
				Reason:     ReasonCredentialExposure,
				Suggestion: "move the credentials out of the URL into a netrc file or an auth header",
			}
		}
	}

	// pipe-to-shell: follow the |/|& chain from this segment
	stages := pipeStages(segs, si, vars)
	shellStage := -1
	for k, stage := range stages {
		if patterns.ShellInterpreters[stage] {
			shellStage = k
			break
		}
	}
	if shellStage >= 0 {
		for _, u := range urls {
			if strings.HasPrefix(strings.ToLower(u), "http://") {
				return &Decision{
					Blocked:    true,
					Reason:     ReasonInsecureTransport,
					Suggestion: "use https:// so the script cannot be tampered with in transit",
				}
			}
		}
		for _, a := range expanded {
			if insecureFlags[a] {
				return &Decision{
					Blocked:    true,
					Reason:     ReasonInsecureTransport,
					Suggestion: "remove the certificate bypass flag and fix the TLS problem instead",
				}
			}
		}
		trusted := len(urls) > 0 &&
			validate.IsTrustedDomain(urls[0], ctx.Config.TrustedDomains)
		if !(len(stages) == 1 && shellStage == 0 && trusted) {
			return &Decision{
				Blocked:    true,
				Reason:     ReasonPipeToShell,
				Suggestion: "download the script to a file, review it, then run it",
			}
		}
	}

	if targets := outputTargets(resolved, expanded, urls); len(targets) > 0 {
		*downloads = append(*downloads, downloadInfo{targets: targets})
	}
	return nil
}

// pipeStages returns the effective command names of the segments chained
// to segs[si] by pipe operators, in order, stopping at the first control
// operator that is not a pipe.
func pipeStages(segs []segment, si int, vars map[string]string) []string {
	var stages []string
	for k := si; k < len(segs)-1 && tokenizer.IsPipe(segs[k].next); k++ {
		if name, ok := effectiveCommand(segs[k+1], vars); ok {
			stages = append(stages, name)
		}
	}
	return stages
}

// effectiveCommand resolves a segment's command name, skipping leading
// assignments and prefixes.
func effectiveCommand(seg segment, vars map[string]string) (string, bool) {
	i := 0
	words := seg.words
	for i < len(words) && patterns.AssignmentPattern.MatchString(words[i]) {
		i++
	}
	for i < len(words) && patterns.CommandPrefixes[strings.ToLower(expandVars(words[i], vars))] {
		i++
	}
	if i >= len(words) {
		return "", false
	}
	return resolveName(words[i], vars), true
}

// outputTargets determines the files a downloader invocation writes.
func outputTargets(cmd string, expanded, urls []string) []string {
	var targets []string
	urlBase := ""
	if len(urls) > 0 {
		urlBase = urlBasename(urls[0])
	}

	for j, a := range expanded {
		switch {
		case a == "-o" && cmd == "curl", a == "--output" && cmd == "curl",
			a == "-O" && cmd == "wget", a == "--output-document" && cmd == "wget":
			if j+1 < len(expanded) {
				targets = append(targets, expanded[j+1])
			}
		case strings.HasPrefix(a, "--output=") && cmd == "curl":
			targets = append(targets, a[len("--output="):])
		case strings.HasPrefix(a, "--output-document=") && cmd == "wget":
			targets = append(targets, a[len("--output-document="):])
		case cmd == "curl" && strings.HasPrefix(a, "-o") && len(a) > 2 && !strings.HasPrefix(a, "--"):
			targets = append(targets, a[2:])
		case cmd == "curl" && a == "-O",
			cmd == "curl" && strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && strings.ContainsRune(a, 'O'):
			if urlBase != "" {
				targets = append(targets, urlBase)
			}
		}
	}

	// wget writes the URL basename when no explicit output is given
	if cmd == "wget" && len(targets) == 0 && urlBase != "" {
		targets = append(targets, urlBase)
	}
	return targets
}

// checkDownloadExec correlates an executing command with earlier download
// output targets. Only commands separated from the download by a control
// operator are considered (armed downloads).
func checkDownloadExec(resolved string, cmdWords []string, vars map[string]string, downloads []downloadInfo) *Decision {
	if len(downloads) == 0 {
		return nil
	}
	executes := patterns.IsExecutor(resolved) || resolved == "chmod"
	if !executes {
		return nil
	}

	for _, d := range downloads {
		if !d.armed {
			continue
		}
		for _, w := range cmdWords {
			ew := expandVars(w, vars)
			if isURL(ew) {
				continue
			}
			for _, t := range d.targets {
				if samePath(ew, t) {
					return &Decision{
						Blocked:    true,
						Reason:     ReasonDownloadAndExec,
						Suggestion: fmt.Sprintf("inspect %s before executing it", t),
					}
				}
			}
		}
	}
	return nil
}

// checkBlockedCommand applies the blocklist semantics: critical-path
// guard, volume threshold, git uncommitted-changes guard, then the
// generic destructive verdict with a trash suggestion.
func checkBlockedCommand(ctx *Context, resolved string, args []string, vars map[string]string) *Decision {
	if !ctx.Config.Blocked[resolved] {
		return nil
	}

	targets := fileTargets(args, vars)

	for _, t := range targets {
		if pathcheck.IsCriticalPath(t) {
			return &Decision{
				Blocked:    true,
				Reason:     ReasonCriticalPath,
				Suggestion: fmt.Sprintf("'%s' would hit the protected path %s; operate on project files only", resolved, t),
			}
		}
	}

	if len(targets) > ctx.Config.Threshold {
		return &Decision{
			Blocked:    true,
			Reason:     ReasonVolumeThreshold,
			Suggestion: fmt.Sprintf("%d targets exceed the threshold of %d; narrow the selection or raise the threshold deliberately", len(targets), ctx.Config.Threshold),
		}
	}

	if dirty := ctx.Git.Dirty(targets); len(dirty) > 0 {
		return &Decision{
			Blocked:    true,
			Reason:     ReasonUncommitted,
			Suggestion: fmt.Sprintf("commit or stash changes to %s first", strings.Join(dirty, ", ")),
		}
	}

	suggestion := "trash <files>"
	if len(targets) > 0 {
		suggestion = "trash " + strings.Join(targets, " ")
	}
	return &Decision{
		Blocked:    true,
		Reason:     fmt.Sprintf("Destructive command '%s' detected", resolved),
		Suggestion: suggestion,
	}
}

// checkSensitiveTargets flags output flags and output redirections whose
// resolved path is a per-user sensitive file.
func checkSensitiveTargets(args []string, redirects []redirect, vars map[string]string) *Decision {
	sensitive := func(target string) *Decision {
		if target == "" || !pathcheck.IsSensitivePath(expandVars(target, vars)) {
			return nil
		}
		return &Decision{
			Blocked:    true,
			Reason:     ReasonSensitivePath,
			Suggestion: fmt.Sprintf("writing to %s would change your shell or key setup; write elsewhere and diff first", target),
		}
	}

	for j, a := range args {
		ea := expandVars(a, vars)
		var target string
		switch {
		case ea == "-o" || ea == "-O" || ea == "--output" || ea == "--output-document":
			if j+1 < len(args) {
				target = expandVars(args[j+1], vars)
			}
		case strings.HasPrefix(ea, "--output="):
			target = ea[len("--output="):]
		case strings.HasPrefix(ea, "--output-document="):
			target = ea[len("--output-document="):]
		case (strings.HasPrefix(ea, "-o") || strings.HasPrefix(ea, "-O")) && len(ea) > 2 && !strings.HasPrefix(ea, "--"):
			target = ea[2:]
		}
		if d := sensitive(target); d != nil {
			return d
		}
	}

	for _, rd := range redirects {
		if !strings.Contains(rd.op, ">") {
			continue
		}
		if d := sensitive(rd.target); d != nil {
			return d
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// expandVars resolves $NAME, ${NAME}, and ${NAME:-default} against the
// local variable map first, then the process environment. Unresolved
// references keep their ${NAME} spelling so rules still see the name.
func expandVars(s string, vars map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return patterns.VarRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := patterns.VarRefPattern.FindStringSubmatch(m)
		name := sub[1]
		def := sub[2]
		if name == "" {
			name = sub[3]
		}
		if v, ok := vars[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if def != "" {
			return def
		}
		return "${" + name + "}"
	})
}

// resolveName expands a command word, strips an alias-bypass backslash,
// takes the basename across both separators, and lowercases.
func resolveName(w string, vars map[string]string) string {
	s := expandVars(w, vars)
	s = strings.TrimPrefix(s, `\`)
	return strings.ToLower(baseName(s))
}

func baseName(s string) string {
	if idx := strings.LastIndexAny(s, `/\`); idx >= 0 && idx+1 < len(s) {
		return s[idx+1:]
	}
	return s
}

// fileTargets returns the expanded non-flag arguments of a command.
func fileTargets(args []string, vars map[string]string) []string {
	var targets []string
	for _, a := range args {
		ea := expandVars(a, vars)
		if ea == "--" {
			continue
		}
		if strings.HasPrefix(ea, "-") && ea != "-" {
			continue
		}
		if ea == "" {
			continue
		}
		targets = append(targets, ea)
	}
	return targets
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

func urlBasename(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// samePath compares a word against a download target by normalized path
// equality or by matching basenames.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na, nb := path.Clean(strings.ReplaceAll(a, `\`, "/")), path.Clean(strings.ReplaceAll(b, `\`, "/"))
	if na == nb {
		return true
	}
	return path.Base(na) == path.Base(nb)
}
