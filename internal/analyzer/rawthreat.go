package analyzer

import (
	"regexp"

	"github.com/shellshield/shellshield/internal/patterns"
)

// rawThreatEntry pairs one bounded regex with the verdict it produces.
type rawThreatEntry struct {
	pattern    *regexp.Regexp
	reason     string
	suggestion string
}

// rawThreatRule matches obfuscated download-and-execute shapes on the raw
// command string, before tokenization can be confused by quoting tricks.
// Every pattern uses bounded repetition so match time stays linear.
type rawThreatRule struct {
	entries []rawThreatEntry
}

func newRawThreatRule() *rawThreatRule {
	return &rawThreatRule{entries: []rawThreatEntry{
		{
			pattern:    patterns.EncodedCommandPattern,
			reason:     "ENCODED PAYLOAD DETECTED",
			suggestion: "decode the payload and run the plain-text command instead",
		},
		{
			pattern:    patterns.EvalDownloadPattern,
			reason:     "REMOTE CODE EXECUTION DETECTED",
			suggestion: "download the script to a file, review it, then run it",
		},
		{
			pattern:    patterns.SubstDownloadToInterpreterPattern,
			reason:     "REMOTE CODE EXECUTION DETECTED",
			suggestion: "download the script to a file, review it, then run it",
		},
		{
			pattern:    patterns.Base64ToShellPattern,
			reason:     "OBFUSCATED EXECUTION DETECTED",
			suggestion: "decode with base64 -d first and inspect the output before executing",
		},
		{
			pattern:    patterns.XxdToShellPattern,
			reason:     "OBFUSCATED EXECUTION DETECTED",
			suggestion: "decode with xxd -r first and inspect the output before executing",
		},
		{
			pattern:    patterns.DownloadToInterpreterPattern,
			reason:     ReasonPipeToShell,
			suggestion: "download the script to a file, review it, then run the interpreter on it",
		},
		{
			pattern:    patterns.TransformToShellPattern,
			reason:     "OBFUSCATED EXECUTION DETECTED",
			suggestion: "write the transformed output to a file and inspect it before executing",
		},
		{
			pattern:    patterns.ProcSubstDownloadPattern,
			reason:     ReasonProcessSubst,
			suggestion: "download the script to a file, review it, then run it",
		},
	}}
}

func (r *rawThreatRule) Name() string { return RuleRawThreat }
func (r *rawThreatRule) Phase() Phase { return PhasePre }

func (r *rawThreatRule) Check(ctx *Context) *Decision {
	cmd := ctx.Command

	// fail closed on over-length input: no pattern below may run on it
	if len(cmd) > patterns.MaxInputLength {
		return &Decision{
			Blocked:    true,
			Reason:     ReasonCommandTooLong,
			Suggestion: "split the command into smaller invocations",
		}
	}

	for _, e := range r.entries {
		if e.pattern.MatchString(cmd) {
			return &Decision{
				Blocked:    true,
				Reason:     e.reason,
				Suggestion: e.suggestion,
			}
		}
	}

	// Deeply nested shell -c chains with a destructive verb anywhere are
	// an evasion shape regardless of what the innermost layer resolves to.
	nested := len(patterns.ShellDashCPattern.FindAllStringIndex(cmd, -1))
	if nested >= 4 && patterns.DestructiveVerbPattern.MatchString(cmd) {
		return &Decision{
			Blocked:    true,
			Reason:     ReasonDeepSubshell,
			Suggestion: "flatten the nested shell invocations and run the inner command directly",
		}
	}

	return nil
}
