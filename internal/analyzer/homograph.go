package analyzer

import (
	"github.com/shellshield/shellshield/internal/validate"
)

// homographRule flags commands whose URLs or dotted hostnames mix Unicode
// scripts. Single-script IDN hostnames pass.
type homographRule struct{}

func (r *homographRule) Name() string { return RuleHomograph }
func (r *homographRule) Phase() Phase { return PhasePre }

func (r *homographRule) Check(ctx *Context) *Decision {
	if !validate.HasHomograph(ctx.Command) {
		return nil
	}
	return &Decision{
		Blocked:    true,
		Reason:     ReasonHomograph,
		Suggestion: "the hostname mixes Unicode scripts; retype the URL by hand instead of pasting it",
	}
}

// terminalInjectionRule flags ANSI escape sequences and zero-width
// characters that could hide the command's real content from the operator.
type terminalInjectionRule struct{}

func (r *terminalInjectionRule) Name() string { return RuleTerminalInjection }
func (r *terminalInjectionRule) Phase() Phase { return PhasePre }

func (r *terminalInjectionRule) Check(ctx *Context) *Decision {
	reason := validate.CheckTerminalInjection(ctx.Command)
	if reason == "" {
		return nil
	}
	return &Decision{
		Blocked:    true,
		Reason:     reason,
		Suggestion: "strip control and invisible characters, then re-run the command",
	}
}
