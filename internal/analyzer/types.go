// Package analyzer runs the two-phase rule pipeline over a candidate
// command: raw-string rules before tokenization, token-stream rules after.
// The first blocking decision in declaration order wins.
package analyzer

import (
	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/gitstatus"
	"github.com/shellshield/shellshield/internal/shellctx"
	"github.com/shellshield/shellshield/internal/tokenizer"
	"github.com/shellshield/shellshield/internal/validate"
)

// Phase partitions rules around tokenization.
type Phase int

const (
	// PhasePre rules run on the raw command string.
	PhasePre Phase = iota
	// PhasePost rules run on the token stream.
	PhasePost
)

// Decision is the analyzer verdict. Blocked decisions always carry a
// nonempty reason and suggestion; the winning rule name is annotated by
// the engine.
type Decision struct {
	Blocked    bool   `json:"blocked"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Rule       string `json:"rule,omitempty"`
}

// Allowed is the non-blocking decision.
func Allowed() Decision { return Decision{} }

// Context carries one command through all rules of one analysis frame.
// Config, the shell-context snapshot, and the git checker are shared
// read-only across recursive subshell frames; the token stream belongs to
// this frame alone.
type Context struct {
	Command string
	Tokens  []tokenizer.Token
	Depth   int

	Config *config.Config
	Shell  shellctx.Snapshot
	Git    gitstatus.Checker

	analyzer *Analyzer
}

// Recurse analyzes an inner subshell body one level deeper, sharing this
// frame's configuration and collaborators.
func (ctx *Context) Recurse(inner string) Decision {
	return ctx.analyzer.analyzeDepth(inner, ctx.Depth+1)
}

// Rule is one ordered entry in the pipeline. Check returns nil when the
// rule has nothing to say.
type Rule interface {
	Name() string
	Phase() Phase
	Check(ctx *Context) *Decision
}

// Stable reason strings. Block messages embed these verbatim.
const (
	ReasonCommandTooLong     = "COMMAND TOO LONG"
	ReasonMalformedSyntax    = "MALFORMED COMMAND SYNTAX"
	ReasonSubshellDepth      = "SUBSHELL DEPTH LIMIT EXCEEDED"
	ReasonHomograph          = "HOMOGRAPH ATTACK DETECTED"
	ReasonDeepSubshell       = "DEEP SUBSHELL DETECTED"
	ReasonCustomRule         = "CUSTOM RULE VIOLATION"
	ReasonCriticalPath       = "CRITICAL PATH PROTECTED"
	ReasonVolumeThreshold    = "VOLUME THRESHOLD EXCEEDED"
	ReasonUncommitted        = "UNCOMMITTED CHANGES DETECTED"
	ReasonShellContext       = "SHELL CONTEXT OVERRIDE DETECTED"
	ReasonProcessSubst       = "PROCESS SUBSTITUTION DETECTED"
	ReasonPipeToShell        = "PIPE-TO-SHELL DETECTED"
	ReasonInsecureTransport  = "INSECURE TRANSPORT DETECTED"
	ReasonCredentialExposure = "CREDENTIAL EXPOSURE DETECTED"
	ReasonDownloadAndExec    = "DOWNLOAD-AND-EXEC DETECTED"
	ReasonSensitivePath      = "SENSITIVE PATH TARGETED"
	ReasonTerminalInjection  = validate.ReasonTerminalInjection
)

// Rule names, annotated on winning decisions.
const (
	RuleHomograph         = "Homograph"
	RuleTerminalInjection = "TerminalInjection"
	RuleRawThreat         = "RawThreat"
	RuleCustom            = "Custom"
	RuleCoreAst           = "CoreAst"
	RuleAnalyzer          = "Analyzer"
)
