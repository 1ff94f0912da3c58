package analyzer

import (
	"errors"

	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/gitstatus"
	"github.com/shellshield/shellshield/internal/shellctx"
	"github.com/shellshield/shellshield/internal/tokenizer"
)

// Analyzer is the façade over the ordered rule pipeline. One instance is
// built per invocation and reused for every line (paste mode) and every
// recursive subshell frame.
type Analyzer struct {
	cfg   *config.Config
	shell shellctx.Snapshot
	git   gitstatus.Checker
	rules []Rule
}

// New builds an analyzer. A nil git checker falls back to the exec
// implementation; the snapshot may be empty.
func New(cfg *config.Config, shell shellctx.Snapshot, git gitstatus.Checker) *Analyzer {
	if git == nil {
		git = &gitstatus.ExecChecker{}
	}
	if shell == nil {
		shell = shellctx.Snapshot{}
	}
	a := &Analyzer{cfg: cfg, shell: shell, git: git}
	a.rules = []Rule{
		&homographRule{},
		&terminalInjectionRule{},
		newRawThreatRule(),
		newCustomRule(cfg.CustomRules),
		&coreAstRule{},
	}
	return a
}

// Analyze runs the full pipeline on one command and returns the first
// blocking decision, or the allowed decision. It never returns an error
// and never panics on any input.
func (a *Analyzer) Analyze(command string) Decision {
	return a.analyzeDepth(command, 0)
}

func (a *Analyzer) analyzeDepth(command string, depth int) Decision {
	if depth > a.cfg.MaxSubshellDepth {
		return Decision{
			Blocked:    true,
			Reason:     ReasonSubshellDepth,
			Suggestion: "flatten the nested shell invocations before running",
			Rule:       RuleAnalyzer,
		}
	}

	ctx := &Context{
		Command:  command,
		Depth:    depth,
		Config:   a.cfg,
		Shell:    a.shell,
		Git:      a.git,
		analyzer: a,
	}

	for _, rule := range a.rules {
		if rule.Phase() != PhasePre {
			continue
		}
		if d := rule.Check(ctx); d != nil && d.Blocked {
			return annotate(*d, rule.Name())
		}
	}

	toks, err := tokenizer.Tokenize(command)
	if err != nil {
		if errors.Is(err, tokenizer.ErrTooLong) {
			return Decision{
				Blocked:    true,
				Reason:     ReasonCommandTooLong,
				Suggestion: "split the command into smaller invocations",
				Rule:       RuleRawThreat,
			}
		}
		return Decision{
			Blocked:    true,
			Reason:     ReasonMalformedSyntax,
			Suggestion: "fix the shell syntax and re-run",
			Rule:       RuleAnalyzer,
		}
	}
	ctx.Tokens = toks

	for _, rule := range a.rules {
		if rule.Phase() != PhasePost {
			continue
		}
		if d := rule.Check(ctx); d != nil && d.Blocked {
			return annotate(*d, rule.Name())
		}
	}

	return Allowed()
}

func annotate(d Decision, rule string) Decision {
	if d.Rule == "" {
		d.Rule = rule
	}
	return d
}
