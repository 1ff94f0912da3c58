package analyzer

import (
	"regexp"

	"github.com/shellshield/shellshield/internal/config"
	"github.com/shellshield/shellshield/internal/patterns"
)

// customRule evaluates user-configured regex rules. Patterns are compiled
// once at construction; ones that fail to compile are dropped.
type customRule struct {
	compiled []compiledCustom
}

type compiledCustom struct {
	re         *regexp.Regexp
	suggestion string
}

func newCustomRule(rules []config.CustomRule) *customRule {
	c := &customRule{}
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			continue
		}
		c.compiled = append(c.compiled, compiledCustom{re: re, suggestion: r.Suggestion})
	}
	return c
}

func (r *customRule) Name() string { return RuleCustom }
func (r *customRule) Phase() Phase { return PhasePost }

func (r *customRule) Check(ctx *Context) *Decision {
	if len(ctx.Command) > patterns.MaxInputLength {
		return nil
	}
	for _, c := range r.compiled {
		if c.re.MatchString(ctx.Command) {
			suggestion := c.suggestion
			if suggestion == "" {
				suggestion = "this command matches a rule from your configuration"
			}
			return &Decision{
				Blocked:    true,
				Reason:     ReasonCustomRule,
				Suggestion: suggestion,
			}
		}
	}
	return nil
}
