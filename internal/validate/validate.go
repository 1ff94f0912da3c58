// Package validate holds the pure string validators run before
// tokenization: homograph detection over hostnames, terminal escape
// scanning, the trusted-domain predicate, and the URL risk scorer.
package validate

import (
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/shellshield/shellshield/internal/patterns"
)

// script classification buckets for hostname characters.
type script int

const (
	scriptLatin script = iota
	scriptCyrillic
	scriptGreek
	scriptOther
)

func classifyRune(r rune) (script, bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return scriptLatin, true
	case r >= 0x0400 && r <= 0x04FF:
		return scriptCyrillic, true
	case r >= 0x0370 && r <= 0x03FF:
		return scriptGreek, true
	case r > 127 && unicode.IsLetter(r):
		return scriptOther, true
	}
	// digits, dots, hyphens, etc. carry no script information
	return 0, false
}

func isHiddenRune(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF': // ZERO WIDTH NO-BREAK SPACE (BOM)
		return true
	}
	return false
}

// HasHomograph reports whether any URL-like or dotted-host substring of
// text contains a hostname that mixes Unicode scripts. Single-script
// non-Latin hostnames are legitimate IDNs and pass.
func HasHomograph(text string) bool {
	if len(text) > patterns.MaxInputLength {
		return false
	}
	for _, candidate := range patterns.HostCandidatePattern.FindAllString(text, -1) {
		host := ExtractHostname(candidate)
		if host == "" {
			continue
		}
		if hostMixesScripts(host) {
			return true
		}
	}
	return false
}

// hostMixesScripts implements the suspicion rule: a hostname is suspicious
// iff it contains a non-ASCII letter AND (it mixes Latin with a non-Latin
// script, OR it uses two or more non-Latin scripts).
func hostMixesScripts(host string) bool {
	host = norm.NFC.String(host)

	var hasLatin, hasNonASCII bool
	nonLatin := map[script]bool{}

	for _, r := range host {
		if isHiddenRune(r) {
			continue
		}
		s, isLetter := classifyRune(r)
		if !isLetter {
			continue
		}
		if r > 127 {
			hasNonASCII = true
		}
		if s == scriptLatin {
			hasLatin = true
		} else {
			nonLatin[s] = true
		}
	}

	if !hasNonASCII {
		return false
	}
	if hasLatin && len(nonLatin) > 0 {
		return true
	}
	return len(nonLatin) >= 2
}

// ExtractHostname strips the scheme, userinfo, path, query, and port from
// a URL-like candidate, returning just the host part.
func ExtractHostname(candidate string) string {
	s := candidate
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, "@"); idx >= 0 {
		s = s[idx+1:]
	}
	// strip a port, but leave IPv6 literals alone
	if !strings.HasPrefix(s, "[") {
		if idx := strings.LastIndex(s, ":"); idx >= 0 && !strings.Contains(s[idx+1:], ".") {
			s = s[:idx]
		}
	}
	return strings.TrimSuffix(s, ".")
}

// Terminal injection reasons.
const (
	ReasonTerminalInjection = "TERMINAL INJECTION DETECTED"
	ReasonHiddenCharacters  = "HIDDEN CHARACTERS DETECTED"
)

// CheckTerminalInjection scans for ANSI CSI sequences and zero-width
// characters. Returns the matching reason string, or "" when clean.
func CheckTerminalInjection(text string) string {
	if len(text) > patterns.MaxInputLength {
		return ""
	}
	if strings.Contains(text, "\x1b[") {
		return ReasonTerminalInjection
	}
	for _, r := range text {
		if isHiddenRune(r) {
			return ReasonHiddenCharacters
		}
	}
	return ""
}

// IsTrustedDomain reports whether rawurl's host equals a trusted entry or
// is a subdomain of one.
func IsTrustedDomain(rawurl string, trusted []string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, entry := range trusted {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

// RiskReason is a single contribution to a URL risk score.
type RiskReason struct {
	Code   string
	Points int
}

// ScoreURLRisk returns a 0-100 risk score for a URL along with the reason
// codes that contributed to it.
func ScoreURLRisk(rawurl string, trustedDomains []string) (int, []RiskReason) {
	var reasons []RiskReason
	add := func(code string, points int) {
		reasons = append(reasons, RiskReason{Code: code, Points: points})
	}

	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		add("unparseable", 50)
		return 50, reasons
	}

	if u.Scheme != "https" {
		add("non-https", 30)
	}
	if u.User != nil {
		add("userinfo", 30)
	}
	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, "xn--") || strings.Contains(host, ".xn--") {
		add("punycode", 15)
	}
	if net.ParseIP(host) != nil {
		add("ip-literal", 20)
	}
	if hostMixesScripts(host) {
		add("homograph", 25)
	}
	if !IsTrustedDomain(rawurl, trustedDomains) {
		add("untrusted", 10)
	}
	if len(rawurl) > 100 {
		add("long-url", 10)
	}

	score := 0
	for _, r := range reasons {
		score += r.Points
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}
