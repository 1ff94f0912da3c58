// Package pathcheck classifies filesystem paths as critical (OS install,
// version-control roots) or sensitive (per-user dotfiles). Both Unix and
// Windows path forms are handled.
package pathcheck

import (
	"os"
	"strings"

	"github.com/gobwas/glob"

	"github.com/shellshield/shellshield/internal/patterns"
)

// IsCriticalPath reports whether p names a location whose deletion or
// modification would damage the OS install or a repository's .git root.
func IsCriticalPath(p string) bool {
	n := normalize(p)
	if n == "" || n == "/" {
		return true
	}
	if patterns.CriticalPaths[n] {
		return true
	}
	if n == ".git" || strings.HasSuffix(n, "/.git") {
		return true
	}
	return false
}

// normalize converts separators to /, lowercases, and strips trailing
// slashes (but keeps a bare "/" meaningful by mapping it to "/").
func normalize(p string) string {
	n := strings.ReplaceAll(p, "\\", "/")
	n = strings.ToLower(strings.TrimSpace(n))
	for len(n) > 1 && strings.HasSuffix(n, "/") {
		n = n[:len(n)-1]
	}
	if n == "/" {
		return "/"
	}
	return strings.TrimSuffix(n, "/")
}

var sensitiveGlobs = compileSensitiveGlobs()

func compileSensitiveGlobs() []glob.Glob {
	gs := make([]glob.Glob, 0, len(patterns.SensitivePathPatterns))
	for _, pat := range patterns.SensitivePathPatterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			continue
		}
		gs = append(gs, g)
	}
	return gs
}

// IsSensitivePath reports whether p matches a per-user sensitive pattern
// such as ~/.ssh/* or ~/.bashrc. The path is matched both as given (with a
// leading ~ intact) and with ~ expanded against $HOME, so callers may pass
// either form.
func IsSensitivePath(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	candidates := []string{p}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		home = strings.ReplaceAll(home, "\\", "/")
		if strings.HasPrefix(p, "~/") {
			candidates = append(candidates, home+p[1:])
		} else if strings.HasPrefix(p, home+"/") {
			candidates = append(candidates, "~"+p[len(home):])
		}
	}

	for _, c := range candidates {
		for _, g := range sensitiveGlobs {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}
