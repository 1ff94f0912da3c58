// Package shellctx reads a snapshot of the invoking shell's `type <cmd>`
// output so the analyzer can see through aliases and functions that
// redefine benign-looking names. The snapshot producer is external; this
// package only reads it.
package shellctx

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Entry describes one resolved command name from the snapshot.
type Entry struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"` // alias, function, builtin, file
	Body             string   `json:"body"`
	ReferencedTokens []string `json:"referencedTokens"`
}

// Snapshot maps command names to their shell-context entries.
type Snapshot map[string]Entry

// Load parses a snapshot file. The file holds either a JSON array of
// entries or one JSON object per line; both forms are accepted. A missing
// file yields an empty snapshot and no error — the override check is
// simply skipped.
func Load(path string) (Snapshot, error) {
	if path == "" {
		return Snapshot{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, err
	}

	snap := Snapshot{}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		for _, e := range entries {
			snap.add(e)
		}
		return snap, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // tolerate junk lines; the snapshot is advisory
		}
		snap.add(e)
	}
	return snap, scanner.Err()
}

func (s Snapshot) add(e Entry) {
	if e.Name == "" {
		return
	}
	if len(e.ReferencedTokens) == 0 && e.Body != "" {
		e.ReferencedTokens = referencedTokens(e.Body)
	}
	s[e.Name] = e
}

// Lookup returns the entry for name, if present.
func (s Snapshot) Lookup(name string) (Entry, bool) {
	e, ok := s[name]
	return e, ok
}

// Overrides reports whether name resolves to an alias or function whose
// body references any blocked token. Names already in the blocked set are
// handled by the ordinary blocklist check and return false here.
func (s Snapshot) Overrides(name string, blocked map[string]bool) (Entry, bool) {
	if blocked[name] {
		return Entry{}, false
	}
	e, ok := s[name]
	if !ok {
		return Entry{}, false
	}
	if e.Kind != "alias" && e.Kind != "function" {
		return Entry{}, false
	}
	for _, tok := range e.ReferencedTokens {
		if blocked[tok] {
			return e, true
		}
	}
	return Entry{}, false
}

// referencedTokens extracts the command names an alias or function body
// invokes. Bodies that fail to parse fall back to whitespace fields.
func referencedTokens(body string) []string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(body), "")
	if err != nil {
		return strings.Fields(body)
	}

	printer := syntax.NewPrinter()
	wordText := func(w *syntax.Word) string {
		var sb strings.Builder
		_ = printer.Print(&sb, w)
		return strings.Trim(sb.String(), `"'`)
	}

	seen := map[string]bool{}
	var toks []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			toks = append(toks, name)
		}
	}

	wrappers := map[string]bool{"sudo": true, "command": true, "env": true, "xargs": true}

	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		// the command word, plus the wrapped command behind sudo-style
		// prefixes so `sudo rm` still references rm
		for i := 0; i < len(call.Args); i++ {
			name := wordText(call.Args[i])
			add(name)
			if !wrappers[name] {
				break
			}
			for i+1 < len(call.Args) {
				next := wordText(call.Args[i+1])
				if strings.HasPrefix(next, "-") || strings.Contains(next, "=") {
					i++
					continue
				}
				break
			}
		}
		return true
	})
	return toks
}
