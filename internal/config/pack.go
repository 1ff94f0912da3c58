package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a shareable YAML bundle of custom rules and trusted domains,
// dropped into ~/.shellshield/packs/. A leading underscore on the file
// name disables the pack without deleting it.
type Pack struct {
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	Version        string       `yaml:"version"`
	Blocked        []string     `yaml:"blocked"`
	TrustedDomains []string     `yaml:"trustedDomains"`
	CustomRules    []CustomRule `yaml:"customRules"`
}

// applyPacks merges every enabled pack in dir into cfg. Pack rules are
// appended after file-supplied rules; blocked names and trusted domains
// are unioned. A missing packs directory is not an error.
func applyPacks(cfg *Config, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			debugf("config: packs dir %s: %v", dir, err)
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isYAMLFile(name) || strings.HasPrefix(name, "_") {
			continue
		}

		pack, err := loadPack(filepath.Join(dir, name))
		if err != nil {
			debugf("config: pack %s: %v", name, err)
			continue
		}

		for _, b := range pack.Blocked {
			if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
				cfg.Blocked[b] = true
			}
		}
		cfg.TrustedDomains = append(cfg.TrustedDomains, pack.TrustedDomains...)
		cfg.CustomRules = append(cfg.CustomRules, pack.CustomRules...)
	}
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
