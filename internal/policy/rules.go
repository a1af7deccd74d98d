package policy

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// RuleSet is the policy rule file contents. A zero value gets the defaults
// via normalized().
type RuleSet struct {
	// DeniedCommands are command fragments refused outright.
	DeniedCommands []string `yaml:"denied_commands"`
	// ProtectedPaths are glob patterns (with ** support) refused for writes.
	ProtectedPaths []string `yaml:"protected_paths"`
	// ProtectedKeywords deny writes to any path containing them.
	ProtectedKeywords []string `yaml:"protected_keywords"`
	// AllowedHosts is the network allow-list; subdomains of an entry match.
	AllowedHosts []string `yaml:"allowed_hosts"`
}

// DefaultRules returns the built-in rule set used when no rule file exists.
func DefaultRules() RuleSet {
	return RuleSet{
		DeniedCommands: []string{
			"rm -rf /",
			"sudo",
			"mkfs",
			"dd if=",
			"shutdown",
			"reboot",
			"git push --force",
		},
		ProtectedPaths: []string{
			"**/.git/**",
			"**/.env",
			"**/.env.*",
			"**/*.pem",
			"**/*.key",
			"**/id_rsa*",
			"**/credentials*",
		},
		ProtectedKeywords: []string{
			"secret",
			"private_key",
		},
		AllowedHosts: []string{
			"github.com",
			"api.openai.com",
			"api.anthropic.com",
		},
	}
}

// LoadRules reads a rule file, merging it over the defaults. A missing file
// yields the defaults alone; a malformed file is an error.
func LoadRules(path string) (RuleSet, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return RuleSet{}, fmt.Errorf("read policy rules: %w", err)
	}

	var loaded RuleSet
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return RuleSet{}, fmt.Errorf("parse policy rules: %w", err)
	}

	rules.DeniedCommands = append(rules.DeniedCommands, loaded.DeniedCommands...)
	rules.ProtectedPaths = append(rules.ProtectedPaths, loaded.ProtectedPaths...)
	rules.ProtectedKeywords = append(rules.ProtectedKeywords, loaded.ProtectedKeywords...)
	rules.AllowedHosts = append(rules.AllowedHosts, loaded.AllowedHosts...)
	return rules, nil
}

// normalized drops empty entries so rule matching never sees them.
func (r RuleSet) normalized() RuleSet {
	clean := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return RuleSet{
		DeniedCommands:    clean(r.DeniedCommands),
		ProtectedPaths:    clean(r.ProtectedPaths),
		ProtectedKeywords: clean(r.ProtectedKeywords),
		AllowedHosts:      clean(r.AllowedHosts),
	}
}
