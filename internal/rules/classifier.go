package rules

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RestrictedPattern classifies a query into a restricted operation class when
// the lowercased query contains at least one of Verbs AND at least one of
// Nouns. Pure substring matching keeps the classifier deterministic and
// testable against a fixed table.
type RestrictedPattern struct {
	Class Class    `yaml:"class"`
	Verbs []string `yaml:"verbs"`
	Nouns []string `yaml:"nouns"`
}

// DefaultPatterns returns the built-in restricted-operation patterns.
func DefaultPatterns() []RestrictedPattern {
	return []RestrictedPattern{
		{
			Class: ClassGitHubWrite,
			Verbs: []string{
				"push", "merge", "commit", "delete branch", "force push",
				"create merge request", "rebase",
			},
			Nouns: []string{
				"github", "gitlab", "repository", "repo", "branch", "remote",
			},
		},
	}
}

// Classifier holds the active pattern table. Patterns may be replaced at
// runtime by the rules-file watcher, so access is mutex-guarded.
type Classifier struct {
	mu       sync.RWMutex
	patterns []RestrictedPattern
}

// NewClassifier creates a classifier over the given patterns.
func NewClassifier(patterns []RestrictedPattern) *Classifier {
	return &Classifier{patterns: patterns}
}

// Classify returns the restricted class the query belongs to, if any.
func (c *Classifier) Classify(query string) (Class, bool) {
	lower := strings.ToLower(query)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.patterns {
		if containsAny(lower, p.Verbs) && containsAny(lower, p.Nouns) {
			return p.Class, true
		}
	}
	return "", false
}

// Replace swaps the active pattern table.
func (c *Classifier) Replace(patterns []RestrictedPattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = patterns
}

// Patterns returns a copy of the active table.
func (c *Classifier) Patterns() []RestrictedPattern {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]RestrictedPattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// rulesFile is the on-disk shape of an optional rules override file.
type rulesFile struct {
	Restricted []RestrictedPattern `yaml:"restricted"`
}

// LoadPatterns reads restricted patterns from a YAML rules file. The file
// extends the defaults: built-in patterns stay active, file patterns are
// appended.
func LoadPatterns(path string) ([]RestrictedPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return append(DefaultPatterns(), rf.Restricted...), nil
}
