// File: internal/engine/rules.go
package engine

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"

	"github.com/crispud/semgrep/api/schemas"
)

// Rule is one check the engine runs over every eligible file. A rule
// carries exactly one of Pattern (a tree-sitter query, language-aware) or
// PatternRegex (a plain line-oriented regular expression).
type Rule struct {
	ID        string           `mapstructure:"id" yaml:"id"`
	Message   string           `mapstructure:"message" yaml:"message"`
	Severity  schemas.Severity `mapstructure:"severity" yaml:"severity"`
	Languages []string         `mapstructure:"languages" yaml:"languages"`

	Pattern      string `mapstructure:"pattern" yaml:"pattern"`
	PatternRegex string `mapstructure:"pattern-regex" yaml:"pattern-regex"`
}

// Validate checks the structural constraints of a rule.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule is missing an id")
	}
	if (r.Pattern == "") == (r.PatternRegex == "") {
		return fmt.Errorf("rule %s must set exactly one of pattern or pattern-regex", r.ID)
	}
	if r.PatternRegex != "" {
		if _, err := regexp.Compile(r.PatternRegex); err != nil {
			return fmt.Errorf("rule %s has an invalid pattern-regex: %w", r.ID, err)
		}
	}
	if r.Pattern != "" && len(r.Languages) == 0 {
		return fmt.Errorf("rule %s uses a syntax pattern but names no languages", r.ID)
	}
	switch r.Severity {
	case schemas.SeverityError, schemas.SeverityWarning, schemas.SeverityInfo:
	case "":
		return fmt.Errorf("rule %s is missing a severity", r.ID)
	default:
		return fmt.Errorf("rule %s has unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

// appliesTo reports whether the rule should run against files of the
// given language. Regex rules with no language list apply everywhere.
func (r *Rule) appliesTo(lang string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// LoadRules reads a YAML rule file. An empty path selects the small
// built-in ruleset so `semgrep scan` works out of the box.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return builtinRules(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	var rf struct {
		Rules []Rule `mapstructure:"rules"`
	}
	if err := v.Unmarshal(&rf); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s contains no rules", path)
	}
	for i := range rf.Rules {
		if err := rf.Rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule file %s: %w", path, err)
		}
	}
	return rf.Rules, nil
}

// builtinRules is the default ruleset used when no rule file is given.
func builtinRules() []Rule {
	return []Rule{
		{
			ID:           "hardcoded-aws-access-key",
			Message:      "AWS access key id committed to source; move it to the environment or a secrets manager",
			Severity:     schemas.SeverityError,
			PatternRegex: `AKIA[0-9A-Z]{16}`,
		},
		{
			ID:           "go-insecure-tls-skip-verify",
			Message:      "TLS certificate verification is disabled; remove InsecureSkipVerify or gate it behind a debug flag",
			Severity:     schemas.SeverityWarning,
			Languages:    []string{"go"},
			PatternRegex: `InsecureSkipVerify:\s*true`,
		},
		{
			ID:        "python-exec-use",
			Message:   "exec() on dynamic input allows arbitrary code execution",
			Severity:  schemas.SeverityWarning,
			Languages: []string{"python"},
			Pattern:   `(call function: (identifier) @fn (#eq? @fn "exec")) @call`,
		},
		{
			ID:        "js-eval-use",
			Message:   "eval() on dynamic input allows arbitrary code execution",
			Severity:  schemas.SeverityWarning,
			Languages: []string{"javascript"},
			Pattern:   `(call_expression function: (identifier) @fn (#eq? @fn "eval")) @call`,
		},
	}
}
