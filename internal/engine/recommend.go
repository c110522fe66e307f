package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// RuleEngine turns a classified anomaly set into operator recommendations.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. All present
// attributes must match.
type RuleMatch struct {
	Severity          string   `yaml:"severity"`
	PartitionContains []string `yaml:"partition_contains"`
	MinCount          int      `yaml:"min_count"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file is absent, returns a nil engine and the caller falls back to the
// default recommendations.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend matches the loaded rules against the classified record set.
func (e *RuleEngine) Recommend(counts models.SeverityCounts, groups models.GroupedAnomalies) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.Severity != "" && !severityPresent(rule.Match.Severity, counts) {
			continue
		}
		if len(rule.Match.PartitionContains) > 0 && !partitionsContain(rule.Match.PartitionContains, groups) {
			continue
		}
		if rule.Match.MinCount > 0 && counts.Total() < rule.Match.MinCount {
			continue
		}
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

// DefaultRecommendations is the static guidance emitted when no rule pack is
// loaded or no rule matches.
func DefaultRecommendations() []string {
	return []string{
		"Investigate tests with critical anomaly scores (>75)",
		"Review performance during peak anomaly periods",
		"Consider infrastructure scaling if anomalies correlate with load",
		"Implement alerting for real-time anomaly detection",
		"Regular review of ML job configuration for optimization",
	}
}

func severityPresent(severity string, counts models.SeverityCounts) bool {
	switch models.Severity(strings.ToLower(severity)) {
	case models.SeverityCritical:
		return counts.Critical > 0
	case models.SeverityMajor:
		return counts.Major > 0
	case models.SeverityMinor:
		return counts.Minor > 0
	case models.SeverityNegligible:
		return counts.Negligible > 0
	default:
		return false
	}
}

func partitionsContain(keywords []string, groups models.GroupedAnomalies) bool {
	for _, partition := range groups.Partitions {
		name := strings.ToLower(partition)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
