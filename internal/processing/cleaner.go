package processing

import (
	"time"
	"unicode/utf8"
)

// CleaningRule is one step of the markup cleaning pipeline
type CleaningRule interface {
	Name() string
	Description() string
	Apply(content string) string
}

// CleaningResult describes what a single Clean call did
type CleaningResult struct {
	OriginalLength int           `json:"original_length"`
	CleanedLength  int           `json:"cleaned_length"`
	RulesApplied   []string      `json:"rules_applied"`
	BytesRemoved   int           `json:"bytes_removed"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// MarkupCleaner applies an ordered list of rules to wiki markup.
// Order matters: later rules assume earlier ones removed nesting.
type MarkupCleaner struct {
	rules        []CleaningRule
	enabledRules map[string]bool
}

// NewMarkupCleaner creates a cleaner with the default rule sequence.
// templatePasses bounds nested template removal; values below 1 use the default.
func NewMarkupCleaner(templatePasses int) *MarkupCleaner {
	mc := &MarkupCleaner{
		rules:        make([]CleaningRule, 0, 13),
		enabledRules: make(map[string]bool),
	}
	for _, rule := range DefaultRules(templatePasses) {
		mc.AddRule(rule)
	}
	return mc
}

// AddRule appends a rule to the end of the sequence
func (mc *MarkupCleaner) AddRule(rule CleaningRule) {
	mc.rules = append(mc.rules, rule)
	mc.enabledRules[rule.Name()] = true
}

// EnableRule enables a specific rule by name
func (mc *MarkupCleaner) EnableRule(ruleName string) {
	mc.enabledRules[ruleName] = true
}

// DisableRule disables a specific rule by name
func (mc *MarkupCleaner) DisableRule(ruleName string) {
	mc.enabledRules[ruleName] = false
}

// CleanText runs every enabled rule over content and returns the result
func (mc *MarkupCleaner) CleanText(content string) string {
	cleaned, _ := mc.Clean(content)
	return cleaned
}

// Clean runs every enabled rule over content, recording which rules changed it
func (mc *MarkupCleaner) Clean(content string) (string, *CleaningResult) {
	start := time.Now()
	cleaned := content
	applied := []string{}

	for _, rule := range mc.rules {
		if !mc.enabledRules[rule.Name()] {
			continue
		}
		after := rule.Apply(cleaned)
		if after != cleaned {
			cleaned = after
			applied = append(applied, rule.Name())
		}
	}

	return cleaned, &CleaningResult{
		OriginalLength: utf8.RuneCountInString(content),
		CleanedLength:  utf8.RuneCountInString(cleaned),
		RulesApplied:   applied,
		BytesRemoved:   len(content) - len(cleaned),
		ProcessingTime: time.Since(start),
	}
}

// GetEnabledRules returns the names of enabled rules in pipeline order
func (mc *MarkupCleaner) GetEnabledRules() []string {
	enabled := make([]string, 0, len(mc.rules))
	for _, rule := range mc.rules {
		if mc.enabledRules[rule.Name()] {
			enabled = append(enabled, rule.Name())
		}
	}
	return enabled
}

// GetAvailableRules returns all rules with descriptions
func (mc *MarkupCleaner) GetAvailableRules() map[string]string {
	rules := make(map[string]string, len(mc.rules))
	for _, rule := range mc.rules {
		rules[rule.Name()] = rule.Description()
	}
	return rules
}
