package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the display bucket of a payment description.
type Category string

const (
	CategoryMembership Category = "membership"
	CategoryAnnual     Category = "annual"
	CategoryGuard      Category = "guard"
	CategoryExcess     Category = "excess"
	CategoryOther      Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryMembership: "Membership",
	CategoryAnnual:     "Annual",
	CategoryGuard:      "Guard",
	CategoryExcess:     "Excess",
	CategoryOther:      "Other",
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	if c == "" {
		return categoryLabels[CategoryOther]
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Rule maps descriptions accepted by Match to Category.
type Rule struct {
	Category Category
	Match    func(description string) bool
}

// ContainsRule matches descriptions containing keyword (case sensitive).
func ContainsRule(keyword string, category Category) Rule {
	return Rule{
		Category: category,
		Match: func(description string) bool {
			return strings.Contains(description, keyword)
		},
	}
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules    []Rule
	fallback Category
}

// NewClassifier builds a classifier that falls back to CategoryOther.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules, fallback: CategoryOther}
}

// DefaultClassifier returns the built-in rule order:
// Membership, Annual, Guard, Excess, else Other.
func DefaultClassifier() *Classifier {
	return NewClassifier(
		ContainsRule("Membership", CategoryMembership),
		ContainsRule("Annual", CategoryAnnual),
		ContainsRule("Guard", CategoryGuard),
		ContainsRule("Excess", CategoryExcess),
	)
}

func (c *Classifier) Classify(description string) Category {
	for _, r := range c.rules {
		if r.Match(description) {
			return r.Category
		}
	}
	return c.fallback
}

// Len returns the number of rules.
func (c *Classifier) Len() int {
	return len(c.rules)
}

type rulesFile struct {
	Fallback string `yaml:"fallback"`
	Rules    []struct {
		Category string   `yaml:"category"`
		Contains []string `yaml:"contains"`
	} `yaml:"rules"`
}

// ParseRules reads an ordered rule list from YAML:
//
//	rules:
//	  - category: membership
//	    contains: [Membership]
//	  - category: annual
//	    contains: [Annual]
//	fallback: other
func ParseRules(data []byte) (*Classifier, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("parse category rules: no rules defined")
	}
	var rules []Rule
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("parse category rules: rule %d has no category", i+1)
		}
		if len(r.Contains) == 0 {
			return nil, fmt.Errorf("parse category rules: rule %d (%s) has no keywords", i+1, r.Category)
		}
		for _, kw := range r.Contains {
			rules = append(rules, ContainsRule(kw, Category(strings.ToLower(r.Category))))
		}
	}
	c := NewClassifier(rules...)
	if f.Fallback != "" {
		c.fallback = Category(strings.ToLower(f.Fallback))
	}
	return c, nil
}

// LoadRulesFile reads rules from path. An empty path yields the defaults.
func LoadRulesFile(path string) (*Classifier, error) {
	if path == "" {
		return DefaultClassifier(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules %s: %w", path, err)
	}
	return ParseRules(data)
}
