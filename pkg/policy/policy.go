package policy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Policy is a named set of rules scoped to a single domain.
//
// The domain is a string namespace; the wildcard DomainWildcard makes
// the policy a candidate for every evaluation regardless of the
// resource or subject domains. A disabled policy stays loaded and
// indexed but is never selected for evaluation.
type Policy struct {
	// ID uniquely identifies the policy within an engine.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable policy name.
	Name string `yaml:"name" json:"name"`

	// Domain scopes the policy; DomainWildcard applies everywhere.
	Domain string `yaml:"domain" json:"domain"`

	// Description explains what the policy governs.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Rules are evaluated in descending priority order.
	Rules []Rule `yaml:"rules" json:"rules"`

	// Enabled gates the policy. Disabled policies never appear in
	// evaluation results.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at"`

	// UpdatedAt is when the policy was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at"`
}

// DomainWildcard marks a policy as applicable to every domain.
const DomainWildcard = "*"

// Rule pairs a condition with the action taken when it holds.
type Rule struct {
	// ID uniquely identifies the rule within its policy.
	ID string `yaml:"id" json:"id"`

	// Condition decides whether the rule applies to a request.
	Condition Condition `yaml:"condition" json:"condition"`

	// Action is taken when the condition holds.
	Action RuleAction `yaml:"action" json:"action"`

	// Priority orders rules; higher evaluates with higher precedence.
	// Rules of equal priority keep their original list order.
	Priority uint32 `yaml:"priority" json:"priority"`
}

// New creates an enabled policy with a generated identifier and
// creation timestamps set to now.
func New(name, domain string, rules []Rule) *Policy {
	now := time.Now().UTC()
	return &Policy{
		ID:        uuid.New().String(),
		Name:      name,
		Domain:    domain,
		Rules:     rules,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewRule creates a rule with a generated identifier.
func NewRule(condition Condition, action RuleAction, priority uint32) Rule {
	return Rule{
		ID:        uuid.New().String(),
		Condition: condition,
		Action:    action,
		Priority:  priority,
	}
}

// Validate checks that the policy is structurally sound: non-empty
// identifier, name, and domain, and valid rules.
func (p *Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("policy %s: name cannot be empty", p.ID)
	}
	if p.Domain == "" {
		return fmt.Errorf("policy %s: domain cannot be empty", p.ID)
	}
	seen := make(map[string]struct{}, len(p.Rules))
	for i := range p.Rules {
		rule := &p.Rules[i]
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("policy %s: %w", p.ID, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("policy %s: duplicate rule id %q", p.ID, rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

// Validate checks that the rule has an identifier and well-formed
// condition and action.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if err := r.Condition.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if err := r.Action.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}
