package policy

import "fmt"

// ConditionType identifies a condition variant.
type ConditionType string

const (
	// ConditionAlways matches every request.
	ConditionAlways ConditionType = "always"

	// ConditionHasClaim matches when the subject holds one claim.
	ConditionHasClaim ConditionType = "has_claim"

	// ConditionHasAllClaims matches when the subject holds every
	// listed claim.
	ConditionHasAllClaims ConditionType = "has_all_claims"

	// ConditionHasAnyClaim matches when the subject holds at least one
	// listed claim.
	ConditionHasAnyClaim ConditionType = "has_any_claim"

	// ConditionDomainIs matches when the resource domain equals the
	// given domain or the subject belongs to it.
	ConditionDomainIs ConditionType = "domain_is"

	// ConditionEventType matches when the request carries an event of
	// the given type. Requests without an event never match.
	ConditionEventType ConditionType = "event_type"

	// ConditionCustom delegates to a registered condition evaluator.
	// The expression is "<evaluator>:<argument>".
	ConditionCustom ConditionType = "custom"
)

// Condition is one variant of the closed condition set. Exactly the
// fields of the selected variant are populated; the rest stay zero.
type Condition struct {
	// Type selects the variant.
	Type ConditionType `yaml:"type" json:"type"`

	// Claim holds the claim for ConditionHasClaim.
	Claim string `yaml:"claim,omitempty" json:"claim,omitempty"`

	// Claims holds the claim list for ConditionHasAllClaims and
	// ConditionHasAnyClaim.
	Claims []string `yaml:"claims,omitempty" json:"claims,omitempty"`

	// Domain holds the domain for ConditionDomainIs.
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`

	// EventType holds the event type for ConditionEventType.
	EventType string `yaml:"event_type,omitempty" json:"event_type,omitempty"`

	// Expression holds the evaluator expression for ConditionCustom.
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// Always returns a condition that matches every request.
func Always() Condition {
	return Condition{Type: ConditionAlways}
}

// HasClaim returns a condition requiring a single claim.
func HasClaim(claim string) Condition {
	return Condition{Type: ConditionHasClaim, Claim: claim}
}

// HasAllClaims returns a condition requiring every listed claim.
func HasAllClaims(claims ...string) Condition {
	return Condition{Type: ConditionHasAllClaims, Claims: claims}
}

// HasAnyClaim returns a condition requiring at least one listed claim.
func HasAnyClaim(claims ...string) Condition {
	return Condition{Type: ConditionHasAnyClaim, Claims: claims}
}

// DomainIs returns a condition matching a resource or subject domain.
func DomainIs(domain string) Condition {
	return Condition{Type: ConditionDomainIs, Domain: domain}
}

// EventTypeIs returns a condition matching the triggering event type.
func EventTypeIs(eventType string) Condition {
	return Condition{Type: ConditionEventType, EventType: eventType}
}

// Custom returns a condition delegated to a registered evaluator. The
// expression takes the form "<evaluator>:<argument>".
func Custom(expression string) Condition {
	return Condition{Type: ConditionCustom, Expression: expression}
}

// Validate checks that the variant's required fields are populated.
func (c *Condition) Validate() error {
	switch c.Type {
	case ConditionAlways:
		return nil
	case ConditionHasClaim:
		if c.Claim == "" {
			return fmt.Errorf("condition %s: claim cannot be empty", c.Type)
		}
		return nil
	case ConditionHasAllClaims, ConditionHasAnyClaim:
		if len(c.Claims) == 0 {
			return fmt.Errorf("condition %s: claims cannot be empty", c.Type)
		}
		for _, claim := range c.Claims {
			if claim == "" {
				return fmt.Errorf("condition %s: claims cannot contain empty strings", c.Type)
			}
		}
		return nil
	case ConditionDomainIs:
		if c.Domain == "" {
			return fmt.Errorf("condition %s: domain cannot be empty", c.Type)
		}
		return nil
	case ConditionEventType:
		if c.EventType == "" {
			return fmt.Errorf("condition %s: event_type cannot be empty", c.Type)
		}
		return nil
	case ConditionCustom:
		if c.Expression == "" {
			return fmt.Errorf("condition %s: expression cannot be empty", c.Type)
		}
		return nil
	case "":
		return fmt.Errorf("condition type cannot be empty")
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
}
