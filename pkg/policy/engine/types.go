package engine

import (
	"encoding/json"
	"time"

	"arbiter-hq/arbiter/pkg/policy"
)

// Subject is the entity requesting access: a user, a service, or an
// agent acting on someone's behalf.
type Subject struct {
	// ID uniquely identifies the subject.
	ID string `json:"id"`

	// Type tags the kind of subject ("user", "service", "agent").
	Type string `json:"subject_type"`

	// Claims are the permission strings the subject holds. A subject
	// with no claims at all fails evaluation before any policy is
	// consulted.
	Claims map[string]struct{} `json:"claims"`

	// Domains are the namespaces the subject belongs to.
	Domains map[string]struct{} `json:"domains"`

	// Attributes carries free-form subject metadata.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewSubject builds a subject from claim and domain lists.
func NewSubject(id, subjectType string, claims, domains []string) Subject {
	return Subject{
		ID:      id,
		Type:    subjectType,
		Claims:  toSet(claims),
		Domains: toSet(domains),
	}
}

// HasClaim reports whether the subject holds the given claim.
func (s *Subject) HasClaim(claim string) bool {
	_, ok := s.Claims[claim]
	return ok
}

// InDomain reports whether the subject belongs to the given domain.
func (s *Subject) InDomain(domain string) bool {
	_, ok := s.Domains[domain]
	return ok
}

// Resource is the entity being accessed.
type Resource struct {
	// ID uniquely identifies the resource.
	ID string `json:"id"`

	// Type tags the kind of resource ("document", "pipeline").
	Type string `json:"resource_type"`

	// Domain is the single namespace the resource belongs to.
	Domain string `json:"domain"`

	// Attributes carries free-form resource metadata. Attributes are
	// not part of the cache key; see Engine.Evaluate.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Action is the operation being attempted on the resource.
type Action struct {
	// Name is the action name ("read", "deploy"). It is part of the
	// cache key.
	Name string `json:"name"`

	// Type tags the kind of action ("read", "write", "execute").
	Type string `json:"action_type"`

	// Parameters carries free-form action arguments.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Event describes the observed occurrence that triggered an
// evaluation, when the evaluation is event-driven rather than a
// direct access check.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Type is the event type ("user.login", "deploy.production").
	Type string `json:"event_type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Data is the opaque event payload. The engine never inspects it.
	Data json.RawMessage `json:"data,omitempty"`
}

// EvaluationContext is the sole input to an evaluation. It is a
// request-scoped value: built by the caller, consumed by one
// Evaluate call, never retained by the engine.
type EvaluationContext struct {
	// Subject is the requesting entity.
	Subject Subject `json:"subject"`

	// Resource is the entity being accessed.
	Resource Resource `json:"resource"`

	// Action is the operation being attempted.
	Action Action `json:"action"`

	// Event is the triggering event, if any.
	Event *Event `json:"event,omitempty"`

	// Metadata carries free-form request context. It is not part of
	// the cache key.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Decision is the outcome of an evaluation.
type Decision string

const (
	// DecisionAllow permits the request.
	DecisionAllow Decision = "allow"

	// DecisionDeny rejects the request. Callers treat this as "do
	// not proceed".
	DecisionDeny Decision = "deny"

	// DecisionRequireApproval defers the request to an approval
	// workflow.
	DecisionRequireApproval Decision = "require_approval"

	// DecisionNotApplicable means no rule matched. Callers without
	// their own default-allow policy treat this as "do not proceed".
	DecisionNotApplicable Decision = "not_applicable"
)

// MatchedRule records one rule whose condition held during an
// evaluation.
type MatchedRule struct {
	// PolicyID identifies the policy containing the rule.
	PolicyID string `json:"policy_id"`

	// RuleID identifies the rule within the policy.
	RuleID string `json:"rule_id"`

	// Priority is the rule's priority at match time.
	Priority uint32 `json:"priority"`

	// Action is the rule's action.
	Action policy.RuleAction `json:"action"`
}

// Obligation is a side effect the caller must fulfill after acting on
// the decision, produced by non-decisive rule actions.
type Obligation struct {
	// Type tags the obligation ("transform", "delegate").
	Type string `json:"obligation_type"`

	// Parameters carries the obligation arguments.
	Parameters map[string]any `json:"parameters"`
}

// Obligation types produced by the engine.
const (
	ObligationTransform = "transform"
	ObligationDelegate  = "delegate"
)

// EvaluationResult is the structured outcome of one Evaluate call.
//
// MatchedRules is sorted by descending priority; rules of equal
// priority keep match order (policy iteration order, then rule list
// order within a policy). That tie-break is stable but otherwise
// unspecified; callers must not depend on anything beyond stability
// when priorities collide.
type EvaluationResult struct {
	// Decision is the final outcome.
	Decision Decision `json:"decision"`

	// EvaluatedPolicies lists the enabled candidate policies that
	// were evaluated, in evaluation order.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// MatchedRules lists every rule whose condition held, sorted by
	// descending priority.
	MatchedRules []MatchedRule `json:"matched_rules"`

	// Timestamp is when the result was computed. A result served
	// from the cache keeps its original timestamp, so two calls
	// inside the TTL window return identical timestamps.
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`

	// Obligations lists the side effects the caller must honor, in
	// match order.
	Obligations []Obligation `json:"obligations"`
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
