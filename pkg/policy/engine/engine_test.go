package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"arbiter-hq/arbiter/pkg/policy"
)

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	eng, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return eng
}

func newTestPolicy(id, domain string, rules ...policy.Rule) *policy.Policy {
	now := time.Now().UTC()
	return &policy.Policy{
		ID:        id,
		Name:      "Test Policy " + id,
		Domain:    domain,
		Rules:     rules,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func rule(id string, cond policy.Condition, action policy.RuleAction, priority uint32) policy.Rule {
	return policy.Rule{ID: id, Condition: cond, Action: action, Priority: priority}
}

func newTestContext(subjectID string, claims, domains []string, resourceDomain string) *EvaluationContext {
	return &EvaluationContext{
		Subject:  NewSubject(subjectID, "user", claims, domains),
		Resource: Resource{ID: "resource-1", Type: "document", Domain: resourceDomain},
		Action:   Action{Name: "read", Type: "read"},
	}
}

func TestEvaluate_NoClaimsPrecondition(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	_, err := eng.Evaluate(context.Background(), newTestContext("user-1", nil, []string{"test"}, "test"))
	if err == nil {
		t.Fatal("expected permission denied error for subject without claims")
	}
	var pd *PermissionDeniedError
	if !errors.As(err, &pd) {
		t.Fatalf("error = %v, want *PermissionDeniedError", err)
	}
	if pd.SubjectID != "user-1" {
		t.Errorf("SubjectID = %q, want %q", pd.SubjectID, "user-1")
	}
	if !IsPermissionDenied(err) {
		t.Error("IsPermissionDenied() = false, want true")
	}
}

func TestEvaluate_DefaultDeny(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("log-only", policy.Always(), policy.Log(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionDeny {
		t.Errorf("Decision = %q, want %q (matched non-decisive rules default to deny)", result.Decision, DecisionDeny)
	}
	if len(result.MatchedRules) != 1 {
		t.Errorf("len(MatchedRules) = %d, want 1", len(result.MatchedRules))
	}
	if len(result.Obligations) != 0 {
		t.Errorf("len(Obligations) = %d, want 0 (log produces no obligation)", len(result.Obligations))
	}
}

func TestEvaluate_NoPoliciesNotApplicable(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionNotApplicable)
	}
	if len(result.EvaluatedPolicies) != 0 || len(result.MatchedRules) != 0 {
		t.Errorf("expected empty evaluated policies and matched rules, got %v / %v",
			result.EvaluatedPolicies, result.MatchedRules)
	}
}

func TestEvaluate_PriorityPrecedence(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("low-priority-allow", policy.Always(), policy.Allow(), 10),
		rule("high-priority-deny", policy.Always(), policy.Deny(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionDeny {
		t.Errorf("Decision = %q, want %q (higher priority wins)", result.Decision, DecisionDeny)
	}
	if result.MatchedRules[0].RuleID != "high-priority-deny" {
		t.Errorf("top matched rule = %q, want %q", result.MatchedRules[0].RuleID, "high-priority-deny")
	}
}

func TestEvaluate_ClaimGatedAllow(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("admin-allow", policy.HasClaim("admin"), policy.Allow(), 100),
		rule("default-deny", policy.Always(), policy.Deny(), 1),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	tests := []struct {
		name   string
		claims []string
		want   Decision
	}{
		{name: "with admin claim", claims: []string{"admin"}, want: DecisionAllow},
		{name: "without admin claim", claims: []string{"user"}, want: DecisionDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eng.Evaluate(context.Background(), newTestContext("user-"+tt.name, tt.claims, []string{"test"}, "test"))
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if result.Decision != tt.want {
				t.Errorf("Decision = %q, want %q", result.Decision, tt.want)
			}
		})
	}
}

func TestEvaluate_DomainRouting(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "domain1",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	// Resource in domain1: policy is evaluated.
	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"domain1"}, "domain1"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !containsString(result.EvaluatedPolicies, "p1") {
		t.Errorf("evaluated policies %v do not contain p1", result.EvaluatedPolicies)
	}

	// Resource in domain2, subject not in domain1: policy is not evaluated.
	result, err = eng.Evaluate(context.Background(), newTestContext("user-2", []string{"read"}, []string{"domain2"}, "domain2"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if containsString(result.EvaluatedPolicies, "p1") {
		t.Errorf("evaluated policies %v should not contain p1", result.EvaluatedPolicies)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionNotApplicable)
	}
}

func TestEvaluate_SubjectDomainSelectsPolicy(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "domain1",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if err := eng.LoadPolicy(newTestPolicy("p2", "domain2",
		rule("r2", policy.Always(), policy.Deny(), 50),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	// Subject in both domains, resource in domain1: both evaluated.
	ctx := newTestContext("user-1", []string{"read"}, []string{"domain1", "domain2"}, "domain1")
	result, err := eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !containsString(result.EvaluatedPolicies, "p1") || !containsString(result.EvaluatedPolicies, "p2") {
		t.Errorf("evaluated policies = %v, want both p1 and p2", result.EvaluatedPolicies)
	}
}

func TestEvaluate_WildcardPoliciesAlwaysApply(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("global", policy.DomainWildcard,
		rule("global-admin", policy.HasClaim("global_admin"), policy.Allow(), 200),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	for _, domain := range []string{"domain1", "domain2", "anything"} {
		result, err := eng.Evaluate(context.Background(), newTestContext("user-"+domain, []string{"global_admin"}, []string{domain}, domain))
		if err != nil {
			t.Fatalf("Evaluate() error: %v", err)
		}
		if !containsString(result.EvaluatedPolicies, "global") {
			t.Errorf("domain %s: wildcard policy not evaluated: %v", domain, result.EvaluatedPolicies)
		}
		if result.Decision != DecisionAllow {
			t.Errorf("domain %s: Decision = %q, want %q", domain, result.Decision, DecisionAllow)
		}
	}
}

func TestEvaluate_CacheHitReturnsIdenticalTimestamp(t *testing.T) {
	eng := newTestEngine(t, DefaultConfig().WithCacheTTL(60))
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	ctx := newTestContext("user-1", []string{"read"}, []string{"test"}, "test")

	first, err := eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	second, err := eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !first.Timestamp.Equal(second.Timestamp) {
		t.Errorf("timestamps differ within TTL window: %v vs %v (cache miss)", first.Timestamp, second.Timestamp)
	}

	// Advance the cache clock past the TTL; the entry expires.
	eng.cache.now = func() time.Time { return time.Now().Add(61 * time.Second) }
	third, err := eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if first.Timestamp.Equal(third.Timestamp) {
		t.Error("timestamp did not advance after TTL expiry (stale cache hit)")
	}
}

func TestEvaluate_PolicyMutationInvalidatesCache(t *testing.T) {
	eng := newTestEngine(t, DefaultConfig().WithCacheTTL(60))
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	ctx := newTestContext("user-1", []string{"read"}, []string{"test"}, "test")
	result, err := eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionAllow {
		t.Fatalf("Decision = %q, want %q", result.Decision, DecisionAllow)
	}

	// Reload the same policy id with the rule flipped to deny.
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Deny(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err = eng.Evaluate(context.Background(), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionDeny {
		t.Errorf("Decision = %q, want %q after policy mutation", result.Decision, DecisionDeny)
	}
}

func TestEvaluate_DisabledPolicyIsInert(t *testing.T) {
	eng := newTestEngine(t, nil)
	p := newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)
	p.Enabled = false
	if err := eng.LoadPolicy(p); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionNotApplicable)
	}
	if len(result.EvaluatedPolicies) != 0 {
		t.Errorf("EvaluatedPolicies = %v, want empty for disabled policy", result.EvaluatedPolicies)
	}
	if len(result.MatchedRules) != 0 {
		t.Errorf("MatchedRules = %v, want empty for disabled policy", result.MatchedRules)
	}
}

func TestEvaluate_ObligationsFromNonDecisiveActions(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("log-rule", policy.Always(), policy.Log(), 100),
		rule("transform-rule", policy.Always(), policy.Transform(map[string]any{"redact": "payload"}), 90),
		rule("delegate-rule", policy.Always(), policy.Delegate("review-service"), 80),
		rule("allow-rule", policy.Always(), policy.Allow(), 70),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionAllow {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionAllow)
	}
	if len(result.MatchedRules) != 4 {
		t.Errorf("len(MatchedRules) = %d, want 4", len(result.MatchedRules))
	}
	if len(result.Obligations) != 2 {
		t.Fatalf("len(Obligations) = %d, want 2", len(result.Obligations))
	}
	if result.Obligations[0].Type != ObligationTransform {
		t.Errorf("first obligation = %q, want %q (match order)", result.Obligations[0].Type, ObligationTransform)
	}
	if result.Obligations[1].Type != ObligationDelegate {
		t.Errorf("second obligation = %q, want %q", result.Obligations[1].Type, ObligationDelegate)
	}
	if target := result.Obligations[1].Parameters["target"]; target != "review-service" {
		t.Errorf("delegate target = %v, want %q", target, "review-service")
	}
}

func TestEvaluate_RequireApproval(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("approval", policy.HasClaim("sensitive_operation"), policy.RequireApproval(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"sensitive_operation"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionRequireApproval {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionRequireApproval)
	}
}

func TestEvaluate_MissingCustomEvaluator(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Custom("missing:x"), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v (missing evaluator must not fail the call)", err)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q (unmatched custom condition)", result.Decision, DecisionNotApplicable)
	}
}

func TestEvaluate_EvaluatorFailureAborts(t *testing.T) {
	eng := newTestEngine(t, nil)
	eng.RegisterEvaluator("failing", ConditionEvaluatorFunc(
		func(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error) {
			return false, fmt.Errorf("backend unreachable")
		},
	))
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Custom("failing:x"), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	_, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err == nil {
		t.Fatal("expected evaluation failure from failing evaluator")
	}
	var condErr *ConditionError
	if !errors.As(err, &condErr) {
		t.Fatalf("error = %v, want *ConditionError", err)
	}
	var evErr *EvaluatorError
	if !errors.As(err, &evErr) {
		t.Fatalf("error = %v, want wrapped *EvaluatorError", err)
	}
	if evErr.Evaluator != "failing" {
		t.Errorf("Evaluator = %q, want %q", evErr.Evaluator, "failing")
	}
}

func TestEvaluate_CustomEvaluatorReceivesContext(t *testing.T) {
	eng := newTestEngine(t, nil)
	eng.RegisterEvaluator("test", ConditionEvaluatorFunc(
		func(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error) {
			return expression == "test:pass" && evalCtx.Subject.ID == "user-1", nil
		},
	))
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Custom("test:pass"), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionAllow {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionAllow)
	}

	result, err = eng.Evaluate(context.Background(), newTestContext("user-2", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionNotApplicable)
	}
}

func TestEvaluate_ReregisteredEvaluatorReplaces(t *testing.T) {
	eng := newTestEngine(t, nil)
	eng.RegisterEvaluator("flip", ConditionEvaluatorFunc(
		func(context.Context, string, *EvaluationContext) (bool, error) { return false, nil },
	))
	eng.RegisterEvaluator("flip", ConditionEvaluatorFunc(
		func(context.Context, string, *EvaluationContext) (bool, error) { return true, nil },
	))
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Custom("flip:x"), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionAllow {
		t.Errorf("Decision = %q, want %q (replacement evaluator should win)", result.Decision, DecisionAllow)
	}
}

func TestEvaluate_EventTypeCondition(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("login-audit", policy.EventTypeIs("user.login"), policy.Log(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	withEvent := newTestContext("user-1", []string{"read"}, []string{"test"}, "test")
	withEvent.Event = &Event{ID: "event-1", Type: "user.login", Timestamp: time.Now().UTC()}

	result, err := eng.Evaluate(context.Background(), withEvent)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(result.MatchedRules) != 1 {
		t.Errorf("len(MatchedRules) = %d, want 1 with matching event", len(result.MatchedRules))
	}

	withoutEvent := newTestContext("user-2", []string{"read"}, []string{"test"}, "test")
	result, err = eng.Evaluate(context.Background(), withoutEvent)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(result.MatchedRules) != 0 {
		t.Errorf("len(MatchedRules) = %d, want 0 without event", len(result.MatchedRules))
	}
}

func TestEvaluate_EqualPriorityStableOrder(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("first", policy.Always(), policy.Log(), 50),
		rule("second", policy.Always(), policy.Deny(), 50),
		rule("third", policy.Always(), policy.Allow(), 50),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	// Equal priorities keep original rule-list order; the first
	// decisive rule in that order decides.
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if result.MatchedRules[i].RuleID != want {
			t.Errorf("MatchedRules[%d] = %q, want %q", i, result.MatchedRules[i].RuleID, want)
		}
	}
	if result.Decision != DecisionDeny {
		t.Errorf("Decision = %q, want %q", result.Decision, DecisionDeny)
	}
}

func TestLoadPolicy_Limits(t *testing.T) {
	eng := newTestEngine(t, DefaultConfig().WithMaxPolicies(2).WithMaxRulesPerPolicy(1))

	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 1),
		rule("r2", policy.Always(), policy.Deny(), 2),
	)); err == nil {
		t.Error("expected rule-count limit error")
	}

	if err := eng.LoadPolicy(newTestPolicy("p1", "test", rule("r1", policy.Always(), policy.Allow(), 1))); err != nil {
		t.Fatalf("LoadPolicy(p1) error: %v", err)
	}
	if err := eng.LoadPolicy(newTestPolicy("p2", "test", rule("r1", policy.Always(), policy.Allow(), 1))); err != nil {
		t.Fatalf("LoadPolicy(p2) error: %v", err)
	}

	var limitErr *LimitError
	if err := eng.LoadPolicy(newTestPolicy("p3", "test", rule("r1", policy.Always(), policy.Allow(), 1))); !errors.As(err, &limitErr) {
		t.Errorf("LoadPolicy(p3) = %v, want *LimitError (store full)", err)
	}

	// Replacing an existing policy is allowed at capacity.
	if err := eng.LoadPolicy(newTestPolicy("p2", "test", rule("r1", policy.Always(), policy.Deny(), 1))); err != nil {
		t.Errorf("replacement LoadPolicy(p2) error: %v", err)
	}
}

func TestUnloadPolicy_UnknownIsNoop(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.UnloadPolicy("never-loaded"); err != nil {
		t.Errorf("UnloadPolicy(unknown) = %v, want nil", err)
	}
}

func TestUnloadPolicy_RemovesFromEvaluation(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if err := eng.UnloadPolicy("p1"); err != nil {
		t.Fatalf("UnloadPolicy() error: %v", err)
	}
	if eng.PolicyCount() != 0 {
		t.Errorf("PolicyCount() = %d, want 0", eng.PolicyCount())
	}

	result, err := eng.Evaluate(context.Background(), newTestContext("user-1", []string{"read"}, []string{"test"}, "test"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if result.Decision != DecisionNotApplicable {
		t.Errorf("Decision = %q, want %q after unload", result.Decision, DecisionNotApplicable)
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.LoadPolicy(newTestPolicy("p1", "test",
		rule("r1", policy.Always(), policy.Allow(), 100),
	)); err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := newTestContext(fmt.Sprintf("user-%d", i), []string{"read"}, []string{"test"}, "test")
			if _, err := eng.Evaluate(context.Background(), ctx); err != nil {
				errs <- err
			}
		}(i)
	}
	// Concurrent policy mutations on distinct identifiers.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("extra-%d", i)
			if err := eng.LoadPolicy(newTestPolicy(id, "other",
				rule("r1", policy.Always(), policy.Deny(), 1),
			)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent operation error: %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "negative TTL", cfg: DefaultConfig().WithCacheTTL(-1)},
		{name: "bad sweep schedule", cfg: DefaultConfig().WithCacheSweepSchedule("not-cron")},
		{name: "zero max policies", cfg: DefaultConfig().WithMaxPolicies(0)},
		{name: "zero max rules", cfg: DefaultConfig().WithMaxRulesPerPolicy(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, nil); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
