package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"arbiter-hq/arbiter/pkg/policy"
)

// Engine is the policy decision point. It owns the policy store, the
// domain index, the evaluator registry, and the result cache; callers
// share one instance by reference.
//
// Evaluate calls run fully in parallel with each other and with
// LoadPolicy/UnloadPolicy/RegisterEvaluator. There is no snapshot
// isolation: a policy change may or may not be visible to an in-flight
// evaluation, and an evaluation racing a change can write a
// pre-change result to the cache after the change cleared it. Such a
// stale entry lives at most one TTL.
type Engine struct {
	config     *Config
	logger     *slog.Logger
	store      *policyStore
	evaluators *evaluatorRegistry
	matcher    *conditionMatcher
	cache      *resultCache

	metricsMu sync.RWMutex
	metrics   MetricsRecorder

	janitorMu sync.Mutex
	janitor   *cron.Cron
	closed    bool
}

// New creates an engine from the given configuration. All state
// starts empty. A nil logger uses slog.Default.
func New(config *Config, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:     config,
		logger:     logger,
		store:      newPolicyStore(),
		evaluators: newEvaluatorRegistry(),
		cache:      newResultCache(config.CacheTTL),
		metrics:    nopMetrics{},
	}
	e.matcher = newConditionMatcher(logger, e.evaluators)
	return e, nil
}

// AttachMetrics sets the metrics recorder. A nil recorder detaches.
func (e *Engine) AttachMetrics(m MetricsRecorder) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	if m == nil {
		e.metrics = nopMetrics{}
		return
	}
	e.metrics = m
}

func (e *Engine) recorder() MetricsRecorder {
	e.metricsMu.RLock()
	defer e.metricsMu.RUnlock()
	return e.metrics
}

// LoadPolicy inserts or replaces a policy under its identifier and
// clears the result cache. Loading is idempotent per identifier.
func (e *Engine) LoadPolicy(p *policy.Policy) error {
	if p == nil {
		return fmt.Errorf("policy cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if len(p.Rules) > e.config.MaxRulesPerPolicy {
		return &LimitError{
			PolicyID: p.ID,
			Message:  fmt.Sprintf("too many rules: %d (max %d)", len(p.Rules), e.config.MaxRulesPerPolicy),
		}
	}
	if _, exists := e.store.get(p.ID); !exists && e.store.count() >= e.config.MaxPolicies {
		return &LimitError{
			PolicyID: p.ID,
			Message:  fmt.Sprintf("policy store is full (max %d)", e.config.MaxPolicies),
		}
	}

	e.store.load(p)
	e.cache.invalidateDomain(p.Domain)
	e.recorder().SetPolicyCount(e.store.count())

	e.logger.Info("policy loaded",
		"policy_id", p.ID,
		"domain", p.Domain,
		"rules", len(p.Rules),
		"enabled", p.Enabled,
	)
	return nil
}

// UnloadPolicy removes a policy and clears the result cache.
// Unloading an unknown identifier is a no-op success.
func (e *Engine) UnloadPolicy(id string) error {
	if !e.store.unload(id) {
		e.logger.Debug("unload of unknown policy", "policy_id", id)
		return nil
	}

	e.cache.clear()
	e.recorder().SetPolicyCount(e.store.count())

	e.logger.Info("policy unloaded", "policy_id", id)
	return nil
}

// RegisterEvaluator registers a custom condition evaluator under a
// name. Registering an existing name replaces the previous evaluator.
// The registry is engine-wide and lives for the engine's lifetime.
func (e *Engine) RegisterEvaluator(name string, evaluator ConditionEvaluator) {
	e.evaluators.register(name, evaluator)
	e.logger.Info("condition evaluator registered", "evaluator", name)
}

// Policy returns the loaded policy with the given identifier.
func (e *Engine) Policy(id string) (*policy.Policy, bool) {
	return e.store.get(id)
}

// PolicyCount returns the number of loaded policies.
func (e *Engine) PolicyCount() int {
	return e.store.count()
}

// Evaluate decides the request described by evalCtx.
//
// The call fails only when the subject presents no claims
// (PermissionDeniedError) or a registered custom evaluator fails
// (ConditionError wrapping an EvaluatorError). An unregistered
// evaluator is not a failure; its condition is simply false.
//
// Results are cached by (subject id, resource id, action name) for
// the configured TTL. A cached result is returned unchanged,
// original timestamp included, so callers can detect a cache hit by
// the timestamp not advancing. Contexts whose decision depends on
// anything outside the key triple must not rely on the cache.
func (e *Engine) Evaluate(ctx context.Context, evalCtx *EvaluationContext) (*EvaluationResult, error) {
	if evalCtx == nil {
		return nil, fmt.Errorf("evaluation context cannot be nil")
	}

	start := time.Now()

	// Hard precondition of the access model, checked before cache
	// and store: a subject without claims cannot be evaluated.
	if len(evalCtx.Subject.Claims) == 0 {
		return nil, &PermissionDeniedError{
			SubjectID:  evalCtx.Subject.ID,
			ResourceID: evalCtx.Resource.ID,
		}
	}

	rec := e.recorder()
	key := e.cache.key(evalCtx.Subject.ID, evalCtx.Resource.ID, evalCtx.Action.Name)
	if cached, ok := e.cache.get(key); ok {
		rec.RecordCacheHit()
		return cached, nil
	}
	rec.RecordCacheMiss()

	result, err := e.evaluate(ctx, evalCtx, start)
	if err != nil {
		return nil, err
	}

	e.cache.put(key, result)
	rec.SetCacheSize(e.cache.len())
	rec.RecordEvaluation(result.Decision, result.Duration)
	return result, nil
}

// evaluate runs the uncached decision algorithm.
func (e *Engine) evaluate(ctx context.Context, evalCtx *EvaluationContext, start time.Time) (*EvaluationResult, error) {
	candidates := e.store.candidates(evalCtx.Resource.Domain, evalCtx.Subject.Domains)

	evaluated := make([]string, 0, len(candidates))
	var matched []MatchedRule
	var obligations []Obligation

	for _, policyID := range candidates {
		pol, ok := e.store.get(policyID)
		if !ok {
			// Unloaded between candidate gathering and here.
			continue
		}
		if !pol.Enabled {
			continue
		}
		evaluated = append(evaluated, policyID)

		for _, rule := range sortRulesByPriority(pol.Rules) {
			holds, err := e.matcher.match(ctx, rule.Condition, evalCtx)
			if err != nil {
				return nil, &ConditionError{
					PolicyID: policyID,
					RuleID:   rule.ID,
					Cause:    err,
				}
			}
			if !holds {
				continue
			}

			matched = append(matched, MatchedRule{
				PolicyID: policyID,
				RuleID:   rule.ID,
				Priority: rule.Priority,
				Action:   rule.Action,
			})

			switch rule.Action.Type {
			case policy.ActionLog:
				e.logger.Info("policy rule matched",
					"policy_id", policyID,
					"rule_id", rule.ID,
					"subject_id", evalCtx.Subject.ID,
					"resource_id", evalCtx.Resource.ID,
					"action", evalCtx.Action.Name,
				)
			case policy.ActionTransform:
				obligations = append(obligations, Obligation{
					Type:       ObligationTransform,
					Parameters: rule.Action.Params,
				})
			case policy.ActionDelegate:
				obligations = append(obligations, Obligation{
					Type:       ObligationDelegate,
					Parameters: map[string]any{"target": rule.Action.Target},
				})
			}
		}
	}

	sortMatchedByPriority(matched)

	return &EvaluationResult{
		Decision:          determineDecision(matched),
		EvaluatedPolicies: evaluated,
		MatchedRules:      matched,
		Timestamp:         time.Now().UTC(),
		Duration:          time.Since(start),
		Obligations:       obligations,
	}, nil
}

// determineDecision folds matched rules into the final decision:
// the highest-priority decisive action wins. No matches at all is
// NotApplicable; matches without any decisive action default to
// Deny, never Allow.
func determineDecision(matched []MatchedRule) Decision {
	if len(matched) == 0 {
		return DecisionNotApplicable
	}
	for _, m := range matched {
		switch m.Action.Type {
		case policy.ActionAllow:
			return DecisionAllow
		case policy.ActionDeny:
			return DecisionDeny
		case policy.ActionRequireApproval:
			return DecisionRequireApproval
		}
	}
	return DecisionDeny
}

// sortRulesByPriority returns the rules sorted by descending
// priority. The sort is stable: equal priorities keep their original
// list order. The input slice is not modified.
func sortRulesByPriority(rules []policy.Rule) []policy.Rule {
	sorted := make([]policy.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}

// sortMatchedByPriority sorts matched rules in place by descending
// priority, keeping match order for equal priorities.
func sortMatchedByPriority(matched []MatchedRule) {
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
}

// StartJanitor starts the cron-driven cache sweep if a schedule is
// configured. It is a no-op without a schedule. The janitor only
// reclaims memory held by expired entries; lookups never return
// expired results regardless.
func (e *Engine) StartJanitor() error {
	if e.config.CacheSweepSchedule == "" {
		return nil
	}

	e.janitorMu.Lock()
	defer e.janitorMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.janitor != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(e.config.CacheSweepSchedule, func() {
		removed := e.cache.purgeExpired()
		rec := e.recorder()
		rec.RecordCacheEvictions(removed)
		rec.SetCacheSize(e.cache.len())
		if removed > 0 {
			e.logger.Debug("cache sweep completed", "removed", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cache sweep schedule %q: %w", e.config.CacheSweepSchedule, err)
	}
	c.Start()
	e.janitor = c

	e.logger.Info("cache janitor started", "schedule", e.config.CacheSweepSchedule)
	return nil
}

// Close stops background work. The engine's maps remain readable;
// Close exists so hosts can stop the janitor on shutdown.
func (e *Engine) Close() error {
	e.janitorMu.Lock()
	defer e.janitorMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.janitor != nil {
		<-e.janitor.Stop().Done()
		e.janitor = nil
	}
	return nil
}

// IsPermissionDenied reports whether err is the no-claims
// precondition failure.
func IsPermissionDenied(err error) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd)
}
