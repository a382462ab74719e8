package engine

import (
	"context"
	"fmt"
	"log/slog"

	"arbiter-hq/arbiter/pkg/policy"
)

// conditionMatcher interprets rule conditions against an evaluation
// context. It holds no per-request state and is safe for concurrent
// use on the same rule from multiple callers.
type conditionMatcher struct {
	logger     *slog.Logger
	evaluators *evaluatorRegistry
}

func newConditionMatcher(logger *slog.Logger, evaluators *evaluatorRegistry) *conditionMatcher {
	return &conditionMatcher{
		logger:     logger,
		evaluators: evaluators,
	}
}

// match reports whether the condition holds for the context.
//
// A custom condition naming an unregistered evaluator is false with a
// diagnostic, not an error, so rule sets degrade gracefully when
// optional evaluators are absent. A registered evaluator that fails
// returns an EvaluatorError, which aborts the whole evaluation.
func (m *conditionMatcher) match(ctx context.Context, cond policy.Condition, evalCtx *EvaluationContext) (bool, error) {
	switch cond.Type {
	case policy.ConditionAlways:
		return true, nil

	case policy.ConditionHasClaim:
		return evalCtx.Subject.HasClaim(cond.Claim), nil

	case policy.ConditionHasAllClaims:
		for _, claim := range cond.Claims {
			if !evalCtx.Subject.HasClaim(claim) {
				return false, nil
			}
		}
		return true, nil

	case policy.ConditionHasAnyClaim:
		for _, claim := range cond.Claims {
			if evalCtx.Subject.HasClaim(claim) {
				return true, nil
			}
		}
		return false, nil

	case policy.ConditionDomainIs:
		return evalCtx.Resource.Domain == cond.Domain || evalCtx.Subject.InDomain(cond.Domain), nil

	case policy.ConditionEventType:
		return evalCtx.Event != nil && evalCtx.Event.Type == cond.EventType, nil

	case policy.ConditionCustom:
		return m.matchCustom(ctx, cond.Expression, evalCtx)

	default:
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

func (m *conditionMatcher) matchCustom(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error) {
	name := evaluatorName(expression)
	evaluator, ok := m.evaluators.lookup(name)
	if !ok {
		m.logger.Warn("no evaluator registered for custom condition",
			"evaluator", name,
			"expression", expression,
		)
		return false, nil
	}

	matched, err := evaluator.Evaluate(ctx, expression, evalCtx)
	if err != nil {
		return false, &EvaluatorError{
			Evaluator:  name,
			Expression: expression,
			Cause:      err,
		}
	}
	return matched, nil
}
