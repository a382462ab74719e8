package engine

import (
	"context"
	"strings"
)

// ConditionEvaluator is the capability behind custom conditions. The
// surrounding platform registers evaluators by name to extend the
// condition language without modifying the engine.
//
// Evaluate receives the full condition expression (including the
// evaluator name prefix) and the evaluation context, and returns
// whether the condition holds. Evaluators may perform I/O; a returned
// error aborts the entire evaluation call. The engine defines no
// timeout of its own, so evaluators doing I/O should honor ctx and
// callers needing bounded latency should pass a deadline.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error)
}

// ConditionEvaluatorFunc adapts a function to the ConditionEvaluator
// interface.
type ConditionEvaluatorFunc func(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error)

// Evaluate calls f.
func (f ConditionEvaluatorFunc) Evaluate(ctx context.Context, expression string, evalCtx *EvaluationContext) (bool, error) {
	return f(ctx, expression, evalCtx)
}

// evaluatorRegistry is the name-keyed table of custom condition
// evaluators. Registering an existing name replaces the previous
// evaluator.
type evaluatorRegistry struct {
	evaluators *shardedMap[ConditionEvaluator]
}

func newEvaluatorRegistry() *evaluatorRegistry {
	return &evaluatorRegistry{evaluators: newShardedMap[ConditionEvaluator]()}
}

func (r *evaluatorRegistry) register(name string, evaluator ConditionEvaluator) {
	r.evaluators.Set(name, evaluator)
}

func (r *evaluatorRegistry) lookup(name string) (ConditionEvaluator, bool) {
	return r.evaluators.Get(name)
}

// evaluatorName extracts the evaluator name from a custom condition
// expression: everything before the first colon, or the whole
// expression when there is none.
func evaluatorName(expression string) string {
	name, _, _ := strings.Cut(expression, ":")
	return name
}
