package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine is closed")
)

// PermissionDeniedError indicates a hard precondition failure of the
// access model: the subject presented no claims at all. It is raised
// before any policy lookup and is distinct from a Deny decision.
type PermissionDeniedError struct {
	SubjectID  string
	ResourceID string
}

// Error returns the error message.
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("subject %q has no claims to access resource %q", e.SubjectID, e.ResourceID)
}

// EvaluatorError indicates a registered custom evaluator failed. It
// aborts the entire evaluation; no partial result is returned and the
// failure is never downgraded to "condition false".
type EvaluatorError struct {
	Evaluator  string
	Expression string
	Cause      error
}

// Error returns the error message.
func (e *EvaluatorError) Error() string {
	return fmt.Sprintf("evaluator %q failed on %q: %v", e.Evaluator, e.Expression, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluatorError) Unwrap() error {
	return e.Cause
}

// ConditionError wraps a condition evaluation failure with the policy
// and rule being evaluated when it occurred.
type ConditionError struct {
	PolicyID string
	RuleID   string
	Cause    error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("policy %s rule %s: condition evaluation failed: %v", e.PolicyID, e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// LimitError indicates a policy was rejected at load time for
// exceeding a configured bound.
type LimitError struct {
	PolicyID string
	Message  string
}

// Error returns the error message.
func (e *LimitError) Error() string {
	return fmt.Sprintf("policy %s: %s", e.PolicyID, e.Message)
}
