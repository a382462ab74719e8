// Package engine implements the policy decision point: given a
// request shaped as (subject, resource, action, optional event), it
// decides whether to allow, deny, or require approval, and which
// obligations the caller must honor.
//
// The engine holds loaded policies in a domain-indexed concurrent
// store, interprets the closed condition set against the request
// context (delegating custom conditions to registered evaluators),
// folds matched rules by descending priority into a single decision,
// and memoizes results in a short-TTL cache keyed by (subject id,
// resource id, action name).
//
// Decision semantics are deliberately conservative: the highest
// priority matched decisive rule wins, and a match set containing
// only non-decisive rules yields Deny, never Allow.
package engine
