// Package policy defines the value types for authorization policies:
// policies, rules, rule conditions, and rule actions.
//
// Conditions and actions are closed variant sets. Every consumer that
// switches over them must handle all variants exhaustively; unknown
// variants are evaluation errors, never silent matches. This is what
// keeps the engine's default-deny semantics intact when the variant
// set grows.
//
// Types in this package carry no behavior beyond construction,
// validation, and YAML/JSON codecs. Evaluation lives in the engine
// subpackage.
package policy
