package policy

import "fmt"

// ActionType identifies a rule action variant.
type ActionType string

const (
	// ActionAllow permits the request.
	ActionAllow ActionType = "allow"

	// ActionDeny rejects the request.
	ActionDeny ActionType = "deny"

	// ActionRequireApproval defers the request to an approval flow.
	ActionRequireApproval ActionType = "require_approval"

	// ActionLog records the match. It produces no obligation and
	// never decides the request.
	ActionLog ActionType = "log"

	// ActionTransform obliges the caller to mutate the request with
	// the given parameters before proceeding.
	ActionTransform ActionType = "transform"

	// ActionDelegate obliges the caller to route the request to
	// another target.
	ActionDelegate ActionType = "delegate"
)

// RuleAction is one variant of the closed action set. Allow, Deny,
// and RequireApproval are decisive; Log, Transform, and Delegate only
// ever contribute obligations or side effects.
type RuleAction struct {
	// Type selects the variant.
	Type ActionType `yaml:"type" json:"type"`

	// Params carries the transformation parameters for
	// ActionTransform.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	// Target names the delegation target for ActionDelegate.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Allow returns the decisive allow action.
func Allow() RuleAction {
	return RuleAction{Type: ActionAllow}
}

// Deny returns the decisive deny action.
func Deny() RuleAction {
	return RuleAction{Type: ActionDeny}
}

// RequireApproval returns the decisive require-approval action.
func RequireApproval() RuleAction {
	return RuleAction{Type: ActionRequireApproval}
}

// Log returns the non-decisive log action.
func Log() RuleAction {
	return RuleAction{Type: ActionLog}
}

// Transform returns the non-decisive transform action with the given
// obligation parameters.
func Transform(params map[string]any) RuleAction {
	return RuleAction{Type: ActionTransform, Params: params}
}

// Delegate returns the non-decisive delegate action targeting the
// given handler.
func Delegate(target string) RuleAction {
	return RuleAction{Type: ActionDelegate, Target: target}
}

// Decisive reports whether the action can decide a request on its
// own. Non-decisive actions only contribute obligations; a match set
// containing nothing decisive defaults to deny.
func (a RuleAction) Decisive() bool {
	switch a.Type {
	case ActionAllow, ActionDeny, ActionRequireApproval:
		return true
	default:
		return false
	}
}

// Validate checks that the variant's required fields are populated.
func (a *RuleAction) Validate() error {
	switch a.Type {
	case ActionAllow, ActionDeny, ActionRequireApproval, ActionLog:
		return nil
	case ActionTransform:
		if len(a.Params) == 0 {
			return fmt.Errorf("action %s: params cannot be empty", a.Type)
		}
		return nil
	case ActionDelegate:
		if a.Target == "" {
			return fmt.Errorf("action %s: target cannot be empty", a.Type)
		}
		return nil
	case "":
		return fmt.Errorf("action type cannot be empty")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}
