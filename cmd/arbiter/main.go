// Arbiter is a domain-scoped policy decision point.
//
// It evaluates access requests (subject, resource, action, optional
// event) against YAML-defined policies and returns an explainable
// decision: allow, deny, require_approval, or not_applicable.
//
// Usage:
//
//	# Validate policy files
//	arbiter validate --policies ./policies
//
//	# Evaluate a single request against a policy directory
//	arbiter evaluate --policies ./policies \
//	    --subject alice --claims admin,read \
//	    --resource doc-1 --resource-domain billing --action read
//
//	# Show version information
//	arbiter version
package main

func main() {
	Execute()
}
