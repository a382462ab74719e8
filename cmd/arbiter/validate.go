package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arbiter-hq/arbiter/pkg/policy/manager"
)

var (
	validatePoliciesDir string
	validateFile        string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate policy files",
	Long: `Validate checks policy files for structural problems: malformed YAML,
unknown condition or action types, missing required fields, and
duplicate rule identifiers.

Validate a whole directory or a single file:

  arbiter validate --policies ./policies
  arbiter validate --file ./policies/billing.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader := manager.NewLoader(nil)

	if validateFile != "" {
		p, err := loader.LoadFromFile(validateFile)
		if err != nil {
			return err
		}
		fmt.Printf("OK: %s (policy %s, %d rules)\n", validateFile, p.ID, len(p.Rules))
		return nil
	}

	policies, err := loader.LoadFromDirectory(validatePoliciesDir)
	for _, p := range policies {
		fmt.Printf("OK: policy %s (%s, domain %s, %d rules)\n", p.ID, p.Name, p.Domain, len(p.Rules))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("%d policies valid\n", len(policies))
	return nil
}

func init() {
	validateCmd.Flags().StringVar(&validatePoliciesDir, "policies", "policies", "policy directory to validate")
	validateCmd.Flags().StringVar(&validateFile, "file", "", "single policy file to validate")

	rootCmd.AddCommand(validateCmd)
}
