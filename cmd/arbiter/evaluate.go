package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"arbiter-hq/arbiter/pkg/config"
	"arbiter-hq/arbiter/pkg/policy/engine"
	"arbiter-hq/arbiter/pkg/policy/manager"
	"arbiter-hq/arbiter/pkg/telemetry/logging"
)

var (
	evalPoliciesDir    string
	evalRequestFile    string
	evalSubject        string
	evalSubjectType    string
	evalClaims         []string
	evalDomains        []string
	evalResource       string
	evalResourceType   string
	evalResourceDomain string
	evalAction         string
	evalEventType      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single request against a policy directory",
	Long: `Evaluate loads every policy in the directory, runs one evaluation for
the described request, and prints the result as JSON.

The request comes either from flags:

  arbiter evaluate --policies ./policies \
      --subject alice --claims admin,read \
      --resource doc-1 --resource-domain billing --action read

or from a YAML request document:

  arbiter evaluate --policies ./policies --request request.yaml

where request.yaml looks like:

  subject:
    id: alice
    type: user
    claims: [admin, read]
    domains: [billing]
  resource:
    id: doc-1
    type: document
    domain: billing
  action:
    name: read
  event:
    type: user.login`,
	RunE: runEvaluate,
}

// requestDocument is the YAML shape accepted by --request.
type requestDocument struct {
	Subject struct {
		ID      string   `yaml:"id"`
		Type    string   `yaml:"type"`
		Claims  []string `yaml:"claims"`
		Domains []string `yaml:"domains"`
	} `yaml:"subject"`
	Resource struct {
		ID     string `yaml:"id"`
		Type   string `yaml:"type"`
		Domain string `yaml:"domain"`
	} `yaml:"resource"`
	Action struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"action"`
	Event *struct {
		ID   string `yaml:"id"`
		Type string `yaml:"type"`
	} `yaml:"event"`
}

func contextFromRequestFile(path string) (*engine.EvaluationContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	var doc requestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing request file %q: %w", path, err)
	}

	evalCtx := &engine.EvaluationContext{
		Subject:  engine.NewSubject(doc.Subject.ID, doc.Subject.Type, doc.Subject.Claims, doc.Subject.Domains),
		Resource: engine.Resource{ID: doc.Resource.ID, Type: doc.Resource.Type, Domain: doc.Resource.Domain},
		Action:   engine.Action{Name: doc.Action.Name, Type: doc.Action.Type},
	}
	if doc.Event != nil {
		evalCtx.Event = &engine.Event{ID: doc.Event.ID, Type: doc.Event.Type, Timestamp: time.Now().UTC()}
	}
	return evalCtx, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	logCfg := config.LoggingConfig{Level: "error", Format: "text"}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, os.Stderr)
	if err != nil {
		return err
	}

	engCfg := engine.DefaultConfig()
	policiesDir := evalPoliciesDir
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		appCfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		engCfg.CacheTTL = appCfg.Policy.CacheTTL
		engCfg.MaxPolicies = appCfg.Policy.MaxPolicies
		engCfg.MaxRulesPerPolicy = appCfg.Policy.MaxRulesPerPolicy
		if !cmd.Flags().Changed("policies") && appCfg.Policy.Dir != "" {
			policiesDir = appCfg.Policy.Dir
		}
	}

	eng, err := engine.New(engCfg, logger)
	if err != nil {
		return err
	}
	eng.RegisterEvaluator("time", engine.NewTimeEvaluator(engCfg.BusinessHours, nil))

	mgr := manager.New(policiesDir, eng, logger)
	if err := mgr.LoadAll(); err != nil {
		return fmt.Errorf("loading policies: %w", err)
	}

	var evalCtx *engine.EvaluationContext
	if evalRequestFile != "" {
		evalCtx, err = contextFromRequestFile(evalRequestFile)
		if err != nil {
			return err
		}
	} else {
		if evalSubject == "" || evalResource == "" || evalAction == "" {
			return fmt.Errorf("either --request or --subject, --resource, and --action are required")
		}
		evalCtx = &engine.EvaluationContext{
			Subject:  engine.NewSubject(evalSubject, evalSubjectType, evalClaims, evalDomains),
			Resource: engine.Resource{ID: evalResource, Type: evalResourceType, Domain: evalResourceDomain},
			Action:   engine.Action{Name: evalAction},
		}
		if evalEventType != "" {
			evalCtx.Event = &engine.Event{Type: evalEventType, Timestamp: time.Now().UTC()}
		}
	}

	result, err := eng.Evaluate(context.Background(), evalCtx)
	if err != nil {
		if engine.IsPermissionDenied(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.Decision == engine.DecisionDeny {
		os.Exit(2)
	}
	return nil
}

func init() {
	evaluateCmd.Flags().StringVar(&evalPoliciesDir, "policies", "policies", "policy directory")
	evaluateCmd.Flags().StringVar(&evalRequestFile, "request", "", "YAML request document (overrides the request flags)")
	evaluateCmd.Flags().StringVar(&evalSubject, "subject", "", "subject identifier")
	evaluateCmd.Flags().StringVar(&evalSubjectType, "subject-type", "user", "subject type")
	evaluateCmd.Flags().StringSliceVar(&evalClaims, "claims", nil, "subject claims (comma separated)")
	evaluateCmd.Flags().StringSliceVar(&evalDomains, "domains", nil, "subject domains (comma separated)")
	evaluateCmd.Flags().StringVar(&evalResource, "resource", "", "resource identifier")
	evaluateCmd.Flags().StringVar(&evalResourceType, "resource-type", "", "resource type")
	evaluateCmd.Flags().StringVar(&evalResourceDomain, "resource-domain", "", "resource domain")
	evaluateCmd.Flags().StringVar(&evalAction, "action", "", "action name")
	evaluateCmd.Flags().StringVar(&evalEventType, "event-type", "", "optional triggering event type")

	rootCmd.AddCommand(evaluateCmd)
}
