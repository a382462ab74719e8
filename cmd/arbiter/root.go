package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - domain-scoped policy decision point",
	Long: `Arbiter evaluates access requests against YAML-defined policies and
returns an explainable decision.

Policies are scoped to domains; a request is checked against the
policies of the resource's domain, the subject's domains, and global
wildcard policies. Every decision reports which policies were
evaluated and which rules matched.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
