// Package cmd contains the safetyctl commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type rootOptions struct {
	verbose bool
	output  string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "safetyctl",
		Short: "safetyctl - wearable safety tooling",
		Long: `safetyctl runs the HAV exposure processor offline and mints API tokens.

Examples:
  # Process a file of HAV samples and print the reallocated records
  safetyctl process --input samples.json

  # Write an exposure report
  safetyctl process --input samples.json --report exposure.xlsx

  # Mint an operator token for organization org-1
  safetyctl token --org org-1 --role operator --secret "$AUTH_JWT_SECRET"`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "output format (table, json)")

	root.AddCommand(newProcessCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) validateOutput() error {
	switch o.output {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}

func (o *rootOptions) printVerbose(cmd *cobra.Command, format string, args ...any) {
	if o.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
