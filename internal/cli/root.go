package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the simserve CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "simserve",
		Short:         "Parse, validate, and run annotated backend modules",
		Long:          "simserve turns @endpoint-annotated source into runnable Flask modules and serves them, delegating execution to a remote backend when one is configured and simulating the network otherwise.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{
		newParseCmd(),
		newValidateCmd(),
		newGenerateCmd(),
		newRunCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagErr)
		cmd.AddCommand(sub)
	}

	return cmd
}
