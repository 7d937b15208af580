package main

import (
	"encoding/json"
	"os"

	fxmodules "alliance-observatory/internal/fx"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type commandContext struct {
	jsonOutput bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "observatoryctl",
		Short:         "Operate the alliance observatory",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newClassifySamplesCommand(ctx))
	rootCmd.AddCommand(newRunPipelineCommand(ctx))
	rootCmd.AddCommand(newAuditPlayersCommand(ctx))
	rootCmd.AddCommand(newDuplicatesCommand(ctx))
	rootCmd.AddCommand(newPlayersCommand(ctx))
	rootCmd.AddCommand(newBearCommand(ctx))
	rootCmd.AddCommand(newCleanupCommand(ctx))
	return rootCmd
}

// invoke builds the dependency graph and calls fn with what it asks for.
// Lifecycle hooks are never started; fn owns any resource it takes.
func (c *commandContext) invoke(fn any, extra ...fx.Option) error {
	opts := []fx.Option{
		fxmodules.Module,
		fx.NopLogger,
		fx.Decorate(func(l zerolog.Logger) zerolog.Logger { return l.Output(os.Stderr) }),
	}
	opts = append(opts, extra...)
	opts = append(opts, fx.Invoke(fn))
	return fx.New(opts...).Err()
}

func (c *commandContext) output(cmd *cobra.Command, v any, render func() string) error {
	if c.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := cmd.OutOrStdout().Write([]byte(render() + "\n"))
	return err
}
