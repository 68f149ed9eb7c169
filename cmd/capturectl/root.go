package main

import (
	"github.com/spf13/cobra"

	"github.com/vignesh-goutham/artemis-capture/pkg/app"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

type commandContext struct {
	region  string
	json    bool
	runtime *app.Runtime
}

func (c *commandContext) ensureRuntime(cmd *cobra.Command) (*app.Runtime, error) {
	if c.runtime != nil {
		return c.runtime, nil
	}
	rt, err := app.Bootstrap(cmd.Context(), c.region)
	if err != nil {
		return nil, err
	}
	c.runtime = rt
	return rt, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "capturectl",
		Short:         "Run and inspect the capture jobs from a workstation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.InitializeForLambda()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.region, "region", "", "AWS region (defaults to the environment)")
	rootCmd.PersistentFlags().BoolVar(&ctx.json, "json", false, "Write JSON instead of a table")

	rootCmd.AddCommand(newAutoQueueCommand(ctx))
	rootCmd.AddCommand(newQueueCheckCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newInstanceCommand(ctx))

	return rootCmd
}
