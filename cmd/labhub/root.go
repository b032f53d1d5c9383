package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labhub/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		logLevel string
		out      outputOptions
	)

	cmd := &cobra.Command{
		Use:           "labhub",
		Short:         "labhub manages laboratory content, media and student followers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			warning, err := configureLoggerForCLI(logLevel, cfg)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVarP(&out.format, "output", "o", "", "structured output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &out),
		newConfigCmd(cfg, &out),
		newAdminCmd(cfg, &out),
		newLabCmd(cfg, &out),
	)

	return cmd
}
