package main

import (
	"fmt"

	"github.com/Emilio-01-T/Modular-2/config"
	"github.com/spf13/cobra"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration without building it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("%s: %w", flags.configPath, err)
			}

			out := cmd.OutOrStdout()
			for _, w := range config.Warnings(cfg) {
				fmt.Fprintf(out, "%swarning:%s %s\n", colorYellow, colorReset, w)
			}
			fmt.Fprintf(out, "%s is valid: %d chains, %d pipelines, %d agents\n",
				flags.configPath, len(cfg.AllChains()), len(cfg.Pipelines), len(cfg.Agents))
			return nil
		},
	}
}
