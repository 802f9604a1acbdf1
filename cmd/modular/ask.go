package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags, opts cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <agent> <prompt...>",
		Short: "Send one prompt to an agent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load(cmd, opts)
			if err != nil {
				return err
			}
			defer a.runtime.Close()

			answer, err := a.runtime.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
