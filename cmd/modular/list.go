package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/spf13/cobra"
)

func newListCmd(flags *globalFlags, opts cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured components by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load(cmd, opts)
			if err != nil {
				return err
			}
			defer a.runtime.Close()

			writeModules(cmd.OutOrStdout(), a.runtime.Modules())
			return nil
		},
	}
}

// writeModules prints one "kind: a, b" line per kind, sorted by kind.
func writeModules(w io.Writer, modules map[modular.StepKind][]string) {
	for _, kind := range slices.Sorted(maps.Keys(modules)) {
		fmt.Fprintf(w, "%s: %s\n", kind, strings.Join(modules[kind], ", "))
	}
}
