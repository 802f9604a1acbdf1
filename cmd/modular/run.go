package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/observability"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats of the run command.
const (
	outputText = "text"
	outputYAML = "yaml"
	outputJSON = "json"
)

// runResult is what run prints in yaml and json modes.
type runResult struct {
	RunID   string                 `json:"run_id" yaml:"run_id"`
	Target  string                 `json:"target" yaml:"target"`
	Output  any                    `json:"output,omitempty" yaml:"output,omitempty"`
	Error   string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Step    string                 `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	History []modular.HistoryEntry `json:"history,omitempty" yaml:"history,omitempty"`
	Errors  []modular.ErrorEntry   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newRunCmd(flags *globalFlags, opts cliOptions) *cobra.Command {
	var (
		trace   bool
		verbose bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "run <chain|pipeline> [input...]",
		Short: "Run a chain or pipeline",
		Long:  `Runs the named pipeline or chain with the remaining arguments joined as input. Pipelines take precedence over chains of the same name.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputText, outputYAML, outputJSON:
			default:
				return fmt.Errorf("unknown output format %q", output)
			}

			var extra []any
			if verbose {
				extra = append(extra, observability.NewTranscriptHook(cmd.ErrOrStderr()))
			}
			a, err := flags.load(cmd, opts, extra...)
			if err != nil {
				return err
			}
			defer a.runtime.Close()

			target := args[0]
			input := strings.Join(args[1:], " ")

			execCtx := modular.NewExecutionContext()
			out, runErr := a.runtime.Run(cmd.Context(), target, input, execCtx)

			res := runResult{RunID: execCtx.RunID(), Target: target, Output: out}
			if trace || runErr != nil {
				res.History = execCtx.History()
				res.Errors = execCtx.Errors()
			}
			if runErr != nil {
				res.Error = runErr.Error()
				res.Step = modular.FailedStep(runErr)
			}

			if err := printResult(cmd.OutOrStdout(), output, res, trace); err != nil {
				return err
			}
			if runErr != nil {
				if res.Step != "" {
					return fmt.Errorf("run %s failed at step %q: %w", target, res.Step, runErr)
				}
				return fmt.Errorf("run %s: %w", target, runErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "Print step history and errors")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Write a transcript of every lifecycle event to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, yaml or json")
	return cmd
}

func printResult(w io.Writer, format string, res runResult, trace bool) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}

	if res.Error == "" {
		fmt.Fprintln(w, modular.Text(res.Output))
	}
	if !trace && res.Error == "" {
		return nil
	}
	if len(res.History) > 0 {
		fmt.Fprintln(w, "\nHistory:")
		for _, h := range res.History {
			fmt.Fprintf(w, "  %s: %s\n", h.Step, oneLine(modular.Text(h.Result)))
		}
	}
	if len(res.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s [%s]: %s\n", e.Step, e.Kind, e.Error)
		}
	}
	return nil
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " | ")
}
