package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Emilio-01-T/Modular-2/builder"
	"github.com/Emilio-01-T/Modular-2/config"
	"github.com/Emilio-01-T/Modular-2/hooks"
	"github.com/Emilio-01-T/Modular-2/internal/logging"
	"github.com/Emilio-01-T/Modular-2/observability"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
)

// cliOptions carries dependencies that tests replace.
type cliOptions struct {
	// models replaces provider construction for the named llms.
	models map[string]llms.Model

	// stdin feeds the chat REPL. Nil uses the terminal.
	stdin io.ReadCloser
}

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// app is a loaded configuration and the runtime built from it.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	runtime *builder.Runtime
}

func newRootCmd(opts cliOptions) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "modular",
		Short:         "Run LLM chains and pipelines declared in YAML",
		Long:          `modular builds LLMs, tools, agents, memory, retrievers, parsers and evaluators from a YAML file and runs the chains and pipelines that compose them.`,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "Path to the configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	root.AddCommand(
		newRunCmd(flags, opts),
		newAskCmd(flags, opts),
		newChatCmd(flags, opts),
		newCheckCmd(flags),
		newListCmd(flags, opts),
		newServeCmd(flags, opts),
	)
	return root
}

// logger resolves the log settings: flags, then config, then environment.
func (f *globalFlags) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	lopts := logging.FromEnv()
	if cfg != nil {
		if cfg.Logging.Level != "" {
			lopts.Level = logging.ParseLevel(cfg.Logging.Level)
		}
		if cfg.Logging.Format != "" {
			lopts.Format = logging.ParseFormat(cfg.Logging.Format)
		}
	}
	if f.logLevel != "" {
		lopts.Level = logging.ParseLevel(f.logLevel)
	}
	if f.logFormat != "" {
		lopts.Format = logging.ParseFormat(f.logFormat)
	}
	lopts.Writer = w
	return logging.New(lopts)
}

// load reads the configuration and builds it. Extra hooks are registered
// after the logging hook.
func (f *globalFlags) load(cmd *cobra.Command, opts cliOptions, extra ...any) (*app, error) {
	return f.loadWith(cmd, opts, func(*config.Config) []any { return extra })
}

// loadWith is load with hooks that depend on the loaded configuration.
func (f *globalFlags) loadWith(cmd *cobra.Command, opts cliOptions, extra func(*config.Config) []any) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	logger := f.logger(cfg, cmd.ErrOrStderr())

	registry := hooks.NewRegistry().
		WithLogger(logger).
		Register(observability.NewLoggingHook(logger))
	for _, h := range extra(cfg) {
		registry.Register(h)
	}

	rt, err := builder.Build(cfg, builder.Options{
		Logger: logger,
		Hooks:  registry,
		Models: opts.models,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", f.configPath, err)
	}
	return &app{cfg: cfg, logger: logger, runtime: rt}, nil
}
