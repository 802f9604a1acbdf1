package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Emilio-01-T/Modular-2/config"
	"github.com/Emilio-01-T/Modular-2/internal/server"
	"github.com/Emilio-01-T/Modular-2/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags, opts cliOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured chains over HTTP",
		Long:  `Starts an HTTP API exposing POST /run, GET /status, GET /modules, GET /tracing and GET /metrics. SIGINT or SIGTERM shuts it down gracefully.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetricsHook(reg)
			if err != nil {
				return err
			}

			var traces *observability.TraceStore
			a, err := flags.loadWith(cmd, opts, func(cfg *config.Config) []any {
				traces = observability.NewTraceStore(cfg.Engine.TraceCapacity)
				return []any{metrics, traces}
			})
			if err != nil {
				return err
			}
			defer a.runtime.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.runtime).
				WithTraces(traces).
				WithMetrics(reg).
				WithLogger(a.logger)
			return srv.ListenAndServe(ctx, addr, a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
