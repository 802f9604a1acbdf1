// Package observability provides ready-made chain hooks: structured logging,
// Prometheus metrics, an in-memory trace store and a YAML transcript writer.
//
// All of them are plain hooks; register the ones you need:
//
//	traces := observability.NewTraceStore(100)
//	registry := hooks.NewRegistry().
//	    Register(observability.NewLoggingHook(logger)).
//	    Register(observability.NewMetricsHook(prometheus.DefaultRegisterer)).
//	    Register(traces)
package observability
