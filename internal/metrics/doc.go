// Package metrics records fetch, hydration and persistence outcomes.
//
// Components receive a Recorder and default to NoopRecorder, so nothing is
// collected unless a caller injects a PrometheusRecorder:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	f := fetcher.New(store, fetcher.WithRecorder(rec))
//
// The kennel CLI does this when --metrics is set and prints the registry in
// text exposition format after the command finishes.
package metrics
