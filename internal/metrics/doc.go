// Package metrics records generator run metrics.
//
// Components receive a Recorder; NoopRecorder is the default so callers never
// nil-check. PrometheusRecorder registers its collectors on a caller supplied
// registry, which serve mode exposes over HTTP and batch runs can write to a
// node_exporter textfile after each run.
package metrics
