// Package metrics defines the sinks that record optimisation progress.
// Sinks like PromSink and InfluxSink receive generation and run events and
// can be combined with NewMultiSink. NewRunSink builds sinks from
// configuration and returns a MultiSink when several are configured.
package metrics
