package metrics

import "github.com/kilianp07/vpp/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, serves /metrics on that address.
	PrometheusAddr string `json:"prometheus_addr"`
}
