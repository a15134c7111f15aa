package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/vpp/core/factory"
	coremetrics "github.com/kilianp07/vpp/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterRunSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterRunSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		// the HTTP endpoint is configured by metrics.prometheus_addr
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterRunSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})

	_ = coremetrics.RegisterRunSink("amqp", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			DSN                   string `json:"dsn"`
			Queue                 string `json:"queue"`
			PublishTimeoutSeconds int    `json:"publish_timeout_seconds"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Queue == "" {
			c.Queue = "vpp_runs"
		}
		sink, err := NewAMQPSink(c.DSN, c.Queue, time.Duration(c.PublishTimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
		return sink, nil
	})
}
