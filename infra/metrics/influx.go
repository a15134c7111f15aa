package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/vpp/core/events"
	coremetrics "github.com/kilianp07/vpp/core/metrics"
	"github.com/kilianp07/vpp/infra/logger"
)

// InfluxSink writes search progress and run results to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordGeneration writes one search_generation point.
func (s *InfluxSink) RecordGeneration(ev events.GenerationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_generation").
		AddTag("run_id", ev.RunID).
		AddField("generation", ev.Generation).
		AddField("evaluations", ev.Evaluations).
		AddField("feasible", ev.Feasible).
		AddField("best_objective", round3(ev.BestObjective)).
		AddField("best_violation", ev.BestViolation).
		AddField("mean_fitness", round3(ev.MeanFitness)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes one optimization_run point per lifecycle event.
func (s *InfluxSink) RecordRun(ev events.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_run").
		AddTag("run_id", ev.RunID).
		AddTag("scenario", ev.Scenario).
		AddTag("status", string(ev.Status))
	if ev.Status == events.RunFinished {
		p = p.AddTag("feasible", strconv.FormatBool(ev.Feasible)).
			AddTag("termination", ev.Termination).
			AddField("objective", round3(ev.Objective)).
			AddField("violation", ev.Violation).
			AddField("generations", ev.Generations).
			AddField("evaluations", ev.Evaluations).
			AddField("duration_ms", ev.Duration.Milliseconds())
	} else {
		p = p.AddField("error", ev.Error)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
