package metrics_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kilianp07/vpp/core/events"
	"github.com/kilianp07/vpp/core/factory"
	metrics "github.com/kilianp07/vpp/core/metrics"
	_ "github.com/kilianp07/vpp/infra/metrics"
)

// Builtin sinks are registered by infra/metrics.
func TestRunSink_Builtins(t *testing.T) {
	for _, typ := range []string{"amqp", "influx", "nop", "prometheus"} {
		if !slices.Contains(metrics.RunSinkTypes(), typ) {
			t.Fatalf("run sink %q not registered: %v", typ, metrics.RunSinkTypes())
		}
	}
	s, err := metrics.NewRunSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if err := s.RecordRun(events.RunEvent{RunID: "r"}); err != nil {
		t.Fatalf("nop sink returned %v", err)
	}
	p, err := metrics.NewRunSink([]factory.ModuleConfig{{Type: "prometheus"}})
	if err != nil || p == nil {
		t.Fatalf("create prometheus: %v", err)
	}
	_, err = metrics.NewRunSink([]factory.ModuleConfig{{Type: "missing"}})
	if !errors.Is(err, factory.ErrUnknownModule) || !strings.Contains(err.Error(), "run sink 0 (missing)") {
		t.Fatalf("expected unknown module error naming the sink, got %v", err)
	}
}

func TestNewRunSink_Multi(t *testing.T) {
	s, err := metrics.NewRunSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	cfgs := []factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}}
	s, err = metrics.NewRunSink(cfgs)
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

type closingSink struct {
	metrics.NopSink
	closed *bool
}

func (c closingSink) Close() { *c.closed = true }

func TestNewRunSink_ClosesBuiltOnFailure(t *testing.T) {
	var closed bool
	if err := metrics.RegisterRunSink("closing", func(map[string]any) (metrics.MetricsSink, error) {
		return closingSink{closed: &closed}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := metrics.NewRunSink([]factory.ModuleConfig{{Type: "closing"}, {Type: "nope"}})
	if err == nil || !strings.Contains(err.Error(), "run sink 1 (nope)") {
		t.Fatalf("expected error on the second sink, got %v", err)
	}
	if !closed {
		t.Fatal("first sink left open after a failed build")
	}
}
