package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vpp/config"
	"github.com/kilianp07/vpp/core/events"
	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/core/runlog"
	"github.com/kilianp07/vpp/infra/logger"
	"github.com/kilianp07/vpp/infra/mqtt"
)

type recordingSink struct {
	mu   sync.Mutex
	gens int
	runs []events.RunEvent
}

func (r *recordingSink) RecordGeneration(events.GenerationEvent) error {
	r.mu.Lock()
	r.gens++
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) RecordRun(ev events.RunEvent) error {
	r.mu.Lock()
	r.runs = append(r.runs, ev)
	r.mu.Unlock()
	return nil
}

func flat(nt int, v float64) []float64 {
	out := make([]float64, nt)
	for i := range out {
		out[i] = v
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Run.Nt = 6
	cfg.Plant.ParameterSet = model.ParameterSet{
		Biomass: []model.Biomass{{PMin: 0.1, PMax: 1.5, RampUp: 0.5, RampDown: 0.5, Kappa: 0.85, KappaStart: 20.14, Alpha: 0.85}},
		KappaPV: []float64{0.02},
		Nl:      1,
	}
	cfg.Search.GA.PopulationSize = 20
	cfg.Search.GA.Generations = 5
	cfg.Search.GA.Workers = 2
	cfg.Logging.Backend = "memory"
	cfg.SetDefaults()
	return cfg
}

func inline(nt int) *model.Series {
	return &model.Series{
		Name:    "inline",
		PL:      [][]float64{flat(nt, 0.6)},
		PPV:     [][]float64{flat(nt, 0.2)},
		TauPLD:  flat(nt, 1),
		TauDist: flat(nt, 0.5),
		TauDL:   flat(nt, 0),
	}
}

type fixture struct {
	svc  *Service
	sink *recordingSink
	pub  *mqtt.MockPublisher
	runs *runlog.MemoryStore
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{sink: &recordingSink{}, pub: mqtt.NewMockPublisher(), runs: runlog.NewMemoryStore()}
	n := 0
	svc, err := New(cfg,
		WithSink(f.sink),
		WithPublisher(f.pub),
		WithRunLog(f.runs),
		WithLogger(logger.NopLogger{}),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("run-%d", n) }),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestService_Optimize(t *testing.T) {
	f := newFixture(t, testConfig())
	sched, err := f.svc.Optimize(context.Background(), RunRequest{Series: inline(6)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Close())

	assert.Equal(t, "run-1", sched.Run.ID)
	assert.Equal(t, "inline", sched.Run.Scenario)
	assert.Equal(t, int64(1), sched.Run.Seed)
	assert.Equal(t, 5, sched.Run.Generations)
	assert.Len(t, sched.Steps, 6)

	rec, err := f.runs.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, runlog.StatusFinished, rec.Status)
	assert.Equal(t, sched.Profit, rec.Profit)

	assert.Same(t, sched, f.pub.Schedules["run-1"])

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	assert.Equal(t, 5, f.sink.gens)
	require.Len(t, f.sink.runs, 2)
	assert.Equal(t, events.RunStarted, f.sink.runs[0].Status)
	assert.Equal(t, events.RunFinished, f.sink.runs[1].Status)
	assert.Equal(t, sched.Profit, f.sink.runs[1].Objective)
}

func TestService_GeneratedScenarioWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Start = 6
	cfg.Run.ScenarioIndex = 1
	f := newFixture(t, cfg)
	defer func() { _ = f.svc.Close() }()

	sched, err := f.svc.Optimize(context.Background(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "scenario-001", sched.Run.Scenario)
	assert.Len(t, sched.Steps, 6)

	idx := 0
	sched, err = f.svc.Optimize(context.Background(), RunRequest{ScenarioIndex: &idx})
	require.NoError(t, err)
	assert.Equal(t, "scenario-000", sched.Run.Scenario)
}

func TestService_Reproducible(t *testing.T) {
	f := newFixture(t, testConfig())
	defer func() { _ = f.svc.Close() }()
	seed := int64(11)
	a, err := f.svc.Optimize(context.Background(), RunRequest{Series: inline(6), Seed: &seed})
	require.NoError(t, err)
	b, err := f.svc.Optimize(context.Background(), RunRequest{Series: inline(6), Seed: &seed})
	require.NoError(t, err)
	assert.NotEqual(t, a.Run.ID, b.Run.ID)
	assert.Equal(t, a.Profit, b.Profit)
	assert.Equal(t, a.Variables, b.Variables)
}

func TestService_LPSeed(t *testing.T) {
	f := newFixture(t, testConfig())
	defer func() { _ = f.svc.Close() }()
	on := true
	sched, err := f.svc.Optimize(context.Background(), RunRequest{Series: inline(6), LPSeed: &on})
	require.NoError(t, err)
	assert.Len(t, sched.Steps, 6)
}

func TestService_FailedRun(t *testing.T) {
	f := newFixture(t, testConfig())
	bad := inline(4)
	_, err := f.svc.Optimize(context.Background(), RunRequest{Series: bad})
	require.ErrorIs(t, err, model.ErrConfig)
	require.NoError(t, f.svc.Close())

	rec, err := f.runs.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, runlog.StatusFailed, rec.Status)
	assert.Equal(t, "inline", rec.Scenario)
	assert.NotEmpty(t, rec.Error)
	assert.Empty(t, f.pub.Schedules)

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	require.Len(t, f.sink.runs, 1)
	assert.Equal(t, events.RunFailed, f.sink.runs[0].Status)
}

func TestService_Cancelled(t *testing.T) {
	f := newFixture(t, testConfig())
	defer func() { _ = f.svc.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Optimize(ctx, RunRequest{Series: inline(6)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_FromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Sinks = nil
	svc, err := New(cfg, WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	_, ok := svc.Runs().(*runlog.MemoryStore)
	assert.True(t, ok)
	assert.NotNil(t, svc.Bus())
}
