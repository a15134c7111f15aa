// Package app wires configuration, scenarios, the dispatch problem and the
// search engine into runnable optimisations.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/vpp/config"
	"github.com/kilianp07/vpp/core/events"
	coremetrics "github.com/kilianp07/vpp/core/metrics"
	"github.com/kilianp07/vpp/core/model"
	coremqtt "github.com/kilianp07/vpp/core/mqtt"
	"github.com/kilianp07/vpp/core/report"
	"github.com/kilianp07/vpp/core/runlog"
	"github.com/kilianp07/vpp/core/scenario"
	"github.com/kilianp07/vpp/core/search"
	"github.com/kilianp07/vpp/core/vpp"
	"github.com/kilianp07/vpp/infra/logger"
	"github.com/kilianp07/vpp/infra/metrics"
	"github.com/kilianp07/vpp/infra/mqtt"
	"github.com/kilianp07/vpp/internal/eventbus"
)

const busBuffer = 1024

// RunRequest overrides parts of the configured run. Zero values keep the
// configuration.
type RunRequest struct {
	// Series is used as is when set; otherwise the scenario is loaded or
	// generated from the run configuration.
	Series         *model.Series `json:"series,omitempty"`
	ScenarioName   string        `json:"scenario_name,omitempty"`
	ScenarioIndex  *int          `json:"scenario_index,omitempty"`
	Seed           *int64        `json:"seed,omitempty"`
	PopulationSize int           `json:"population_size,omitempty"`
	Generations    int           `json:"generations,omitempty"`
	LPSeed         *bool         `json:"lp_seed,omitempty"`
}

// Service runs optimisations and fans their results out to the run log,
// metrics sinks and the schedule publisher.
type Service struct {
	cfg    *config.Config
	store  scenario.Store
	runs   runlog.Store
	sink   coremetrics.MetricsSink
	pub    coremqtt.Publisher
	bus    *eventbus.Bus[events.Event]
	log    logger.Logger
	now    func() time.Time
	newID  func() string
	sem    chan struct{}
	cancel context.CancelFunc
	done   <-chan struct{}

	closeOnce sync.Once
}

// Option customises a Service.
type Option func(*Service)

// WithRunLog replaces the configured run log.
func WithRunLog(s runlog.Store) Option { return func(svc *Service) { svc.runs = s } }

// WithSink replaces the configured metrics sinks.
func WithSink(s coremetrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }

// WithPublisher replaces the configured schedule publisher.
func WithPublisher(p coremqtt.Publisher) Option { return func(svc *Service) { svc.pub = p } }

// WithScenarioStore replaces the file store.
func WithScenarioStore(s scenario.Store) Option { return func(svc *Service) { svc.store = s } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(f func() string) Option { return func(svc *Service) { svc.newID = f } }

// New creates a Service from the configuration. Components not supplied
// through options are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:   cfg,
		store: scenario.NewFileStore(),
		bus:   eventbus.NewWithBuffer[events.Event](busBuffer),
		log:   logger.New("service"),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.runs == nil {
		runs, err := runlog.NewStore(cfg.Logging.RunLog())
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		s.runs = runs
	}
	if s.sink == nil {
		sink, err := coremetrics.NewRunSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		s.sink = sink
	}
	if s.pub == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT.Config)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.pub = client
	}
	n := cfg.API.MaxConcurrentRuns
	if n <= 0 {
		n = 1
	}
	s.sem = make(chan struct{}, n)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	return s, nil
}

// Bus returns the event bus carrying generation and run events.
func (s *Service) Bus() eventbus.EventBus[events.Event] { return s.bus }

// Runs returns the run log.
func (s *Service) Runs() runlog.Store { return s.runs }

// Optimize runs one optimisation and returns its schedule. A run that
// finds no feasible candidate still succeeds.
func (s *Service) Optimize(ctx context.Context, req RunRequest) (*report.Schedule, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	run := report.Run{ID: s.newID(), StartedAt: s.now()}
	sched, err := s.optimize(ctx, req, &run)
	if err != nil {
		s.fail(ctx, run, err)
		return nil, err
	}
	return sched, nil
}

func (s *Service) optimize(ctx context.Context, req RunRequest, run *report.Run) (*report.Schedule, error) {
	series, err := s.series(req)
	if err != nil {
		return nil, err
	}
	run.Scenario = series.Name

	prob, err := s.problem(series)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.Search.GA
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.PopulationSize > 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}
	run.Seed = cfg.Seed

	opts := []search.Option{
		search.WithLogger(logger.New("search")),
		search.WithBus(s.bus),
		search.WithRunID(run.ID),
	}
	lpSeed := s.cfg.Search.LPSeed
	if req.LPSeed != nil {
		lpSeed = *req.LPSeed
	}
	if lpSeed {
		if x, err := prob.Relax(); err != nil {
			s.log.Warnf("run %s: relaxation seed skipped: %v", run.ID, err)
		} else {
			opts = append(opts, search.WithSeedVectors(x))
		}
	}

	engine, err := search.NewEngine(prob, cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.RunEvent{RunID: run.ID, Scenario: run.Scenario, Status: events.RunStarted, Time: s.now()})
	s.log.Infof("run %s started on scenario %s (dim %d, seed %d)", run.ID, run.Scenario, prob.Dim(), cfg.Seed)

	res, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}
	sched, err := report.New(*run, prob, res)
	if err != nil {
		return nil, err
	}

	finished := s.now()
	if err := s.runs.Append(ctx, runlog.NewRecord(sched, finished)); err != nil {
		s.log.Errorf("run %s: run log: %v", run.ID, err)
	}
	s.bus.Publish(events.RunEvent{
		RunID:       run.ID,
		Scenario:    run.Scenario,
		Status:      events.RunFinished,
		Objective:   sched.Profit,
		Violation:   sched.TotalViolation,
		Feasible:    sched.Feasible,
		Generations: res.Generations,
		Evaluations: res.Evaluations,
		Termination: res.Termination,
		Duration:    res.Duration,
		Time:        finished,
	})
	s.log.Infof("run %s finished: profit %.3f, violation %.3g, feasible %t after %d generations (%s)",
		run.ID, sched.Profit, sched.TotalViolation, sched.Feasible, res.Generations, res.Termination)
	s.publish(sched)
	return sched, nil
}

func (s *Service) fail(ctx context.Context, run report.Run, err error) {
	s.log.Errorf("run %s failed: %v", run.ID, err)
	finished := s.now()
	// the run log must still see runs whose context was cancelled
	if aerr := s.runs.Append(context.WithoutCancel(ctx), runlog.FailedRecord(run, err, finished)); aerr != nil {
		s.log.Errorf("run %s: run log: %v", run.ID, aerr)
	}
	s.bus.Publish(events.RunEvent{RunID: run.ID, Scenario: run.Scenario, Status: events.RunFailed, Error: err.Error(), Time: finished})
}

func (s *Service) publish(sched *report.Schedule) {
	if s.pub == nil {
		return
	}
	msgID, err := s.pub.PublishSchedule(sched)
	if err != nil {
		s.log.Errorf("run %s: publish schedule: %v", sched.Run.ID, err)
		return
	}
	timeout := time.Duration(s.cfg.MQTT.AckTimeoutSeconds) * time.Second
	if timeout <= 0 {
		return
	}
	ok, err := s.pub.WaitForAck(msgID, timeout)
	switch {
	case errors.Is(err, coremqtt.ErrScheduleAckTimeout):
		s.log.Warnf("run %s: schedule %s not acknowledged within %s", sched.Run.ID, msgID, timeout)
	case err != nil:
		s.log.Errorf("run %s: wait for ack: %v", sched.Run.ID, err)
	case ok:
		s.log.Infof("run %s: schedule %s acknowledged", sched.Run.ID, msgID)
	}
}

func (s *Service) series(req RunRequest) (model.Series, error) {
	rc := s.cfg.Run
	if req.Series != nil {
		return *req.Series, nil
	}
	name, index := rc.ScenarioName, rc.ScenarioIndex
	if req.ScenarioName != "" {
		name = req.ScenarioName
	}
	if req.ScenarioIndex != nil {
		index = *req.ScenarioIndex
	}
	var all []model.Series
	if rc.Scenario != "" {
		loaded, err := s.store.Load(rc.Scenario)
		if err != nil {
			return model.Series{}, err
		}
		all = loaded
	} else {
		dims := s.cfg.Plant.Dims(rc.Start + rc.Nt)
		generated, err := scenario.Generate(index+1, dims, rc.GeneratorSeed)
		if err != nil {
			return model.Series{}, err
		}
		all = generated
	}
	return scenario.Select(all, name, index)
}

// problem windows and scales series and binds it to the configured plant.
func (s *Service) problem(series model.Series) (*vpp.Problem, error) {
	rc := s.cfg.Run
	if series.Horizon() != rc.Nt || rc.Start != 0 {
		w, err := series.Window(rc.Start, rc.Nt)
		if err != nil {
			return nil, err
		}
		series = w
	}
	series = series.Scale(rc.CapPV, rc.CapWT, rc.CapLoad)
	params := s.cfg.Plant.ParameterSet
	sc, err := model.NewScenarioContext(series, params.Dims(rc.Nt), rc.Delta)
	if err != nil {
		return nil, err
	}
	return vpp.NewProblem(params, sc, s.cfg.Search.Problem)
}

// Close stops the metrics collector and releases the run log, sinks and
// publisher.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		// closing the bus lets the collector drain queued events first
		s.bus.Close()
		<-s.done
		s.cancel()
		if f, ok := s.sink.(coremetrics.Flusher); ok {
			errs = append(errs, f.Flush())
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		if c, ok := s.pub.(interface{ Disconnect() }); ok {
			c.Disconnect()
		}
		errs = append(errs, s.runs.Close())
	})
	return errors.Join(errs...)
}
