// Package runlog keeps a history of optimisation runs.
package runlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/vpp/core/factory"
	"github.com/kilianp07/vpp/core/report"
	"github.com/kilianp07/vpp/core/vpp"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Record is the persisted summary of one run.
type Record struct {
	ID          string                 `json:"id"`
	Scenario    string                 `json:"scenario"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	Seed        int64                  `json:"seed"`
	Profit      float64                `json:"profit"`
	Violation   float64                `json:"violation"`
	Feasible    bool                   `json:"feasible"`
	Generations int                    `json:"generations"`
	Evaluations int                    `json:"evaluations"`
	Termination string                 `json:"termination,omitempty"`
	Breakdown   vpp.ObjectiveBreakdown `json:"breakdown"`
	Error       string                 `json:"error,omitempty"`
}

// NewRecord summarises a finished schedule.
func NewRecord(s *report.Schedule, finished time.Time) Record {
	return Record{
		ID:          s.Run.ID,
		Scenario:    s.Run.Scenario,
		Status:      StatusFinished,
		StartedAt:   s.Run.StartedAt,
		FinishedAt:  finished,
		Seed:        s.Run.Seed,
		Profit:      s.Profit,
		Violation:   s.TotalViolation,
		Feasible:    s.Feasible,
		Generations: s.Run.Generations,
		Evaluations: s.Run.Evaluations,
		Termination: s.Run.Termination,
		Breakdown:   s.Breakdown,
	}
}

// FailedRecord records a run that ended with err.
func FailedRecord(run report.Run, err error, finished time.Time) Record {
	return Record{
		ID:         run.ID,
		Scenario:   run.Scenario,
		Status:     StatusFailed,
		StartedAt:  run.StartedAt,
		FinishedAt: finished,
		Seed:       run.Seed,
		Error:      err.Error(),
	}
}

// Query defines filters for retrieving records. Zero values match all.
type Query struct {
	Start        time.Time
	End          time.Time
	Scenario     string
	Status       string
	FeasibleOnly bool
	// Limit keeps the most recent records only.
	Limit int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.StartedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.StartedAt.After(q.End) {
		return false
	}
	if q.Scenario != "" && r.Scenario != q.Scenario {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return !q.FeasibleOnly || r.Feasible
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Close() error
}

var registry = factory.NewRegistry[Store]()

func init() {
	_ = registry.Register("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
	_ = registry.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("jsonl run log requires a path")
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = registry.Register("redis", func(conf map[string]any) (Store, error) {
		var c struct {
			DSN    string `json:"dsn"`
			Prefix string `json:"prefix"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := NewRedisStore(ctx, c.DSN, c.Prefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = registry.Register("postgres", func(conf map[string]any) (Store, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := NewPostgresStore(ctx, c.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

const connectTimeout = 10 * time.Second

// NewStore creates the run log described by cfg. An empty type yields an
// in-memory store.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}
