package events

import "time"

// Event is implemented by every event published on the bus.
type Event interface {
	RunKey() string
}

// GenerationEvent is published by the search engine after every generation.
type GenerationEvent struct {
	RunID         string
	Generation    int
	Evaluations   int
	Feasible      int
	BestFitness   float64
	BestObjective float64
	BestViolation float64
	MeanFitness   float64
	StdFitness    float64
	Time          time.Time
}

func (e GenerationEvent) RunKey() string { return e.RunID }

// RunStatus is the lifecycle state carried by a RunEvent.
type RunStatus string

const (
	RunStarted  RunStatus = "started"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// RunEvent reports a change in a run's lifecycle. Result fields are only
// set when Status is RunFinished.
type RunEvent struct {
	RunID       string
	Scenario    string
	Status      RunStatus
	Objective   float64
	Violation   float64
	Feasible    bool
	Generations int
	Evaluations int
	Termination string
	Duration    time.Duration
	Error       string
	Time        time.Time
}

func (e RunEvent) RunKey() string { return e.RunID }
