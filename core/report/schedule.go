// Package report turns the best decision vector of a run into a dispatch
// schedule that can be exported or published.
package report

import (
	"time"

	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/core/search"
	"github.com/kilianp07/vpp/core/vpp"
)

// Run carries the metadata of the optimisation that produced a schedule.
type Run struct {
	ID          string        `json:"id"`
	Scenario    string        `json:"scenario"`
	Seed        int64         `json:"seed"`
	Generations int           `json:"generations"`
	Evaluations int           `json:"evaluations"`
	Termination string        `json:"termination"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time     `json:"started_at"`
}

// Step aggregates the decisions and inputs of one time step.
type Step struct {
	T            int     `json:"t"`
	Load         float64 `json:"load"`
	Solar        float64 `json:"solar"`
	Wind         float64 `json:"wind"`
	Export       float64 `json:"export"`
	Import       float64 `json:"import"`
	Biomass      float64 `json:"biomass"`
	BiomassOn    int     `json:"biomass_on"`
	Charge       float64 `json:"charge"`
	Discharge    float64 `json:"discharge"`
	Soc          float64 `json:"soc"`
	Dispatchable float64 `json:"dispatchable"`
	PriceExport  float64 `json:"price_export"`
	PriceImport  float64 `json:"price_import"`
}

// Schedule is the full result of a run.
type Schedule struct {
	Run            Run                    `json:"run"`
	Dims           model.Dims             `json:"dims"`
	Profit         float64                `json:"profit"`
	Breakdown      vpp.ObjectiveBreakdown `json:"breakdown"`
	Violation      map[string]float64     `json:"violation"`
	TotalViolation float64                `json:"total_violation"`
	Feasible       bool                   `json:"feasible"`
	Steps          []Step                 `json:"steps"`
	Variables      *vpp.Variables         `json:"variables"`
}

// New evaluates the best candidate of res against prob and builds the
// schedule. Fields of run that the result knows are filled from it.
func New(run Run, prob *vpp.Problem, res *search.Result) (*Schedule, error) {
	sol, err := prob.Solve(res.Best)
	if err != nil {
		return nil, err
	}
	run.Generations = res.Generations
	run.Evaluations = res.Evaluations
	run.Termination = res.Termination
	run.Duration = res.Duration
	if run.Scenario == "" {
		run.Scenario = prob.Scenario().Name
	}
	s := &Schedule{
		Run:            run,
		Dims:           prob.Layout().Dims,
		Profit:         sol.Profit,
		Breakdown:      sol.Breakdown,
		Violation:      sol.Violation,
		TotalViolation: sol.TotalViolation,
		Feasible:       sol.Feasible,
		Variables:      sol.Variables,
	}
	s.Steps = steps(prob.Scenario(), sol.Variables)
	return s, nil
}

func steps(sc model.ScenarioContext, v *vpp.Variables) []Step {
	out := make([]Step, sc.Horizon())
	for t := range out {
		on := 0
		for i := 0; i < v.UBm.Rows; i++ {
			if v.UBm.At(i, t) > 0.5 {
				on++
			}
		}
		out[t] = Step{
			T:            t,
			Load:         sc.PL.ColSum(t),
			Solar:        sc.PPV.ColSum(t),
			Wind:         sc.PWT.ColSum(t),
			Export:       v.PExp.Data[t],
			Import:       v.PImp.Data[t],
			Biomass:      v.PBm.ColSum(t),
			BiomassOn:    on,
			Charge:       v.PChg.ColSum(t),
			Discharge:    v.PDch.ColSum(t),
			Soc:          v.Soc.ColSum(t),
			Dispatchable: v.PDl.ColSum(t),
			PriceExport:  sc.TauPLD[t],
			PriceImport:  sc.TauDist[t],
		}
	}
	return out
}
