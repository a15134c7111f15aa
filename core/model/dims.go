package model

import "fmt"

// Dims holds the sizes of a dispatch problem. They are fixed for a run.
type Dims struct {
	Nt   int `json:"nt"`   // time steps
	Nbm  int `json:"nbm"`  // biomass units
	Npv  int `json:"npv"`  // solar plants
	Nwt  int `json:"nwt"`  // wind plants
	Nbat int `json:"nbat"` // storage units
	Ndl  int `json:"ndl"`  // dispatchable loads
	Nl   int `json:"nl"`   // non-dispatchable loads
}

// Validate checks that the horizon is positive and every count non-negative.
func (d Dims) Validate() error {
	if d.Nt <= 0 {
		return fmt.Errorf("%w: nt must be positive, got %d", ErrConfig, d.Nt)
	}
	counts := map[string]int{"nbm": d.Nbm, "npv": d.Npv, "nwt": d.Nwt, "nbat": d.Nbat, "ndl": d.Ndl, "nl": d.Nl}
	for name, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrConfig, name, n)
		}
	}
	return nil
}
