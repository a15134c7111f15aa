// Package export writes dispatch schedules in formats consumed outside the
// optimiser.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/vpp/core/report"
)

// WriteJSON writes the full schedule to w as indented JSON.
func WriteJSON(w io.Writer, s *report.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

var csvHeader = []string{
	"t", "load", "solar", "wind", "export", "import", "biomass", "biomass_on",
	"charge", "discharge", "soc", "dispatchable", "price_export", "price_import",
}

// WriteCSV writes one row per time step with aggregated columns.
func WriteCSV(w io.Writer, s *report.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, st := range s.Steps {
		rec := []string{
			strconv.Itoa(st.T),
			f(st.Load), f(st.Solar), f(st.Wind),
			f(st.Export), f(st.Import),
			f(st.Biomass), strconv.Itoa(st.BiomassOn),
			f(st.Charge), f(st.Discharge), f(st.Soc),
			f(st.Dispatchable),
			f(st.PriceExport), f(st.PriceImport),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
