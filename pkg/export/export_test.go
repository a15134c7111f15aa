package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/kilianp07/vpp/core/report"
)

func sample() *report.Schedule {
	return &report.Schedule{
		Run:      report.Run{ID: "r1", Scenario: "s"},
		Profit:   4.25,
		Feasible: true,
		Steps: []report.Step{
			{T: 0, Load: 0.6, Export: 0.1, BiomassOn: 1, PriceExport: 1},
			{T: 1, Load: 0.5, Import: 0.2, Soc: 0.75, PriceImport: 0.5},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got report.Schedule
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Run.ID != "r1" || got.Profit != 4.25 || len(got.Steps) != 2 {
		t.Fatalf("unexpected schedule %+v", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("rows %d", len(recs))
	}
	if recs[0][0] != "t" || len(recs[0]) != len(recs[1]) {
		t.Fatalf("header %v", recs[0])
	}
	if recs[1][1] != "0.6" || recs[1][7] != "1" || recs[2][5] != "0.2" || recs[2][10] != "0.75" {
		t.Fatalf("rows %v", recs[1:])
	}
}
