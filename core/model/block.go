package model

import (
	"fmt"
	"math"
)

// Block is a dense row-major matrix of Rows assets by Cols time steps.
// Element (i, t) is stored at Data[i*Cols+t]. A block with zero rows is
// valid and holds no data.
type Block struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewBlock allocates a zeroed block.
func NewBlock(rows, cols int) Block {
	return Block{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// BlockFromRows copies a slice of rows into a block. Every row must have
// exactly cols entries.
func BlockFromRows(name string, rows [][]float64, cols int) (Block, error) {
	b := NewBlock(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return Block{}, fmt.Errorf("%w: %s row %d has %d entries, want %d", ErrConfig, name, i, len(r), cols)
		}
		for t, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Block{}, fmt.Errorf("%w: %s[%d,%d] is not finite", ErrConfig, name, i, t)
			}
		}
		copy(b.Row(i), r)
	}
	return b, nil
}

// At returns element (i, t).
func (b Block) At(i, t int) float64 { return b.Data[i*b.Cols+t] }

// Set assigns element (i, t).
func (b Block) Set(i, t int, v float64) { b.Data[i*b.Cols+t] = v }

// Row returns a view of row i.
func (b Block) Row(i int) []float64 { return b.Data[i*b.Cols : (i+1)*b.Cols] }

// ColSum sums column t over all rows.
func (b Block) ColSum(t int) float64 {
	var s float64
	for i := 0; i < b.Rows; i++ {
		s += b.Data[i*b.Cols+t]
	}
	return s
}

// ColSums returns the per-time-step totals.
func (b Block) ColSums() []float64 {
	out := make([]float64, b.Cols)
	for t := range out {
		out[t] = b.ColSum(t)
	}
	return out
}

// Clone returns a deep copy.
func (b Block) Clone() Block {
	c := Block{Rows: b.Rows, Cols: b.Cols, Data: make([]float64, len(b.Data))}
	copy(c.Data, b.Data)
	return c
}

// Equal reports whether both blocks have the same shape and bit-identical data.
func (b Block) Equal(o Block) bool {
	if b.Rows != o.Rows || b.Cols != o.Cols || len(b.Data) != len(o.Data) {
		return false
	}
	for k := range b.Data {
		if math.Float64bits(b.Data[k]) != math.Float64bits(o.Data[k]) {
			return false
		}
	}
	return true
}
