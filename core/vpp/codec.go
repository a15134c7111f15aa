package vpp

import (
	"fmt"

	"github.com/kilianp07/vpp/core/model"
)

// ErrConfig is returned for every configuration error detected before a
// search starts.
var ErrConfig = model.ErrConfig

// Span locates one named variable block inside the decision vector.
// Element (i, t) lives at Offset + i*Cols + t.
type Span struct {
	Name   string
	Offset int
	Rows   int
	Cols   int
	Binary bool
}

// Len returns the number of entries covered by the span.
func (s Span) Len() int { return s.Rows * s.Cols }

// End returns the offset one past the last entry.
func (s Span) End() int { return s.Offset + s.Len() }

// Index returns the vector index of element (i, t).
func (s Span) Index(i, t int) int { return s.Offset + i*s.Cols + t }

// Layout is the fixed partition of a decision vector for given dimensions.
// The real block comes first, followed by the binary block. Encoding,
// decoding and bounds all go through the same Layout.
type Layout struct {
	Dims model.Dims

	PExp, PImp, PBm, GammaBm, PChg, PDch, Soc, PDl Span
	UExp, UImp, UBm, UChg, UDch, UDl               Span

	// Nr and Ni are the sizes of the real and binary blocks.
	Nr, Ni int
}

// NewLayout computes block offsets for d.
func NewLayout(d model.Dims) (Layout, error) {
	if err := d.Validate(); err != nil {
		return Layout{}, err
	}
	l := Layout{Dims: d}
	off := 0
	next := func(name string, rows int, binary bool) Span {
		s := Span{Name: name, Offset: off, Rows: rows, Cols: d.Nt, Binary: binary}
		off += s.Len()
		return s
	}
	l.PExp = next("p_exp", 1, false)
	l.PImp = next("p_imp", 1, false)
	l.PBm = next("p_bm", d.Nbm, false)
	l.GammaBm = next("gamma_bm", d.Nbm, false)
	l.PChg = next("p_chg", d.Nbat, false)
	l.PDch = next("p_dch", d.Nbat, false)
	l.Soc = next("soc", d.Nbat, false)
	l.PDl = next("p_dl", d.Ndl, false)
	l.Nr = off
	l.UExp = next("u_exp", 1, true)
	l.UImp = next("u_imp", 1, true)
	l.UBm = next("u_bm", d.Nbm, true)
	l.UChg = next("u_chg", d.Nbat, true)
	l.UDch = next("u_dch", d.Nbat, true)
	l.UDl = next("u_dl", d.Ndl, true)
	l.Ni = off - l.Nr
	return l, nil
}

// Len returns Nr+Ni.
func (l Layout) Len() int { return l.Nr + l.Ni }

// Spans returns every block in vector order.
func (l Layout) Spans() []Span {
	return []Span{
		l.PExp, l.PImp, l.PBm, l.GammaBm, l.PChg, l.PDch, l.Soc, l.PDl,
		l.UExp, l.UImp, l.UBm, l.UChg, l.UDch, l.UDl,
	}
}

// Locate maps a vector index back to its block name and (i, t) position.
func (l Layout) Locate(k int) (name string, i, t int) {
	for _, s := range l.Spans() {
		if k >= s.Offset && k < s.End() {
			r := k - s.Offset
			return s.Name, r / s.Cols, r % s.Cols
		}
	}
	return "", -1, -1
}

// BinaryMask reports, for every vector index, whether it belongs to the
// binary block.
func (l Layout) BinaryMask() []bool {
	mask := make([]bool, l.Len())
	for k := l.Nr; k < len(mask); k++ {
		mask[k] = true
	}
	return mask
}

// Variables is a decoded decision vector. Single-series variables are
// blocks with one row.
type Variables struct {
	PExp    model.Block `json:"p_exp"`
	PImp    model.Block `json:"p_imp"`
	PBm     model.Block `json:"p_bm"`
	GammaBm model.Block `json:"gamma_bm"`
	PChg    model.Block `json:"p_chg"`
	PDch    model.Block `json:"p_dch"`
	Soc     model.Block `json:"soc"`
	PDl     model.Block `json:"p_dl"`
	UExp    model.Block `json:"u_exp"`
	UImp    model.Block `json:"u_imp"`
	UBm     model.Block `json:"u_bm"`
	UChg    model.Block `json:"u_chg"`
	UDch    model.Block `json:"u_dch"`
	UDl     model.Block `json:"u_dl"`
}

// blocks returns pointers to the fields in the order of Layout.Spans.
func (v *Variables) blocks() []*model.Block {
	return []*model.Block{
		&v.PExp, &v.PImp, &v.PBm, &v.GammaBm, &v.PChg, &v.PDch, &v.Soc, &v.PDl,
		&v.UExp, &v.UImp, &v.UBm, &v.UChg, &v.UDch, &v.UDl,
	}
}

// NewVariables returns zeroed variables shaped for l.
func (l Layout) NewVariables() *Variables {
	v := &Variables{}
	dst := v.blocks()
	for k, s := range l.Spans() {
		*dst[k] = model.NewBlock(s.Rows, s.Cols)
	}
	return v
}

// Clone returns a deep copy.
func (v *Variables) Clone() *Variables {
	c := &Variables{}
	dst := c.blocks()
	for k, b := range v.blocks() {
		*dst[k] = b.Clone()
	}
	return c
}

// Equal reports whether both sets are bit-identical.
func (v *Variables) Equal(o *Variables) bool {
	a, b := v.blocks(), o.blocks()
	for k := range a {
		if !a[k].Equal(*b[k]) {
			return false
		}
	}
	return true
}

// Decode splits x into named blocks and thresholds the binary block.
func (l Layout) Decode(x []float64) (*Variables, error) {
	return l.decode(x, true)
}

// DecodeRaw splits x without thresholding the binary block. Evaluators
// must not be fed its output during a search.
func (l Layout) DecodeRaw(x []float64) (*Variables, error) {
	return l.decode(x, false)
}

func (l Layout) decode(x []float64, threshold bool) (*Variables, error) {
	if len(x) != l.Len() {
		return nil, fmt.Errorf("%w: decision vector has %d entries, want %d (%d real + %d binary)",
			ErrConfig, len(x), l.Len(), l.Nr, l.Ni)
	}
	v := &Variables{}
	dst := v.blocks()
	for k, s := range l.Spans() {
		b := model.NewBlock(s.Rows, s.Cols)
		src := x[s.Offset:s.End()]
		if threshold && s.Binary {
			for j, xv := range src {
				b.Data[j] = threshold05(xv)
			}
		} else {
			copy(b.Data, src)
		}
		*dst[k] = b
	}
	return v, nil
}

// Encode flattens v into a decision vector. It is the exact inverse of
// Decode for variables whose binary blocks hold 0 or 1.
func (l Layout) Encode(v *Variables) ([]float64, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil variables", ErrConfig)
	}
	x := make([]float64, l.Len())
	src := v.blocks()
	for k, s := range l.Spans() {
		b := src[k]
		if b.Rows != s.Rows || b.Cols != s.Cols || len(b.Data) != s.Len() {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrConfig, s.Name, b.Rows, b.Cols, s.Rows, s.Cols)
		}
		copy(x[s.Offset:s.End()], b.Data)
	}
	return x, nil
}

// Binarize maps every entry to 1 when it is above 0.5 and to 0 otherwise.
func Binarize(x []float64) []float64 {
	out := make([]float64, len(x))
	for k, v := range x {
		out[k] = threshold05(v)
	}
	return out
}

func threshold05(v float64) float64 {
	if v > 0.5 {
		return 1
	}
	return 0
}
