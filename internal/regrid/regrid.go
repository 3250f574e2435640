// Package regrid resamples a ring-by-ring VAD profile onto regular heights.
package regrid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/windprofile/internal/vad"
)

// Level is the interpolated wind at one grid height.
type Level struct {
	Height float64       `json:"height"`
	U      vad.NullFloat `json:"u"`
	V      vad.NullFloat `json:"v"`
}

// Heights returns min, min+step, ... up to and including max (within
// half a step of rounding).
func Heights(min, max, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("regrid step must be positive, got %v", step)
	}
	if math.IsNaN(min) || math.IsNaN(max) || max < min {
		return nil, fmt.Errorf("invalid regrid span [%v, %v]", min, max)
	}
	n := int(math.Floor((max-min)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	return out, nil
}

// Span returns the lowest and highest heights of accepted rows.
func Span(rows []vad.Row) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		if !r.Accepted() {
			continue
		}
		lo = math.Min(lo, r.Height)
		hi = math.Max(hi, r.Height)
		ok = true
	}
	return lo, hi, ok
}

// Regrid linearly interpolates u and v from the accepted rows onto heights.
// Rows sharing a height are averaged first. Heights outside the span of
// accepted rows, or any height when fewer than two distinct accepted heights
// exist, are undefined.
func Regrid(rows []vad.Row, heights []float64) []Level {
	xs, us, vs := collapse(rows)

	levels := make([]Level, len(heights))
	for i, h := range heights {
		levels[i].Height = h
	}
	if len(xs) < 2 {
		return levels
	}

	var pu, pv interp.PiecewiseLinear
	if err := pu.Fit(xs, us); err != nil {
		return levels
	}
	if err := pv.Fit(xs, vs); err != nil {
		return levels
	}

	lo, hi := xs[0], xs[len(xs)-1]
	for i, h := range heights {
		if math.IsNaN(h) || h < lo || h > hi {
			continue
		}
		levels[i].U = vad.Some(pu.Predict(h))
		levels[i].V = vad.Some(pv.Predict(h))
	}
	return levels
}

// collapse returns accepted rows sorted by strictly increasing height,
// averaging wind components that share a height.
func collapse(rows []vad.Row) (xs, us, vs []float64) {
	type acc struct {
		u, v float64
		n    int
	}
	byHeight := make(map[float64]*acc)
	for _, r := range rows {
		if !r.Accepted() || math.IsNaN(r.Height) {
			continue
		}
		a, ok := byHeight[r.Height]
		if !ok {
			a = &acc{}
			byHeight[r.Height] = a
			xs = append(xs, r.Height)
		}
		a.u += r.U.Float64
		a.v += r.V.Float64
		a.n++
	}
	sort.Float64s(xs)

	us = make([]float64, len(xs))
	vs = make([]float64, len(xs))
	for i, x := range xs {
		a := byHeight[x]
		us[i] = a.u / float64(a.n)
		vs[i] = a.v / float64(a.n)
	}
	return xs, us, vs
}
