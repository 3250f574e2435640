package vad

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinRingSamples is the fewest valid samples that can determine the three
// fit parameters (offset, sine and cosine amplitude).
const MinRingSamples = 3

// MinRingVariance is the radial-wind variance (m²/s²) below which R² is
// undefined rather than the ratio of two vanishing sums.
const MinRingVariance = 1e-10

// FitResult holds the sinusoidal fit of one ring.
type FitResult struct {
	U    NullFloat // zonal wind, m/s
	V    NullFloat // meridional wind, m/s
	R2   NullFloat
	RMSE NullFloat // standard deviation of residuals, m/s

	// Offset is the fitted azimuth-mean radial wind.
	Offset   NullFloat
	Samples  int // valid samples in the final fit
	Outliers int // samples removed by the outlier pass
}

// Defined reports whether the fit produced wind components.
func (f FitResult) Defined() bool { return f.U.Valid && f.V.Valid }

// RingFit fits radialWind ≈ a + b·sin(az) + c·cos(az) by least squares
// over the valid (non-NaN) samples and returns the horizontal wind
// u = b/cos(el), v = c/cos(el). Azimuths are degrees clockwise from north.
//
// When outlierThreshold is finite, samples whose residual exceeds that many
// residual standard deviations are dropped and the ring is refitted once.
func RingFit(radialWind, azimuth []float64, elevationDeg, outlierThreshold float64) FitResult {
	vr := make([]float64, len(radialWind))
	copy(vr, radialWind)

	res, residuals := fitOnce(vr, azimuth, elevationDeg)
	if !res.RMSE.Valid {
		return res
	}
	// Residual spread at rounding level means an exact fit with nothing to reject.
	if math.IsInf(outlierThreshold, 1) || math.IsNaN(outlierThreshold) || res.RMSE.Float64 < math.Sqrt(MinRingVariance) {
		return res
	}

	limit := outlierThreshold * res.RMSE.Float64
	removed := 0
	for i, r := range residuals {
		if !math.IsNaN(r) && math.Abs(r) > limit {
			vr[i] = math.NaN()
			removed++
		}
	}
	if removed == 0 {
		return res
	}

	refit, _ := fitOnce(vr, azimuth, elevationDeg)
	refit.Outliers = removed
	return refit
}

// fitOnce performs a single least-squares fit. residuals has the input
// length, NaN where the sample was not used.
func fitOnce(radialWind, azimuth []float64, elevationDeg float64) (FitResult, []float64) {
	residuals := make([]float64, len(radialWind))
	idx := make([]int, 0, len(radialWind))
	for i := range radialWind {
		residuals[i] = math.NaN()
		if valid(radialWind, azimuth, i) {
			idx = append(idx, i)
		}
	}

	n := len(idx)
	res := FitResult{Samples: n}
	if n < MinRingSamples || distinctAzimuths(azimuth, idx) < MinRingSamples {
		return res, residuals
	}

	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for row, i := range idx {
		x.Set(row, 0, 1)
		x.Set(row, 1, sinDeg(azimuth[i]))
		x.Set(row, 2, cosDeg(azimuth[i]))
		y[row] = radialWind[i]
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(n, y)); err != nil {
		// Ill-conditioned: azimuths too clustered to separate sine from cosine.
		return res, residuals
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	estimates := fitted.RawVector().Data

	resid := make([]float64, n)
	floats.SubTo(resid, estimates, y)
	for row, i := range idx {
		residuals[i] = resid[row]
	}

	a, b, c := beta.AtVec(0), beta.AtVec(1), beta.AtVec(2)
	res.Offset = Some(a)
	if cosEl := cosDeg(elevationDeg); cosEl != 0 {
		res.U = Some(b / cosEl)
		res.V = Some(c / cosEl)
	}
	res.RMSE = Some(stat.StdDev(resid, nil))
	if stat.Variance(y, nil) >= MinRingVariance {
		res.R2 = Some(clamp01(stat.RSquaredFrom(estimates, y, nil)))
	}
	return res, residuals
}

// distinctAzimuths counts the distinct directions among the used samples.
// Three distinct points on the circle make the design matrix full rank.
func distinctAzimuths(azimuth []float64, idx []int) int {
	seen := make(map[float64]struct{}, len(idx))
	for _, i := range idx {
		seen[wrap360(azimuth[i])] = struct{}{}
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
