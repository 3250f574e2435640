package vad

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/windprofile/internal/monitoring"
)

// Ring is one (range, elevation) group of observations.
type Ring struct {
	Range     float64
	Elevation float64
	Index     []int // positions of the member observations in the input
}

type ringKey struct {
	rng, el float64
}

// GroupRings partitions observations by identical (range, elevation) in a
// single pass. Rings are returned in order of first appearance.
func GroupRings(ranges, elevations []float64) []Ring {
	pos := make(map[ringKey]int)
	var rings []Ring
	for i := range ranges {
		k := ringKey{ranges[i], elevations[i]}
		j, ok := pos[k]
		if !ok {
			j = len(rings)
			pos[k] = j
			rings = append(rings, Ring{Range: ranges[i], Elevation: elevations[i]})
		}
		rings[j].Index = append(rings[j].Index, i)
	}
	return rings
}

// NormalizeAzimuth converts an input azimuth into degrees clockwise from
// north, given the input's origin (degrees counter-clockwise from the
// mathematical x axis) and direction.
func NormalizeAzimuth(azimuth, origin float64, dir Direction) float64 {
	sign, _ := dir.sign()
	return 90 - (origin + sign*azimuth)
}

// Fit runs the VAD pipeline over a set of observations and returns one row
// per distinct (range, elevation), in order of first appearance.
func Fit(ctx context.Context, obs []Observation, cfg Config) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	radialWind := make([]float64, len(obs))
	azimuth := make([]float64, len(obs))
	ranges := make([]float64, len(obs))
	elevations := make([]float64, len(obs))
	for i, o := range obs {
		radialWind[i] = o.RadialWind.NaN()
		azimuth[i] = o.Azimuth
		ranges[i] = o.Range
		elevations[i] = o.Elevation
	}
	return fitValidated(ctx, radialWind, azimuth, ranges, elevations, cfg)
}

// FitArrays is Fit over parallel arrays. Missing radial winds are NaN.
func FitArrays(ctx context.Context, radialWind, azimuth, ranges, elevations []float64, cfg Config) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(radialWind)
	if len(azimuth) != n || len(ranges) != n || len(elevations) != n {
		return nil, &ConfigError{
			Field: "input",
			Value: fmt.Sprintf("radial_wind=%d azimuth=%d range=%d elevation=%d", n, len(azimuth), len(ranges), len(elevations)),
			Err:   ErrLengthMismatch,
		}
	}
	return fitValidated(ctx, radialWind, azimuth, ranges, elevations, cfg)
}

func fitValidated(ctx context.Context, radialWind, azimuth, ranges, elevations []float64, cfg Config) ([]Row, error) {
	az := make([]float64, len(azimuth))
	for i, a := range azimuth {
		az[i] = NormalizeAzimuth(a, cfg.AzimuthOrigin, cfg.AzimuthDirection)
	}

	rings := GroupRings(ranges, elevations)
	rows := make([]Row, len(rings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i, ring := range rings {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = evaluateRing(ring, radialWind, az, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	// Rings skipped after cancellation leave no error from the group.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}

	ApplyR2Gate(rows, cfg.R2Min)
	logSummary(rows)
	return rows, nil
}

// evaluateRing runs QC, fit and geometry for one ring.
func evaluateRing(ring Ring, radialWind, azimuth []float64, cfg Config) Row {
	vr := make([]float64, len(ring.Index))
	az := make([]float64, len(ring.Index))
	for j, i := range ring.Index {
		vr[j] = radialWind[i]
		az[j] = azimuth[i]
	}

	beam := Propagate(ring.Range, ring.Elevation)
	row := Row{
		Height:    beam.Height,
		Range:     ring.Range,
		Elevation: ring.Elevation,
	}

	checked, report := RingQCReport(vr, az, cfg.MaxNA, cfg.MaxGap)
	if report.Status != RingAccepted {
		row.Status = report.Status
		monitoring.Debugf("vad: ring range=%g el=%g %s (missing=%.2f gap=%.1f)",
			ring.Range, ring.Elevation, report.Status, report.MissingFraction, report.MaxGap)
		return row
	}

	fit := RingFit(checked, az, ring.Elevation, cfg.OutlierThreshold)
	row.Samples = fit.Samples
	if !fit.Defined() {
		row.Status = RingInsufficient
		return row
	}
	row.U, row.V, row.R2, row.RMSE = fit.U, fit.V, fit.R2, fit.RMSE
	if fit.Outliers > 0 {
		monitoring.Debugf("vad: ring range=%g el=%g dropped %d outliers", ring.Range, ring.Elevation, fit.Outliers)
	}
	return row
}

// ApplyR2Gate clears the wind fields of rows whose R² is undefined or below
// r2Min. Geometry is left untouched. Lowering r2Min never rejects a row that
// a higher r2Min accepted.
func ApplyR2Gate(rows []Row, r2Min float64) {
	for i := range rows {
		r := &rows[i]
		if r.Status != RingAccepted {
			continue
		}
		if r.R2.Valid && !(r.R2.Float64 < r2Min) {
			continue
		}
		r.U, r.V, r.R2, r.RMSE = None(), None(), None(), None()
		r.Status = RingLowR2
	}
}

func logSummary(rows []Row) {
	counts := make(map[RingStatus]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	monitoring.Logf("vad: %d rings, %d accepted, coverage=%d gap=%d insufficient=%d low_r2=%d",
		len(rows), counts[RingAccepted], counts[RingRejectedCoverage], counts[RingRejectedGap],
		counts[RingInsufficient], counts[RingLowR2])
}

// SpeedDirection converts wind components into speed and the meteorological
// direction the wind blows from, in degrees clockwise from north.
func SpeedDirection(u, v float64) (speed, direction float64) {
	speed = math.Hypot(u, v)
	direction = wrap360(rad2deg(math.Atan2(u, v)) + 180)
	return speed, direction
}
