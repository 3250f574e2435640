// Command gen-ppi writes a synthetic PPI scan of radial winds for a given
// wind profile, for demos and end-to-end testing of cmd/vad.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/windprofile/internal/ingest"
	"github.com/banshee-data/windprofile/internal/vad"
)

// layer is the wind at one height of the generating profile.
type layer struct {
	height, u, v float64
}

// parseProfile parses "height:u:v,height:u:v,..." with heights increasing.
func parseProfile(s string) ([]layer, error) {
	var out []layer
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid layer %q: want height:u:v", part)
		}
		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid layer %q: %w", part, err)
			}
			vals[i] = v
		}
		if n := len(out); n > 0 && vals[0] <= out[n-1].height {
			return nil, fmt.Errorf("layer heights must increase: %g after %g", vals[0], out[n-1].height)
		}
		out = append(out, layer{vals[0], vals[1], vals[2]})
	}
	return out, nil
}

// parseArcs parses "start:count,..." index ranges of samples to blank.
func parseArcs(s string) ([][2]int, error) {
	if s == "" {
		return nil, nil
	}
	var out [][2]int
	for _, part := range strings.Split(s, ",") {
		var start, count int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d:%d", &start, &count); err != nil {
			return nil, fmt.Errorf("invalid arc %q: want start:count", part)
		}
		out = append(out, [2]int{start, count})
	}
	return out, nil
}

type scanParams struct {
	profile   []layer
	ranges    []float64
	elevation float64
	samples   int
	noise     float64
	blank     [][2]int
	origin    float64
	direction vad.Direction
	seed      int64
}

// windAt returns the profile wind at height h, holding the end layers
// constant beyond the profile.
type windAt func(h float64) (u, v float64)

func newWindAt(profile []layer) windAt {
	if len(profile) == 1 {
		return func(float64) (float64, float64) { return profile[0].u, profile[0].v }
	}
	hs := make([]float64, len(profile))
	us := make([]float64, len(profile))
	vs := make([]float64, len(profile))
	for i, l := range profile {
		hs[i], us[i], vs[i] = l.height, l.u, l.v
	}
	var pu, pv interp.PiecewiseLinear
	// Heights are strictly increasing after parseProfile.
	_ = pu.Fit(hs, us)
	_ = pv.Fit(hs, vs)
	return func(h float64) (float64, float64) { return pu.Predict(h), pv.Predict(h) }
}

// fromCompass converts a compass azimuth into the requested convention,
// inverting vad.NormalizeAzimuth.
func fromCompass(compass, origin float64, dir vad.Direction) float64 {
	sign := -1.0
	if dir == vad.CounterClockwise {
		sign = 1
	}
	a := math.Mod((90-compass-origin)/sign, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func generate(p scanParams) []vad.Observation {
	rng := rand.New(rand.NewSource(p.seed))
	wind := newWindAt(p.profile)
	cosEl := math.Cos(p.elevation * math.Pi / 180)

	obs := make([]vad.Observation, 0, len(p.ranges)*p.samples)
	for _, r := range p.ranges {
		u, v := wind(vad.Propagate(r, p.elevation).Height)

		blank := make([]bool, p.samples)
		for _, arc := range p.blank {
			for k := 0; k < arc[1]; k++ {
				blank[((arc[0]+k)%p.samples+p.samples)%p.samples] = true
			}
		}

		for i := 0; i < p.samples; i++ {
			compass := float64(i) * 360 / float64(p.samples)
			az := compass * math.Pi / 180
			o := vad.Observation{
				Azimuth:   fromCompass(compass, p.origin, p.direction),
				Range:     r,
				Elevation: p.elevation,
			}
			if !blank[i] {
				vr := (u*math.Sin(az) + v*math.Cos(az)) * cosEl
				if p.noise > 0 {
					vr += rng.NormFloat64() * p.noise
				}
				o.RadialWind = vad.Some(vr)
			}
			obs = append(obs, o)
		}
	}
	return obs
}

func rangesFrom(min, max, step float64) ([]float64, error) {
	if !(step > 0) || max < min || min <= 0 {
		return nil, fmt.Errorf("invalid ranges: min=%g max=%g step=%g", min, max, step)
	}
	var out []float64
	for r := min; r <= max+1e-9; r += step {
		out = append(out, r)
	}
	return out, nil
}

func main() {
	profileFlag := flag.String("profile", "0:5:3,1000:12:-2", "Wind profile as height:u:v layers in m and m/s")
	rangeMin := flag.Float64("range-min", 100, "First range gate in meters")
	rangeMax := flag.Float64("range-max", 3000, "Last range gate in meters")
	rangeStep := flag.Float64("range-step", 100, "Range gate spacing in meters")
	elevation := flag.Float64("elevation", 5, "Scan elevation in degrees")
	samples := flag.Int("n", 72, "Azimuth samples per ring")
	noise := flag.Float64("noise", 0, "Gaussian radial wind noise SD in m/s")
	blankFlag := flag.String("blank", "", "Missing arcs as start:count sample indices, comma-separated")
	origin := flag.Float64("az-origin", vad.DefaultAzimuthOrigin, "Azimuth origin of the output convention")
	direction := flag.String("az-direction", string(vad.Clockwise), "Azimuth direction of the output convention (cw or ccw)")
	seed := flag.Int64("seed", 1, "Noise random seed")
	output := flag.String("o", "", "Output CSV path (defaults to stdout)")
	flag.Parse()

	profile, err := parseProfile(*profileFlag)
	if err != nil {
		log.Fatalf("gen-ppi: %v", err)
	}
	arcs, err := parseArcs(*blankFlag)
	if err != nil {
		log.Fatalf("gen-ppi: %v", err)
	}
	ranges, err := rangesFrom(*rangeMin, *rangeMax, *rangeStep)
	if err != nil {
		log.Fatalf("gen-ppi: %v", err)
	}
	dir, err := vad.ParseDirection(*direction)
	if err != nil {
		log.Fatalf("gen-ppi: %v", err)
	}
	if *samples < 3 {
		log.Fatalf("gen-ppi: need at least 3 samples per ring, got %d", *samples)
	}

	obs := generate(scanParams{
		profile:   profile,
		ranges:    ranges,
		elevation: *elevation,
		samples:   *samples,
		noise:     *noise,
		blank:     arcs,
		origin:    *origin,
		direction: dir,
		seed:      *seed,
	})

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("gen-ppi: %v", err)
		}
		defer f.Close()
		w = f
	}
	if err := ingest.WriteObservations(w, obs); err != nil {
		log.Fatalf("gen-ppi: %v", err)
	}
	if *output != "" {
		log.Printf("✓ Created: %s (%d rings, %d observations)", *output, len(ranges), len(obs))
	}
}
