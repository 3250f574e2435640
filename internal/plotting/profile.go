// Package plotting renders wind profiles as static images.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/windprofile/internal/regrid"
	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

// ErrNoData is returned when neither rows nor levels hold a defined wind.
var ErrNoData = errors.New("no defined wind values to plot")

// Profile image size.
const (
	Width  = 8 * vg.Inch
	Height = 10 * vg.Inch
)

var (
	colorU = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorV = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// NewProfilePlot builds a u/v versus height plot. Accepted rings are drawn as
// points; defined levels, if any, as lines broken at undefined heights.
func NewProfilePlot(rows []vad.Row, levels []regrid.Level, unit string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "VAD wind profile"
	p.X.Label.Text = fmt.Sprintf("Wind component (%s)", units.Label(unit))
	p.Y.Label.Text = "Height (m)"
	p.Add(plotter.NewGrid())

	var uPts, vPts plotter.XYs
	for _, r := range rows {
		if !r.Accepted() {
			continue
		}
		uPts = append(uPts, plotter.XY{X: units.ConvertSpeed(r.U.Float64, unit), Y: r.Height})
		vPts = append(vPts, plotter.XY{X: units.ConvertSpeed(r.V.Float64, unit), Y: r.Height})
	}

	uSegs := levelSegments(levels, unit, func(l regrid.Level) vad.NullFloat { return l.U })
	vSegs := levelSegments(levels, unit, func(l regrid.Level) vad.NullFloat { return l.V })

	if len(uPts) == 0 && len(uSegs) == 0 {
		return nil, ErrNoData
	}

	for _, s := range []struct {
		label string
		pts   plotter.XYs
		segs  []plotter.XYs
		c     color.Color
		shape draw.GlyphDrawer
	}{
		{"u", uPts, uSegs, colorU, draw.CircleGlyph{}},
		{"v", vPts, vSegs, colorV, draw.TriangleGlyph{}},
	} {
		if len(s.pts) > 0 {
			sc, err := plotter.NewScatter(s.pts)
			if err != nil {
				return nil, err
			}
			sc.GlyphStyle.Color = s.c
			sc.GlyphStyle.Shape = s.shape
			sc.GlyphStyle.Radius = vg.Points(3)
			p.Add(sc)
			p.Legend.Add(s.label+" (ring)", sc)
		}
		for i, seg := range s.segs {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, err
			}
			line.Color = s.c
			line.Width = vg.Points(1.5)
			p.Add(line)
			if i == 0 {
				p.Legend.Add(s.label+" (regridded)", line)
			}
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// levelSegments splits levels into runs of consecutive defined values.
func levelSegments(levels []regrid.Level, unit string, pick func(regrid.Level) vad.NullFloat) []plotter.XYs {
	var segs []plotter.XYs
	var cur plotter.XYs
	for _, l := range levels {
		v := pick(l)
		if !v.Valid {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: units.ConvertSpeed(v.Float64, unit), Y: l.Height})
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

// WriteProfile renders the profile to w in the given format ("png", "svg",
// "pdf", ...).
func WriteProfile(w io.Writer, rows []vad.Row, levels []regrid.Level, unit, format string) error {
	p, err := NewProfilePlot(rows, levels, unit)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("create %s writer: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write profile plot: %w", err)
	}
	return nil
}

// SaveProfile renders the profile to path; the extension selects the format.
func SaveProfile(rows []vad.Row, levels []regrid.Level, path, unit string) error {
	p, err := NewProfilePlot(rows, levels, unit)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save profile plot %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FormatFromPath returns the image format implied by path's extension.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "png"
	}
	return ext
}
