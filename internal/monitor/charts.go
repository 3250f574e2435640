package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/windprofile/internal/httputil"
	"github.com/banshee-data/windprofile/internal/ingest"
	"github.com/banshee-data/windprofile/internal/regrid"
	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

func convertRows(rows []vad.Row, unit string) []vad.Row {
	return ingest.ConvertRows(rows, unit)
}

func convertLevels(levels []regrid.Level, unit string) []regrid.Level {
	if levels == nil {
		return nil
	}
	out := make([]regrid.Level, len(levels))
	for i, l := range levels {
		out[i] = l
		if l.U.Valid {
			out[i].U = vad.Some(units.ConvertSpeed(l.U.Float64, unit))
		}
		if l.V.Valid {
			out[i].V = vad.Some(units.ConvertSpeed(l.V.Float64, unit))
		}
	}
	return out
}

// profileSeries holds chart points as [value, height] pairs.
type profileSeries struct {
	u, v, speed, direction []opts.LineData
}

func ringSeries(rows []vad.Row, unit string) profileSeries {
	var s profileSeries
	for _, r := range rows {
		if !r.Accepted() {
			continue
		}
		s.add(r.Height, r.U.Float64, r.V.Float64, unit)
	}
	return s
}

func levelSeries(levels []regrid.Level, unit string) profileSeries {
	var s profileSeries
	for _, l := range levels {
		if !l.U.Valid || !l.V.Valid {
			continue
		}
		s.add(l.Height, l.U.Float64, l.V.Float64, unit)
	}
	return s
}

func (s *profileSeries) add(height, u, v float64, unit string) {
	speed, dir := vad.SpeedDirection(u, v)
	s.u = append(s.u, opts.LineData{Value: []interface{}{units.ConvertSpeed(u, unit), height}})
	s.v = append(s.v, opts.LineData{Value: []interface{}{units.ConvertSpeed(v, unit), height}})
	s.speed = append(s.speed, opts.LineData{Value: []interface{}{units.ConvertSpeed(speed, unit), height}})
	s.direction = append(s.direction, opts.LineData{Value: []interface{}{dir, height}})
}

func profileLine(title, subtitle, xName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "640px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Height (m)", NameLocation: "middle", NameGap: 45}),
	)
	return line
}

// renderProfilePage builds the HTML page with component and speed/direction charts.
func renderProfilePage(snap Snapshot, unit string) ([]byte, error) {
	label := units.Label(unit)
	subtitle := fmt.Sprintf("%s %s", snap.Source, snap.CreatedAt.Format(time.RFC3339))
	if snap.RunID != "" {
		subtitle += " run=" + snap.RunID
	}

	rings := ringSeries(snap.Rows, unit)
	grid := levelSeries(snap.Levels, unit)

	uv := profileLine("Wind components", subtitle, fmt.Sprintf("Wind (%s)", label))
	uv.AddSeries("u (ring)", rings.u).AddSeries("v (ring)", rings.v)
	if len(grid.u) > 0 {
		uv.AddSeries("u (regridded)", grid.u).AddSeries("v (regridded)", grid.v)
	}

	speed := profileLine("Wind speed", subtitle, fmt.Sprintf("Speed (%s)", label))
	speed.AddSeries("speed (ring)", rings.speed)
	if len(grid.speed) > 0 {
		speed.AddSeries("speed (regridded)", grid.speed)
	}

	direction := profileLine("Wind direction", subtitle, "Direction from (deg)")
	direction.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Direction from (deg)", NameLocation: "middle", NameGap: 25, Min: 0, Max: 360}))
	direction.AddSeries("direction (ring)", rings.direction)

	page := newPage()
	page.AddCharts(uv, speed, direction)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newPage() *components.Page {
	page := components.NewPage()
	page.PageTitle = "VAD wind profile"
	page.SetAssetsHost(echartsAssetsPrefix)
	return page
}

// handleProfileChart renders the profile as go-echarts HTML.
// Query params:
//   - run_id (optional; defaults to the latest profile)
//   - units (optional; defaults to the server units)
func (ws *WebServer) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	unit, err := ws.requestUnits(r)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := ws.snapshot(r.URL.Query().Get("run_id"))
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	body, err := renderProfilePage(snap, unit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, body)
}
