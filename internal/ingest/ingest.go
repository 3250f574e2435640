// Package ingest reads PPI observations from CSV and writes VAD result
// tables as CSV or JSON.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/windprofile/internal/fsutil"
	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

// Column names recognised in observation files.
const (
	ColRadialWind = "radial_wind"
	ColAzimuth    = "azimuth"
	ColRange      = "range"
	ColElevation  = "elevation"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing required column")

// ParseError locates a malformed cell.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// missingTokens are radial_wind cells read as "no measurement".
var missingTokens = map[string]bool{"": true, "na": true, "nan": true, "null": true, "-": true}

// ReadObservations parses a CSV with a header row naming radial_wind,
// azimuth, range and elevation in any order. Extra columns are ignored.
func ReadObservations(r io.Reader) ([]vad.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty observation file: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make(map[string]int, 4)
	for _, name := range []string{ColRadialWind, ColAzimuth, ColRange, ColElevation} {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}

	var obs []vad.Observation
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read observations: %w", err)
		}
		line, _ := cr.FieldPos(0)

		var o vad.Observation
		raw := strings.TrimSpace(record[idx[ColRadialWind]])
		if !missingTokens[strings.ToLower(raw)] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &ParseError{Line: line, Column: ColRadialWind, Err: err}
			}
			o.RadialWind = vad.Some(v)
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{ColAzimuth, &o.Azimuth},
			{ColRange, &o.Range},
			{ColElevation, &o.Elevation},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx[f.col]]), 64)
			if err != nil {
				return nil, &ParseError{Line: line, Column: f.col, Err: err}
			}
			*f.dst = v
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// ReadFile reads an observation CSV through fsys.
func ReadFile(fsys fsutil.FileSystem, path string) ([]vad.Observation, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open observations: %w", err)
	}
	defer f.Close()

	obs, err := ReadObservations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obs, nil
}

// WriteObservations writes observations in the format ReadObservations reads.
func WriteObservations(w io.Writer, obs []vad.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColRadialWind, ColAzimuth, ColRange, ColElevation}); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{formatNull(o.RadialWind), formatFloat(o.Azimuth), formatFloat(o.Range), formatFloat(o.Elevation)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowHeader is the CSV header written by WriteRows.
var RowHeader = []string{"height", "u", "v", "range", "elevation", "r2", "rmse", "samples", "status"}

// WriteRows writes the result table as CSV. Undefined values are empty
// cells; u, v and rmse are converted to the given speed units.
func WriteRows(w io.Writer, rows []vad.Row, unit string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RowHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			formatFloat(r.Height),
			formatNull(convert(r.U, unit)),
			formatNull(convert(r.V, unit)),
			formatFloat(r.Range),
			formatFloat(r.Elevation),
			formatNull(r.R2),
			formatNull(convert(r.RMSE, unit)),
			strconv.Itoa(r.Samples),
			r.Status.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the result table as an indented JSON array with null
// for undefined values, in the given speed units.
func WriteJSON(w io.Writer, rows []vad.Row, unit string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ConvertRows(rows, unit))
}

// ConvertRows returns a copy of rows with u, v and rmse in the given units.
func ConvertRows(rows []vad.Row, unit string) []vad.Row {
	out := make([]vad.Row, len(rows))
	for i, r := range rows {
		r.U, r.V, r.RMSE = convert(r.U, unit), convert(r.V, unit), convert(r.RMSE, unit)
		out[i] = r
	}
	return out
}

func convert(v vad.NullFloat, unit string) vad.NullFloat {
	if !v.Valid {
		return v
	}
	return vad.Some(units.ConvertSpeed(v.Float64, unit))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatNull(v vad.NullFloat) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}
