package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/windprofile/internal/fsutil"
	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

func TestReadObservations(t *testing.T) {
	in := `elevation,azimuth,range,radial_wind,quality
2,0,1000,3.5,ok
2,10,1000,NA,ok
2,20,1000,,ok
# comment lines are skipped
2,30,1000,null,ok
2,40,1000,-1.25,ok
`
	obs, err := ReadObservations(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, obs, 5)

	assert.Equal(t, vad.Some(3.5), obs[0].RadialWind)
	assert.False(t, obs[1].RadialWind.Valid)
	assert.False(t, obs[2].RadialWind.Valid)
	assert.False(t, obs[3].RadialWind.Valid)
	assert.Equal(t, vad.Some(-1.25), obs[4].RadialWind)
	assert.Equal(t, 40.0, obs[4].Azimuth)
	assert.Equal(t, 1000.0, obs[4].Range)
	assert.Equal(t, 2.0, obs[4].Elevation)
}

func TestReadObservations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		missing bool
		column  string
		line    int
	}{
		{name: "empty input", in: "", missing: true},
		{name: "missing elevation column", in: "radial_wind,azimuth,range\n1,2,3\n", missing: true},
		{name: "bad azimuth", in: "radial_wind,azimuth,range,elevation\n1,0,10,2\n1,east,10,2\n", column: ColAzimuth, line: 3},
		{name: "bad radial wind", in: "radial_wind,azimuth,range,elevation\nfast,0,10,2\n", column: ColRadialWind, line: 2},
		{name: "empty range", in: "radial_wind,azimuth,range,elevation\n1,0,,2\n", column: ColRange, line: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadObservations(strings.NewReader(tt.in))
			require.Error(t, err)
			if tt.missing {
				assert.True(t, errors.Is(err, ErrMissingColumn), "got %v", err)
				return
			}
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.column, pe.Column)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestObservationsRoundTripThroughFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	want := []vad.Observation{
		{RadialWind: vad.Some(1.5), Azimuth: 0, Range: 500, Elevation: 3},
		{RadialWind: vad.None(), Azimuth: 90, Range: 500, Elevation: 3},
		{RadialWind: vad.Some(-0.125), Azimuth: 180, Range: 500, Elevation: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteObservations(&buf, want))
	require.NoError(t, fsys.WriteFile("scan.csv", buf.Bytes(), 0o644))

	got, err := ReadFile(fsys, "scan.csv")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ReadFile(fsys, "missing.csv")
	assert.Error(t, err)
}

func sampleRows() []vad.Row {
	return []vad.Row{
		{Height: 35.5, U: vad.Some(10), V: vad.Some(-2), Range: 1000, Elevation: 2, R2: vad.Some(0.95), RMSE: vad.Some(0.5), Samples: 36, Status: vad.RingAccepted},
		{Height: 70, Range: 2000, Elevation: 2, Status: vad.RingRejectedGap},
	}
}

func TestWriteRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, sampleRows(), units.MPS))

	want := "height,u,v,range,elevation,r2,rmse,samples,status\n" +
		"35.5,10,-2,1000,2,0.95,0.5,36,accepted\n" +
		"70,,,2000,2,,,0,rejected_gap\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRows_ConvertsUnits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, sampleRows()[:1], units.KMPH))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "35.5,36,-7.2,1000,2,0.95,1.8,36,accepted", lines[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRows(), units.MPS))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, 10.0, got[0]["u"])
	assert.Equal(t, "accepted", got[0]["status"])
	assert.Nil(t, got[1]["u"])
	assert.Nil(t, got[1]["r2"])
	assert.Equal(t, "rejected_gap", got[1]["status"])
}
