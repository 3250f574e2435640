// Package testutil provides shared test utilities and synthetic scan
// fixtures.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got is not within tol of want.
func AssertClose(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g (±%g)", name, got, want, tol)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// RadialWind is the radial velocity seen at azimuth azDeg (clockwise from
// north) and elevation elDeg for a uniform horizontal wind (u, v).
func RadialWind(u, v, azDeg, elDeg float64) float64 {
	az := azDeg * math.Pi / 180
	el := elDeg * math.Pi / 180
	return (u*math.Sin(az) + v*math.Cos(az)) * math.Cos(el)
}

// SyntheticRing returns n evenly spaced azimuths starting at north and the
// noise-free radial winds of a uniform wind (u, v) at elevation elDeg.
func SyntheticRing(u, v, elDeg float64, n int) (radialWind, azimuth []float64) {
	radialWind = make([]float64, n)
	azimuth = make([]float64, n)
	step := 360.0 / float64(n)
	for i := 0; i < n; i++ {
		azimuth[i] = float64(i) * step
		radialWind[i] = RadialWind(u, v, azimuth[i], elDeg)
	}
	return radialWind, azimuth
}

// BlankArc marks count consecutive samples starting at index start as
// missing (NaN), wrapping around the end of the ring.
func BlankArc(radialWind []float64, start, count int) []float64 {
	out := make([]float64, len(radialWind))
	copy(out, radialWind)
	for k := 0; k < count && len(out) > 0; k++ {
		out[(start+k)%len(out)] = math.NaN()
	}
	return out
}
