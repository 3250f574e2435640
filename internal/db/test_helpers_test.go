package db

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/windprofile/internal/timeutil"
	"github.com/banshee-data/windprofile/internal/vad"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates a migrated database in a temp dir with a mock clock.
func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := timeutil.NewMockClock(testEpoch)
	db.SetClock(clock)
	return db, clock
}

// loopbackRequest creates a request with RemoteAddr set to loopback
// so that tsweb.AllowDebugAccess returns true.
func loopbackRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func testRows() []vad.Row {
	return []vad.Row{
		{Height: 35.5, U: vad.Some(5), V: vad.Some(3), Range: 1000, Elevation: 2, R2: vad.Some(0.99), RMSE: vad.Some(0.1), Samples: 36, Status: vad.RingAccepted},
		{Height: 70.1, Range: 2000, Elevation: 2, Status: vad.RingRejectedGap},
		{Height: 105, U: vad.Some(0), V: vad.Some(-1.5), Range: 3000, Elevation: 2, R2: vad.Some(0.85), RMSE: vad.Some(0.4), Samples: 30, Status: vad.RingAccepted},
		{Height: 140, Range: 4000, Elevation: 2, R2: vad.Some(0.3), RMSE: vad.Some(2), Samples: 31, Status: vad.RingLowR2},
	}
}
