package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/windprofile/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"rings": 3})

	testutil.AssertStatusCode(t, w.Code, http.StatusCreated)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["rings"] != 3 {
		t.Errorf("body = %s (err %v)", w.Body.String(), err)
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, http.StatusNotFound, "run not found")

	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "run not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed(w, http.MethodGet)
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
	if got := w.Header().Get("Allow"); got != http.MethodGet {
		t.Errorf("Allow = %q, want GET", got)
	}
}

func TestWriteHTML(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTML(w, []byte("<html></html>"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"limit=10", 10, false},
		{"limit=1", 1, false},
		{"limit=1000", 1000, false},
		{"limit=0", 0, true},
		{"limit=1001", 0, true},
		{"limit=ten", 0, true},
		{"limit=10abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/runs?"+tt.query, nil)
			got, err := QueryInt(r, "limit", 50, 1, 1000)
			if tt.wantErr {
				testutil.AssertError(t, err)
				return
			}
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("QueryInt = %d, want %d", got, tt.want)
			}
		})
	}
}
