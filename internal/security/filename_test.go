package security

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"scan_01.csv", "scan_01.csv"},
		{"PPI scan 2024/06/01", "PPI_scan_2024_06_01"},
		{"../../etc/passwd", "etc_passwd"},
		{"a   b", "a_b"},
		{"  leading", "leading"},
		{"...", "unknown"},
		{"", "unknown"},
		{"héllo", "h_llo"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeFilename(strings.Repeat("x", 500))
	if len(long) != maxFilenameLen {
		t.Errorf("long name length = %d, want %d", len(long), maxFilenameLen)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		kind, source, ext string
		want              string
	}{
		{"profile", "/data/scans/ppi 01.csv", "csv", "profile-ppi_01.csv"},
		{"profile", "-", ".json", "profile-unknown.json"},
		{"plot", "scan", "png", "plot-scan.png"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.kind, tt.source, tt.ext); got != tt.want {
			t.Errorf("ExportFilename(%q, %q, %q) = %q, want %q", tt.kind, tt.source, tt.ext, got, tt.want)
		}
	}
}
