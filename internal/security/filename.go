// Package security sanitises user-derived strings before they reach file
// names and response headers.
package security

import (
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash,
// collapsing every other run of characters into one underscore. The result
// is capped in length, trimmed of leading and trailing dots, underscores and
// dashes, and never empty.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		safe := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !safe {
			pendingUnderscore = true
			continue
		}
		if pendingUnderscore && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingUnderscore = false
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	out = strings.Trim(out, "._-")
	if out == "" {
		return "unknown"
	}
	return out
}

// ExportFilename builds a download name like "profile-scan_01.csv" from the
// basename of a data source.
func ExportFilename(kind, source, ext string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return kind + "-" + SanitizeFilename(base) + "." + strings.TrimPrefix(ext, ".")
}
