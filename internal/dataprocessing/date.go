package dataprocessing

import (
	"path/filepath"
	"strings"
	"time"

	"cpsroster/internal/config"
)

// rosterMarker precedes the publication date in every roster file name
const rosterMarker = "Roster"

// dateLayouts are tried in order; the first that parses wins
var dateLayouts = []string{
	"01022006",   // MMDDYYYY
	"01_02_06",   // MM_DD_YY
	"01-02-2006", // MM-DD-YYYY
}

// ParseDocumentDate extracts the publication date embedded in a roster file
// name such as EmployeePositionRoster_07112012.pdf. It reports false when no
// layout matches; callers skip such documents.
func ParseDocumentDate(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if i := strings.LastIndex(base, rosterMarker); i >= 0 {
		base = base[i+len(rosterMarker):]
	}
	base = strings.TrimLeft(base, "_")
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, base); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// CacheFileName names the per-file cache entry for a publication date
func CacheFileName(date time.Time) string {
	return config.CacheFilePrefix + date.Format("01022006") + ".csv"
}

// Readable reports whether a document published on date can be extracted
func Readable(date, cutoff time.Time) bool {
	return !date.Before(cutoff)
}

// IsReadable reports whether date is on or after the default cutoff
func IsReadable(date time.Time) bool {
	return Readable(date, config.DefaultCutoff)
}
