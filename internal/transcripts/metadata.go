package transcripts

import (
	"path/filepath"
	"regexp"
	"strings"
)

// UnknownValue is used for company or date when the source path does not
// carry the information.
const UnknownValue = "unknown"

// Transcript filenames embed the call date as YYYY-Mon-DD, e.g. 2024-Jan-10.
var datePattern = regexp.MustCompile(`\d{4}-[A-Za-z]{3}-\d{2}`)

// ParseSourcePath derives company and date from a transcript path.
//
// The corpus layout is <transcripts_dir>/<company>/<YYYY-Mon-DD>-<company>.txt:
// the company is the parent directory name and the date is matched inside the
// filename. Paths too shallow to carry a company directory, or filenames
// without a date, yield "unknown" for the respective field.
func ParseSourcePath(path string) (company, date string) {
	company = UnknownValue
	date = UnknownValue

	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) >= 2 && parts[len(parts)-2] != "" {
		company = parts[len(parts)-2]
	}

	if m := datePattern.FindString(filepath.Base(path)); m != "" {
		date = m
	}
	return company, date
}
