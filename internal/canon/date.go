package canon

import (
	"regexp"
	"time"

	"github.com/a3tai/invoice-extractor/internal/normalize"
)

// ExportLayout is the month-first rendering used by the export interface.
const ExportLayout = "01/02/2006"

var dateToken = regexp.MustCompile(`\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4}`)

// Day-first layouts come before ISO ones; a token only ever matches one family
// because ISO tokens start with a four digit year.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
}

// Date is a calendar date with explicit validity. The zero value is invalid.
type Date struct {
	Time  time.Time
	Valid bool
}

// ParseDate reads the first date-shaped token of s using the day/month/year
// convention of the source documents.
func ParseDate(s string) Date {
	token := dateToken.FindString(normalize.Normalize(s))
	if token == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return Date{Time: t, Valid: true}
		}
	}
	return Date{}
}

// String renders the date as MM/DD/YYYY, or "" when the date is invalid.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(ExportLayout)
}
