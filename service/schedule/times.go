package schedule

import (
	"fmt"
	"regexp"
	"time"
)

// Wall-clock times are "HH:MM" 24-hour strings. Zero-padded strings compare
// correctly with plain string ordering, so slots are confined to a single day
// and cannot cross midnight.
var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

func validTime(s string) bool {
	return timePattern.MatchString(s)
}

// normalizeTime pads a single-digit hour so lexicographic comparison holds
// ("9:30" becomes "09:30").
func normalizeTime(s string) string {
	if len(s) == 4 {
		return "0" + s
	}
	return s
}

// parseDate reads a day-granularity date and pins it to midnight UTC so
// equality filters behave the same in Postgres and in tests.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
