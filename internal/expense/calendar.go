package expense

import (
	"time"

	"github.com/jinzhu/now"
)

// monthBounds returns the first and last calendar day of year/month at UTC midnight.
func monthBounds(year, month int) (first, last time.Time) {
	first = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := now.With(first).EndOfMonth()
	last = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return first, last
}

// addMonths moves t by n calendar months keeping the day of month, clamped
// to the last day of the target month (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	_, last := monthBounds(t.Year(), int(t.Month())+n)
	day := t.Day()
	if day > last.Day() {
		day = last.Day()
	}
	return time.Date(last.Year(), last.Month(), day, 0, 0, 0, 0, time.UTC)
}
