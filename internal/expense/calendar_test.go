package expense

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		year, month int
		wantLast    time.Time
	}{
		{2024, 1, date(2024, time.January, 31)},
		{2024, 2, date(2024, time.February, 29)},
		{2023, 2, date(2023, time.February, 28)},
		{2024, 4, date(2024, time.April, 30)},
		{2024, 12, date(2024, time.December, 31)},
	}
	for _, tt := range tests {
		first, last := monthBounds(tt.year, tt.month)
		if !first.Equal(date(tt.year, time.Month(tt.month), 1)) {
			t.Errorf("monthBounds(%d, %d) first = %v", tt.year, tt.month, first)
		}
		if !last.Equal(tt.wantLast) {
			t.Errorf("monthBounds(%d, %d) last = %v, want %v", tt.year, tt.month, last, tt.wantLast)
		}
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{"same day", date(2024, time.January, 15), 1, date(2024, time.February, 15)},
		{"zero", date(2024, time.January, 15), 0, date(2024, time.January, 15)},
		{"leap february", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"common february", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"thirty day month", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"clamp does not stick", date(2024, time.January, 31), 2, date(2024, time.March, 31)},
		{"year rollover", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addMonths(tt.from, tt.n); !got.Equal(tt.want) {
				t.Errorf("addMonths(%s, %d) = %s, want %s",
					tt.from.Format("2006-01-02"), tt.n, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}
