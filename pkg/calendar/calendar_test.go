package calendar

import (
	"testing"
	"time"
)

func TestIsBusinessDay(t *testing.T) {
	cal := Default()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"regular weekday", Date(2025, time.January, 15), true},
		{"saturday", Date(2025, time.January, 18), false},
		{"sunday", Date(2025, time.January, 19), false},
		{"new year's day", Date(2025, time.January, 1), false},
		{"good friday", Date(2025, time.April, 18), false},
		{"christmas", Date(2025, time.December, 25), false},
		{"day after boxing day", Date(2025, time.December, 29), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.IsBusinessDay(tt.date); got != tt.want {
				t.Errorf("IsBusinessDay(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestAddBusinessDays(t *testing.T) {
	cal := Default()

	tests := []struct {
		name string
		from time.Time
		days int
		want time.Time
	}{
		{"single day over weekend", Date(2025, time.January, 17), 1, Date(2025, time.January, 20)},
		{"zero days", Date(2025, time.January, 17), 0, Date(2025, time.January, 17)},
		{"21 days from feb cycle end", Date(2025, time.February, 14), 21, Date(2025, time.March, 17)},
		{"21 days spanning good friday", Date(2025, time.March, 14), 21, Date(2025, time.April, 14)},
		{"21 days spanning victoria day", Date(2025, time.April, 14), 21, Date(2025, time.May, 14)},
		{"next day skips new year", Date(2024, time.December, 31), 1, Date(2025, time.January, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.AddBusinessDays(tt.from, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("AddBusinessDays(%s, %d) = %s, want %s",
					tt.from.Format("2006-01-02"), tt.days, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{"plain add", Date(2025, time.January, 15), 1, Date(2025, time.February, 15)},
		{"clamp to february", Date(2025, time.January, 31), 1, Date(2025, time.February, 28)},
		{"clamp to leap february", Date(2024, time.January, 31), 1, Date(2024, time.February, 29)},
		{"year rollover", Date(2025, time.December, 15), 1, Date(2026, time.January, 15)},
		{"multi month across year", Date(2025, time.October, 31), 4, Date(2026, time.February, 28)},
		{"backwards one month", Date(2025, time.January, 15), -1, Date(2024, time.December, 15)},
		{"clamp to thirty days", Date(2025, time.March, 31), 1, Date(2025, time.April, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonths(tt.from, tt.months)
			if !got.Equal(tt.want) {
				t.Errorf("AddMonths(%s, %d) = %s, want %s",
					tt.from.Format("2006-01-02"), tt.months, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}
