package ledger

import (
	"errors"
	"time"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/models"
)

// ErrInvalidCycleAnchor rejects cycle start days that drift across months:
// the 1st and anything in the 28-31 range.
var ErrInvalidCycleAnchor = errors.New("cycle start day must not be the 1st or fall on the 28th-31st")

// GetStatementCycles produces count consecutive (start, end, due) cycles
// from startDate. Each cycle ends one day before the next month's anchor
// (day-clamped in short months) and is due graceDays business days after
// the end. Fails with ErrInvalidCycleAnchor when startDate's day-of-month
// is 1 or 28-31.
func GetStatementCycles(cal *calendar.Calendar, startDate time.Time, graceDays, count int) ([]models.Cycle, error) {
	startDate = calendar.Midnight(startDate)
	if d := startDate.Day(); d == 1 || d >= 28 {
		return nil, ErrInvalidCycleAnchor
	}

	cycles := make([]models.Cycle, 0, count)
	start := startDate
	for i := 0; i < count; i++ {
		end := calendar.AddMonths(start, 1).AddDate(0, 0, -1)
		cycles = append(cycles, models.Cycle{
			StartDate: start,
			EndDate:   end,
			DueDate:   cal.AddBusinessDays(end, graceDays),
		})
		start = end.AddDate(0, 0, 1)
	}
	return cycles, nil
}
