package types

import (
	"math"
	"time"
)

// CalendarPeriod returns the calendar-month usage period containing the given
// instant: the first instant of the month through the first instant of the
// next month, in UTC.
func CalendarPeriod(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// TrialDaysLeft returns the number of whole or partial days remaining until
// the trial end date, floored at 0 for display.
func TrialDaysLeft(trialEnd, now time.Time) int {
	days := int(math.Ceil(trialEnd.Sub(now).Seconds() / 86400))
	if days < 0 {
		return 0
	}
	return days
}

// DaysSinceTrialEnd returns the number of whole days elapsed since the trial
// end date. Negative while the trial is still running.
func DaysSinceTrialEnd(trialEnd, now time.Time) int {
	return int(math.Floor(now.Sub(trialEnd).Seconds() / 86400))
}
