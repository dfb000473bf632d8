package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrialDaysLeft(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		trialEnd time.Time
		want     int
	}{
		{"ten full days", now.AddDate(0, 0, 10), 10},
		{"partial day rounds up", now.Add(36 * time.Hour), 2},
		{"under a day rounds up", now.Add(2 * time.Hour), 1},
		{"exactly now", now, 0},
		{"already ended floors at zero", now.AddDate(0, 0, -3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrialDaysLeft(tt.trialEnd, now))
		})
	}
}

func TestDaysSinceTrialEnd(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		trialEnd time.Time
		want     int
	}{
		{"ended two days ago", now.AddDate(0, 0, -2), 2},
		{"ended half a day ago", now.Add(-12 * time.Hour), 0},
		{"still running is negative", now.AddDate(0, 0, 3), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysSinceTrialEnd(tt.trialEnd, now))
		})
	}
}

func TestCalendarPeriod(t *testing.T) {
	start, end := CalendarPeriod(time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into the next year.
	start, end = CalendarPeriod(time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestBillingCyclePeriodEnd(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 30), BillingCycleMonthly.PeriodEnd(start))
	assert.Equal(t, start.AddDate(0, 0, 365), BillingCycleAnnual.PeriodEnd(start))
}
