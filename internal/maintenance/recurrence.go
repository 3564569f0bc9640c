// Package maintenance schedules, activates, and completes maintenance
// windows, synthesizing the next occurrence for recurring ones.
package maintenance

import (
	"time"

	"github.com/simplewatch/simplewatch/internal/storage"
)

// NextOccurrence computes the start of the occurrence that follows the given
// one. Returns false when the recurrence produces no next occurrence (non-
// recurring windows, or a monthly_weekday combination absent from the next
// month). The time of day is always preserved.
func NextOccurrence(start time.Time, recurrenceType string, cfg *storage.RecurrenceConfig) (time.Time, bool) {
	switch recurrenceType {
	case storage.RecurrenceDaily:
		return start.AddDate(0, 0, 1), true
	case storage.RecurrenceWeekly:
		return nextWeekly(start, cfg)
	case storage.RecurrenceMonthly:
		return nextMonthly(start, cfg)
	case storage.RecurrenceMonthlyWeekday:
		return nextMonthlyWeekday(start, cfg)
	default:
		return time.Time{}, false
	}
}

// nextWeekly advances to the nearest allowed weekday strictly after the
// start. With no configured weekdays it falls back to one week later.
func nextWeekly(start time.Time, cfg *storage.RecurrenceConfig) (time.Time, bool) {
	if cfg == nil || len(cfg.Weekdays) == 0 {
		return start.AddDate(0, 0, 7), true
	}

	allowed := make(map[int]bool, len(cfg.Weekdays))
	for _, d := range cfg.Weekdays {
		if d >= 0 && d <= 6 {
			allowed[d] = true
		}
	}
	if len(allowed) == 0 {
		return start.AddDate(0, 0, 7), true
	}

	weekday := int(start.Weekday())
	for i := 1; i <= 7; i++ {
		if allowed[(weekday+i)%7] {
			return start.AddDate(0, 0, i), true
		}
	}
	return time.Time{}, false
}

// nextMonthly advances to the configured day of the next month, clamping to
// the month's length. Day -1 selects the last day of the month.
func nextMonthly(start time.Time, cfg *storage.RecurrenceConfig) (time.Time, bool) {
	day := start.Day()
	if cfg != nil && cfg.Day != 0 {
		day = cfg.Day
	}

	firstOfNext := time.Date(start.Year(), start.Month(), 1, start.Hour(), start.Minute(), start.Second(), 0, start.Location()).AddDate(0, 1, 0)
	last := daysInMonth(firstOfNext.Year(), firstOfNext.Month())

	if day == -1 || day > last {
		day = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		start.Hour(), start.Minute(), start.Second(), 0, start.Location()), true
}

// nextMonthlyWeekday finds the nth occurrence of a weekday in the next
// month (week -1 selects the last occurrence). Returns false when the month
// has no such occurrence.
func nextMonthlyWeekday(start time.Time, cfg *storage.RecurrenceConfig) (time.Time, bool) {
	if cfg == nil {
		return time.Time{}, false
	}

	firstOfNext := time.Date(start.Year(), start.Month(), 1, start.Hour(), start.Minute(), start.Second(), 0, start.Location()).AddDate(0, 1, 0)
	day, ok := nthWeekday(firstOfNext.Year(), firstOfNext.Month(), time.Weekday(cfg.Weekday), cfg.Week)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		start.Hour(), start.Minute(), start.Second(), 0, start.Location()), true
}

// nthWeekday returns the day-of-month of the nth given weekday (n in 1..4,
// or -1 for the last occurrence).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) (int, bool) {
	last := daysInMonth(year, month)

	var days []int
	for d := 1; d <= last; d++ {
		if time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Weekday() == weekday {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return 0, false
	}

	if n == -1 {
		return days[len(days)-1], true
	}
	if n < 1 || n > len(days) {
		return 0, false
	}
	return days[n-1], true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
