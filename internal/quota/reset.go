package quota

import (
	"fmt"
	"time"

	"social-prospector/internal/plans"
)

// WindowStart returns the calendar start of the window containing now, in loc.
func WindowStart(w plans.Window, now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	switch w {
	case plans.WindowHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case plans.WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
}

// WindowEnd returns the start of the next window.
func WindowEnd(w plans.Window, now time.Time, loc *time.Location) time.Time {
	s := WindowStart(w, now, loc)
	switch w {
	case plans.WindowHour:
		return s.Add(time.Hour)
	case plans.WindowDay:
		return s.AddDate(0, 0, 1)
	default:
		return s.AddDate(0, 1, 0)
	}
}

// ResetIn is the time left until the window rolls over.
func ResetIn(w plans.Window, now time.Time, loc *time.Location) time.Duration {
	return WindowEnd(w, now, loc).Sub(now)
}

// ResetCountdown rounds d up to the window's display unit: minutes for hour,
// hours for day, days for month.
func ResetCountdown(w plans.Window, d time.Duration) (int, string) {
	unit, name := time.Minute, "minute"
	switch w {
	case plans.WindowDay:
		unit, name = time.Hour, "hour"
	case plans.WindowMonth:
		unit, name = 24*time.Hour, "day"
	}
	if d <= 0 {
		return 0, name + "s"
	}
	n := int((d + unit - 1) / unit)
	if n != 1 {
		name += "s"
	}
	return n, name
}

func windowAdjective(w plans.Window) string {
	switch w {
	case plans.WindowHour:
		return "hourly"
	case plans.WindowDay:
		return "daily"
	default:
		return "monthly"
	}
}

func denialMessage(w plans.Window, ceiling, current int, resetIn time.Duration) (string, int, string) {
	n, unit := ResetCountdown(w, resetIn)
	return fmt.Sprintf("%s limit reached (%d/%d), resets in %d %s", windowAdjective(w), current, ceiling, n, unit), n, unit
}
