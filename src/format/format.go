// Package format converts raw weather values into display strings.
// Every function is pure: output depends only on the arguments.
package format

import (
	"fmt"
	"time"
)

// wallClock shifts a Unix timestamp by a timezone offset and returns the
// result as a UTC time so its fields read as local wall-clock values.
func wallClock(epochSeconds, tzOffsetSeconds int64) time.Time {
	return time.Unix(epochSeconds+tzOffsetSeconds, 0).UTC()
}

// LocalDate returns "Weekday, Day, Month", e.g. "Monday, 1, July"
func LocalDate(epochSeconds, tzOffsetSeconds int64) string {
	t := wallClock(epochSeconds, tzOffsetSeconds)
	return fmt.Sprintf("%s, %d, %s", t.Weekday(), t.Day(), t.Month())
}

// LocalTime returns "H:MM AM/PM" on a 12-hour clock
func LocalTime(epochSeconds, tzOffsetSeconds int64) string {
	t := wallClock(epochSeconds, tzOffsetSeconds)
	return fmt.Sprintf("%d:%02d %s", hour12(t.Hour()), t.Minute(), period(t.Hour()))
}

// LocalHour returns "H AM/PM" on a 12-hour clock
func LocalHour(epochSeconds, tzOffsetSeconds int64) string {
	t := wallClock(epochSeconds, tzOffsetSeconds)
	return fmt.Sprintf("%d %s", hour12(t.Hour()), period(t.Hour()))
}

// LocalDay returns the wall-clock day of month, month name and weekday name
func LocalDay(epochSeconds, tzOffsetSeconds int64) (day int, month, weekday string) {
	t := wallClock(epochSeconds, tzOffsetSeconds)
	return t.Day(), t.Month().String(), t.Weekday().String()
}

func hour12(h int) int {
	if h%12 == 0 {
		return 12
	}
	return h % 12
}

func period(h int) string {
	if h >= 12 {
		return "PM"
	}
	return "AM"
}
