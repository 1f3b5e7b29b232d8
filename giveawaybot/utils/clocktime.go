package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Giveaway deadlines are entered as wall-clock times in West Africa
// Time (UTC+1), the community's home timezone.
var watZone = time.FixedZone("WAT", 1*60*60)

var clockTimePattern = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*(AM|PM)?\s*$`)

// NextClockTime parses a 12-hour clock string like "2:30PM", "11:45AM"
// or "2PM" (24-hour "14:30" also accepted) and returns the next instant
// at which that wall-clock time occurs in UTC+1. If today's occurrence
// is not strictly after now, the result is the same time tomorrow.
//
// Rejected outright: hour 0 ("0:30"), an out-of-range hour for the
// marker ("13:00PM"), minutes above 59, and anything not matching
// H[:MM][AM|PM].
func NextClockTime(s string, now time.Time) (time.Time, error) {
	m := clockTimePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid time format %q, expected e.g. 2:30PM or 11:45AM", s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	period := strings.ToUpper(m[3])

	if minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute %d in %q", minute, s)
	}

	switch period {
	case "AM", "PM":
		if hour < 1 || hour > 12 {
			return time.Time{}, fmt.Errorf("hour %d is out of range for a 12-hour time %q", hour, s)
		}
		if period == "AM" && hour == 12 {
			hour = 0
		} else if period == "PM" && hour != 12 {
			hour += 12
		}
	default:
		if hour < 1 || hour > 23 {
			return time.Time{}, fmt.Errorf("hour %d is out of range in %q (use an AM/PM marker for 12-hour times)", hour, s)
		}
	}

	local := now.In(watZone)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, watZone)
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}
