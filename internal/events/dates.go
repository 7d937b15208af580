package events

import "time"

func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart is the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	d := MidnightUTC(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// NextSunday is the first Sunday strictly after t. Signups are captured
// during the week before the event they sign up for.
func NextSunday(t time.Time) time.Time {
	d := MidnightUTC(t)
	ahead := (7 - int(d.Weekday())) % 7
	if ahead == 0 {
		ahead = 7
	}
	return d.AddDate(0, 0, ahead)
}

// PreviousSunday is the most recent Sunday on or before t.
func PreviousSunday(t time.Time) time.Time {
	d := MidnightUTC(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}
