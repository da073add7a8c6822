package schedule

import (
	"errors"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidTime  = errors.New("invalid time format")
	ErrInvalidRange = errors.New("invalid date range")
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(ClockLayout, timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation(DateLayout+" "+ClockLayout, dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}

	return parsed, nil
}

func ValidClock(timeStr string) bool {
	_, err := time.Parse(ClockLayout, timeStr)
	return err == nil
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}


// ValidateRange checks "2006-01-02" bounds with from <= to.
func ValidateRange(from, to string, loc *time.Location) error {
	start, err := ParseDate(from, loc)
	if err != nil {
		return err
	}
	end, err := ParseDate(to, loc)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return ErrInvalidRange
	}
	return nil
}

// WindowDates lists the dates of a rolling booking window starting at from,
// skipping closedWeekday (pass a negative value to keep all seven days).
func WindowDates(from time.Time, days int, closedWeekday int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		if closedWeekday >= 0 && day.Weekday() == time.Weekday(closedWeekday) {
			continue
		}
		dates = append(dates, day.Format(DateLayout))
	}
	return dates
}

func FilterPastSlots(dateStr string, slots []string, loc *time.Location, now time.Time) ([]string, error) {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		past, err := IsSlotPast(dateStr, s, loc, now)
		if err != nil {
			return nil, err
		}
		if !past {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}
