package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format the backend expects for calendar dates.
const DateLayout = "2006-01-02"

// CalendarDate is a date without a time component.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseCalendarDate accepts YYYY-MM-DD or an RFC3339 timestamp. Timestamps are
// converted to the local calendar date, never shifted to UTC.
func ParseCalendarDate(raw string) (CalendarDate, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return CalendarDate{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return DateOf(t), nil
		}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOf(t.In(time.Local)), nil
		}
	}
	return CalendarDate{}, fmt.Errorf("invalid date %q", raw)
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns local midnight of the date.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Time().Before(other.Time())
}

func (d CalendarDate) After(other CalendarDate) bool {
	return d.Time().After(other.Time())
}

// NightsUntil counts nights between d and a later date.
func (d CalendarDate) NightsUntil(end CalendarDate) int {
	a := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year, end.Month, end.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ParseCalendarDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
