package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// isoLayout renders an ISO-8601 timestamp with a numeric offset, so UTC
// is written as +00:00 rather than Z.
const isoLayout = "2006-01-02T15:04:05-07:00"

// clockLayout is the accepted 24-hour input for conversions.
const clockLayout = "15:04"

// TimeResult describes an instant as seen from one timezone.
type TimeResult struct {
	Timezone  string `json:"timezone"`
	Datetime  string `json:"datetime"`
	DayOfWeek string `json:"day_of_week"`
	UTCOffset string `json:"utc_offset"`
	IsDST     bool   `json:"is_dst"`
}

// DateChange tells whether a converted time lands on another calendar day.
type DateChange string

const (
	SameDay     DateChange = "same_day"
	NextDay     DateChange = "next_day"
	PreviousDay DateChange = "previous_day"
)

// TimeConversionResult is the outcome of converting a wall-clock time
// from a source timezone to a target timezone.
type TimeConversionResult struct {
	Source          TimeResult `json:"source"`
	Target          TimeResult `json:"target"`
	TimeDifference  string     `json:"time_difference"`
	HoursDifference float64    `json:"hours_difference"`
	DayShift        int        `json:"day_shift"`
	DateChange      DateChange `json:"date_change"`
}

// TimeFormatError reports a clock string that is not HH:MM in 24-hour format.
type TimeFormatError struct {
	Input string
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("Invalid time format %q. Expected HH:MM [24-hour format]", e.Input)
}

func (e *TimeFormatError) Is(target error) bool { return target == ErrInvalidTimeFormat }

// NewTimeResult captures t in the given zone. The zone name is reported as
// given by the caller, not as stored in the location.
func NewTimeResult(zone string, t time.Time) TimeResult {
	return TimeResult{
		Timezone:  zone,
		Datetime:  t.Format(isoLayout),
		DayOfWeek: t.Weekday().String(),
		UTCOffset: t.Format("-07:00"),
		IsDST:     t.IsDST(),
	}
}

// ParseClock parses a 24-hour "HH:MM" string. Hours 0-23 and minutes 0-59
// are accepted; a single-digit hour is tolerated.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, 0, &TimeFormatError{Input: s}
	}
	return t.Hour(), t.Minute(), nil
}

// ConvertClock anchors clock to today's date in the source zone (relative to now)
// and converts the resulting instant to the target zone.
// A clock inside a spring-forward gap does not exist that day; time.Date
// normalises it to a real instant, so Source.Datetime then differs from clock
// (02:30 in New York on 2024-03-10 reports 01:30-05:00).
func ConvertClock(now time.Time, sourceZone string, source *time.Location, clock string, targetZone string, target *time.Location) (TimeConversionResult, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return TimeConversionResult{}, err
	}

	today := now.In(source)
	sourceTime := time.Date(today.Year(), today.Month(), today.Day(), hour, minute, 0, 0, source)
	targetTime := sourceTime.In(target)

	_, sourceOffset := sourceTime.Zone()
	_, targetOffset := targetTime.Zone()
	hours := float64(targetOffset-sourceOffset) / 3600

	shift := civilDay(targetTime) - civilDay(sourceTime)

	return TimeConversionResult{
		Source:          NewTimeResult(sourceZone, sourceTime),
		Target:          NewTimeResult(targetZone, targetTime),
		TimeDifference:  FormatHoursDifference(hours),
		HoursDifference: hours,
		DayShift:        shift,
		DateChange:      dateChange(shift),
	}, nil
}

// FormatHoursDifference renders a signed hour offset: whole hours keep one
// decimal ("+13.0h"), fractional offsets drop trailing zeros ("+5.75h", "-3.5h").
func FormatHoursDifference(hours float64) string {
	if hours == math.Trunc(hours) {
		return fmt.Sprintf("%+.1fh", hours)
	}
	s := fmt.Sprintf("%+.2f", hours)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + "h"
}

// civilDay counts days since the Unix epoch for t's calendar date in its own zone.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func dateChange(shift int) DateChange {
	switch {
	case shift > 0:
		return NextDay
	case shift < 0:
		return PreviousDay
	default:
		return SameDay
	}
}
