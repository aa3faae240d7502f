// Package recurrence expands recurring reservation patterns into concrete
// dated occurrences. The package is pure: it never touches storage and all
// temporal decisions derive from the pattern and the supplied templates.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Frequency identifies how often a pattern repeats.
type Frequency string

const (
	// FrequencyDaily accepts every candidate date; the cursor advances by
	// the pattern interval in days.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly accepts candidate dates whose ISO weekday is in the
	// pattern's weekday set.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly accepts candidate dates sharing the start date's
	// day of month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyYearly accepts candidate dates sharing the start date's
	// month and day.
	FrequencyYearly Frequency = "yearly"
)

// ParseFrequency converts a caller supplied string into a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(value) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return Frequency(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Pattern describes a recurring reservation configuration.
type Pattern struct {
	Frequency Frequency
	// Interval is the step multiplier. Only daily patterns use it to move
	// the cursor; the other frequencies advance one day at a time and let
	// the acceptance predicate decide.
	Interval int
	// StartDate anchors the expansion; only its date component matters.
	StartDate time.Time
	// EndDate, when set, bounds the expansion inclusively.
	EndDate *time.Time
	// Weekdays holds ISO weekday numbers (Monday == 1 through Sunday == 7)
	// and is consulted only by weekly patterns.
	Weekdays []int
	// MaxInstances caps how many occurrences are produced. Zero means no
	// cap, in which case EndDate must be set.
	MaxInstances int
}

// Occurrence is one concrete dated instance expanded from a pattern.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// ErrInvalidFrequency indicates the pattern frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidInterval indicates the pattern interval is not a positive integer.
var ErrInvalidInterval = errors.New("recurrence: interval must be positive")

// ErrUnbounded indicates the pattern has neither an end date nor an
// instance cap, so expansion would never terminate.
var ErrUnbounded = errors.New("recurrence: pattern requires an end date or an instance cap")

// ErrInvalidDayWindow indicates the time-of-day template does not describe a
// positive duration within a single day.
var ErrInvalidDayWindow = errors.New("recurrence: day end must be after day start")

// ErrEmptyWeekdays indicates a weekly pattern selects no weekdays.
var ErrEmptyWeekdays = errors.New("recurrence: weekly pattern requires at least one weekday")

// ErrInvalidWeekday indicates a weekday outside the ISO range 1 (Monday)
// through 7 (Sunday). A weekday set with no valid member would never accept
// a candidate date, so expansion must reject it up front.
var ErrInvalidWeekday = errors.New("recurrence: weekdays must be ISO days 1 through 7")

// Expand enumerates the occurrences of a pattern. dayStart and dayEnd are
// time-of-day templates: only their clock components are combined with each
// accepted date, in dayStart's location.
//
// The cursor starts at the pattern's start date and advances one calendar day
// at a time; daily patterns jump by the interval directly. Expansion stops
// once the end date is passed or MaxInstances occurrences were produced.
func Expand(p Pattern, dayStart, dayEnd time.Time) ([]Occurrence, error) {
	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		return nil, err
	}
	if p.Interval < 1 {
		return nil, ErrInvalidInterval
	}
	if p.MaxInstances <= 0 && p.EndDate == nil {
		return nil, ErrUnbounded
	}
	if p.Frequency == FrequencyWeekly {
		if len(p.Weekdays) == 0 {
			return nil, ErrEmptyWeekdays
		}
		for _, day := range p.Weekdays {
			if day < 1 || day > 7 {
				return nil, ErrInvalidWeekday
			}
		}
	}

	loc := dayStart.Location()
	start := combineDateTime(p.StartDate, dayStart, loc)
	end := combineDateTime(p.StartDate, dayEnd, loc)
	if !end.After(start) {
		return nil, ErrInvalidDayWindow
	}

	var endDate time.Time
	if p.EndDate != nil {
		endDate = dateOnly(p.EndDate.In(loc))
	}

	weekdaySet := make(map[int]struct{}, len(p.Weekdays))
	for _, day := range p.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	anchor := dateOnly(p.StartDate.In(loc))
	cursor := anchor
	occurrences := make([]Occurrence, 0)

	for {
		if p.EndDate != nil && cursor.After(endDate) {
			break
		}
		if p.MaxInstances > 0 && len(occurrences) >= p.MaxInstances {
			break
		}

		if accepts(p.Frequency, weekdaySet, anchor, cursor) {
			occurrences = append(occurrences, Occurrence{
				Start: combineDateTime(cursor, dayStart, loc),
				End:   combineDateTime(cursor, dayEnd, loc),
			})
		}

		if p.Frequency == FrequencyDaily {
			cursor = cursor.AddDate(0, 0, p.Interval)
		} else {
			cursor = cursor.AddDate(0, 0, 1)
		}
	}

	return occurrences, nil
}

// accepts implements the per-frequency acceptance predicate for a candidate
// date. Daily patterns accept every candidate because the cursor already
// stepped by the interval.
func accepts(freq Frequency, weekdays map[int]struct{}, anchor, candidate time.Time) bool {
	switch freq {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		_, ok := weekdays[isoWeekday(candidate)]
		return ok
	case FrequencyMonthly:
		return candidate.Day() == anchor.Day()
	case FrequencyYearly:
		return candidate.Month() == anchor.Month() && candidate.Day() == anchor.Day()
	default:
		return false
	}
}

func combineDateTime(date, template time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	tpl := template.In(loc)
	return time.Date(y, m, d, tpl.Hour(), tpl.Minute(), tpl.Second(), tpl.Nanosecond(), loc)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// isoWeekday maps time.Weekday onto ISO-8601 numbering (Monday == 1).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
