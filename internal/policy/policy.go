// Package policy implements the per-resource-class validation rules applied
// to candidate reservations before they are admitted.
package policy

import (
	"fmt"
	"time"
)

// Resource is the subset of resource attributes the policies evaluate.
type Resource struct {
	ID     string
	Name   string
	Active bool
}

// Request carries a candidate reservation through validation. Now is the
// instant validation is evaluated against; callers inject it so rules that
// compare against the current time stay deterministic in tests.
type Request struct {
	UserID   string
	Resource Resource
	Start    time.Time
	End      time.Time
	Now      time.Time
}

// Violation reports the first rule a candidate reservation breaks.
// Validation short-circuits: a request violating several rules reports only
// the first one checked.
type Violation struct {
	Policy string
	Rule   string
	Reason string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	return v.Reason
}

// Policy validates a candidate reservation against one resource class.
// Implementations are immutable and safe to share across calls.
type Policy interface {
	Name() string
	Description() string
	Validate(req Request) error
}

const (
	minDuration = 15 * time.Minute
	maxDuration = 8 * time.Hour

	secureOpenHour    = 9
	secureCloseHour   = 18
	secureMaxDuration = 4 * time.Hour
	secureLeadTime    = 24 * time.Hour

	meetingRoomMaxDuration = 4 * time.Hour
)

type commonPolicy struct{}

// Common returns the baseline policy applied to every resource class.
func Common() Policy { return commonPolicy{} }

func (commonPolicy) Name() string { return NameCommon }

func (commonPolicy) Description() string {
	return "baseline rules: resource active, duration between 15 minutes and 8 hours, no bookings in the past"
}

func (p commonPolicy) Validate(req Request) error {
	if !req.Resource.Active {
		return &Violation{
			Policy: p.Name(),
			Rule:   "resource_active",
			Reason: fmt.Sprintf("resource %q is not active", req.Resource.Name),
		}
	}
	if !req.Start.Before(req.End) {
		return &Violation{
			Policy: p.Name(),
			Rule:   "time_order",
			Reason: "start time must be before end time",
		}
	}
	if req.Start.Before(req.Now) {
		return &Violation{
			Policy: p.Name(),
			Rule:   "not_past",
			Reason: "reservations cannot start in the past",
		}
	}
	duration := req.End.Sub(req.Start)
	if duration < minDuration {
		return &Violation{
			Policy: p.Name(),
			Rule:   "min_duration",
			Reason: "reservations must last at least 15 minutes",
		}
	}
	if duration > maxDuration {
		return &Violation{
			Policy: p.Name(),
			Rule:   "max_duration",
			Reason: "reservations cannot last longer than 8 hours",
		}
	}
	return nil
}

type highSecurityPolicy struct{}

// HighSecurity returns the policy for restricted resources: business hours,
// weekdays only, capped duration, and a mandatory booking lead time.
func HighSecurity() Policy { return highSecurityPolicy{} }

func (highSecurityPolicy) Name() string { return NameHighSecurity }

func (highSecurityPolicy) Description() string {
	return "restricted resources: 09:00-18:00, Monday-Friday, at most 4 hours, booked at least 24 hours ahead"
}

func (p highSecurityPolicy) Validate(req Request) error {
	if err := Common().Validate(req); err != nil {
		return err
	}
	if req.Start.Hour() < secureOpenHour || req.End.Hour() > secureCloseHour {
		return &Violation{
			Policy: p.Name(),
			Rule:   "business_hours",
			Reason: "high security resources can only be reserved between 09:00 and 18:00",
		}
	}
	if isoWeekday(req.Start) > 5 {
		return &Violation{
			Policy: p.Name(),
			Rule:   "weekday_only",
			Reason: "high security resources cannot be reserved on weekends",
		}
	}
	if req.End.Sub(req.Start) > secureMaxDuration {
		return &Violation{
			Policy: p.Name(),
			Rule:   "max_duration",
			Reason: "high security reservations cannot last longer than 4 hours",
		}
	}
	if req.Start.Sub(req.Now) < secureLeadTime {
		return &Violation{
			Policy: p.Name(),
			Rule:   "lead_time",
			Reason: "high security resources must be reserved at least 24 hours in advance",
		}
	}
	return nil
}

type meetingRoomPolicy struct{}

// MeetingRoom returns the policy for meeting rooms: half-hour slot alignment
// and a capped duration.
func MeetingRoom() Policy { return meetingRoomPolicy{} }

func (meetingRoomPolicy) Name() string { return NameMeetingRoom }

func (meetingRoomPolicy) Description() string {
	return "meeting rooms: start on the hour or half hour, at most 4 hours"
}

func (p meetingRoomPolicy) Validate(req Request) error {
	if err := Common().Validate(req); err != nil {
		return err
	}
	if minute := req.Start.Minute(); minute != 0 && minute != 30 {
		return &Violation{
			Policy: p.Name(),
			Rule:   "slot_alignment",
			Reason: "meeting room reservations must start on the hour or half hour",
		}
	}
	if req.End.Sub(req.Start) > meetingRoomMaxDuration {
		return &Violation{
			Policy: p.Name(),
			Rule:   "max_duration",
			Reason: "meeting room reservations cannot last longer than 4 hours",
		}
	}
	return nil
}

// isoWeekday maps time.Weekday (Sunday == 0) onto ISO-8601 numbering where
// Monday == 1 and Sunday == 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
