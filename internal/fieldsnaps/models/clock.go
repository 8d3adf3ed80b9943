package models

import (
	"time"

	"github.com/google/uuid"
)

// PunchType is the kind of time clock entry.
type PunchType string

const (
	PunchClockIn    PunchType = "clock_in"
	PunchClockOut   PunchType = "clock_out"
	PunchBreakStart PunchType = "break_start"
	PunchBreakEnd   PunchType = "break_end"
)

// PunchSource records who produced an entry.
type PunchSource string

const (
	SourceManual   PunchSource = "manual"
	SourceGeofence PunchSource = "geofence"
)

// ClockState is derived from a user's most recent entry.
type ClockState string

const (
	ClockedOut ClockState = "clocked_out"
	ClockedIn  ClockState = "clocked_in"
	OnBreak    ClockState = "on_break"
)

// StateAfter returns the clock state that follows an entry of type t.
func StateAfter(t PunchType) ClockState {
	switch t {
	case PunchClockIn, PunchBreakEnd:
		return ClockedIn
	case PunchBreakStart:
		return OnBreak
	default:
		return ClockedOut
	}
}

// TimeEntry is one punch on the time clock.
type TimeEntry struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	UserID          uuid.UUID
	ProjectID       *uuid.UUID
	Type            PunchType
	Timestamp       time.Time
	Latitude        *float64
	Longitude       *float64
	Source          PunchSource
	OutsideGeofence bool
	ClientID        string
	CreatedAt       time.Time
}

// Punch is a clock request from a user.
type Punch struct {
	ProjectID *uuid.UUID
	Latitude  *float64
	Longitude *float64
	At        *time.Time
	ClientID  string
}

// ClockStatus summarizes where a user stands on the clock.
type ClockStatus struct {
	State     ClockState
	ProjectID *uuid.UUID
	Since     *time.Time
	LastEntry *TimeEntry
}

// Timesheet lists entries in a window with worked and break totals.
type Timesheet struct {
	From    time.Time
	To      time.Time
	Entries []*TimeEntry
	Worked  time.Duration
	Breaks  time.Duration
}
