package core

import (
	"fmt"
	"time"
)

// Deadline is the due-date policy of a note. It is one of Eternal, Fixed or
// Periodic.
type Deadline interface {
	// Kind returns the variant name used in storage formats.
	Kind() DeadlineKind
	isDeadline()
}

// DeadlineKind names a Deadline variant.
type DeadlineKind string

const (
	KindEternal  DeadlineKind = "eternal"
	KindFixed    DeadlineKind = "fixed"
	KindPeriodic DeadlineKind = "periodic"
)

// Eternal notes never become urgent by time. It is also used for "no deadline".
type Eternal struct{}

// Fixed notes are due at a single point in time.
type Fixed struct {
	At time.Time
}

// Periodic notes recur every EveryDays days starting at Start.
type Periodic struct {
	Start     time.Time
	EveryDays int
}

func (Eternal) Kind() DeadlineKind  { return KindEternal }
func (Fixed) Kind() DeadlineKind    { return KindFixed }
func (Periodic) Kind() DeadlineKind { return KindPeriodic }

func (Eternal) isDeadline()  {}
func (Fixed) isDeadline()    {}
func (Periodic) isDeadline() {}

func (Eternal) String() string { return "eternal" }

func (d Fixed) String() string { return "due " + d.At.Format(time.RFC3339) }

func (d Periodic) String() string {
	return fmt.Sprintf("every %d days from %s", d.EveryDays, d.Start.Format(time.DateOnly))
}

// NextOccurrence returns the first occurrence at or after now.
// A non-positive interval behaves like a single occurrence at Start.
func (d Periodic) NextOccurrence(now time.Time) time.Time {
	if d.EveryDays <= 0 || !now.After(d.Start) {
		return d.Start
	}
	// AddDate keeps wall-clock time stable across DST changes.
	elapsedDays := int(now.Sub(d.Start) / (24 * time.Hour))
	next := d.Start.AddDate(0, 0, (elapsedDays/d.EveryDays)*d.EveryDays)
	for next.Before(now) {
		next = next.AddDate(0, 0, d.EveryDays)
	}
	return next
}

// DueAt returns the instant the deadline next falls due relative to now.
// ok is false for Eternal (and nil) deadlines.
func DueAt(d Deadline, now time.Time) (due time.Time, ok bool) {
	switch v := d.(type) {
	case Fixed:
		return v.At, true
	case Periodic:
		return v.NextOccurrence(now), true
	default:
		return time.Time{}, false
	}
}

// NewDeadline builds a Deadline from its storage fields.
func NewDeadline(kind DeadlineKind, at time.Time, everyDays int) (Deadline, error) {
	switch kind {
	case "", KindEternal:
		return Eternal{}, nil
	case KindFixed:
		if at.IsZero() {
			return nil, fmt.Errorf("fixed deadline requires a date")
		}
		return Fixed{At: at}, nil
	case KindPeriodic:
		if at.IsZero() {
			return nil, fmt.Errorf("periodic deadline requires a start date")
		}
		return Periodic{Start: at, EveryDays: everyDays}, nil
	default:
		return nil, fmt.Errorf("unknown deadline kind %q", kind)
	}
}

// DeadlineFields flattens a Deadline into its storage fields.
func DeadlineFields(d Deadline) (kind DeadlineKind, at time.Time, everyDays int) {
	switch v := d.(type) {
	case Fixed:
		return KindFixed, v.At, 0
	case Periodic:
		return KindPeriodic, v.Start, v.EveryDays
	default:
		return KindEternal, time.Time{}, 0
	}
}
