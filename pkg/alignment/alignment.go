// Package alignment converts lead steps into calendar offsets and reduces
// a forecast/reference pair to the time window they share at a given lag.
//
// Offsets are applied on Go's proleptic-Gregorian time.Time. Yearly and
// seasonal/monthly leads are assumed to align with year and month starts
// respectively, matching the convention of the datasets this engine
// verifies.
package alignment

import (
	"errors"
	"fmt"
	"time"

	"github.com/driftcast/driftcast/pkg/cube"
)

// ErrUnsupportedLeadUnits marks a lead units string outside the
// recognized set.
var ErrUnsupportedLeadUnits = errors.New("unsupported lead units")

// Unit is the calendar step a lead offset is expressed in.
type Unit int

const (
	// YearStart steps whole years, landing on year starts.
	YearStart Unit = iota
	// MonthStart steps whole months, landing on month starts.
	MonthStart
	// Day steps calendar days.
	Day
)

// ShiftArgs converts a lead count and its units attribute into a calendar
// step count and unit.
//
//	years   → (lead, YearStart)
//	seasons → (3·lead, MonthStart)
//	months  → (lead, MonthStart)
//	weeks   → (7·lead, Day)
//	pentads → (5·lead, Day)
//	days    → (lead, Day)
func ShiftArgs(units string, lead int) (int, Unit, error) {
	switch units {
	case "years":
		return lead, YearStart, nil
	case "seasons":
		return lead * 3, MonthStart, nil
	case "months":
		return lead, MonthStart, nil
	case "weeks":
		return lead * 7, Day, nil
	case "pentads":
		return lead * 5, Day, nil
	case "days":
		return lead, Day, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q is not a valid choice (years, seasons, months, weeks, pentads, days)",
			ErrUnsupportedLeadUnits, units)
	}
}

// Shift advances t by n steps of the given unit. Negative n shifts
// backward.
func Shift(t time.Time, n int, unit Unit) time.Time {
	switch unit {
	case YearStart:
		return t.AddDate(n, 0, 0)
	case MonthStart:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// ReduceTimeSeries truncates a forecast (indexed by init) and a reference
// (indexed by time) to the window in which every retained init can be
// verified at the given lag.
//
// The reference's time index is shifted backward by the lag offset to find
// the latest init still reachable. The window is then
//
//	lower = max(first init, first reference time)
//	upper = min(last init, last shifted reference time)
//
// and the forecast is cut to [lower, upper] while the reference is only
// cut from below to [lower, ∞). The one-sided reference cut is inherited
// behavior: retained reference values beyond the window do not affect any
// verified pair, and downstream date matching ignores them.
func ReduceTimeSeries(forecast, reference *cube.Cube, units string, lag int) (*cube.Cube, *cube.Cube, error) {
	n, unit, err := ShiftArgs(units, lag)
	if err != nil {
		return nil, nil, err
	}

	initAx, err := forecast.Axis("init")
	if err != nil {
		return nil, nil, fmt.Errorf("forecast: %w", err)
	}
	timeAx, err := reference.Axis("time")
	if err != nil {
		return nil, nil, fmt.Errorf("reference: %w", err)
	}
	if !initAx.IsTime() || !timeAx.IsTime() {
		return nil, nil, fmt.Errorf("alignment requires calendar init and time axes")
	}
	if len(initAx.Times) == 0 || len(timeAx.Times) == 0 {
		return nil, nil, fmt.Errorf("alignment requires non-empty init and time axes")
	}

	shiftedMax := Shift(maxTime(timeAx.Times), -n, unit)

	lower := maxTime([]time.Time{minTime(initAx.Times), minTime(timeAx.Times)})
	upper := minTime([]time.Time{maxTime(initAx.Times), shiftedMax})

	fc, err := forecast.SelTimeRange("init", &lower, &upper)
	if err != nil {
		return nil, nil, err
	}
	ref, err := reference.SelTimeRange("time", &lower, nil)
	if err != nil {
		return nil, nil, err
	}
	if fc.Len("init") == 0 {
		return nil, nil, fmt.Errorf("no forecast inits remain after aligning at lag %d %s", lag, units)
	}
	return fc, ref, nil
}

func minTime(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.Before(m) {
			m = t
		}
	}
	return m
}

func maxTime(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.After(m) {
			m = t
		}
	}
	return m
}
