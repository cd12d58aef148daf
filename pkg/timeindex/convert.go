// Package timeindex normalizes the heterogeneous time axes found on
// prediction ensembles and reference series into a single calendar-aware
// representation.
//
// Incoming axes appear in three shapes: already-calendar timestamps,
// timestamp-like string labels ("1955-01-01" or "1955-01-01 00:00:00"),
// and plain numbers. Convert re-encodes all of them onto Go's time.Time,
// which is proleptic Gregorian. That single fixed calendar is applied
// regardless of the source calendar system; conversions from non-Gregorian
// model calendars are therefore not calendar-correct. This mirrors the
// upstream verification convention and is deliberately left as-is.
package timeindex

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/driftcast/driftcast/pkg/cube"
)

// ErrInvalidTimeIndexKind marks a time axis whose representation is not
// recognized by Convert.
var ErrInvalidTimeIndexKind = errors.New("invalid time index kind")

// Options controls Convert's side effects. The zero value logs the
// annual-resolution warning through slog.Default.
type Options struct {
	// Silent suppresses the warning emitted when a numeric axis forces
	// the annual-resolution assumption.
	Silent bool

	// Logger receives the warning; nil falls back to slog.Default.
	Logger *slog.Logger
}

// Convert returns a copy of c whose named axis is calendar-aware.
//
//   - A calendar axis is returned as-is (copied).
//   - A string-labeled axis is parsed as "YYYY-MM-DD[ ...]" dates and
//     re-encoded at midnight UTC.
//   - A numeric axis is assumed to hold whole years; each value becomes
//     January 1 of that year and a warning is logged unless opts.Silent.
//
// role only flavors error text ("initialized ensemble", "reference", ...).
func Convert(c *cube.Cube, dim, role string, opts Options) (*cube.Cube, error) {
	ax, err := c.Axis(dim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}

	switch {
	case ax.IsTime():
		return c.Copy(), nil

	case ax.IsLabeled():
		times := make([]time.Time, len(ax.Labels))
		for i, s := range ax.Labels {
			t, err := parseDateLabel(s)
			if err != nil {
				return nil, fmt.Errorf("%s: axis %q: %w", role, dim, err)
			}
			times[i] = t
		}
		out := cube.TimeAxis(dim, times)
		out.Units = ax.Units
		return c.WithAxis(out)

	case ax.IsNumeric():
		log := opts.Logger
		if log == nil {
			log = slog.Default()
		}
		if !opts.Silent {
			log.Warn("assuming annual resolution due to numeric time axis; "+
				"supply calendar timestamps for any other resolution",
				"dim", dim, "role", role)
		}
		times := make([]time.Time, len(ax.Vals))
		for i, v := range ax.Vals {
			year := int(math.Trunc(v))
			times[i] = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		out := cube.TimeAxis(dim, times)
		out.Units = ax.Units
		return c.WithAxis(out)

	default:
		return nil, fmt.Errorf(
			"%w: %s axis %q must hold calendar timestamps, date labels, or numeric years",
			ErrInvalidTimeIndexKind, role, dim)
	}
}

// parseDateLabel extracts (year, month, day) from a timestamp-like label
// and re-encodes it in the fixed proleptic-Gregorian calendar.
func parseDateLabel(s string) (time.Time, error) {
	datePart := strings.SplitN(strings.TrimSpace(s), " ", 2)[0]
	datePart = strings.SplitN(datePart, "T", 2)[0]
	parts := strings.Split(datePart, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: cannot parse date label %q", ErrInvalidTimeIndexKind, s)
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("%w: cannot parse date label %q", ErrInvalidTimeIndexKind, s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}
