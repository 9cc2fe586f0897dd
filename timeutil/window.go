package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidWindow is wrapped by every error WindowParser returns.
var ErrInvalidWindow = errors.New("invalid time window")

// Direction selects whether a relative window looks back or ahead of now.
type Direction int

const (
	Past Direction = iota
	Future
)

// WindowParser parses listing windows like "last 3 hours", "next 2 days" or
// explicit ranges like "2024-01-01 to 2024-01-02" into concrete time ranges.
// It enforces a maximum allowed window to avoid unbounded queries.
type WindowParser struct {
	defaultWindow time.Duration
	maxWindow     time.Duration
}

// NewWindowParser constructs a new WindowParser.
func NewWindowParser(defaultWindow, maxWindow time.Duration) *WindowParser {
	return &WindowParser{defaultWindow: defaultWindow, maxWindow: maxWindow}
}

// TimeRange represents a normalized [From, To) interval in UTC.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

var (
	relativeRe = regexp.MustCompile(`(?i)^(last|next)\s+(\d+)\s*(h|hr|hrs|hour|hours|d|day|days)$`)
	rangeRe    = regexp.MustCompile(`(?i)^\s*(.+?)\s+to\s+(.+?)\s*$`)
)

// Parse parses a free-form window expression. Empty input yields the default
// window adjacent to now in the given direction. Explicit range dates are
// read in now's location. All returned times are in UTC.
func (p *WindowParser) Parse(now time.Time, input string, dir Direction) (TimeRange, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return p.around(now, p.defaultWindow, dir), nil
	}

	if m := relativeRe.FindStringSubmatch(input); m != nil {
		return p.parseRelative(now, m)
	}

	if m := rangeRe.FindStringSubmatch(input); m != nil {
		return p.parseExplicitRange(now.Location(), m)
	}

	return TimeRange{}, fmt.Errorf("%w: could not parse %q", ErrInvalidWindow, input)
}

func (p *WindowParser) around(now time.Time, d time.Duration, dir Direction) TimeRange {
	n := now.UTC()
	if dir == Future {
		return TimeRange{From: n, To: n.Add(d)}
	}
	return TimeRange{From: n.Add(-d), To: n}
}

func (p *WindowParser) parseRelative(now time.Time, m []string) (TimeRange, error) {
	// m[1] = last|next, m[2] = number, m[3] = unit
	qty, err := strconv.Atoi(m[2])
	if err != nil || qty <= 0 {
		return TimeRange{}, fmt.Errorf("%w: invalid quantity %q", ErrInvalidWindow, m[2])
	}

	var d time.Duration
	switch strings.ToLower(m[3]) {
	case "h", "hr", "hrs", "hour", "hours":
		d = time.Duration(qty) * time.Hour
	case "d", "day", "days":
		d = time.Duration(qty) * 24 * time.Hour
	default:
		return TimeRange{}, fmt.Errorf("%w: unsupported unit %q", ErrInvalidWindow, m[3])
	}

	if d > p.maxWindow {
		return TimeRange{}, fmt.Errorf("%w: exceeds maximum of %s", ErrInvalidWindow, p.maxWindow)
	}

	dir := Past
	if strings.EqualFold(m[1], "next") {
		dir = Future
	}
	return p.around(now, d, dir), nil
}

func (p *WindowParser) parseExplicitRange(loc *time.Location, m []string) (TimeRange, error) {
	from, err := dateparse.ParseIn(m[1], loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: invalid start %q", ErrInvalidWindow, m[1])
	}
	to, err := dateparse.ParseIn(m[2], loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: invalid end %q", ErrInvalidWindow, m[2])
	}

	// A bare end date covers the whole day.
	if isMidnight(to) && !strings.Contains(m[2], ":") {
		to = to.AddDate(0, 0, 1)
	}

	if !to.After(from) {
		return TimeRange{}, fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}

	fromUTC := from.UTC()
	toUTC := to.UTC()
	if toUTC.Sub(fromUTC) > p.maxWindow {
		return TimeRange{}, fmt.Errorf("%w: exceeds maximum of %s", ErrInvalidWindow, p.maxWindow)
	}
	return TimeRange{From: fromUTC, To: toUTC}, nil
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
